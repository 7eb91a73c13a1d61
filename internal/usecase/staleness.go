package usecase

import (
	"context"
	"time"

	"MacroPulse/internal/domain/models"
	"MacroPulse/internal/domain/repository"
	"MacroPulse/internal/services/mapping"
)

// StalenessCheckerOption configures StalenessChecker.
type StalenessCheckerOption func(*StalenessChecker)

// WithStalenessClock overrides the wall clock, for tests.
func WithStalenessClock(now func() time.Time) StalenessCheckerOption {
	return func(s *StalenessChecker) {
		s.now = now
	}
}

// StalenessChecker reports the freshness of published scores against the
// expected refresh interval. It is read-only.
type StalenessChecker struct {
	scores            repository.ScoreStore
	registry          *mapping.Registry
	expected          time.Duration
	criticalThreshold int
	now               func() time.Time
}

// NewStalenessChecker creates a checker. An asset is warning when its
// published as_of is older than the expected interval, and critical when
// older than criticalThreshold intervals.
func NewStalenessChecker(scores repository.ScoreStore, registry *mapping.Registry, expected time.Duration, criticalThreshold int, opts ...StalenessCheckerOption) *StalenessChecker {
	if criticalThreshold < 1 {
		criticalThreshold = 1
	}
	s := &StalenessChecker{
		scores:            scores,
		registry:          registry,
		expected:          expected,
		criticalThreshold: criticalThreshold,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check returns the freshness of every asset in the active mapping
// snapshot, sorted by asset. Assets with no published score yet are
// reported with status none.
func (s *StalenessChecker) Check(ctx context.Context) []models.AssetStaleness {
	now := s.now()
	assets := s.registry.Active().Assets()

	out := make([]models.AssetStaleness, 0, len(assets))
	for _, asset := range assets {
		entry := models.AssetStaleness{Asset: asset, Expected: s.expected, Status: models.StalenessNone}
		if score, ok := s.scores.Latest(ctx, asset); ok {
			age := now.Sub(score.AsOf)
			entry.AsOf = score.AsOf
			entry.Age = age
			switch {
			case age <= s.expected:
				entry.Status = models.StalenessOK
			case age <= time.Duration(s.criticalThreshold)*s.expected:
				entry.Status = models.StalenessWarning
			default:
				entry.Status = models.StalenessCritical
			}
		}
		out = append(out, entry)
	}
	return out
}
