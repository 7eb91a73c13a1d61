package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"MacroPulse/internal/domain/models"
)

// ScoreStore holds the latest published score per asset. Publish is
// guarded by version so concurrent recomputes can never install an
// older result over a newer one.
type ScoreStore struct {
	mu     sync.RWMutex
	latest map[string]models.AssetScore
}

// NewScoreStore creates an empty score store.
func NewScoreStore() *ScoreStore {
	return &ScoreStore{
		latest: make(map[string]models.AssetScore),
	}
}

// Publish installs the score if its version is strictly greater than the
// published one. A stale version returns models.ErrStaleVersion and
// leaves the published score untouched.
func (s *ScoreStore) Publish(_ context.Context, score models.AssetScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.latest[score.Asset]; ok && score.Version <= cur.Version {
		return fmt.Errorf("%w: asset %s version %d <= published %d",
			models.ErrStaleVersion, score.Asset, score.Version, cur.Version)
	}
	s.latest[score.Asset] = score
	return nil
}

// Latest returns the published score for one asset.
func (s *ScoreStore) Latest(_ context.Context, asset string) (models.AssetScore, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.latest[asset]
	return score, ok
}

// LatestAll returns all published scores sorted by asset.
func (s *ScoreStore) LatestAll(_ context.Context) []models.AssetScore {
	s.mu.RLock()
	out := make([]models.AssetScore, 0, len(s.latest))
	for _, score := range s.latest {
		out = append(out, score)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}

// LatestVersion returns the published version for an asset, zero if none.
func (s *ScoreStore) LatestVersion(_ context.Context, asset string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest[asset].Version
}
