package service

import (
	"time"

	"MacroPulse/internal/domain/models"
)

// RuleSet is an immutable view of one mapping registry snapshot. All
// methods are safe for concurrent use; a RuleSet never changes after it
// is handed out.
type RuleSet interface {
	// Resolve returns the mapping rule for an indicator key.
	Resolve(indicatorKey string) (models.MappingRule, bool)

	// Version identifies the snapshot.
	Version() string

	// ImpactMultiplier returns the multiplier for an impact level.
	ImpactMultiplier(impact models.Impact) float64

	// HalfLifeDays returns the decay half-life for a release frequency.
	HalfLifeDays(freq models.Frequency) float64

	// Assets lists every asset referenced by the snapshot, sorted.
	Assets() []string
}

// Engine computes one asset's score from an event snapshot. Implementations
// are pure: same events, rules and cutoff always produce the same score.
type Engine interface {
	Compute(asset string, events []models.IndicatorEvent, rules RuleSet, cutoff time.Time) (models.AssetScore, error)
}
