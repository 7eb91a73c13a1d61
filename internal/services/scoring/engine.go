package scoring

import (
	"fmt"
	"math"
	"sort"
	"time"

	"MacroPulse/internal/domain/models"
	"MacroPulse/internal/domain/service"
)

const hoursPerDay = 24.0

// EngineOption configures Engine.
type EngineOption func(*Engine)

// WithBounds overrides the pillar and internal composite bounds.
func WithBounds(pillarBound, internalBound float64) EngineOption {
	return func(e *Engine) {
		e.pillarBound = pillarBound
		e.internalBound = internalBound
	}
}

// Engine aggregates indicator events into pillar and composite scores.
// Compute is pure: the same events, rules and cutoff always yield the
// same score, independent of input order.
type Engine struct {
	pillarBound   float64
	internalBound float64
}

// NewEngine creates an aggregation engine with default bounds.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		pillarBound:   10,
		internalBound: 24,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute derives the score for one asset from an event snapshot.
//
// Events observed after cutoff are excluded. Each qualifying event
// contributes raw × weight × impact × decay, where decay halves every
// half-life elapsed between observation and cutoff. Pillar sums are
// clamped after summation, then combined by pillar weight into the
// internal composite. Zero qualifying events yield a neutral composite
// with SampleCount 0.
func (e *Engine) Compute(asset string, events []models.IndicatorEvent, rules service.RuleSet, cutoff time.Time) (models.AssetScore, error) {
	qualifying := make([]models.IndicatorEvent, 0, len(events))
	for _, ev := range events {
		if ev.ObservedAt.After(cutoff) {
			continue
		}
		rule, ok := rules.Resolve(ev.IndicatorKey)
		if !ok || rule.Asset != asset {
			continue
		}
		qualifying = append(qualifying, ev)
	}

	// Fixed summation order keeps recomputation byte-stable for
	// identical inputs.
	sort.Slice(qualifying, func(i, j int) bool {
		if qualifying[i].IndicatorKey != qualifying[j].IndicatorKey {
			return qualifying[i].IndicatorKey < qualifying[j].IndicatorKey
		}
		return qualifying[i].ObservedAt.Before(qualifying[j].ObservedAt)
	})

	pillarSums := make(map[string]float64)
	pillarComponents := make(map[string][]models.Component)
	pillarWeights := make(map[string]float64)

	for _, ev := range qualifying {
		rule, _ := rules.Resolve(ev.IndicatorKey)

		halfLife := rules.HalfLifeDays(rule.Frequency)
		ageDays := cutoff.Sub(ev.ObservedAt).Hours() / hoursPerDay
		decay := math.Pow(0.5, ageDays/halfLife)
		if decay > 1 {
			decay = 1
		}

		contribution := ev.RawScore * rule.Weight * rules.ImpactMultiplier(rule.Impact) * decay
		if math.IsNaN(contribution) || math.IsInf(contribution, 0) {
			return models.AssetScore{}, fmt.Errorf("%w: contribution for %s is not finite", models.ErrInvariantViolation, ev.IndicatorKey)
		}

		pillarSums[rule.Pillar] += contribution
		pillarComponents[rule.Pillar] = append(pillarComponents[rule.Pillar], models.Component{
			IndicatorKey: ev.IndicatorKey,
			Contribution: contribution,
		})
		pillarWeights[rule.Pillar] = rule.PillarWeight
	}

	pillarNames := make([]string, 0, len(pillarSums))
	for name := range pillarSums {
		pillarNames = append(pillarNames, name)
	}
	sort.Strings(pillarNames)

	pillars := make([]models.PillarScore, 0, len(pillarNames))
	var composite float64
	for _, name := range pillarNames {
		value := clamp(pillarSums[name], e.pillarBound)
		pillars = append(pillars, models.PillarScore{
			Pillar:     name,
			Value:      value,
			Components: pillarComponents[name],
		})
		composite += pillarWeights[name] * value
	}
	composite = clamp(composite, e.internalBound)

	if math.IsNaN(composite) || math.IsInf(composite, 0) {
		return models.AssetScore{}, fmt.Errorf("%w: composite for %s is not finite", models.ErrInvariantViolation, asset)
	}

	return models.AssetScore{
		Asset:           asset,
		Composite:       composite,
		Pillars:         pillars,
		SampleCount:     len(qualifying),
		AsOf:            cutoff,
		RegistryVersion: rules.Version(),
	}, nil
}

func clamp(v, bound float64) float64 {
	if v > bound {
		return bound
	}
	if v < -bound {
		return -bound
	}
	return v
}
