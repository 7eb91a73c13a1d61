package mapping

import (
	"fmt"
	"math"
	"sort"
	"sync/atomic"

	applogger "MacroPulse/pkg/logger"

	"MacroPulse/internal/domain/models"
)

// Default scoring parameters, used when the mapping document does not
// override them.
var (
	defaultImpactMultipliers = map[models.Impact]float64{
		models.ImpactLow:    0.75,
		models.ImpactMedium: 1.0,
		models.ImpactHigh:   1.5,
	}

	defaultHalfLifeDays = map[models.Frequency]float64{
		models.FrequencyDaily:     2,
		models.FrequencyWeekly:    10,
		models.FrequencyMonthly:   45,
		models.FrequencyQuarterly: 90,
	}
)

// Snapshot is an immutable, validated rule set. It implements
// service.RuleSet.
type Snapshot struct {
	version    string
	rules      map[string]models.MappingRule
	impacts    map[models.Impact]float64
	halfLives  map[models.Frequency]float64
	assets     []string
	assetRules map[string][]models.MappingRule
}

// Resolve returns the mapping rule for an indicator key.
func (s *Snapshot) Resolve(indicatorKey string) (models.MappingRule, bool) {
	r, ok := s.rules[indicatorKey]
	return r, ok
}

// Version identifies the snapshot.
func (s *Snapshot) Version() string {
	return s.version
}

// ImpactMultiplier returns the multiplier for an impact level.
func (s *Snapshot) ImpactMultiplier(impact models.Impact) float64 {
	if m, ok := s.impacts[impact]; ok {
		return m
	}
	return defaultImpactMultipliers[models.ImpactMedium]
}

// HalfLifeDays returns the decay half-life for a release frequency.
func (s *Snapshot) HalfLifeDays(freq models.Frequency) float64 {
	if d, ok := s.halfLives[freq]; ok {
		return d
	}
	return defaultHalfLifeDays[models.FrequencyMonthly]
}

// Assets lists every asset referenced by the snapshot, sorted.
func (s *Snapshot) Assets() []string {
	out := make([]string, len(s.assets))
	copy(out, s.assets)
	return out
}

// RulesForAsset returns the rules mapped to one asset.
func (s *Snapshot) RulesForAsset(asset string) []models.MappingRule {
	rules := s.assetRules[asset]
	out := make([]models.MappingRule, len(rules))
	copy(out, rules)
	return out
}

// Size returns the number of indicator rules in the snapshot.
func (s *Snapshot) Size() int {
	return len(s.rules)
}

// RegistryOption configures Registry.
type RegistryOption func(*Registry)

// WithWeightTotal overrides the expected per-asset pillar weight sum and
// its tolerance.
func WithWeightTotal(total, tolerance float64) RegistryOption {
	return func(r *Registry) {
		r.weightTotal = total
		r.weightTol = tolerance
	}
}

// Registry holds the active mapping snapshot. Reload swaps snapshots
// atomically; readers always see a complete, validated rule set and an
// in-flight computation keeps the snapshot it started with.
type Registry struct {
	active      atomic.Pointer[Snapshot]
	logger      *applogger.Logger
	weightTotal float64
	weightTol   float64
}

// NewRegistry creates a registry with an empty active snapshot.
func NewRegistry(logger *applogger.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		logger:      logger,
		weightTotal: 1.0,
		weightTol:   0.01,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.active.Store(&Snapshot{
		version:    "empty",
		rules:      map[string]models.MappingRule{},
		impacts:    defaultImpactMultipliers,
		halfLives:  defaultHalfLifeDays,
		assetRules: map[string][]models.MappingRule{},
	})
	return r
}

// Active returns the current snapshot.
func (r *Registry) Active() *Snapshot {
	return r.active.Load()
}

// Reload validates the document as a whole and atomically swaps it in.
// On any validation failure the previous snapshot stays active and the
// error wraps models.ErrInvalidSnapshot.
func (r *Registry) Reload(doc *Document) (*Snapshot, error) {
	snap, err := buildSnapshot(doc, r.weightTotal, r.weightTol)
	if err != nil {
		if r.logger != nil {
			r.logger.Error("mapping reload rejected",
				applogger.String("version", doc.Version),
				applogger.Error(err),
			)
		}
		return nil, err
	}

	r.active.Store(snap)
	if r.logger != nil {
		r.logger.Info("mapping snapshot activated",
			applogger.String("version", snap.version),
			applogger.Int("rules", len(snap.rules)),
			applogger.Int("assets", len(snap.assets)),
		)
	}
	return snap, nil
}

// ReloadFromFile loads, validates and activates a mapping document.
func (r *Registry) ReloadFromFile(path string) (*Snapshot, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidSnapshot, err)
	}
	return r.Reload(doc)
}

func buildSnapshot(doc *Document, weightTotal, weightTol float64) (*Snapshot, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", models.ErrInvalidSnapshot)
	}
	if doc.Version == "" {
		return nil, fmt.Errorf("%w: missing version", models.ErrInvalidSnapshot)
	}

	impacts := make(map[models.Impact]float64, len(defaultImpactMultipliers))
	for k, v := range defaultImpactMultipliers {
		impacts[k] = v
	}
	for k, v := range doc.ImpactMultipliers {
		impact := models.Impact(k)
		if !impact.Valid() {
			return nil, fmt.Errorf("%w: unknown impact level %q", models.ErrInvalidSnapshot, k)
		}
		if v <= 0 {
			return nil, fmt.Errorf("%w: impact multiplier for %q must be positive", models.ErrInvalidSnapshot, k)
		}
		impacts[impact] = v
	}

	halfLives := make(map[models.Frequency]float64, len(defaultHalfLifeDays))
	for k, v := range defaultHalfLifeDays {
		halfLives[k] = v
	}
	for k, v := range doc.FrequencyHalfLifeDays {
		freq := models.Frequency(k)
		if !freq.Valid() {
			return nil, fmt.Errorf("%w: unknown frequency %q", models.ErrInvalidSnapshot, k)
		}
		if v <= 0 {
			return nil, fmt.Errorf("%w: half-life for %q must be positive", models.ErrInvalidSnapshot, k)
		}
		halfLives[freq] = v
	}

	rules := make(map[string]models.MappingRule, len(doc.Mappings))
	assetRules := make(map[string][]models.MappingRule)
	pillarWeights := make(map[string]map[string]float64)

	for _, rule := range doc.Mappings {
		if rule.IndicatorKey == "" {
			return nil, fmt.Errorf("%w: rule with empty indicator_key", models.ErrInvalidSnapshot)
		}
		if rule.Asset == "" || rule.Pillar == "" {
			return nil, fmt.Errorf("%w: rule %q has empty asset or pillar", models.ErrInvalidSnapshot, rule.IndicatorKey)
		}
		if rule.Weight < 0 {
			return nil, fmt.Errorf("%w: rule %q has negative weight", models.ErrInvalidSnapshot, rule.IndicatorKey)
		}
		if !rule.Impact.Valid() {
			return nil, fmt.Errorf("%w: rule %q has unknown impact %q", models.ErrInvalidSnapshot, rule.IndicatorKey, rule.Impact)
		}
		if !rule.Frequency.Valid() {
			return nil, fmt.Errorf("%w: rule %q has unknown frequency %q", models.ErrInvalidSnapshot, rule.IndicatorKey, rule.Frequency)
		}
		if rule.PillarWeight < 0 {
			return nil, fmt.Errorf("%w: rule %q has negative pillar_weight", models.ErrInvalidSnapshot, rule.IndicatorKey)
		}
		if _, dup := rules[rule.IndicatorKey]; dup {
			return nil, fmt.Errorf("%w: duplicate rule for %q", models.ErrInvalidSnapshot, rule.IndicatorKey)
		}

		// Every rule for the same (asset, pillar) must agree on the
		// pillar weight.
		if _, ok := pillarWeights[rule.Asset]; !ok {
			pillarWeights[rule.Asset] = make(map[string]float64)
		}
		if prev, ok := pillarWeights[rule.Asset][rule.Pillar]; ok {
			if prev != rule.PillarWeight {
				return nil, fmt.Errorf("%w: conflicting pillar_weight for %s/%s", models.ErrInvalidSnapshot, rule.Asset, rule.Pillar)
			}
		} else {
			pillarWeights[rule.Asset][rule.Pillar] = rule.PillarWeight
		}

		rules[rule.IndicatorKey] = rule
		assetRules[rule.Asset] = append(assetRules[rule.Asset], rule)
	}

	// Per asset, distinct pillar weights must sum to the expected total.
	for asset, pillars := range pillarWeights {
		var sum float64
		for _, w := range pillars {
			sum += w
		}
		if math.Abs(sum-weightTotal) > weightTol {
			return nil, fmt.Errorf("%w: asset %q pillar weights sum to %.4f, want %.2f", models.ErrInvalidSnapshot, asset, sum, weightTotal)
		}
	}

	assets := make([]string, 0, len(assetRules))
	for asset := range assetRules {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	return &Snapshot{
		version:    doc.Version,
		rules:      rules,
		impacts:    impacts,
		halfLives:  halfLives,
		assets:     assets,
		assetRules: assetRules,
	}, nil
}
