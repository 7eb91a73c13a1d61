package scoring

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"MacroPulse/internal/domain/models"
)

// stubRules is a minimal RuleSet for engine tests.
type stubRules struct {
	rules map[string]models.MappingRule
}

func (s *stubRules) Resolve(key string) (models.MappingRule, bool) {
	r, ok := s.rules[key]
	return r, ok
}

func (s *stubRules) Version() string { return "test-v1" }

func (s *stubRules) ImpactMultiplier(impact models.Impact) float64 {
	switch impact {
	case models.ImpactLow:
		return 0.75
	case models.ImpactHigh:
		return 1.5
	default:
		return 1.0
	}
}

func (s *stubRules) HalfLifeDays(freq models.Frequency) float64 {
	switch freq {
	case models.FrequencyDaily:
		return 2
	case models.FrequencyWeekly:
		return 10
	case models.FrequencyQuarterly:
		return 90
	default:
		return 45
	}
}

func (s *stubRules) Assets() []string { return []string{"USD"} }

func usdRules() *stubRules {
	return &stubRules{rules: map[string]models.MappingRule{
		"US_CPI": {IndicatorKey: "US_CPI", Asset: "USD", Pillar: "inflation", Weight: 3.0, Impact: models.ImpactHigh, Frequency: models.FrequencyMonthly, PillarWeight: 0.4},
		"US_NFP": {IndicatorKey: "US_NFP", Asset: "USD", Pillar: "growth", Weight: 2.5, Impact: models.ImpactHigh, Frequency: models.FrequencyMonthly, PillarWeight: 0.6},
		"EZ_PMI": {IndicatorKey: "EZ_PMI", Asset: "EUR", Pillar: "growth", Weight: 2.0, Impact: models.ImpactMedium, Frequency: models.FrequencyMonthly, PillarWeight: 1.0},
	}}
}

func event(key string, raw float64, observedAt time.Time) models.IndicatorEvent {
	return models.IndicatorEvent{IndicatorKey: key, Asset: "USD", RawScore: raw, ObservedAt: observedAt}
}

func TestComputeContribution(t *testing.T) {
	engine := NewEngine()
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	// Fresh event: decay 1, contribution = 2.0 * 3.0 * 1.5 = 9.0.
	score, err := engine.Compute("USD", []models.IndicatorEvent{
		event("US_CPI", 2.0, cutoff),
	}, usdRules(), cutoff)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(score.Pillars) != 1 {
		t.Fatalf("pillars = %d, want 1", len(score.Pillars))
	}
	if got := score.Pillars[0].Value; math.Abs(got-9.0) > 1e-9 {
		t.Errorf("pillar value = %v, want 9.0", got)
	}
	if got := score.Composite; math.Abs(got-3.6) > 1e-9 {
		t.Errorf("composite = %v, want 3.6 (0.4 * 9.0)", got)
	}
	if score.SampleCount != 1 {
		t.Errorf("sample count = %d, want 1", score.SampleCount)
	}
	if score.RegistryVersion != "test-v1" {
		t.Errorf("registry version = %q", score.RegistryVersion)
	}
}

func TestComputeDecayHalvesAtHalfLife(t *testing.T) {
	engine := NewEngine()
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	// One half-life (45 days for monthly) before cutoff: decay 0.5.
	score, err := engine.Compute("USD", []models.IndicatorEvent{
		event("US_CPI", 2.0, cutoff.Add(-45*24*time.Hour)),
	}, usdRules(), cutoff)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got := score.Pillars[0].Value; math.Abs(got-4.5) > 1e-9 {
		t.Errorf("pillar value = %v, want 4.5", got)
	}
}

func TestComputeDecayMonotone(t *testing.T) {
	engine := NewEngine()
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	rules := usdRules()

	prev := math.Inf(1)
	for _, days := range []int{0, 1, 10, 45, 90, 365} {
		score, err := engine.Compute("USD", []models.IndicatorEvent{
			event("US_CPI", 1.0, cutoff.Add(-time.Duration(days)*24*time.Hour)),
		}, rules, cutoff)
		if err != nil {
			t.Fatalf("Compute(%dd): %v", days, err)
		}
		v := score.Pillars[0].Value
		if v <= 0 || v > prev {
			t.Errorf("age %dd: value %v not in (0, %v)", days, v, prev)
		}
		prev = v
	}
}

func TestComputeClampsAfterSummation(t *testing.T) {
	engine := NewEngine()
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	// Many small positive signals saturate the pillar together even
	// though each contribution is far below the bound.
	events := make([]models.IndicatorEvent, 0, 10)
	for i := 0; i < 10; i++ {
		events = append(events, event("US_CPI", 0.5, cutoff.Add(-time.Duration(i)*time.Minute)))
	}
	score, err := engine.Compute("USD", events, usdRules(), cutoff)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if got := score.Pillars[0].Value; got != 10.0 {
		t.Errorf("pillar value = %v, want clamped 10.0", got)
	}
}

func TestComputeDeterministicOrder(t *testing.T) {
	engine := NewEngine()
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	rules := usdRules()

	events := []models.IndicatorEvent{
		event("US_CPI", 1.3, cutoff.Add(-24*time.Hour)),
		event("US_CPI", -0.7, cutoff.Add(-48*time.Hour)),
		event("US_NFP", 0.9, cutoff.Add(-12*time.Hour)),
		event("US_NFP", 1.1, cutoff.Add(-72*time.Hour)),
	}

	base, err := engine.Compute("USD", events, rules, cutoff)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := make([]models.IndicatorEvent, len(events))
		copy(shuffled, events)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got, err := engine.Compute("USD", shuffled, rules, cutoff)
		if err != nil {
			t.Fatalf("Compute shuffled: %v", err)
		}
		if !reflect.DeepEqual(base, got) {
			t.Fatalf("result differs for shuffled input:\nbase %+v\ngot  %+v", base, got)
		}
	}
}

func TestComputeZeroEventsNeutral(t *testing.T) {
	engine := NewEngine()
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	score, err := engine.Compute("USD", nil, usdRules(), cutoff)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if score.Composite != 0 {
		t.Errorf("composite = %v, want 0", score.Composite)
	}
	if score.SampleCount != 0 {
		t.Errorf("sample count = %d, want 0", score.SampleCount)
	}
}

func TestComputeExcludesAfterCutoffAndOtherAssets(t *testing.T) {
	engine := NewEngine()
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	events := []models.IndicatorEvent{
		event("US_CPI", 2.0, cutoff.Add(time.Second)), // after cutoff
		{IndicatorKey: "EZ_PMI", Asset: "EUR", RawScore: 2.0, ObservedAt: cutoff}, // other asset
		{IndicatorKey: "XX_UNKNOWN", RawScore: 2.0, ObservedAt: cutoff},           // unmapped
		event("US_NFP", 1.0, cutoff),
	}
	score, err := engine.Compute("USD", events, usdRules(), cutoff)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if score.SampleCount != 1 {
		t.Errorf("sample count = %d, want 1", score.SampleCount)
	}
	if len(score.Pillars) != 1 || score.Pillars[0].Pillar != "growth" {
		t.Errorf("pillars = %+v, want single growth pillar", score.Pillars)
	}
}

func TestComputeRejectsNonFinite(t *testing.T) {
	engine := NewEngine()
	cutoff := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	_, err := engine.Compute("USD", []models.IndicatorEvent{
		event("US_CPI", math.Inf(1), cutoff),
	}, usdRules(), cutoff)
	if !errors.Is(err, models.ErrInvariantViolation) {
		t.Fatalf("err = %v, want ErrInvariantViolation", err)
	}
}
