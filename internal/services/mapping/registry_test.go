package mapping

import (
	"errors"
	"testing"

	"MacroPulse/internal/domain/models"
)

func validDoc() *Document {
	return &Document{
		Version: "v1",
		Mappings: []models.MappingRule{
			{IndicatorKey: "US_CPI", Asset: "USD", Pillar: "inflation", Weight: 3.0, Impact: models.ImpactHigh, Frequency: models.FrequencyMonthly, PillarWeight: 0.4},
			{IndicatorKey: "US_NFP", Asset: "USD", Pillar: "growth", Weight: 2.5, Impact: models.ImpactHigh, Frequency: models.FrequencyMonthly, PillarWeight: 0.6},
			{IndicatorKey: "EZ_PMI", Asset: "EUR", Pillar: "growth", Weight: 2.0, Impact: models.ImpactMedium, Frequency: models.FrequencyMonthly, PillarWeight: 1.0},
		},
	}
}

func TestReloadActivatesSnapshot(t *testing.T) {
	r := NewRegistry(nil)

	snap, err := r.Reload(validDoc())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if snap.Version() != "v1" {
		t.Errorf("version = %q, want v1", snap.Version())
	}
	if got := r.Active().Version(); got != "v1" {
		t.Errorf("active version = %q, want v1", got)
	}

	rule, ok := snap.Resolve("US_CPI")
	if !ok {
		t.Fatal("US_CPI not resolved")
	}
	if rule.Asset != "USD" || rule.Pillar != "inflation" {
		t.Errorf("unexpected rule %+v", rule)
	}

	assets := snap.Assets()
	if len(assets) != 2 || assets[0] != "EUR" || assets[1] != "USD" {
		t.Errorf("assets = %v, want [EUR USD]", assets)
	}
}

func TestReloadRejectsInvalidKeepsPrevious(t *testing.T) {
	r := NewRegistry(nil)
	if _, err := r.Reload(validDoc()); err != nil {
		t.Fatalf("initial reload: %v", err)
	}

	bad := validDoc()
	bad.Version = "v2"
	bad.Mappings[0].Weight = -1

	if _, err := r.Reload(bad); !errors.Is(err, models.ErrInvalidSnapshot) {
		t.Fatalf("err = %v, want ErrInvalidSnapshot", err)
	}
	if got := r.Active().Version(); got != "v1" {
		t.Errorf("active version = %q, want v1 after rejected reload", got)
	}
}

func TestReloadRejectsBadWeightSum(t *testing.T) {
	r := NewRegistry(nil)

	doc := validDoc()
	doc.Mappings[0].PillarWeight = 0.7 // USD sums to 1.3

	if _, err := r.Reload(doc); !errors.Is(err, models.ErrInvalidSnapshot) {
		t.Fatalf("err = %v, want ErrInvalidSnapshot", err)
	}
}

func TestReloadRejectsConflictingPillarWeight(t *testing.T) {
	r := NewRegistry(nil)

	doc := validDoc()
	doc.Mappings = append(doc.Mappings, models.MappingRule{
		IndicatorKey: "US_PCE", Asset: "USD", Pillar: "inflation",
		Weight: 1.0, Impact: models.ImpactMedium, Frequency: models.FrequencyMonthly,
		PillarWeight: 0.5, // conflicts with US_CPI's 0.4 for USD/inflation
	})

	if _, err := r.Reload(doc); !errors.Is(err, models.ErrInvalidSnapshot) {
		t.Fatalf("err = %v, want ErrInvalidSnapshot", err)
	}
}

func TestReloadRejectsUnknownEnums(t *testing.T) {
	r := NewRegistry(nil)

	for name, mutate := range map[string]func(*Document){
		"impact":    func(d *Document) { d.Mappings[0].Impact = "extreme" },
		"frequency": func(d *Document) { d.Mappings[0].Frequency = "hourly" },
		"duplicate": func(d *Document) { d.Mappings = append(d.Mappings, d.Mappings[0]) },
		"noversion": func(d *Document) { d.Version = "" },
	} {
		doc := validDoc()
		mutate(doc)
		if _, err := r.Reload(doc); !errors.Is(err, models.ErrInvalidSnapshot) {
			t.Errorf("%s: err = %v, want ErrInvalidSnapshot", name, err)
		}
	}
}

func TestSnapshotDefaults(t *testing.T) {
	r := NewRegistry(nil)
	snap, err := r.Reload(validDoc())
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if got := snap.ImpactMultiplier(models.ImpactHigh); got != 1.5 {
		t.Errorf("high multiplier = %v, want 1.5", got)
	}
	if got := snap.HalfLifeDays(models.FrequencyMonthly); got != 45 {
		t.Errorf("monthly half-life = %v, want 45", got)
	}
}

func TestSnapshotOverrides(t *testing.T) {
	r := NewRegistry(nil)
	doc := validDoc()
	doc.ImpactMultipliers = map[string]float64{"high": 2.0}
	doc.FrequencyHalfLifeDays = map[string]float64{"monthly": 30}

	snap, err := r.Reload(doc)
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if got := snap.ImpactMultiplier(models.ImpactHigh); got != 2.0 {
		t.Errorf("high multiplier = %v, want 2.0", got)
	}
	if got := snap.HalfLifeDays(models.FrequencyMonthly); got != 30 {
		t.Errorf("monthly half-life = %v, want 30", got)
	}
	// untouched entries keep defaults
	if got := snap.ImpactMultiplier(models.ImpactLow); got != 0.75 {
		t.Errorf("low multiplier = %v, want 0.75", got)
	}
}
