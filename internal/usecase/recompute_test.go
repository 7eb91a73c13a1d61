package usecase

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"MacroPulse/internal/domain/models"
	"MacroPulse/internal/domain/service"
	"MacroPulse/internal/repository"
	"MacroPulse/internal/services/scoring"
)

func newTestCoordinator(t *testing.T, store *repository.MemoryEventStore, scores *repository.ScoreStore, engine service.Engine, opts ...CoordinatorOption) *Coordinator {
	t.Helper()
	return NewCoordinator(
		store,
		scores,
		testRegistry(t),
		engine,
		scoring.NewNormalizer(24, 2, 2),
		nil,
		nil,
		opts...,
	)
}

func seedEvents(t *testing.T, store *repository.MemoryEventStore, observed time.Time) {
	t.Helper()
	for _, ev := range []models.IndicatorEvent{
		{IndicatorKey: "US_CPI", Asset: "USD", RawScore: 2.0, ObservedAt: observed},
		{IndicatorKey: "US_NFP", Asset: "USD", RawScore: -1.0, ObservedAt: observed},
		{IndicatorKey: "EZ_PMI", Asset: "EUR", RawScore: 1.0, ObservedAt: observed},
	} {
		if _, err := store.Upsert(context.Background(), ev); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
}

func TestRecomputePublishesVersions(t *testing.T) {
	cutoff := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := repository.NewMemoryEventStore()
	scores := repository.NewScoreStore()
	seedEvents(t, store, cutoff.Add(-time.Hour))

	coord := newTestCoordinator(t, store, scores, scoring.NewEngine())

	summary, err := coord.RecomputeAt(context.Background(), nil, cutoff)
	if err != nil {
		t.Fatalf("RecomputeAt: %v", err)
	}
	if !summary.Cutoff.Equal(cutoff) {
		t.Errorf("cutoff = %v, want %v", summary.Cutoff, cutoff)
	}
	if len(summary.Outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2 (EUR, USD)", len(summary.Outcomes))
	}
	for _, o := range summary.Outcomes {
		if o.Error != "" {
			t.Errorf("asset %s failed: %s", o.Asset, o.Error)
		}
		if o.Version != 1 {
			t.Errorf("asset %s version = %d, want 1", o.Asset, o.Version)
		}
	}

	usd, ok := scores.Latest(context.Background(), "USD")
	if !ok {
		t.Fatal("USD score not published")
	}
	if usd.Scale != [2]float64{-2, 2} {
		t.Errorf("scale = %v", usd.Scale)
	}
	if usd.Composite < -2 || usd.Composite > 2 {
		t.Errorf("composite %v outside external scale", usd.Composite)
	}
	if usd.SampleCount != 2 {
		t.Errorf("sample count = %d, want 2", usd.SampleCount)
	}
	if !usd.AsOf.Equal(cutoff) {
		t.Errorf("as_of = %v, want cutoff", usd.AsOf)
	}
	if usd.RegistryVersion != "v1" {
		t.Errorf("registry version = %q", usd.RegistryVersion)
	}
}

func TestRecomputeIdempotentAtFixedCutoff(t *testing.T) {
	cutoff := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := repository.NewMemoryEventStore()
	scores := repository.NewScoreStore()
	seedEvents(t, store, cutoff.Add(-time.Hour))

	coord := newTestCoordinator(t, store, scores, scoring.NewEngine())
	ctx := context.Background()

	if _, err := coord.RecomputeAt(ctx, []string{"USD"}, cutoff); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	first, _ := scores.Latest(ctx, "USD")

	if _, err := coord.RecomputeAt(ctx, []string{"USD"}, cutoff); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	second, _ := scores.Latest(ctx, "USD")

	if second.Version != first.Version+1 {
		t.Errorf("versions %d -> %d, want strictly increasing", first.Version, second.Version)
	}

	// Identical inputs and cutoff must yield an identical score body.
	first.Version, second.Version = 0, 0
	first.ComputedAt, second.ComputedAt = time.Time{}, time.Time{}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("recompute at fixed cutoff not reproducible:\nfirst  %+v\nsecond %+v", first, second)
	}
}

// failingEngine fails only the configured asset.
type failingEngine struct {
	inner service.Engine
	fail  string
}

func (f *failingEngine) Compute(asset string, events []models.IndicatorEvent, rules service.RuleSet, cutoff time.Time) (models.AssetScore, error) {
	if asset == f.fail {
		return models.AssetScore{}, fmt.Errorf("%w: synthetic failure", models.ErrInvariantViolation)
	}
	return f.inner.Compute(asset, events, rules, cutoff)
}

func TestRecomputePerAssetIsolation(t *testing.T) {
	cutoff := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := repository.NewMemoryEventStore()
	scores := repository.NewScoreStore()
	seedEvents(t, store, cutoff.Add(-time.Hour))
	ctx := context.Background()

	// Publish a baseline for USD, then fail USD on the next pass.
	healthy := newTestCoordinator(t, store, scores, scoring.NewEngine())
	if _, err := healthy.RecomputeAt(ctx, nil, cutoff); err != nil {
		t.Fatalf("baseline pass: %v", err)
	}
	baseline, _ := scores.Latest(ctx, "USD")

	broken := newTestCoordinator(t, store, scores, &failingEngine{inner: scoring.NewEngine(), fail: "USD"})
	summary, err := broken.RecomputeAt(ctx, nil, cutoff)
	if err != nil {
		t.Fatalf("broken pass: %v", err)
	}

	var usdOutcome, eurOutcome models.AssetOutcome
	for _, o := range summary.Outcomes {
		switch o.Asset {
		case "USD":
			usdOutcome = o
		case "EUR":
			eurOutcome = o
		}
	}

	if usdOutcome.Error == "" || !strings.Contains(usdOutcome.Error, "synthetic failure") {
		t.Errorf("USD outcome = %+v, want reported failure", usdOutcome)
	}
	if eurOutcome.Error != "" || eurOutcome.Version != 2 {
		t.Errorf("EUR outcome = %+v, want version 2", eurOutcome)
	}

	// The failed asset keeps its previous published version.
	usd, ok := scores.Latest(ctx, "USD")
	if !ok || usd.Version != baseline.Version {
		t.Errorf("USD score = %+v, want retained baseline version %d", usd, baseline.Version)
	}
}

func TestRecomputeCutoffExcludesLaterEvents(t *testing.T) {
	cutoff := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := repository.NewMemoryEventStore()
	scores := repository.NewScoreStore()
	ctx := context.Background()

	if _, err := store.Upsert(ctx, models.IndicatorEvent{
		IndicatorKey: "US_CPI", Asset: "USD", RawScore: 2.0, ObservedAt: cutoff.Add(time.Minute),
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	coord := newTestCoordinator(t, store, scores, scoring.NewEngine())
	if _, err := coord.RecomputeAt(ctx, []string{"USD"}, cutoff); err != nil {
		t.Fatalf("RecomputeAt: %v", err)
	}

	usd, _ := scores.Latest(ctx, "USD")
	if usd.Composite != 0 || usd.SampleCount != 0 {
		t.Errorf("score = %+v, want neutral with sample count 0", usd)
	}
}

// notifierSpy records published scores.
type notifierSpy struct {
	published []models.AssetScore
}

func (n *notifierSpy) NotifyPublished(_ context.Context, score models.AssetScore) {
	n.published = append(n.published, score)
}

func TestRecomputeNotifiesPublishedScores(t *testing.T) {
	cutoff := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := repository.NewMemoryEventStore()
	scores := repository.NewScoreStore()
	seedEvents(t, store, cutoff.Add(-time.Hour))

	spy := &notifierSpy{}
	coord := newTestCoordinator(t, store, scores, scoring.NewEngine(), WithNotifier(spy))

	if _, err := coord.RecomputeAt(context.Background(), []string{"USD"}, cutoff); err != nil {
		t.Fatalf("RecomputeAt: %v", err)
	}
	if len(spy.published) != 1 || spy.published[0].Asset != "USD" {
		t.Errorf("notified = %+v, want one USD score", spy.published)
	}
}
