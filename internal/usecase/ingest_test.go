package usecase

import (
	"context"
	"strings"
	"testing"
	"time"

	"MacroPulse/internal/domain/models"
	"MacroPulse/internal/repository"
	"MacroPulse/internal/services/mapping"
)

func testRegistry(t *testing.T) *mapping.Registry {
	t.Helper()
	r := mapping.NewRegistry(nil)
	_, err := r.Reload(&mapping.Document{
		Version: "v1",
		Mappings: []models.MappingRule{
			{IndicatorKey: "US_CPI", Asset: "USD", Pillar: "inflation", Weight: 3.0, Impact: models.ImpactHigh, Frequency: models.FrequencyMonthly, PillarWeight: 0.4},
			{IndicatorKey: "US_NFP", Asset: "USD", Pillar: "growth", Weight: 2.5, Impact: models.ImpactHigh, Frequency: models.FrequencyMonthly, PillarWeight: 0.6},
			{IndicatorKey: "EZ_PMI", Asset: "EUR", Pillar: "growth", Weight: 2.0, Impact: models.ImpactMedium, Frequency: models.FrequencyMonthly, PillarWeight: 1.0},
		},
	})
	if err != nil {
		t.Fatalf("Reload: %v", err)
	}
	return r
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIngestMixedBatch(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := repository.NewMemoryEventStore()
	ing := NewIngestor(store, testRegistry(t), nil, nil, WithClock(fixedClock(now)))

	batch := []models.RawEvent{
		{IndicatorKey: "US_CPI", RawScore: 1.5, ObservedAt: "2026-08-01T10:00:00Z"},
		{IndicatorKey: "XX_NOPE", RawScore: 1.0, ObservedAt: "2026-08-01T10:00:00Z"},  // unmapped
		{IndicatorKey: "US_NFP", RawScore: 5.0, ObservedAt: "2026-08-01T10:00:00Z"},   // out of range
		{IndicatorKey: "US_NFP", RawScore: 1.0, ObservedAt: "not-a-time"},             // bad timestamp
		{IndicatorKey: "EZ_PMI", RawScore: -1.0, ObservedAt: "2026-08-01T09:00:00Z"},
		{IndicatorKey: "US_CPI", RawScore: 1.5, ObservedAt: "2026-08-01T10:00:00Z"},   // in-batch duplicate
	}

	res, err := ing.Ingest(context.Background(), batch, false)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}

	if len(res.Accepted) != 2 {
		t.Errorf("accepted = %d, want 2", len(res.Accepted))
	}
	if len(res.Duplicates) != 1 {
		t.Errorf("duplicates = %d, want 1", len(res.Duplicates))
	}
	if len(res.Rejected) != 3 {
		t.Fatalf("rejected = %d, want 3", len(res.Rejected))
	}

	for i, wantSub := range []string{"not mapped", "out of range", "invalid observed_at"} {
		if !strings.Contains(res.Rejected[i].Reason, wantSub) {
			t.Errorf("rejected[%d] reason = %q, want substring %q", i, res.Rejected[i].Reason, wantSub)
		}
	}

	// Asset is derived from the mapping, not taken from the input.
	if res.Accepted[0].Asset != "USD" || res.Accepted[1].Asset != "EUR" {
		t.Errorf("derived assets = %s, %s", res.Accepted[0].Asset, res.Accepted[1].Asset)
	}
}

func TestIngestSecondCallDuplicates(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := repository.NewMemoryEventStore()
	ing := NewIngestor(store, testRegistry(t), nil, nil, WithClock(fixedClock(now)))

	batch := []models.RawEvent{
		{IndicatorKey: "US_CPI", RawScore: 1.5, ObservedAt: "2026-08-01T10:00:00Z"},
	}

	first, err := ing.Ingest(context.Background(), batch, false)
	if err != nil {
		t.Fatalf("first Ingest: %v", err)
	}
	if len(first.Accepted) != 1 {
		t.Fatalf("first accepted = %d, want 1", len(first.Accepted))
	}

	// Same natural key with a different payload is still a duplicate no-op.
	batch[0].RawScore = -0.5
	second, err := ing.Ingest(context.Background(), batch, false)
	if err != nil {
		t.Fatalf("second Ingest: %v", err)
	}
	if len(second.Accepted) != 0 || len(second.Duplicates) != 1 {
		t.Errorf("second result accepted=%d duplicates=%d, want 0/1", len(second.Accepted), len(second.Duplicates))
	}
	if store.Len() != 1 {
		t.Errorf("store has %d events, want 1", store.Len())
	}
}

func TestIngestDryRunParity(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := repository.NewMemoryEventStore()
	ing := NewIngestor(store, testRegistry(t), nil, nil, WithClock(fixedClock(now)))

	// Pre-commit one event so the dry run sees a store duplicate.
	if _, err := ing.Ingest(context.Background(), []models.RawEvent{
		{IndicatorKey: "US_NFP", RawScore: 1.0, ObservedAt: "2026-08-01T08:00:00Z"},
	}, false); err != nil {
		t.Fatalf("seed Ingest: %v", err)
	}

	batch := []models.RawEvent{
		{IndicatorKey: "US_NFP", RawScore: 1.0, ObservedAt: "2026-08-01T08:00:00Z"}, // store duplicate
		{IndicatorKey: "US_CPI", RawScore: 1.5, ObservedAt: "2026-08-01T10:00:00Z"},
		{IndicatorKey: "US_CPI", RawScore: 1.5, ObservedAt: "2026-08-01T10:00:00Z"}, // in-batch duplicate
		{IndicatorKey: "XX_NOPE", RawScore: 1.0, ObservedAt: "2026-08-01T10:00:00Z"},
	}

	dry, err := ing.Ingest(context.Background(), batch, true)
	if err != nil {
		t.Fatalf("dry Ingest: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("dry run committed events: store has %d, want 1", store.Len())
	}

	live, err := ing.Ingest(context.Background(), batch, false)
	if err != nil {
		t.Fatalf("live Ingest: %v", err)
	}

	if len(dry.Accepted) != len(live.Accepted) ||
		len(dry.Duplicates) != len(live.Duplicates) ||
		len(dry.Rejected) != len(live.Rejected) {
		t.Errorf("dry run classification differs from live:\ndry  %d/%d/%d\nlive %d/%d/%d",
			len(dry.Accepted), len(dry.Duplicates), len(dry.Rejected),
			len(live.Accepted), len(live.Duplicates), len(live.Rejected))
	}
}

func TestIngestRejectsFutureObservation(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := repository.NewMemoryEventStore()
	ing := NewIngestor(store, testRegistry(t), nil, nil,
		WithClock(fixedClock(now)), WithFutureSkew(5*time.Minute))

	res, err := ing.Ingest(context.Background(), []models.RawEvent{
		{IndicatorKey: "US_CPI", RawScore: 1.0, ObservedAt: "2026-08-01T12:04:00Z"}, // within skew
		{IndicatorKey: "US_NFP", RawScore: 1.0, ObservedAt: "2026-08-01T13:00:00Z"}, // too far ahead
	}, false)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(res.Accepted) != 1 || len(res.Rejected) != 1 {
		t.Errorf("accepted=%d rejected=%d, want 1/1", len(res.Accepted), len(res.Rejected))
	}
}

func TestRestoreSkipsDuplicates(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := repository.NewMemoryEventStore()
	ing := NewIngestor(store, testRegistry(t), nil, nil, WithClock(fixedClock(now)))

	observed := now.Add(-time.Hour)
	events := []models.IndicatorEvent{
		{IndicatorKey: "US_CPI", Asset: "USD", RawScore: 1.0, ObservedAt: observed},
		{IndicatorKey: "US_CPI", Asset: "USD", RawScore: 1.0, ObservedAt: observed},
		{IndicatorKey: "US_NFP", Asset: "USD", RawScore: 0.5, ObservedAt: observed},
	}

	restored, err := ing.Restore(context.Background(), events)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored != 2 {
		t.Errorf("restored = %d, want 2", restored)
	}
	if store.Len() != 2 {
		t.Errorf("store has %d events, want 2", store.Len())
	}
}
