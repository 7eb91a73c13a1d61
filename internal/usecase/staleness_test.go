package usecase

import (
	"context"
	"testing"
	"time"

	"MacroPulse/internal/domain/models"
	"MacroPulse/internal/repository"
)

func TestStalenessClassification(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	scores := repository.NewScoreStore()
	ctx := context.Background()

	// USD fresh, EUR stale beyond three intervals. No score for a third
	// asset is covered by the registry fixture having only two assets.
	if err := scores.Publish(ctx, models.AssetScore{Asset: "USD", Version: 1, AsOf: now.Add(-30 * time.Minute)}); err != nil {
		t.Fatalf("Publish USD: %v", err)
	}
	if err := scores.Publish(ctx, models.AssetScore{Asset: "EUR", Version: 1, AsOf: now.Add(-4 * time.Hour)}); err != nil {
		t.Fatalf("Publish EUR: %v", err)
	}

	checker := NewStalenessChecker(scores, testRegistry(t), time.Hour, 3, WithStalenessClock(fixedClock(now)))
	report := checker.Check(ctx)

	if len(report) != 2 {
		t.Fatalf("report len = %d, want 2", len(report))
	}
	// Sorted by asset: EUR first.
	if report[0].Asset != "EUR" || report[0].Status != models.StalenessCritical {
		t.Errorf("EUR = %+v, want critical", report[0])
	}
	if report[1].Asset != "USD" || report[1].Status != models.StalenessOK {
		t.Errorf("USD = %+v, want ok", report[1])
	}
}

func TestStalenessWarningAndNone(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	scores := repository.NewScoreStore()
	ctx := context.Background()

	if err := scores.Publish(ctx, models.AssetScore{Asset: "USD", Version: 1, AsOf: now.Add(-2 * time.Hour)}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	checker := NewStalenessChecker(scores, testRegistry(t), time.Hour, 3, WithStalenessClock(fixedClock(now)))
	report := checker.Check(ctx)

	for _, entry := range report {
		switch entry.Asset {
		case "USD":
			if entry.Status != models.StalenessWarning {
				t.Errorf("USD = %+v, want warning", entry)
			}
		case "EUR":
			if entry.Status != models.StalenessNone {
				t.Errorf("EUR = %+v, want none (never published)", entry)
			}
			if !entry.AsOf.IsZero() {
				t.Errorf("EUR as_of = %v, want zero", entry.AsOf)
			}
		}
	}
}
