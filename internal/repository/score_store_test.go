package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"MacroPulse/internal/domain/models"
)

func TestPublishAndLatest(t *testing.T) {
	s := NewScoreStore()
	ctx := context.Background()

	score := models.AssetScore{Asset: "USD", Composite: 0.3, Version: 1, AsOf: time.Now()}
	if err := s.Publish(ctx, score); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	got, ok := s.Latest(ctx, "USD")
	if !ok || got.Version != 1 || got.Composite != 0.3 {
		t.Errorf("Latest = %+v ok=%v", got, ok)
	}
	if v := s.LatestVersion(ctx, "USD"); v != 1 {
		t.Errorf("LatestVersion = %d, want 1", v)
	}
	if v := s.LatestVersion(ctx, "EUR"); v != 0 {
		t.Errorf("LatestVersion for unknown asset = %d, want 0", v)
	}
}

func TestPublishRejectsStaleVersion(t *testing.T) {
	s := NewScoreStore()
	ctx := context.Background()

	if err := s.Publish(ctx, models.AssetScore{Asset: "USD", Composite: 0.5, Version: 3}); err != nil {
		t.Fatalf("Publish v3: %v", err)
	}

	for _, v := range []uint64{3, 2} {
		err := s.Publish(ctx, models.AssetScore{Asset: "USD", Composite: -0.5, Version: v})
		if !errors.Is(err, models.ErrStaleVersion) {
			t.Errorf("Publish v%d: err = %v, want ErrStaleVersion", v, err)
		}
	}

	got, _ := s.Latest(ctx, "USD")
	if got.Composite != 0.5 || got.Version != 3 {
		t.Errorf("published score replaced by stale publish: %+v", got)
	}
}

func TestLatestAllSorted(t *testing.T) {
	s := NewScoreStore()
	ctx := context.Background()

	for _, asset := range []string{"USD", "EUR", "JPY"} {
		if err := s.Publish(ctx, models.AssetScore{Asset: asset, Version: 1}); err != nil {
			t.Fatalf("Publish %s: %v", asset, err)
		}
	}

	all := s.LatestAll(ctx)
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
	for i, want := range []string{"EUR", "JPY", "USD"} {
		if all[i].Asset != want {
			t.Errorf("all[%d] = %s, want %s", i, all[i].Asset, want)
		}
	}
}
