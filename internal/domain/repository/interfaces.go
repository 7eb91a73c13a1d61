package repository

import (
	"context"
	"time"

	"MacroPulse/internal/domain/models"
)

// EventStore is the authoritative store of accepted indicator events,
// deduplicated on the natural event key.
type EventStore interface {
	// Upsert stores the event if its key is unseen. It reports whether
	// the event was created; a duplicate key is a no-op with created=false.
	Upsert(ctx context.Context, event models.IndicatorEvent) (created bool, err error)

	// Exists reports whether an event with the given key is stored.
	Exists(ctx context.Context, key models.EventKey) (bool, error)

	// Snapshot returns a point-in-time copy of all events observed at or
	// before cutoff, sorted by indicator key then observed time. Later
	// writes never leak into a returned snapshot.
	Snapshot(ctx context.Context, cutoff time.Time) ([]models.IndicatorEvent, error)
}

// EventArchive is an append-only durable log of accepted events, used for
// replay after restart. Archive writes are best-effort and never block
// ingestion.
type EventArchive interface {
	Append(ctx context.Context, events []models.IndicatorEvent) error
	ReadRange(ctx context.Context, from, to time.Time) ([]models.IndicatorEvent, error)
	Health(ctx context.Context) error
	Close() error
}

// ScoreStore holds the latest published score per asset with version
// guarded atomic publish.
type ScoreStore interface {
	// Publish installs the score if its version is strictly greater than
	// the published one, returning models.ErrStaleVersion otherwise.
	Publish(ctx context.Context, score models.AssetScore) error

	// Latest returns the published score for one asset.
	Latest(ctx context.Context, asset string) (models.AssetScore, bool)

	// LatestAll returns all published scores sorted by asset.
	LatestAll(ctx context.Context) []models.AssetScore

	// LatestVersion returns the published version for an asset, zero if none.
	LatestVersion(ctx context.Context, asset string) uint64
}

// Metrics records operational measurements.
type Metrics interface {
	RecordIngest(result string)
	RecordError(kind string)
	RecordComposite(asset string, score float64)
	RecordRecompute(asset string, seconds float64)
}

// ScoreNotifier broadcasts newly published scores to downstream consumers.
type ScoreNotifier interface {
	NotifyPublished(ctx context.Context, score models.AssetScore)
}
