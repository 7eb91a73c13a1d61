package usecase

import (
	"context"
	"fmt"
	"time"

	"MacroPulse/internal/domain/models"
	"MacroPulse/internal/domain/repository"
	"MacroPulse/internal/services/mapping"
	applogger "MacroPulse/pkg/logger"
	"MacroPulse/pkg/util"
)

// Ingest outcome labels for metrics.
const (
	resultAccepted  = "accepted"
	resultDuplicate = "duplicate"
	resultRejected  = "rejected"
)

// IngestorOption configures Ingestor.
type IngestorOption func(*Ingestor)

// WithInputBound sets the accepted raw score range.
func WithInputBound(bound float64) IngestorOption {
	return func(i *Ingestor) {
		i.inputBound = bound
	}
}

// WithFutureSkew sets how far ahead of the wall clock observed_at may lie.
func WithFutureSkew(skew time.Duration) IngestorOption {
	return func(i *Ingestor) {
		i.futureSkew = skew
	}
}

// WithArchive attaches a durable archive for accepted events.
func WithArchive(archive repository.EventArchive) IngestorOption {
	return func(i *Ingestor) {
		i.archive = archive
	}
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) IngestorOption {
	return func(i *Ingestor) {
		i.now = now
	}
}

// Ingestor validates raw indicator records, resolves them against the
// active mapping snapshot and commits them to the event store. A batch
// never fails as a whole; every item lands in exactly one result bucket.
type Ingestor struct {
	store      repository.EventStore
	registry   *mapping.Registry
	archive    repository.EventArchive
	metrics    repository.Metrics
	logger     *applogger.Logger
	inputBound float64
	futureSkew time.Duration
	now        func() time.Time
}

// NewIngestor creates an ingestor.
func NewIngestor(store repository.EventStore, registry *mapping.Registry, metrics repository.Metrics, logger *applogger.Logger, opts ...IngestorOption) *Ingestor {
	i := &Ingestor{
		store:      store,
		registry:   registry,
		metrics:    metrics,
		logger:     logger,
		inputBound: 2,
		futureSkew: 5 * time.Minute,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Ingest processes a batch of raw events. With dryRun the identical
// validation, resolution and duplicate classification runs without
// committing anything, so the preview matches what a live call would do.
func (i *Ingestor) Ingest(ctx context.Context, raw []models.RawEvent, dryRun bool) (models.IngestResult, error) {
	result := models.IngestResult{
		Accepted:   []models.IndicatorEvent{},
		Duplicates: []models.RawEvent{},
		Rejected:   []models.RejectedEvent{},
	}

	snap := i.registry.Active()
	ingestedAt := i.now()
	seen := make(map[models.EventKey]bool)

	for _, r := range raw {
		event, err := i.normalize(r, snap, ingestedAt)
		if err != nil {
			result.Rejected = append(result.Rejected, models.RejectedEvent{Input: r, Reason: err.Error()})
			i.record(resultRejected)
			continue
		}

		key := models.KeyOf(event)
		var created bool
		if dryRun {
			exists, err := i.store.Exists(ctx, key)
			if err != nil {
				result.Rejected = append(result.Rejected, models.RejectedEvent{Input: r, Reason: fmt.Sprintf("store error: %v", err)})
				i.record(resultRejected)
				continue
			}
			created = !exists && !seen[key]
			seen[key] = true
		} else {
			created, err = i.store.Upsert(ctx, event)
			if err != nil {
				result.Rejected = append(result.Rejected, models.RejectedEvent{Input: r, Reason: fmt.Sprintf("store error: %v", err)})
				i.record(resultRejected)
				continue
			}
		}

		if !created {
			result.Duplicates = append(result.Duplicates, r)
			i.record(resultDuplicate)
			continue
		}
		result.Accepted = append(result.Accepted, event)
		i.record(resultAccepted)
	}

	if !dryRun && i.archive != nil && len(result.Accepted) > 0 {
		// Archive writes are best-effort and never change the result.
		if err := i.archive.Append(ctx, result.Accepted); err != nil {
			if i.metrics != nil {
				i.metrics.RecordError("archive_append")
			}
			if i.logger != nil {
				i.logger.Warn("event archive append failed",
					applogger.Int("events", len(result.Accepted)),
					applogger.Error(err),
				)
			}
		}
	}

	if i.logger != nil {
		i.logger.Info("ingest batch processed",
			applogger.Bool("dry_run", dryRun),
			applogger.Int("accepted", len(result.Accepted)),
			applogger.Int("duplicates", len(result.Duplicates)),
			applogger.Int("rejected", len(result.Rejected)),
		)
	}
	return result, nil
}

// Restore replays archived events into the store without validation
// against the current clock, preserving their original timestamps.
// Duplicates are skipped silently.
func (i *Ingestor) Restore(ctx context.Context, events []models.IndicatorEvent) (int, error) {
	restored := 0
	for _, ev := range events {
		created, err := i.store.Upsert(ctx, ev)
		if err != nil {
			return restored, fmt.Errorf("restore %s: %w", ev.IndicatorKey, err)
		}
		if created {
			restored++
		}
	}
	return restored, nil
}

func (i *Ingestor) normalize(r models.RawEvent, snap *mapping.Snapshot, ingestedAt time.Time) (models.IndicatorEvent, error) {
	if r.IndicatorKey == "" {
		return models.IndicatorEvent{}, fmt.Errorf("%w: empty indicator_key", models.ErrUnmappedIndicator)
	}

	rule, ok := snap.Resolve(r.IndicatorKey)
	if !ok {
		return models.IndicatorEvent{}, fmt.Errorf("%w: %s", models.ErrUnmappedIndicator, r.IndicatorKey)
	}

	if r.RawScore < -i.inputBound || r.RawScore > i.inputBound {
		return models.IndicatorEvent{}, fmt.Errorf("%w: %.4f outside [%.1f, %.1f]", models.ErrScoreOutOfRange, r.RawScore, -i.inputBound, i.inputBound)
	}

	observedAt, ok := util.ParseTime(r.ObservedAt)
	if !ok {
		return models.IndicatorEvent{}, fmt.Errorf("%w: %q", models.ErrBadTimestamp, r.ObservedAt)
	}
	if observedAt.After(ingestedAt.Add(i.futureSkew)) {
		return models.IndicatorEvent{}, fmt.Errorf("%w: observed_at %s is in the future", models.ErrBadTimestamp, observedAt.Format(time.RFC3339))
	}

	return models.IndicatorEvent{
		IndicatorKey: r.IndicatorKey,
		Asset:        rule.Asset,
		RawScore:     r.RawScore,
		ObservedAt:   observedAt.UTC(),
		IngestedAt:   ingestedAt.UTC(),
		SourceID:     r.SourceID,
	}, nil
}

func (i *Ingestor) record(result string) {
	if i.metrics != nil {
		i.metrics.RecordIngest(result)
	}
}
