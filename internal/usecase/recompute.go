package usecase

import (
	"context"
	"sync"
	"time"

	"MacroPulse/internal/domain/models"
	"MacroPulse/internal/domain/repository"
	"MacroPulse/internal/domain/service"
	"MacroPulse/internal/services/mapping"
	"MacroPulse/internal/services/scoring"
	applogger "MacroPulse/pkg/logger"
)

// CoordinatorOption configures Coordinator.
type CoordinatorOption func(*Coordinator)

// WithNotifier attaches a score-update notifier.
func WithNotifier(n repository.ScoreNotifier) CoordinatorOption {
	return func(c *Coordinator) {
		c.notifier = n
	}
}

// WithCoordinatorClock overrides the wall clock, for tests.
func WithCoordinatorClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) {
		c.now = now
	}
}

// Coordinator orchestrates recompute passes: it fixes one cutoff and one
// registry snapshot per call, computes assets in parallel with per-asset
// isolation, and publishes each result atomically with a strictly
// increasing version. Concurrent passes touching the same asset are
// serialized by a per-asset mutex.
type Coordinator struct {
	events     repository.EventStore
	scores     repository.ScoreStore
	registry   *mapping.Registry
	engine     service.Engine
	normalizer *scoring.Normalizer
	metrics    repository.Metrics
	notifier   repository.ScoreNotifier
	logger     *applogger.Logger
	now        func() time.Time

	mu         sync.Mutex
	assetLocks map[string]*sync.Mutex
}

// NewCoordinator creates a recompute coordinator.
func NewCoordinator(
	events repository.EventStore,
	scores repository.ScoreStore,
	registry *mapping.Registry,
	engine service.Engine,
	normalizer *scoring.Normalizer,
	metrics repository.Metrics,
	logger *applogger.Logger,
	opts ...CoordinatorOption,
) *Coordinator {
	c := &Coordinator{
		events:     events,
		scores:     scores,
		registry:   registry,
		engine:     engine,
		normalizer: normalizer,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
		assetLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Recompute runs one pass with the current time as the shared cutoff.
// An empty asset list means every asset in the active mapping snapshot.
func (c *Coordinator) Recompute(ctx context.Context, assets []string) (models.RecomputeSummary, error) {
	return c.RecomputeAt(ctx, assets, c.now())
}

// RecomputeAt runs one pass with an explicit cutoff. All assets in the
// pass share the cutoff, the event snapshot and the registry snapshot;
// events ingested after the snapshot is taken wait for the next pass.
func (c *Coordinator) RecomputeAt(ctx context.Context, assets []string, cutoff time.Time) (models.RecomputeSummary, error) {
	snap := c.registry.Active()
	if len(assets) == 0 {
		assets = snap.Assets()
	}

	events, err := c.events.Snapshot(ctx, cutoff)
	if err != nil {
		return models.RecomputeSummary{}, err
	}

	outcomes := make([]models.AssetOutcome, len(assets))
	var wg sync.WaitGroup
	for idx, asset := range assets {
		wg.Add(1)
		go func(idx int, asset string) {
			defer wg.Done()
			outcomes[idx] = c.recomputeAsset(ctx, asset, events, snap, cutoff)
		}(idx, asset)
	}
	wg.Wait()

	if c.logger != nil {
		failures := 0
		for _, o := range outcomes {
			if o.Error != "" {
				failures++
			}
		}
		c.logger.Info("recompute pass finished",
			applogger.Time("cutoff", cutoff),
			applogger.String("registry_version", snap.Version()),
			applogger.Int("assets", len(assets)),
			applogger.Int("failures", failures),
		)
	}

	return models.RecomputeSummary{Cutoff: cutoff, Outcomes: outcomes}, nil
}

// recomputeAsset computes and publishes one asset. A failure here never
// touches the asset's previously published score.
func (c *Coordinator) recomputeAsset(ctx context.Context, asset string, events []models.IndicatorEvent, rules service.RuleSet, cutoff time.Time) models.AssetOutcome {
	lock := c.lockFor(asset)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	score, err := c.engine.Compute(asset, events, rules, cutoff)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordError("compute")
		}
		if c.logger != nil {
			c.logger.Error("asset compute failed",
				applogger.String("asset", asset),
				applogger.Error(err),
			)
		}
		return models.AssetOutcome{Asset: asset, Error: err.Error()}
	}

	score.Composite = c.normalizer.ToExternal(score.Composite)
	score.Scale = c.normalizer.Scale()
	score.Version = c.scores.LatestVersion(ctx, asset) + 1
	score.ComputedAt = c.now().UTC()

	if err := c.scores.Publish(ctx, score); err != nil {
		if c.metrics != nil {
			c.metrics.RecordError("publish")
		}
		return models.AssetOutcome{Asset: asset, Error: err.Error()}
	}

	if c.metrics != nil {
		c.metrics.RecordRecompute(asset, time.Since(start).Seconds())
		c.metrics.RecordComposite(asset, score.Composite)
	}
	if c.notifier != nil {
		c.notifier.NotifyPublished(ctx, score)
	}
	return models.AssetOutcome{Asset: asset, Version: score.Version}
}

func (c *Coordinator) lockFor(asset string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.assetLocks[asset]
	if !ok {
		lock = &sync.Mutex{}
		c.assetLocks[asset] = lock
	}
	return lock
}
