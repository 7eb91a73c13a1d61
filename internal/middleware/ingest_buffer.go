package middleware

import (
	"context"
	"sync"
	"time"

	"MacroPulse/internal/domain/models"
	applogger "MacroPulse/pkg/logger"
)

// Sink receives flushed event batches.
type Sink interface {
	Ingest(ctx context.Context, events []models.RawEvent, dryRun bool) (models.IngestResult, error)
}

// BufferOption configures IngestBuffer.
type BufferOption func(*IngestBuffer)

// WithBatchSize sets the flush batch size.
func WithBatchSize(n int) BufferOption {
	return func(b *IngestBuffer) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// WithFlushInterval sets the max time an event waits before flushing.
func WithFlushInterval(d time.Duration) BufferOption {
	return func(b *IngestBuffer) {
		if d > 0 {
			b.interval = d
		}
	}
}

// IngestBuffer sits between the Kafka intake and the ingestor. It
// accumulates raw events and flushes them in batches, either when the
// batch is full or when the flush interval elapses, so a chatty topic
// does not turn into one store round-trip per record.
type IngestBuffer struct {
	sink      Sink
	logger    *applogger.Logger
	batchSize int
	interval  time.Duration

	mu      sync.Mutex
	pending []models.RawEvent
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

// NewIngestBuffer creates a buffer flushing into sink.
func NewIngestBuffer(sink Sink, logger *applogger.Logger, opts ...BufferOption) *IngestBuffer {
	b := &IngestBuffer{
		sink:      sink,
		logger:    logger,
		batchSize: 100,
		interval:  2 * time.Second,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start launches the periodic flusher.
func (b *IngestBuffer) Start() {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	go func() {
		defer close(b.doneCh)
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()
		for {
			select {
			case <-b.stopCh:
				b.Flush(context.Background())
				return
			case <-ticker.C:
				b.Flush(context.Background())
			}
		}
	}()
}

// Stop flushes what is pending and stops the flusher.
func (b *IngestBuffer) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = false
	b.mu.Unlock()

	close(b.stopCh)
	select {
	case <-b.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Add queues events, flushing immediately when the batch fills up.
func (b *IngestBuffer) Add(ctx context.Context, events ...models.RawEvent) {
	b.mu.Lock()
	b.pending = append(b.pending, events...)
	full := len(b.pending) >= b.batchSize
	b.mu.Unlock()

	if full {
		b.Flush(ctx)
	}
}

// Flush commits all pending events to the sink.
func (b *IngestBuffer) Flush(ctx context.Context) {
	b.mu.Lock()
	if len(b.pending) == 0 {
		b.mu.Unlock()
		return
	}
	batch := b.pending
	b.pending = nil
	b.mu.Unlock()

	result, err := b.sink.Ingest(ctx, batch, false)
	if err != nil {
		if b.logger != nil {
			b.logger.Error("buffered ingest flush failed",
				applogger.Int("events", len(batch)),
				applogger.Error(err),
			)
		}
		return
	}
	if b.logger != nil && len(result.Rejected) > 0 {
		b.logger.Warn("buffered ingest rejected events",
			applogger.Int("rejected", len(result.Rejected)),
		)
	}
}

// Pending returns the number of queued events.
func (b *IngestBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
