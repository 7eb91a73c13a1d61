package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "MacroPulse/internal/domain/repository"
	mid "MacroPulse/internal/middleware"
	"MacroPulse/internal/services/mapping"
	"MacroPulse/internal/usecase"
	"MacroPulse/pkg/config"
	xhttp "MacroPulse/pkg/http"
	pkgkafka "MacroPulse/pkg/kafka"
	applogger "MacroPulse/pkg/logger"
)

// App encapsulates the application lifecycle: mapping bootstrap, archive
// replay, Kafka intake, scheduled recompute and the HTTP server.
type App struct {
	cfg         *config.Config
	l           *applogger.Logger
	handlers    xhttp.Handlers
	registry    *mapping.Registry
	ingestor    *usecase.Ingestor
	coordinator *usecase.Coordinator
	buffer      *mid.IngestBuffer
	consumer    *pkgkafka.Consumer
	kh          *usecase.KafkaEventsHandler
	producer    *pkgkafka.Producer
	archive     domrepo.EventArchive
	httpServer  *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	handlers xhttp.Handlers,
	registry *mapping.Registry,
	ingestor *usecase.Ingestor,
	coordinator *usecase.Coordinator,
	buffer *mid.IngestBuffer,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaEventsHandler,
	producer *pkgkafka.Producer,
	archive domrepo.EventArchive,
) *App {
	return &App{
		cfg:         cfg,
		l:           l,
		handlers:    handlers,
		registry:    registry,
		ingestor:    ingestor,
		coordinator: coordinator,
		buffer:      buffer,
		consumer:    consumer,
		kh:          kh,
		producer:    producer,
		archive:     archive,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The service is useless without an active rule set; a bad mapping
	// file at boot is fatal, unlike at reload time.
	snap, err := a.registry.ReloadFromFile(a.cfg.Mapping.Path)
	if err != nil {
		a.l.Error("mapping bootstrap failed", applogger.Error(err))
		return err
	}
	a.l.Info("mapping loaded",
		applogger.String("version", snap.Version()),
		applogger.Int("rules", snap.Size()),
	)

	if a.archive != nil && a.cfg.ClickHouse.ReplayOnStart {
		a.replayArchive(ctx)
	}

	if a.consumer != nil && a.kh != nil {
		a.buffer.Start()
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.l.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.l.Info("kafka intake started", applogger.String("topic", a.kh.Topic()))
	}

	if a.cfg.Refresh.Interval > 0 {
		go a.refreshLoop(ctx)
		a.l.Info("scheduled refresh enabled", applogger.Duration("interval", a.cfg.Refresh.Interval))
	}

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	a.httpServer = xhttp.NewServer(a.handlers,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)
	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.l.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// replayArchive restores archived events into the authoritative store.
func (a *App) replayArchive(ctx context.Context) {
	events, err := a.archive.ReadRange(ctx, time.Time{}, time.Now())
	if err != nil {
		a.l.Warn("archive replay failed", applogger.Error(err))
		return
	}
	restored, err := a.ingestor.Restore(ctx, events)
	if err != nil {
		a.l.Warn("archive restore incomplete",
			applogger.Int("restored", restored),
			applogger.Error(err),
		)
		return
	}
	a.l.Info("archive replayed",
		applogger.Int("archived", len(events)),
		applogger.Int("restored", restored),
	)
}

// refreshLoop invokes a full recompute on the configured interval. The
// core never schedules itself; this ticker is the external invoker.
func (a *App) refreshLoop(ctx context.Context) {
	ticker := time.NewTicker(a.cfg.Refresh.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			summary, err := a.coordinator.Recompute(ctx, nil)
			if err != nil {
				a.l.Error("scheduled recompute failed", applogger.Error(err))
				continue
			}
			a.l.Debug("scheduled recompute done",
				applogger.Int("assets", len(summary.Outcomes)),
			)
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.l.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.buffer != nil {
		if err := a.buffer.Stop(shutdownCtx); err != nil {
			a.l.Warn("ingest buffer stop error", applogger.Error(err))
		}
	}
	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			a.l.Warn("archive close error", applogger.Error(err))
		}
	}
	a.l.Info("shutdown complete")
	return nil
}
