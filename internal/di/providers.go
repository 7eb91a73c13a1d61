package di

import (
	"context"
	"fmt"
	"time"

	"MacroPulse/internal/domain/models"
	domrepo "MacroPulse/internal/domain/repository"
	"MacroPulse/internal/handler/api"
	"MacroPulse/internal/handler/ws"
	mid "MacroPulse/internal/middleware"
	internalrepo "MacroPulse/internal/repository"
	icache "MacroPulse/internal/service/cache"
	"MacroPulse/internal/services/mapping"
	"MacroPulse/internal/services/scoring"
	"MacroPulse/internal/usecase"
	pkgch "MacroPulse/pkg/clickhouse"
	"MacroPulse/pkg/config"
	xhttp "MacroPulse/pkg/http"
	pkgkafka "MacroPulse/pkg/kafka"
	applogger "MacroPulse/pkg/logger"
	"MacroPulse/pkg/metrics"
	"MacroPulse/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideRegistry creates the mapping registry.
func ProvideRegistry(cfg *config.Config, l *applogger.Logger) *mapping.Registry {
	return mapping.NewRegistry(l,
		mapping.WithWeightTotal(cfg.Mapping.PillarWeightTotal, cfg.Mapping.PillarWeightTolerance),
	)
}

// ProvideEventStore creates the authoritative in-memory event store.
func ProvideEventStore() domrepo.EventStore {
	return internalrepo.NewMemoryEventStore()
}

// ProvideScoreStore creates the published score store.
func ProvideScoreStore() domrepo.ScoreStore {
	return internalrepo.NewScoreStore()
}

// ProvideClickHouseClient creates a ClickHouse client with the archive
// schema, or nil when the archive is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.ArchiveSchema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideEventArchive creates the durable event archive, nil when the
// ClickHouse client is not configured.
func ProvideEventArchive(client *pkgch.Client, cfg *config.Config, l *applogger.Logger) domrepo.EventArchive {
	if client == nil {
		return nil
	}
	return internalrepo.NewCHEventArchive(client, cfg.ClickHouse.Database, l)
}

// ProvideKafkaProducer creates a Kafka producer, nil when Kafka is
// disabled or no scores topic is configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.ScoresTopic == "" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer, nil when Kafka is disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideScoreFeed creates the websocket score feed.
func ProvideScoreFeed(l *applogger.Logger) *ws.ScoreFeed {
	return ws.NewScoreFeed(l)
}

// fanoutNotifier fans a publish notification out to several sinks.
type fanoutNotifier []domrepo.ScoreNotifier

func (f fanoutNotifier) NotifyPublished(ctx context.Context, score models.AssetScore) {
	for _, n := range f {
		n.NotifyPublished(ctx, score)
	}
}

// ProvideScoreNotifier combines the websocket feed and the optional
// Kafka score-updates producer.
func ProvideScoreNotifier(feed *ws.ScoreFeed, producer *pkgkafka.Producer, cfg *config.Config, l *applogger.Logger) domrepo.ScoreNotifier {
	notifiers := []domrepo.ScoreNotifier{feed}
	if producer != nil {
		notifiers = append(notifiers, internalrepo.NewKafkaScoreNotifier(producer, cfg.Kafka.ScoresTopic, l))
	}
	return fanoutNotifier(notifiers)
}

// ProvideEngine creates the aggregation engine.
func ProvideEngine(cfg *config.Config) *scoring.Engine {
	return scoring.NewEngine(scoring.WithBounds(cfg.Scoring.PillarBound, cfg.Scoring.InternalBound))
}

// ProvideNormalizer creates the score normalizer.
func ProvideNormalizer(cfg *config.Config) *scoring.Normalizer {
	return scoring.NewNormalizer(cfg.Scoring.InternalBound, cfg.Scoring.ExternalBound, cfg.Scoring.Precision)
}

// ProvideIngestor creates the ingestion bridge.
func ProvideIngestor(
	store domrepo.EventStore,
	registry *mapping.Registry,
	m domrepo.Metrics,
	archive domrepo.EventArchive,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.Ingestor {
	opts := []usecase.IngestorOption{
		usecase.WithInputBound(cfg.Scoring.InputBound),
		usecase.WithFutureSkew(cfg.Scoring.FutureSkew),
	}
	if archive != nil {
		opts = append(opts, usecase.WithArchive(archive))
	}
	return usecase.NewIngestor(store, registry, m, l, opts...)
}

// ProvideCoordinator creates the recompute coordinator.
func ProvideCoordinator(
	store domrepo.EventStore,
	scores domrepo.ScoreStore,
	registry *mapping.Registry,
	engine *scoring.Engine,
	normalizer *scoring.Normalizer,
	m domrepo.Metrics,
	notifier domrepo.ScoreNotifier,
	l *applogger.Logger,
) *usecase.Coordinator {
	return usecase.NewCoordinator(store, scores, registry, engine, normalizer, m, l,
		usecase.WithNotifier(notifier),
	)
}

// ProvideStalenessChecker creates the staleness checker.
func ProvideStalenessChecker(scores domrepo.ScoreStore, registry *mapping.Registry, cfg *config.Config) *usecase.StalenessChecker {
	return usecase.NewStalenessChecker(scores, registry,
		cfg.Refresh.ExpectedInterval, int(cfg.Refresh.CriticalThreshold))
}

// ProvideIngestBuffer creates the Kafka intake buffer.
func ProvideIngestBuffer(ingestor *usecase.Ingestor, cfg *config.Config, l *applogger.Logger) *mid.IngestBuffer {
	return mid.NewIngestBuffer(ingestor, l,
		mid.WithBatchSize(cfg.Kafka.Intake.BatchSize),
		mid.WithFlushInterval(cfg.Kafka.Intake.FlushInterval),
	)
}

// ProvideKafkaEventsHandler bridges the raw events topic into the buffer.
func ProvideKafkaEventsHandler(buffer *mid.IngestBuffer, cfg *config.Config) *usecase.KafkaEventsHandler {
	return usecase.NewKafkaEventsHandler(cfg.Kafka.EventsTopic, buffer)
}

// ProvideCache creates the serving-layer response cache, nil when
// disabled.
func ProvideCache(cfg *config.Config) icache.BytesCache {
	if !cfg.Cache.Enabled {
		return nil
	}
	if cfg.Cache.Redis.Enabled {
		return icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
	}
	return icache.NewTTLCache()
}

// ProvideHandlers assembles the HTTP handler set.
func ProvideHandlers(
	l *applogger.Logger,
	ingestor *usecase.Ingestor,
	coordinator *usecase.Coordinator,
	registry *mapping.Registry,
	staleness *usecase.StalenessChecker,
	scores domrepo.ScoreStore,
	archive domrepo.EventArchive,
	respCache icache.BytesCache,
	feed *ws.ScoreFeed,
	cfg *config.Config,
) xhttp.Handlers {
	heatmap := api.NewHeatmapHandler(l, scores)
	if respCache != nil {
		heatmap.SetCache(respCache, cfg.Cache.TTL)
	}

	admin := api.NewAdminHandler(l, coordinator, registry, staleness, cfg.Mapping.Path)
	if archive != nil {
		admin.SetArchive(archive)
	}

	return xhttp.Handlers{
		api.NewEventsHandler(l, ingestor),
		heatmap,
		admin,
		feed,
	}
}

// ProvideApp creates the application server.
func ProvideApp(
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
) *server.App {
	return server.New(cfg, l, handlers, registry, ingestor, coordinator, buffer, consumer, kh, producer, archive)
}
