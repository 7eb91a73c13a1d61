//go:build wireinject
// +build wireinject

package di

import (
	"MacroPulse/pkg/config"
	"MacroPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Core state
		ProvideRegistry,
		ProvideEventStore,
		ProvideScoreStore,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideEventArchive,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCache,

		// Scoring core
		ProvideEngine,
		ProvideNormalizer,

		// Use cases
		ProvideIngestor,
		ProvideCoordinator,
		ProvideStalenessChecker,

		// Intake and notification
		ProvideIngestBuffer,
		ProvideKafkaEventsHandler,
		ProvideScoreFeed,
		ProvideScoreNotifier,

		// Serving layer
		ProvideHandlers,
		ProvideApp,
	)
	return &server.App{}, nil
}
