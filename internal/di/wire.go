//go:build wireinject
// +build wireinject

package di

import (
	"StockPulse/pkg/config"
	"StockPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideEventLog,
		ProvideCache,

		// Repositories
		ProvideBadgerStore,
		ProvidePredictionStore,
		ProvidePerformanceStore,
		ProvideArtifactStore,
		ProvidePriceSource,
		ProvideSnapshotStore,
		ProvideNotifier,

		// Domain services and use cases
		ProvideBuilder,
		ProvidePredictor,
		ProvideLifecycle,
		ProvidePipeline,
		ProvideScheduler,
		ProvideFeed,

		// HTTP
		ProvideAPIHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
