//go:build wireinject
// +build wireinject

package di

import (
	"PolyPulse/pkg/config"
	"PolyPulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideCacheStore,
		ProvideFeedClient,
		ProvideKafkaProducer,
		ProvideArchiver,

		// Domain services
		ProvideFeedAggregator,
		ProvideMarketClient,
		ProvideSpikeDetector,
		ProvideStream,

		// Use cases and HTTP surface
		ProvideRefresher,
		ProvideDashboardHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
