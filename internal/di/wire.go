//go:build wireinject
// +build wireinject

package di

import (
	"StockCast/pkg/config"
	"StockCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideHTTPClient,

		// Infrastructure
		ProvideHistorySource,
		ProvideSharedCache,
		ProvideArtifactStore,
		ProvideLiveFeed,
		ProvideForecastPublisher,

		// Use cases
		ProvideHistoryLoader,
		ProvideModelRegistryLoader,
		ProvideAligner,
		ProvideDashboard,
		ProvideRefresher,

		// Transport
		ProvideLimiter,
		ProvideDashboardHandler,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
