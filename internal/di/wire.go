//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	drepo "SignalPull/internal/domain/repository"
	"SignalPull/pkg/config"
	"SignalPull/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideKafkaProducer,
		ProvideOutcomeStore,

		// Repositories and sinks
		ProvideSessionStore,
		ProvideSnapshotCache,
		ProvideSignalEventSink,
		ProvideJournal,
		ProvideHub,
		ProvideSinks,

		// Use cases
		ProvideFeed,
		ProvideEngines,

		// Application server
		ProvideRateLimiter,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}

// InitializeSnapshotStore wires a reader for the snapshots a running server
// saved in the shared cache.
func InitializeSnapshotStore(cfg *config.Config) (drepo.SnapshotStore, func(), error) {
	wire.Build(
		ProvideLogger,
		ProvideCache,
		ProvideSnapshotCache,
		ProvideSnapshotStore,
	)
	return nil, nil, nil
}
