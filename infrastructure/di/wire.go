//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"outline-backend/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideDomainConfig,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideProjectRepository,
	ProvideEventPublisher,
	ProvideChangeNotifier,
	ProvideMetrics,
	ProvideTracer,
	ProvideInMemoryCache,
	ProvideJWTValidator,
	ProvideWorkspaceRegistry,
	ProvideCommandBus,
	ProvideQueryBus,
	wire.Struct(new(Container), "*"),
)

// InitializeContainerWire creates a fully wired container via wire codegen
func InitializeContainerWire(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
