package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"outline-backend/application/commands"
	commandbus "outline-backend/application/commands/bus"
	commandhandlers "outline-backend/application/commands/handlers"
	"outline-backend/application/ports"
	"outline-backend/application/queries"
	querybus "outline-backend/application/queries/bus"
	queryhandlers "outline-backend/application/queries/handlers"
	"outline-backend/application/services"
	domainconfig "outline-backend/domain/config"
	"outline-backend/infrastructure/config"
	"outline-backend/infrastructure/messaging/eventbridge"
	"outline-backend/infrastructure/messaging/websocket"
	dynamopersist "outline-backend/infrastructure/persistence/dynamodb"
	"outline-backend/pkg/auth"
	"outline-backend/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config       *config.Config
	DomainConfig *domainconfig.DomainConfig
	Logger       *zap.Logger
	ProjectRepo  ports.ProjectRepository
	Publisher    ports.EventPublisher
	Notifier     ports.ChangeNotifier
	Registry     *services.WorkspaceRegistry
	CommandBus   *commandbus.CommandBus
	QueryBus     *querybus.QueryBus
	Cache        ports.Cache
	Metrics      *observability.Metrics
	Tracer       *observability.Tracer
	JWTValidator *auth.JWTValidator
}

// InitializeContainer wires the full dependency graph by hand. The wire.go
// injector produces the same graph when regenerated; this path keeps the
// build working without the wire tool.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	awsCfg, err := ProvideAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	domainCfg := ProvideDomainConfig(cfg)
	ddbClient := ProvideDynamoDBClient(awsCfg)
	ebClient := ProvideEventBridgeClient(awsCfg)
	cwClient := ProvideCloudWatchClient(awsCfg)

	repo := ProvideProjectRepository(ddbClient, cfg, logger)
	publisher := ProvideEventPublisher(ebClient, cfg, logger)
	notifier := ProvideChangeNotifier(awsCfg, ddbClient, cfg, logger)
	metrics := ProvideMetrics(cwClient, cfg)
	tracer := ProvideTracer(cfg)
	cache := ProvideInMemoryCache()

	registry := ProvideWorkspaceRegistry(domainCfg, repo, publisher, notifier, metrics, logger)
	cmdBus, err := ProvideCommandBus(registry, repo, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build command bus: %w", err)
	}
	qryBus, err := ProvideQueryBus(registry, repo, cache, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build query bus: %w", err)
	}

	validator, err := ProvideJWTValidator(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT validator: %w", err)
	}

	return &Container{
		Config:       cfg,
		DomainConfig: domainCfg,
		Logger:       logger,
		ProjectRepo:  repo,
		Publisher:    publisher,
		Notifier:     notifier,
		Registry:     registry,
		CommandBus:   cmdBus,
		QueryBus:     qryBus,
		Cache:        cache,
		Metrics:      metrics,
		Tracer:       tracer,
		JWTValidator: validator,
	}, nil
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideDomainConfig loads the business rules for the environment
func ProvideDomainConfig(cfg *config.Config) *domainconfig.DomainConfig {
	return domainconfig.LoadDomainConfig(cfg.Environment)
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideProjectRepository creates the DynamoDB-backed project store
func ProvideProjectRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.ProjectRepository {
	return dynamopersist.NewProjectRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideEventPublisher creates the EventBridge event publisher
func ProvideEventPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventPublisher {
	return eventbridge.NewPublisher(client, cfg.EventBusName, logger)
}

// ProvideChangeNotifier creates the websocket change notifier. Without a
// configured endpoint (local development) notifications are dropped.
func ProvideChangeNotifier(awsCfg aws.Config, db *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.ChangeNotifier {
	if cfg.WebSocketEndpoint == "" {
		return noopNotifier{}
	}
	api := apigatewaymanagementapi.NewFromConfig(awsCfg, func(o *apigatewaymanagementapi.Options) {
		o.BaseEndpoint = aws.String(cfg.WebSocketEndpoint)
	})
	return websocket.NewNotifier(api, db, cfg.ConnectionsTable, logger)
}

// noopNotifier drops notifications when no websocket endpoint is configured
type noopNotifier struct{}

func (noopNotifier) NotifyOutlineChanged(ctx context.Context, projectID string, sequence uint64) error {
	return nil
}

// ProvideMetrics creates the metrics publisher; disabled unless the feature
// flag is on.
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config) *observability.Metrics {
	namespace := fmt.Sprintf("OutlineBackend/%s", cfg.Environment)
	if !cfg.EnableMetrics {
		return observability.NewMetrics(namespace, nil)
	}
	return observability.NewMetrics(namespace, client)
}

// ProvideTracer creates the X-Ray tracer
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer("outline-backend")
}

// ProvideInMemoryCache creates a simple in-memory cache
// In production, this would be Redis or similar
func ProvideInMemoryCache() ports.Cache {
	return NewInMemoryCache()
}

// ProvideJWTValidator creates the bearer-token validator. In development a
// missing secret disables auth rather than failing startup.
func ProvideJWTValidator(cfg *config.Config) (*auth.JWTValidator, error) {
	if cfg.JWTSecret == "" && !cfg.IsProduction() {
		return nil, nil
	}
	return auth.NewJWTValidator(auth.JWTConfig{
		SecretKey: cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
	})
}

// ProvideWorkspaceRegistry creates the per-project workspace registry
func ProvideWorkspaceRegistry(
	domainCfg *domainconfig.DomainConfig,
	repo ports.ProjectRepository,
	publisher ports.EventPublisher,
	notifier ports.ChangeNotifier,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *services.WorkspaceRegistry {
	return services.NewWorkspaceRegistry(domainCfg, services.WorkspaceDeps{
		Repo:      repo,
		Publisher: publisher,
		Notifier:  notifier,
		Metrics:   metrics,
		Logger:    logger,
	})
}

// ProvideCommandBus creates a command bus with every handler registered
func ProvideCommandBus(registry *services.WorkspaceRegistry, repo ports.ProjectRepository, logger *zap.Logger) (*commandbus.CommandBus, error) {
	b := commandbus.NewCommandBus()

	registrations := []struct {
		cmd     commandbus.Command
		handler commandbus.CommandHandler
	}{
		{&commands.AddNoteCommand{}, commandhandlers.NewAddNoteHandler(registry, logger)},
		{&commands.UpdateNoteCommand{}, commandhandlers.NewUpdateNoteHandler(registry, logger)},
		{&commands.DeleteNoteCommand{}, commandhandlers.NewDeleteNoteHandler(registry, logger)},
		{&commands.MoveNoteCommand{}, commandhandlers.NewMoveNoteHandler(registry, logger)},
		{&commands.UndoMoveCommand{}, commandhandlers.NewUndoMoveHandler(registry, logger)},
		{&commands.SaveProjectCommand{}, commandhandlers.NewSaveProjectHandler(registry, logger)},
		{&commands.LoadProjectCommand{}, commandhandlers.NewLoadProjectHandler(registry, logger)},
		{&commands.ImportDocumentCommand{}, commandhandlers.NewImportDocumentHandler(registry, logger)},
		{&commands.DeleteProjectCommand{}, commandhandlers.NewDeleteProjectHandler(registry, repo, logger)},
	}
	for _, reg := range registrations {
		if err := b.Register(reg.cmd, reg.handler); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// ProvideQueryBus creates a query bus with every handler registered. The
// project listing is wrapped in a short-TTL cache.
func ProvideQueryBus(
	registry *services.WorkspaceRegistry,
	repo ports.ProjectRepository,
	cache ports.Cache,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	b := querybus.NewQueryBus()

	listHandler := querybus.QueryHandler(queryhandlers.NewListProjectsHandler(repo, logger))
	if cache != nil {
		listHandler = querybus.NewCachingMiddleware(cacheAdapter{cache}, 30).Wrap(listHandler)
	}

	registrations := []struct {
		query   querybus.Query
		handler querybus.QueryHandler
	}{
		{&queries.GetOutlineQuery{}, queryhandlers.NewGetOutlineHandler(registry, logger)},
		{&queries.GetUndoStatusQuery{}, queryhandlers.NewGetUndoStatusHandler(registry, logger)},
		{&queries.ExportDocumentQuery{}, queryhandlers.NewExportDocumentHandler(registry, logger)},
		{&queries.ListProjectsQuery{}, listHandler},
	}
	for _, reg := range registrations {
		if err := b.Register(reg.query, reg.handler); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// cacheAdapter narrows ports.Cache to the query bus's cache interface
type cacheAdapter struct {
	inner ports.Cache
}

func (a cacheAdapter) Get(ctx context.Context, key string) (interface{}, bool) {
	return a.inner.Get(ctx, key)
}

func (a cacheAdapter) Set(ctx context.Context, key string, value interface{}, ttl int) error {
	return a.inner.Set(ctx, key, value, ttl)
}
