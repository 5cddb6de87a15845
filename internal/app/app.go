package app

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/yungbote/studydesk-backend/internal/data/db"
	"github.com/yungbote/studydesk-backend/internal/data/repos"
	apphttp "github.com/yungbote/studydesk-backend/internal/http"
	"github.com/yungbote/studydesk-backend/internal/observability"
	"github.com/yungbote/studydesk-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	DB       *db.Service
	Metrics  *observability.Metrics
	Clients  Clients
	Repos    repos.Set
	Services Services
	Server   *apphttp.Server

	shutdownTracing func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return NewWithConfig(ctx, cfg)
}

func NewWithConfig(ctx context.Context, cfg Config) (*App, error) {
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	shutdownTracing, err := observability.InitTracing(ctx, log, cfg.TracingConfig())
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	metrics := observability.New()

	database, err := db.Open(cfg.DBOptions(), log)
	if err != nil {
		_ = shutdownTracing(ctx)
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.AutoMigrateAll(database.DB()); err != nil {
		_ = database.Close()
		_ = shutdownTracing(ctx)
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	clients, err := wireClients(log, cfg, metrics)
	if err != nil {
		_ = database.Close()
		_ = shutdownTracing(ctx)
		log.Sync()
		return nil, err
	}

	log.Info("Wiring repos...")
	repoSet := repos.NewSet(database.DB(), log)

	serviceSet, err := wireServices(log, cfg, repoSet, clients, metrics)
	if err != nil {
		_ = clients.Close()
		_ = database.Close()
		_ = shutdownTracing(ctx)
		log.Sync()
		return nil, err
	}

	handlerSet := wireHandlers(log, serviceSet, database, clients.Conversations)
	middleware := wireMiddleware(log, serviceSet)
	server := wireServer(log, cfg, metrics, handlerSet, middleware)

	return &App{
		Log:             log,
		Cfg:             cfg,
		DB:              database,
		Metrics:         metrics,
		Clients:         clients,
		Repos:           repoSet,
		Services:        serviceSet,
		Server:          server,
		shutdownTracing: shutdownTracing,
	}, nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("Server listening", "addr", a.Cfg.Address())
	return a.Server.Run(ctx, a.Cfg.Address(), a.Cfg.ShutdownTimeout)
}

// Close releases clients, the database and the tracer provider. Every step
// runs; failures are aggregated.
func (a *App) Close(ctx context.Context) error {
	if a == nil {
		return nil
	}
	var result error
	if err := a.Clients.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("close database: %w", err))
		}
	}
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			result = multierror.Append(result, fmt.Errorf("shutdown tracing: %w", err))
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
	return result
}
