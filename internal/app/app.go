package app

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	dbpkg "github.com/yungbote/budgetvault-backend/internal/data/db"
	apphttp "github.com/yungbote/budgetvault-backend/internal/http"
	"github.com/yungbote/budgetvault-backend/internal/observability"
	"github.com/yungbote/budgetvault-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Server   *apphttp.Server
	Cfg      Config
	Metrics  *observability.Metrics
	Clients  Clients
	Repos    Repos
	Services Services

	dbService    *dbpkg.Service
	otelShutdown func(context.Context) error
}

func New(ctx context.Context) (*App, error) {
	bootLog, err := logger.New("development")
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	cfg, err := LoadConfig(bootLog)
	if err != nil {
		bootLog.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	log = log.With("service_name", cfg.ServiceName)

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		Enabled:     cfg.Otel.Enabled,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Version:     cfg.Version,
		Endpoint:    cfg.Otel.Endpoint,
		Headers:     observability.ParseHeaders(cfg.Otel.Headers),
		Insecure:    cfg.Otel.Insecure,
		SampleRatio: cfg.Otel.SampleRatio,
	})

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.New()
	}

	dbService, err := dbpkg.Open(log, cfg.dbConfig())
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init db: %w", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	theDB := dbService.DB()

	clients, err := wireClients(log, cfg)
	if err != nil {
		_ = dbService.Close()
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet, clients, metrics)
	handlerset := wireHandlers(theDB, log, serviceset)
	middleware := wireMiddleware(log, cfg, serviceset)

	server := apphttp.NewServer(apphttp.RouterConfig{
		Log:             log,
		ServiceName:     otelServiceName(cfg),
		AllowedOrigins:  cfg.AllowedOrigins,
		Metrics:         metrics,
		AuthMiddleware:  middleware.Auth,
		SnapshotHandler: handlerset.Snapshot,
		HealthHandler:   handlerset.Health,
	})

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Metrics:      metrics,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		dbService:    dbService,
		otelShutdown: otelShutdown,
	}, nil
}

// otelServiceName enables the otelgin middleware only when tracing is on.
func otelServiceName(cfg Config) string {
	if !cfg.Otel.Enabled {
		return ""
	}
	return cfg.ServiceName
}

// Run blocks until ctx is cancelled or the HTTP server fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	g, gctx := errgroup.WithContext(ctx)

	a.Metrics.StartDBCollector(gctx, a.Log, a.DB)
	if a.Clients.Redis != nil {
		a.Metrics.StartRedisCollector(gctx, a.Log, a.Clients.Redis)
	}

	g.Go(func() error {
		a.Log.Info("HTTP server listening", "addr", a.Cfg.HTTPAddr)
		return a.Server.Run(gctx, a.Cfg.HTTPAddr, a.Cfg.ShutdownTimeout)
	})
	return g.Wait()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.Cfg.ShutdownTimeout)
		if err := a.otelShutdown(ctx); err != nil && a.Log != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.dbService != nil {
		_ = a.dbService.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
