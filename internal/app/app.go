package app

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/eduvideo-backend/internal/data/db"
	apphttp "github.com/yungbote/eduvideo-backend/internal/http"
	"github.com/yungbote/eduvideo-backend/internal/observability"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
	"github.com/yungbote/eduvideo-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	SSEHub   *realtime.SSEHub
	Metrics  *observability.Metrics
	Server   *apphttp.Server

	pg           *db.PostgresService
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	loadDotEnv()
	cfg := LoadConfig()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "eduvideo",
		Environment: cfg.Env,
		Version:     cfg.Version,
	})
	metrics := observability.Init(log)

	pg, err := db.NewPostgresService(cfg.Postgres, log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	theDB := pg.DB()
	if err := db.AutoMigrateAll(theDB); err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	if err := db.EnsureIndexes(theDB); err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, fmt.Errorf("postgres indexes: %w", err)
	}

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = pg.Close()
		log.Sync()
		return nil, err
	}

	hub := realtime.NewSSEHub(log)
	reposet := wireRepos(theDB, log)
	serviceset, err := wireServices(theDB, log, cfg, reposet, clients)
	if err != nil {
		clients.Close()
		_ = pg.Close()
		log.Sync()
		return nil, err
	}

	handlers := wireHandlers(log, theDB, serviceset, hub)
	middleware := wireMiddleware(log, cfg)
	server := wireServer(log, cfg, metrics, handlers, middleware)

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		SSEHub:       hub,
		Metrics:      metrics,
		Server:       server,
		pg:           pg,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches background work: the event forwarder into the SSE hub,
// the optional Temporal worker and the metrics collectors.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if err := a.Clients.Bus.StartForwarder(ctx, a.SSEHub.Broadcast); err != nil {
		return fmt.Errorf("start event forwarder: %w", err)
	}
	if a.Services.TemporalWorker != nil {
		if err := a.Services.TemporalWorker.Start(ctx); err != nil {
			return fmt.Errorf("start temporal worker: %w", err)
		}
	}
	a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
	if a.Clients.Redis != nil {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
	}
	return nil
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return errors.New("app not initialized")
	}
	addr := ":" + a.Cfg.Port
	a.Log.Info("http server listening", "addr", addr)
	return a.Server.Run(addr)
}

func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if err := a.Server.Shutdown(ctx); err != nil {
		a.Log.Warn("http shutdown", "error", err)
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.otelShutdown != nil {
		if err := a.otelShutdown(ctx); err != nil {
			a.Log.Warn("otel shutdown", "error", err)
		}
	}
	a.Clients.Close()
	if a.pg != nil {
		_ = a.pg.Close()
	}
	a.Log.Sync()
}
