package app

import (
	"context"
	"fmt"
	"os"

	"gorm.io/gorm"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/data/db"
	apphttp "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/http"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/observability"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/realtime"
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

	store        *db.PostgresService
	shutdownOTel func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}

	shutdownOTel := observability.InitOTel(ctx, log, cfg.Otel)
	metrics := observability.Init(log)

	store, err := openStore(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	theDB := store.DB()
	if cfg.AutoMigrate {
		if err := db.AutoMigrateAll(theDB); err != nil {
			_ = store.Close()
			log.Sync()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}

	clients, err := wireClients(log, metrics)
	if err != nil {
		_ = store.Close()
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log, metrics)

	serviceset, err := wireServices(log, cfg, metrics, reposet, clients)
	if err != nil {
		clients.Close()
		_ = store.Close()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, serviceset)
	server := wireServer(log, cfg, metrics, handlerset)

	return &App{
		Log:          log,
		DB:           theDB,
		Server:       server,
		Cfg:          cfg,
		Metrics:      metrics,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		store:        store,
		shutdownOTel: shutdownOTel,
	}, nil
}

func openStore(log *logger.Logger, cfg Config) (*db.PostgresService, error) {
	if cfg.SQLitePath != "" {
		s, err := db.NewSQLiteService(cfg.SQLitePath, log)
		if err != nil {
			return nil, fmt.Errorf("init sqlite: %w", err)
		}
		return s, nil
	}
	s, err := db.NewPostgresService(db.DSN(log), log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	return s, nil
}

// Start launches the background runners: metrics, event forwarding, the
// batch schedule and the Temporal worker.
func (a *App) Start() error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Metrics != nil {
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
		a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB)
		a.Metrics.StartPoolCollector(ctx, a.Log, a.DB)
		if a.Clients.Redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
		}
	}

	if a.Services.Bus != nil {
		eventLog := a.Log.With("component", "AllocationEvents")
		if err := a.Services.Bus.StartForwarder(ctx, func(ev realtime.Event) {
			eventLog.Info("Allocation event", "type", ev.Type, "event_id", ev.ID, "batch_id", ev.BatchID)
		}); err != nil {
			return fmt.Errorf("start event forwarder: %w", err)
		}
	}

	if a.Services.TemporalWorker != nil {
		if err := a.Services.TemporalWorker.Start(ctx); err != nil {
			return fmt.Errorf("start temporal worker: %w", err)
		}
	}

	if a.Services.Scheduler != nil {
		a.Services.Scheduler.Start()
	}
	return nil
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := ":" + a.Cfg.Port
	a.Log.Info("HTTP server listening", "addr", addr)
	return a.Server.Run(addr)
}

// Close drains the HTTP server and background runners, then releases
// connections.
func (a *App) Close(ctx context.Context) {
	if a == nil {
		return
	}
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			a.Log.Warn("HTTP shutdown failed", "error", err)
		}
	}
	if a.Services.Scheduler != nil {
		a.Services.Scheduler.Stop(ctx)
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.Bus != nil {
		_ = a.Services.Bus.Close()
	}
	a.Clients.Close()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.Log.Warn("Database close failed", "error", err)
		}
	}
	if a.shutdownOTel != nil {
		if err := a.shutdownOTel(ctx); err != nil {
			a.Log.Warn("OTel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
