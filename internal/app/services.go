package app

import (
	"fmt"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/clients/redis"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/modules/allocation"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/observability"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/envutil"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/realtime/bus"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/services"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/temporalx/slotfreed"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/temporalx/temporalworker"
)

type Services struct {
	Engine     *allocation.Engine
	Allocation services.AllocationService
	Notifier   services.AllocationNotifier
	Bus        bus.Bus

	// Optional background runners.
	Scheduler      *services.BatchScheduler
	TemporalWorker *temporalworker.Runner
}

func wireServices(log *logger.Logger, cfg Config, metrics *observability.Metrics, reposet Repos, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	scorer := wireScorer(log, cfg, metrics, clients)

	locker, err := wireLocker(log, clients)
	if err != nil {
		return Services{}, err
	}

	eventBus, err := wireBus(log, clients)
	if err != nil {
		return Services{}, err
	}

	engine := allocation.NewEngine(allocation.EngineDeps{
		Store:  reposet.Aggregate,
		Scorer: scorer,
		Locker: locker,
		Config: cfg.Engine,
		Log:    log,
	})

	notifier := services.NewAllocationNotifier(log, eventBus)

	var dispatcher services.DropoutDispatcher
	if clients.Temporal != nil {
		dispatcher = services.NewTemporalDropoutDispatcher(&slotfreed.Dispatcher{
			Client:    clients.Temporal,
			TaskQueue: clients.TemporalCfg.TaskQueue,
		})
	}

	deps := services.AllocationServiceDeps{
		Log:        log,
		Engine:     engine,
		Reader:     services.NewPlacementReader(reposet.Placement),
		Notifier:   notifier,
		Dispatcher: dispatcher,
		Metrics:    metrics,
	}
	if clients.Predictor != nil {
		deps.Predictor = clients.Predictor
	}
	allocSvc, err := services.NewAllocationService(deps)
	if err != nil {
		return Services{}, fmt.Errorf("init allocation service: %w", err)
	}

	scheduler, err := services.NewBatchSchedulerFromEnv(log, allocSvc)
	if err != nil {
		return Services{}, err
	}

	var runner *temporalworker.Runner
	if clients.Temporal != nil && envutil.Bool("TEMPORAL_WORKER_ENABLED", true, log) {
		runner, err = temporalworker.NewRunner(log, clients.Temporal, clients.TemporalCfg, allocSvc)
		if err != nil {
			return Services{}, fmt.Errorf("init temporal worker: %w", err)
		}
	}

	return Services{
		Engine:         engine,
		Allocation:     allocSvc,
		Notifier:       notifier,
		Bus:            eventBus,
		Scheduler:      scheduler,
		TemporalWorker: runner,
	}, nil
}

func wireScorer(log *logger.Logger, cfg Config, metrics *observability.Metrics, clients Clients) allocation.Scorer {
	rule := allocation.RuleBasedScorer{Weights: cfg.Engine.Weights}
	if cfg.Engine.Scorer != allocation.ScorerHybrid {
		return rule
	}
	if clients.Predictor == nil {
		log.Warn("Hybrid scorer requested without PREDICTOR_BASE_URL; using rule scorer")
		return rule
	}
	hybrid := allocation.NewHybridScorer(rule, clients.Predictor, cfg.Engine.MLWeight, cfg.ScorerMLTimeout, log)
	hybrid.OnFallback = metrics.IncScorerFallback
	return hybrid
}

func wireLocker(log *logger.Logger, clients Clients) (allocation.PositionLocker, error) {
	if clients.Redis == nil {
		return allocation.NewLocalLocker(), nil
	}
	l, err := redis.NewLocker(clients.Redis, log, redis.LockerOptions{
		Prefix: envutil.String("REDIS_LOCK_PREFIX", "intern-allocator", log),
		TTL:    envutil.Duration("REDIS_LOCK_TTL", 0, log),
	})
	if err != nil {
		return nil, fmt.Errorf("init redis locker: %w", err)
	}
	return l, nil
}

func wireBus(log *logger.Logger, clients Clients) (bus.Bus, error) {
	if clients.Redis == nil {
		return bus.NewLocalBus(log), nil
	}
	b, err := bus.NewRedisBus(log, clients.Redis, envutil.String("REDIS_CHANNEL", bus.DefaultChannel, log))
	if err != nil {
		return nil, fmt.Errorf("init redis bus: %w", err)
	}
	return b, nil
}
