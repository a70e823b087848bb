package app

import (
	apphttp "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/http"
	httpH "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/http/handlers"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/observability"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
)

type Handlers struct {
	Health     *httpH.HealthHandler
	Allocation *httpH.AllocationHandler
	Score      *httpH.ScoreHandler
}

func wireHandlers(log *logger.Logger, services Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(),
		Allocation: httpH.NewAllocationHandler(services.Allocation),
		Score:      httpH.NewScoreHandler(services.Allocation),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers) *apphttp.Server {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.ServiceName
	}
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:               log,
		Metrics:           metrics,
		ServiceName:       serviceName,
		CORSOrigins:       cfg.CORSOrigins,
		AllocationHandler: handlers.Allocation,
		ScoreHandler:      handlers.Score,
		HealthHandler:     handlers.Health,
	})
}
