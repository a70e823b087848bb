package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/http/handlers"
	httpMW "github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/http/middleware"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/observability"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins string

	AllocationHandler *httpH.AllocationHandler
	ScoreHandler      *httpH.ScoreHandler
	HealthHandler     *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Allocation
		if cfg.AllocationHandler != nil {
			api.POST("/allocations/run", cfg.AllocationHandler.RunBatch)
			api.GET("/allocations/batches/:batchId", cfg.AllocationHandler.GetBatch)
			api.POST("/allocations/dropout", cfg.AllocationHandler.Dropout)
			api.POST("/allocations/:id/accept", cfg.AllocationHandler.Accept)
			api.POST("/allocations/:id/reject", cfg.AllocationHandler.Reject)
		}

		// Explainability + ML
		if cfg.ScoreHandler != nil {
			api.POST("/score", cfg.ScoreHandler.Score)
			api.GET("/ml/status", cfg.ScoreHandler.MLStatus)
		}
	}

	return r
}
