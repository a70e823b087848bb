package app

import (
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/clients/predictor"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/clients/redis"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/observability"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/temporalx"
)

// Clients holds the optional external connections. Each is nil when its
// environment is not configured.
type Clients struct {
	Redis       *goredis.Client
	Predictor   *predictor.Client
	Temporal    temporalsdkclient.Client
	TemporalCfg temporalx.Config
}

func wireClients(log *logger.Logger, metrics *observability.Metrics) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	rdb, err := redis.NewClientFromEnv(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init redis: %w", err)
	}
	out.Redis = rdb

	pred, err := predictor.NewFromEnv(log, metrics)
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init predictor: %w", err)
	}
	out.Predictor = pred

	out.TemporalCfg = temporalx.LoadConfig(log)
	tc, err := temporalx.NewClient(out.TemporalCfg, log)
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init temporal: %w", err)
	}
	out.Temporal = tc

	return out, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.Temporal != nil {
		c.Temporal.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
