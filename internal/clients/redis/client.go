package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/envutil"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
)

// NewClientFromEnv dials REDIS_ADDR and pings it. It returns (nil, nil)
// when REDIS_ADDR is unset so callers can fall back to in-process locks.
func NewClientFromEnv(log *logger.Logger) (*goredis.Client, error) {
	addr := envutil.String("REDIS_ADDR", "", log)
	if addr == "" {
		return nil, nil
	}
	return NewClient(addr, envutil.String("REDIS_PASSWORD", "", nil), envutil.Int("REDIS_DB", 0, log))
}

func NewClient(addr, password string, db int) (*goredis.Client, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
