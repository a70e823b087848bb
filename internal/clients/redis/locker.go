package redis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/modules/allocation"
	"github.com/Ajinkyaa2004/AI-Smart-Intern-Allocator/internal/platform/logger"
)

// Delete the key only if we still own it.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Extend the lease only if we still own it.
const refreshScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`

var ErrLockLost = errors.New("redis lock lost")

type LockerOptions struct {
	Prefix string
	// TTL bounds how long a crashed holder blocks others.
	TTL time.Duration
	// RetryInterval is the poll period while the key is held elsewhere.
	RetryInterval time.Duration
}

// Locker is a cluster-wide allocation.PositionLocker backed by SET NX PX.
// A held lock is refreshed at TTL/3 until released.
type Locker struct {
	rdb     *goredis.Client
	log     *logger.Logger
	opts    LockerOptions
	release *goredis.Script
	refresh *goredis.Script
}

var _ allocation.PositionLocker = (*Locker)(nil)

func NewLocker(rdb *goredis.Client, log *logger.Logger, opts LockerOptions) (*Locker, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if opts.Prefix == "" {
		opts.Prefix = "intern-allocator"
	}
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Second
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 50 * time.Millisecond
	}
	return &Locker{
		rdb:     rdb,
		log:     log.With("service", "RedisLocker"),
		opts:    opts,
		release: goredis.NewScript(releaseScript),
		refresh: goredis.NewScript(refreshScript),
	}, nil
}

func (l *Locker) key(k string) string { return l.opts.Prefix + ":" + k }

func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := l.key(key)
	token := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, redisKey, token, l.opts.TTL).Result()
		if err != nil {
			return func() {}, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return func() {}, ctx.Err()
		case <-time.After(l.opts.RetryInterval):
		}
	}

	stop := make(chan struct{})
	go l.keepAlive(redisKey, token, stop)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := l.release.Run(rctx, l.rdb, []string{redisKey}, token).Err(); err != nil {
				l.log.Warn("redis lock release failed", "key", redisKey, "error", err)
			}
		})
	}, nil
}

func (l *Locker) keepAlive(redisKey, token string, stop <-chan struct{}) {
	t := time.NewTicker(l.opts.TTL / 3)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), l.opts.TTL/3)
			n, err := l.refresh.Run(ctx, l.rdb, []string{redisKey}, token, l.opts.TTL.Milliseconds()).Int64()
			cancel()
			if err != nil {
				l.log.Warn("redis lock refresh failed", "key", redisKey, "error", err)
				continue
			}
			if n == 0 {
				l.log.Error("redis lock lost before release", "key", redisKey, "error", ErrLockLost)
				return
			}
		}
	}
}
