package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/eduvideo-backend/internal/platform/entitylock"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
)

var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

type locker struct {
	rdb  goredis.UniversalClient
	ttl  time.Duration
	poll time.Duration
	log  *logger.Logger
}

// NewLocker returns a lease-based lock. The lease expires after ttl so a
// crashed holder cannot wedge an entity forever.
func NewLocker(rdb goredis.UniversalClient, ttl time.Duration, log *logger.Logger) entitylock.Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &locker{
		rdb:  rdb,
		ttl:  ttl,
		poll: 50 * time.Millisecond,
		log:  log.With("service", "RedisLocker"),
	}
}

func (l *locker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, errors.Join(entitylock.ErrNotAcquired, ctx.Err())
			}
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		t := time.NewTimer(l.poll)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, errors.Join(entitylock.ErrNotAcquired, ctx.Err())
		case <-t.C:
		}
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.rdb, []string{key}, token).Err(); err != nil && !errors.Is(err, goredis.Nil) {
			l.log.Warn("redis unlock failed", "key", key, "error", err)
		}
	}, nil
}
