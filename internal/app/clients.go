package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/eduvideo-backend/internal/clients/aiservice"
	"github.com/yungbote/eduvideo-backend/internal/clients/docregistry"
	redisclient "github.com/yungbote/eduvideo-backend/internal/clients/redis"
	"github.com/yungbote/eduvideo-backend/internal/platform/entitylock"
	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
	"github.com/yungbote/eduvideo-backend/internal/realtime/bus"
	"github.com/yungbote/eduvideo-backend/internal/temporalx"
)

type Clients struct {
	Redis    *goredis.Client
	Bus      bus.Bus
	Locker   entitylock.Locker
	AI       aiservice.Client
	Docs     docregistry.Client
	Temporal temporalsdkclient.Client
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")
	var out Clients

	// Redis: cross-replica locks and event fan-out. Without it, one replica only.
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		rdb, err := redisclient.NewClient(ctx, cfg.Redis)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis: %w", err)
		}
		b, err := bus.NewRedisBus(rdb, cfg.RedisChannel, log)
		if err != nil {
			_ = rdb.Close()
			return Clients{}, fmt.Errorf("init redis event bus: %w", err)
		}
		out.Redis = rdb
		out.Bus = b
		out.Locker = redisclient.NewLocker(rdb, cfg.LockTTL, log)
	} else {
		log.Warn("REDIS_ADDR not set; using in-process locks and event bus")
		out.Bus = bus.NewLocalBus()
		out.Locker = entitylock.NewLocal()
	}

	ai, err := aiservice.NewClient(cfg.AIService, log)
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init ai service client: %w", err)
	}
	out.AI = ai

	docs, err := docregistry.NewClient(cfg.DocRegistry, log)
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init document registry client: %w", err)
	}
	out.Docs = docs

	tc, err := temporalx.NewClient(cfg.Temporal, log)
	if err != nil {
		out.Close()
		return Clients{}, fmt.Errorf("init temporal client: %w", err)
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
	if c.Bus != nil {
		_ = c.Bus.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
