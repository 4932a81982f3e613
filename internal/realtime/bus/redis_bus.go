package bus

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
	"github.com/yungbote/eduvideo-backend/internal/realtime"
)

const defaultRedisChannel = "pipeline-events"

// envelope is the wire form on the pub/sub channel.
type envelope struct {
	Origin  string              `json:"origin"`
	SentAt  time.Time           `json:"sent_at"`
	Message realtime.SSEMessage `json:"message"`
}

type redisBus struct {
	log     *logger.Logger
	rdb     goredis.UniversalClient
	channel string
	origin  string
}

// NewRedisBus publishes pipeline events on one Redis pub/sub channel shared by all replicas.
func NewRedisBus(rdb goredis.UniversalClient, channel string, log *logger.Logger) (Bus, error) {
	switch {
	case log == nil:
		return nil, errors.New("redis bus: logger required")
	case rdb == nil:
		return nil, errors.New("redis bus: client required")
	}
	if channel = strings.TrimSpace(channel); channel == "" {
		channel = defaultRedisChannel
	}
	origin := uuid.NewString()
	return &redisBus{
		log:     log.With("service", "RedisEventBus", "redis_channel", channel, "origin", origin),
		rdb:     rdb,
		channel: channel,
		origin:  origin,
	}, nil
}

func (b *redisBus) Publish(ctx context.Context, msg realtime.SSEMessage) error {
	raw, err := json.Marshal(envelope{Origin: b.origin, SentAt: time.Now().UTC(), Message: msg})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// StartForwarder confirms the subscription before returning, then relays in the background
// until ctx ends.
func (b *redisBus) StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error {
	if onMsg == nil {
		return errors.New("redis bus: onMsg callback required")
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return errors.Join(errors.New("redis bus: subscribe"), err)
	}
	go b.relay(ctx, sub, onMsg)
	return nil
}

func (b *redisBus) relay(ctx context.Context, sub *goredis.PubSub, onMsg func(realtime.SSEMessage)) {
	defer sub.Close()
	in := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case m, open := <-in:
			if !open {
				b.log.Warn("redis subscription closed")
				return
			}
			if m == nil {
				continue
			}
			msg, err := decodeEnvelope([]byte(m.Payload))
			if err != nil {
				b.log.Warn("bad redis event payload", "error", err)
				continue
			}
			onMsg(msg)
		}
	}
}

func decodeEnvelope(raw []byte) (realtime.SSEMessage, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return realtime.SSEMessage{}, err
	}
	if env.Message.Channel == "" {
		return realtime.SSEMessage{}, errors.New("event without channel")
	}
	return env.Message, nil
}

// Close leaves the shared client open; its owner closes it.
func (b *redisBus) Close() error { return nil }
