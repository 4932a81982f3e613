package services

import (
	"context"

	"github.com/yungbote/eduvideo-backend/internal/platform/logger"
	"github.com/yungbote/eduvideo-backend/internal/realtime"
	"github.com/yungbote/eduvideo-backend/internal/realtime/bus"
)

type SSEEmitter interface {
	Emit(ctx context.Context, msg realtime.SSEMessage)
}

type HubEmitter struct{ Hub *realtime.SSEHub }

func (e *HubEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	e.Hub.Broadcast(msg)
}

// BusEmitter publishes through the bus so every replica's hub sees the event.
type BusEmitter struct {
	Bus bus.Bus
	Log *logger.Logger
}

func (e *BusEmitter) Emit(ctx context.Context, msg realtime.SSEMessage) {
	if err := e.Bus.Publish(ctx, msg); err != nil && e.Log != nil {
		e.Log.Warn("event publish failed", "channel", msg.Channel, "event", msg.Event, "error", err)
	}
}

type nopEmitter struct{}

func (nopEmitter) Emit(context.Context, realtime.SSEMessage) {}
