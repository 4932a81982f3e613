package bus

import (
	"context"
	"fmt"
	"sync"

	"github.com/yungbote/eduvideo-backend/internal/realtime"
)

// Bus fans pipeline events out to every API replica.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	StartForwarder(ctx context.Context, onMsg func(m realtime.SSEMessage)) error
	Close() error
}

type localBus struct {
	mu   sync.RWMutex
	subs []func(realtime.SSEMessage)
}

// NewLocalBus delivers messages synchronously inside this process.
func NewLocalBus() Bus { return &localBus{} }

func (b *localBus) Publish(_ context.Context, msg realtime.SSEMessage) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, fn := range b.subs {
		fn(msg)
	}
	return nil
}

func (b *localBus) StartForwarder(_ context.Context, onMsg func(m realtime.SSEMessage)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}
	b.mu.Lock()
	b.subs = append(b.subs, onMsg)
	b.mu.Unlock()
	return nil
}

func (b *localBus) Close() error { return nil }
