// Package entitylock serializes work on a single entity (a source set, a
// render job) across goroutines and, with the Redis implementation, across
// replicas.
package entitylock

import (
	"context"
	"errors"
	"sync"
)

var ErrNotAcquired = errors.New("entity lock not acquired")

type Locker interface {
	// Lock blocks until key is held or ctx ends. The returned func releases it.
	Lock(ctx context.Context, key string) (func(), error)
}

// Key builds the lock key for one entity.
func Key(kind string, id string) string { return "lock:" + kind + ":" + id }

type entry struct {
	ch   chan struct{}
	refs int
}

type local struct {
	mu   sync.Mutex
	keys map[string]*entry
}

// NewLocal returns a process-local keyed mutex.
func NewLocal() Locker {
	return &local{keys: make(map[string]*entry)}
}

func (l *local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.keys[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.keys[key] = e
	}
	e.refs++
	l.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e, false)
		return nil, errors.Join(ErrNotAcquired, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(key, e, true) })
	}, nil
}

func (l *local) release(key string, e *entry, held bool) {
	if held {
		<-e.ch
	}
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.keys, key)
	}
	l.mu.Unlock()
}
