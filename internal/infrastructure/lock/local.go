// Package lock holds the in-process Locker used when Redis is not configured.
// It only serializes requests inside one process.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/99minutos/shipment-legs/internal/core/domain"
)

type entry struct {
	sem  chan struct{}
	refs int
}

// LocalLocker serializes work per key within the process.
type LocalLocker struct {
	mu   sync.Mutex
	keys map[string]*entry
	wait time.Duration
}

func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{keys: make(map[string]*entry), wait: wait}
}

// Lock waits up to the configured wait for key. Entries are dropped once no
// goroutine holds or waits for them.
func (l *LocalLocker) Lock(ctx context.Context, key string) (func(), error) {
	e := l.acquireEntry(key)

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case e.sem <- struct{}{}:
	case <-ctx.Done():
		l.releaseEntry(key, e)
		return nil, ctx.Err()
	case <-timer.C:
		l.releaseEntry(key, e)
		return nil, fmt.Errorf("%w: %s is busy", domain.ErrConcurrentModification, key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.sem
			l.releaseEntry(key, e)
		})
	}, nil
}

func (l *LocalLocker) acquireEntry(key string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.keys[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		l.keys[key] = e
	}
	e.refs++
	return e
}

func (l *LocalLocker) releaseEntry(key string, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.keys, key)
	}
}

// size reports how many keys are tracked.
func (l *LocalLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}
