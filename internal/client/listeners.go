package client

import (
	"slices"
	"sync"
)

// Unsubscribe removes a listener. Calling it more than once is harmless.
type Unsubscribe func()

type listeners[T any] struct {
	mu   sync.RWMutex
	next uint64
	fns  map[uint64]func(T)
}

func (l *listeners[T]) add(fn func(T)) Unsubscribe {
	if fn == nil {
		return func() {}
	}

	l.mu.Lock()
	if l.fns == nil {
		l.fns = make(map[uint64]func(T))
	}
	l.next++
	id := l.next
	l.fns[id] = fn
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

// snapshot returns listeners in subscription order.
func (l *listeners[T]) snapshot() []func(T) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]uint64, 0, len(l.fns))
	for id := range l.fns {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]func(T), len(ids))
	for i, id := range ids {
		out[i] = l.fns[id]
	}
	return out
}
