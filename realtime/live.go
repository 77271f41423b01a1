package realtime

import (
	"context"
	"sync"
)

// Fetcher loads the full state of a view.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Live keeps the last successfully fetched state of a view. Every refresh
// replaces the whole state; a failed refresh keeps the previous one.
type Live[T any] struct {
	fetch Fetcher[T]

	mu     sync.RWMutex
	state  T
	loaded bool
	err    error
}

func NewLive[T any](fetch func(ctx context.Context) (T, error)) *Live[T] {
	return &Live[T]{fetch: fetch}
}

// Refresh re-fetches the view. On error the previous state is returned
// together with the error.
func (l *Live[T]) Refresh(ctx context.Context) (T, error) {
	next, err := l.fetch(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
	if err != nil {
		return l.state, err
	}
	l.state = next
	l.loaded = true
	return l.state, nil
}

// Current returns the state and whether any fetch has succeeded yet.
func (l *Live[T]) Current() (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state, l.loaded
}

// Err returns the error of the last refresh, if it failed.
func (l *Live[T]) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

// Run fetches once, then re-fetches after every event until ctx is done or
// events is closed. onUpdate receives each successful state; failures are
// passed to onError and the previous state stays current.
func (l *Live[T]) Run(ctx context.Context, events <-chan Event, onUpdate func(T), onError func(error)) error {
	refresh := func() {
		state, err := l.Refresh(ctx)
		if err != nil {
			if ctx.Err() == nil && onError != nil {
				onError(err)
			}
			return
		}
		onUpdate(state)
	}

	refresh()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-events:
			if !ok {
				return nil
			}
			refresh()
		}
	}
}
