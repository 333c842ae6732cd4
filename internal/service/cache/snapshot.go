package cache

import (
	"context"
	"sync"
	"time"
)

// LoadFunc produces a fresh value for a Snapshot.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Snapshot memoizes the result of a load (value and error together) until Reload
// or until ttl elapses. Reads share the lock; a reload swaps the value atomically.
type Snapshot[T any] struct {
	mu     sync.RWMutex
	loadMu sync.Mutex
	load   LoadFunc[T]
	ttl    time.Duration
	now    func() time.Time

	v      T
	err    error
	at     time.Time
	loaded bool
}

// NewSnapshot creates a snapshot; ttl <= 0 means the value never expires on its own.
func NewSnapshot[T any](load LoadFunc[T], ttl time.Duration) *Snapshot[T] {
	return &Snapshot[T]{load: load, ttl: ttl, now: time.Now}
}

// Get returns the memoized value, loading it on first use or after expiry.
func (s *Snapshot[T]) Get(ctx context.Context) (T, error) {
	s.mu.RLock()
	if s.loaded && !s.expired() {
		v, err := s.v, s.err
		s.mu.RUnlock()
		return v, err
	}
	s.mu.RUnlock()
	return s.refresh(ctx, false)
}

// Reload forces a new load and replaces the memoized value.
func (s *Snapshot[T]) Reload(ctx context.Context) (T, error) {
	return s.refresh(ctx, true)
}

// Peek returns the current value without loading. ok is false before the first load.
func (s *Snapshot[T]) Peek() (v T, at time.Time, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.v, s.at, s.loaded
}

func (s *Snapshot[T]) refresh(ctx context.Context, force bool) (T, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	// another caller may have loaded while we waited
	if !force {
		s.mu.RLock()
		if s.loaded && !s.expired() {
			v, err := s.v, s.err
			s.mu.RUnlock()
			return v, err
		}
		s.mu.RUnlock()
	}

	// the result outlives the caller, so its cancellation must not be memoized
	v, err := s.load(context.WithoutCancel(ctx))

	s.mu.Lock()
	s.v, s.err, s.at, s.loaded = v, err, s.now(), true
	s.mu.Unlock()
	return v, err
}

// expired must be called with mu held.
func (s *Snapshot[T]) expired() bool {
	return s.ttl > 0 && s.now().Sub(s.at) >= s.ttl
}
