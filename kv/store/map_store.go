package store

import (
	"context"
	"sync"
	"time"
)

type MapStoreOptions struct{}

type mapEntry[V any] struct {
	val      V
	deadline time.Time
}

// MapStore 进程内存储，支持过期时间，可以并发访问
type MapStore[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]mapEntry[V]
}

func NewMapStoreWithOptions[K comparable, V any](options *MapStoreOptions) *MapStore[K, V] {
	return &MapStore[K, V]{m: make(map[K]mapEntry[V])}
}

func (s *MapStore[K, V]) Set(ctx context.Context, key K, value V, opts ...SetOption) error {
	options := newSetOptions(opts)

	s.mu.Lock()
	defer s.mu.Unlock()

	if options.IfNotExist {
		if e, ok := s.m[key]; ok && !e.expired() {
			return ErrConditionFailed
		}
	}

	e := mapEntry[V]{val: value}
	if options.Expiration > 0 {
		e.deadline = time.Now().Add(options.Expiration)
	}
	s.m[key] = e
	return nil
}

func (s *MapStore[K, V]) Get(ctx context.Context, key K) (V, error) {
	s.mu.RLock()
	e, ok := s.m[key]
	s.mu.RUnlock()

	if !ok || e.expired() {
		var zero V
		return zero, ErrKeyNotFound
	}
	return e.val, nil
}

func (s *MapStore[K, V]) Del(ctx context.Context, key K) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}

func (s *MapStore[K, V]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m = make(map[K]mapEntry[V])
	return nil
}

func (e mapEntry[V]) expired() bool {
	return !e.deadline.IsZero() && !time.Now().Before(e.deadline)
}
