// Package memory implements pubhub.CounterStore with an in-process map.
// It is the default for tests and development.
package memory

import (
	"context"
	"sync"
)

// Store is an in-memory counter store. All operations are atomic per key.
type Store struct {
	mu       sync.Mutex
	counters map[string]int64
}

// New creates a new in-memory counter store.
func New() *Store {
	return &Store{counters: make(map[string]int64)}
}

func (s *Store) Increment(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]++
	return nil
}

func (s *Store) Decrement(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]--
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.counters[key]
	return v, ok, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.counters[key]
	return ok, nil
}
