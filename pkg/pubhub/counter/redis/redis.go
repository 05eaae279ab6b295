// Package redis implements pubhub.CounterStore over a Redis client. INCR
// and DECR give the single-key atomicity the counter contract requires.
package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// Store is a Redis-backed counter store.
type Store struct {
	client *redis.Client
}

// New creates a counter store over an existing client. Lifecycle of the
// client belongs to the process bootstrap.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Increment(ctx context.Context, key string) error {
	return s.client.Incr(ctx, key).Err()
}

func (s *Store) Decrement(ctx context.Context, key string) error {
	return s.client.Decr(ctx, key).Err()
}

func (s *Store) Get(ctx context.Context, key string) (int64, bool, error) {
	v, err := s.client.Get(ctx, key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return v, true, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
