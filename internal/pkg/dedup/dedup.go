// Package dedup claims idempotency keys for at-least-once inputs such as
// provider webhook events.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a claimed key is remembered. SendGrid retries
// failed webhook deliveries for up to 72 hours.
const DefaultTTL = 72 * time.Hour

// Store claims keys. Claim returns true only for the first caller of a key
// within its TTL. Forget releases a claim whose processing failed so a
// redelivery can be handled.
type Store interface {
	Claim(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
}

// New returns a Redis-backed store, or a pass-through store when client is
// nil. In the pass-through case the unique external_id on email_events is
// the only dedup guard.
func New(client *redis.Client, prefix string, ttl time.Duration) Store {
	if client == nil {
		return Nop{}
	}
	return NewRedisStore(client, prefix, ttl)
}

// RedisStore uses SET NX with a TTL.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if prefix == "" {
		prefix = "dedup"
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(k string) string { return s.prefix + ":" + k }

func (s *RedisStore) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.key(key), 1, s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup: claim %s: %w", key, err)
	}
	return ok, nil
}

func (s *RedisStore) Forget(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("dedup: forget %s: %w", key, err)
	}
	return nil
}

// Nop claims every key.
type Nop struct{}

func (Nop) Claim(context.Context, string) (bool, error) { return true, nil }
func (Nop) Forget(context.Context, string) error { return nil }
