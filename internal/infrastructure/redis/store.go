package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-auth-api/internal/config"
	"github.com/go-auth-api/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

// Store is the TTL-backed key-value store for pending OTP codes and
// rate-limit counters. Both are expiry-driven, which keeps them out of
// the durable user table.
type Store struct {
	client *goredis.Client
}

func NewClient(cfg *config.Config) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

func NewStore(client *goredis.Client) *Store {
	return &Store{client: client}
}

// Set writes value under key with the given TTL, overwriting any existing
// value and resetting the expiry.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

// Get returns the value at key. A missing or expired key maps to
// domain.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, key).Result()
	if err == goredis.Nil {
		return "", fmt.Errorf("key not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// incrScript increments the counter, arms the window expiry on the first
// hit and reports the remaining TTL, all in one atomic evaluation.
var incrScript = goredis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
return {count, ttl}
`)

// Incr atomically increments key, setting the window TTL when the count
// becomes 1. Returns the new count and the time left in the window.
func (s *Store) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	res, err := incrScript.Run(ctx, s.client, []string{key}, window.Milliseconds()).Result()
	if err != nil {
		return 0, 0, err
	}
	vals, ok := res.([]interface{})
	if !ok || len(vals) != 2 {
		return 0, 0, fmt.Errorf("unexpected incr script reply: %v", res)
	}
	count, _ := vals[0].(int64)
	ttlMillis, _ := vals[1].(int64)
	return count, time.Duration(ttlMillis) * time.Millisecond, nil
}
