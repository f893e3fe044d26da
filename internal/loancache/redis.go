package loancache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// opTimeout caps every cache round trip so a degraded cache cannot
// stall the request path. Exceeding it counts as cache-unavailable.
const opTimeout = 500 * time.Millisecond

// RedisKV implements KV over a shared go-redis client. The client
// lifecycle is managed by the caller.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV returns a redis backed KV.
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

// Get returns the value under key, or ErrCacheMiss when absent.
func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}

	return raw, err
}

// Set stores value under key with the given TTL.
func (r *RedisKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.client.Set(ctx, key, value, ttl).Err()
}

// Del removes the given keys.
func (r *RedisKV) Del(ctx context.Context, keys ...string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	return r.client.Del(ctx, keys...).Err()
}
