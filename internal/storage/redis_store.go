package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKV is the subset of *redis.Client the store uses.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStore shares cached routes between gateway replicas and the route
// warmer. Values are JSON with a Redis-side TTL.
type RedisStore struct {
	client redisKV
	prefix string
}

// NewRedisClient connects and pings.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return c, nil
}

func NewRedisStore(c *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: c, prefix: prefix}
}

func (r *RedisStore) Get(ctx context.Context, key string) (CachedRoute, error) {
	b, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return CachedRoute{}, ErrNotFound
	}
	if err != nil {
		return CachedRoute{}, fmt.Errorf("redis get %s: %w", key, err)
	}
	var cr CachedRoute
	if err := json.Unmarshal(b, &cr); err != nil {
		return CachedRoute{}, fmt.Errorf("redis payload %s: %w", key, err)
	}
	return cr, nil
}

func (r *RedisStore) Put(ctx context.Context, key string, cr CachedRoute, ttl time.Duration) error {
	b, err := json.Marshal(cr)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.prefix+key, b, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}
