package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache backs the cache with Redis, so several editor or server
// processes share layout, artifact, and recovery entries.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to the Redis instance at url
// (redis://[user:password@]host:port/db) and verifies the connection.
func NewRedisCache(ctx context.Context, url string) (Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	return &RedisCache{client: client}, nil
}

// Get retrieves a value from Redis.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	return data, true, nil
}

// Set stores a value in Redis. A non-positive ttl stores without expiry.
func (c *RedisCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	return nil
}

// Delete removes a value from Redis.
func (c *RedisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	return nil
}

// Close closes the client connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ensure RedisCache implements Cache.
var _ Cache = (*RedisCache)(nil)
