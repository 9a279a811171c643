package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache wraps the Redis client with common operations
type RedisCache struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisCache creates a new Redis cache client
func NewRedisCache(addr, password string, db int) *RedisCache {
	return &RedisCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ctx: context.Background(),
	}
}

// Get retrieves a value from Redis
func (c *RedisCache) Get(key string) ([]byte, error) {
	val, err := c.client.Get(c.ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil // Key doesn't exist
	}
	return val, err
}

// Set stores a value in Redis with TTL
func (c *RedisCache) Set(key string, value []byte, ttl time.Duration) error {
	return c.client.Set(c.ctx, key, value, ttl).Err()
}

// Delete removes a key from Redis
func (c *RedisCache) Delete(key string) error {
	return c.client.Del(c.ctx, key).Err()
}

// DeletePattern removes all keys matching a pattern
func (c *RedisCache) DeletePattern(pattern string) error {
	iter := c.client.Scan(c.ctx, 0, pattern, 0).Iterator()
	for iter.Next(c.ctx) {
		if err := c.client.Del(c.ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// HashSet stores a single field in a Redis hash
func (c *RedisCache) HashSet(key, field string, value []byte) error {
	return c.client.HSet(c.ctx, key, field, value).Err()
}

// HashGetAll returns every field of a Redis hash
func (c *RedisCache) HashGetAll(key string) (map[string]string, error) {
	return c.client.HGetAll(c.ctx, key).Result()
}

// Publish sends a payload to a pub/sub channel
func (c *RedisCache) Publish(channel string, payload []byte) error {
	return c.client.Publish(c.ctx, channel, payload).Err()
}

// Subscribe opens a pub/sub subscription on the given channels
func (c *RedisCache) Subscribe(channels ...string) *redis.PubSub {
	return c.client.Subscribe(c.ctx, channels...)
}

// Context returns the context used for cache operations
func (c *RedisCache) Context() context.Context {
	return c.ctx
}

// Ping verifies the connection
func (c *RedisCache) Ping() error {
	return c.client.Ping(c.ctx).Err()
}
