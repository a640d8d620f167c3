package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisPrefix = "coupon:facets:"

// RedisCache shares facets between replicas. Redis errors degrade to cache misses.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache creates a RedisCache.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, logger: logger}
}

// Get reads and decodes a facet list.
func (c *RedisCache) Get(ctx context.Context, key string) ([]string, bool) {
	raw, err := c.client.Get(ctx, redisPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("facet cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var values []string
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, false
	}
	return values, true
}

// Set writes a facet list with the configured ttl.
func (c *RedisCache) Set(ctx context.Context, key string, values []string) {
	raw, err := json.Marshal(values)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisPrefix+key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("facet cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// Invalidate deletes every facet key.
func (c *RedisCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, redisPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan facet keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// NewRedisClient connects and pings. A ping failure returns the error so callers can fall back.
func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}
