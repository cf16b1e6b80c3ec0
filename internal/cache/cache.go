// Package cache 提供分析结果缓存：配置了 Redis 时使用 Redis，否则降级为内存缓存。
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/crawlerlog/internal/logging"
	"github.com/redis/go-redis/v9"
)

// Cache stores opaque byte values with an expiry.
// Get reports ok=false on a miss or an expired key.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// GetJSON decodes a cached JSON value into dest.
func GetJSON(ctx context.Context, c Cache, key string, dest interface{}) (bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON encodes value as JSON and caches it.
func SetJSON(ctx context.Context, c Cache, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, raw, ttl)
}

// NewWithFallback 返回 Redis 缓存；client 为 nil 或不可用时降级为内存缓存。
func NewWithFallback(ctx context.Context, client *redis.Client) Cache {
	log := logging.WithComponent("cache")
	if client == nil {
		log.Info().Msg("using in-memory analytics cache")
		return NewMemory()
	}
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, falling back to in-memory cache")
		return NewMemory()
	}
	log.Info().Msg("using redis analytics cache")
	return NewRedis(client)
}

// NewRedisClient 根据地址创建 Redis 客户端；地址为空时返回 nil。
func NewRedisClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}
