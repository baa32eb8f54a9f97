package gas

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blues/grants/internal/config"
	"github.com/redis/go-redis/v9"
)

// RedisCache 基于 redis 的价格缓存
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache 连接 redis 并确认可用
func NewRedisCache(cfg config.RedisConfig) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisCache{rdb: rdb}, nil
}

// Get 未命中时返回 ok=false
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set 写入并设置过期时间
func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

// Close 关闭连接
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
