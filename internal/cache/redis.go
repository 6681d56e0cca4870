package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zerospeak/stranglergw/internal/config"
	"github.com/zerospeak/stranglergw/internal/observability"
)

// pingTimeout bounds the startup connectivity check.
const pingTimeout = 5 * time.Second

// redisCache stores entries in Redis so cached responses survive restarts
// and are shared between gateway instances.
type redisCache struct {
	logger     observability.Logger
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
}

func newRedisCache(cfg *config.CacheConfig, logger observability.Logger) (*redisCache, error) {
	if cfg.Redis == nil || cfg.Redis.URL == "" {
		return nil, errors.New("redis cache requires a url")
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.Redis.PoolSize > 0 {
		opts.PoolSize = cfg.Redis.PoolSize
	}
	if cfg.Redis.DialTimeout > 0 {
		opts.DialTimeout = cfg.Redis.DialTimeout.Duration()
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	c := &redisCache{
		logger:     logger,
		client:     client,
		prefix:     keyPrefix(cfg),
		defaultTTL: cfg.GetEffectiveTTL().Duration(),
	}

	logger.Info("redis cache initialized",
		observability.String("addr", opts.Addr),
		observability.String("key_prefix", c.prefix),
		observability.Duration("default_ttl", c.defaultTTL),
	)

	return c, nil
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		c.logger.Error("redis get failed",
			observability.String("key", key),
			observability.Error(err),
		)
		return nil, err
	}
	return val, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		c.logger.Error("redis set failed",
			observability.String("key", key),
			observability.Error(err),
		)
		return err
	}
	return nil
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.prefix+key).Err()
}

func (c *redisCache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.prefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (c *redisCache) Close() error {
	return c.client.Close()
}
