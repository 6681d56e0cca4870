package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zerospeak/stranglergw/internal/config"
	"github.com/zerospeak/stranglergw/internal/observability"
)

// Cache errors.
var (
	// ErrCacheMiss indicates that the key was not found.
	ErrCacheMiss = errors.New("cache miss")

	// ErrClosed indicates an operation on a closed cache.
	ErrClosed = errors.New("cache closed")
)

// DefaultKeyPrefix namespaces gateway keys in shared backends.
const DefaultKeyPrefix = "stranglergw:"

// Cache stores serialized responses keyed by request identity.
type Cache interface {
	// Get retrieves a value. Returns ErrCacheMiss when absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. A zero TTL uses the
	// backend's configured default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether the key is present and unexpired.
	Exists(ctx context.Context, key string) (bool, error)

	// Close releases backend resources.
	Close() error
}

// options holds construction parameters shared by the backends.
type options struct {
	logger observability.Logger
}

// Option is a functional option for cache construction.
type Option func(*options)

// WithCacheLogger sets the logger for the cache backend.
func WithCacheLogger(logger observability.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New builds the cache backend selected by cfg. Returns nil (and no error)
// when caching is disabled.
func New(cfg *config.CacheConfig, opts ...Option) (Cache, error) {
	if !cfg.IsEnabled() {
		return nil, nil
	}

	o := &options{logger: observability.NopLogger()}
	for _, opt := range opts {
		opt(o)
	}

	switch cfg.Backend {
	case config.CacheBackendMemory, "":
		return newMemoryCache(cfg, o.logger), nil
	case config.CacheBackendRedis:
		return newRedisCache(cfg, o.logger)
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}

// keyPrefix returns the configured prefix, defaulting to DefaultKeyPrefix.
func keyPrefix(cfg *config.CacheConfig) string {
	if cfg.KeyPrefix == "" {
		return DefaultKeyPrefix
	}
	return cfg.KeyPrefix
}
