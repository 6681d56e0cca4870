package config

// Cache backend types.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// CacheConfig configures the GET response cache.
type CacheConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Backend is memory or redis. Defaults to memory.
	Backend string `yaml:"backend,omitempty" json:"backend,omitempty"`

	// TTL is the time-to-live for cached responses.
	TTL Duration `yaml:"ttl,omitempty" json:"ttl,omitempty"`

	// MaxEntries bounds the memory backend.
	MaxEntries int `yaml:"maxEntries,omitempty" json:"maxEntries,omitempty"`

	// KeyPrefix is prepended to every cache key.
	KeyPrefix string `yaml:"keyPrefix,omitempty" json:"keyPrefix,omitempty"`

	// Redis configures the redis backend.
	Redis *RedisCacheConfig `yaml:"redis,omitempty" json:"redis,omitempty"`
}

// RedisCacheConfig configures the Redis cache backend.
type RedisCacheConfig struct {
	// URL is the connection URL, redis://[user:password@]host:port[/db].
	URL string `yaml:"url" json:"url"`

	// PoolSize is the connection pool size. Zero means the driver default.
	PoolSize int `yaml:"poolSize,omitempty" json:"poolSize,omitempty"`

	// DialTimeout bounds connection establishment.
	DialTimeout Duration `yaml:"dialTimeout,omitempty" json:"dialTimeout,omitempty"`
}

// GetEffectiveTTL returns the cache TTL.
func (c *CacheConfig) GetEffectiveTTL() Duration {
	if c == nil || c.TTL <= 0 {
		return Duration(DefaultCacheTTL)
	}
	return c.TTL
}

// GetEffectiveMaxEntries returns the memory backend entry limit.
func (c *CacheConfig) GetEffectiveMaxEntries() int {
	if c == nil || c.MaxEntries <= 0 {
		return DefaultCacheMaxEntries
	}
	return c.MaxEntries
}

// IsEnabled reports whether caching is configured and on.
func (c *CacheConfig) IsEnabled() bool {
	return c != nil && c.Enabled
}
