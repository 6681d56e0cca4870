package config

// RateLimitConfig configures token-bucket rate limiting on the data plane.
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// RequestsPerSecond is the sustained rate.
	RequestsPerSecond int `yaml:"requestsPerSecond" json:"requestsPerSecond"`

	// Burst is the bucket size. Defaults to RequestsPerSecond.
	Burst int `yaml:"burst,omitempty" json:"burst,omitempty"`

	// PerClient applies the limit per client IP instead of globally.
	PerClient bool `yaml:"perClient,omitempty" json:"perClient,omitempty"`

	// TrustedProxies lists CIDRs whose X-Forwarded-For is honored when
	// deriving the client IP.
	TrustedProxies []string `yaml:"trustedProxies,omitempty" json:"trustedProxies,omitempty"`
}

// CircuitBreakerConfig configures the per-cluster circuit breaker.
type CircuitBreakerConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// MinRequests is the minimum request volume in a closed-state interval
	// before the failure ratio is evaluated.
	MinRequests int `yaml:"minRequests,omitempty" json:"minRequests,omitempty"`

	// Timeout is how long an open breaker stays open before probing.
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// Interval is the closed-state counter reset interval.
	Interval Duration `yaml:"interval,omitempty" json:"interval,omitempty"`

	// HalfOpenRequests is the number of probe requests allowed half-open.
	HalfOpenRequests int `yaml:"halfOpenRequests,omitempty" json:"halfOpenRequests,omitempty"`
}

// GetEffectiveMinRequests returns the minimum request volume.
func (c *CircuitBreakerConfig) GetEffectiveMinRequests() int {
	if c == nil || c.MinRequests <= 0 {
		return DefaultBreakerMinRequests
	}
	return c.MinRequests
}

// GetEffectiveTimeout returns the open-state timeout.
func (c *CircuitBreakerConfig) GetEffectiveTimeout() Duration {
	if c == nil || c.Timeout <= 0 {
		return Duration(DefaultBreakerTimeout)
	}
	return c.Timeout
}

// GetEffectiveInterval returns the closed-state reset interval.
func (c *CircuitBreakerConfig) GetEffectiveInterval() Duration {
	if c == nil || c.Interval <= 0 {
		return Duration(DefaultBreakerInterval)
	}
	return c.Interval
}

// GetEffectiveHalfOpenRequests returns the half-open probe budget.
func (c *CircuitBreakerConfig) GetEffectiveHalfOpenRequests() int {
	if c == nil || c.HalfOpenRequests <= 0 {
		return DefaultBreakerHalfOpenMax
	}
	return c.HalfOpenRequests
}

// CORSConfig configures cross-origin resource sharing headers.
type CORSConfig struct {
	AllowOrigins     []string `yaml:"allowOrigins,omitempty" json:"allowOrigins,omitempty"`
	AllowMethods     []string `yaml:"allowMethods,omitempty" json:"allowMethods,omitempty"`
	AllowHeaders     []string `yaml:"allowHeaders,omitempty" json:"allowHeaders,omitempty"`
	ExposeHeaders    []string `yaml:"exposeHeaders,omitempty" json:"exposeHeaders,omitempty"`
	MaxAge           int      `yaml:"maxAge,omitempty" json:"maxAge,omitempty"`
	AllowCredentials bool     `yaml:"allowCredentials,omitempty" json:"allowCredentials,omitempty"`
}

// RequestLimitsConfig configures request size limits.
type RequestLimitsConfig struct {
	// MaxBodySize is the maximum allowed request body size in bytes.
	MaxBodySize int64 `yaml:"maxBodySize,omitempty" json:"maxBodySize,omitempty"`

	// MaxHeaderSize is the maximum allowed total header size in bytes.
	MaxHeaderSize int64 `yaml:"maxHeaderSize,omitempty" json:"maxHeaderSize,omitempty"`
}

// GetEffectiveMaxBodySize returns the effective max body size.
func (c *RequestLimitsConfig) GetEffectiveMaxBodySize() int64 {
	if c == nil || c.MaxBodySize <= 0 {
		return DefaultMaxBodySize
	}
	return c.MaxBodySize
}

// GetEffectiveMaxHeaderSize returns the effective max header size.
func (c *RequestLimitsConfig) GetEffectiveMaxHeaderSize() int64 {
	if c == nil || c.MaxHeaderSize <= 0 {
		return DefaultMaxHeaderSize
	}
	return c.MaxHeaderSize
}
