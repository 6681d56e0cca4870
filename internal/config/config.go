package config

import "time"

// APIVersionPrefix is the required prefix of the apiVersion field.
const APIVersionPrefix = "stranglergw.zerospeak.io/"

// KindGateway is the only supported configuration kind.
const KindGateway = "Gateway"

// Default values applied by SetDefaults and the GetEffective accessors.
const (
	DefaultListenerPort = 8080
	DefaultAdminPort    = 9091

	DefaultReadTimeout       = 30 * time.Second
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultWriteTimeout      = 30 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second

	DefaultUpstreamTimeout        = 30 * time.Second
	DefaultUpstreamConnectTimeout = 10 * time.Second
	DefaultMaxIdleConns           = 100
	DefaultMaxIdleConnsPerHost    = 10
	DefaultIdleConnTimeout        = 90 * time.Second

	DefaultMaxBodySize   = 10 << 20 // 10MB
	DefaultMaxHeaderSize = 1 << 20  // 1MB

	DefaultBreakerTimeout      = 30 * time.Second
	DefaultBreakerInterval     = 60 * time.Second
	DefaultBreakerMinRequests  = 5
	DefaultBreakerHalfOpenMax  = 1
	DefaultBreakerFailureRatio = 0.5

	DefaultCacheTTL        = 60 * time.Second
	DefaultCacheMaxEntries = 10000
)

// GatewayConfig is the root configuration document.
type GatewayConfig struct {
	APIVersion string      `yaml:"apiVersion" json:"apiVersion"`
	Kind       string      `yaml:"kind" json:"kind"`
	Metadata   Metadata    `yaml:"metadata" json:"metadata"`
	Spec       GatewaySpec `yaml:"spec" json:"spec"`
}

// Metadata identifies a configuration document.
type Metadata struct {
	Name        string            `yaml:"name" json:"name"`
	Labels      map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
	Annotations map[string]string `yaml:"annotations,omitempty" json:"annotations,omitempty"`
}

// GatewaySpec is the desired state of the gateway. Routes are ordered; the
// declared order is the match order and is preserved verbatim from the file.
type GatewaySpec struct {
	Listeners      []ListenerConfig      `yaml:"listeners" json:"listeners"`
	Routes         []RouteConfig         `yaml:"routes" json:"routes"`
	Clusters       []ClusterConfig       `yaml:"clusters" json:"clusters"`
	Upstream       *UpstreamConfig       `yaml:"upstream,omitempty" json:"upstream,omitempty"`
	RateLimit      *RateLimitConfig      `yaml:"rateLimit,omitempty" json:"rateLimit,omitempty"`
	CircuitBreaker *CircuitBreakerConfig `yaml:"circuitBreaker,omitempty" json:"circuitBreaker,omitempty"`
	Cache          *CacheConfig          `yaml:"cache,omitempty" json:"cache,omitempty"`
	CORS           *CORSConfig           `yaml:"cors,omitempty" json:"cors,omitempty"`
	RequestLimits  *RequestLimitsConfig  `yaml:"requestLimits,omitempty" json:"requestLimits,omitempty"`
	Observability  *ObservabilityConfig  `yaml:"observability,omitempty" json:"observability,omitempty"`
	Admin          *AdminConfig          `yaml:"admin,omitempty" json:"admin,omitempty"`
}

// UpstreamConfig controls the shared forwarding transport.
type UpstreamConfig struct {
	// Timeout bounds a single round trip to a cluster, from dispatch to
	// response headers. Routes may override it per route.
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// ConnectTimeout bounds TCP connection establishment.
	ConnectTimeout Duration `yaml:"connectTimeout,omitempty" json:"connectTimeout,omitempty"`

	MaxIdleConns        int      `yaml:"maxIdleConns,omitempty" json:"maxIdleConns,omitempty"`
	MaxIdleConnsPerHost int      `yaml:"maxIdleConnsPerHost,omitempty" json:"maxIdleConnsPerHost,omitempty"`
	IdleConnTimeout     Duration `yaml:"idleConnTimeout,omitempty" json:"idleConnTimeout,omitempty"`
}

// GetEffectiveTimeout returns the round-trip timeout.
func (u *UpstreamConfig) GetEffectiveTimeout() time.Duration {
	if u == nil || u.Timeout <= 0 {
		return DefaultUpstreamTimeout
	}
	return u.Timeout.Duration()
}

// GetEffectiveConnectTimeout returns the connection timeout.
func (u *UpstreamConfig) GetEffectiveConnectTimeout() time.Duration {
	if u == nil || u.ConnectTimeout <= 0 {
		return DefaultUpstreamConnectTimeout
	}
	return u.ConnectTimeout.Duration()
}

// GetEffectiveMaxIdleConns returns the idle connection pool size.
func (u *UpstreamConfig) GetEffectiveMaxIdleConns() int {
	if u == nil || u.MaxIdleConns <= 0 {
		return DefaultMaxIdleConns
	}
	return u.MaxIdleConns
}

// GetEffectiveMaxIdleConnsPerHost returns the per-host idle connection limit.
func (u *UpstreamConfig) GetEffectiveMaxIdleConnsPerHost() int {
	if u == nil || u.MaxIdleConnsPerHost <= 0 {
		return DefaultMaxIdleConnsPerHost
	}
	return u.MaxIdleConnsPerHost
}

// GetEffectiveIdleConnTimeout returns the idle connection timeout.
func (u *UpstreamConfig) GetEffectiveIdleConnTimeout() time.Duration {
	if u == nil || u.IdleConnTimeout <= 0 {
		return DefaultIdleConnTimeout
	}
	return u.IdleConnTimeout.Duration()
}

// SetDefaults fills unset fields with their defaults. It is called by the
// loader after parsing and is idempotent. Route names default to the route's
// path pattern so every route has a stable identifier for logs and metrics.
func (c *GatewayConfig) SetDefaults() {
	for i := range c.Spec.Listeners {
		l := &c.Spec.Listeners[i]
		if l.Port == 0 {
			l.Port = DefaultListenerPort
		}
	}

	for i := range c.Spec.Routes {
		r := &c.Spec.Routes[i]
		if r.Name == "" {
			r.Name = r.Path
		}
	}

	for i := range c.Spec.Clusters {
		cl := &c.Spec.Clusters[i]
		if cl.Scheme == "" {
			cl.Scheme = SchemeHTTP
		}
	}

	if c.Spec.Admin == nil {
		c.Spec.Admin = &AdminConfig{Enabled: true}
	}
	if c.Spec.Admin.Port == 0 {
		c.Spec.Admin.Port = DefaultAdminPort
	}

	if c.Spec.Cache != nil && c.Spec.Cache.Backend == "" {
		c.Spec.Cache.Backend = CacheBackendMemory
	}

	if c.Spec.RateLimit != nil && c.Spec.RateLimit.Burst == 0 {
		c.Spec.RateLimit.Burst = c.Spec.RateLimit.RequestsPerSecond
	}
}

// RouteByName returns the route with the given name, or nil.
func (c *GatewayConfig) RouteByName(name string) *RouteConfig {
	for i := range c.Spec.Routes {
		if c.Spec.Routes[i].Name == name {
			return &c.Spec.Routes[i]
		}
	}
	return nil
}

// ClusterByName returns the cluster with the given name, or nil.
func (c *GatewayConfig) ClusterByName(name string) *ClusterConfig {
	for i := range c.Spec.Clusters {
		if c.Spec.Clusters[i].Name == name {
			return &c.Spec.Clusters[i]
		}
	}
	return nil
}
