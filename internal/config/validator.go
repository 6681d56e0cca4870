package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/zerospeak/stranglergw/internal/util"
)

// ValidationError is one configuration problem, located by a dotted path
// into the document.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors aggregates every problem found in one pass.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates a gateway configuration document.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// ValidateConfig validates a gateway configuration.
func ValidateConfig(cfg *GatewayConfig) error {
	return NewValidator().Validate(cfg)
}

// Validate checks the whole document and returns every problem found.
func (v *Validator) Validate(cfg *GatewayConfig) error {
	v.errors = make(ValidationErrors, 0)

	if cfg == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateRoot(cfg)
	v.validateMetadata(&cfg.Metadata)
	v.validateSpec(&cfg.Spec)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateRoot(cfg *GatewayConfig) {
	switch {
	case cfg.APIVersion == "":
		v.addError("apiVersion", "apiVersion is required")
	case !strings.HasPrefix(cfg.APIVersion, APIVersionPrefix):
		v.addError("apiVersion", fmt.Sprintf("apiVersion must start with %q", APIVersionPrefix))
	}

	switch {
	case cfg.Kind == "":
		v.addError("kind", "kind is required")
	case cfg.Kind != KindGateway:
		v.addError("kind", fmt.Sprintf("kind must be %q", KindGateway))
	}
}

func (v *Validator) validateMetadata(metadata *Metadata) {
	if metadata.Name == "" {
		v.addError("metadata.name", "name is required")
	}
}

func (v *Validator) validateSpec(spec *GatewaySpec) {
	if len(spec.Listeners) != 1 {
		v.addError("spec.listeners", "exactly one listener is required")
	}
	v.validateListeners(spec.Listeners)

	clusterNames := v.validateClusters(spec.Clusters)
	v.validateRoutes(spec.Routes, clusterNames)

	if spec.Upstream != nil {
		v.validateUpstream(spec.Upstream, "spec.upstream")
	}
	if spec.RateLimit != nil {
		v.validateRateLimit(spec.RateLimit, "spec.rateLimit")
	}
	if spec.CircuitBreaker != nil {
		v.validateCircuitBreaker(spec.CircuitBreaker, "spec.circuitBreaker")
	}
	if spec.Cache != nil {
		v.validateCache(spec.Cache, "spec.cache")
	}
	if spec.CORS != nil {
		v.validateCORS(spec.CORS, "spec.cors")
	}
	if spec.RequestLimits != nil {
		v.validateRequestLimits(spec.RequestLimits, "spec.requestLimits")
	}
	if spec.Observability != nil {
		v.validateObservability(spec.Observability, "spec.observability")
	}
	if spec.Admin != nil && spec.Admin.Enabled {
		v.validateAdmin(spec.Admin, "spec.admin")
	}
}

func (v *Validator) validateListeners(listeners []ListenerConfig) {
	names := make(map[string]bool)

	for i := range listeners {
		listener := &listeners[i]
		path := fmt.Sprintf("spec.listeners[%d]", i)

		switch {
		case listener.Name == "":
			v.addError(path+".name", "listener name is required")
		case names[listener.Name]:
			v.addError(path+".name", fmt.Sprintf("duplicate listener name: %s", listener.Name))
		default:
			names[listener.Name] = true
		}

		if err := util.ValidatePort(listener.Port); err != nil {
			v.addError(path+".port", err.Error())
		}

		if listener.Bind != "" {
			if err := util.ValidateIPAddress(listener.Bind); err != nil {
				v.addError(path+".bind", err.Error())
			}
		}

		if listener.TLS != nil {
			if listener.TLS.CertFile == "" {
				v.addError(path+".tls.certFile", "certFile is required when tls is set")
			}
			if listener.TLS.KeyFile == "" {
				v.addError(path+".tls.keyFile", "keyFile is required when tls is set")
			}
			switch listener.TLS.MinVersion {
			case "", "TLS12", "TLS13":
			default:
				v.addError(path+".tls.minVersion", "minVersion must be TLS12 or TLS13")
			}
		}
	}
}

// validateClusters checks the cluster list and returns the set of valid
// names for route cross-referencing.
func (v *Validator) validateClusters(clusters []ClusterConfig) map[string]bool {
	names := make(map[string]bool)

	if len(clusters) == 0 {
		v.addError("spec.clusters", "at least one cluster is required")
		return names
	}

	for i := range clusters {
		cluster := &clusters[i]
		path := fmt.Sprintf("spec.clusters[%d]", i)

		switch {
		case cluster.Name == "":
			v.addError(path+".name", "cluster name is required")
		case names[cluster.Name]:
			v.addError(path+".name", fmt.Sprintf("duplicate cluster name: %s", cluster.Name))
		default:
			names[cluster.Name] = true
		}

		if cluster.Host == "" {
			v.addError(path+".host", "cluster host is required")
		} else if err := util.ValidateHostname(cluster.Host); err != nil {
			v.addError(path+".host", err.Error())
		}

		if err := util.ValidatePort(cluster.Port); err != nil {
			v.addError(path+".port", err.Error())
		}

		switch cluster.Scheme {
		case "", SchemeHTTP, SchemeHTTPS:
		default:
			v.addError(path+".scheme", "scheme must be http or https")
		}

		if cluster.TLS != nil && cluster.GetEffectiveScheme() != SchemeHTTPS {
			v.addError(path+".tls", "tls requires scheme https")
		}
	}

	return names
}

// validateRoutes checks each route and the route to cluster references.
// Duplicate path patterns are not an error: declared order decides and a
// later duplicate is simply unreachable.
func (v *Validator) validateRoutes(routes []RouteConfig, clusterNames map[string]bool) {
	if len(routes) == 0 {
		v.addError("spec.routes", "at least one route is required")
		return
	}

	names := make(map[string]bool)

	for i := range routes {
		route := &routes[i]
		path := fmt.Sprintf("spec.routes[%d]", i)

		switch {
		case route.Name == "":
			v.addError(path+".name", "route name is required")
		case names[route.Name]:
			v.addError(path+".name", fmt.Sprintf("duplicate route name: %s", route.Name))
		default:
			names[route.Name] = true
		}

		v.validateRoutePath(route.Path, path+".path")

		switch {
		case route.Cluster == "":
			v.addError(path+".cluster", "route cluster is required")
		case !clusterNames[route.Cluster]:
			v.addError(path+".cluster", fmt.Sprintf("unknown cluster: %s", route.Cluster))
		}

		if route.Timeout < 0 {
			v.addError(path+".timeout", "timeout cannot be negative")
		}
	}
}

// validateRoutePath checks a route pattern. Patterns are literal prefixes;
// the only wildcard position is a trailing "/*".
func (v *Validator) validateRoutePath(pattern, path string) {
	switch {
	case pattern == "":
		v.addError(path, "route path is required")
		return
	case !strings.HasPrefix(pattern, "/"):
		v.addError(path, "route path must start with /")
		return
	}

	if i := strings.Index(pattern, "*"); i >= 0 && i != len(pattern)-1 {
		v.addError(path, "wildcard is only allowed as a trailing /*")
		return
	}
	if strings.HasSuffix(pattern, "*") && !strings.HasSuffix(pattern, WildcardSuffix) {
		v.addError(path, "wildcard must follow a slash, as in /prefix/*")
	}
}

func (v *Validator) validateUpstream(upstream *UpstreamConfig, path string) {
	if upstream.Timeout < 0 {
		v.addError(path+".timeout", "timeout cannot be negative")
	}
	if upstream.ConnectTimeout < 0 {
		v.addError(path+".connectTimeout", "connectTimeout cannot be negative")
	}
	if upstream.MaxIdleConns < 0 {
		v.addError(path+".maxIdleConns", "maxIdleConns cannot be negative")
	}
	if upstream.MaxIdleConnsPerHost < 0 {
		v.addError(path+".maxIdleConnsPerHost", "maxIdleConnsPerHost cannot be negative")
	}
}

func (v *Validator) validateRateLimit(rl *RateLimitConfig, path string) {
	if !rl.Enabled {
		return
	}
	if rl.RequestsPerSecond <= 0 {
		v.addError(path+".requestsPerSecond", "requestsPerSecond must be positive")
	}
	if rl.Burst < 0 {
		v.addError(path+".burst", "burst cannot be negative")
	}
	for i, cidr := range rl.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			v.addError(fmt.Sprintf("%s.trustedProxies[%d]", path, i),
				fmt.Sprintf("not a CIDR: %s", cidr))
		}
	}
}

func (v *Validator) validateCircuitBreaker(cb *CircuitBreakerConfig, path string) {
	if !cb.Enabled {
		return
	}
	if cb.MinRequests < 0 {
		v.addError(path+".minRequests", "minRequests cannot be negative")
	}
	if cb.Timeout < 0 {
		v.addError(path+".timeout", "timeout cannot be negative")
	}
	if cb.Interval < 0 {
		v.addError(path+".interval", "interval cannot be negative")
	}
	if cb.HalfOpenRequests < 0 {
		v.addError(path+".halfOpenRequests", "halfOpenRequests cannot be negative")
	}
}

func (v *Validator) validateCache(cache *CacheConfig, path string) {
	if !cache.Enabled {
		return
	}

	switch cache.Backend {
	case "", CacheBackendMemory:
	case CacheBackendRedis:
		if cache.Redis == nil || cache.Redis.URL == "" {
			v.addError(path+".redis.url", "redis url is required for the redis backend")
		}
	default:
		v.addError(path+".backend", "backend must be memory or redis")
	}

	if cache.TTL < 0 {
		v.addError(path+".ttl", "ttl cannot be negative")
	}
	if cache.MaxEntries < 0 {
		v.addError(path+".maxEntries", "maxEntries cannot be negative")
	}
}

func (v *Validator) validateCORS(cors *CORSConfig, path string) {
	if cors.MaxAge < 0 {
		v.addError(path+".maxAge", "maxAge cannot be negative")
	}
	if cors.AllowCredentials {
		for _, origin := range cors.AllowOrigins {
			if origin == "*" {
				v.addError(path+".allowOrigins",
					"wildcard origin cannot be combined with allowCredentials")
				break
			}
		}
	}
}

func (v *Validator) validateRequestLimits(limits *RequestLimitsConfig, path string) {
	if limits.MaxBodySize < 0 {
		v.addError(path+".maxBodySize", "maxBodySize cannot be negative")
	}
	if limits.MaxHeaderSize < 0 {
		v.addError(path+".maxHeaderSize", "maxHeaderSize cannot be negative")
	}
}

func (v *Validator) validateObservability(obs *ObservabilityConfig, path string) {
	if obs.Logging != nil {
		switch obs.Logging.Level {
		case "", "debug", "info", "warn", "warning", "error":
		default:
			v.addError(path+".logging.level", fmt.Sprintf("unknown log level: %s", obs.Logging.Level))
		}
		switch obs.Logging.Format {
		case "", "json", "console":
		default:
			v.addError(path+".logging.format", fmt.Sprintf("unknown log format: %s", obs.Logging.Format))
		}
	}

	if obs.Metrics != nil && obs.Metrics.Path != "" && !strings.HasPrefix(obs.Metrics.Path, "/") {
		v.addError(path+".metrics.path", "metrics path must start with /")
	}

	if obs.Tracing != nil {
		if obs.Tracing.SamplingRate < 0 || obs.Tracing.SamplingRate > 1 {
			v.addError(path+".tracing.samplingRate", "samplingRate must be between 0 and 1")
		}
	}
}

func (v *Validator) validateAdmin(admin *AdminConfig, path string) {
	if err := util.ValidatePort(admin.Port); err != nil {
		v.addError(path+".port", err.Error())
	}
	if admin.Bind != "" {
		if err := util.ValidateIPAddress(admin.Bind); err != nil {
			v.addError(path+".bind", err.Error())
		}
	}
}

func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{Path: path, Message: message})
}
