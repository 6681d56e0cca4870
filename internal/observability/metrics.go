package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zerospeak/stranglergw/internal/util"
)

// UnmatchedRoute is the route label value recorded for requests that matched
// no configured route. Using a fixed value keeps label cardinality bounded
// regardless of what paths clients probe.
const UnmatchedRoute = "unmatched"

// Metrics holds the gateway's Prometheus metrics on a private registry.
// All methods are safe on a nil receiver, which disables recording.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	requestSizeBytes  *prometheus.HistogramVec
	responseSizeBytes *prometheus.HistogramVec
	requestsInFlight  prometheus.Gauge

	upstreamErrorsTotal *prometheus.CounterVec
	clusterUp           *prometheus.GaugeVec

	panicsRecoveredTotal   prometheus.Counter
	rateLimitRejectedTotal *prometheus.CounterVec

	breakerTransitionsTotal *prometheus.CounterVec
	breakerRejectedTotal    *prometheus.CounterVec

	cacheHitsTotal   *prometheus.CounterVec
	cacheMissesTotal *prometheus.CounterVec

	configReloadsTotal *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance with all collectors registered on a
// fresh registry, including the standard Go and process collectors.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "stranglergw"
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of requests handled by the gateway",
			},
			[]string{"method", "route", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request duration from receipt to response completion",
				Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		requestSizeBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_size_bytes",
				Help:      "Inbound request body size",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "route"},
		),
		responseSizeBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "response_size_bytes",
				Help:      "Response body size",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "route"},
		),
		requestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being handled",
			},
		),
		upstreamErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_errors_total",
				Help:      "Failed upstream round trips by cluster and reason",
			},
			[]string{"cluster", "reason"},
		),
		clusterUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "cluster_up",
				Help:      "Cluster reachability as seen by the TCP probe (1 up, 0 down)",
			},
			[]string{"cluster"},
		),
		panicsRecoveredTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "panics_recovered_total",
				Help:      "Panics recovered by the recovery middleware",
			},
		),
		rateLimitRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_rejected_total",
				Help:      "Requests rejected by rate limiting",
			},
			[]string{"route"},
		),
		breakerTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_transitions_total",
				Help:      "Circuit breaker state transitions by cluster",
			},
			[]string{"cluster", "from", "to"},
		),
		breakerRejectedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_rejected_total",
				Help:      "Requests rejected by an open circuit breaker",
			},
			[]string{"cluster"},
		),
		cacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Response cache hits by route",
			},
			[]string{"route"},
		),
		cacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Response cache misses by route",
			},
			[]string{"route"},
		),
		configReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "config_reloads_total",
				Help:      "Configuration reload attempts by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.requestSizeBytes,
		m.responseSizeBytes,
		m.requestsInFlight,
		m.upstreamErrorsTotal,
		m.clusterUp,
		m.panicsRecoveredTotal,
		m.rateLimitRejectedTotal,
		m.breakerTransitionsTotal,
		m.breakerRejectedTotal,
		m.cacheHitsTotal,
		m.cacheMissesTotal,
		m.configReloadsTotal,
	)

	return m
}

// RecordRequest records one completed request.
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration, reqSize, respSize int64) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.requestsTotal.WithLabelValues(method, route, code).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
	if reqSize > 0 {
		m.requestSizeBytes.WithLabelValues(method, route).Observe(float64(reqSize))
	}
	if respSize > 0 {
		m.responseSizeBytes.WithLabelValues(method, route).Observe(float64(respSize))
	}
}

// RecordUpstreamError records a failed upstream round trip.
func (m *Metrics) RecordUpstreamError(cluster, reason string) {
	if m == nil {
		return
	}
	m.upstreamErrorsTotal.WithLabelValues(cluster, reason).Inc()
}

// SetClusterUp records cluster reachability as observed by the probe.
func (m *Metrics) SetClusterUp(cluster string, up bool) {
	if m == nil {
		return
	}
	v := 0.0
	if up {
		v = 1.0
	}
	m.clusterUp.WithLabelValues(cluster).Set(v)
}

// RecordPanic records a recovered panic.
func (m *Metrics) RecordPanic() {
	if m == nil {
		return
	}
	m.panicsRecoveredTotal.Inc()
}

// RecordRateLimitRejected records a rate-limited request.
func (m *Metrics) RecordRateLimitRejected(route string) {
	if m == nil {
		return
	}
	m.rateLimitRejectedTotal.WithLabelValues(route).Inc()
}

// RecordBreakerTransition records a circuit breaker state change.
func (m *Metrics) RecordBreakerTransition(cluster, from, to string) {
	if m == nil {
		return
	}
	m.breakerTransitionsTotal.WithLabelValues(cluster, from, to).Inc()
}

// RecordBreakerRejected records a request rejected by an open breaker.
func (m *Metrics) RecordBreakerRejected(cluster string) {
	if m == nil {
		return
	}
	m.breakerRejectedTotal.WithLabelValues(cluster).Inc()
}

// RecordCacheHit records a response cache hit.
func (m *Metrics) RecordCacheHit(route string) {
	if m == nil {
		return
	}
	m.cacheHitsTotal.WithLabelValues(route).Inc()
}

// RecordCacheMiss records a response cache miss.
func (m *Metrics) RecordCacheMiss(route string) {
	if m == nil {
		return
	}
	m.cacheMissesTotal.WithLabelValues(route).Inc()
}

// RecordConfigReload records a configuration reload attempt.
func (m *Metrics) RecordConfigReload(result string) {
	if m == nil {
		return
	}
	m.configReloadsTotal.WithLabelValues(result).Inc()
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry exposes the underlying registry, primarily for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Middleware instruments the wrapped handler: in-flight gauge, request
// counter, duration and size histograms. The route label is read from the
// request context after the handler ran, so it reflects the resolved route.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			m.requestsInFlight.Inc()
			defer m.requestsInFlight.Dec()

			sw := util.NewStatusWriter(w)
			next.ServeHTTP(sw, r)

			route := util.RouteFromContext(r.Context())
			if route == "" {
				route = UnmatchedRoute
			}
			m.RecordRequest(r.Method, route, sw.Status, time.Since(start), r.ContentLength, sw.BytesWritten)
		})
	}
}
