// Package breaker provides per-cluster circuit breaking around upstream
// round trips.
package breaker

import (
	"context"
	"errors"
	"sync"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zerospeak/stranglergw/internal/config"
	"github.com/zerospeak/stranglergw/internal/observability"
	"github.com/zerospeak/stranglergw/internal/util"
)

// breakerTracer is the OTEL tracer used for circuit breaker operations.
var breakerTracer = otel.Tracer("stranglergw/breaker")

// failureRatioThreshold is the failure ratio at which a breaker trips once
// the minimum request count is reached.
const failureRatioThreshold = 0.5

// Breaker wraps a gobreaker.CircuitBreaker for one cluster. A nil Breaker
// executes requests directly, which is how disabled breaking is modeled.
type Breaker struct {
	cluster string
	cb      *gobreaker.CircuitBreaker
	metrics *observability.Metrics
}

// Execute runs fn under the breaker. When the breaker is open or half-open
// capacity is exhausted, fn is not called and the returned error matches
// util.ErrCircuitOpen.
func (b *Breaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	if b == nil {
		return fn()
	}

	v, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.metrics.RecordBreakerRejected(b.cluster)
		return v, util.ErrCircuitOpen
	}
	return v, err
}

// State returns the current breaker state as a string.
func (b *Breaker) State() string {
	if b == nil {
		return "disabled"
	}
	return b.cb.State().String()
}

// Registry creates and caches one breaker per cluster. A nil Registry hands
// out nil breakers, so callers never branch on whether breaking is enabled.
type Registry struct {
	cfg     *config.CircuitBreakerConfig
	logger  observability.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// RegistryOption is a functional option for configuring the registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger for breaker state change events.
func WithLogger(logger observability.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithMetrics sets the metrics recorder for breaker events.
func WithMetrics(metrics *observability.Metrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = metrics
	}
}

// NewRegistry creates a breaker registry from configuration. Returns nil
// when breaking is disabled.
func NewRegistry(cfg *config.CircuitBreakerConfig, opts ...RegistryOption) *Registry {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	r := &Registry{
		cfg:      cfg,
		logger:   observability.NopLogger(),
		breakers: make(map[string]*Breaker),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Get returns the breaker for a cluster, creating it on first use.
func (r *Registry) Get(cluster string) *Breaker {
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[cluster]; ok {
		return b
	}

	b := r.newBreaker(cluster)
	r.breakers[cluster] = b
	return b
}

// newBreaker builds a breaker with the registry's settings. Callers hold mu.
func (r *Registry) newBreaker(cluster string) *Breaker {
	minRequests := safeIntToUint32(r.cfg.GetEffectiveMinRequests())

	b := &Breaker{
		cluster: cluster,
		metrics: r.metrics,
	}

	settings := gobreaker.Settings{
		Name:        cluster,
		MaxRequests: safeIntToUint32(r.cfg.GetEffectiveHalfOpenRequests()),
		Interval:    r.cfg.GetEffectiveInterval().Duration(),
		Timeout:     r.cfg.GetEffectiveTimeout().Duration(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= minRequests && failureRatio >= failureRatioThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			r.logger.Info("circuit breaker state change",
				observability.String("cluster", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)

			r.metrics.RecordBreakerTransition(name, from.String(), to.String())

			// Record an OTEL span event so the transition shows up in
			// traces that crossed it.
			_, span := breakerTracer.Start(context.Background(),
				"breaker.state_change",
				trace.WithSpanKind(trace.SpanKindInternal),
			)
			span.AddEvent("state_change", trace.WithAttributes(
				attribute.String("breaker.cluster", name),
				attribute.String("breaker.from", from.String()),
				attribute.String("breaker.to", to.String()),
			))
			span.End()
		},
	}

	b.cb = gobreaker.NewCircuitBreaker(settings)
	return b
}

// safeIntToUint32 safely converts int to uint32.
func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}
