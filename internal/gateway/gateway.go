package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zerospeak/stranglergw/internal/breaker"
	"github.com/zerospeak/stranglergw/internal/cache"
	"github.com/zerospeak/stranglergw/internal/cluster"
	"github.com/zerospeak/stranglergw/internal/config"
	"github.com/zerospeak/stranglergw/internal/health"
	"github.com/zerospeak/stranglergw/internal/middleware"
	"github.com/zerospeak/stranglergw/internal/observability"
	"github.com/zerospeak/stranglergw/internal/proxy"
	"github.com/zerospeak/stranglergw/internal/router"
)

// Reload outcome labels for the config reload counter.
const (
	reloadSuccess = "success"
	reloadFailure = "failure"
)

// State represents the gateway lifecycle state.
type State int32

const (
	// StateStopped indicates the gateway is stopped.
	StateStopped State = iota
	// StateStarting indicates the gateway is starting.
	StateStarting
	// StateRunning indicates the gateway is running.
	StateRunning
	// StateStopping indicates the gateway is stopping.
	StateStopping
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Gateway owns the data plane: one listener serving the middleware chain,
// the routing table, and the cluster registry the table points into.
type Gateway struct {
	logger   observability.Logger
	metrics  *observability.Metrics
	tracer   *observability.Tracer
	cache    cache.Cache
	breakers *breaker.Registry
	limiter  *middleware.RateLimiter
	checker  *health.Checker

	router  *router.Router
	handler http.Handler

	// mu guards cfg, registry, and prober, all of which are replaced on
	// reload. reloadMu serializes whole reloads so a slow prober restart
	// never blocks readers of the swapped fields.
	mu       sync.RWMutex
	reloadMu sync.Mutex
	cfg      *config.GatewayConfig
	registry *cluster.Registry
	prober   *cluster.Prober

	listener *Listener

	state           atomic.Int32
	startTime       time.Time
	shutdownTimeout time.Duration
}

// Option is a functional option for configuring the gateway.
type Option func(*Gateway)

// WithLogger sets the logger for the gateway.
func WithLogger(logger observability.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithMetrics sets the metrics recorder wired through the middleware chain
// and the proxy.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = metrics
	}
}

// WithTracer enables the tracing middleware.
func WithTracer(tracer *observability.Tracer) Option {
	return func(g *Gateway) {
		g.tracer = tracer
	}
}

// WithCache enables the response cache middleware over the given store.
func WithCache(c cache.Cache) Option {
	return func(g *Gateway) {
		g.cache = c
	}
}

// WithBreakers sets the circuit breaker registry used by the proxy.
func WithBreakers(breakers *breaker.Registry) Option {
	return func(g *Gateway) {
		g.breakers = breakers
	}
}

// WithRateLimiter enables the rate limiting middleware.
func WithRateLimiter(limiter *middleware.RateLimiter) Option {
	return func(g *Gateway) {
		g.limiter = limiter
	}
}

// WithHealthChecker registers the gateway's cluster reachability check on
// the given checker.
func WithHealthChecker(checker *health.Checker) Option {
	return func(g *Gateway) {
		g.checker = checker
	}
}

// WithShutdownTimeout sets the graceful shutdown timeout applied when Stop
// is called without a deadline.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(g *Gateway) {
		g.shutdownTimeout = timeout
	}
}

// New creates a Gateway from an already loaded configuration. The cluster
// registry and routing table are built eagerly so configuration problems
// surface here rather than on the first request. Callers are expected to
// have validated the configuration; New only enforces what it cannot build
// without.
func New(cfg *config.GatewayConfig, opts ...Option) (*Gateway, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	if len(cfg.Spec.Listeners) != 1 {
		return nil, fmt.Errorf("%w: exactly one listener is required", ErrInvalidConfig)
	}

	g := &Gateway{
		cfg:             cfg,
		logger:          observability.NopLogger(),
		shutdownTimeout: config.DefaultShutdownTimeout,
	}

	for _, opt := range opts {
		opt(g)
	}

	registry, err := cluster.NewRegistry(cfg.Spec.Clusters,
		cluster.WithRegistryLogger(g.logger),
		cluster.WithRegistryUpstream(cfg.Spec.Upstream),
	)
	if err != nil {
		return nil, fmt.Errorf("build clusters: %w", err)
	}
	g.registry = registry

	table, err := router.Compile(cfg.Spec.Routes, registry)
	if err != nil {
		return nil, fmt.Errorf("compile routes: %w", err)
	}
	g.router = router.NewRouter(table)

	g.handler = g.buildHandler(cfg)

	if g.checker != nil {
		g.checker.RegisterCheck("clusters", g.clustersCheck())
	}

	g.state.Store(int32(StateStopped))

	return g, nil
}

// buildHandler assembles the middleware chain around the forwarding proxy.
// The first middleware listed is the outermost.
func (g *Gateway) buildHandler(cfg *config.GatewayConfig) http.Handler {
	spec := &cfg.Spec

	p := proxy.New(g.router,
		proxy.WithLogger(g.logger),
		proxy.WithMetrics(g.metrics),
		proxy.WithBreakers(g.breakers),
		proxy.WithDefaultTimeout(spec.Upstream.GetEffectiveTimeout()),
	)

	mws := []func(http.Handler) http.Handler{
		middleware.Recovery(g.logger, g.metrics),
		middleware.RequestID(),
		middleware.MatchContext(),
	}

	if accessLogEnabled(spec) {
		mws = append(mws, middleware.Logging(g.logger))
	}

	// Tracer, metrics, rate limiter, and cache middlewares degrade to
	// pass-throughs when their subsystem is absent.
	mws = append(mws,
		g.tracer.Middleware(),
		g.metrics.Middleware(),
		middleware.BodyLimitFromConfig(spec.RequestLimits, g.logger),
	)

	if spec.CORS != nil {
		mws = append(mws, middleware.CORS(spec.CORS))
	}

	mws = append(mws,
		g.limiter.Middleware(),
		middleware.Cache(g.cache, spec.Cache, g.logger, g.metrics),
	)

	return middleware.Chain(p, mws...)
}

func accessLogEnabled(spec *config.GatewaySpec) bool {
	return spec.Observability != nil &&
		spec.Observability.Logging != nil &&
		spec.Observability.Logging.AccessLog
}

// clustersCheck reports cluster reachability as seen by the probe loop.
// Some clusters down degrades readiness; all clusters down fails it.
func (g *Gateway) clustersCheck() health.CheckFunc {
	return func(_ context.Context) health.Check {
		reg := g.Registry()
		down := reg.Unreachable()

		switch {
		case reg.Len() == 0:
			return health.Check{Status: health.StatusHealthy, Message: "no clusters configured"}
		case len(down) == 0:
			return health.Check{
				Status:  health.StatusHealthy,
				Message: fmt.Sprintf("%d clusters reachable", reg.Len()),
			}
		case len(down) == reg.Len():
			return health.Check{
				Status:  health.StatusUnhealthy,
				Message: "all clusters unreachable: " + strings.Join(down, ", "),
			}
		default:
			return health.Check{
				Status:  health.StatusDegraded,
				Message: "clusters unreachable: " + strings.Join(down, ", "),
			}
		}
	}
}

// Start binds the listener and starts the cluster probe loop. The context
// is used for listener setup only; cancelling it after Start returns does
// not stop the gateway.
func (g *Gateway) Start(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(StateStopped), int32(StateStarting)) {
		return ErrGatewayNotStopped
	}

	cfg := g.Config()

	g.logger.Info("starting gateway",
		observability.String("name", cfg.Metadata.Name),
	)

	listener, err := NewListener(cfg.Spec.Listeners[0], g.handler,
		WithListenerLogger(g.logger),
		WithListenerMaxHeaderBytes(int(cfg.Spec.RequestLimits.GetEffectiveMaxHeaderSize())),
	)
	if err != nil {
		g.state.Store(int32(StateStopped))
		return fmt.Errorf("create listener: %w", err)
	}

	if err := listener.Start(ctx); err != nil {
		g.state.Store(int32(StateStopped))
		return fmt.Errorf("start listener: %w", err)
	}
	g.listener = listener

	g.mu.Lock()
	g.prober = g.newProber(g.registry)
	prober := g.prober
	g.mu.Unlock()
	prober.Start(context.Background()) //nolint:contextcheck // probe loop outlives the startup context

	g.startTime = time.Now()
	g.state.Store(int32(StateRunning))

	g.logger.Info("gateway started",
		observability.String("name", cfg.Metadata.Name),
		observability.String("address", listener.BoundAddr()),
		observability.Int("routes", g.router.Table().Len()),
		observability.Int("clusters", g.Registry().Len()),
	)

	return nil
}

// Stop drains the listener and stops the probe loop. Without a deadline on
// ctx the configured shutdown timeout is applied.
func (g *Gateway) Stop(ctx context.Context) error {
	if !g.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		return ErrGatewayNotRunning
	}

	g.logger.Info("stopping gateway")

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.shutdownTimeout)
		defer cancel()
	}

	g.mu.Lock()
	prober := g.prober
	g.prober = nil
	g.mu.Unlock()
	if prober != nil {
		prober.Stop()
	}

	var err error
	if g.listener != nil {
		err = g.listener.Stop(ctx)
	}

	g.Registry().CloseIdleConnections()

	g.state.Store(int32(StateStopped))

	g.logger.Info("gateway stopped")

	return err
}

// Reload applies a new configuration to the data plane. The new routing
// table and cluster registry are built and validated before anything is
// swapped, so a bad configuration leaves the gateway serving the previous
// one. Listener, admin, and middleware policy settings (rate limits, cache
// policy, CORS, body limits) are not reloadable; they apply on the next
// restart.
func (g *Gateway) Reload(cfg *config.GatewayConfig) error {
	g.reloadMu.Lock()
	defer g.reloadMu.Unlock()

	if cfg == nil {
		g.metrics.RecordConfigReload(reloadFailure)
		return ErrNilConfig
	}

	cfg.SetDefaults()
	if err := config.ValidateConfig(cfg); err != nil {
		g.metrics.RecordConfigReload(reloadFailure)
		return fmt.Errorf("%w: %s", ErrInvalidConfig, err)
	}

	registry, err := cluster.NewRegistry(cfg.Spec.Clusters,
		cluster.WithRegistryLogger(g.logger),
		cluster.WithRegistryUpstream(cfg.Spec.Upstream),
	)
	if err != nil {
		g.metrics.RecordConfigReload(reloadFailure)
		return fmt.Errorf("build clusters: %w", err)
	}

	table, err := router.Compile(cfg.Spec.Routes, registry)
	if err != nil {
		g.metrics.RecordConfigReload(reloadFailure)
		return fmt.Errorf("compile routes: %w", err)
	}

	g.mu.Lock()
	old := g.registry
	oldProber := g.prober
	g.registry = registry
	g.cfg = cfg
	g.mu.Unlock()

	g.router.Swap(table)

	// The probe loop holds the registry it was created with, so it is
	// restarted against the new one.
	if oldProber != nil {
		oldProber.Stop()
		prober := g.newProber(registry)
		g.mu.Lock()
		g.prober = prober
		g.mu.Unlock()
		prober.Start(context.Background())
	}

	if old != nil {
		old.CloseIdleConnections()
	}

	g.metrics.RecordConfigReload(reloadSuccess)

	g.logger.Info("configuration reloaded",
		observability.String("name", cfg.Metadata.Name),
		observability.Int("routes", len(cfg.Spec.Routes)),
		observability.Int("clusters", len(cfg.Spec.Clusters)),
	)

	return nil
}

func (g *Gateway) newProber(registry *cluster.Registry) *cluster.Prober {
	return cluster.NewProber(registry,
		cluster.WithProberLogger(g.logger),
		cluster.WithProberMetrics(g.metrics),
	)
}

// State returns the current gateway state.
func (g *Gateway) State() State {
	return State(g.state.Load())
}

// IsRunning reports whether the gateway is running.
func (g *Gateway) IsRunning() bool {
	return g.State() == StateRunning
}

// Uptime returns the time since the gateway last started.
func (g *Gateway) Uptime() time.Duration {
	if g.startTime.IsZero() {
		return 0
	}
	return time.Since(g.startTime)
}

// Config returns the currently applied configuration. The admin server uses
// it as its snapshot source.
func (g *Gateway) Config() *config.GatewayConfig {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.cfg
}

// Registry returns the current cluster registry.
func (g *Gateway) Registry() *cluster.Registry {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.registry
}

// Handler returns the assembled data plane handler.
func (g *Gateway) Handler() http.Handler {
	return g.handler
}

// Addr returns the listener's bound address, or empty before Start.
func (g *Gateway) Addr() string {
	if g.listener == nil {
		return ""
	}
	return g.listener.BoundAddr()
}
