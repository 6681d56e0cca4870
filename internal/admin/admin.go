// Package admin serves the operational endpoints on a port separate from
// the data plane: Prometheus metrics, health probes, and a read-only
// introspection API that reports the loaded routing tables.
package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zerospeak/stranglergw/internal/config"
	"github.com/zerospeak/stranglergw/internal/health"
	"github.com/zerospeak/stranglergw/internal/observability"
)

// DefaultMetricsPath is where metrics are scraped unless configured.
const DefaultMetricsPath = "/metrics"

// ginModeOnce guards the global gin mode switch.
//
//nolint:gochecknoglobals // gin mode is process-global
var ginModeOnce sync.Once

// SnapshotFunc returns the currently loaded configuration. The gateway
// swaps the snapshot on reload, so the admin API always reports the tables
// the data plane is using.
type SnapshotFunc func() *config.GatewayConfig

// Server is the ops HTTP server.
type Server struct {
	cfg    *config.AdminConfig
	logger observability.Logger

	metrics     *observability.Metrics
	metricsPath string
	checker     *health.Checker
	snapshot    SnapshotFunc

	engine     *gin.Engine
	httpServer *http.Server

	mu      sync.Mutex
	running bool
}

// Option configures the admin server.
type Option func(*Server)

// WithAdminLogger sets the logger.
func WithAdminLogger(logger observability.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics exposes the metrics registry on the metrics path.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithMetricsPath overrides the scrape path.
func WithMetricsPath(path string) Option {
	return func(s *Server) {
		if path != "" {
			s.metricsPath = path
		}
	}
}

// WithChecker mounts the health endpoints.
func WithChecker(c *health.Checker) Option {
	return func(s *Server) {
		s.checker = c
	}
}

// WithConfigSnapshot mounts the read-only introspection API.
func WithConfigSnapshot(fn SnapshotFunc) Option {
	return func(s *Server) {
		s.snapshot = fn
	}
}

// New builds the admin server. Endpoints are mounted only for the
// dependencies provided through options.
func New(cfg *config.AdminConfig, opts ...Option) *Server {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	s := &Server{
		cfg:         cfg,
		logger:      observability.NopLogger(),
		metricsPath: DefaultMetricsPath,
		engine:      gin.New(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.engine.Use(gin.Recovery())
	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	if s.metrics != nil {
		s.engine.GET(s.metricsPath, gin.WrapH(s.metrics.Handler()))
	}

	if s.checker != nil {
		s.engine.GET("/health", gin.WrapF(s.checker.HealthHandler()))
		s.engine.GET("/ready", gin.WrapF(s.checker.ReadinessHandler()))
		s.engine.GET("/live", gin.WrapF(s.checker.LivenessHandler()))
	}

	if s.snapshot != nil {
		group := s.engine.Group("/admin")
		group.GET("/routes", s.listRoutes)
		group.GET("/clusters", s.listClusters)
		group.GET("/config", s.showConfig)
	}
}

// Handler returns the underlying handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the configured bind address.
func (s *Server) Addr() string {
	return s.cfg.Addr()
}

// Start serves until Stop is called. It blocks, so run it in its own
// goroutine.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("admin server already running")
	}

	s.httpServer = &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("admin server listening", observability.String("address", s.cfg.Addr()))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("admin server: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	srv := s.httpServer
	s.mu.Unlock()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("admin server shutdown: %w", err)
	}
	return nil
}

// routeView is the wire form of one route table entry.
type routeView struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Cluster  string `json:"cluster"`
	Timeout  string `json:"timeout,omitempty"`
	Wildcard bool   `json:"wildcard"`
}

// clusterView is the wire form of one cluster entry.
type clusterView struct {
	Name   string `json:"name"`
	Scheme string `json:"scheme"`
	Host   string `json:"host"`
	Port   int    `json:"port"`
	URL    string `json:"url"`
}

func (s *Server) listRoutes(c *gin.Context) {
	cfg := s.snapshot()
	if cfg == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "configuration not loaded"})
		return
	}

	views := make([]routeView, 0, len(cfg.Spec.Routes))
	for i := range cfg.Spec.Routes {
		r := &cfg.Spec.Routes[i]
		view := routeView{
			Name:     r.Name,
			Path:     r.Path,
			Cluster:  r.Cluster,
			Wildcard: r.IsWildcard(),
		}
		if r.Timeout > 0 {
			view.Timeout = r.Timeout.Duration().String()
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{"routes": views})
}

func (s *Server) listClusters(c *gin.Context) {
	cfg := s.snapshot()
	if cfg == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "configuration not loaded"})
		return
	}

	views := make([]clusterView, 0, len(cfg.Spec.Clusters))
	for i := range cfg.Spec.Clusters {
		cl := &cfg.Spec.Clusters[i]
		views = append(views, clusterView{
			Name:   cl.Name,
			Scheme: cl.GetEffectiveScheme(),
			Host:   cl.Host,
			Port:   cl.Port,
			URL:    cl.URL(),
		})
	}

	c.JSON(http.StatusOK, gin.H{"clusters": views})
}

func (s *Server) showConfig(c *gin.Context) {
	cfg := s.snapshot()
	if cfg == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "configuration not loaded"})
		return
	}

	c.JSON(http.StatusOK, redactedConfig(cfg))
}

// redactedConfig strips credentials from connection URLs before they leave
// the process.
func redactedConfig(cfg *config.GatewayConfig) *config.GatewayConfig {
	out := *cfg

	if cache := cfg.Spec.Cache; cache != nil && cache.Redis != nil && cache.Redis.URL != "" {
		if u, err := url.Parse(cache.Redis.URL); err == nil && u.User != nil {
			cacheCopy := *cache
			redisCopy := *cache.Redis
			redisCopy.URL = u.Redacted()
			cacheCopy.Redis = &redisCopy
			out.Spec.Cache = &cacheCopy
		}
	}

	return &out
}
