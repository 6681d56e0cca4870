// Package main is the entry point for the strangler gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/zerospeak/stranglergw/internal/admin"
	"github.com/zerospeak/stranglergw/internal/breaker"
	"github.com/zerospeak/stranglergw/internal/cache"
	"github.com/zerospeak/stranglergw/internal/config"
	"github.com/zerospeak/stranglergw/internal/gateway"
	"github.com/zerospeak/stranglergw/internal/health"
	"github.com/zerospeak/stranglergw/internal/middleware"
	"github.com/zerospeak/stranglergw/internal/observability"
)

// defaultMetricsNamespace prefixes every metric name.
const defaultMetricsNamespace = "stranglergw"

// Version information (set at build time).
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// cliFlags holds command line flags.
type cliFlags struct {
	configPath  string
	logLevel    string
	logFormat   string
	watchConfig bool
	showVersion bool
}

func main() {
	flags := parseFlags()

	if flags.showVersion {
		printVersion()
		return
	}

	logger := initLogger(flags)
	defer func() { _ = logger.Sync() }()

	cfg := loadAndValidateConfig(flags.configPath, logger)
	app := initApplication(cfg, logger)

	runGateway(app, flags, logger)
}

// parseFlags parses command line flags, falling back to environment
// variables before the built-in defaults.
func parseFlags() cliFlags {
	configPath := flag.String("config", getEnvOrDefault("STRANGLERGW_CONFIG_PATH", "configs/gateway.yaml"),
		"Path to configuration file")
	logLevel := flag.String("log-level", getEnvOrDefault("STRANGLERGW_LOG_LEVEL", "info"),
		"Log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", getEnvOrDefault("STRANGLERGW_LOG_FORMAT", "json"),
		"Log format (json, console)")
	watchConfig := flag.Bool("watch", getEnvOrDefault("STRANGLERGW_WATCH_CONFIG", "true") == "true",
		"Reload the configuration when the file changes")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	return cliFlags{
		configPath:  *configPath,
		logLevel:    *logLevel,
		logFormat:   *logFormat,
		watchConfig: *watchConfig,
		showVersion: *showVersion,
	}
}

// printVersion prints version information and exits.
func printVersion() {
	fmt.Printf("stranglergw version %s\n", version)
	fmt.Printf("  Build time: %s\n", buildTime)
	fmt.Printf("  Git commit: %s\n", gitCommit)
}

// initLogger initializes the logger and installs it globally.
func initLogger(flags cliFlags) observability.Logger {
	logger, err := observability.NewLogger(observability.LogConfig{
		Level:  flags.logLevel,
		Format: flags.logFormat,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	observability.SetGlobalLogger(logger)
	return logger
}

// loadAndValidateConfig loads and validates the configuration.
func loadAndValidateConfig(configPath string, logger observability.Logger) *config.GatewayConfig {
	logger.Info("starting stranglergw",
		observability.String("version", version),
		observability.String("config", configPath),
	)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", observability.Error(err))
	}

	if err := config.ValidateConfig(cfg); err != nil {
		logger.Fatal("invalid configuration", observability.Error(err))
	}

	logger.Info("configuration loaded",
		observability.String("name", cfg.Metadata.Name),
		observability.Int("routes", len(cfg.Spec.Routes)),
		observability.Int("clusters", len(cfg.Spec.Clusters)),
	)

	return cfg
}

// application holds all application components.
type application struct {
	gateway       *gateway.Gateway
	adminServer   *admin.Server
	healthChecker *health.Checker
	metrics       *observability.Metrics
	tracer        *observability.Tracer
	cacheStore    cache.Cache
	limiter       *middleware.RateLimiter
	config        *config.GatewayConfig
}

// initApplication initializes all application components.
func initApplication(cfg *config.GatewayConfig, logger observability.Logger) *application {
	if rl := cfg.Spec.RateLimit; rl != nil && len(rl.TrustedProxies) > 0 {
		middleware.SetGlobalIPExtractor(middleware.NewClientIPExtractor(rl.TrustedProxies))
	}

	metrics := observability.NewMetrics(metricsNamespace(cfg))
	tracer := initTracer(cfg, logger)
	healthChecker := health.NewChecker(version)

	cacheStore, err := cache.New(cfg.Spec.Cache, cache.WithCacheLogger(logger))
	if err != nil {
		logger.Fatal("failed to initialize cache", observability.Error(err))
	}
	if cacheStore != nil {
		healthChecker.RegisterCheck("cache", health.ErrorCheck(func(ctx context.Context) error {
			_, existsErr := cacheStore.Exists(ctx, "healthcheck")
			return existsErr
		}))
	}

	breakers := breaker.NewRegistry(cfg.Spec.CircuitBreaker,
		breaker.WithLogger(logger),
		breaker.WithMetrics(metrics),
	)

	limiter := middleware.NewRateLimiter(cfg.Spec.RateLimit,
		middleware.WithRateLimiterLogger(logger),
		middleware.WithRateLimiterMetrics(metrics),
	)

	gw, err := gateway.New(cfg,
		gateway.WithLogger(logger),
		gateway.WithMetrics(metrics),
		gateway.WithTracer(tracer),
		gateway.WithCache(cacheStore),
		gateway.WithBreakers(breakers),
		gateway.WithRateLimiter(limiter),
		gateway.WithHealthChecker(healthChecker),
	)
	if err != nil {
		logger.Fatal("failed to create gateway", observability.Error(err))
	}

	return &application{
		gateway:       gw,
		adminServer:   initAdminServer(cfg, gw, healthChecker, metrics, logger),
		healthChecker: healthChecker,
		metrics:       metrics,
		tracer:        tracer,
		cacheStore:    cacheStore,
		limiter:       limiter,
		config:        cfg,
	}
}

// initTracer initializes the tracer from the observability section.
func initTracer(cfg *config.GatewayConfig, logger observability.Logger) *observability.Tracer {
	tracerCfg := observability.TracerConfig{
		ServiceName:  "stranglergw",
		Enabled:      false,
		SamplingRate: 1.0,
	}

	if obs := cfg.Spec.Observability; obs != nil && obs.Tracing != nil {
		tracerCfg.Enabled = obs.Tracing.Enabled
		tracerCfg.SamplingRate = obs.Tracing.SamplingRate
		tracerCfg.OTLPEndpoint = obs.Tracing.OTLPEndpoint
		if obs.Tracing.ServiceName != "" {
			tracerCfg.ServiceName = obs.Tracing.ServiceName
		}
	}

	tracer, err := observability.NewTracer(tracerCfg)
	if err != nil {
		logger.Fatal("failed to initialize tracer", observability.Error(err))
	}

	return tracer
}

// initAdminServer builds the ops server, or returns nil when disabled.
func initAdminServer(
	cfg *config.GatewayConfig,
	gw *gateway.Gateway,
	healthChecker *health.Checker,
	metrics *observability.Metrics,
	logger observability.Logger,
) *admin.Server {
	adminCfg := cfg.Spec.Admin
	if adminCfg == nil || !adminCfg.Enabled {
		return nil
	}

	opts := []admin.Option{
		admin.WithAdminLogger(logger),
		admin.WithChecker(healthChecker),
		admin.WithConfigSnapshot(gw.Config),
	}

	if metricsEnabled(cfg) {
		opts = append(opts, admin.WithMetrics(metrics))
		if obs := cfg.Spec.Observability; obs != nil && obs.Metrics != nil && obs.Metrics.Path != "" {
			opts = append(opts, admin.WithMetricsPath(obs.Metrics.Path))
		}
	}

	return admin.New(adminCfg, opts...)
}

// metricsEnabled reports whether the metrics endpoint should be exposed.
// Absent configuration means exposed.
func metricsEnabled(cfg *config.GatewayConfig) bool {
	obs := cfg.Spec.Observability
	if obs == nil || obs.Metrics == nil {
		return true
	}
	return obs.Metrics.Enabled
}

// metricsNamespace returns the configured metric name prefix.
func metricsNamespace(cfg *config.GatewayConfig) string {
	if obs := cfg.Spec.Observability; obs != nil && obs.Metrics != nil && obs.Metrics.Namespace != "" {
		return obs.Metrics.Namespace
	}
	return defaultMetricsNamespace
}

// runGateway starts everything and blocks until shutdown.
func runGateway(app *application, flags cliFlags, logger observability.Logger) {
	ctx := context.Background()

	if err := app.gateway.Start(ctx); err != nil {
		logger.Fatal("failed to start gateway", observability.Error(err))
	}

	if app.adminServer != nil {
		go func() {
			if err := app.adminServer.Start(); err != nil {
				logger.Error("admin server error", observability.Error(err))
			}
		}()
	}

	var watcher *config.Watcher
	if flags.watchConfig {
		watcher = startConfigWatcher(app, flags.configPath, logger)
	}

	waitForShutdown(app, watcher, logger)
}

// startConfigWatcher starts the configuration watcher. Watch failures are
// not fatal; the gateway keeps serving the loaded configuration.
func startConfigWatcher(
	app *application,
	configPath string,
	logger observability.Logger,
) *config.Watcher {
	watcher, err := config.NewWatcher(configPath,
		func(newCfg *config.GatewayConfig) {
			logger.Info("configuration changed, reloading")
			if reloadErr := app.gateway.Reload(newCfg); reloadErr != nil {
				logger.Error("failed to reload configuration", observability.Error(reloadErr))
			}
		},
		config.WithLogger(logger),
		config.WithErrorCallback(func(err error) {
			logger.Error("configuration change rejected", observability.Error(err))
		}),
	)
	if err != nil {
		logger.Warn("failed to create config watcher", observability.Error(err))
		return nil
	}

	if err := watcher.Start(context.Background()); err != nil {
		logger.Warn("failed to start config watcher", observability.Error(err))
	}

	return watcher
}

// waitForShutdown waits for a shutdown signal and stops everything in
// dependency order.
func waitForShutdown(app *application, watcher *config.Watcher, logger observability.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", observability.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.DefaultShutdownTimeout)
	defer cancel()

	if watcher != nil {
		_ = watcher.Stop()
	}

	if err := app.gateway.Stop(shutdownCtx); err != nil {
		logger.Error("failed to stop gateway gracefully", observability.Error(err))
	}

	if app.adminServer != nil {
		if err := app.adminServer.Stop(shutdownCtx); err != nil {
			logger.Error("failed to stop admin server", observability.Error(err))
		}
	}

	if app.limiter != nil {
		app.limiter.Stop()
	}

	if app.cacheStore != nil {
		if err := app.cacheStore.Close(); err != nil {
			logger.Error("failed to close cache", observability.Error(err))
		}
	}

	if err := app.tracer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown tracer", observability.Error(err))
	}

	logger.Info("gateway stopped")
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
