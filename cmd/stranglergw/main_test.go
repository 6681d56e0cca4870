package main

import (
	"flag"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerospeak/stranglergw/internal/config"
	"github.com/zerospeak/stranglergw/internal/observability"
)

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("STRANGLERGW_TEST_KEY", "from-env")

	assert.Equal(t, "from-env", getEnvOrDefault("STRANGLERGW_TEST_KEY", "fallback"))
	assert.Equal(t, "fallback", getEnvOrDefault("STRANGLERGW_TEST_MISSING", "fallback"))
}

// parseFlags registers on the global FlagSet, so each call gets a fresh one.
func TestParseFlags_EnvFallback(t *testing.T) {
	t.Setenv("STRANGLERGW_CONFIG_PATH", "/etc/stranglergw/gateway.yaml")
	t.Setenv("STRANGLERGW_LOG_LEVEL", "debug")
	t.Setenv("STRANGLERGW_WATCH_CONFIG", "false")

	oldCommandLine := flag.CommandLine
	oldArgs := os.Args
	t.Cleanup(func() {
		flag.CommandLine = oldCommandLine
		os.Args = oldArgs
	})

	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	os.Args = []string{"stranglergw"}

	flags := parseFlags()
	assert.Equal(t, "/etc/stranglergw/gateway.yaml", flags.configPath)
	assert.Equal(t, "debug", flags.logLevel)
	assert.Equal(t, "json", flags.logFormat)
	assert.False(t, flags.watchConfig)
	assert.False(t, flags.showVersion)

	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	os.Args = []string{"stranglergw", "-log-format=console", "-version"}

	flags = parseFlags()
	assert.Equal(t, "console", flags.logFormat)
	assert.True(t, flags.showVersion)
}

func TestMetricsNamespace(t *testing.T) {
	t.Parallel()

	cfg := &config.GatewayConfig{}
	assert.Equal(t, "stranglergw", metricsNamespace(cfg))

	cfg.Spec.Observability = &config.ObservabilityConfig{
		Metrics: &config.MetricsConfig{Namespace: "edge"},
	}
	assert.Equal(t, "edge", metricsNamespace(cfg))
}

func TestMetricsEnabled(t *testing.T) {
	t.Parallel()

	cfg := &config.GatewayConfig{}
	assert.True(t, metricsEnabled(cfg))

	cfg.Spec.Observability = &config.ObservabilityConfig{Metrics: &config.MetricsConfig{}}
	assert.False(t, metricsEnabled(cfg))

	cfg.Spec.Observability.Metrics.Enabled = true
	assert.True(t, metricsEnabled(cfg))
}

func TestInitAdminServer_Disabled(t *testing.T) {
	t.Parallel()

	cfg := &config.GatewayConfig{}
	assert.Nil(t, initAdminServer(cfg, nil, nil, nil, observability.NopLogger()))

	cfg.Spec.Admin = &config.AdminConfig{Enabled: false}
	assert.Nil(t, initAdminServer(cfg, nil, nil, nil, observability.NopLogger()))
}

func TestInitTracer_DisabledByDefault(t *testing.T) {
	t.Parallel()

	tracer := initTracer(&config.GatewayConfig{}, observability.NopLogger())
	require.NotNil(t, tracer)
}
