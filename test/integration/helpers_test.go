//go:build integration
// +build integration

package integration

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerospeak/stranglergw/internal/cache"
	"github.com/zerospeak/stranglergw/internal/config"
	"github.com/zerospeak/stranglergw/internal/gateway"
	"github.com/zerospeak/stranglergw/internal/middleware"
)

// freePort reserves an ephemeral port and releases it for the caller. The
// configuration loader rejects port 0, so listeners need a concrete port.
func freePort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

// echoUpstream serves a backend that reflects the request back: the body is
// echoed verbatim and method, path, and query are reported in headers.
func echoUpstream(t *testing.T, id string) (*httptest.Server, int) {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Upstream", id)
		w.Header().Set("X-Echo-Method", r.Method)
		w.Header().Set("X-Echo-Path", r.URL.Path)
		w.Header().Set("X-Echo-Query", r.URL.RawQuery)
		w.Header().Set("X-Echo-Tenant", r.Header.Get("X-Tenant"))
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)

	return srv, serverPort(t, srv)
}

func serverPort(t *testing.T, srv *httptest.Server) int {
	t.Helper()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return port
}

// writeConfig writes YAML into a temp directory and returns the file path.
func writeConfig(t *testing.T, yaml string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
	return path
}

// loadConfig loads and validates a config file the way the binary does.
func loadConfig(t *testing.T, path string) *config.GatewayConfig {
	t.Helper()

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, config.ValidateConfig(cfg))
	return cfg
}

// startGateway builds a gateway from cfg, starts it, and returns it with
// its base URL. Stop is registered as cleanup.
func startGateway(t *testing.T, cfg *config.GatewayConfig, opts ...gateway.Option) (*gateway.Gateway, string) {
	t.Helper()

	gw, err := gateway.New(cfg, opts...)
	require.NoError(t, err)

	require.NoError(t, gw.Start(context.Background()))
	t.Cleanup(func() {
		if gw.IsRunning() {
			assert.NoError(t, gw.Stop(context.Background()))
		}
	})

	return gw, "http://" + gw.Addr()
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

// slowUpstream answers after the given delay.
func slowUpstream(t *testing.T, delay time.Duration) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(delay)
		_, _ = io.WriteString(w, "late")
	}))
	t.Cleanup(srv.Close)
	return srv
}

// newRateLimiter builds the rate limiter from config the way the binary
// does, with its janitor stopped on cleanup.
func newRateLimiter(t *testing.T, cfg *config.GatewayConfig) *middleware.RateLimiter {
	t.Helper()

	rl := middleware.NewRateLimiter(cfg.Spec.RateLimit)
	require.NotNil(t, rl)
	t.Cleanup(rl.Stop)
	return rl
}

// newCacheStore builds the cache backend from config the way the binary
// does, closed on cleanup.
func newCacheStore(t *testing.T, cfg *config.GatewayConfig) cache.Cache {
	t.Helper()

	store, err := cache.New(cfg.Spec.Cache)
	require.NoError(t, err)
	require.NotNil(t, store)
	t.Cleanup(func() { _ = store.Close() })
	return store
}
