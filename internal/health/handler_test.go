package health

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	c := NewChecker("2.0.0")

	rec := httptest.NewRecorder()
	c.HealthHandler()(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "2.0.0", resp.Version)
}

func TestReadinessHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		check      CheckFunc
		wantStatus int
		wantBody   Status
	}{
		{
			name:       "ready",
			check:      func(context.Context) Check { return Check{Status: StatusHealthy} },
			wantStatus: http.StatusOK,
			wantBody:   StatusHealthy,
		},
		{
			name:       "degraded still ready",
			check:      func(context.Context) Check { return Check{Status: StatusDegraded} },
			wantStatus: http.StatusOK,
			wantBody:   StatusDegraded,
		},
		{
			name:       "unhealthy answers 503",
			check:      func(context.Context) Check { return Check{Status: StatusUnhealthy, Message: "down"} },
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewChecker("dev")
			c.RegisterCheck("probe", tt.check)

			rec := httptest.NewRecorder()
			c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)

			var resp ReadinessResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantBody, resp.Status)
			assert.Contains(t, resp.Checks, "probe")
		})
	}
}

func TestLivenessHandler(t *testing.T) {
	t.Parallel()

	c := NewChecker("dev")

	rec := httptest.NewRecorder()
	c.LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestTCPCheck(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()

	up := TCPCheck(ln.Addr().String())
	assert.Equal(t, StatusHealthy, up(context.Background()).Status)

	// A closed listener's port refuses connections.
	dead, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := dead.Addr().String()
	require.NoError(t, dead.Close())

	down := TCPCheck(addr)
	got := down(context.Background())
	assert.Equal(t, StatusUnhealthy, got.Status)
	assert.NotEmpty(t, got.Message)
}

func TestHTTPCheck(t *testing.T) {
	t.Parallel()

	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(healthy.Close)

	assert.Equal(t, StatusHealthy, HTTPCheck(healthy.URL)(context.Background()).Status)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(failing.Close)

	got := HTTPCheck(failing.URL)(context.Background())
	assert.Equal(t, StatusUnhealthy, got.Status)
	assert.Contains(t, got.Message, "500")
}
