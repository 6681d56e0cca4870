package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerospeak/stranglergw/internal/util"
)

func TestNewTracer_Disabled(t *testing.T) {
	t.Parallel()

	tracer, err := NewTracer(TracerConfig{ServiceName: "stranglergw", Enabled: false})
	require.NoError(t, err)
	require.NotNil(t, tracer)

	ctx, span := tracer.StartSpan(context.Background(), "resolve")
	assert.NotNil(t, ctx)
	assert.NotNil(t, span)
	span.End()

	assert.NoError(t, tracer.Shutdown(context.Background()))
}

func TestNewTracer_EnabledWithoutEndpoint(t *testing.T) {
	t.Parallel()

	// No OTLP endpoint configured: a provider without an exporter is built
	// so sampling and span generation still work locally.
	tracer, err := NewTracer(TracerConfig{
		ServiceName:  "stranglergw-test",
		Enabled:      true,
		SamplingRate: 1.0,
	})
	require.NoError(t, err)

	_, span := tracer.StartSpan(context.Background(), "forward")
	span.End()

	assert.NoError(t, tracer.Shutdown(context.Background()))
}

func TestTracer_Middleware(t *testing.T) {
	t.Parallel()

	tracer, err := NewTracer(TracerConfig{ServiceName: "stranglergw", Enabled: false})
	require.NoError(t, err)

	handler := tracer.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		util.SetMatch(r.Context(), "legacy-all", "legacy")
		w.WriteHeader(http.StatusBadGateway)
	}))

	req := httptest.NewRequest(http.MethodGet, "/legacy/orders", nil)
	ctx, _ := util.ContextWithMatchState(req.Context())
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "legacy-all", util.RouteFromContext(ctx))
}

func TestNewSampler(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "AlwaysOnSampler", newSampler(1.0).Description())
	assert.Equal(t, "AlwaysOffSampler", newSampler(0).Description())
	assert.Contains(t, newSampler(0.5).Description(), "ParentBased")
}
