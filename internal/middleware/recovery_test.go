package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/zerospeak/stranglergw/internal/observability"
	"github.com/zerospeak/stranglergw/internal/util"
)

func TestRecovery_ConvertsPanicTo500(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.ErrorLevel)
	logger := observability.NewZapLogger(zap.New(core))

	handler := Recovery(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/users", nil)

	assert.NotPanics(t, func() {
		handler.ServeHTTP(rec, req)
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, ContentTypeJSON, rec.Header().Get(HeaderContentType))
	assert.JSONEq(t, ErrBodyInternal, rec.Body.String())

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "panic recovered", entries[0].Message)
	assert.Equal(t, "POST", entries[0].ContextMap()["method"])
	assert.Equal(t, "/api/users", entries[0].ContextMap()["path"])
	assert.Equal(t, "boom", entries[0].ContextMap()["panic"])
	assert.NotEmpty(t, entries[0].ContextMap()["stack"])
}

func TestRecovery_PassesThroughNormalResponses(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.ErrorLevel)
	logger := observability.NewZapLogger(zap.New(core))

	handler := Recovery(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("fine"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "fine", rec.Body.String())
	assert.Empty(t, logs.All())
}

func TestRecovery_DoesNotRewriteStartedResponse(t *testing.T) {
	t.Parallel()

	handler := Recovery(observability.NopLogger(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("partial"))
		panic("mid-stream")
	}))

	rec := httptest.NewRecorder()
	sw := util.NewStatusWriter(rec)
	handler.ServeHTTP(sw, httptest.NewRequest(http.MethodGet, "/", nil))

	// The 200 and partial body already went out; no 500 is appended.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "partial", rec.Body.String())
}

func TestRecovery_RecordsPanicMetric(t *testing.T) {
	t.Parallel()

	m := observability.NewMetrics("test")
	handler := Recovery(observability.NopLogger(), m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("counted")
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "test_panics_recovered_total 1")
}
