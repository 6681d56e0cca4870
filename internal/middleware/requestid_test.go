package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerospeak/stranglergw/internal/util"
)

func TestRequestID_GeneratesWhenMissing(t *testing.T) {
	t.Parallel()

	var ctxID string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = util.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	headerID := rec.Header().Get(HeaderRequestID)
	require.NotEmpty(t, headerID)
	assert.Equal(t, headerID, ctxID)

	_, err := uuid.Parse(headerID)
	assert.NoError(t, err)
}

func TestRequestID_ReusesInboundHeader(t *testing.T) {
	t.Parallel()

	var ctxID string
	handler := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = util.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "upstream-trace-7")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "upstream-trace-7", ctxID)
	assert.Equal(t, "upstream-trace-7", rec.Header().Get(HeaderRequestID))
}

func TestRequestIDWithGenerator(t *testing.T) {
	t.Parallel()

	handler := RequestIDWithGenerator(func() string { return "fixed-id" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "fixed-id", rec.Header().Get(HeaderRequestID))
}
