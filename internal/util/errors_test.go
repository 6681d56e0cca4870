package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRouteNotFoundError(t *testing.T) {
	t.Parallel()

	err := NewRouteNotFoundError("/api/users/42")

	assert.Equal(t, "no route matches path /api/users/42", err.Error())
	assert.ErrorIs(t, err, ErrNoRoute)
	assert.NotErrorIs(t, err, ErrUpstreamUnreachable)
}

func TestRouteNotFoundError_Wrapped(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("dispatch failed: %w", NewRouteNotFoundError("/x"))

	assert.ErrorIs(t, err, ErrNoRoute)

	var rnf *RouteNotFoundError
	assert.ErrorAs(t, err, &rnf)
	assert.Equal(t, "/x", rnf.Path)
}

func TestUpstreamError(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	err := NewUpstreamError("legacy", "10.0.0.5:8080", cause)

	assert.Contains(t, err.Error(), "legacy")
	assert.Contains(t, err.Error(), "10.0.0.5:8080")
	assert.ErrorIs(t, err, ErrUpstreamUnreachable)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestUpstreamError_NilCause(t *testing.T) {
	t.Parallel()

	err := NewUpstreamError("modern", "127.0.0.1:9090", nil)

	assert.Equal(t, "upstream modern (127.0.0.1:9090) unreachable", err.Error())
	assert.Nil(t, errors.Unwrap(err))
}

func TestMalformedRequestError(t *testing.T) {
	t.Parallel()

	err := NewMalformedRequestError("request target must be origin-form")

	assert.Equal(t, "malformed request: request target must be origin-form", err.Error())
	assert.ErrorIs(t, err, ErrMalformedRequest)
}

func TestTimeoutError(t *testing.T) {
	t.Parallel()

	err := NewTimeoutError("forward", 5*time.Second, context.DeadlineExceeded)

	assert.Equal(t, "forward timed out after 5s", err.Error())
	assert.ErrorIs(t, err, ErrUpstreamUnreachable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestServerError(t *testing.T) {
	t.Parallel()

	err := NewServerError(http.StatusBadGateway)

	assert.Equal(t, "server error: status 502", err.Error())
	assert.Equal(t, http.StatusBadGateway, err.StatusCode)
}

func TestErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		client  bool
		gateway bool
	}{
		{
			name:    "no route",
			err:     NewRouteNotFoundError("/x"),
			client:  true,
			gateway: false,
		},
		{
			name:    "malformed",
			err:     NewMalformedRequestError("bad target"),
			client:  true,
			gateway: false,
		},
		{
			name:    "rate limited",
			err:     ErrRateLimited,
			client:  true,
			gateway: false,
		},
		{
			name:    "upstream unreachable",
			err:     NewUpstreamError("a", "b:1", nil),
			client:  false,
			gateway: true,
		},
		{
			name:    "circuit open",
			err:     ErrCircuitOpen,
			client:  false,
			gateway: true,
		},
		{
			name:    "unrelated",
			err:     errors.New("boom"),
			client:  false,
			gateway: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.client, IsClientError(tt.err))
			assert.Equal(t, tt.gateway, IsGatewayError(tt.err))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no route", ErrNoRoute, http.StatusNotFound},
		{"malformed", ErrMalformedRequest, http.StatusBadRequest},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"circuit open", ErrCircuitOpen, http.StatusServiceUnavailable},
		{"unreachable", NewUpstreamError("c", "a:1", nil), http.StatusBadGateway},
		{"timeout", NewTimeoutError("forward", time.Second, nil), http.StatusGatewayTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
