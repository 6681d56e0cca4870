package util

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel errors for the gateway's request-scoped failure modes.
var (
	// ErrNoRoute indicates that no configured route matches the request path.
	ErrNoRoute = errors.New("no route matches path")

	// ErrUpstreamUnreachable indicates that the resolved cluster could not be
	// reached or did not respond within the request deadline.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")

	// ErrMalformedRequest indicates that the inbound request was rejected
	// before route resolution.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrCircuitOpen indicates that the cluster's circuit breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrRateLimited indicates that the request was rejected by rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrConfigInvalid indicates invalid gateway configuration.
	ErrConfigInvalid = errors.New("invalid configuration")
)

// RouteNotFoundError reports a path that matched no configured route.
type RouteNotFoundError struct {
	Path string
}

// Error implements the error interface.
func (e *RouteNotFoundError) Error() string {
	return fmt.Sprintf("no route matches path %s", e.Path)
}

// Is reports whether target is ErrNoRoute.
func (e *RouteNotFoundError) Is(target error) bool {
	return target == ErrNoRoute
}

// NewRouteNotFoundError creates a RouteNotFoundError for the given path.
func NewRouteNotFoundError(path string) *RouteNotFoundError {
	return &RouteNotFoundError{Path: path}
}

// UpstreamError reports a failed round trip to a cluster.
type UpstreamError struct {
	Cluster string
	Addr    string
	Cause   error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("upstream %s (%s): %v", e.Cluster, e.Addr, e.Cause)
	}
	return fmt.Sprintf("upstream %s (%s) unreachable", e.Cluster, e.Addr)
}

// Unwrap returns the underlying cause.
func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrUpstreamUnreachable.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstreamUnreachable
}

// NewUpstreamError creates an UpstreamError for the given cluster and cause.
func NewUpstreamError(cluster, addr string, cause error) *UpstreamError {
	return &UpstreamError{Cluster: cluster, Addr: addr, Cause: cause}
}

// MalformedRequestError reports an inbound request rejected before resolution.
type MalformedRequestError struct {
	Reason string
}

// Error implements the error interface.
func (e *MalformedRequestError) Error() string {
	return "malformed request: " + e.Reason
}

// Is reports whether target is ErrMalformedRequest.
func (e *MalformedRequestError) Is(target error) bool {
	return target == ErrMalformedRequest
}

// NewMalformedRequestError creates a MalformedRequestError with a reason.
func NewMalformedRequestError(reason string) *MalformedRequestError {
	return &MalformedRequestError{Reason: reason}
}

// TimeoutError reports an operation that exceeded its deadline.
type TimeoutError struct {
	Operation string
	Timeout   time.Duration
	Cause     error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Operation, e.Timeout)
}

// Unwrap returns the underlying cause.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrUpstreamUnreachable. A timed-out forward is
// an unreachable upstream from the caller's point of view.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrUpstreamUnreachable
}

// NewTimeoutError creates a TimeoutError.
func NewTimeoutError(operation string, timeout time.Duration, cause error) *TimeoutError {
	return &TimeoutError{Operation: operation, Timeout: timeout, Cause: cause}
}

// ServerError signals that a handler produced a 5xx response. It is used by
// the circuit breaker to count upstream failures without inspecting bodies.
type ServerError struct {
	StatusCode int
}

// Error implements the error interface.
func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: status %d", e.StatusCode)
}

// NewServerError creates a ServerError with the given status code.
func NewServerError(statusCode int) *ServerError {
	return &ServerError{StatusCode: statusCode}
}

// IsClientError reports whether the error maps to a 4xx response.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNoRoute) ||
		errors.Is(err, ErrMalformedRequest) ||
		errors.Is(err, ErrRateLimited)
}

// IsGatewayError reports whether the error maps to a 5xx response produced by
// the gateway itself rather than the upstream.
func IsGatewayError(err error) bool {
	return errors.Is(err, ErrUpstreamUnreachable) ||
		errors.Is(err, ErrCircuitOpen)
}

// HTTPStatus maps a gateway error to the response status code it produces.
// Unknown errors map to 500.
func HTTPStatus(err error) int {
	var te *TimeoutError
	switch {
	case errors.As(err, &te):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrNoRoute):
		return http.StatusNotFound
	case errors.Is(err, ErrMalformedRequest):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrUpstreamUnreachable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
