package util

import (
	"context"
	"time"
)

type ctxKey string

const (
	ctxKeyRequestID ctxKey = "request_id"
	ctxKeyMatch     ctxKey = "match"
	ctxKeyStartTime ctxKey = "start_time"
)

// MatchState carries the resolved route and cluster names for one request.
// It is installed as a pointer before dispatch so that middleware running
// outside the resolver observes what the dispatcher selected. Reads happen
// after the handler returns on the same goroutine, so no locking is needed.
type MatchState struct {
	Route   string
	Cluster string
}

// ContextWithMatchState installs a fresh MatchState holder into ctx and
// returns it alongside the derived context.
func ContextWithMatchState(ctx context.Context) (context.Context, *MatchState) {
	ms := &MatchState{}
	return context.WithValue(ctx, ctxKeyMatch, ms), ms
}

// MatchStateFromContext returns the MatchState holder, or nil if absent.
func MatchStateFromContext(ctx context.Context) *MatchState {
	ms, _ := ctx.Value(ctxKeyMatch).(*MatchState)
	return ms
}

// SetMatch records the resolved route and cluster into the context's
// MatchState holder. A no-op when no holder is installed.
func SetMatch(ctx context.Context, route, cluster string) {
	if ms := MatchStateFromContext(ctx); ms != nil {
		ms.Route = route
		ms.Cluster = cluster
	}
}

// RouteFromContext returns the resolved route name, or "" before resolution.
func RouteFromContext(ctx context.Context) string {
	if ms := MatchStateFromContext(ctx); ms != nil {
		return ms.Route
	}
	return ""
}

// ClusterFromContext returns the resolved cluster name, or "" before
// resolution.
func ClusterFromContext(ctx context.Context) string {
	if ms := MatchStateFromContext(ctx); ms != nil {
		return ms.Cluster
	}
	return ""
}

// ContextWithRequestID adds a request ID to the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		return v
	}
	return ""
}

// ContextWithStartTime adds the request start time to the context.
func ContextWithStartTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ctxKeyStartTime, t)
}

// StartTimeFromContext extracts the request start time from context.
func StartTimeFromContext(ctx context.Context) time.Time {
	if v, ok := ctx.Value(ctxKeyStartTime).(time.Time); ok {
		return v
	}
	return time.Time{}
}
