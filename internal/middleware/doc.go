// Package middleware provides the HTTP middleware chain wrapped around the
// proxy handler.
//
// Every middleware is a func(http.Handler) http.Handler so the gateway can
// compose them with Chain. The canonical order, outermost first, is:
//
//	Recovery, RequestID, MatchContext, Logging, tracing, metrics,
//	BodyLimit, CORS, RateLimit, Cache
//
// MatchContext installs the holder that the proxy fills with the resolved
// route and cluster, so the outer logging, tracing, and metrics layers can
// label by route even though they run before resolution happens.
package middleware
