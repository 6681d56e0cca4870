package middleware

import "net/http"

// Chain wraps handler with the given middlewares. The first middleware in
// the list becomes the outermost layer, so it sees the request first and
// the response last.
func Chain(handler http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i] == nil {
			continue
		}
		handler = middlewares[i](handler)
	}
	return handler
}
