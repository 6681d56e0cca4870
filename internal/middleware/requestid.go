package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/zerospeak/stranglergw/internal/util"
)

// RequestID tags each request with an identifier. An inbound X-Request-ID
// is kept so IDs stay stable across a proxy chain; otherwise a fresh UUID
// is generated. The ID is stored in the context and echoed on the response.
func RequestID() func(http.Handler) http.Handler {
	return RequestIDWithGenerator(func() string {
		return uuid.New().String()
	})
}

// RequestIDWithGenerator is RequestID with a custom ID source.
func RequestIDWithGenerator(generate func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(HeaderRequestID)
			if id == "" {
				id = generate()
			}

			r = r.WithContext(util.ContextWithRequestID(r.Context(), id))
			w.Header().Set(HeaderRequestID, id)

			next.ServeHTTP(w, r)
		})
	}
}
