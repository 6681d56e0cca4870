package middleware

import (
	"io"
	"net/http"
	"runtime/debug"

	"github.com/zerospeak/stranglergw/internal/observability"
	"github.com/zerospeak/stranglergw/internal/util"
)

// Recovery converts panics below it into 500 responses so one broken
// request cannot take the listener down. The stack is logged, never sent
// to the client.
func Recovery(logger observability.Logger, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						observability.String("method", r.Method),
						observability.String("path", r.URL.Path),
						observability.Any("panic", rec),
						observability.String("stack", string(debug.Stack())),
					)

					metrics.RecordPanic()

					if sw, ok := w.(*util.StatusWriter); ok && sw.WroteHeader() {
						return
					}
					w.Header().Set(HeaderContentType, ContentTypeJSON)
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = io.WriteString(w, ErrBodyInternal)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
