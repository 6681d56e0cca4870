package middleware

import (
	"net/http"
	"time"

	"github.com/zerospeak/stranglergw/internal/observability"
	"github.com/zerospeak/stranglergw/internal/util"
)

// Logging emits one structured access log line per request after the
// handler finishes, including the route and cluster resolved downstream.
func Logging(logger observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			r = r.WithContext(util.ContextWithStartTime(r.Context(), start))

			sw := util.NewStatusWriter(w)
			next.ServeHTTP(sw, r)

			fields := []observability.Field{
				observability.String("method", r.Method),
				observability.String("path", r.URL.Path),
				observability.Int("status", sw.Status),
				observability.Int64("size", sw.BytesWritten),
				observability.Duration("duration", time.Since(start)),
				observability.String("client_ip", ClientIP(r)),
			}

			if query := r.URL.RawQuery; query != "" {
				fields = append(fields, observability.String("query", query))
			}
			if route := util.RouteFromContext(r.Context()); route != "" {
				fields = append(fields, observability.String("route", route))
			}
			if cluster := util.ClusterFromContext(r.Context()); cluster != "" {
				fields = append(fields, observability.String("cluster", cluster))
			}
			if id := util.RequestIDFromContext(r.Context()); id != "" {
				fields = append(fields, observability.String("request_id", id))
			}
			if ua := r.UserAgent(); ua != "" {
				fields = append(fields, observability.String("user_agent", ua))
			}

			logger.Info("http request", fields...)
		})
	}
}
