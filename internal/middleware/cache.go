package middleware

import (
	"bufio"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/zerospeak/stranglergw/internal/cache"
	"github.com/zerospeak/stranglergw/internal/config"
	"github.com/zerospeak/stranglergw/internal/observability"
	"github.com/zerospeak/stranglergw/internal/util"
)

const (
	cacheStatusHit  = "HIT"
	cacheStatusMiss = "MISS"

	// maxCacheBodySize caps buffered response bodies. Larger responses are
	// streamed to the client but not stored.
	maxCacheBodySize = 10 << 20
)

// cachedResponse is the stored form of an upstream response. Route and
// Cluster let a hit carry the labels the dispatcher would have resolved.
type cachedResponse struct {
	StatusCode int         `json:"statusCode"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
	Route      string      `json:"route,omitempty"`
	Cluster    string      `json:"cluster,omitempty"`
}

// Cache serves repeated GET requests from the configured cache backend.
// Only 2xx responses are stored. Requests carrying Cache-Control no-store
// or no-cache bypass the cache, as does any non-GET method.
func Cache(c cache.Cache, cfg *config.CacheConfig, logger observability.Logger, metrics *observability.Metrics) func(http.Handler) http.Handler {
	if c == nil || !cfg.IsEnabled() {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	ttl := cfg.GetEffectiveTTL().Duration()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet || bypassCache(r) {
				next.ServeHTTP(w, r)
				return
			}

			key := buildCacheKey(r)

			if entry, ok := lookupCache(r, c, key, logger); ok {
				// Let outer logging and metrics label the request the
				// same way a forwarded one would be.
				util.SetMatch(r.Context(), entry.Route, entry.Cluster)
				metrics.RecordCacheHit(routeLabel(entry.Route))

				h := w.Header()
				for name, values := range entry.Headers {
					h[name] = values
				}
				h.Set(HeaderCacheStatus, cacheStatusHit)
				w.WriteHeader(entry.StatusCode)
				_, _ = w.Write(entry.Body)
				return
			}

			w.Header().Set(HeaderCacheStatus, cacheStatusMiss)

			rec := newCacheRecorder(w)
			next.ServeHTTP(rec, r)

			route := util.RouteFromContext(r.Context())
			metrics.RecordCacheMiss(routeLabel(route))

			if !rec.cacheable() {
				return
			}

			headers := rec.Header().Clone()
			headers.Del(HeaderCacheStatus)
			// Request-scoped, not part of the payload.
			headers.Del(HeaderRequestID)

			entry := cachedResponse{
				StatusCode: rec.status,
				Headers:    headers,
				Body:       rec.body,
				Route:      route,
				Cluster:    util.ClusterFromContext(r.Context()),
			}

			data, err := json.Marshal(entry)
			if err != nil {
				logger.Warn("cache encode failed", observability.Error(err))
				return
			}
			if err := c.Set(r.Context(), key, data, ttl); err != nil {
				logger.Warn("cache store failed",
					observability.String("key", key),
					observability.Error(err),
				)
			}
		})
	}
}

func lookupCache(r *http.Request, c cache.Cache, key string, logger observability.Logger) (*cachedResponse, bool) {
	data, err := c.Get(r.Context(), key)
	if err != nil {
		return nil, false
	}

	var entry cachedResponse
	if err := json.Unmarshal(data, &entry); err != nil {
		logger.Warn("cache entry corrupt, dropping",
			observability.String("key", key),
			observability.Error(err),
		)
		_ = c.Delete(r.Context(), key)
		return nil, false
	}
	return &entry, true
}

// bypassCache reports whether the request opted out of caching.
func bypassCache(r *http.Request) bool {
	cc := strings.ToLower(r.Header.Get("Cache-Control"))
	return strings.Contains(cc, "no-store") || strings.Contains(cc, "no-cache")
}

// buildCacheKey derives the key from the method, path, and sorted query so
// equivalent requests with reordered parameters share an entry.
func buildCacheKey(r *http.Request) string {
	key := r.Method + ":" + r.URL.Path
	if r.URL.RawQuery != "" {
		key += "?" + r.URL.Query().Encode()
	}
	return key
}

func routeLabel(route string) string {
	if route == "" {
		return observability.UnmatchedRoute
	}
	return route
}

// cacheRecorder tees the response into a bounded buffer while writing it
// through to the client.
type cacheRecorder struct {
	http.ResponseWriter

	status      int
	wroteHeader bool
	body        []byte
	overflowed  bool
}

func newCacheRecorder(w http.ResponseWriter) *cacheRecorder {
	return &cacheRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *cacheRecorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.status = code
	r.wroteHeader = true
	r.ResponseWriter.WriteHeader(code)
}

func (r *cacheRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	if !r.overflowed {
		if len(r.body)+len(b) > maxCacheBodySize {
			r.overflowed = true
			r.body = nil
		} else {
			r.body = append(r.body, b...)
		}
	}
	return r.ResponseWriter.Write(b)
}

// cacheable reports whether the captured response may be stored.
func (r *cacheRecorder) cacheable() bool {
	return !r.overflowed && r.status >= 200 && r.status < 300
}

func (r *cacheRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *cacheRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := r.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, http.ErrNotSupported
}
