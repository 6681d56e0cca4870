package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/zerospeak/stranglergw/internal/config"
)

const (
	headerOrigin                  = "Origin"
	headerVary                    = "Vary"
	headerAccessControlReqMethod  = "Access-Control-Request-Method"
	headerAccessControlOrigin     = "Access-Control-Allow-Origin"
	headerAccessControlMethods    = "Access-Control-Allow-Methods"
	headerAccessControlHeaders    = "Access-Control-Allow-Headers"
	headerAccessControlExpose     = "Access-Control-Expose-Headers"
	headerAccessControlMaxAge     = "Access-Control-Max-Age"
	headerAccessControlCredential = "Access-Control-Allow-Credentials"
)

var (
	defaultCORSMethods = []string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodHead, http.MethodOptions,
	}
	defaultCORSHeaders = []string{
		"Origin", "Content-Type", "Accept", "Authorization", HeaderRequestID,
	}
)

const defaultCORSMaxAge = 86400

// corsHeaders holds the precomputed header values so per-request work is
// limited to the origin check.
type corsHeaders struct {
	allowAll     bool
	exactOrigins map[string]struct{}

	// wildcardSuffixes holds the ".example.com" part of "*.example.com"
	// patterns.
	wildcardSuffixes []string

	methods     string
	headers     string
	expose      string
	maxAge      string
	credentials bool
}

func newCORSHeaders(cfg *config.CORSConfig) *corsHeaders {
	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	methods := cfg.AllowMethods
	if len(methods) == 0 {
		methods = defaultCORSMethods
	}
	headers := cfg.AllowHeaders
	if len(headers) == 0 {
		headers = defaultCORSHeaders
	}
	maxAge := cfg.MaxAge
	if maxAge <= 0 {
		maxAge = defaultCORSMaxAge
	}

	c := &corsHeaders{
		exactOrigins: make(map[string]struct{}),
		methods:      strings.Join(methods, ", "),
		headers:      strings.Join(headers, ", "),
		expose:       strings.Join(cfg.ExposeHeaders, ", "),
		maxAge:       strconv.Itoa(maxAge),
		credentials:  cfg.AllowCredentials,
	}

	for _, origin := range origins {
		switch {
		case origin == "*":
			c.allowAll = true
		case strings.HasPrefix(origin, "*."):
			c.wildcardSuffixes = append(c.wildcardSuffixes, origin[1:])
		default:
			c.exactOrigins[origin] = struct{}{}
		}
	}

	return c
}

func (c *corsHeaders) originAllowed(origin string) bool {
	if c.allowAll {
		return true
	}
	if _, ok := c.exactOrigins[origin]; ok {
		return true
	}

	host := origin
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}

	for _, suffix := range c.wildcardSuffixes {
		// The subdomain part must be nonempty, so "example.com" itself
		// does not match "*.example.com".
		if strings.HasSuffix(host, suffix) && len(host) > len(suffix) {
			return true
		}
	}
	return false
}

func (c *corsHeaders) set(w http.ResponseWriter, origin string) {
	h := w.Header()

	if c.allowAll && !c.credentials {
		h.Set(headerAccessControlOrigin, "*")
	} else {
		// Echo the origin and tell caches the response varies on it.
		h.Set(headerAccessControlOrigin, origin)
		h.Add(headerVary, headerOrigin)
	}

	if c.credentials {
		h.Set(headerAccessControlCredential, "true")
	}
	if c.expose != "" {
		h.Set(headerAccessControlExpose, c.expose)
	}
}

// CORS answers preflight requests and attaches cross-origin headers to
// responses for allowed origins. Requests without an Origin header and
// requests from origins outside the allow list pass through untouched.
func CORS(cfg *config.CORSConfig) func(http.Handler) http.Handler {
	if cfg == nil {
		cfg = &config.CORSConfig{}
	}
	c := newCORSHeaders(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get(headerOrigin)
			if origin == "" || !c.originAllowed(origin) {
				next.ServeHTTP(w, r)
				return
			}

			c.set(w, origin)

			// A preflight carries both an Origin and a requested method.
			// Plain OPTIONS requests are forwarded like any other method.
			if r.Method == http.MethodOptions && r.Header.Get(headerAccessControlReqMethod) != "" {
				h := w.Header()
				h.Set(headerAccessControlMethods, c.methods)
				h.Set(headerAccessControlHeaders, c.headers)
				h.Set(headerAccessControlMaxAge, c.maxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
