package middleware

import (
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/zerospeak/stranglergw/internal/config"
	"github.com/zerospeak/stranglergw/internal/observability"
	"github.com/zerospeak/stranglergw/internal/util"
)

const (
	// defaultClientTTL is how long an idle per-client limiter is kept
	// before the janitor drops it.
	defaultClientTTL = 10 * time.Minute

	minJanitorInterval = 10 * time.Second
	maxJanitorInterval = time.Minute
)

type clientEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter applies a token-bucket limit to incoming requests, either
// globally or per client IP. A nil RateLimiter is valid and disables
// limiting entirely.
type RateLimiter struct {
	logger  observability.Logger
	metrics *observability.Metrics

	rps   rate.Limit
	burst int

	// global is used when perClient is false.
	global *rate.Limiter

	perClient bool
	clientTTL time.Duration

	mu      sync.Mutex
	clients map[string]*clientEntry

	stopCh   chan struct{}
	stopOnce sync.Once
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterLogger sets the logger.
func WithRateLimiterLogger(logger observability.Logger) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.logger = logger
	}
}

// WithRateLimiterMetrics sets the metrics sink.
func WithRateLimiterMetrics(m *observability.Metrics) RateLimiterOption {
	return func(rl *RateLimiter) {
		rl.metrics = m
	}
}

// NewRateLimiter builds a RateLimiter from configuration. It returns nil
// when cfg is nil or limiting is disabled.
func NewRateLimiter(cfg *config.RateLimitConfig, opts ...RateLimiterOption) *RateLimiter {
	if cfg == nil || !cfg.Enabled {
		return nil
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.RequestsPerSecond
	}

	rl := &RateLimiter{
		logger:    observability.NopLogger(),
		rps:       rate.Limit(cfg.RequestsPerSecond),
		burst:     burst,
		perClient: cfg.PerClient,
		clientTTL: defaultClientTTL,
		stopCh:    make(chan struct{}),
	}

	for _, opt := range opts {
		opt(rl)
	}

	if rl.perClient {
		rl.clients = make(map[string]*clientEntry)
		go rl.janitor(janitorInterval(rl.clientTTL))
	} else {
		rl.global = rate.NewLimiter(rl.rps, rl.burst)
	}

	return rl
}

// Allow reports whether a request from the given client may proceed.
func (rl *RateLimiter) Allow(clientIP string) bool {
	if rl == nil {
		return true
	}

	if !rl.perClient {
		return rl.global.Allow()
	}

	rl.mu.Lock()
	entry, ok := rl.clients[clientIP]
	if !ok {
		entry = &clientEntry{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[clientIP] = entry
	}
	entry.lastAccess = time.Now()
	rl.mu.Unlock()

	return entry.limiter.Allow()
}

// Middleware rejects requests over the limit with 429. A nil receiver
// returns a passthrough.
func (rl *RateLimiter) Middleware() func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientIP := ClientIP(r)

			if !rl.Allow(clientIP) {
				route := util.RouteFromContext(r.Context())
				if route == "" {
					route = observability.UnmatchedRoute
				}
				rl.metrics.RecordRateLimitRejected(route)
				rl.logger.Warn("rate limit exceeded",
					observability.String("client_ip", clientIP),
					observability.String("path", r.URL.Path),
				)

				w.Header().Set(HeaderContentType, ContentTypeJSON)
				w.Header().Set(HeaderRetryAfter, "1")
				w.WriteHeader(http.StatusTooManyRequests)
				_, _ = io.WriteString(w, ErrBodyRateLimited)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Stop terminates the janitor goroutine. Safe to call more than once and
// on a nil receiver.
func (rl *RateLimiter) Stop() {
	if rl == nil {
		return
	}
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
	})
}

func janitorInterval(ttl time.Duration) time.Duration {
	interval := ttl / 2
	if interval < minJanitorInterval {
		interval = minJanitorInterval
	}
	if interval > maxJanitorInterval {
		interval = maxJanitorInterval
	}
	return interval
}

func (rl *RateLimiter) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.sweep()
		}
	}
}

func (rl *RateLimiter) sweep() {
	cutoff := time.Now().Add(-rl.clientTTL)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for ip, entry := range rl.clients {
		if entry.lastAccess.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}
