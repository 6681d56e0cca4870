package proxy

import (
	"context"
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/zerospeak/stranglergw/internal/breaker"
	"github.com/zerospeak/stranglergw/internal/config"
	"github.com/zerospeak/stranglergw/internal/observability"
	"github.com/zerospeak/stranglergw/internal/router"
	"github.com/zerospeak/stranglergw/internal/util"
)

// hopHeaders are headers that must not be forwarded.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Proxy dispatches requests through the router and relays them to upstream
// clusters.
type Proxy struct {
	router         *router.Router
	breakers       *breaker.Registry
	logger         observability.Logger
	metrics        *observability.Metrics
	defaultTimeout time.Duration
	flushInterval  time.Duration
	ws             *websocketProxy
}

// Option is a functional option for configuring the proxy.
type Option func(*Proxy)

// WithLogger sets the logger for the proxy.
func WithLogger(logger observability.Logger) Option {
	return func(p *Proxy) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics recorder for the proxy.
func WithMetrics(metrics *observability.Metrics) Option {
	return func(p *Proxy) {
		p.metrics = metrics
	}
}

// WithBreakers sets the circuit breaker registry. A nil registry disables
// breaking.
func WithBreakers(breakers *breaker.Registry) Option {
	return func(p *Proxy) {
		p.breakers = breakers
	}
}

// WithDefaultTimeout sets the round-trip timeout for routes without their
// own timeout.
func WithDefaultTimeout(timeout time.Duration) Option {
	return func(p *Proxy) {
		p.defaultTimeout = timeout
	}
}

// WithFlushInterval sets the response flush interval. Negative flushes
// immediately after each write.
func WithFlushInterval(interval time.Duration) Option {
	return func(p *Proxy) {
		p.flushInterval = interval
	}
}

// New creates a proxy dispatching through the given router.
func New(r *router.Router, opts ...Option) *Proxy {
	p := &Proxy{
		router:         r,
		logger:         observability.NopLogger(),
		defaultTimeout: config.DefaultUpstreamTimeout,
		flushInterval:  -1,
	}

	for _, opt := range opts {
		opt(p)
	}

	p.ws = &websocketProxy{logger: p.logger}

	return p
}

// ServeHTTP implements http.Handler.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if reason := malformedReason(r); reason != "" {
		p.logger.Debug("rejected malformed request",
			observability.String("method", r.Method),
			observability.String("target", r.RequestURI),
		)
		writeError(w, util.NewMalformedRequestError(reason))
		return
	}

	route, err := p.router.Resolve(r.URL.Path)
	if err != nil {
		p.logger.Debug("no route matched",
			observability.String("method", r.Method),
			observability.String("path", r.URL.Path),
		)
		writeError(w, err)
		return
	}

	util.SetMatch(r.Context(), route.Name(), route.Cluster().Name())

	if isWebSocketUpgrade(r) {
		p.serveWebSocket(w, r, route)
		return
	}

	timeout := route.Timeout()
	if timeout <= 0 {
		timeout = p.defaultTimeout
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()

	p.forward(w, r.WithContext(ctx), route, timeout)
}

// forward relays one request to the route's cluster and streams the
// response back.
func (p *Proxy) forward(w http.ResponseWriter, r *http.Request, route *router.Route, timeout time.Duration) {
	c := route.Cluster()
	target := &url.URL{Scheme: c.Scheme(), Host: c.Address()}

	rp := &httputil.ReverseProxy{
		Director: func(req *http.Request) {
			p.director(req, target)
		},
		Transport:     p.transportFor(route),
		FlushInterval: p.flushInterval,
		ErrorHandler: func(ew http.ResponseWriter, er *http.Request, err error) {
			p.handleForwardError(ew, er, route, timeout, err)
		},
	}

	rp.ServeHTTP(w, r)
}

// director rewrites the outgoing request for the target cluster. The path
// and query are forwarded verbatim; X-Forwarded-For is appended by
// httputil.ReverseProxy after this runs.
func (p *Proxy) director(req *http.Request, target *url.URL) {
	req.URL.Scheme = target.Scheme
	req.URL.Host = target.Host

	for _, h := range hopHeaders {
		req.Header.Del(h)
	}

	if req.TLS != nil {
		req.Header.Set("X-Forwarded-Proto", "https")
	} else {
		req.Header.Set("X-Forwarded-Proto", "http")
	}
	req.Header.Set("X-Forwarded-Host", req.Host)

	req.Host = target.Host
}

// transportFor returns the cluster's transport, wrapped by its circuit
// breaker when breaking is enabled.
func (p *Proxy) transportFor(route *router.Route) http.RoundTripper {
	c := route.Cluster()
	var rt http.RoundTripper = c.Transport()
	if br := p.breakers.Get(c.Name()); br != nil {
		rt = &breakerTransport{next: rt, breaker: br}
	}
	return rt
}

// breakerTransport runs round trips under a circuit breaker. Responses with
// a 5xx status count as failures but are still relayed unmodified.
type breakerTransport struct {
	next    http.RoundTripper
	breaker *breaker.Breaker
}

// RoundTrip implements http.RoundTripper.
func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	v, err := t.breaker.Execute(func() (interface{}, error) {
		resp, rerr := t.next.RoundTrip(req)
		if rerr != nil {
			return nil, rerr
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, util.NewServerError(resp.StatusCode)
		}
		return resp, nil
	})

	resp, _ := v.(*http.Response)
	if err != nil {
		var serverErr *util.ServerError
		if errors.As(err, &serverErr) && resp != nil {
			return resp, nil
		}
		return nil, err
	}
	return resp, nil
}

// handleForwardError maps a failed round trip to a JSON error response.
func (p *Proxy) handleForwardError(
	w http.ResponseWriter,
	r *http.Request,
	route *router.Route,
	timeout time.Duration,
	err error,
) {
	c := route.Cluster()

	if errors.Is(err, context.Canceled) {
		p.logger.Debug("client went away during forward",
			observability.String("route", route.Name()),
			observability.String("cluster", c.Name()),
		)
		return
	}

	reason := "unreachable"
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		reason = "timeout"
		err = util.NewTimeoutError("forward to "+c.Name(), timeout, err)
	case errors.Is(err, util.ErrCircuitOpen):
		reason = "breaker_open"
	default:
		err = util.NewUpstreamError(c.Name(), c.Address(), err)
	}

	p.metrics.RecordUpstreamError(c.Name(), reason)
	p.logger.Error("forward failed",
		observability.String("route", route.Name()),
		observability.String("cluster", c.Name()),
		observability.String("method", r.Method),
		observability.String("path", r.URL.Path),
		observability.Error(err),
	)

	writeError(w, err)
}

// malformedReason reports why a request cannot be forwarded, or "" when it
// can.
func malformedReason(r *http.Request) string {
	if r.Method == http.MethodConnect {
		return "CONNECT is not supported"
	}
	if !strings.HasPrefix(r.RequestURI, "/") {
		return "request target must be origin-form"
	}
	return ""
}

// isWebSocketUpgrade checks if the request asks for a WebSocket upgrade.
func isWebSocketUpgrade(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}
