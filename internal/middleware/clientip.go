package middleware

import (
	"net"
	"net/http"
	"strings"
)

// ClientIPExtractor derives the real client IP from a request. Without
// trusted proxies it uses RemoteAddr only, so forwarded headers cannot be
// spoofed from outside. When the direct peer is a trusted proxy, the
// X-Forwarded-For chain is walked right to left and the first address
// outside the trusted set wins.
type ClientIPExtractor struct {
	trusted []*net.IPNet
}

// NewClientIPExtractor builds an extractor from trusted proxy CIDRs. Bare
// IP addresses are accepted as single-host networks; entries that parse as
// neither are skipped.
func NewClientIPExtractor(trustedProxies []string) *ClientIPExtractor {
	trusted := make([]*net.IPNet, 0, len(trustedProxies))
	for _, p := range trustedProxies {
		if _, cidr, err := net.ParseCIDR(p); err == nil {
			trusted = append(trusted, cidr)
			continue
		}
		if ip := net.ParseIP(p); ip != nil {
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			trusted = append(trusted, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
		}
	}
	return &ClientIPExtractor{trusted: trusted}
}

// Extract returns the client IP for the request.
func (e *ClientIPExtractor) Extract(r *http.Request) string {
	peer := stripPort(r.RemoteAddr)

	if len(e.trusted) == 0 || !e.isTrusted(peer) {
		return peer
	}

	xff := r.Header.Get(HeaderXForwardedFor)
	if xff == "" {
		return peer
	}

	hops := strings.Split(xff, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !e.isTrusted(hop) {
			return hop
		}
	}

	// Every hop was a trusted proxy.
	return peer
}

func (e *ClientIPExtractor) isTrusted(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, cidr := range e.trusted {
		if cidr.Contains(ip) {
			return true
		}
	}
	return false
}

// stripPort drops the port from host:port and [host]:port forms.
func stripPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

// globalExtractor backs ClientIP. The default trusts no proxies.
//
//nolint:gochecknoglobals // set once at startup
var globalExtractor = NewClientIPExtractor(nil)

// SetGlobalIPExtractor installs the extractor used by the middleware chain.
// Call once during startup, before serving requests.
func SetGlobalIPExtractor(e *ClientIPExtractor) {
	if e != nil {
		globalExtractor = e
	}
}

// ClientIP returns the client IP for the request using the global extractor.
func ClientIP(r *http.Request) string {
	return globalExtractor.Extract(r)
}
