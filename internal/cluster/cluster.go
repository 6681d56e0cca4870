package cluster

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/zerospeak/stranglergw/internal/config"
)

// Status represents the reachability status of a cluster.
type Status int32

const (
	// StatusUnknown indicates the cluster has not been probed yet.
	StatusUnknown Status = iota
	// StatusHealthy indicates the cluster is reachable.
	StatusHealthy
	// StatusUnhealthy indicates the cluster is unreachable.
	StatusUnhealthy
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusHealthy:
		return "healthy"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// Cluster is a single upstream service address with its own connection pool.
// Identity fields are fixed at construction; only the probed status changes
// at runtime.
type Cluster struct {
	name      string
	scheme    string
	host      string
	port      int
	upstream  *config.UpstreamConfig
	tlsConfig *tls.Config
	transport *http.Transport
	status    atomic.Int32
}

// Option is a functional option for configuring a cluster.
type Option func(*Cluster)

// WithUpstream sets the upstream settings sizing the cluster's connection
// pool. The defaults apply when unset.
func WithUpstream(upstream *config.UpstreamConfig) Option {
	return func(c *Cluster) {
		c.upstream = upstream
	}
}

// New creates a cluster from configuration.
func New(cfg config.ClusterConfig, opts ...Option) (*Cluster, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("cluster name is required")
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("cluster %s: host is required", cfg.Name)
	}

	c := &Cluster{
		name:   cfg.Name,
		scheme: cfg.GetEffectiveScheme(),
		host:   cfg.Host,
		port:   cfg.Port,
	}
	c.status.Store(int32(StatusUnknown))

	for _, opt := range opts {
		opt(c)
	}

	if cfg.TLS != nil {
		tlsConfig, err := buildTLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("cluster %s: %w", cfg.Name, err)
		}
		c.tlsConfig = tlsConfig
	}

	c.transport = newTransport(c.upstream, c.tlsConfig)

	return c, nil
}

// Name returns the cluster name.
func (c *Cluster) Name() string {
	return c.name
}

// Scheme returns the URL scheme used to reach the cluster.
func (c *Cluster) Scheme() string {
	return c.scheme
}

// Host returns the cluster host.
func (c *Cluster) Host() string {
	return c.host
}

// Port returns the cluster port.
func (c *Cluster) Port() int {
	return c.port
}

// Address returns the host:port pair.
func (c *Cluster) Address() string {
	return net.JoinHostPort(c.host, strconv.Itoa(c.port))
}

// URL returns the base URL of the cluster.
func (c *Cluster) URL() string {
	return c.scheme + "://" + c.Address()
}

// IsTLS reports whether the cluster is reached over HTTPS.
func (c *Cluster) IsTLS() bool {
	return c.scheme == config.SchemeHTTPS
}

// TLSConfig returns a copy of the TLS configuration for connections to the
// cluster, or nil when none is configured.
func (c *Cluster) TLSConfig() *tls.Config {
	if c.tlsConfig == nil {
		return nil
	}
	return c.tlsConfig.Clone()
}

// Transport returns the transport carrying this cluster's connection pool.
func (c *Cluster) Transport() *http.Transport {
	return c.transport
}

// CloseIdleConnections drains the cluster's connection pool. Called after a
// reload replaces the cluster.
func (c *Cluster) CloseIdleConnections() {
	c.transport.CloseIdleConnections()
}

// Status returns the probed reachability status.
func (c *Cluster) Status() Status {
	return Status(c.status.Load())
}

// SetStatus sets the probed reachability status.
func (c *Cluster) SetStatus(status Status) {
	c.status.Store(int32(status))
}

// newTransport builds the cluster's pooled transport from upstream settings.
func newTransport(upstream *config.UpstreamConfig, tlsConfig *tls.Config) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   upstream.GetEffectiveConnectTimeout(),
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          upstream.GetEffectiveMaxIdleConns(),
		MaxIdleConnsPerHost:   upstream.GetEffectiveMaxIdleConnsPerHost(),
		IdleConnTimeout:       upstream.GetEffectiveIdleConnTimeout(),
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig:       tlsConfig,
	}
}

// buildTLSConfig builds the tls.Config for upstream connections.
func buildTLSConfig(cfg *config.ClusterTLSConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // operator opt-in for dev environments
	}

	if cfg.ServerName != "" {
		tlsConfig.ServerName = cfg.ServerName
	}

	if cfg.CAFile != "" {
		caCert, err := os.ReadFile(cfg.CAFile) //nolint:gosec // path comes from the operator
		if err != nil {
			return nil, fmt.Errorf("read CA file %s: %w", cfg.CAFile, err)
		}

		caPool := x509.NewCertPool()
		if !caPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("parse CA certificate from %s", cfg.CAFile)
		}
		tlsConfig.RootCAs = caPool
	}

	return tlsConfig, nil
}
