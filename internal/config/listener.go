package config

import (
	"net"
	"strconv"
	"time"
)

// ListenerConfig is the network endpoint the gateway accepts requests on.
type ListenerConfig struct {
	Name string `yaml:"name" json:"name"`

	// Bind is the address to bind. Empty means all interfaces.
	Bind string `yaml:"bind,omitempty" json:"bind,omitempty"`

	Port int `yaml:"port" json:"port"`

	// TLS enables TLS termination when set.
	TLS *ListenerTLSConfig `yaml:"tls,omitempty" json:"tls,omitempty"`

	Timeouts *ListenerTimeouts `yaml:"timeouts,omitempty" json:"timeouts,omitempty"`
}

// Addr returns the bind address in host:port form.
func (l *ListenerConfig) Addr() string {
	return net.JoinHostPort(l.Bind, strconv.Itoa(l.Port))
}

// ListenerTLSConfig configures TLS termination on a listener.
type ListenerTLSConfig struct {
	// CertFile is the path to the server certificate (PEM).
	CertFile string `yaml:"certFile" json:"certFile"`

	// KeyFile is the path to the server private key (PEM).
	KeyFile string `yaml:"keyFile" json:"keyFile"`

	// MinVersion is the minimum TLS version (TLS12, TLS13). Defaults to TLS12.
	MinVersion string `yaml:"minVersion,omitempty" json:"minVersion,omitempty"`
}

// ListenerTimeouts contains the HTTP server timeouts for a listener.
type ListenerTimeouts struct {
	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`

	// ReadHeaderTimeout is the maximum duration for reading request headers.
	ReadHeaderTimeout Duration `yaml:"readHeaderTimeout,omitempty" json:"readHeaderTimeout,omitempty"`

	// WriteTimeout is the maximum duration before timing out response writes.
	WriteTimeout Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`

	// IdleTimeout is the keep-alive idle limit.
	IdleTimeout Duration `yaml:"idleTimeout,omitempty" json:"idleTimeout,omitempty"`
}

// GetEffectiveReadTimeout returns the effective read timeout.
func (t *ListenerTimeouts) GetEffectiveReadTimeout() time.Duration {
	if t == nil || t.ReadTimeout == 0 {
		return DefaultReadTimeout
	}
	return t.ReadTimeout.Duration()
}

// GetEffectiveReadHeaderTimeout returns the effective read header timeout.
func (t *ListenerTimeouts) GetEffectiveReadHeaderTimeout() time.Duration {
	if t == nil || t.ReadHeaderTimeout == 0 {
		return DefaultReadHeaderTimeout
	}
	return t.ReadHeaderTimeout.Duration()
}

// GetEffectiveWriteTimeout returns the effective write timeout.
func (t *ListenerTimeouts) GetEffectiveWriteTimeout() time.Duration {
	if t == nil || t.WriteTimeout == 0 {
		return DefaultWriteTimeout
	}
	return t.WriteTimeout.Duration()
}

// GetEffectiveIdleTimeout returns the effective idle timeout.
func (t *ListenerTimeouts) GetEffectiveIdleTimeout() time.Duration {
	if t == nil || t.IdleTimeout == 0 {
		return DefaultIdleTimeout
	}
	return t.IdleTimeout.Duration()
}

// AdminConfig configures the ops server serving metrics, health, and the
// read-only admin API. SetDefaults enables it on DefaultAdminPort when the
// section is absent; set enabled: false to turn it off.
type AdminConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Bind    string `yaml:"bind,omitempty" json:"bind,omitempty"`
	Port    int    `yaml:"port,omitempty" json:"port,omitempty"`
}

// Addr returns the bind address in host:port form.
func (a *AdminConfig) Addr() string {
	return net.JoinHostPort(a.Bind, strconv.Itoa(a.Port))
}
