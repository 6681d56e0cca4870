package config

import (
	"net"
	"strconv"
)

// Cluster scheme constants.
const (
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
)

// ClusterConfig names a destination service. A cluster has exactly one base
// address; there is no load balancing across multiple endpoints.
type ClusterConfig struct {
	// Name is the identifier routes reference. Must be unique.
	Name string `yaml:"name" json:"name"`

	// Scheme is http or https. Defaults to http.
	Scheme string `yaml:"scheme,omitempty" json:"scheme,omitempty"`

	// Host is the hostname or IP address of the destination.
	Host string `yaml:"host" json:"host"`

	// Port is the destination port.
	Port int `yaml:"port" json:"port"`

	// TLS configures the client side of https connections.
	TLS *ClusterTLSConfig `yaml:"tls,omitempty" json:"tls,omitempty"`
}

// ClusterTLSConfig configures TLS for connections to an https cluster.
type ClusterTLSConfig struct {
	// CAFile is a PEM bundle used to verify the cluster certificate.
	// Empty means the system pool.
	CAFile string `yaml:"caFile,omitempty" json:"caFile,omitempty"`

	// ServerName overrides the expected certificate name.
	ServerName string `yaml:"serverName,omitempty" json:"serverName,omitempty"`

	// InsecureSkipVerify disables certificate verification. Dev only.
	InsecureSkipVerify bool `yaml:"insecureSkipVerify,omitempty" json:"insecureSkipVerify,omitempty"`
}

// GetEffectiveScheme returns the scheme, defaulting to http.
func (c *ClusterConfig) GetEffectiveScheme() string {
	if c == nil || c.Scheme == "" {
		return SchemeHTTP
	}
	return c.Scheme
}

// Address returns the host:port pair for dialing.
func (c *ClusterConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// URL returns the base URL of the cluster.
func (c *ClusterConfig) URL() string {
	return c.GetEffectiveScheme() + "://" + c.Address()
}
