package cluster

import (
	"fmt"

	"github.com/zerospeak/stranglergw/internal/config"
	"github.com/zerospeak/stranglergw/internal/observability"
)

// Registry resolves cluster names to clusters. It is immutable after
// construction; a configuration reload builds a replacement Registry.
type Registry struct {
	clusters map[string]*Cluster
	ordered  []*Cluster
	upstream *config.UpstreamConfig
	logger   observability.Logger
}

// RegistryOption is a functional option for configuring the registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger for the registry.
func WithRegistryLogger(logger observability.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithRegistryUpstream sets the upstream settings applied to every
// cluster's connection pool.
func WithRegistryUpstream(upstream *config.UpstreamConfig) RegistryOption {
	return func(r *Registry) {
		r.upstream = upstream
	}
}

// NewRegistry builds a registry from configuration. Cluster names must be
// unique.
func NewRegistry(cfgs []config.ClusterConfig, opts ...RegistryOption) (*Registry, error) {
	r := &Registry{
		clusters: make(map[string]*Cluster, len(cfgs)),
		ordered:  make([]*Cluster, 0, len(cfgs)),
		logger:   observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(r)
	}

	for _, cfg := range cfgs {
		c, err := New(cfg, WithUpstream(r.upstream))
		if err != nil {
			return nil, err
		}

		if _, exists := r.clusters[c.Name()]; exists {
			return nil, fmt.Errorf("duplicate cluster: %s", c.Name())
		}

		r.clusters[c.Name()] = c
		r.ordered = append(r.ordered, c)

		r.logger.Debug("registered cluster",
			observability.String("cluster", c.Name()),
			observability.String("url", c.URL()),
		)
	}

	return r, nil
}

// Get returns the cluster with the given name.
func (r *Registry) Get(name string) (*Cluster, bool) {
	c, ok := r.clusters[name]
	return c, ok
}

// All returns the clusters in declared order.
func (r *Registry) All() []*Cluster {
	out := make([]*Cluster, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Len returns the number of clusters.
func (r *Registry) Len() int {
	return len(r.ordered)
}

// Unreachable returns the names of clusters whose probe currently reports
// them unreachable. Unprobed clusters count as reachable.
func (r *Registry) Unreachable() []string {
	var names []string
	for _, c := range r.ordered {
		if c.Status() == StatusUnhealthy {
			names = append(names, c.Name())
		}
	}
	return names
}

// CloseIdleConnections drains every cluster's connection pool. Called after
// a reload replaces the registry.
func (r *Registry) CloseIdleConnections() {
	for _, c := range r.ordered {
		c.CloseIdleConnections()
	}
}
