package config

import "strings"

// WildcardSuffix is the trailing marker that makes a route pattern match any
// remaining path suffix.
const WildcardSuffix = "/*"

// RouteConfig is one entry in the ordered route table. A route binds a path
// pattern to the cluster that serves it. Patterns are literal path prefixes,
// optionally ending in "/*" to match any remainder; "/*" alone matches every
// path. Matching is case-sensitive and happens in declared order, first match
// wins.
type RouteConfig struct {
	// Name identifies the route in logs, metrics, and the admin API.
	// Defaults to the path pattern.
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// Path is the pattern to match against the request path.
	Path string `yaml:"path" json:"path"`

	// Cluster names the destination cluster. Must reference an entry in
	// spec.clusters.
	Cluster string `yaml:"cluster" json:"cluster"`

	// Timeout overrides the upstream round-trip timeout for this route.
	Timeout Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// IsWildcard reports whether the pattern ends in the wildcard marker.
func (r *RouteConfig) IsWildcard() bool {
	return r.Path == WildcardSuffix || strings.HasSuffix(r.Path, WildcardSuffix)
}
