package router

import (
	"fmt"
	"strings"
	"time"

	"github.com/zerospeak/stranglergw/internal/cluster"
	"github.com/zerospeak/stranglergw/internal/config"
	"github.com/zerospeak/stranglergw/internal/util"
)

// Route is a compiled route bound to its destination cluster.
type Route struct {
	name     string
	pattern  string
	prefix   string
	wildcard bool
	cluster  *cluster.Cluster
	timeout  time.Duration
}

// Name returns the route name.
func (r *Route) Name() string {
	return r.name
}

// Pattern returns the path pattern as declared in configuration.
func (r *Route) Pattern() string {
	return r.pattern
}

// Prefix returns the literal prefix the route matches against. For wildcard
// patterns this is the pattern with the trailing "*" removed, keeping the
// slash: "/api/users/*" matches paths starting with "/api/users/".
func (r *Route) Prefix() string {
	return r.prefix
}

// IsWildcard reports whether the pattern ended in "/*".
func (r *Route) IsWildcard() bool {
	return r.wildcard
}

// Cluster returns the destination cluster.
func (r *Route) Cluster() *cluster.Cluster {
	return r.cluster
}

// Timeout returns the per-route timeout override, or zero when the route
// uses the upstream default.
func (r *Route) Timeout() time.Duration {
	return r.timeout
}

// Table is an immutable, ordered set of compiled routes. Resolution walks
// the slice in declared order and the first matching prefix wins, so a table
// never needs locking.
type Table struct {
	routes []*Route
}

// Compile builds a table from route configuration, binding every route to
// its cluster. Route names must be unique and every referenced cluster must
// exist in the registry.
func Compile(routes []config.RouteConfig, registry *cluster.Registry) (*Table, error) {
	t := &Table{
		routes: make([]*Route, 0, len(routes)),
	}

	seen := make(map[string]bool, len(routes))
	for _, cfg := range routes {
		if cfg.Path == "" || !strings.HasPrefix(cfg.Path, "/") {
			return nil, fmt.Errorf("route %s: path must start with /", cfg.Name)
		}
		if seen[cfg.Name] {
			return nil, fmt.Errorf("duplicate route: %s", cfg.Name)
		}
		seen[cfg.Name] = true

		c, ok := registry.Get(cfg.Cluster)
		if !ok {
			return nil, fmt.Errorf("route %s: unknown cluster: %s", cfg.Name, cfg.Cluster)
		}

		rt := &Route{
			name:    cfg.Name,
			pattern: cfg.Path,
			prefix:  cfg.Path,
			cluster: c,
			timeout: cfg.Timeout.Duration(),
		}
		if cfg.IsWildcard() {
			rt.wildcard = true
			rt.prefix = strings.TrimSuffix(cfg.Path, "*")
		}

		t.routes = append(t.routes, rt)
	}

	return t, nil
}

// Resolve returns the first route whose prefix matches the path, or a typed
// not-found error when no route matches.
func (t *Table) Resolve(path string) (*Route, error) {
	for _, rt := range t.routes {
		if strings.HasPrefix(path, rt.prefix) {
			return rt, nil
		}
	}
	return nil, util.NewRouteNotFoundError(path)
}

// Routes returns the routes in declared order.
func (t *Table) Routes() []*Route {
	out := make([]*Route, len(t.routes))
	copy(out, t.routes)
	return out
}

// Len returns the number of routes.
func (t *Table) Len() int {
	return len(t.routes)
}
