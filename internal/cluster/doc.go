// Package cluster models the upstream services the gateway forwards to.
//
// Each cluster is a single upstream address: a scheme, a host and a port,
// optionally with TLS settings for the connection. Clusters are immutable
// once built; configuration reloads construct a fresh Registry instead of
// mutating the running one.
//
// # Registry
//
// The Registry is built from configuration and resolves cluster names to
// clusters:
//
//	registry, err := cluster.NewRegistry(cfg.Clusters)
//	c, ok := registry.Get("users")
//
// # Reachability
//
// A Prober can watch all clusters in a registry with periodic TCP dials,
// updating each cluster's status for readiness reporting:
//
//	prober := cluster.NewProber(registry, cluster.WithProberLogger(logger))
//	prober.Start(ctx)
//	defer prober.Stop()
package cluster
