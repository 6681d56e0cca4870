// Package gateway wires the routing table, cluster registry, middleware
// chain, and forwarding proxy into one lifecycle-managed unit.
//
// A Gateway moves through stopped, starting, running, and stopping states.
// Start binds the configured listener and begins probing clusters; Stop
// drains in-flight requests within the shutdown timeout. Reload validates a
// new configuration, builds a fresh cluster registry and routing table, and
// swaps both in atomically while the old registry's idle connections are
// closed behind it.
//
//	gw, err := gateway.New(cfg,
//	    gateway.WithLogger(logger),
//	    gateway.WithMetrics(metrics),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := gw.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer gw.Stop(ctx)
package gateway
