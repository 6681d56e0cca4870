// Package cache provides the response cache backends for the gateway.
//
// Two implementations are available: an in-memory LRU with per-entry TTL,
// and a Redis-backed cache for deployments that share cached responses
// across gateway instances. Both are selected through configuration:
//
//	c, err := cache.New(cfg.Spec.Cache, cache.WithCacheLogger(logger))
//	if err != nil {
//		return err
//	}
//	if c != nil {
//		defer c.Close()
//	}
//
// New returns a nil Cache when caching is disabled; callers treat nil as
// "no caching" rather than carrying a separate enabled flag around.
package cache
