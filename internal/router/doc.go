// Package router resolves request paths to upstream clusters.
//
// Routes are literal path prefixes, optionally ending in "/*" to match
// everything under a prefix. Matching is case sensitive, walks routes in
// declared order, and returns the first route whose prefix matches. There is
// no scoring and no regular expressions; what you declare first wins.
//
// # Usage
//
// Compile a table from configuration and resolve paths against it:
//
//	table, err := router.Compile(cfg.Routes, registry)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	route, err := table.Resolve("/api/users/42")
//
// A Router wraps the current table behind an atomic pointer so a reload can
// swap in a new table without blocking in-flight resolution.
package router
