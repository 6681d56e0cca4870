package router

import (
	"sync/atomic"
)

// Router holds the active routing table behind an atomic pointer. In-flight
// requests resolve against whichever table was current when they started; a
// reload swaps the pointer without any locking on the request path.
type Router struct {
	table atomic.Pointer[Table]
}

// NewRouter creates a router serving the given table.
func NewRouter(table *Table) *Router {
	r := &Router{}
	r.table.Store(table)
	return r
}

// Resolve resolves a path against the current table.
func (r *Router) Resolve(path string) (*Route, error) {
	return r.table.Load().Resolve(path)
}

// Table returns the current table.
func (r *Router) Table() *Table {
	return r.table.Load()
}

// Swap atomically installs a new table and returns the previous one.
func (r *Router) Swap(table *Table) *Table {
	return r.table.Swap(table)
}
