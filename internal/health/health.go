// Package health aggregates named readiness checks behind the /health,
// /ready, and /live endpoints on the ops server.
package health

import (
	"context"
	"sync"
	"time"
)

// Status is the outcome of a check or of the aggregate.
type Status string

const (
	// StatusHealthy means the component is fully operational.
	StatusHealthy Status = "healthy"

	// StatusDegraded means the component works but below par. A degraded
	// gateway still reports ready.
	StatusDegraded Status = "degraded"

	// StatusUnhealthy means the component is down. Any unhealthy check
	// makes the gateway report not ready.
	StatusUnhealthy Status = "unhealthy"
)

// DefaultCheckTimeout bounds one readiness evaluation.
const DefaultCheckTimeout = 5 * time.Second

// Check is a single check result.
type Check struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// CheckFunc evaluates one component. The context carries the probe
// deadline.
type CheckFunc func(ctx context.Context) Check

// HealthResponse is the body served on /health.
type HealthResponse struct {
	Status    Status    `json:"status"`
	Version   string    `json:"version,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadinessResponse is the body served on /ready.
type ReadinessResponse struct {
	Status    Status           `json:"status"`
	Checks    map[string]Check `json:"checks,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Checker runs registered checks and aggregates their results.
type Checker struct {
	version      string
	startTime    time.Time
	checkTimeout time.Duration

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithCheckTimeout overrides the per-evaluation deadline.
func WithCheckTimeout(d time.Duration) CheckerOption {
	return func(c *Checker) {
		if d > 0 {
			c.checkTimeout = d
		}
	}
}

// NewChecker creates a Checker reporting the given version string.
func NewChecker(version string, opts ...CheckerOption) *Checker {
	c := &Checker{
		version:      version,
		startTime:    time.Now(),
		checkTimeout: DefaultCheckTimeout,
		checks:       make(map[string]CheckFunc),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RegisterCheck adds or replaces a named check.
func (c *Checker) RegisterCheck(name string, fn CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = fn
}

// UnregisterCheck removes a named check.
func (c *Checker) UnregisterCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// Health reports liveness-level information. It never runs checks; a
// process that can answer is alive.
func (c *Checker) Health() HealthResponse {
	return HealthResponse{
		Status:    StatusHealthy,
		Version:   c.version,
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now(),
	}
}

// Readiness runs every registered check and aggregates. Unhealthy
// dominates degraded, degraded dominates healthy.
func (c *Checker) Readiness(ctx context.Context) ReadinessResponse {
	ctx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	c.mu.RLock()
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, fn := range c.checks {
		checks[name] = fn
	}
	c.mu.RUnlock()

	response := ReadinessResponse{
		Status:    StatusHealthy,
		Checks:    make(map[string]Check, len(checks)),
		Timestamp: time.Now(),
	}

	for name, fn := range checks {
		check := fn(ctx)
		response.Checks[name] = check

		switch check.Status {
		case StatusUnhealthy:
			response.Status = StatusUnhealthy
		case StatusDegraded:
			if response.Status != StatusUnhealthy {
				response.Status = StatusDegraded
			}
		}
	}

	return response
}
