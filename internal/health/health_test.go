package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecker_Health(t *testing.T) {
	t.Parallel()

	c := NewChecker("1.2.3")
	resp := c.Health()

	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.NotEmpty(t, resp.Uptime)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestChecker_Readiness_NoChecks(t *testing.T) {
	t.Parallel()

	c := NewChecker("dev")
	resp := c.Readiness(context.Background())

	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Empty(t, resp.Checks)
}

func TestChecker_Readiness_Aggregation(t *testing.T) {
	t.Parallel()

	healthy := func(context.Context) Check { return Check{Status: StatusHealthy} }
	degraded := func(context.Context) Check { return Check{Status: StatusDegraded, Message: "slow"} }
	unhealthy := func(context.Context) Check { return Check{Status: StatusUnhealthy, Message: "down"} }

	tests := []struct {
		name   string
		checks map[string]CheckFunc
		want   Status
	}{
		{
			name:   "all healthy",
			checks: map[string]CheckFunc{"a": healthy, "b": healthy},
			want:   StatusHealthy,
		},
		{
			name:   "degraded wins over healthy",
			checks: map[string]CheckFunc{"a": healthy, "b": degraded},
			want:   StatusDegraded,
		},
		{
			name:   "unhealthy wins over degraded",
			checks: map[string]CheckFunc{"a": degraded, "b": unhealthy, "c": healthy},
			want:   StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewChecker("dev")
			for name, fn := range tt.checks {
				c.RegisterCheck(name, fn)
			}

			resp := c.Readiness(context.Background())
			assert.Equal(t, tt.want, resp.Status)
			assert.Len(t, resp.Checks, len(tt.checks))
		})
	}
}

func TestChecker_RegisterReplacesAndUnregisters(t *testing.T) {
	t.Parallel()

	c := NewChecker("dev")
	c.RegisterCheck("upstreams", func(context.Context) Check {
		return Check{Status: StatusUnhealthy, Message: "down"}
	})

	assert.Equal(t, StatusUnhealthy, c.Readiness(context.Background()).Status)

	// Replace with a healthy version.
	c.RegisterCheck("upstreams", func(context.Context) Check {
		return Check{Status: StatusHealthy}
	})
	assert.Equal(t, StatusHealthy, c.Readiness(context.Background()).Status)

	c.UnregisterCheck("upstreams")
	assert.Empty(t, c.Readiness(context.Background()).Checks)
}

func TestChecker_ReadinessAppliesTimeout(t *testing.T) {
	t.Parallel()

	c := NewChecker("dev", WithCheckTimeout(20*time.Millisecond))
	c.RegisterCheck("slow", ErrorCheck(func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	}))

	start := time.Now()
	resp := c.Readiness(context.Background())

	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestErrorCheck(t *testing.T) {
	t.Parallel()

	ok := ErrorCheck(func(context.Context) error { return nil })
	assert.Equal(t, Check{Status: StatusHealthy}, ok(context.Background()))

	bad := ErrorCheck(func(context.Context) error { return errors.New("no route to host") })
	got := bad(context.Background())
	require.Equal(t, StatusUnhealthy, got.Status)
	assert.Equal(t, "no route to host", got.Message)
}
