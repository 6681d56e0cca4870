package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerospeak/stranglergw/internal/config"
)

func testClusterConfigs() []config.ClusterConfig {
	return []config.ClusterConfig{
		{Name: "users", Host: "users.internal", Port: 8081},
		{Name: "legacy", Host: "legacy.internal", Port: 8082},
	}
}

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	registry, err := NewRegistry(testClusterConfigs())
	require.NoError(t, err)

	assert.Equal(t, 2, registry.Len())

	c, ok := registry.Get("users")
	require.True(t, ok)
	assert.Equal(t, "http://users.internal:8081", c.URL())

	_, ok = registry.Get("nonexistent")
	assert.False(t, ok)
}

func TestNewRegistry_DeclaredOrder(t *testing.T) {
	t.Parallel()

	registry, err := NewRegistry(testClusterConfigs())
	require.NoError(t, err)

	all := registry.All()
	require.Len(t, all, 2)
	assert.Equal(t, "users", all[0].Name())
	assert.Equal(t, "legacy", all[1].Name())
}

func TestNewRegistry_DuplicateName(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry([]config.ClusterConfig{
		{Name: "users", Host: "a.internal", Port: 1},
		{Name: "users", Host: "b.internal", Port: 2},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate cluster: users")
}

func TestNewRegistry_InvalidCluster(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry([]config.ClusterConfig{
		{Name: "broken", Port: 8080},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "host is required")
}

func TestNewRegistry_Empty(t *testing.T) {
	t.Parallel()

	registry, err := NewRegistry(nil)
	require.NoError(t, err)

	assert.Equal(t, 0, registry.Len())
	assert.Empty(t, registry.All())
}

func TestNewRegistry_UpstreamApplied(t *testing.T) {
	t.Parallel()

	upstream := &config.UpstreamConfig{MaxIdleConns: 7}
	registry, err := NewRegistry(testClusterConfigs(), WithRegistryUpstream(upstream))
	require.NoError(t, err)

	for _, c := range registry.All() {
		assert.Equal(t, 7, c.Transport().MaxIdleConns)
	}

	registry.CloseIdleConnections()
}

func TestRegistry_All_Copy(t *testing.T) {
	t.Parallel()

	registry, err := NewRegistry(testClusterConfigs())
	require.NoError(t, err)

	all := registry.All()
	all[0] = nil

	assert.Equal(t, "users", registry.All()[0].Name())
}

func TestRegistry_Unreachable(t *testing.T) {
	t.Parallel()

	registry, err := NewRegistry(testClusterConfigs())
	require.NoError(t, err)

	assert.Empty(t, registry.Unreachable())

	c, ok := registry.Get("legacy")
	require.True(t, ok)
	c.SetStatus(StatusUnhealthy)

	assert.Equal(t, []string{"legacy"}, registry.Unreachable())

	c.SetStatus(StatusHealthy)
	assert.Empty(t, registry.Unreachable())
}
