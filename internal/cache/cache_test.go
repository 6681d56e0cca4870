package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerospeak/stranglergw/internal/config"
	"github.com/zerospeak/stranglergw/internal/observability"
)

func testLogger() observability.Logger {
	return observability.NopLogger()
}

func TestNew_DisabledReturnsNil(t *testing.T) {
	t.Parallel()

	c, err := New(nil)
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = New(&config.CacheConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestNew_DefaultsToMemory(t *testing.T) {
	t.Parallel()

	c, err := New(&config.CacheConfig{Enabled: true}, WithCacheLogger(testLogger()))
	require.NoError(t, err)
	require.NotNil(t, c)
	t.Cleanup(func() { _ = c.Close() })

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestNew_UnknownBackend(t *testing.T) {
	t.Parallel()

	_, err := New(&config.CacheConfig{Enabled: true, Backend: "memcached"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown cache backend")
}

func TestKeyPrefix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, DefaultKeyPrefix, keyPrefix(&config.CacheConfig{}))
	assert.Equal(t, "gw:", keyPrefix(&config.CacheConfig{KeyPrefix: "gw:"}))
}
