package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerospeak/stranglergw/internal/config"
	"github.com/zerospeak/stranglergw/internal/util"
)

func TestRouter_Resolve(t *testing.T) {
	t.Parallel()

	table := compileTable(t, []config.RouteConfig{
		{Name: "users-api", Path: "/api/users/*", Cluster: "users"},
	})
	r := NewRouter(table)

	rt, err := r.Resolve("/api/users/1")
	require.NoError(t, err)
	assert.Equal(t, "users-api", rt.Name())

	_, err = r.Resolve("/nope")
	assert.ErrorIs(t, err, util.ErrNoRoute)
}

func TestRouter_Swap(t *testing.T) {
	t.Parallel()

	oldTable := compileTable(t, []config.RouteConfig{
		{Name: "old", Path: "/old/*", Cluster: "legacy"},
	})
	newTable := compileTable(t, []config.RouteConfig{
		{Name: "new", Path: "/new/*", Cluster: "users"},
	})

	r := NewRouter(oldTable)

	_, err := r.Resolve("/old/x")
	require.NoError(t, err)

	previous := r.Swap(newTable)
	assert.Same(t, oldTable, previous)
	assert.Same(t, newTable, r.Table())

	_, err = r.Resolve("/old/x")
	assert.ErrorIs(t, err, util.ErrNoRoute)

	rt, err := r.Resolve("/new/x")
	require.NoError(t, err)
	assert.Equal(t, "new", rt.Name())
}

func TestRouter_SwapConcurrentResolve(t *testing.T) {
	t.Parallel()

	tableA := compileTable(t, []config.RouteConfig{
		{Name: "a", Path: "/*", Cluster: "users"},
	})
	tableB := compileTable(t, []config.RouteConfig{
		{Name: "b", Path: "/*", Cluster: "legacy"},
	})

	r := NewRouter(tableA)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			rt, err := r.Resolve("/x")
			assert.NoError(t, err)
			name := rt.Name()
			assert.True(t, name == "a" || name == "b")
		}
	}()

	for i := 0; i < 100; i++ {
		if i%2 == 0 {
			r.Swap(tableB)
		} else {
			r.Swap(tableA)
		}
	}

	<-done
}
