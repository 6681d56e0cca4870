package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, path, name string) {
	t.Helper()
	content := strings.Replace(minimalConfig, "test-gateway", name, 1)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestWatcher_StartLoadsInitialConfig(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "gateway.yaml")
	writeConfig(t, configPath, "initial")

	w, err := NewWatcher(configPath, nil, WithDebounceDelay(10*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, w.Start(context.Background()))

	cfg := w.LastConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "initial", cfg.Metadata.Name)
}

func TestWatcher_StartFailsOnInvalidConfig(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "gateway.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("kind: Gateway\n"), 0o644))

	w, err := NewWatcher(configPath, nil)
	require.NoError(t, err)

	err = w.Start(context.Background())
	assert.Error(t, err)
}

func TestWatcher_ReloadOnChange(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "gateway.yaml")
	writeConfig(t, configPath, "before")

	reloaded := make(chan *GatewayConfig, 1)
	w, err := NewWatcher(configPath, func(cfg *GatewayConfig) {
		select {
		case reloaded <- cfg:
		default:
		}
	}, WithDebounceDelay(10*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, w.Start(context.Background()))

	writeConfig(t, configPath, "after")

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "after", cfg.Metadata.Name)
		assert.Equal(t, "after", w.LastConfig().Metadata.Name)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload callback")
	}
}

func TestWatcher_InvalidChangeKeepsOldConfig(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "gateway.yaml")
	writeConfig(t, configPath, "good")

	failed := make(chan error, 1)
	w, err := NewWatcher(configPath,
		func(*GatewayConfig) { t.Error("reload callback fired for invalid config") },
		WithDebounceDelay(10*time.Millisecond),
		WithErrorCallback(func(err error) {
			select {
			case failed <- err:
			default:
			}
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })

	require.NoError(t, w.Start(context.Background()))

	require.NoError(t, os.WriteFile(configPath, []byte("kind: Nonsense\n"), 0o644))

	select {
	case err := <-failed:
		assert.Error(t, err)
		assert.Equal(t, "good", w.LastConfig().Metadata.Name)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for error callback")
	}
}

func TestWatcher_ForceReload(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "gateway.yaml")
	writeConfig(t, configPath, "first")

	var got *GatewayConfig
	w, err := NewWatcher(configPath, func(cfg *GatewayConfig) { got = cfg })
	require.NoError(t, err)

	writeConfig(t, configPath, "second")
	require.NoError(t, w.ForceReload())

	require.NotNil(t, got)
	assert.Equal(t, "second", got.Metadata.Name)
	assert.Equal(t, "second", w.LastConfig().Metadata.Name)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	t.Parallel()

	configPath := filepath.Join(t.TempDir(), "gateway.yaml")
	writeConfig(t, configPath, "stop-test")

	w, err := NewWatcher(configPath, nil)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
