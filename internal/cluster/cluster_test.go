package cluster

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zerospeak/stranglergw/internal/config"
)

func TestNew(t *testing.T) {
	t.Parallel()

	c, err := New(config.ClusterConfig{
		Name: "users",
		Host: "users.internal",
		Port: 8081,
	})
	require.NoError(t, err)

	assert.Equal(t, "users", c.Name())
	assert.Equal(t, "http", c.Scheme())
	assert.Equal(t, "users.internal", c.Host())
	assert.Equal(t, 8081, c.Port())
	assert.Equal(t, "users.internal:8081", c.Address())
	assert.Equal(t, "http://users.internal:8081", c.URL())
	assert.False(t, c.IsTLS())
	assert.Nil(t, c.TLSConfig())
	assert.Equal(t, StatusUnknown, c.Status())
}

func TestNew_HTTPS(t *testing.T) {
	t.Parallel()

	c, err := New(config.ClusterConfig{
		Name:   "payments",
		Scheme: config.SchemeHTTPS,
		Host:   "payments.internal",
		Port:   443,
	})
	require.NoError(t, err)

	assert.Equal(t, "https://payments.internal:443", c.URL())
	assert.True(t, c.IsTLS())
}

func TestNew_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     config.ClusterConfig
		wantErr string
	}{
		{
			name:    "missing name",
			cfg:     config.ClusterConfig{Host: "a", Port: 80},
			wantErr: "name is required",
		},
		{
			name:    "missing host",
			cfg:     config.ClusterConfig{Name: "a", Port: 80},
			wantErr: "host is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := New(tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNew_IPv6Address(t *testing.T) {
	t.Parallel()

	c, err := New(config.ClusterConfig{
		Name: "local",
		Host: "::1",
		Port: 8080,
	})
	require.NoError(t, err)

	assert.Equal(t, "[::1]:8080", c.Address())
	assert.Equal(t, "http://[::1]:8080", c.URL())
}

func TestNew_TLSConfig(t *testing.T) {
	t.Parallel()

	c, err := New(config.ClusterConfig{
		Name:   "secure",
		Scheme: config.SchemeHTTPS,
		Host:   "secure.internal",
		Port:   8443,
		TLS: &config.ClusterTLSConfig{
			ServerName:         "secure.example.com",
			InsecureSkipVerify: true,
		},
	})
	require.NoError(t, err)

	tlsConfig := c.TLSConfig()
	require.NotNil(t, tlsConfig)
	assert.Equal(t, "secure.example.com", tlsConfig.ServerName)
	assert.True(t, tlsConfig.InsecureSkipVerify)

	// Each call returns an independent copy.
	tlsConfig.ServerName = "mutated"
	assert.Equal(t, "secure.example.com", c.TLSConfig().ServerName)
}

func TestNew_TLSConfig_MissingCAFile(t *testing.T) {
	t.Parallel()

	_, err := New(config.ClusterConfig{
		Name:   "secure",
		Scheme: config.SchemeHTTPS,
		Host:   "secure.internal",
		Port:   8443,
		TLS: &config.ClusterTLSConfig{
			CAFile: filepath.Join(t.TempDir(), "missing.pem"),
		},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "read CA file")
}

func TestNew_TLSConfig_InvalidCAFile(t *testing.T) {
	t.Parallel()

	caFile := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(caFile, []byte("not a certificate"), 0o600))

	_, err := New(config.ClusterConfig{
		Name:   "secure",
		Scheme: config.SchemeHTTPS,
		Host:   "secure.internal",
		Port:   8443,
		TLS: &config.ClusterTLSConfig{
			CAFile: caFile,
		},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse CA certificate")
}

func TestNew_TransportDefaults(t *testing.T) {
	t.Parallel()

	c, err := New(config.ClusterConfig{Name: "a", Host: "a.internal", Port: 80})
	require.NoError(t, err)

	tr := c.Transport()
	require.NotNil(t, tr)
	assert.Equal(t, config.DefaultMaxIdleConns, tr.MaxIdleConns)
	assert.Equal(t, config.DefaultMaxIdleConnsPerHost, tr.MaxIdleConnsPerHost)
	assert.Equal(t, config.DefaultIdleConnTimeout, tr.IdleConnTimeout)
	assert.Nil(t, tr.TLSClientConfig)
}

func TestNew_TransportWithUpstream(t *testing.T) {
	t.Parallel()

	upstream := &config.UpstreamConfig{
		MaxIdleConns:        5,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     config.Duration(time.Second),
	}

	c, err := New(
		config.ClusterConfig{Name: "a", Host: "a.internal", Port: 80},
		WithUpstream(upstream),
	)
	require.NoError(t, err)

	tr := c.Transport()
	assert.Equal(t, 5, tr.MaxIdleConns)
	assert.Equal(t, 2, tr.MaxIdleConnsPerHost)
	assert.Equal(t, time.Second, tr.IdleConnTimeout)
}

func TestNew_TransportCarriesTLSConfig(t *testing.T) {
	t.Parallel()

	c, err := New(config.ClusterConfig{
		Name:   "secure",
		Scheme: config.SchemeHTTPS,
		Host:   "secure.internal",
		Port:   8443,
		TLS: &config.ClusterTLSConfig{
			ServerName: "secure.example.com",
		},
	})
	require.NoError(t, err)

	tr := c.Transport()
	require.NotNil(t, tr.TLSClientConfig)
	assert.Equal(t, "secure.example.com", tr.TLSClientConfig.ServerName)
}

func TestCluster_SetStatus(t *testing.T) {
	t.Parallel()

	c, err := New(config.ClusterConfig{Name: "a", Host: "a.internal", Port: 80})
	require.NoError(t, err)

	c.SetStatus(StatusHealthy)
	assert.Equal(t, StatusHealthy, c.Status())

	c.SetStatus(StatusUnhealthy)
	assert.Equal(t, StatusUnhealthy, c.Status())
}

func TestStatus_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "unknown", StatusUnknown.String())
	assert.Equal(t, "healthy", StatusHealthy.String())
	assert.Equal(t, "unhealthy", StatusUnhealthy.String())
	assert.Equal(t, "unknown", Status(42).String())
}
