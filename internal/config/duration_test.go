package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_UnmarshalYAML(t *testing.T) {
	t.Parallel()

	var doc struct {
		Timeout Duration `yaml:"timeout"`
	}

	require.NoError(t, yaml.Unmarshal([]byte(`timeout: 1h30m`), &doc))
	assert.Equal(t, 90*time.Minute, doc.Timeout.Duration())

	require.NoError(t, yaml.Unmarshal([]byte(`timeout: ""`), &doc))
	assert.Equal(t, time.Duration(0), doc.Timeout.Duration())

	err := yaml.Unmarshal([]byte(`timeout: not-a-duration`), &doc)
	assert.Error(t, err)
}

func TestDuration_MarshalYAML(t *testing.T) {
	t.Parallel()

	out, err := yaml.Marshal(struct {
		Timeout Duration `yaml:"timeout"`
	}{Timeout: Duration(30 * time.Second)})

	require.NoError(t, err)
	assert.Equal(t, "timeout: 30s\n", string(out))
}

func TestDuration_JSON(t *testing.T) {
	t.Parallel()

	var d Duration
	require.NoError(t, json.Unmarshal([]byte(`"300ms"`), &d))
	assert.Equal(t, 300*time.Millisecond, d.Duration())

	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.Equal(t, time.Duration(0), d.Duration())

	out, err := json.Marshal(Duration(5 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, `"5m0s"`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`"bogus"`), &d))
}
