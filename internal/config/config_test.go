package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/api", cfg.APIURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "@every 30s", cfg.OrderPollSchedule)
	assert.NotEmpty(t, cfg.TokenFile)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api_url: https://api.quickmed.example/api
log_level: debug
requests_per_second: 5
order_poll_schedule: "@every 10s"
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://api.quickmed.example/api", cfg.APIURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 5.0, cfg.RequestsPerSecond)
	assert.Equal(t, "@every 10s", cfg.OrderPollSchedule)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: https://file.example/api\n"), 0o600))
	t.Setenv("STOREFRONT_API_URL", "https://env.example/api")
	t.Setenv("STOREFRONT_REQUESTS_PER_SECOND", "2.5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://env.example/api", cfg.APIURL)
	assert.Equal(t, 2.5, cfg.RequestsPerSecond)
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_url: [unclosed"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_RequiresAPIURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storefront.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`api_url: ""`+"\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}
