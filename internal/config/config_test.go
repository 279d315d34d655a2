package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	saved := os.Args
	os.Args = append([]string{"offline-agent"}, args...)
	t.Cleanup(func() { os.Args = saved })
}

func TestLoadConfig_Defaults(t *testing.T) {
	withArgs(t)

	cfg := LoadConfig()
	assert.Equal(t, "http://127.0.0.1:8000", cfg.ServerBaseURL)
	assert.Equal(t, "/api", cfg.APIBasePath)
	assert.Equal(t, "invextry-offline.db", cfg.DatabaseDSN)
	assert.Equal(t, 3*time.Second, cfg.OnlineCheckInterval)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 30*time.Minute, cfg.DefaultCacheTTL)
	assert.Equal(t, 3, cfg.MaxSyncRetries)
}

func TestLoadConfig_JsonOverridesDefaults(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(file, []byte(`{
		"server_base_url": "https://inventory.example.com",
		"online_check_interval": "30s",
		"default_cache_ttl": "1h"
	}`), 0o600))
	withArgs(t, "-c", file)

	cfg := LoadConfig()
	assert.Equal(t, "https://inventory.example.com", cfg.ServerBaseURL)
	assert.Equal(t, 30*time.Second, cfg.OnlineCheckInterval)
	assert.Equal(t, time.Hour, cfg.DefaultCacheTTL)

	// Fields absent from the file keep their defaults.
	assert.Equal(t, "/api", cfg.APIBasePath)
	assert.Equal(t, 3, cfg.MaxSyncRetries)
}

func TestLoadConfig_FlagsOverrideJson(t *testing.T) {
	file := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(file, []byte(`{
		"server_base_url": "https://json.example.com",
		"online_check_interval": "30s"
	}`), 0o600))
	withArgs(t, "-c", file, "-a", "https://flag.example.com", "-i", "5", "-d", "local.db")

	cfg := LoadConfig()
	assert.Equal(t, "https://flag.example.com", cfg.ServerBaseURL)
	assert.Equal(t, 5*time.Second, cfg.OnlineCheckInterval)
	assert.Equal(t, "local.db", cfg.DatabaseDSN)
}
