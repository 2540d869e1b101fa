package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://localhost:8000", c.APIBaseURL)
	assert.Equal(t, 30*time.Second, c.RequestTimeout)
	assert.NotEmpty(t, c.DataDir)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, "text", c.LogFormat)
	assert.False(t, c.SealSession)
	assert.Zero(t, c.RequestsPerSecond)
	assert.Empty(t, c.MetricsAddr)
}

func TestPaths(t *testing.T) {
	c := Config{DataDir: "/data"}
	assert.Equal(t, filepath.Join("/data", "storefront.db"), c.DatabasePath())
	assert.Equal(t, filepath.Join("/data", "session.key"), c.KeyPath())
}

func TestLoadConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("STOREFRONT_API_BASE_URL=http://env:1\nSTOREFRONT_LOG_FORMAT=json\nSTOREFRONT_DATA_DIR=/env\n"), 0o600))
	for _, k := range []string{"API_BASE_URL", "LOG_FORMAT", "DATA_DIR"} {
		unsetEnv(t, envPrefix+k)
	}
	t.Setenv(envPrefix+"SEAL_SESSION", "true")

	jsonPath := writeTempJSON(t, dir, "cfg.json", map[string]any{
		"api_base_url":    "http://json:2",
		"request_timeout": "15s",
		"data_dir":        "/json",
	})

	cfg, err := LoadConfig([]string{"-c", jsonPath, "-a", "http://flag:3"})
	require.NoError(t, err)

	want := &Config{
		APIBaseURL:     "http://flag:3",
		RequestTimeout: 15 * time.Second,
		DataDir:        "/json",
		LogLevel:       "info",
		LogFormat:      "json",
		SealSession:    true,
	}
	assert.Empty(t, cmp.Diff(want, cfg))
}

func TestLoadConfig_Errors(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := LoadConfig([]string{"-t", "abc"})
	assert.Error(t, err)

	_, err = LoadConfig([]string{"-c", filepath.Join(t.TempDir(), "missing.json")})
	assert.ErrorContains(t, err, "read config file")

	t.Setenv(envPrefix+"REQUESTS_PER_SECOND", "fast")
	_, err = LoadConfig(nil)
	assert.ErrorContains(t, err, "STOREFRONT_REQUESTS_PER_SECOND")
}

// unsetEnv removes key for the duration of the test.
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}
