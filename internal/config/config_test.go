package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DriverCDP, cfg.Driver)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.True(t, cfg.Headless)
	assert.Empty(t, cfg.BaseURL)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoOverrides(t *testing.T) {
	cfg, err := Load(envOf(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := Load(envOf(map[string]string{
		"PAGECHECK_BASE_URL":       "http://localhost:5500",
		"PAGECHECK_DRIVER":         "static",
		"PAGECHECK_VARIANT":        "static",
		"PAGECHECK_TIMEOUT":        "3s",
		"PAGECHECK_POLL_INTERVAL":  "50ms",
		"PAGECHECK_TIMING_RUNS":    "4",
		"PAGECHECK_TIMING_CEILING": "2s",
		"PAGECHECK_HEADLESS":       "false",
		"PAGECHECK_DB":             "history.db",
	}))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:5500", cfg.BaseURL)
	assert.Equal(t, DriverStatic, cfg.Driver)
	assert.Equal(t, "static", cfg.Variant)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, 50*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 4, cfg.TimingRuns)
	assert.Equal(t, 2*time.Second, cfg.TimingCeiling)
	assert.False(t, cfg.Headless)
	assert.Equal(t, "history.db", cfg.DB)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"PAGECHECK_TIMEOUT":     "soon",
		"PAGECHECK_TIMING_RUNS": "0",
		"PAGECHECK_HEADLESS":    "maybe",
		"PAGECHECK_DRIVER":      "selenium",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			_, err := Load(envOf(map[string]string{key: val}))
			require.Error(t, err)
			if key != "PAGECHECK_DRIVER" {
				assert.Contains(t, err.Error(), key)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("PAGECHECK_TEST_DOTENV=from-file\n"), 0o644))
	t.Setenv("PAGECHECK_TEST_DOTENV", "")
	os.Unsetenv("PAGECHECK_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), path))
	assert.Equal(t, "from-file", os.Getenv("PAGECHECK_TEST_DOTENV"))
}

func TestLoadDotEnv_KeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PAGECHECK_TEST_KEEP=file\n"), 0o644))
	t.Setenv("PAGECHECK_TEST_KEEP", "env")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "env", os.Getenv("PAGECHECK_TEST_KEEP"))
}
