package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestParseEnv(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	err := parseEnv(cfg, lookupFrom(map[string]string{
		"GROUPSHARE_API_URL":         "https://api.example",
		"GROUPSHARE_POLL_INTERVAL":   "1500ms",
		"GROUPSHARE_REQUEST_TIMEOUT": "2s",
		"LOG_LEVEL":                  "warn",
		"GROUPSHARE_DB_PATH":         "",
	}))
	require.NoError(t, err)

	assert.Equal(t, "https://api.example", cfg.APIBaseURL)
	assert.Equal(t, 1500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 2*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "groupshare.db", cfg.DBPath, "empty values are ignored")
}

func TestParseEnv_PrefixedLevelWins(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, parseEnv(cfg, lookupFrom(map[string]string{
		"LOG_LEVEL":            "warn",
		"GROUPSHARE_LOG_LEVEL": "debug",
	})))
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParseEnv_BadDuration(t *testing.T) {
	cfg := &Config{}
	err := parseEnv(cfg, lookupFrom(map[string]string{"GROUPSHARE_SESSION_TTL": "ten minutes"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GROUPSHARE_SESSION_TTL")
}

func TestLoadDotEnv(t *testing.T) {
	t.Run("missing file is fine", func(t *testing.T) {
		assert.NoError(t, loadDotEnv(filepath.Join(t.TempDir(), ".env")))
	})

	t.Run("exports without overriding", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("GROUPSHARE_TEST_A=from-file\nGROUPSHARE_TEST_B=from-file\n"), 0o600))

		t.Setenv("GROUPSHARE_TEST_A", "from-env")
		t.Setenv("GROUPSHARE_TEST_B", "")
		require.NoError(t, os.Unsetenv("GROUPSHARE_TEST_B"))

		require.NoError(t, loadDotEnv(path))
		assert.Equal(t, "from-env", os.Getenv("GROUPSHARE_TEST_A"))
		assert.Equal(t, "from-file", os.Getenv("GROUPSHARE_TEST_B"))
	})
}
