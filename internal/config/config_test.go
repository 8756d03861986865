package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("COMMERCE_API_URL", "http://commerce.local/api/")
	t.Setenv("SHOP_ID", "shop-1")
	t.Setenv("FE_URL", "http://localhost:5173/")
	t.Setenv("STORE_BACKEND", StoreBackendMemory)
	t.Setenv("CONFIG_FILE", "")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "http://commerce.local/api", cfg.CommerceAPIURL)
	assert.Equal(t, "http://localhost:5173", cfg.FEURL)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.InitialDelay)
	assert.Equal(t, 10*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 2.0, cfg.Retry.BackoffFactor)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PORT", ":9090")
	t.Setenv("RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("RETRY_INITIAL_DELAY", "250ms")
	t.Setenv("RETRY_BACKOFF_FACTOR", "1.5")
	t.Setenv("HTTP_TIMEOUT", "3s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.InitialDelay)
	assert.Equal(t, 1.5, cfg.Retry.BackoffFactor)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	setRequiredEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := []byte(`
retry:
  max_attempts: 4
  initial_delay: 500ms
  max_delay: 8s
http_timeout: 7s
session_cache_size: 64
`)
	require.NoError(t, os.WriteFile(path, yml, 0o600))
	t.Setenv("CONFIG_FILE", path)
	//環境変数が優先
	t.Setenv("RETRY_MAX_ATTEMPTS", "6")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.InitialDelay)
	assert.Equal(t, 8*time.Second, cfg.Retry.MaxDelay)
	assert.Equal(t, 2.0, cfg.Retry.BackoffFactor)
	assert.Equal(t, 7*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 64, cfg.SessionCacheSize)
}

func TestLoad_Errors(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{"missing secret", "JWT_SECRET", ""},
		{"missing commerce url", "COMMERCE_API_URL", ""},
		{"missing shop", "SHOP_ID", ""},
		{"bad backend", "STORE_BACKEND", "redis"},
		{"bad attempts", "RETRY_MAX_ATTEMPTS", "x"},
		{"bad duration", "RETRY_MAX_DELAY", "soon"},
		{"zero attempts", "RETRY_MAX_ATTEMPTS", "0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tc.key, tc.val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoad_PostgresNeedsCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("STORE_BACKEND", StoreBackendPostgres)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_PASSWORD", "")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("POSTGRES_PASSWORD", "pw")
	_, err = Load()
	assert.NoError(t, err)
}
