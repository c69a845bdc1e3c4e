package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ec-storefront/internal/infrastructure/store"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STOREFRONT_API_URL", "")
	t.Setenv("STOREFRONT_STORE", "")
	t.Setenv("STOREFRONT_TOKEN_REFRESH", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, DefaultAPIURL, cfg.APIURL)
	assert.Equal(t, time.Duration(0), cfg.HTTPTimeout)
	assert.True(t, cfg.TokenRefresh)
	assert.Equal(t, store.BackendFile, cfg.Store.Backend)
	assert.NotEmpty(t, cfg.Store.FilePath)
	assert.NotEmpty(t, cfg.Store.DeviceID)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("STOREFRONT_API_URL", "https://shop.example.com/api/")
	t.Setenv("STOREFRONT_HTTP_TIMEOUT", "15s")
	t.Setenv("STOREFRONT_TOKEN_REFRESH", "false")
	t.Setenv("STOREFRONT_STORE", "redis")
	t.Setenv("STOREFRONT_REDIS_DB", "3")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "https://shop.example.com/api", cfg.APIURL)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.False(t, cfg.TokenRefresh)
	assert.Equal(t, store.BackendRedis, cfg.Store.Backend)
	assert.Equal(t, 3, cfg.Store.RedisDB)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_DotEnvFile(t *testing.T) {
	// godotenv never overrides variables that are already set, even empty ones
	t.Setenv("STOREFRONT_DEVICE_ID", "")
	require.NoError(t, os.Unsetenv("STOREFRONT_DEVICE_ID"))

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("STOREFRONT_DEVICE_ID=kiosk-7\n"), 0o600))

	cfg, err := Load(envFile)
	require.NoError(t, err)

	assert.Equal(t, "kiosk-7", cfg.Store.DeviceID)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("STOREFRONT_HTTP_TIMEOUT", "soon")
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "STOREFRONT_HTTP_TIMEOUT")

	t.Setenv("STOREFRONT_HTTP_TIMEOUT", "")
	t.Setenv("STOREFRONT_REDIS_DB", "x")
	_, err = Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "STOREFRONT_REDIS_DB")
}

func TestRequireJWTSecret(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		wantErr bool
	}{
		{"missing", "", true},
		{"short", "too-short", true},
		{"ok", "a-very-long-development-secret-key-0123", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{JWTSecret: tt.secret}
			err := cfg.RequireJWTSecret()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
