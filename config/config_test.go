package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, "auto", cfg.StoreBackend)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 10*time.Second, cfg.MongoConnectTimeout)
	assert.Equal(t, uint64(10), cfg.MongoMaxPoolSize)
	assert.Zero(t, cfg.RateLimitRPS)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"port": 9000, "store-backend": "json", "data-dir": "/tmp/admin"}`), 0o644))

	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("MONGO_CONNECT_TIMEOUT", "3s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.test, https://b.test")

	cfg, err := load(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "sqlite", cfg.StoreBackend)
	assert.Equal(t, "/tmp/admin", cfg.DataDir)
	assert.Equal(t, 3*time.Second, cfg.MongoConnectTimeout)
	assert.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.AllowedOrigins)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown backend", map[string]string{"STORE_BACKEND": "cassandra"}},
		{"mongo without uri", map[string]string{"STORE_BACKEND": "mongo"}},
		{"bad port", map[string]string{"PORT": "70000"}},
		{"negative rate", map[string]string{"RATE_LIMIT_RPS": "-1"}},
		{"rate without burst", map[string]string{"RATE_LIMIT_RPS": "5", "RATE_LIMIT_BURST": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := load(filepath.Join(t.TempDir(), "config.json"))
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"port":`), 0o644))

	_, err := load(path)
	assert.Error(t, err)
}
