package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLayersFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "catalog.toml")
	err := os.WriteFile(file, []byte(`
[server]
port = "9090"

[redis]
addr = "cache:6379"
db = 2

[jobs]
price_refresh_interval = "5m"

[queuing]
concurrency = 12

[auth]
issuer = "catalog-admin"
`), 0o600)
	require.NoError(t, err)

	t.Setenv("CONFIG_FILE", file)
	t.Setenv("REDIS_DB", "4")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 4, cfg.Redis.DB)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, 5*time.Minute, cfg.Jobs.PriceRefreshInterval)
	assert.Equal(t, 12, cfg.Queuing.Concurrency)
	assert.Equal(t, "catalogfacets", cfg.Cache.Prefix)
	assert.Equal(t, "catalog-admin", cfg.Auth.Issuer)
	assert.Equal(t, "s3cret", cfg.Auth.Secret)
	assert.Equal(t, "catalogfacets", cfg.Auth.Audience)
}

func TestLoadFileMissing(t *testing.T) {
	err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"), Default())
	assert.Error(t, err)
}

func TestEnvHelpersIgnoreGarbage(t *testing.T) {
	t.Setenv("WORKER_CONCURRENCY", "many")
	t.Setenv("CACHE_ENABLED", "maybe")
	t.Setenv("PRICE_REFRESH_INTERVAL", "soon")

	cfg := Default()
	applyEnv(cfg)
	assert.Equal(t, 5, cfg.Queuing.Concurrency)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Jobs.PriceRefreshInterval)
}
