package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"API_ADDR", "REDIS_URL", "MEILI_URL", "FUNDOPS_APPLY_MAX_BATCH", "FUNDOPS_ACCESS_CACHE_TTL_SECONDS", "S3_USE_SSL"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, ":8787", cfg.Addr)
	assert.Empty(t, cfg.RedisURL)
	assert.Empty(t, cfg.MeiliURL)
	assert.Equal(t, 500, cfg.ApplyMaxBatch)
	assert.Equal(t, time.Minute, cfg.AccessCacheTTL)
	assert.False(t, cfg.S3UseSSL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_ADDR", ":9000")
	t.Setenv("FUNDOPS_APPLY_MAX_BATCH", "25")
	t.Setenv("FUNDOPS_ACCESS_CACHE_TTL_SECONDS", "5")
	t.Setenv("S3_USE_SSL", "true")
	t.Setenv("LOG_FORMAT", "console")

	cfg := Load()
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 25, cfg.ApplyMaxBatch)
	assert.Equal(t, 5*time.Second, cfg.AccessCacheTTL)
	assert.True(t, cfg.S3UseSSL)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("FUNDOPS_APPLY_MAX_BATCH", "lots")
	t.Setenv("S3_USE_SSL", "maybe")

	cfg := Load()
	assert.Equal(t, 500, cfg.ApplyMaxBatch)
	assert.False(t, cfg.S3UseSSL)
}
