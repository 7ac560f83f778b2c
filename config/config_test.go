package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("REDIS_HOST", "")
	t.Setenv("S3_BUCKET", "")

	cfg := LoadConfig()
	assert.Equal(t, 0, cfg.BroadcastBatchesPerSec)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.False(t, cfg.RedisEnabled())
	assert.False(t, cfg.S3Enabled())
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", StorageDriverMemory)
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("S3_REGION", "eu-west-1")
	t.Setenv("S3_BUCKET", "avatars")
	t.Setenv("BROADCAST_BATCHES_PER_SEC", "4")
	t.Setenv("RATE_LIMIT_WINDOW_SECONDS", "30")
	t.Setenv("TOKEN_FORMAT", "jwt")

	cfg := LoadConfig()
	assert.Equal(t, StorageDriverMemory, cfg.StorageDriver)
	assert.True(t, cfg.RedisEnabled())
	assert.True(t, cfg.S3Enabled())
	assert.Equal(t, 4, cfg.BroadcastBatchesPerSec)
	assert.Equal(t, 30*time.Second, cfg.RateLimitWindow)
	assert.Equal(t, "jwt", cfg.TokenFormat)
}

func TestGetEnvAsIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("RATE_LIMIT_BROADCAST", "lots")
	assert.Equal(t, 5, LoadConfig().RateLimitBroadcast)
}
