package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetRedisConfigDefaults(t *testing.T) {
	cfg := GetRedisConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, "6379", cfg.Port)
	assert.Equal(t, "classync:", cfg.KeyPrefix)
	assert.Equal(t, 10*time.Hour, cfg.StateTTL)
}

func TestGetRedisConfigFromEnv(t *testing.T) {
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("REDIS_HOST", "valkey.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_KEY_PREFIX", "sync:")
	t.Setenv("REDIS_STATE_TTL_HOURS", "2")

	cfg := GetRedisConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "valkey.internal", cfg.Host)
	assert.Equal(t, "6380", cfg.Port)
	assert.Equal(t, "sync:", cfg.KeyPrefix)
	assert.Equal(t, 2*time.Hour, cfg.StateTTL)
}

func TestGetSyncConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg := GetSyncConfig()
		assert.Equal(t, time.Second, cfg.TickInterval)
		assert.Equal(t, 2*time.Second, cfg.OpTimeout)
	})

	t.Run("FromEnv", func(t *testing.T) {
		t.Setenv("SYNC_TICK_INTERVAL", "250ms")
		t.Setenv("SYNC_OP_TIMEOUT", "500ms")

		cfg := GetSyncConfig()
		assert.Equal(t, 250*time.Millisecond, cfg.TickInterval)
		assert.Equal(t, 500*time.Millisecond, cfg.OpTimeout)
	})

	t.Run("InvalidDurationFallsBack", func(t *testing.T) {
		t.Setenv("SYNC_TICK_INTERVAL", "fast")
		cfg := GetSyncConfig()
		assert.Equal(t, time.Second, cfg.TickInterval)
	})

	t.Run("NonPositiveDurationFallsBack", func(t *testing.T) {
		t.Setenv("SYNC_TICK_INTERVAL", "-1s")
		cfg := GetSyncConfig()
		assert.Equal(t, time.Second, cfg.TickInterval)
	})
}

func TestGetServerConfig(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		cfg := GetServerConfig()
		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	})

	t.Run("FromEnv", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("CORS_ALLOWED_ORIGIN", "https://app.example.com")

		cfg := GetServerConfig()
		assert.Equal(t, "9090", cfg.Port)
		assert.Equal(t, []string{"https://app.example.com"}, cfg.AllowedOrigins)
	})
}
