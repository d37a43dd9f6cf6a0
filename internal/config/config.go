// Package config provides configuration management for the application
package config

import (
	"os"
	"strconv"
	"time"
)

// RedisConfig holds Redis/Valkey configuration, used for both the state
// store and the broadcast bus
type RedisConfig struct {
	Enabled bool
	// URI is prioritized if provided, otherwise individual connection parameters are used
	URI       string
	Host      string
	Port      string
	Username  string
	Password  string
	DB        int
	KeyPrefix string
	// TTL for room state entries (0 means no expiration)
	StateTTL time.Duration
}

// SyncConfig holds the playback synchronization parameters
type SyncConfig struct {
	// TickInterval is the cadence of the per-room playback clock
	TickInterval time.Duration
	// OpTimeout bounds each store/bus call made by a tick so a slow backend
	// degrades to a skipped tick instead of a stalled loop
	OpTimeout time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

// GetRedisConfig loads Redis/Valkey configuration from environment variables
func GetRedisConfig() RedisConfig {
	// Parse TTL from environment variable (in hours); the original deployment
	// kept room state for 10 hours
	ttlHours, _ := strconv.Atoi(getEnv("REDIS_STATE_TTL_HOURS", "10"))
	ttl := time.Duration(ttlHours) * time.Hour

	db, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))

	return RedisConfig{
		Enabled:   getEnvBool("REDIS_ENABLED", false),
		URI:       getEnv("REDIS_URI", ""),
		Host:      getEnv("REDIS_HOST", "localhost"),
		Port:      getEnv("REDIS_PORT", "6379"),
		Username:  getEnv("REDIS_USERNAME", ""),
		Password:  getEnv("REDIS_PASSWORD", ""),
		DB:        db,
		KeyPrefix: getEnv("REDIS_KEY_PREFIX", "classync:"),
		StateTTL:  ttl,
	}
}

// GetSyncConfig loads playback synchronization configuration from environment variables
func GetSyncConfig() SyncConfig {
	return SyncConfig{
		TickInterval: getEnvDuration("SYNC_TICK_INTERVAL", time.Second),
		OpTimeout:    getEnvDuration("SYNC_OP_TIMEOUT", 2*time.Second),
	}
}

// GetServerConfig loads HTTP server configuration from environment variables
func GetServerConfig() ServerConfig {
	return ServerConfig{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: []string{getEnv("CORS_ALLOWED_ORIGIN", "*")},
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBool retrieves a boolean environment variable
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

// getEnvDuration retrieves a duration environment variable in Go duration syntax
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}
