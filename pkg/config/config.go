package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/homegrid/viewtrack/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage StorageConfig

	// Tracking configuration
	Tracking TrackingConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// StorageConfig holds database and cache configuration
type StorageConfig struct {
	PostgresURL         string
	PostgresReplicaURLs string // comma-separated read replica URLs
	PostgresMaxConns    int
	PostgresMinConns    int
	PostgresTimeout     time.Duration

	RedisURL        string
	RedisPassword   string
	RedisDB         int
	RedisMaxRetries int
	RedisPoolSize   int

	CacheEnabled bool

	// In-process property summary cache (gating fast path)
	PropertyCacheSize int
	PropertyCacheTTL  time.Duration
}

// TrackingConfig holds passive view-tracking configuration
type TrackingConfig struct {
	// Workers processing fire-and-forget view persists
	PassiveWorkers int
	// Per-persist timeout, detached from the originating request
	PassiveTimeout time.Duration
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Tracking:      loadTrackingConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("VIEWTRACK_HOST", "0.0.0.0"),
		Port:            getEnv("VIEWTRACK_PORT", "8080"),
		ReadTimeout:     getEnvDuration("VIEWTRACK_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("VIEWTRACK_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("VIEWTRACK_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("VIEWTRACK_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("VIEWTRACK_HEALTH_PORT", "9090"),
	}
}

// loadStorageConfig loads storage configuration from environment
func loadStorageConfig() StorageConfig {
	return StorageConfig{
		PostgresURL:         getEnv("VIEWTRACK_POSTGRES_URL", ""),
		PostgresReplicaURLs: getEnv("VIEWTRACK_POSTGRES_REPLICA_URLS", ""),
		PostgresMaxConns:    getEnvInt("VIEWTRACK_POSTGRES_MAX_CONNS", 25),
		PostgresMinConns:    getEnvInt("VIEWTRACK_POSTGRES_MIN_CONNS", 5),
		PostgresTimeout:     getEnvDuration("VIEWTRACK_POSTGRES_TIMEOUT", 10*time.Second),

		RedisURL:        getEnv("VIEWTRACK_REDIS_URL", ""),
		RedisPassword:   getEnv("VIEWTRACK_REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("VIEWTRACK_REDIS_DB", 0),
		RedisMaxRetries: getEnvInt("VIEWTRACK_REDIS_MAX_RETRIES", 3),
		RedisPoolSize:   getEnvInt("VIEWTRACK_REDIS_POOL_SIZE", 10),

		CacheEnabled: getEnvBool("VIEWTRACK_CACHE_ENABLED", true),

		PropertyCacheSize: getEnvInt("VIEWTRACK_PROPERTY_CACHE_SIZE", 4096),
		PropertyCacheTTL:  getEnvDuration("VIEWTRACK_PROPERTY_CACHE_TTL", 30*time.Second),
	}
}

// loadTrackingConfig loads passive tracking configuration from environment
func loadTrackingConfig() TrackingConfig {
	return TrackingConfig{
		PassiveWorkers: getEnvInt("VIEWTRACK_PASSIVE_WORKERS", 8),
		PassiveTimeout: getEnvDuration("VIEWTRACK_PASSIVE_TIMEOUT", 10*time.Second),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       parseLogLevel(getEnv("VIEWTRACK_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("VIEWTRACK_METRICS_ENABLED", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Storage.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Storage.CacheEnabled && c.Storage.RedisURL == "" {
		return fmt.Errorf("redis URL is required when caching is enabled")
	}

	if c.Tracking.PassiveWorkers <= 0 {
		return fmt.Errorf("passive worker count must be positive")
	}

	return nil
}

// ReplicaURLs returns the configured read replica URLs
func (c *StorageConfig) ReplicaURLs() []string {
	if c.PostgresReplicaURLs == "" {
		return nil
	}
	parts := strings.Split(c.PostgresReplicaURLs, ",")
	urls := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			urls = append(urls, trimmed)
		}
	}
	return urls
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
