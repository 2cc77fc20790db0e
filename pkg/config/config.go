package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/strataops/strata/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Auth configuration
	Auth AuthConfig

	// Database configuration
	Database DatabaseConfig

	// Membership cache configuration
	Cache CacheConfig

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

// AuthConfig holds token verification settings
type AuthConfig struct {
	// JWTSecret is the HMAC secret used to verify bearer tokens. The
	// service refuses to start without it.
	JWTSecret string

	// ValidateMembership controls whether tenant resolution consults
	// the membership store instead of trusting the token role.
	ValidateMembership bool
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	PostgresURL    string
	MaxOpenConns   int
	MaxIdleConns   int
	ConnMaxLife    time.Duration
	AcquireTimeout time.Duration
}

// CacheConfig holds membership cache settings
type CacheConfig struct {
	Enabled       bool
	TTL           time.Duration
	RedisURL      string
	RedisPassword string
	RedisDB       int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Auth:          loadAuthConfig(),
		Database:      loadDatabaseConfig(),
		Cache:         loadCacheConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("STRATA_HOST", "0.0.0.0"),
		Port:            getEnv("STRATA_PORT", "8080"),
		ReadTimeout:     getEnvDuration("STRATA_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("STRATA_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("STRATA_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("STRATA_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("STRATA_HEALTH_PORT", "9090"),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:          getEnv("STRATA_JWT_SECRET", ""),
		ValidateMembership: getEnvBool("STRATA_VALIDATE_MEMBERSHIP", false),
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		PostgresURL:    getEnv("STRATA_POSTGRES_URL", ""),
		MaxOpenConns:   getEnvInt("STRATA_POSTGRES_MAX_CONNS", 25),
		MaxIdleConns:   getEnvInt("STRATA_POSTGRES_IDLE_CONNS", 5),
		ConnMaxLife:    getEnvDuration("STRATA_POSTGRES_CONN_MAX_LIFE", 5*time.Minute),
		AcquireTimeout: getEnvDuration("STRATA_POSTGRES_ACQUIRE_TIMEOUT", 5*time.Second),
	}
}

func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:       getEnvBool("STRATA_CACHE_ENABLED", true),
		TTL:           getEnvDuration("STRATA_CACHE_TTL", 5*time.Minute),
		RedisURL:      getEnv("STRATA_REDIS_URL", ""),
		RedisPassword: getEnv("STRATA_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("STRATA_REDIS_DB", 0),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("STRATA_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("STRATA_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("STRATA_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("STRATA_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("STRATA_OTEL_SERVICE_NAME", "strata-api"),
		OTelServiceVersion: getEnv("STRATA_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("STRATA_OTEL_INSECURE", true),
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

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT secret is required")
	}

	if c.Database.PostgresURL == "" {
		return fmt.Errorf("postgres URL is required")
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("postgres max connections must be at least 1")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
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
