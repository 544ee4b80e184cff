package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Observability ObservabilityConfig
	RateLimit     RateLimitConfig
	Retention     RetentionConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// AuthConfig holds credential issuing and verification configuration
type AuthConfig struct {
	SigningSecret     string
	Issuer            string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	APIKeyDefaultTTL  time.Duration
	Argon2Memory      uint32
	Argon2Iterations  uint32
	Argon2Parallelism uint8
	Argon2SaltLength  uint32
	Argon2KeyLength   uint32
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string
	OTELEnabled    bool
	ServiceName    string
	ServiceVersion string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// RetentionConfig holds background cleanup configuration
type RetentionConfig struct {
	ActivityMaxAge time.Duration
	TokenRetention time.Duration
	SweepInterval  time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("CHRONICLE_SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("CHRONICLE_SERVER_PORT", "8080"),
			ReadTimeout:  parseDuration("CHRONICLE_SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: parseDuration("CHRONICLE_SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:  parseDuration("CHRONICLE_SERVER_IDLE_TIMEOUT", "60s"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("CHRONICLE_DB_HOST", "localhost"),
			Port:            getEnv("CHRONICLE_DB_PORT", "5432"),
			User:            getEnv("CHRONICLE_DB_USER", "chroniclehub"),
			Password:        getEnv("CHRONICLE_DB_PASSWORD", ""),
			Database:        getEnv("CHRONICLE_DB_NAME", "chroniclehub"),
			SSLMode:         getEnv("CHRONICLE_DB_SSLMODE", "disable"),
			MaxOpenConns:    parseInt("CHRONICLE_DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    parseInt("CHRONICLE_DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: parseDuration("CHRONICLE_DB_CONN_MAX_LIFETIME", "5m"),
		},
		Auth: AuthConfig{
			SigningSecret:     getEnv("CHRONICLE_AUTH_SIGNING_SECRET", ""),
			Issuer:            getEnv("CHRONICLE_AUTH_ISSUER", "chroniclehub"),
			AccessTokenTTL:    parseDuration("CHRONICLE_AUTH_ACCESS_TTL", "15m"),
			RefreshTokenTTL:   parseDuration("CHRONICLE_AUTH_REFRESH_TTL", "720h"),
			APIKeyDefaultTTL:  parseDuration("CHRONICLE_AUTH_API_KEY_TTL", "0s"),
			Argon2Memory:      uint32(parseInt("CHRONICLE_ARGON2_MEMORY", 65536)),
			Argon2Iterations:  uint32(parseInt("CHRONICLE_ARGON2_ITERATIONS", 3)),
			Argon2Parallelism: uint8(parseInt("CHRONICLE_ARGON2_PARALLELISM", 4)),
			Argon2SaltLength:  uint32(parseInt("CHRONICLE_ARGON2_SALT_LENGTH", 16)),
			Argon2KeyLength:   uint32(parseInt("CHRONICLE_ARGON2_KEY_LENGTH", 32)),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("CHRONICLE_LOG_LEVEL", "info"),
			LogFormat:      getEnv("CHRONICLE_LOG_FORMAT", "json"),
			OTELEnabled:    parseBool("CHRONICLE_OTEL_ENABLED", false),
			ServiceName:    getEnv("CHRONICLE_OTEL_SERVICE_NAME", "chroniclehub"),
			ServiceVersion: getEnv("CHRONICLE_OTEL_SERVICE_VERSION", "0.1.0"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: float64(parseInt("CHRONICLE_RATELIMIT_RPS", 10)),
			Burst:             parseInt("CHRONICLE_RATELIMIT_BURST", 20),
		},
		Retention: RetentionConfig{
			ActivityMaxAge: parseDuration("CHRONICLE_RETENTION_ACTIVITY_MAX_AGE", "2160h"),
			TokenRetention: parseDuration("CHRONICLE_RETENTION_TOKEN_GRACE", "168h"),
			SweepInterval:  parseDuration("CHRONICLE_RETENTION_SWEEP_INTERVAL", "1h"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("CHRONICLE_DB_PASSWORD is required")
	}
	if c.Auth.SigningSecret == "" {
		return fmt.Errorf("CHRONICLE_AUTH_SIGNING_SECRET is required")
	}
	if len(c.Auth.SigningSecret) < 32 {
		return fmt.Errorf("CHRONICLE_AUTH_SIGNING_SECRET must be at least 32 bytes")
	}
	return nil
}

// DSN renders the database configuration as a pgx connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	d, err := time.ParseDuration(value)
	if err != nil {
		// Fallback to default
		d, _ = time.ParseDuration(defaultValue)
	}
	return d
}
