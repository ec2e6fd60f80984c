package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Host string
	Port string `validate:"required,numeric"`

	// Geolocation store configuration
	GeoDBType string `validate:"oneof=mmdb csv mysql redis"`
	GeoDBPath string

	// MySQL configuration
	MySQLDSN string

	// Redis configuration, shared by the redis store and the redis limiter
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Trusted reverse proxy ranges, CIDR notation
	TrustedProxies []string

	// Static files
	APIKeysFile string `validate:"required"`
	VersionFile string `validate:"required"`

	// Logging
	LogLevel  string `validate:"oneof=debug info warn error"`
	HumanLogs bool

	// Rate limiting
	RateLimiterType string `validate:"oneof=memory redis"`
	RateLimit       int    `validate:"min=1"`
	RateLimitWindow int    `validate:"min=1"`
}

// Load reads configuration from environment variables with sensible defaults
// and validates it. A .env file is honored for local development; in
// production the environment is set directly.
func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		Host: getEnv("HOST", ""),
		Port: getEnv("PORT", "8000"),

		GeoDBType: getEnv("GEODB_TYPE", "mmdb"),
		GeoDBPath: getEnv("GEODB_PATH", "./GeoLite2-Country.mmdb"),

		MySQLDSN: getEnv("MYSQL_DSN", ""),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),

		APIKeysFile: getEnv("API_KEYS_FILE", "./apiKeys.json"),
		VersionFile: getEnv("VERSION_FILE", "./version.json"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		HumanLogs: getEnvAsBool("HUMAN_LOGS", false),

		RateLimiterType: getEnv("RATE_LIMITER_TYPE", "memory"),
		RateLimit:       getEnvAsInt("RATE_LIMIT", 100),
		RateLimitWindow: getEnvAsInt("RATE_LIMIT_WINDOW", 1),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration for values that would make the service
// misbehave at request time. Failing here keeps bad config a startup error.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.GeoDBType == "mysql" && c.MySQLDSN == "" {
		return fmt.Errorf("invalid configuration: MYSQL_DSN is required when GEODB_TYPE=mysql")
	}

	return nil
}

// Addr returns the host:port the server listens on.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt reads an environment variable as an integer,
// returning default if not set or invalid
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsBool reads an environment variable as a boolean,
// returning default if not set or invalid
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsList reads a comma-separated environment variable,
// trimming whitespace and dropping empty entries
func getEnvAsList(key string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return nil
	}

	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		v = strings.TrimSpace(v)
		if v != "" {
			values = append(values, v)
		}
	}

	return values
}
