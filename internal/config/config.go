package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	SessionsInStore = "store"
	SessionsInRedis = "redis"
)

// Config holds all configuration for questauth
type Config struct {
	AppName string
	Port    string

	// Token configuration
	JWTSecret    string
	ChallengeTTL time.Duration
	SessionTTL   time.Duration

	// Storage configuration
	StoreBackend   string
	SessionBackend string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string

	// Redis configuration, also used for event streams when set
	RedisURL    string
	EventsTopic string

	// Maintenance
	PruneSchedule string

	// HTTP
	RateLimitPerMinute int
	AllowedOrigins     []string
	TrustedProxies     []string

	// Logging configuration
	LogLevel string
}

// Load reads configuration from environment variables and validates it
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", "questauth"),
		Port:           getEnv("PORT", "8000"),
		JWTSecret:      getEnv("JWT_SECRET_KEY", ""),
		StoreBackend:   strings.ToLower(getEnv("STORE_BACKEND", StoreMemory)),
		SessionBackend: strings.ToLower(getEnv("SESSION_BACKEND", SessionsInStore)),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", ""),
		DBPassword:     getEnv("DB_PASSWORD", ""),
		DBName:         getEnv("DB_NAME", ""),
		DBSSLMode:      getEnv("DB_SSL_MODE", "disable"),
		RedisURL:       getEnv("REDIS_URL", ""),
		EventsTopic:    getEnv("EVENTS_TOPIC", "questauth.events"),
		PruneSchedule:  getEnv("PRUNE_SCHEDULE", "@every 10m"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	var err error
	cfg.ChallengeTTL, err = parseDurationEnv("CHALLENGE_TTL", 120*time.Second)
	if err != nil {
		return cfg, fmt.Errorf("invalid CHALLENGE_TTL: %w", err)
	}

	cfg.SessionTTL, err = parseDurationEnv("SESSION_TTL", 10080*time.Minute)
	if err != nil {
		return cfg, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}

	cfg.RateLimitPerMinute, err = parseIntEnv("RATE_LIMIT_PER_MINUTE", 8)
	if err != nil {
		return cfg, fmt.Errorf("invalid RATE_LIMIT_PER_MINUTE: %w", err)
	}

	for _, origin := range strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	for _, proxy := range strings.Split(getEnv("TRUSTED_PROXIES", ""), ",") {
		if proxy = strings.TrimSpace(proxy); proxy != "" {
			cfg.TrustedProxies = append(cfg.TrustedProxies, proxy)
		}
	}

	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Addr returns the HTTP listen address
func (c Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

// DatabaseDSN returns the Postgres connection string
func (c Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode,
	)
}

// validate checks that the configuration is valid
func (c Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}

	if c.ChallengeTTL <= 0 {
		return fmt.Errorf("CHALLENGE_TTL must be positive")
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}

	switch c.StoreBackend {
	case StoreMemory:
	case StorePostgres:
		if c.DBName == "" {
			return fmt.Errorf("DB_NAME is required for the postgres store")
		}
	default:
		return fmt.Errorf("invalid STORE_BACKEND: %s (must be one of: memory, postgres)", c.StoreBackend)
	}

	switch c.SessionBackend {
	case SessionsInStore:
	case SessionsInRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis session backend")
		}
	default:
		return fmt.Errorf("invalid SESSION_BACKEND: %s (must be one of: store, redis)", c.SessionBackend)
	}

	if c.RateLimitPerMinute < 1 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be at least 1")
	}

	for _, proxy := range c.TrustedProxies {
		if net.ParseIP(proxy) == nil {
			if _, _, err := net.ParseCIDR(proxy); err != nil {
				return fmt.Errorf("invalid TRUSTED_PROXIES entry: %s (must be an IP or CIDR)", proxy)
			}
		}
	}

	if _, err := cron.ParseStandard(c.PruneSchedule); err != nil {
		return fmt.Errorf("invalid PRUNE_SCHEDULE: %w", err)
	}

	validLogLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
		"panic": true,
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid LOG_LEVEL: %s (must be one of: trace, debug, info, warn, error, fatal, panic)", c.LogLevel)
	}

	return nil
}

// getEnv retrieves an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv parses an integer environment variable with a default value
func parseIntEnv(key string, defaultValue int) (int, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(str)
}

// parseDurationEnv parses a Go duration environment variable with a default value
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(str)
}
