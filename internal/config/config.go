package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds configuration for the service.
type Config struct {
	HTTPPort   string
	Session    SessionConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	Summarizer SummarizerConfig
}

// SessionConfig holds settings for decoding the external identity
// layer's session cookie.
type SessionConfig struct {
	CookieName string
	Secret     []byte
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	KeyCacheSize    int
	KeyCacheTTL     time.Duration
}

// RedisConfig holds Redis connection settings. An empty Address disables
// Redis-backed request limiting.
type RedisConfig struct {
	Address      string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RateLimitConfig holds the per-key request rate settings
type RateLimitConfig struct {
	RequestsPerMinute int
}

// SummarizerConfig holds settings for the summarization collaborator. An
// empty APIKey disables AI summarization; the extraction fallback still
// works.
type SummarizerConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}

	return intVal
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}

	return duration
}

func getEnvString(key string, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	cfg := &Config{
		HTTPPort: getEnvString("HTTP_PORT", "8080"),
		Session: SessionConfig{
			CookieName: getEnvString("SESSION_COOKIE_NAME", "session-token"),
			Secret:     []byte(sessionSecret),
		},
		Database: DatabaseConfig{
			URL:             dbURL,
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 1*time.Minute),
			KeyCacheSize:    getEnvInt("KEY_CACHE_SIZE", 1000),
			KeyCacheTTL:     getEnvDuration("KEY_CACHE_TTL", 1*time.Minute),
		},
		Redis: RedisConfig{
			Address:      getEnvString("REDIS_ADDRESS", ""),
			Password:     getEnvString("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			PoolSize:     getEnvInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getEnvInt("RATE_LIMIT_RPM", 60),
		},
		Summarizer: SummarizerConfig{
			APIKey:  getEnvString("SUMMARIZER_API_KEY", ""),
			BaseURL: getEnvString("SUMMARIZER_BASE_URL", ""),
			Model:   getEnvString("SUMMARIZER_MODEL", ""),
			Timeout: getEnvDuration("SUMMARIZER_TIMEOUT", 30*time.Second),
		},
	}

	return cfg, nil
}
