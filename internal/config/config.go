package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Common
	Environment string
	LogLevel    string

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Subsystems
	Ranking RankingConfig
	Cache   CacheConfig
	Refresh RefreshConfig
	API     APIConfig
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	QueryTimeout    time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	OpTimeout    time.Duration
}

// RankingConfig holds score weights and ranking limits
type RankingConfig struct {
	CommentWeight  float64
	ReactionWeight float64
	GravityHours   float64
	DecayExponent  float64
	DefaultLimit   int
	MaxLimit       int
}

// CacheConfig holds TTLs for the cache tiers
type CacheConfig struct {
	ShortTTL  time.Duration
	MediumTTL time.Duration
	LongTTL   time.Duration
}

// RefreshConfig holds refresh scheduler configuration
type RefreshConfig struct {
	Interval            time.Duration
	RecencyWindow       time.Duration
	NotifyDebounce      time.Duration
	EnableNotifications bool
}

// APIConfig holds REST API configuration
type APIConfig struct {
	Port            int
	HealthCheckPort int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Load loads configuration from environment variables
// It automatically loads .env file if it exists in the current directory
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Database:        getEnv("DB_NAME", "trendrank"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:  getEnvAsInt("DB_MAX_CONNECTIONS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			QueryTimeout:    getEnvAsDuration("DB_QUERY_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnvAsInt("REDIS_PORT", 6379),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvAsInt("REDIS_DB", 0),
			PoolSize:     getEnvAsInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvAsInt("REDIS_MIN_IDLE_CONNS", 5),
			OpTimeout:    getEnvAsDuration("REDIS_OP_TIMEOUT", 500*time.Millisecond),
		},
		Ranking: RankingConfig{
			CommentWeight:  getEnvAsFloat("RANKING_COMMENT_WEIGHT", 2.0),
			ReactionWeight: getEnvAsFloat("RANKING_REACTION_WEIGHT", 0.5),
			GravityHours:   getEnvAsFloat("RANKING_GRAVITY_HOURS", 12.0),
			DecayExponent:  getEnvAsFloat("RANKING_DECAY_EXPONENT", 1.8),
			DefaultLimit:   getEnvAsInt("RANKING_DEFAULT_LIMIT", 20),
			MaxLimit:       getEnvAsInt("RANKING_MAX_LIMIT", 100),
		},
		Cache: CacheConfig{
			ShortTTL:  getEnvAsDuration("CACHE_SHORT_TTL", 60*time.Second),
			MediumTTL: getEnvAsDuration("CACHE_MEDIUM_TTL", 300*time.Second),
			LongTTL:   getEnvAsDuration("CACHE_LONG_TTL", 1*time.Hour),
		},
		Refresh: RefreshConfig{
			Interval:            getEnvAsDuration("REFRESH_INTERVAL", 5*time.Minute),
			RecencyWindow:       getEnvAsDuration("REFRESH_RECENCY_WINDOW", 15*time.Minute),
			NotifyDebounce:      getEnvAsDuration("REFRESH_NOTIFY_DEBOUNCE", 30*time.Second),
			EnableNotifications: getEnvAsBool("REFRESH_ENABLE_NOTIFICATIONS", true),
		},
		API: APIConfig{
			Port:            getEnvAsInt("API_PORT", 8080),
			HealthCheckPort: getEnvAsInt("API_HEALTH_PORT", 8081),
			ReadTimeout:     getEnvAsDuration("API_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("API_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("API_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration. Invalid weights or TTLs are fatal:
// the process must not serve traffic with a broken scoring function.
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}
	if c.Redis.Host == "" {
		return fmt.Errorf("REDIS_HOST is required")
	}
	if c.Ranking.CommentWeight <= 0 {
		return fmt.Errorf("RANKING_COMMENT_WEIGHT must be positive")
	}
	if c.Ranking.ReactionWeight <= 0 {
		return fmt.Errorf("RANKING_REACTION_WEIGHT must be positive")
	}
	if c.Ranking.GravityHours <= 0 {
		return fmt.Errorf("RANKING_GRAVITY_HOURS must be positive")
	}
	if c.Ranking.DecayExponent <= 0 {
		return fmt.Errorf("RANKING_DECAY_EXPONENT must be positive")
	}
	if c.Ranking.DefaultLimit < 1 {
		return fmt.Errorf("RANKING_DEFAULT_LIMIT must be at least 1")
	}
	if c.Ranking.MaxLimit < c.Ranking.DefaultLimit {
		return fmt.Errorf("RANKING_MAX_LIMIT must be >= RANKING_DEFAULT_LIMIT")
	}
	if c.Cache.MediumTTL <= 0 {
		return fmt.Errorf("CACHE_MEDIUM_TTL must be positive")
	}
	if c.Refresh.Interval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL must be positive")
	}
	if c.Refresh.RecencyWindow <= 0 {
		return fmt.Errorf("REFRESH_RECENCY_WINDOW must be positive")
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return floatValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
