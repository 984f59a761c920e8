package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	// Server configuration
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// TMDB catalog configuration
	TMDBBaseURL string
	TMDBAPIKey  string
	TMDBTimeout time.Duration

	// Pricing configuration
	SeatPrice  decimal.Decimal
	ServiceFee decimal.Decimal

	// Seat map configuration
	SeatRows int
	SeatCols int

	// Timeout configuration
	SeatLockTTL     time.Duration
	JanitorInterval time.Duration

	// Rate limiting
	LockRateLimit  int
	LockRateWindow time.Duration

	// Monitoring
	EnableMetrics bool
}

func LoadConfig() *Config {
	// Missing .env is fine, values may come from the process environment.
	_ = godotenv.Load()

	return &Config{
		// Server
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// TMDB
		TMDBBaseURL: getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBAPIKey:  getEnv("TMDB_API_KEY", ""),
		TMDBTimeout: getEnvAsDuration("TMDB_TIMEOUT", "10s"),

		// Pricing
		SeatPrice:  getEnvAsDecimal("SEAT_PRICE", "12.99"),
		ServiceFee: getEnvAsDecimal("SERVICE_FEE", "2.50"),

		// Seat map
		SeatRows: getEnvAsInt("SEAT_ROWS", 8),
		SeatCols: getEnvAsInt("SEAT_COLS", 10),

		// Timeouts
		SeatLockTTL:     getEnvAsDuration("SEAT_LOCK_TTL", "5m"),
		JanitorInterval: getEnvAsDuration("JANITOR_INTERVAL", "30s"),

		// Rate limiting
		LockRateLimit:  getEnvAsInt("LOCK_RATE_LIMIT", 30),
		LockRateWindow: getEnvAsDuration("LOCK_RATE_WINDOW", "1m"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsDecimal(key string, defaultValue string) decimal.Decimal {
	valueStr := getEnv(key, defaultValue)
	if value, err := decimal.NewFromString(valueStr); err == nil {
		return value
	}
	value, _ := decimal.NewFromString(defaultValue)
	return value
}
