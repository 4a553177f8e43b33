package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config collects every tunable of the client stack. Defaults match the
// backend contract; any value can be overridden via the environment (a
// .env file is honored when present).
type Config struct {
	AppEnv string

	// Transport
	APIBaseURL        string
	HTTPTimeout       time.Duration
	RetryAttempts     int
	RetryBaseDelay    time.Duration
	RetryMaxDelay     time.Duration
	RequestsPerSecond float64

	// Polling
	PollInterval time.Duration

	// Read model staleness windows
	OrderStaleness       time.Duration
	OrderListStaleness   time.Duration
	ProductStaleness     time.Duration
	ProductListStaleness time.Duration

	// Idempotency key persistence
	KeyRetention time.Duration
	KeyStore     string // memory | redis | dynamo
	RedisAddr    string
	RedisPass    string
	DynamoTable  string
}

// Load reads the environment and returns a fully defaulted Config.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		AppEnv: getEnv("APP_ENV", "development"),

		APIBaseURL:        getEnv("API_BASE_URL", "http://localhost:8080"),
		HTTPTimeout:       getDuration("API_TIMEOUT", 10*time.Second),
		RetryAttempts:     getInt("API_RETRY_ATTEMPTS", 3),
		RetryBaseDelay:    getDuration("API_RETRY_BASE_DELAY", time.Second),
		RetryMaxDelay:     getDuration("API_RETRY_MAX_DELAY", 8*time.Second),
		RequestsPerSecond: getFloat("API_REQUESTS_PER_SECOND", 20),

		PollInterval: getDuration("ORDER_POLL_INTERVAL", 5*time.Second),

		OrderStaleness:       getDuration("ORDER_STALENESS", 10*time.Second),
		OrderListStaleness:   getDuration("ORDER_LIST_STALENESS", 30*time.Second),
		ProductStaleness:     getDuration("PRODUCT_STALENESS", 2*time.Minute),
		ProductListStaleness: getDuration("PRODUCT_LIST_STALENESS", 2*time.Minute),

		KeyRetention: getDuration("IDEMPOTENCY_KEY_RETENTION", 24*time.Hour),
		KeyStore:     getEnv("IDEMPOTENCY_KEY_STORE", "memory"),
		RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:    getEnv("REDIS_PASSWORD", ""),
		DynamoTable:  getEnv("IDEMPOTENCY_DYNAMO_TABLE", "idempotency-keys"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}
