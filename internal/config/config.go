// Package config loads server configuration from environment variables,
// with a best-effort .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs at startup
type Config struct {
	ListenAddr string
	APIToken   string

	DBConnStr string

	CoinCapBaseURL string
	PriceTimeout   time.Duration

	// RedisAddr enables the price cache when non-empty
	RedisAddr     string
	RedisPassword string
	PriceCacheTTL time.Duration

	// CryptoPrecision is the decimal precision quantities are recorded at
	CryptoPrecision int32

	// SeedDemoUser creates the local demo account at startup
	SeedDemoUser bool

	LogLevel string
	LogFile  string
}

// Load reads configuration from the environment. A missing .env file is
// not an error.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:      getEnv("MOONFOLIO_ADDR", ":8080"),
		APIToken:        getEnv("MOONFOLIO_API_TOKEN", "dev-token"),
		DBConnStr:       os.Getenv("DB_CONN_STR"),
		CoinCapBaseURL:  getEnv("COINCAP_BASE_URL", ""),
		PriceTimeout:    getEnvDuration("PRICE_TIMEOUT", 5*time.Second),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		PriceCacheTTL:   getEnvDuration("PRICE_CACHE_TTL", 10*time.Second),
		CryptoPrecision: int32(getEnvInt("CRYPTO_PRECISION", 8)),
		SeedDemoUser:    getEnvBool("SEED_DEMO_USER", false),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", ""),
	}

	if cfg.DBConnStr == "" {
		// Build the connection string from individual vars (Docker friendly)
		cfg.DBConnStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", "postgres"),
			getEnv("DB_NAME", "moonfolio"),
		)
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
