package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig
	Cache   CacheConfig
	Pricing PricingConfig
	CORS    CORSConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// CacheConfig holds price-cache persistence configuration
type CacheConfig struct {
	Path string
}

// PricingConfig holds configuration for the price resolution service
type PricingConfig struct {
	// BinanceBaseURL is the klines API endpoint prefix.
	BinanceBaseURL string
	// ReportingCurrency is the fiat currency everything is valued in.
	ReportingCurrency string
	// FiatCurrencies is the set of legal-tender currency symbols used to
	// distinguish taxable disposals from internal crypto swaps.
	FiatCurrencies []string
	// Workers bounds the number of concurrent remote price fetches.
	Workers int
	// RetryAttempts bounds the backoff retries on rate-limited fetches.
	RetryAttempts int
	// RequestsPerSecond limits outgoing calls to the price source.
	RequestsPerSecond float64
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "5001"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Cache: CacheConfig{
			Path: getEnv("PRICE_CACHE_PATH", "./data/price_cache.db"),
		},
		Pricing: PricingConfig{
			BinanceBaseURL:    getEnv("BINANCE_API_URL", "https://api.binance.com/api/v3"),
			ReportingCurrency: getEnv("REPORTING_CURRENCY", "EUR"),
			FiatCurrencies: getEnvList("FIAT_CURRENCIES",
				[]string{"EUR", "USD", "GBP", "CHF", "JPY", "CAD", "AUD", "NZD", "SGD"}),
			Workers:           getEnvInt("PRICE_WORKERS", 10),
			RetryAttempts:     getEnvInt("PRICE_RETRY_ATTEMPTS", 3),
			RequestsPerSecond: getEnvFloat("PRICE_REQUESTS_PER_SECOND", 10),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost",
			},
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets a positive integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

// getEnvFloat gets a positive float environment variable or returns a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 {
		return defaultValue
	}
	return f
}

// getEnvList gets a comma-separated environment variable or returns a default value
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			list = append(list, p)
		}
	}
	if len(list) == 0 {
		return defaultValue
	}
	return list
}
