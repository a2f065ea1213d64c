// Package config loads runtime configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds the runtime settings for the ledger process.
type Config struct {
	// DBPath is the SQLite database file path.
	DBPath string

	// MetricsAddr is the listen address for the metrics/health endpoint.
	MetricsAddr string

	// LogLevel is debug, info, warn or error.
	LogLevel string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DBPath:      getEnv("DB_PATH", "./data/ledger.db"),
		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
