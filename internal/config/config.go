package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Concurrency guard rails. The archive throttles aggressively; more than
// maxWorkerCeiling in-flight units is a caller misconfiguration.
const (
	defaultWorkers   = 4
	maxWorkerCeiling = 12
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	ArchiveURL      string
	ArchiveKey      string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	MaxConcurrency  int
	RetryAttempts   int
	RequestTimeout  time.Duration
	SequentialDelay time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is honoured if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	requestTimeout, err := parseDuration("ARCHIVE_TIMEOUT", "120s")
	if err != nil {
		return nil, err
	}
	sequentialDelay, err := parseNonNegativeDuration("SEQUENTIAL_DELAY", "2s")
	if err != nil {
		return nil, err
	}
	maxConcurrency, err := parseInt("MAX_CONCURRENCY", defaultWorkers)
	if err != nil {
		return nil, err
	}
	retryAttempts, err := parseInt("RETRY_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ArchiveURL:      envOrDefault("ARCHIVE_URL", "https://cds.climate.copernicus.eu/api"),
		ArchiveKey:      os.Getenv("ARCHIVE_KEY"),
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		MaxConcurrency:  maxConcurrency,
		RetryAttempts:   retryAttempts,
		RequestTimeout:  requestTimeout,
		SequentialDelay: sequentialDelay,
	}

	if cfg.ArchiveURL == "" {
		return nil, errors.New("ARCHIVE_URL is required")
	}
	if cfg.MaxConcurrency > maxWorkerCeiling {
		return nil, fmt.Errorf("MAX_CONCURRENCY must be at most %d", maxWorkerCeiling)
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseNonNegativeDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
