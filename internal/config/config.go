package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Series sources accepted by SERIES_SOURCE.
const (
	SourceYAML   = "yaml"
	SourceSQLite = "sqlite"
)

// Config holds all runtime configuration for the replay trader.
type Config struct {
	Port            int
	LogLevel        string
	BaseInterval    time.Duration
	InitialCash     decimal.Decimal
	SeriesSource    string
	SeriesDir       string
	SeriesDB        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d is outside 1-65535", port)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	baseInterval, err := getDuration("BASE_INTERVAL", 1*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid BASE_INTERVAL: %w", err)
	}
	if baseInterval <= 0 {
		return nil, fmt.Errorf("invalid BASE_INTERVAL: %v must be positive", baseInterval)
	}

	initialCash, err := getDecimal("INITIAL_CASH", decimal.NewFromInt(100000))
	if err != nil {
		return nil, fmt.Errorf("invalid INITIAL_CASH: %w", err)
	}
	if initialCash.IsNegative() {
		return nil, fmt.Errorf("invalid INITIAL_CASH: %s must not be negative", initialCash)
	}

	seriesSource := getStr("SERIES_SOURCE", SourceYAML)
	if seriesSource != SourceYAML && seriesSource != SourceSQLite {
		return nil, fmt.Errorf("invalid SERIES_SOURCE: %q, must be one of: yaml, sqlite", seriesSource)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:            port,
		LogLevel:        logLevel,
		BaseInterval:    baseInterval,
		InitialCash:     initialCash,
		SeriesSource:    seriesSource,
		SeriesDir:       getStr("SERIES_DIR", "data"),
		SeriesDB:        getStr("SERIES_DB", "replay.db"),
		ReadTimeout:     readTimeout,
		WriteTimeout:    writeTimeout,
		IdleTimeout:     idleTimeout,
		ShutdownTimeout: shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func getDecimal(key string, defaultVal decimal.Decimal) (decimal.Decimal, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return decimal.NewFromString(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
