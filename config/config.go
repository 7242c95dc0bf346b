// Package config loads server settings from the environment, optionally
// pre-populated from a .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the server settings.
type Config struct {
	Addr              string
	Environment       string
	LogLevel          string
	DBDriver          string // sqlite, postgres
	SQLitePath        string
	DatabaseURL       string
	CORSOrigins       []string
	SchedulerEnabled  bool
	SchedulerInterval time.Duration
	BatchConcurrency  int
	ShutdownTimeout   time.Duration
}

// Load reads the configuration. Files are loaded in order and never
// override variables already set; a missing file is skipped.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	addr := getEnv("APP_ADDR", "")
	if addr == "" {
		addr = ":" + getEnv("PORT", "8080")
	}

	return Config{
		Addr:              addr,
		Environment:       getEnv("APP_ENV", "development"),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		DBDriver:          strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		SQLitePath:        getEnv("SQLITE_PATH", "payroll.db"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		CORSOrigins:       getEnvSlice("CORS_ORIGINS", []string{"*"}),
		SchedulerEnabled:  getEnvBool("SCHEDULER_ENABLED", true),
		SchedulerInterval: getEnvDuration("SCHEDULER_INTERVAL", time.Hour),
		BatchConcurrency:  getEnvInt("BATCH_CONCURRENCY", 8),
		ShutdownTimeout:   getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}, nil
}

// Validate checks the settings for consistency.
func (c Config) Validate() error {
	switch c.DBDriver {
	case "sqlite":
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("SQLITE_PATH is required when DB_DRIVER is sqlite")
		}
	case "postgres":
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required when DB_DRIVER is postgres")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", c.DBDriver)
	}
	if c.BatchConcurrency <= 0 {
		return fmt.Errorf("BATCH_CONCURRENCY must be positive")
	}
	if c.SchedulerEnabled && c.SchedulerInterval < time.Minute {
		return fmt.Errorf("SCHEDULER_INTERVAL must be at least 1m")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

// IsDevelopment reports whether the server runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvSlice(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
