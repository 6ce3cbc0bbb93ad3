// Package config provides environment-aware configuration for the
// scenario engine: the same os.Getenv + parse + default idiom the host
// project uses, trimmed to the options the engine's Config surface (see
// internal/app/services/scenario) actually recognizes.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process-level configuration for the scenario engine.
type Config struct {
	MaxConcurrency       int
	CleanupIntervalMs    int
	CleanupTTLMs         int
	CleanupMaxExecutions int
	RequestTimeout       time.Duration
	UserAgent            string

	LogLevel  string
	LogFormat string
}

// Load reads an optional .env file (ignoring a missing file) and then
// environment variables, applying spec-mandated defaults for anything
// unset.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fmt.Printf("Warning: could not load .env: %v\n", err)
		}
	}

	cfg := &Config{}
	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadFromEnv() error {
	c.MaxConcurrency = getIntEnv("SCENARIO_MAX_CONCURRENCY", 3)
	c.CleanupIntervalMs = getIntEnv("SCENARIO_CLEANUP_INTERVAL_MS", 60_000)
	c.CleanupTTLMs = getIntEnv("SCENARIO_CLEANUP_TTL_MS", 30*60_000)
	c.CleanupMaxExecutions = getIntEnv("SCENARIO_CLEANUP_MAX_EXECUTIONS", 50)

	timeoutStr := getEnv("SCENARIO_REQUEST_TIMEOUT", "30s")
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return fmt.Errorf("invalid SCENARIO_REQUEST_TIMEOUT: %w", err)
	}
	c.RequestTimeout = timeout

	c.UserAgent = getEnv("SCENARIO_USER_AGENT", "scenario-engine/1.0")
	c.LogLevel = getEnv("LOG_LEVEL", "info")
	c.LogFormat = getEnv("LOG_FORMAT", "text")

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var parsed int
		if _, err := fmt.Sscanf(value, "%d", &parsed); err == nil {
			return parsed
		}
	}
	return defaultValue
}
