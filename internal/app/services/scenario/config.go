package scenario

import "time"

// Config is the engine's configuration surface (spec §6): admission
// capacity and sweeper tuning, plus the default Requester's timeout and
// identification string.
type Config struct {
	MaxConcurrency       int
	CleanupIntervalMs    int
	CleanupTTLMs         int
	CleanupMaxExecutions int
	RequestTimeout       time.Duration
	UserAgent            string
}

// DefaultConfig returns the spec-mandated defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency:       3,
		CleanupIntervalMs:    60_000,
		CleanupTTLMs:         30 * 60_000,
		CleanupMaxExecutions: 50,
		RequestTimeout:       30 * time.Second,
		UserAgent:            "scenario-engine/1.0",
	}
}

func (c Config) storeConfig() storeConfig {
	return storeConfig{
		TTL:             time.Duration(c.CleanupTTLMs) * time.Millisecond,
		MaxExecutions:   c.CleanupMaxExecutions,
		CleanupInterval: time.Duration(c.CleanupIntervalMs) * time.Millisecond,
	}
}
