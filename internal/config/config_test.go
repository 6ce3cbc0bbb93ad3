package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"SCENARIO_MAX_CONCURRENCY", "SCENARIO_CLEANUP_INTERVAL_MS",
		"SCENARIO_CLEANUP_TTL_MS", "SCENARIO_CLEANUP_MAX_EXECUTIONS",
		"SCENARIO_REQUEST_TIMEOUT", "SCENARIO_USER_AGENT",
	} {
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxConcurrency != 3 {
		t.Errorf("MaxConcurrency = %d, want 3", cfg.MaxConcurrency)
	}
	if cfg.CleanupIntervalMs != 60_000 {
		t.Errorf("CleanupIntervalMs = %d, want 60000", cfg.CleanupIntervalMs)
	}
	if cfg.CleanupTTLMs != 30*60_000 {
		t.Errorf("CleanupTTLMs = %d, want %d", cfg.CleanupTTLMs, 30*60_000)
	}
	if cfg.CleanupMaxExecutions != 50 {
		t.Errorf("CleanupMaxExecutions = %d, want 50", cfg.CleanupMaxExecutions)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("RequestTimeout = %v, want 30s", cfg.RequestTimeout)
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	os.Setenv("SCENARIO_MAX_CONCURRENCY", "8")
	defer os.Unsetenv("SCENARIO_MAX_CONCURRENCY")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxConcurrency != 8 {
		t.Errorf("MaxConcurrency = %d, want 8", cfg.MaxConcurrency)
	}
}

func TestLoadRejectsInvalidTimeout(t *testing.T) {
	os.Setenv("SCENARIO_REQUEST_TIMEOUT", "not-a-duration")
	defer os.Unsetenv("SCENARIO_REQUEST_TIMEOUT")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid SCENARIO_REQUEST_TIMEOUT")
	}
}
