package logger

import "testing"

func TestNewSetsLevelAndFormat(t *testing.T) {
	log := New(Config{Level: "debug", Format: "json", Service: "scenario-engine"})
	if log.GetLevel().String() != "debug" {
		t.Fatalf("expected level debug, got %s", log.GetLevel())
	}
}

func TestNewDefaultFallsBackToInfo(t *testing.T) {
	log := New(Config{Level: "not-a-level", Service: "scenario-engine"})
	if log.GetLevel().String() != "info" {
		t.Fatalf("expected fallback level info, got %s", log.GetLevel())
	}
}

func TestWithFieldCarriesServiceName(t *testing.T) {
	log := NewDefault("scenario-engine")
	entry := log.WithField("executionId", "exec-1")
	if entry.Data["service"] != "scenario-engine" {
		t.Fatalf("expected service field on entry, got %v", entry.Data)
	}
	if entry.Data["executionId"] != "exec-1" {
		t.Fatalf("expected executionId field on entry, got %v", entry.Data)
	}
}
