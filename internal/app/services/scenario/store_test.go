package scenario

import (
	"testing"
	"time"

	domain "github.com/meridianhq/scenario-engine/internal/app/domain/scenario"
)

func TestExecutionStore_PutGetList(t *testing.T) {
	s := newExecutionStore(storeConfig{TTL: time.Hour, MaxExecutions: 50, CleanupInterval: time.Hour})
	defer s.stop()

	exec := domain.Execution{ID: "e1", Status: domain.StatusRunning}
	s.put(exec)

	got, ok := s.get("e1")
	if !ok || got.ID != "e1" {
		t.Fatalf("expected to find e1, got %+v, %v", got, ok)
	}
	if len(s.list()) != 1 {
		t.Fatalf("expected 1 record, got %d", len(s.list()))
	}

	_, missing := s.get("nope")
	if missing {
		t.Fatal("expected a miss for an unknown id")
	}
}

func TestExecutionStore_GetReturnsIndependentCopy(t *testing.T) {
	s := newExecutionStore(storeConfig{TTL: time.Hour, MaxExecutions: 50, CleanupInterval: time.Hour})
	defer s.stop()

	s.put(domain.Execution{ID: "e1", Context: map[string]any{"k": "v"}})
	got, _ := s.get("e1")
	got.Context["k"] = "mutated"

	again, _ := s.get("e1")
	if again.Context["k"] != "v" {
		t.Fatalf("expected store's copy to be unaffected by caller mutation, got %v", again.Context["k"])
	}
}

func TestExecutionStore_SweepEvictsExpiredTerminalOnly(t *testing.T) {
	s := newExecutionStore(storeConfig{TTL: time.Millisecond, MaxExecutions: 50, CleanupInterval: time.Hour})
	defer s.stop()

	s.put(domain.Execution{ID: "done", Status: domain.StatusCompleted, CompletedAt: time.Now().Add(-time.Hour)})
	s.put(domain.Execution{ID: "live", Status: domain.StatusRunning})

	s.sweep()

	if _, ok := s.get("done"); ok {
		t.Fatal("expected the expired terminal execution to be evicted")
	}
	if _, ok := s.get("live"); !ok {
		t.Fatal("expected the running execution to survive the sweep")
	}
}

func TestExecutionStore_SweepEnforcesSizeBoundOldestFirst(t *testing.T) {
	s := newExecutionStore(storeConfig{TTL: time.Hour, MaxExecutions: 1, CleanupInterval: time.Hour})
	defer s.stop()

	now := time.Now()
	s.put(domain.Execution{ID: "older", Status: domain.StatusCompleted, CompletedAt: now.Add(-time.Minute)})
	s.put(domain.Execution{ID: "newer", Status: domain.StatusCompleted, CompletedAt: now})

	s.sweep()

	if _, ok := s.get("older"); ok {
		t.Fatal("expected the older terminal execution to be evicted first")
	}
	if _, ok := s.get("newer"); !ok {
		t.Fatal("expected the newer terminal execution to survive")
	}
}
