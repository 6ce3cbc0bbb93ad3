package scenario

import (
	"net/http"
	"testing"

	domain "github.com/meridianhq/scenario-engine/internal/app/domain/scenario"
)

func TestEvaluateAssertions_ClauseOrderAndPassing(t *testing.T) {
	expect := domain.Expect{
		Status:       ptrInt(200),
		BodyContains: ptrStr("ok"),
	}
	expect.WithHeaderEquals("X-Trace", "abc")

	resp := Response{
		Status:     200,
		Headers:    http.Header{"X-Trace": []string{"abc"}},
		RawBody:    `{"result":"ok"}`,
		Body:       map[string]any{"result": "ok"},
		IsJSONBody: true,
	}

	results := evaluateAssertions(expect, resp)
	if len(results) != 3 {
		t.Fatalf("expected 3 assertion results, got %d: %+v", len(results), results)
	}
	wantOrder := []string{"status", "bodyContains", "headerEquals.X-Trace"}
	for i, field := range wantOrder {
		if results[i].Field != field {
			t.Fatalf("expected clause %d to be %q, got %q", i, field, results[i].Field)
		}
		if !results[i].Passed {
			t.Fatalf("expected clause %q to pass, got %+v", field, results[i])
		}
	}
}

func TestEvaluateAssertions_EmptyExpectPassesVacuously(t *testing.T) {
	results := evaluateAssertions(domain.Expect{}, Response{Status: 500})
	if results != nil {
		t.Fatalf("expected no assertions for an empty expect block, got %+v", results)
	}
	if !assertionsPassed(results) {
		t.Fatal("a step with no expect block must pass")
	}
}

func TestEvaluateAssertions_BlockedDerivedFromStatus(t *testing.T) {
	expect := domain.Expect{Blocked: ptrBool(true)}

	blocked := evaluateAssertions(expect, Response{Status: 429})
	if len(blocked) != 1 || !blocked[0].Passed {
		t.Fatalf("expected blocked=true to pass on 429, got %+v", blocked)
	}

	notBlocked := evaluateAssertions(expect, Response{Status: 200})
	if len(notBlocked) != 1 || notBlocked[0].Passed {
		t.Fatalf("expected blocked=true to fail on 200, got %+v", notBlocked)
	}
}

func TestSummarizeFailedAssertions(t *testing.T) {
	results := []domain.AssertionResult{
		{Field: "status", Expected: 200, Actual: 500, Passed: false},
		{Field: "bodyContains", Expected: "ok", Actual: "fail", Passed: false},
	}
	summary := summarizeFailedAssertions(results)
	if summary == "" || summary == "assertion failed" {
		t.Fatalf("expected a detailed summary, got %q", summary)
	}
}

func ptrStr(v string) *string { return &v }
