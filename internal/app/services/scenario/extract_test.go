package scenario

import (
	"net/http"
	"testing"

	domain "github.com/meridianhq/scenario-engine/internal/app/domain/scenario"
)

func TestApplyExtractRules_FromBodyHeaderStatus(t *testing.T) {
	resp := Response{
		Status:     201,
		Headers:    http.Header{"X-Request-Id": []string{"req-1"}},
		Body:       map[string]any{"id": "user-9"},
		IsJSONBody: true,
	}
	rules := map[string]domain.ExtractRule{
		"userID":    {From: domain.ExtractFromBody, Path: "id"},
		"requestID": {From: domain.ExtractFromHeader, Path: "X-Request-Id"},
		"status":    {From: domain.ExtractFromStatus},
	}
	ctx := make(map[string]any)
	applyExtractRules(rules, resp, ctx)

	if ctx["userID"] != "user-9" {
		t.Fatalf("expected userID extracted, got %v", ctx["userID"])
	}
	if ctx["requestID"] != "req-1" {
		t.Fatalf("expected requestID extracted, got %v", ctx["requestID"])
	}
	if ctx["status"] != 201 {
		t.Fatalf("expected status extracted, got %v", ctx["status"])
	}
}

func TestApplyExtractRules_MissingPathWritesAbsent(t *testing.T) {
	resp := Response{Status: 200, Body: map[string]any{}, IsJSONBody: true}
	rules := map[string]domain.ExtractRule{"missing": {From: domain.ExtractFromBody, Path: "not.there"}}
	ctx := make(map[string]any)
	applyExtractRules(rules, resp, ctx)
	if !IsAbsent(ctx["missing"]) {
		t.Fatalf("expected Absent, got %v", ctx["missing"])
	}
}
