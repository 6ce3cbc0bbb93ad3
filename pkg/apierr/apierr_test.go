package apierr

import (
	"errors"
	"testing"
)

func TestScenarioNotFoundCarriesID(t *testing.T) {
	err := ScenarioNotFound("checkout-flow")
	if err.Code != CodeNotFound {
		t.Errorf("Code = %s, want %s", err.Code, CodeNotFound)
	}
	if err.Details["scenarioId"] != "checkout-flow" {
		t.Errorf("Details[scenarioId] = %v, want checkout-flow", err.Details["scenarioId"])
	}
}

func TestInvariantViolationUnwrapsToSentinel(t *testing.T) {
	err := InvariantViolation("double terminal transition")
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatal("expected errors.Is to match ErrInvariantViolation")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(CodeInternal, "scheduler failure", 500, cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to match wrapped cause")
	}
}
