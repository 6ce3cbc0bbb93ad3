// Package apierr provides the engine's façade-boundary error type: a
// stable code, a human message, and an HTTP-status hint for callers that
// sit behind a REST boundary, even though the engine core itself is
// transport-agnostic.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of façade-boundary error.
type Code string

const (
	CodeNotFound            Code = "SCN_NOT_FOUND"
	CodeInvalidTransition    Code = "SCN_INVALID_TRANSITION"
	CodeInvalidInput        Code = "SCN_INVALID_INPUT"
	CodeDeadlock            Code = "SCN_DEADLOCK"
	CodeInternal            Code = "SCN_INTERNAL"
	CodeInvariantViolation  Code = "SCN_INVARIANT_VIOLATION"
)

// EngineError is a structured error returned across the Façade boundary.
type EngineError struct {
	Code       Code
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Err        error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// WithDetails attaches a detail key/value and returns the receiver.
func (e *EngineError) WithDetails(key string, value interface{}) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New constructs an EngineError with no wrapped cause.
func New(code Code, message string, httpStatus int) *EngineError {
	return &EngineError{Code: code, Message: message, HTTPStatus: httpStatus}
}

// Wrap constructs an EngineError around an existing cause.
func Wrap(code Code, message string, httpStatus int, err error) *EngineError {
	return &EngineError{Code: code, Message: message, HTTPStatus: httpStatus, Err: err}
}

// ScenarioNotFound reports that the Catalog has no scenario with this id.
func ScenarioNotFound(id string) *EngineError {
	return New(CodeNotFound, "scenario not found", http.StatusNotFound).WithDetails("scenarioId", id)
}

// ExecutionNotFound reports that no execution with this id is known to
// the Execution Store.
func ExecutionNotFound(id string) *EngineError {
	return New(CodeNotFound, "execution not found", http.StatusNotFound).WithDetails("executionId", id)
}

// InvalidInput reports a malformed Façade call.
func InvalidInput(field, reason string) *EngineError {
	return New(CodeInvalidInput, "invalid input", http.StatusBadRequest).
		WithDetails("field", field).
		WithDetails("reason", reason)
}

// Internal wraps an unexpected internal failure.
func Internal(message string, err error) *EngineError {
	return Wrap(CodeInternal, message, http.StatusInternalServerError, err)
}

// ErrInvariantViolation is the sentinel wrapped by errors produced when
// the engine detects a state it must never reach by construction (e.g. a
// double-terminal transition, or scheduler reentrancy on one execution).
// Per the error handling design, such detections terminate the execution
// as failed; they never panic.
var ErrInvariantViolation = errors.New("scenario engine: invariant violation")

// InvariantViolation wraps ErrInvariantViolation with a diagnostic message.
func InvariantViolation(message string) *EngineError {
	return Wrap(CodeInvariantViolation, message, http.StatusInternalServerError, ErrInvariantViolation)
}
