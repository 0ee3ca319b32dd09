// Package errors provides the standardized error taxonomy for the
// application lifecycle engine.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	// Business-rule failures, surfaced to the caller, never retried by
	// the engine itself.
	ErrCodeNotFound          ErrorCode = "NOT_FOUND"
	ErrCodeInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrCodeForbidden         ErrorCode = "FORBIDDEN"
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"

	// Conflict means the record changed between read and write; the
	// caller should reload and retry with fresh state.
	ErrCodeConflict ErrorCode = "CONFLICT"

	// Infrastructure failures from the persistence layer.
	ErrCodeQueryFailed ErrorCode = "QUERY_FAILED"

	// Side-effect failures. Logged, never surfaced as operation failures.
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewNotFoundError reports a missing application, property or user.
func NewNotFoundError(resource, id string) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Details:   fmt.Sprintf("%sId: %s", resource, id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidTransitionError reports an illegal status move. The valid
// next statuses ride along in Metadata so the caller can present options.
func NewInvalidTransitionError(current, requested string, validNext []string) *StandardError {
	return &StandardError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", current, requested),
		Details: fmt.Sprintf("currentStatus: %s, requestedStatus: %s", current, requested),
		Metadata: map[string]interface{}{
			"validNextStatuses": validNext,
		},
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewForbiddenError reports that the actor may not perform this transition.
func NewForbiddenError(actorID, role, requested string) *StandardError {
	return &StandardError{
		Code:      ErrCodeForbidden,
		Message:   fmt.Sprintf("role %s may not move an application to %s", role, requested),
		Details:   fmt.Sprintf("actorId: %s, role: %s, requestedStatus: %s", actorID, role, requested),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewConflictError reports a concurrent modification detected at write time.
func NewConflictError(applicationID, expectedStatus string) *StandardError {
	return &StandardError{
		Code:      ErrCodeConflict,
		Message:   "application was modified concurrently",
		Details:   fmt.Sprintf("applicationId: %s, expectedStatus: %s", applicationID, expectedStatus),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailedError reports a structurally invalid submission payload.
func NewValidationFailedError(details string, fieldErrors []string) *StandardError {
	return &StandardError{
		Code:    ErrCodeValidationFailed,
		Message: "application data validation failed",
		Details: details,
		Metadata: map[string]interface{}{
			"fieldErrors": fieldErrors,
		},
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryFailedError wraps a persistence-layer failure.
func NewQueryFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryFailed,
		Message:   "database query failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError wraps a delivery failure.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Utility Functions
// ==========================

// CodeOf extracts the ErrorCode from err, or "" when err is not a
// StandardError.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// ValidNextFrom extracts the valid-next-statuses metadata from an
// INVALID_TRANSITION error, or nil for any other error.
func ValidNextFrom(err error) []string {
	var se *StandardError
	if !stderrors.As(err, &se) || se.Code != ErrCodeInvalidTransition {
		return nil
	}
	next, _ := se.Metadata["validNextStatuses"].([]string)
	return next
}
