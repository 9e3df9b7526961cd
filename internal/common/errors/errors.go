// Package errors provides the standardized error taxonomy of the lead service.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeSnapshotNotFound ErrorCode = "SNAPSHOT_NOT_FOUND"
	ErrCodeStorageFailed    ErrorCode = "STORAGE_FAILED"
	ErrCodeFixtureInvalid   ErrorCode = "FIXTURE_INVALID"
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
	ErrCodeNotificationSend ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeMalformedRequest ErrorCode = "MALFORMED_REQUEST"
)

// Sentinels for errors.Is checks across package boundaries.
var (
	ErrValidation = stderrors.New("VALIDATION_FAILED")
	ErrNotFound   = stderrors.New("NOT_FOUND")
	ErrStorage    = stderrors.New("STORAGE_FAILED")
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause, if any.
func (e *StandardError) Unwrap() error {
	return e.cause
}

// Is matches the category sentinels so callers never need to inspect codes.
func (e *StandardError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Code == ErrCodeValidationFailed
	case ErrNotFound:
		return e.Code == ErrCodeSnapshotNotFound
	case ErrStorage:
		return e.Code == ErrCodeStorageFailed || e.Code == ErrCodeFixtureInvalid
	}
	return false
}

// New creates a StandardError with an explicit code, e.g. when decoding a
// remote error body.
func New(code ErrorCode, message string) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationError creates a lead validation error.
func NewValidationError(details string, fields ...string) *StandardError {
	var meta map[string]interface{}
	if len(fields) > 0 {
		meta = map[string]interface{}{"fields": fields}
	}
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Name and phone are required",
		Details:   details,
		Metadata:  meta,
		Timestamp: time.Now().UTC(),
	}
}

// NewSnapshotNotFoundError creates a not-found error for a catalog lookup.
func NewSnapshotNotFoundError(snapshotID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSnapshotNotFound,
		Message:   "Snapshot not found",
		Details:   fmt.Sprintf("snapshotId: %s", snapshotID),
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageError wraps a read or write failure of a persisted document.
func NewStorageError(op string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageFailed,
		Message:   "Storage operation failed",
		Details:   fmt.Sprintf("op: %s, error: %v", op, err),
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewFixtureInvalidError reports a snapshot fixture that exists but cannot be used.
func NewFixtureInvalidError(name string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeFixtureInvalid,
		Message:   "Snapshot fixture is invalid",
		Details:   fmt.Sprintf("fixture: %s, error: %v", name, err),
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

func NewUnauthorizedError() *StandardError {
	return &StandardError{
		Code:      ErrCodeUnauthorized,
		Message:   "Unauthorized",
		Timestamp: time.Now().UTC(),
	}
}

func NewMalformedRequestError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMalformedRequest,
		Message:   "Malformed request body",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// NewNotificationSendFailedError creates a notification delivery error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSend,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("channel: %s, error: %v", channel, err),
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Timestamp: time.Now().UTC(),
		cause:     err,
	}
}

// HTTPStatus maps an error code to the status the boundary responds with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed, ErrCodeMalformedRequest:
		return http.StatusBadRequest
	case ErrCodeSnapshotNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// IsClientError reports whether the code is caused by the request itself.
func IsClientError(code ErrorCode) bool {
	return HTTPStatus(code) < http.StatusInternalServerError
}
