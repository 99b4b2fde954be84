// Package errors defines application-level error types for the HTTP surface.
// Engine degradations (permission loss, platform rejection, bookkeeping
// desync) are deliberately not represented here: they are steady-state
// conditions that are logged and self-heal, never surfaced to callers.
package errors

import (
	"net/http"

	"spotfence/internal/errors"
)

// AppError is an error carrying HTTP and business codes for API responses.
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Message() string   // User-friendly error message
}

// BaseError is the basic implementation of AppError.
type BaseError struct {
	httpCode  int
	errorCode string
	message   string
}

// NewBaseError creates a new base error.
func NewBaseError(httpCode int, errorCode, message string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		message:   message,
	}
}

// Error implements the error interface.
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message.
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code.
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code.
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Message returns the user-friendly error message.
func (e *BaseError) Message() string {
	return e.message
}

// Predefined error types
var (
	ErrSnapshotInvalid = NewBaseError(
		http.StatusBadRequest,
		"SNAPSHOT_INVALID",
		"spot snapshot is malformed",
	)

	ErrUnknownAuthorizationState = NewBaseError(
		http.StatusBadRequest,
		"UNKNOWN_AUTHORIZATION_STATE",
		"unknown authorization state",
	)

	ErrUnknownLifecyclePhase = NewBaseError(
		http.StatusBadRequest,
		"UNKNOWN_LIFECYCLE_PHASE",
		"unknown lifecycle phase",
	)

	ErrPermissionRequestFailed = NewBaseError(
		http.StatusBadGateway,
		"PERMISSION_REQUEST_FAILED",
		"could not deliver the permission request to the device",
	)
)
