// Package errors defines structured error types for the API.
package errors

import (
	"fmt"
	"net/http"
)

// ErrorCode is the machine readable kind of an API error.
type ErrorCode string

const (
	// ErrValidationFailed is returned when input data fails validation.
	ErrValidationFailed ErrorCode = "VALIDATION_FAILED"
	// ErrMissingField is returned when a required field is missing.
	ErrMissingField ErrorCode = "MISSING_FIELD"
	// ErrInvalidName is returned for a document or history name that is not allowed.
	ErrInvalidName ErrorCode = "INVALID_NAME"

	// ErrNotFound is returned when a document, entry or resource is missing.
	ErrNotFound ErrorCode = "NOT_FOUND"
	// ErrAlreadyExists is returned when a name is already taken.
	ErrAlreadyExists ErrorCode = "ALREADY_EXISTS"
	// ErrUnsupported is returned for operations that do not apply to a content type.
	ErrUnsupported ErrorCode = "UNSUPPORTED"
	// ErrVersionOverflow is returned when a document has no version numbers left.
	ErrVersionOverflow ErrorCode = "VERSION_OVERFLOW"
	// ErrStorageError is returned when a storage operation fails.
	ErrStorageError ErrorCode = "STORAGE_ERROR"

	// ErrPayloadTooLarge is returned when a request body exceeds the limit.
	ErrPayloadTooLarge ErrorCode = "PAYLOAD_TOO_LARGE"
	// ErrRateLimited is returned when a client exceeds its request rate.
	ErrRateLimited ErrorCode = "RATE_LIMITED"
	// ErrInternal is returned when an unexpected server error occurs.
	ErrInternal ErrorCode = "INTERNAL_ERROR"
	// ErrConflict is returned when there is a resource conflict.
	ErrConflict ErrorCode = "CONFLICT"
	// ErrUnauthorized is returned when authentication is missing or invalid.
	ErrUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrForbidden is returned when an action is disabled for the caller.
	ErrForbidden ErrorCode = "FORBIDDEN"
)

// ErrorWithStatus is an error that includes an HTTP status code and error code.
type ErrorWithStatus interface {
	Error() string
	StatusCode() int
	Code() ErrorCode
	Details() map[string]any
}

// APIError is a concrete error type with status code, code, and optional details.
type APIError struct {
	statusCode int
	code       ErrorCode
	message    string
	details    map[string]any
	wrappedErr error
}

// NewAPIError creates a new APIError with the given status code and message.
func NewAPIError(statusCode int, code ErrorCode, message string) *APIError {
	return &APIError{statusCode: statusCode, code: code, message: message}
}

// WithDetail adds a single detail to the error.
func (e *APIError) WithDetail(key string, value any) *APIError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Wrap wraps an underlying error.
func (e *APIError) Wrap(err error) *APIError {
	e.wrappedErr = err
	return e
}

func (e *APIError) Error() string {
	if e.wrappedErr != nil {
		return fmt.Sprintf("%s: %v", e.message, e.wrappedErr)
	}
	return e.message
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.statusCode
}

// Code returns the error code.
func (e *APIError) Code() ErrorCode {
	return e.code
}

// Details returns additional error details.
func (e *APIError) Details() map[string]any {
	return e.details
}

// Unwrap returns the wrapped error if any.
func (e *APIError) Unwrap() error {
	return e.wrappedErr
}

// NotFound creates a 404 Not Found error.
func NotFound(resource string) *APIError {
	return NewAPIError(http.StatusNotFound, ErrNotFound, fmt.Sprintf("%s not found", resource))
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrValidationFailed, message)
}

// MissingField creates a 400 Bad Request error for a missing field.
func MissingField(fieldName string) *APIError {
	return NewAPIError(http.StatusBadRequest, ErrMissingField, "Missing required field: "+fieldName)
}

// InvalidName creates a 422 error for a rejected document name.
func InvalidName(name, reason string) *APIError {
	return NewAPIError(http.StatusUnprocessableEntity, ErrInvalidName, fmt.Sprintf("invalid name %q", name)).
		WithDetail("name", name).WithDetail("reason", reason)
}

// AlreadyExists creates a 409 error for a taken name.
func AlreadyExists(name string) *APIError {
	return NewAPIError(http.StatusConflict, ErrAlreadyExists, fmt.Sprintf("%s already exists", name)).WithDetail("name", name)
}

// Conflict creates a 409 Conflict error.
func Conflict(message string) *APIError {
	return NewAPIError(http.StatusConflict, ErrConflict, message)
}

// Unsupported creates a 415 error for an operation that does not apply to a content type.
func Unsupported(message string) *APIError {
	return NewAPIError(http.StatusUnsupportedMediaType, ErrUnsupported, message)
}

// VersionOverflow creates a 507 error when a document cannot take more versions.
func VersionOverflow(name string) *APIError {
	return NewAPIError(http.StatusInsufficientStorage, ErrVersionOverflow, fmt.Sprintf("%s has no version numbers left", name)).WithDetail("name", name)
}

// Storage creates a 500 error for a backing store failure.
func Storage(err error) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrStorageError, "storage failure").Wrap(err)
}

// PayloadTooLarge creates a 413 error.
func PayloadTooLarge(limit int64) *APIError {
	return NewAPIError(http.StatusRequestEntityTooLarge, ErrPayloadTooLarge, fmt.Sprintf("request body exceeds %d bytes", limit)).WithDetail("limit", limit)
}

// RateLimited creates a 429 error.
func RateLimited() *APIError {
	return NewAPIError(http.StatusTooManyRequests, ErrRateLimited, "Too many requests")
}

// Unauthorized returns a 401 Unauthorized error.
func Unauthorized() *APIError {
	return NewAPIError(http.StatusUnauthorized, ErrUnauthorized, "Unauthorized")
}

// Forbidden returns a 403 Forbidden error.
func Forbidden(message string) *APIError {
	return NewAPIError(http.StatusForbidden, ErrForbidden, message)
}

// Internal returns a 500 Internal Server Error.
func Internal(message string) *APIError {
	return NewAPIError(http.StatusInternalServerError, ErrInternal, message)
}

// InternalWithError creates a 500 error wrapping an underlying error.
func InternalWithError(message string, err error) *APIError {
	return Internal(message).Wrap(err)
}
