package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// NotFoundError represents a missing document at the storage boundary.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// Status tags carried by typed errors.
const (
	StatusSuccess  = "success"
	StatusNotFound = "not found"
	StatusRedirect = "redirect"
	StatusFailed   = "failed"
	StatusError    = "error"
)

// Machine readable error codes.
const (
	CodeValidation    = "VALIDATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeRouteNotFound = "ROUTE_NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeMalformedID   = "MALFORMED_ID"
	CodeBadRequest    = "BAD_REQUEST"
	CodeInternal      = "INTERNAL_ERROR"
)

// Error is the typed error that drives the HTTP error response. It is built
// where the failure is detected and must not be mutated afterwards.
type Error struct {
	Status     string
	StatusCode int
	Code       string
	Message    string
	// Location points at an existing resource, set for conflicts.
	Location string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d %s): %s", e.Code, e.StatusCode, e.Status, e.Message)
}

// AsError extracts a typed error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func NewValidationError(message string) *Error {
	return &Error{
		Status:     StatusFailed,
		StatusCode: http.StatusBadRequest,
		Code:       CodeValidation,
		Message:    message,
	}
}

func NewNotFoundError(message string) *Error {
	return &Error{
		Status:     StatusNotFound,
		StatusCode: http.StatusNotFound,
		Code:       CodeNotFound,
		Message:    message,
	}
}

func NewConflictError(message, location string) *Error {
	return &Error{
		Status:     StatusRedirect,
		StatusCode: http.StatusConflict,
		Code:       CodeConflict,
		Message:    message,
		Location:   location,
	}
}

// NewMalformedIDError reports an identifier that is not 24 hex characters.
// statusCode is 400 unless strict compatibility asks for 500.
func NewMalformedIDError(statusCode int) *Error {
	if statusCode == 0 {
		statusCode = http.StatusBadRequest
	}
	return &Error{
		Status:     StatusFailed,
		StatusCode: statusCode,
		Code:       CodeMalformedID,
		Message:    "The id must be a string of 24 hex characters",
	}
}
