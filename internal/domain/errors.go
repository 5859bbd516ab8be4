package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a structured application error with HTTP status code.
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Sentinels wrapped by AppErrors so callers can branch with errors.Is.
var (
	// ErrGateUnavailable means the entitlement check could not be completed.
	// It never means the user is over a limit.
	ErrGateUnavailable = errors.New("entitlement gate unavailable")
	// ErrGenerationFailed wraps any upstream text generator failure.
	ErrGenerationFailed = errors.New("lesson generation failed")
	// ErrPersistFailed means the generated lesson could not be stored.
	ErrPersistFailed = errors.New("lesson persistence failed")
	// ErrExportNotAllowed means the current plan does not include the format.
	ErrExportNotAllowed = errors.New("export format not included in plan")
)

// Common error constructors.

func ErrNotFound(msg string) *AppError {
	return &AppError{Code: http.StatusNotFound, Message: msg}
}

func ErrUnauthorized(msg string) *AppError {
	return &AppError{Code: http.StatusUnauthorized, Message: msg}
}

func ErrForbidden(msg string, err error) *AppError {
	return &AppError{Code: http.StatusForbidden, Message: msg, Err: err}
}

func ErrBadRequest(msg string) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg}
}

// ErrFailed is a 400 carrying an underlying cause. Function endpoints report
// every non-auth, non-limit failure this way.
func ErrFailed(msg string, err error) *AppError {
	return &AppError{Code: http.StatusBadRequest, Message: msg, Err: err}
}

func ErrInternal(msg string, err error) *AppError {
	return &AppError{Code: http.StatusInternalServerError, Message: msg, Err: err}
}

// AsAppError attempts to extract an AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
