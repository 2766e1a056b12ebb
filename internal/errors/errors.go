// Package errors defines the coded errors returned across the API and CLI
// boundary.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"enstats/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Predefined error codes
const (
	CodeConfigInvalid    = "CONFIG_INVALID"
	CodeDatabaseError    = "DATABASE_ERROR"
	CodeLoadError        = "LOAD_ERROR"
	CodeValidationError  = "VALIDATION_ERROR"
	CodeCalculationError = "CALCULATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeInternalError    = "INTERNAL_ERROR"
)

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an error with additional context, keeping the code of a
// wrapped AppError
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{Code: GetCode(err), Message: message, Cause: err}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode attaches code to err
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: err.Error(), Cause: err}
}

// GetCode returns the code of the outermost AppError in the chain, falling
// back to the domain classification of err
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	switch {
	case core.IsNotFoundError(err):
		return CodeNotFound
	case core.IsValidationError(err):
		return CodeValidationError
	case core.IsCalculationError(err):
		return CodeCalculationError
	default:
		return CodeInternalError
	}
}

// FromDomain converts a domain error into a coded AppError
func FromDomain(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return &AppError{Code: GetCode(err), Message: err.Error(), Cause: err}
}

// HTTPStatus maps an error to the response status the API returns
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidationError, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeCalculationError:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func DatabaseError(message string, cause error) *AppError {
	return &AppError{Code: CodeDatabaseError, Message: message, Cause: cause}
}

func LoadError(source string, cause error) *AppError {
	return &AppError{Code: CodeLoadError, Message: fmt.Sprintf("failed to load %s", source), Cause: cause}
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}
