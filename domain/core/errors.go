package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound         = errors.New("resource not found")
	ErrUnknownEnsemble  = fmt.Errorf("%w: ensemble", ErrNotFound)
	ErrVariableNotFound = fmt.Errorf("%w: vector", ErrNotFound)

	// Validation errors
	ErrInvalidFrequency      = errors.New("invalid frequency")
	ErrInvalidTable          = errors.New("invalid vector table")
	ErrNonDatetimeDateColumn = errors.New("DATE column is not a datetime column")
	ErrDegenerateInterval    = errors.New("degenerate interval")

	// Calculation errors
	ErrUnresolvedVariable = errors.New("unresolved expression variable")
	ErrExpressionError    = errors.New("expression error")
)

// Error constructors with context
func NewInvalidFrequencyError(value string) error {
	return fmt.Errorf("%w: %q", ErrInvalidFrequency, value)
}

func NewUnknownEnsembleError(name string) error {
	return fmt.Errorf("%w %q", ErrUnknownEnsemble, name)
}

func NewNonDatetimeError(kind string) error {
	return fmt.Errorf("%w: got %s values, normalize the column before computing", ErrNonDatetimeDateColumn, kind)
}

func NewDegenerateIntervalError(vector string, real int, date string) error {
	return fmt.Errorf("%w: %s has duplicate date %s for realization %d", ErrDegenerateInterval, vector, date, real)
}

func NewUnresolvedVariableError(expression, variable, vector string) error {
	return fmt.Errorf("%w: %s references %s -> %s which is not available", ErrUnresolvedVariable, expression, variable, vector)
}

func NewExpressionError(expression string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s is marked invalid", ErrExpressionError, expression)
	}
	return fmt.Errorf("%w: %s: %v", ErrExpressionError, expression, err)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidFrequency) ||
		errors.Is(err, ErrInvalidTable) ||
		errors.Is(err, ErrNonDatetimeDateColumn) ||
		errors.Is(err, ErrDegenerateInterval)
}

func IsCalculationError(err error) bool {
	return errors.Is(err, ErrUnresolvedVariable) ||
		errors.Is(err, ErrExpressionError)
}
