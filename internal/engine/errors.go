package engine

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// RuntimeError represents an error detected while generating rows.
//
// Runtime errors include:
//   - Unknown strategy: a walker, field selection, mode or combination name
//     that does not exist
//   - Unknown generator: a field names a custom generator nobody registered
//   - No values: RowSpecs exist but none of them yielded a row
//   - Row limit: a walk produced more RowSpecs than allowed
//   - Cancelled: the caller's context ended mid-run
//
// Profile contradictions are not runtime errors; they surface as
// compiler.ValidationError before any walking starts.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// RunID identifies the affected run, when one was started.
	RunID string

	// Details contains additional context.
	Details map[string]string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeUnknownStrategy indicates an unrecognized strategy name.
	ErrCodeUnknownStrategy RuntimeErrorCode = "UNKNOWN_STRATEGY"

	// ErrCodeUnknownGenerator indicates a field's custom generator is not registered.
	ErrCodeUnknownGenerator RuntimeErrorCode = "UNKNOWN_GENERATOR"

	// ErrCodeNoValues indicates no RowSpec produced a row.
	ErrCodeNoValues RuntimeErrorCode = "NO_VALUES"

	// ErrCodeRowLimit indicates a walk exceeded the RowSpec limit.
	ErrCodeRowLimit RuntimeErrorCode = "ROW_LIMIT"

	// ErrCodeCancelled indicates the context was cancelled.
	ErrCodeCancelled RuntimeErrorCode = "CANCELLED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.RunID != "" {
		return fmt.Sprintf("%s: %s (run=%s)", e.Code, e.Message, e.RunID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HasCode reports whether err wraps a RuntimeError with code.
// Uses errors.As to handle wrapped errors.
func HasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsRowLimitError returns true if the error is a row limit error.
// Matches both RuntimeError with ErrCodeRowLimit and RowLimitExceededError.
func IsRowLimitError(err error) bool {
	if HasCode(err, ErrCodeRowLimit) {
		return true
	}
	var le *RowLimitExceededError
	return errors.As(err, &le)
}

// NewUnknownStrategyError creates a RuntimeError for a bad strategy name.
func NewUnknownStrategyError(kind string, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownStrategy,
		Message: err.Error(),
		Details: map[string]string{"kind": kind},
	}
}

// NewUnknownGeneratorError creates a RuntimeError for an unregistered
// custom generator key.
func NewUnknownGeneratorError(field, key string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeUnknownGenerator,
		Message: fmt.Sprintf("field %s uses unknown generator %q", field, key),
		Details: map[string]string{"field": field, "generator": key},
	}
}

// NewNoValuesError creates a RuntimeError for a run that produced no rows
// from a non-empty set of RowSpecs.
func NewNoValuesError(runID string, rowSpecs int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeNoValues,
		Message: fmt.Sprintf("no values could be generated for any of %d row specs", rowSpecs),
		RunID:   runID,
		Details: map[string]string{"row_specs": fmt.Sprintf("%d", rowSpecs)},
	}
}

// NewRowLimitError creates a RuntimeError for a walk over the RowSpec limit.
func NewRowLimitError(scope string, limit int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeRowLimit,
		Message: fmt.Sprintf("%s produced more than %d row specs", scope, limit),
		Details: map[string]string{
			"scope": scope,
			"limit": fmt.Sprintf("%d", limit),
		},
	}
}

// NewCancelledError wraps a context error.
func NewCancelledError(runID string, cause error) error {
	return errors.WithStack(&RuntimeError{
		Code:    ErrCodeCancelled,
		Message: cause.Error(),
		RunID:   runID,
	})
}
