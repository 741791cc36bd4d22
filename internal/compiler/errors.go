package compiler

import (
	"errors"
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Validation error codes.
const (
	// Profile structure (E101-E109)
	ErrNoFields          = "E101" // at least one field is required
	ErrDuplicateField    = "E102" // field declared twice
	ErrUndeclaredField   = "E103" // constraint names an undeclared field
	ErrEmptyCombinator   = "E104" // allOf/anyOf with no children
	ErrInvalidPredicate  = "E105" // predicate operand unusable
	ErrFieldNotTyped     = "E106" // field lacks an ofType constraint
	ErrUnsupportedFormat = "E107" // formula shape the compiler cannot handle

	// Satisfiability (E201-E209)
	ErrProfileContradiction = "E201" // rules can never hold together
)

// ValidationError is a profile validation failure.
type ValidationError struct {
	Field   string   `json:"field"`
	Message string   `json:"message"`
	Code    string   `json:"code"`
	Rules   []string `json:"rules,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
	if len(e.Rules) > 0 {
		msg += " (rules: " + strings.Join(e.Rules, "; ") + ")"
	}
	return msg
}

// ValidationErrors collects every problem found in a profile.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return strings.Join(msgs, "\n")
}

// IsContradiction reports whether err is (or wraps) an unsatisfiable-profile
// validation error.
func IsContradiction(err error) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code == ErrProfileContradiction
	}
	return false
}

// CompileError is a profile decoding error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
