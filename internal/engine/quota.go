package engine

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// RowLimit counts the RowSpecs a walk produces and stops the walk once a
// limit is passed.
//
// Each partition walk has its own RowLimit, and so does the join of the
// partitions. Cartesian walks grow exponentially with the number of
// independent decisions; the limit turns a runaway walk into an error
// instead of exhausting memory.
type RowLimit struct {
	scope   string
	limit   int
	current int
}

// NewRowLimit creates a limit for the walk named by scope. A non-positive
// limit never trips.
func NewRowLimit(scope string, limit int) *RowLimit {
	return &RowLimit{scope: scope, limit: limit}
}

// Check counts one RowSpec and fails once the count passes the limit.
func (q *RowLimit) Check() error {
	q.current++
	if q.limit > 0 && q.current > q.limit {
		return &RowLimitExceededError{
			Scope:     q.scope,
			Count:     q.current,
			Limit:     q.limit,
		}
	}
	return nil
}

// Current returns the number of RowSpecs counted so far.
func (q *RowLimit) Current() int {
	return q.current
}

// RowLimitExceededError is returned when a walk passes its limit.
type RowLimitExceededError struct {
	Scope string
	Count int
	Limit int
}

func (e *RowLimitExceededError) Error() string {
	return fmt.Sprintf("%s exceeded row spec limit: %d > %d",
		e.Scope, e.Count, e.Limit)
}

// RuntimeError converts the error to its RuntimeError form.
func (e *RowLimitExceededError) RuntimeError() *RuntimeError {
	return NewRowLimitError(e.Scope, e.Limit)
}

// asRuntimeError maps internal errors onto RuntimeErrors, leaving others
// untouched.
func asRuntimeError(err error) error {
	var le *RowLimitExceededError
	if errors.As(err, &le) {
		return errors.WithStack(le.RuntimeError())
	}
	return err
}
