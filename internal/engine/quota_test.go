package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/profilegen/internal/constraint"
	tu "github.com/roach88/profilegen/internal/testutil"
)

// TestRowLimit_WithinLimit tests normal operation within the limit.
func TestRowLimit_WithinLimit(t *testing.T) {
	q := NewRowLimit("partition 0", 10)

	for i := 0; i < 10; i++ {
		err := q.Check()
		assert.NoError(t, err, "row spec %d should be allowed", i+1)
	}

	assert.Equal(t, 10, q.Current())
}

// TestRowLimit_ExceedsLimit tests the limit error.
func TestRowLimit_ExceedsLimit(t *testing.T) {
	q := NewRowLimit("partition 2", 5)

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Check())
	}

	err := q.Check()
	require.Error(t, err)

	var le *RowLimitExceededError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, "partition 2", le.Scope)
	assert.Equal(t, 6, le.Count)
	assert.Equal(t, 5, le.Limit)
	assert.True(t, IsRowLimitError(err))
}

func TestRowLimit_NonPositiveNeverTrips(t *testing.T) {
	q := NewRowLimit("partition 0", 0)
	for i := 0; i < 1000; i++ {
		require.NoError(t, q.Check())
	}
}

func TestRowLimitExceededError_Error(t *testing.T) {
	err := &RowLimitExceededError{Scope: "partition join", Count: 11, Limit: 10}
	assert.Equal(t, "partition join exceeded row spec limit: 11 > 10", err.Error())

	re := err.RuntimeError()
	assert.Equal(t, ErrCodeRowLimit, re.Code)
	assert.Equal(t, "10", re.Details["limit"])
}

// TestEngine_RowLimit checks that a runaway cartesian walk is reported as
// a ROW_LIMIT runtime error.
func TestEngine_RowLimit(t *testing.T) {
	fields := []string{"a", "b", "c"}
	var rules []constraint.Rule
	for _, f := range fields {
		rules = append(rules, tu.Rule(f, tu.Or(tu.Eq(f, "x"), tu.Eq(f, "y"), tu.Eq(f, "z"))))
	}
	p := tu.Profile(fields, rules...)

	e := New(WithMaxRowSpecs(2), WithPartitioning(false))
	_, err := e.RowSpecs(context.Background(), p)
	require.Error(t, err)
	assert.True(t, HasCode(err, ErrCodeRowLimit), "got %v", err)

	// Partitioned, each walk stays within the limit but the join does not.
	e = New(WithMaxRowSpecs(3))
	_, err = e.RowSpecs(context.Background(), p)
	require.Error(t, err)
	assert.True(t, IsRowLimitError(err))
	assert.Contains(t, err.Error(), "partition join")
}
