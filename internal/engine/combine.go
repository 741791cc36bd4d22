package engine

import (
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/roach88/profilegen/internal/ir"
)

// Combination names how per-field values of one RowSpec are combined into
// rows in the finite generation modes.
type Combination string

const (
	// CombineExhaustive yields every combination, last field varying fastest.
	CombineExhaustive Combination = "exhaustive"
	// CombinePinning yields the first value of every field, then varies one
	// field at a time with the others pinned to their first value.
	CombinePinning Combination = "pinning"
	// CombineMinimal advances every field together, wrapping a field around
	// once it runs out, until every value has appeared at least once.
	CombineMinimal Combination = "minimal"
)

// ParseCombination parses a combination name.
func ParseCombination(s string) (Combination, error) {
	switch c := Combination(strings.ToLower(strings.TrimSpace(s))); c {
	case CombineExhaustive, CombinePinning, CombineMinimal:
		return c, nil
	}
	return "", fmt.Errorf("unknown combination %q: must be exhaustive, pinning or minimal", s)
}

// combine yields rows drawn from lists, one value per list. A list with no
// values yields no rows. Yielded slices are fresh.
func combine(c Combination, lists [][]ir.Value) iter.Seq[[]ir.Value] {
	return func(yield func([]ir.Value) bool) {
		if len(lists) == 0 || slices.ContainsFunc(lists, func(l []ir.Value) bool { return len(l) == 0 }) {
			return
		}
		switch c {
		case CombinePinning:
			pinning(lists, yield)
		case CombineMinimal:
			minimal(lists, yield)
		default:
			exhaustive(lists, yield)
		}
	}
}

func exhaustive[T any](lists [][]T, yield func([]T) bool) {
	idx := make([]int, len(lists))
	for {
		if !yield(pick(lists, idx)) {
			return
		}
		i := len(idx) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(lists[i]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return
		}
	}
}

func pinning(lists [][]ir.Value, yield func([]ir.Value) bool) {
	idx := make([]int, len(lists))
	if !yield(pick(lists, idx)) {
		return
	}
	for i, l := range lists {
		for j := 1; j < len(l); j++ {
			idx[i] = j
			if !yield(pick(lists, idx)) {
				return
			}
		}
		idx[i] = 0
	}
}

func minimal(lists [][]ir.Value, yield func([]ir.Value) bool) {
	longest := 0
	for _, l := range lists {
		longest = max(longest, len(l))
	}
	idx := make([]int, len(lists))
	for k := range longest {
		for i, l := range lists {
			idx[i] = k % len(l)
		}
		if !yield(pick(lists, idx)) {
			return
		}
	}
}

func pick[T any](lists [][]T, idx []int) []T {
	row := make([]T, len(lists))
	for i, l := range lists {
		row[i] = l[idx[i]]
	}
	return row
}
