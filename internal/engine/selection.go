package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/roach88/profilegen/internal/ir"
	"github.com/roach88/profilegen/internal/tree"
)

// FieldSelection names the heuristic the reductive walker uses to pick the
// next field to fix.
type FieldSelection string

const (
	// SelectFrequency picks the field restricted by the most nodes.
	SelectFrequency FieldSelection = "frequency"
	// SelectConstrained picks the field with the fewest candidate values.
	SelectConstrained FieldSelection = "constrained"
	// SelectSchema picks fields in declaration order.
	SelectSchema FieldSelection = "schema"
)

// ParseFieldSelection parses a field selection name.
func ParseFieldSelection(s string) (FieldSelection, error) {
	switch k := FieldSelection(strings.ToLower(strings.TrimSpace(s))); k {
	case SelectFrequency, SelectConstrained, SelectSchema:
		return k, nil
	}
	return "", fmt.Errorf("unknown field selection %q: must be frequency, constrained or schema", s)
}

// FieldSelector picks the next field to fix. candidates is never empty and
// is in schema order; ties resolve to the earliest candidate.
type FieldSelector interface {
	Select(n *tree.ConstraintNode, candidates []ir.Field) ir.Field
}

// NewFieldSelector returns the selector for kind. Unknown kinds fall back to
// frequency; callers validate names with ParseFieldSelection.
func NewFieldSelector(kind FieldSelection) FieldSelector {
	switch kind {
	case SelectConstrained:
		return constrainedSelector{}
	case SelectSchema:
		return schemaSelector{}
	default:
		return frequencySelector{}
	}
}

type frequencySelector struct{}

func (frequencySelector) Select(n *tree.ConstraintNode, candidates []ir.Field) ir.Field {
	counts := tree.FieldAppearances(n)
	best := candidates[0]
	for _, f := range candidates[1:] {
		if counts[f] > counts[best] {
			best = f
		}
	}
	return best
}

type schemaSelector struct{}

func (schemaSelector) Select(_ *tree.ConstraintNode, candidates []ir.Field) ir.Field {
	return candidates[0]
}

// constrainedSelector prefers fields whose values are enumerable and few,
// then falls back to frequency.
type constrainedSelector struct{}

func (constrainedSelector) Select(n *tree.ConstraintNode, candidates []ir.Field) ir.Field {
	counts := tree.FieldAppearances(n)
	best, bestSize := candidates[0], candidateCount(n, candidates[0])
	for _, f := range candidates[1:] {
		size := candidateCount(n, f)
		if size < bestSize || (size == bestSize && counts[f] > counts[best]) {
			best, bestSize = f, size
		}
	}
	return best
}

// candidateCount estimates how many values f can take under n. A root
// whitelist bounds it outright; otherwise it is the sum of the option
// whitelists, unbounded as soon as one option restricts f without one.
func candidateCount(n *tree.ConstraintNode, f ir.Field) int {
	if spec, ok := n.Specs()[f]; ok && spec.Set != nil && spec.Set.HasWhitelist() {
		return len(spec.Set.WhitelistValues())
	}
	total, seen := 0, false
	for spec := range optionSpecs(n, f) {
		if spec.Set == nil || !spec.Set.HasWhitelist() {
			return math.MaxInt
		}
		total += len(spec.Set.WhitelistValues())
		seen = true
	}
	if !seen {
		return math.MaxInt
	}
	return total
}
