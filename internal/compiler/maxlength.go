package compiler

import (
	"fmt"

	"github.com/roach88/profilegen/internal/constraint"
	"github.com/roach88/profilegen/internal/fieldspec"
	"github.com/roach88/profilegen/internal/ir"
	"github.com/roach88/profilegen/internal/restrictions"
	"github.com/roach88/profilegen/internal/tree"
)

// InjectMaxStringLength caps every schema field's strings at n characters
// by merging a length restriction into the root. n <= 0 leaves t alone.
func InjectMaxStringLength(t *tree.DecisionTree, n int) (*tree.DecisionTree, error) {
	if n <= 0 {
		return t, nil
	}
	info := constraint.RuleInformation{Description: fmt.Sprintf("max string length %d", n)}
	limits := make(map[ir.Field]*fieldspec.FieldSpec, len(t.Fields))
	for _, f := range t.Fields {
		limits[f] = (&fieldspec.FieldSpec{Strings: restrictions.StringLength(0, n)}).WithRules(info)
	}
	root, conflict := tree.Merge(t.Root, tree.Leaf(limits))
	if conflict != nil {
		return nil, conflictContradiction(conflict).validationError()
	}
	return &tree.DecisionTree{Root: root, Fields: t.Fields, Description: t.Description}, nil
}
