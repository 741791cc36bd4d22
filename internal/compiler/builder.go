package compiler

import (
	"fmt"
	"slices"

	"github.com/roach88/profilegen/internal/constraint"
	"github.com/roach88/profilegen/internal/fieldspec"
	"github.com/roach88/profilegen/internal/ir"
	"github.com/roach88/profilegen/internal/tree"
)

// contradiction describes why a node can never hold. It is an ordinary
// value while building or simplifying; only one that reaches the root of a
// tree becomes an E201 ValidationError.
type contradiction struct {
	field string
	rules []string
}

func conflictContradiction(c *tree.Conflict) *contradiction {
	return &contradiction{
		field: c.Field.Name,
		rules: unionRules(c.Left.RuleDescriptions(), c.Right.RuleDescriptions()),
	}
}

// join folds the provenance of several failed options into one.
func (c *contradiction) join(o *contradiction) *contradiction {
	if c == nil {
		return o
	}
	field := c.field
	if field != o.field {
		field = "profile"
	}
	return &contradiction{field: field, rules: unionRules(c.rules, o.rules)}
}

func (c *contradiction) validationError() *ValidationError {
	field := c.field
	if field == "" {
		field = "profile"
	}
	return &ValidationError{
		Field:   field,
		Message: "rules can never hold together",
		Code:    ErrProfileContradiction,
		Rules:   c.rules,
	}
}

func unionRules(a, b []string) []string {
	out := slices.Concat(a, b)
	slices.Sort(out)
	return slices.Compact(out)
}

// BuildTree compiles every rule of p into one decision tree. All rules are
// conjoined at the root. A root that can never hold is reported as an E201
// ValidationError; contradictory options inside a decision are dropped.
func BuildTree(p *constraint.Profile) (*tree.DecisionTree, error) {
	root, err := BuildNode(p.Formulas()...)
	if err != nil {
		return nil, err
	}
	return &tree.DecisionTree{Root: root, Fields: p.Fields, Description: p.Description}, nil
}

// BuildNode compiles the conjunction of formulas into one ConstraintNode.
func BuildNode(formulas ...constraint.Formula) (*tree.ConstraintNode, error) {
	root, c, err := conjoin(formulas)
	if err != nil {
		return nil, err
	}
	if c != nil {
		return nil, c.validationError()
	}
	return root, nil
}

// convert compiles one formula. Exactly one of node, contradiction and
// error is non-nil.
func convert(f constraint.Formula) (*tree.ConstraintNode, *contradiction, error) {
	switch v := f.(type) {
	case *constraint.Atomic:
		merged, err := fieldspec.FromAtomic(v)
		if err != nil {
			return nil, nil, &ValidationError{
				Field:   v.Field.Name,
				Message: err.Error(),
				Code:    ErrInvalidPredicate,
			}
		}
		spec, ok := merged.Get()
		if !ok {
			rules := make([]string, 0, len(v.Rules))
			for _, r := range v.Rules {
				rules = append(rules, r.Description)
			}
			return nil, &contradiction{field: v.Field.Name, rules: unionRules(rules, nil)}, nil
		}
		return tree.Leaf(map[ir.Field]*fieldspec.FieldSpec{v.Field: spec}), nil, nil

	case constraint.And:
		if len(v.Children) == 0 {
			return nil, nil, emptyCombinator("allOf", v)
		}
		return conjoin(v.Children)

	case constraint.Or:
		if len(v.Children) == 0 {
			return nil, nil, emptyCombinator("anyOf", v)
		}
		return disjoin(v.Children)

	case constraint.Not:
		return convert(v.Child.Negate())

	case constraint.Conditional:
		return convert(v.Expand())

	default:
		return nil, nil, &ValidationError{
			Field:   "profile",
			Message: fmt.Sprintf("unsupported constraint: %T", f),
			Code:    ErrUnsupportedFormat,
		}
	}
}

// conjoin merges the converted children: specs field by field, decisions
// concatenated. Any contradicting child or merge makes the whole
// conjunction contradictory.
func conjoin(children []constraint.Formula) (*tree.ConstraintNode, *contradiction, error) {
	acc := tree.NewConstraintNode(nil)
	for _, child := range children {
		node, c, err := convert(child)
		if err != nil || c != nil {
			return nil, c, err
		}
		merged, conflict := tree.Merge(acc, node)
		if conflict != nil {
			return nil, conflictContradiction(conflict), nil
		}
		acc = merged
	}
	return acc, nil, nil
}

// disjoin builds one decision over the children that can hold. With no
// surviving option the disjunction itself is contradictory.
func disjoin(children []constraint.Formula) (*tree.ConstraintNode, *contradiction, error) {
	var (
		options []*tree.ConstraintNode
		failed  *contradiction
	)
	for _, child := range children {
		node, c, err := convert(child)
		if err != nil {
			return nil, nil, err
		}
		if c != nil {
			failed = failed.join(c)
			continue
		}
		options = append(options, node)
	}
	if len(options) == 0 {
		return nil, failed, nil
	}
	return tree.NewConstraintNode(nil, tree.NewDecisionNode(options...)), nil, nil
}

func emptyCombinator(key string, f constraint.Formula) error {
	return &ValidationError{
		Field:   "profile",
		Message: fmt.Sprintf("%s requires at least one constraint: %s", key, f),
		Code:    ErrEmptyCombinator,
	}
}
