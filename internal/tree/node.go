// Package tree holds the immutable AND/OR decision tree the compiler builds
// and the engine walks.
//
// A ConstraintNode is a conjunction: its FieldSpecs all hold and every one
// of its decisions holds. A DecisionNode is a disjunction: exactly one of
// its options holds. Nodes are never mutated after construction; every
// transform allocates new nodes and shares untouched subtrees.
package tree

import (
	"maps"
	"slices"
	"strings"

	"github.com/roach88/profilegen/internal/fieldspec"
	"github.com/roach88/profilegen/internal/ir"
)

// ConstraintNode is the conjunction of per-field specs and child decisions.
type ConstraintNode struct {
	specs     map[ir.Field]*fieldspec.FieldSpec
	decisions []*DecisionNode
}

// DecisionNode is the disjunction of its options.
type DecisionNode struct {
	options []*ConstraintNode
}

// DecisionTree is a root node over a schema.
type DecisionTree struct {
	Root        *ConstraintNode
	Fields      ir.ProfileFields
	Description string
}

// NewConstraintNode takes ownership of specs and decisions. Empty specs are
// dropped.
func NewConstraintNode(specs map[ir.Field]*fieldspec.FieldSpec, decisions ...*DecisionNode) *ConstraintNode {
	own := make(map[ir.Field]*fieldspec.FieldSpec, len(specs))
	for f, s := range specs {
		if !s.IsEmpty() {
			own[f] = s
		}
	}
	return &ConstraintNode{specs: own, decisions: decisions}
}

// Leaf is a node with specs and no decisions.
func Leaf(specs map[ir.Field]*fieldspec.FieldSpec) *ConstraintNode {
	return NewConstraintNode(specs)
}

// NewDecisionNode creates a decision over options.
func NewDecisionNode(options ...*ConstraintNode) *DecisionNode {
	return &DecisionNode{options: options}
}

// Spec returns the node's spec for f, Empty if it has none.
func (n *ConstraintNode) Spec(f ir.Field) *fieldspec.FieldSpec {
	if s, ok := n.specs[f]; ok {
		return s
	}
	return fieldspec.Empty()
}

// Specs returns a copy of the node's field specs.
func (n *ConstraintNode) Specs() map[ir.Field]*fieldspec.FieldSpec {
	return maps.Clone(n.specs)
}

// SpecFields returns the fields with a local spec, sorted by name.
func (n *ConstraintNode) SpecFields() []ir.Field {
	fields := slices.Collect(maps.Keys(n.specs))
	slices.SortFunc(fields, compareFields)
	return fields
}

// HasSpecs reports whether the node restricts any field locally.
func (n *ConstraintNode) HasSpecs() bool {
	return len(n.specs) > 0
}

// Decisions returns the child decisions.
func (n *ConstraintNode) Decisions() []*DecisionNode {
	return slices.Clone(n.decisions)
}

// IsLeaf reports whether the node has no decisions.
func (n *ConstraintNode) IsLeaf() bool {
	return len(n.decisions) == 0
}

// WithDecisions returns a node sharing n's specs with decisions replaced.
func (n *ConstraintNode) WithDecisions(decisions ...*DecisionNode) *ConstraintNode {
	return &ConstraintNode{specs: n.specs, decisions: decisions}
}

// WithoutDecision returns n minus its decision at index i.
func (n *ConstraintNode) WithoutDecision(i int) *ConstraintNode {
	return n.WithDecisions(slices.Delete(slices.Clone(n.decisions), i, i+1)...)
}

// Options returns the decision's options.
func (d *DecisionNode) Options() []*ConstraintNode {
	return slices.Clone(d.options)
}

// Len returns the number of options.
func (d *DecisionNode) Len() int {
	return len(d.options)
}

// Option returns option i.
func (d *DecisionNode) Option(i int) *ConstraintNode {
	return d.options[i]
}

// Conflict names the field whose specs failed to merge.
type Conflict struct {
	Field       ir.Field
	Left, Right *fieldspec.FieldSpec
}

// Merge conjoins two nodes: specs merge field by field and decisions
// concatenate. A non-nil Conflict reports the first contradicting field in
// name order.
func Merge(a, b *ConstraintNode) (*ConstraintNode, *Conflict) {
	specs, conflict := MergeSpecs(a.specs, b.specs)
	if conflict != nil {
		return nil, conflict
	}
	decisions := a.decisions
	if len(b.decisions) > 0 {
		decisions = slices.Concat(a.decisions, b.decisions)
	}
	return &ConstraintNode{specs: specs, decisions: decisions}, nil
}

// MergeSpecs merges two field spec maps.
func MergeSpecs(a, b map[ir.Field]*fieldspec.FieldSpec) (map[ir.Field]*fieldspec.FieldSpec, *Conflict) {
	if len(b) == 0 {
		return a, nil
	}
	if len(a) == 0 {
		return b, nil
	}
	out := maps.Clone(a)
	fields := slices.Collect(maps.Keys(b))
	slices.SortFunc(fields, compareFields)
	for _, f := range fields {
		left, ok := out[f]
		if !ok {
			out[f] = b[f]
			continue
		}
		merged, valid := fieldspec.Merge(left, b[f]).Get()
		if !valid {
			return nil, &Conflict{Field: f, Left: left, Right: b[f]}
		}
		out[f] = merged
	}
	return out, nil
}

func compareFields(a, b ir.Field) int {
	return strings.Compare(a.Name, b.Name)
}
