package engine

import (
	"iter"

	"github.com/hashicorp/go-set/v2"

	"github.com/roach88/profilegen/internal/fieldspec"
	"github.com/roach88/profilegen/internal/ir"
	"github.com/roach88/profilegen/internal/tree"
)

// DefaultBreadth is how many values the reductive walker tries per
// candidate spec that has no whitelist.
const DefaultBreadth = 1

// ValueSource draws values for a field. generate.Generator is the
// production implementation.
type ValueSource interface {
	Values(f ir.Field, spec *fieldspec.FieldSpec) iter.Seq[ir.Value]
}

// ReductiveWalker fixes one field at a time to a concrete value and prunes
// the tree after every choice, so options incompatible with the values
// chosen so far are never expanded. It yields fewer, narrower RowSpecs than
// CartesianWalker and never reports a contradiction: dead ends are skipped.
type ReductiveWalker struct {
	selector FieldSelector
	values   ValueSource
	memo     *tree.FieldMemo
	breadth  int
}

// ReductiveOption configures a ReductiveWalker.
type ReductiveOption func(*ReductiveWalker)

// WithBreadth sets how many values are drawn per candidate spec without a
// whitelist. Whitelisted candidates always contribute every member.
func WithBreadth(n int) ReductiveOption {
	return func(w *ReductiveWalker) {
		if n > 0 {
			w.breadth = n
		}
	}
}

// WithFieldMemo shares a field memo across walks.
func WithFieldMemo(m *tree.FieldMemo) ReductiveOption {
	return func(w *ReductiveWalker) {
		w.memo = m
	}
}

// NewReductiveWalker creates a walker drawing fixed values from values.
func NewReductiveWalker(selector FieldSelector, values ValueSource, opts ...ReductiveOption) *ReductiveWalker {
	w := &ReductiveWalker{selector: selector, values: values, breadth: DefaultBreadth}
	for _, opt := range opts {
		opt(w)
	}
	if w.memo == nil {
		w.memo = tree.NewFieldMemo(0)
	}
	return w
}

// Walk yields the RowSpecs reached by fixing fields until no decision
// depends on an unfixed field.
func (w *ReductiveWalker) Walk(t *tree.DecisionTree) iter.Seq[fieldspec.RowSpec] {
	return func(yield func(fieldspec.RowSpec) bool) {
		w.walk(t.Fields, t.Root, set.New[ir.Field](0), yield)
	}
}

func (w *ReductiveWalker) walk(schema ir.ProfileFields, n *tree.ConstraintNode, fixed *set.Set[ir.Field], yield func(fieldspec.RowSpec) bool) bool {
	candidates := w.unfixed(schema, n, fixed)
	if len(candidates) == 0 {
		// Remaining decisions only touch fixed fields and have already been
		// pruned against them, so any option holds.
		row, ok := fieldspec.NewRowSpec(schema).Merge(n.Specs()).Get()
		if !ok {
			return true
		}
		return yield(row)
	}

	f := w.selector.Select(n, candidates)
	next := fixed.Copy()
	next.Insert(f)
	for _, v := range w.candidateValues(n, f) {
		pruned, ok := Prune(n, f, v).Get()
		if !ok {
			continue
		}
		if !w.walk(schema, pruned, next, yield) {
			return false
		}
	}
	return true
}

// unfixed lists, in schema order, the fields some remaining decision
// depends on that have not been fixed yet.
func (w *ReductiveWalker) unfixed(schema ir.ProfileFields, n *tree.ConstraintNode, fixed *set.Set[ir.Field]) []ir.Field {
	fields := set.New[ir.Field](0)
	for _, d := range n.Decisions() {
		fields.InsertSet(w.memo.DecisionFields(d))
	}
	fields.RemoveSet(fixed)
	return tree.SortedFields(fields, schema)
}

// candidateValues returns the distinct values worth fixing f to: each
// option's spec for f merged with the root's, followed by the root's own.
// A root whitelist already names every possibility.
func (w *ReductiveWalker) candidateValues(n *tree.ConstraintNode, f ir.Field) []ir.Value {
	root, ok := n.Specs()[f]
	if !ok {
		root = fieldspec.Empty()
	}

	var specs []*fieldspec.FieldSpec
	if root.Set == nil || !root.Set.HasWhitelist() {
		seen := map[string]bool{}
		for spec := range optionSpecs(n, f) {
			merged, ok := fieldspec.Merge(root, spec).Get()
			if !ok {
				continue
			}
			key := merged.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			specs = append(specs, merged)
		}
	}
	specs = append(specs, root)

	var out []ir.Value
	seen := map[string]bool{}
	add := func(v ir.Value) {
		if h := v.Hash(); !seen[h] {
			seen[h] = true
			out = append(out, v)
		}
	}
	for _, spec := range specs {
		if spec.Set != nil && spec.Set.HasWhitelist() {
			for _, v := range spec.Set.WhitelistValues() {
				if spec.Permits(v) {
					add(v)
				}
			}
			if !spec.MustNotBeNull() {
				add(ir.Null{})
			}
			continue
		}
		taken := 0
		for v := range w.values.Values(f, spec) {
			if taken == w.breadth {
				break
			}
			add(v)
			taken++
		}
	}
	return out
}

// optionSpecs yields the spec of every option below n that restricts f,
// depth first in option order.
func optionSpecs(n *tree.ConstraintNode, f ir.Field) iter.Seq[*fieldspec.FieldSpec] {
	return func(yield func(*fieldspec.FieldSpec) bool) {
		var visit func(c *tree.ConstraintNode) bool
		visit = func(c *tree.ConstraintNode) bool {
			for _, d := range c.Decisions() {
				for _, o := range d.Options() {
					if spec, ok := o.Specs()[f]; ok {
						if !yield(spec) {
							return false
						}
					}
					if !visit(o) {
						return false
					}
				}
			}
			return true
		}
		visit(n)
	}
}
