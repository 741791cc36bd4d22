package engine

import (
	"github.com/roach88/profilegen/internal/fieldspec"
	"github.com/roach88/profilegen/internal/ir"
	"github.com/roach88/profilegen/internal/restrictions"
	"github.com/roach88/profilegen/internal/tree"
)

// Prune returns n with f fixed to v.
//
// The fixed value is merged into the root, every option is narrowed by what
// its ancestors now require, and options that can no longer hold are
// removed. A decision left with one option is pulled up into its parent and
// pruning runs again with the pulled-up specs. A decision left with no
// options makes its node contradictory, even when a sibling decision could
// otherwise have been pulled up.
//
// Unchanged subtrees are shared with n.
func Prune(n *tree.ConstraintNode, f ir.Field, v ir.Value) restrictions.Merged[*tree.ConstraintNode] {
	return pruneNode(n, map[ir.Field]*fieldspec.FieldSpec{f: fieldspec.ForValue(v)}, true)
}

// pruneNode merges incoming into n and prunes n's decisions against the
// result. With adopt set, incoming fields n does not restrict are added to
// n; otherwise only the fields n already restricts are narrowed and the rest
// pass through to n's options.
func pruneNode(n *tree.ConstraintNode, incoming map[ir.Field]*fieldspec.FieldSpec, adopt bool) restrictions.Merged[*tree.ConstraintNode] {
	specs := n.Specs()
	check := make(map[ir.Field]*fieldspec.FieldSpec, len(incoming))
	changed := false
	for f, in := range incoming {
		own, ok := specs[f]
		switch {
		case !ok:
			check[f] = in
			if adopt {
				specs[f] = in
				changed = true
			}
		case own == in:
			check[f] = own
		default:
			merged, valid := fieldspec.Merge(own, in).Get()
			if !valid {
				return restrictions.Contradictory[*tree.ConstraintNode]()
			}
			specs[f] = merged
			check[f] = merged
			changed = changed || !merged.Equal(own)
		}
	}

	var (
		kept   []*tree.DecisionNode
		pulled []ir.Field
	)
	for _, d := range n.Decisions() {
		options, same := pruneDecision(d, check)
		switch {
		case len(options) == 0:
			return restrictions.Contradictory[*tree.ConstraintNode]()
		case len(options) == 1:
			only := options[0]
			merged, conflict := tree.MergeSpecs(specs, only.Specs())
			if conflict != nil {
				return restrictions.Contradictory[*tree.ConstraintNode]()
			}
			specs = merged
			pulled = append(pulled, only.SpecFields()...)
			kept = append(kept, only.Decisions()...)
			changed = true
		case same:
			kept = append(kept, d)
		default:
			kept = append(kept, tree.NewDecisionNode(options...))
			changed = true
		}
	}

	if !changed {
		return restrictions.Ok(n)
	}
	out := tree.NewConstraintNode(specs, kept...)
	if len(pulled) == 0 {
		return restrictions.Ok(out)
	}

	// Decisions kept before a pull-up have not seen the pulled specs yet.
	final := out.Specs()
	again := make(map[ir.Field]*fieldspec.FieldSpec, len(pulled))
	for _, f := range pulled {
		if spec, ok := final[f]; ok {
			again[f] = spec
		}
	}
	if len(again) == 0 {
		return restrictions.Ok(out)
	}
	return pruneNode(out, again, true)
}

// pruneDecision prunes every option of d against check. same reports
// whether every option came back unchanged.
func pruneDecision(d *tree.DecisionNode, check map[ir.Field]*fieldspec.FieldSpec) (options []*tree.ConstraintNode, same bool) {
	same = true
	for _, o := range d.Options() {
		pruned, ok := pruneNode(o, check, false).Get()
		if !ok {
			same = false
			continue
		}
		if pruned != o {
			same = false
		}
		options = append(options, pruned)
	}
	return options, same
}
