package compiler

import (
	"github.com/roach88/profilegen/internal/tree"
)

// Simplify returns t with every singleton decision pulled up into its parent
// and every option that only wraps another decision flattened into its
// grandparent. Options that turn out contradictory are dropped; a root that
// turns out contradictory is an E201 ValidationError.
//
// The result has no decision with fewer than two options and no option
// without specs holding exactly one decision, so Simplify(Simplify(t)) is
// structurally equal to Simplify(t). Unchanged subtrees are shared.
func Simplify(t *tree.DecisionTree) (*tree.DecisionTree, error) {
	root, c := simplifyNode(t.Root)
	if c != nil {
		return nil, c.validationError()
	}
	if root == t.Root {
		return t, nil
	}
	return &tree.DecisionTree{Root: root, Fields: t.Fields, Description: t.Description}, nil
}

// simplifyNode works bottom-up: options are simplified before their
// decision is inspected.
func simplifyNode(n *tree.ConstraintNode) (*tree.ConstraintNode, *contradiction) {
	if n.IsLeaf() {
		return n, nil
	}

	acc := tree.NewConstraintNode(n.Specs())
	changed := false
	var kept []*tree.DecisionNode

	for _, d := range n.Decisions() {
		sd, c := simplifyDecision(d)
		if c != nil {
			return nil, c
		}
		if sd.Len() > 1 {
			kept = append(kept, sd)
			changed = changed || sd != d
			continue
		}

		// Singleton pull-up. The option is already simplified, so its own
		// decisions carry over unchanged.
		changed = true
		merged, conflict := tree.Merge(acc, sd.Option(0))
		if conflict != nil {
			return nil, conflictContradiction(conflict)
		}
		acc = merged.WithDecisions()
		kept = append(kept, sd.Option(0).Decisions()...)
	}

	if !changed {
		return n, nil
	}
	return acc.WithDecisions(kept...), nil
}

// simplifyDecision simplifies every option, dropping contradictory ones and
// splicing in the options of flattenable ones. A decision left with no
// options is a contradiction.
func simplifyDecision(d *tree.DecisionNode) (*tree.DecisionNode, *contradiction) {
	var (
		options []*tree.ConstraintNode
		failed  *contradiction
		changed bool
	)
	for _, o := range d.Options() {
		so, c := simplifyNode(o)
		if c != nil {
			failed = failed.join(c)
			changed = true
			continue
		}
		if flattenable(so) {
			options = append(options, so.Decisions()[0].Options()...)
			changed = true
			continue
		}
		options = append(options, so)
		changed = changed || so != o
	}

	if len(options) == 0 {
		return nil, failed
	}
	if !changed {
		return d, nil
	}
	return tree.NewDecisionNode(options...), nil
}

// flattenable reports whether o only wraps a single decision, as in the
// inner disjunction of A OR (B OR C).
func flattenable(o *tree.ConstraintNode) bool {
	return !o.HasSpecs() && len(o.Decisions()) == 1
}
