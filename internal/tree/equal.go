package tree

import (
	"slices"
	"strings"
)

// Key is a canonical rendering of the subtree. Option and decision order
// does not affect it, so two nodes are structurally equal exactly when
// their keys match.
func (n *ConstraintNode) Key() string {
	var b strings.Builder
	n.writeKey(&b)
	return b.String()
}

func (n *ConstraintNode) writeKey(b *strings.Builder) {
	b.WriteByte('{')
	for i, f := range n.SpecFields() {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f.Name)
		b.WriteByte('=')
		b.WriteString(n.specs[f].String())
	}
	keys := make([]string, len(n.decisions))
	for i, d := range n.decisions {
		keys[i] = d.Key()
	}
	slices.Sort(keys)
	for _, k := range keys {
		b.WriteString(" & ")
		b.WriteString(k)
	}
	b.WriteByte('}')
}

// Key is the canonical rendering of the decision.
func (d *DecisionNode) Key() string {
	keys := make([]string, len(d.options))
	for i, o := range d.options {
		keys[i] = o.Key()
	}
	slices.Sort(keys)
	return "(" + strings.Join(keys, " | ") + ")"
}

// Equal reports structural equality of two subtrees.
func Equal(a, b *ConstraintNode) bool {
	if a == b {
		return true
	}
	return a.Key() == b.Key()
}

// Equal reports whether two trees have equal roots over the same schema.
func (t *DecisionTree) Equal(o *DecisionTree) bool {
	return slices.Equal(t.Fields, o.Fields) && Equal(t.Root, o.Root)
}
