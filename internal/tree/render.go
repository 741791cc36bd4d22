package tree

import (
	"fmt"
	"strings"
)

// Render writes the tree as an indented outline. Specs are listed in
// schema order; options keep their tree order.
//
//	root
//	  country: notNull in[US]
//	  OR
//	    option
//	      city: notNull in[DC, NYC]
func Render(t *DecisionTree) string {
	var b strings.Builder
	if t.Description != "" {
		fmt.Fprintf(&b, "# %s\n", t.Description)
	}
	renderNode(&b, t, t.Root, "root", 0)
	return b.String()
}

func renderNode(b *strings.Builder, t *DecisionTree, n *ConstraintNode, label string, depth int) {
	indent := strings.Repeat("  ", depth)
	b.WriteString(indent + label + "\n")
	for _, f := range orderBySchema(n.SpecFields(), t.Fields) {
		fmt.Fprintf(b, "%s  %s: %s\n", indent, f.Name, n.specs[f])
	}
	for _, d := range n.decisions {
		b.WriteString(indent + "  OR\n")
		for _, o := range d.options {
			renderNode(b, t, o, "option", depth+2)
		}
	}
}

// DOT renders the tree as a Graphviz digraph. Constraint nodes are boxes
// labelled with their specs; decisions are diamonds.
func DOT(t *DecisionTree) string {
	var b strings.Builder
	b.WriteString("digraph tree {\n")
	if t.Description != "" {
		fmt.Fprintf(&b, "  label=%q;\n", t.Description)
	}
	b.WriteString("  node [fontname=\"monospace\"];\n")
	next := 0
	var visit func(n *ConstraintNode) string
	visit = func(n *ConstraintNode) string {
		id := fmt.Sprintf("c%d", next)
		next++
		var lines []string
		for _, f := range orderBySchema(n.SpecFields(), t.Fields) {
			lines = append(lines, f.Name+": "+n.specs[f].String())
		}
		if len(lines) == 0 {
			lines = []string{"AND"}
		}
		fmt.Fprintf(&b, "  %s [shape=box, label=%q];\n", id, strings.Join(lines, "\n"))
		for _, d := range n.decisions {
			did := fmt.Sprintf("d%d", next)
			next++
			fmt.Fprintf(&b, "  %s [shape=diamond, label=\"OR\"];\n", did)
			fmt.Fprintf(&b, "  %s -> %s;\n", id, did)
			for _, o := range d.options {
				fmt.Fprintf(&b, "  %s -> %s;\n", did, visit(o))
			}
		}
		return id
	}
	visit(t.Root)
	b.WriteString("}\n")
	return b.String()
}
