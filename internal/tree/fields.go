package tree

import (
	"slices"

	"github.com/hashicorp/go-set/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/roach88/profilegen/internal/ir"
)

// DefaultMemoSize bounds a FieldMemo.
const DefaultMemoSize = 4096

// FieldMemo caches the fields touched by decision subtrees, keyed by node
// identity. Nodes are immutable, so entries never go stale. A walker or
// partitioner owns its memo; it is safe for concurrent use.
type FieldMemo struct {
	cache *lru.Cache[*DecisionNode, *set.Set[ir.Field]]
}

// NewFieldMemo creates a memo holding up to size decisions.
func NewFieldMemo(size int) *FieldMemo {
	if size <= 0 {
		size = DefaultMemoSize
	}
	cache, err := lru.New[*DecisionNode, *set.Set[ir.Field]](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &FieldMemo{cache: cache}
}

// DecisionFields returns every field mentioned anywhere under d. The
// returned set is shared and must not be modified.
func (m *FieldMemo) DecisionFields(d *DecisionNode) *set.Set[ir.Field] {
	if fields, ok := m.cache.Get(d); ok {
		return fields
	}
	fields := set.New[ir.Field](0)
	for _, o := range d.options {
		fields.InsertSet(m.NodeFields(o))
	}
	m.cache.Add(d, fields)
	return fields
}

// NodeFields returns every field mentioned in n or its decisions.
func (m *FieldMemo) NodeFields(n *ConstraintNode) *set.Set[ir.Field] {
	fields := set.New[ir.Field](len(n.specs))
	for f := range n.specs {
		fields.Insert(f)
	}
	for _, d := range n.decisions {
		fields.InsertSet(m.DecisionFields(d))
	}
	return fields
}

// SortedFields orders a field set by schema position; fields outside the
// schema sort last by name.
func SortedFields(fields *set.Set[ir.Field], schema ir.ProfileFields) []ir.Field {
	return orderBySchema(fields.Slice(), schema)
}

func orderBySchema(out []ir.Field, schema ir.ProfileFields) []ir.Field {
	slices.SortFunc(out, func(a, b ir.Field) int {
		ia, ib := schema.Index(a), schema.Index(b)
		switch {
		case ia >= 0 && ib >= 0:
			return ia - ib
		case ia >= 0:
			return -1
		case ib >= 0:
			return 1
		default:
			return compareFields(a, b)
		}
	})
	return out
}

// FieldAppearances counts, per field, how many nodes in the tree restrict it.
func FieldAppearances(n *ConstraintNode) map[ir.Field]int {
	counts := map[ir.Field]int{}
	var visit func(*ConstraintNode)
	visit = func(c *ConstraintNode) {
		for f := range c.specs {
			counts[f]++
		}
		for _, d := range c.decisions {
			for _, o := range d.options {
				visit(o)
			}
		}
	}
	visit(n)
	return counts
}

// Stats summarizes tree shape.
type Stats struct {
	ConstraintNodes int `json:"constraint_nodes"`
	DecisionNodes   int `json:"decision_nodes"`
	Depth           int `json:"depth"`
	MaxOptions      int `json:"max_options"`
}

// Measure computes Stats for the subtree under n.
func Measure(n *ConstraintNode) Stats {
	var s Stats
	var visit func(c *ConstraintNode, depth int)
	visit = func(c *ConstraintNode, depth int) {
		s.ConstraintNodes++
		s.Depth = max(s.Depth, depth)
		for _, d := range c.decisions {
			s.DecisionNodes++
			s.MaxOptions = max(s.MaxOptions, len(d.options))
			for _, o := range d.options {
				visit(o, depth+1)
			}
		}
	}
	visit(n, 0)
	return s
}
