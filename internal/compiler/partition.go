package compiler

import (
	"cmp"
	"slices"

	"github.com/hashicorp/go-set/v2"

	"github.com/roach88/profilegen/internal/fieldspec"
	"github.com/roach88/profilegen/internal/ir"
	"github.com/roach88/profilegen/internal/tree"
)

// unionFind groups fields into connected components.
type unionFind struct {
	parent map[ir.Field]ir.Field
	rank   map[ir.Field]int
}

func newUnionFind() *unionFind {
	return &unionFind{parent: map[ir.Field]ir.Field{}, rank: map[ir.Field]int{}}
}

func (u *unionFind) add(f ir.Field) {
	if _, ok := u.parent[f]; !ok {
		u.parent[f] = f
	}
}

func (u *unionFind) find(f ir.Field) ir.Field {
	u.add(f)
	for u.parent[f] != f {
		u.parent[f] = u.parent[u.parent[f]]
		f = u.parent[f]
	}
	return f
}

func (u *unionFind) union(a, b ir.Field) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	switch {
	case u.rank[ra] < u.rank[rb]:
		u.parent[ra] = rb
	case u.rank[ra] > u.rank[rb]:
		u.parent[rb] = ra
	default:
		u.parent[rb] = ra
		u.rank[ra]++
	}
}

// Partition splits t into independent trees over disjoint field sets. Each
// root spec and each root decision is a unit; units sharing a field land in
// the same partition. Schema fields no unit touches get a trivial tree of
// their own. Partitions are ordered by their first field's schema position.
//
// Walking every partition and joining one RowSpec from each, in every
// combination, yields the same RowSpecs as walking t.
func Partition(t *tree.DecisionTree, memo *tree.FieldMemo) []*tree.DecisionTree {
	if memo == nil {
		memo = tree.NewFieldMemo(0)
	}
	uf := newUnionFind()
	for _, f := range t.Fields {
		uf.add(f)
	}

	root := t.Root
	specs := root.Specs()
	for f := range specs {
		uf.add(f)
	}

	decisions := root.Decisions()
	var fieldless []*tree.DecisionNode
	for _, d := range decisions {
		fields := memo.DecisionFields(d).Slice()
		if len(fields) == 0 {
			fieldless = append(fieldless, d)
			continue
		}
		for _, f := range fields[1:] {
			uf.union(fields[0], f)
		}
	}

	type group struct {
		fields    *set.Set[ir.Field]
		specs     map[ir.Field]*fieldspec.FieldSpec
		decisions []*tree.DecisionNode
		first     int
	}
	groups := map[ir.Field]*group{}
	groupOf := func(f ir.Field) *group {
		r := uf.find(f)
		g, ok := groups[r]
		if !ok {
			g = &group{fields: set.New[ir.Field](1), specs: map[ir.Field]*fieldspec.FieldSpec{}, first: -1}
			groups[r] = g
		}
		return g
	}

	for f := range uf.parent {
		g := groupOf(f)
		g.fields.Insert(f)
		if i := t.Fields.Index(f); i >= 0 && (g.first < 0 || i < g.first) {
			g.first = i
		}
	}
	for f, s := range specs {
		groupOf(f).specs[f] = s
	}
	for _, d := range decisions {
		if fields := memo.DecisionFields(d); !fields.Empty() {
			g := groupOf(fields.Slice()[0])
			g.decisions = append(g.decisions, d)
		}
	}

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	slices.SortFunc(ordered, func(a, b *group) int {
		// Groups holding only undeclared fields sort last, by name.
		switch {
		case a.first >= 0 && b.first >= 0:
			return cmp.Compare(a.first, b.first)
		case a.first >= 0:
			return -1
		case b.first >= 0:
			return 1
		default:
			return compareFirstName(a.fields, b.fields)
		}
	})

	out := make([]*tree.DecisionTree, 0, len(ordered)+1)
	for i, g := range ordered {
		decs := g.decisions
		if i == 0 {
			decs = append(slices.Clone(decs), fieldless...)
		}
		out = append(out, &tree.DecisionTree{
			Root:        tree.NewConstraintNode(g.specs, decs...),
			Fields:      t.Fields.Subset(g.fields.Contains),
			Description: t.Description,
		})
	}
	if len(out) == 0 {
		out = append(out, &tree.DecisionTree{
			Root:        tree.NewConstraintNode(nil, fieldless...),
			Fields:      t.Fields,
			Description: t.Description,
		})
	}
	return out
}

func compareFirstName(a, b *set.Set[ir.Field]) int {
	name := func(s *set.Set[ir.Field]) string {
		names := make([]string, 0, s.Size())
		for _, f := range s.Slice() {
			names = append(names, f.Name)
		}
		return slices.Min(names)
	}
	return cmp.Compare(name(a), name(b))
}
