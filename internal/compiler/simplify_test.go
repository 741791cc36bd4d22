package compiler

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/profilegen/internal/fieldspec"
	"github.com/roach88/profilegen/internal/ir"
	tu "github.com/roach88/profilegen/internal/testutil"
	"github.com/roach88/profilegen/internal/tree"
)

var (
	fa = ir.NewField("a")
	fb = ir.NewField("b")
)

func leaf(t *testing.T, f ir.Field, v any) *tree.ConstraintNode {
	t.Helper()
	m, err := fieldspec.FromAtomic(tu.Eq(f.Name, v))
	require.NoError(t, err)
	return tree.Leaf(map[ir.Field]*fieldspec.FieldSpec{f: m.Value()})
}

func decisionTree(root *tree.ConstraintNode) *tree.DecisionTree {
	return &tree.DecisionTree{Root: root, Fields: ir.ProfileFields{fa, fb}}
}

func TestSimplifyPullsUpSingletons(t *testing.T) {
	inner := tree.NewDecisionNode(leaf(t, fb, 1), leaf(t, fb, 2))
	single := tree.NewDecisionNode(tree.NewConstraintNode(leaf(t, fa, "x").Specs(), inner))
	tr := decisionTree(tree.NewConstraintNode(nil, single))

	got, err := Simplify(tr)
	require.NoError(t, err)

	root := got.Root
	assert.Equal(t, "notNull in[x]", root.Spec(fa).String())
	require.Len(t, root.Decisions(), 1)
	assert.Same(t, inner, root.Decisions()[0], "the pulled-up decision is shared")
}

func TestSimplifyCascadingPullUp(t *testing.T) {
	// ((a=x)) nested three singleton decisions deep collapses into the root.
	n := leaf(t, fa, "x")
	for range 3 {
		n = tree.NewConstraintNode(nil, tree.NewDecisionNode(n))
	}
	got, err := Simplify(decisionTree(n))
	require.NoError(t, err)
	assert.True(t, got.Root.IsLeaf())
	assert.Equal(t, "notNull in[x]", got.Root.Spec(fa).String())
}

func TestSimplifyFlattensNestedOr(t *testing.T) {
	// a=1 OR (a=2 OR a=3)
	nested := tree.NewConstraintNode(nil, tree.NewDecisionNode(leaf(t, fa, 2), leaf(t, fa, 3)))
	tr := decisionTree(tree.NewConstraintNode(nil, tree.NewDecisionNode(leaf(t, fa, 1), nested)))

	got, err := Simplify(tr)
	require.NoError(t, err)

	require.Len(t, got.Root.Decisions(), 1)
	d := got.Root.Decisions()[0]
	require.Equal(t, 3, d.Len())
	for i, want := range []string{"notNull in[1]", "notNull in[2]", "notNull in[3]"} {
		assert.Equal(t, want, d.Option(i).Spec(fa).String())
	}
}

func TestSimplifyPullUpContradictionAtRoot(t *testing.T) {
	tr := decisionTree(tree.NewConstraintNode(
		leaf(t, fa, "x").Specs(),
		tree.NewDecisionNode(leaf(t, fa, "y")),
	))
	_, err := Simplify(tr)
	require.Error(t, err)
	assert.True(t, IsContradiction(err))
}

func TestSimplifyContradictionWinsOverPullUp(t *testing.T) {
	// The second option pulls up a=y into a node that already holds a=x.
	// Contradiction drops that option instead of failing the profile, and
	// the lone survivor is then pulled up into the root.
	bad := tree.NewConstraintNode(leaf(t, fa, "x").Specs(), tree.NewDecisionNode(leaf(t, fa, "y")))
	tr := decisionTree(tree.NewConstraintNode(nil, tree.NewDecisionNode(leaf(t, fb, 1), bad)))

	got, err := Simplify(tr)
	require.NoError(t, err)
	assert.True(t, got.Root.IsLeaf())
	assert.Equal(t, "notNull in[1]", got.Root.Spec(fb).String())
}

func TestSimplifySharesUnchangedTrees(t *testing.T) {
	tr, err := BuildTree(tu.CountryProfile())
	require.NoError(t, err)

	got, err := Simplify(tr)
	require.NoError(t, err)
	assert.Same(t, tr, got)
}

func TestSimplifyIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("simplify(simplify(t)) == simplify(t)", prop.ForAll(
		func(seed uint64) bool {
			built, err := BuildTree(tu.RandomProfile(seed, []string{"a", "b", "c"}, 3))
			if err != nil {
				return IsContradiction(err)
			}
			once, err := Simplify(built)
			if err != nil {
				return IsContradiction(err)
			}
			twice, err := Simplify(once)
			if err != nil {
				return false
			}
			return once.Equal(twice) && twice == once
		},
		gen.UInt64(),
	))

	properties.Property("simplified trees have no singleton or flattenable decisions", prop.ForAll(
		func(seed uint64) bool {
			built, err := BuildTree(tu.RandomProfile(seed, []string{"a", "b"}, 3))
			if err != nil {
				return true
			}
			simplified, err := Simplify(built)
			if err != nil {
				return true
			}
			return wellFormed(simplified.Root)
		},
		gen.UInt64(),
	))

	properties.TestingRun(t)
}

func wellFormed(n *tree.ConstraintNode) bool {
	for _, d := range n.Decisions() {
		if d.Len() < 2 {
			return false
		}
		for _, o := range d.Options() {
			if flattenable(o) || !wellFormed(o) {
				return false
			}
		}
	}
	return true
}
