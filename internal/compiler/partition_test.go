package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/profilegen/internal/ir"
	tu "github.com/roach88/profilegen/internal/testutil"
	"github.com/roach88/profilegen/internal/tree"
)

func partitionFields(parts []*tree.DecisionTree) [][]string {
	out := make([][]string, len(parts))
	for i, p := range parts {
		out[i] = p.Fields.Names()
	}
	return out
}

func TestPartitionSplitsIndependentFields(t *testing.T) {
	p := tu.Profile([]string{"a", "b", "c", "d", "e"},
		tu.Rule("a or b", tu.Or(tu.Eq("a", 1), tu.Eq("b", 2))),
		tu.Rule("d", tu.Eq("d", "x")),
		tu.Rule("c implies e", tu.If(tu.Eq("c", 1), tu.Eq("e", 2))),
	)
	tr, err := BuildTree(p)
	require.NoError(t, err)

	parts := Partition(tr, nil)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "e"}, {"d"}}, partitionFields(parts))

	assert.Len(t, parts[0].Root.Decisions(), 1)
	assert.False(t, parts[0].Root.HasSpecs())
	assert.Len(t, parts[1].Root.Decisions(), 1)
	assert.True(t, parts[2].Root.IsLeaf())
	assert.Equal(t, "notNull in[x]", parts[2].Root.Spec(ir.NewField("d")).String())
}

func TestPartitionUntouchedFieldsGetTrivialTrees(t *testing.T) {
	tr, err := BuildTree(tu.Profile([]string{"a", "b", "c"}, tu.Rule("b", tu.Eq("b", 1))))
	require.NoError(t, err)

	parts := Partition(tr, tree.NewFieldMemo(0))
	assert.Equal(t, [][]string{{"a"}, {"b"}, {"c"}}, partitionFields(parts))
	assert.False(t, parts[0].Root.HasSpecs())
	assert.True(t, parts[0].Root.IsLeaf())
}

func TestPartitionCountryProfileIsOneGroup(t *testing.T) {
	tr, err := BuildTree(tu.CountryProfile())
	require.NoError(t, err)

	parts := Partition(tr, nil)
	require.Len(t, parts, 1)
	assert.Equal(t, []string{"country", "currency", "city"}, parts[0].Fields.Names())
	assert.Len(t, parts[0].Root.Decisions(), 4)
}

func TestPartitionFieldlessDecisionsJoinFirstPartition(t *testing.T) {
	empty := tree.NewConstraintNode(nil)
	d := tree.NewDecisionNode(empty, empty)
	tr := &tree.DecisionTree{
		Root:   tree.NewConstraintNode(nil, d),
		Fields: ir.NewProfileFields("a", "b"),
	}

	parts := Partition(tr, nil)
	require.Len(t, parts, 2)
	assert.Equal(t, []*tree.DecisionNode{d}, parts[0].Root.Decisions())
	assert.True(t, parts[1].Root.IsLeaf())
}

func TestUnionFind(t *testing.T) {
	uf := newUnionFind()
	a, b, c, d := ir.NewField("a"), ir.NewField("b"), ir.NewField("c"), ir.NewField("d")
	uf.union(a, b)
	uf.union(c, d)
	assert.NotEqual(t, uf.find(a), uf.find(c))
	uf.union(b, d)
	assert.Equal(t, uf.find(a), uf.find(c))
	assert.Equal(t, uf.find(a), uf.find(d))
}

func TestInjectMaxStringLength(t *testing.T) {
	tr, err := BuildTree(tu.Profile([]string{"a", "b"}, tu.Rule("a", tu.Eq("a", "x"))))
	require.NoError(t, err)

	got, err := InjectMaxStringLength(tr, 10)
	require.NoError(t, err)
	assert.Equal(t, "notNull in[x] string length[0, 10]", got.Root.Spec(ir.NewField("a")).String())
	assert.Equal(t, "string length[0, 10]", got.Root.Spec(ir.NewField("b")).String())
	assert.Equal(t, []string{"max string length 10"}, got.Root.Spec(ir.NewField("b")).RuleDescriptions())

	same, err := InjectMaxStringLength(tr, 0)
	require.NoError(t, err)
	assert.Same(t, tr, same)
}

func TestInjectMaxStringLengthContradiction(t *testing.T) {
	tr, err := BuildTree(tu.Profile([]string{"a"}, tu.Rule("long", tu.Longer("a", 20))))
	require.NoError(t, err)

	_, err = InjectMaxStringLength(tr, 10)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ErrProfileContradiction, ve.Code)
	assert.Equal(t, []string{"long", "max string length 10"}, ve.Rules)
}

func TestViolateProfile(t *testing.T) {
	p := tu.CountryProfile()
	p.Description = "countries"
	violations := ViolateProfile(p)
	require.Len(t, violations, 4)

	v := violations[1]
	assert.Equal(t, "US currency", v.Rule.Description)
	assert.Equal(t, "countries (violating US currency)", v.Profile.Description)
	require.Len(t, v.Profile.Rules, 4)
	assert.Equal(t, p.Rules[0].Constraints, v.Profile.Rules[0].Constraints, "other rules are kept")
	assert.Equal(t,
		"AND(country equalTo US, NOT(currency equalTo USD))",
		v.Profile.Rules[1].Formula().String())
	assert.Equal(t, "IF(country equalTo US) THEN(currency equalTo USD)", p.Rules[1].Formula().String(), "the source profile is untouched")

	tr, err := BuildTree(v.Profile)
	require.NoError(t, err)
	assert.Equal(t, "notNull in[US]", tr.Root.Spec(ir.NewField("country")).String())
}
