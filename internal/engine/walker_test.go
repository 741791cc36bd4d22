package engine

import (
	"iter"
	"slices"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/profilegen/internal/compiler"
	"github.com/roach88/profilegen/internal/constraint"
	"github.com/roach88/profilegen/internal/fieldspec"
	"github.com/roach88/profilegen/internal/ir"
	tu "github.com/roach88/profilegen/internal/testutil"
	"github.com/roach88/profilegen/internal/tree"
)

var countryRowSpecs = []string{
	"{country=notNull in[US], currency=notNull in[USD], city=notNull in[DC, NYC]}",
	"{country=notNull in[GB], currency=notNull in[GBP], city=notNull in[Bristol, London]}",
	"{country=notIn[GB, US], currency=any, city=any}",
}

func render(specs iter.Seq[fieldspec.RowSpec]) []string {
	var out []string
	for rs := range specs {
		out = append(out, rs.String())
	}
	return out
}

// renderSet renders specs as a sorted, duplicate-free listing.
func renderSet(specs iter.Seq[fieldspec.RowSpec]) []string {
	out := render(specs)
	slices.Sort(out)
	return slices.Compact(out)
}

func simplified(t *testing.T, p *constraint.Profile) *tree.DecisionTree {
	t.Helper()
	built, err := compiler.BuildTree(p)
	require.NoError(t, err)
	s, err := compiler.Simplify(built)
	require.NoError(t, err)
	return s
}

func TestCartesianWalker_CountryScenario(t *testing.T) {
	tr := simplified(t, tu.CountryProfile())

	got := render(CartesianWalker{}.Walk(tr))
	assert.Equal(t, countryRowSpecs, got)
}

func TestCartesianWalker_QuantityScenario(t *testing.T) {
	p := tu.Profile([]string{"quantity"},
		tu.Rule("positive", tu.GT("quantity", "0")),
		tu.Rule("at most five", tu.Not(tu.GT("quantity", "5"))),
	)
	tr := simplified(t, p)

	assert.Equal(t, []string{"{quantity=numeric(0, 5]}"}, render(CartesianWalker{}.Walk(tr)))
}

func TestCartesianWalker_StopsEarly(t *testing.T) {
	tr := simplified(t, tu.CountryProfile())

	n := 0
	for range (CartesianWalker{}).Walk(tr) {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestCartesianWalker_ContradictoryBranchesYieldNothing(t *testing.T) {
	// Both options of the second decision contradict the first.
	p := tu.Profile([]string{"a"},
		tu.Rule("one", tu.Or(tu.Eq("a", "x"), tu.Eq("a", "y"))),
		tu.Rule("two", tu.Or(tu.Eq("a", "x"), tu.Eq("a", "z"))),
	)
	built, err := compiler.BuildTree(p)
	require.NoError(t, err)

	assert.Equal(t, []string{"{a=notNull in[x]}"}, render(CartesianWalker{}.Walk(built)))
}

// fixedValues is a ValueSource that offers the same values for every
// spec, filtered by what the spec permits.
type fixedValues []ir.Value

func (v fixedValues) Values(_ ir.Field, spec *fieldspec.FieldSpec) iter.Seq[ir.Value] {
	return func(yield func(ir.Value) bool) {
		for _, value := range v {
			if spec.Permits(value) && !yield(value) {
				return
			}
		}
	}
}

func TestReductiveWalker_CountryScenario(t *testing.T) {
	tr := simplified(t, tu.CountryProfile())
	w := NewReductiveWalker(NewFieldSelector(SelectFrequency), fixedValues{ir.String("FR")})

	assert.Equal(t, []string{
		"{country=notNull in[US], currency=notNull in[USD], city=notNull in[DC, NYC]}",
		"{country=notNull in[FR], currency=any, city=any}",
		"{country=notNull in[GB], currency=notNull in[GBP], city=notNull in[Bristol, London]}",
	}, render(w.Walk(tr)))
}

func TestReductiveWalker_EverySelectorReachesEveryBranch(t *testing.T) {
	tr := simplified(t, tu.CountryProfile())

	for _, kind := range []FieldSelection{SelectFrequency, SelectConstrained, SelectSchema} {
		w := NewReductiveWalker(NewFieldSelector(kind), fixedValues{ir.String("FR"), ir.String("Paris"), ir.String("EUR")})
		got := renderSet(w.Walk(tr))
		require.NotEmpty(t, got, kind)

		// Selectors that fix city before country split a branch per city,
		// so only the country and currency are compared.
		for _, want := range []string{
			"country=notNull in[US], currency=notNull in[USD]",
			"country=notNull in[GB], currency=notNull in[GBP]",
		} {
			assert.True(t, slices.ContainsFunc(got, func(s string) bool { return strings.Contains(s, want) }),
				"%s: no row spec with %s in %v", kind, want, got)
		}
	}
}

func TestReductiveWalker_NoCandidatesYieldsNothing(t *testing.T) {
	// Without a value for the unconstrained branch the walker can only
	// follow the whitelisted options.
	tr := simplified(t, tu.CountryProfile())
	w := NewReductiveWalker(NewFieldSelector(SelectSchema), fixedValues{})

	assert.Equal(t, countryRowSpecs[:2], render(w.Walk(tr)))
}

func TestReductiveWalker_LeafTreeEmitsRoot(t *testing.T) {
	p := tu.Profile([]string{"a", "b"}, tu.Rule("a is x", tu.Eq("a", "x")))
	tr := simplified(t, p)
	w := NewReductiveWalker(NewFieldSelector(SelectFrequency), fixedValues{})

	assert.Equal(t, []string{"{a=notNull in[x], b=any}"}, render(w.Walk(tr)))
}

func TestReductiveWalker_NullBranch(t *testing.T) {
	p := tu.Profile([]string{"f"},
		tu.Rule("a or null", tu.In("f", "a", nil)),
		tu.Rule("either", tu.Or(tu.Eq("f", "a"), tu.Eq("f", nil))),
	)
	tr := simplified(t, p)
	w := NewReductiveWalker(NewFieldSelector(SelectFrequency), fixedValues{})

	assert.Equal(t, []string{"{f=notNull in[a]}", "{f=null in[]}"}, render(w.Walk(tr)))
	assert.ElementsMatch(t, render(w.Walk(tr)), render(CartesianWalker{}.Walk(tr)))
}

func TestParseWalkerKind(t *testing.T) {
	k, err := ParseWalkerKind(" Reductive ")
	require.NoError(t, err)
	assert.Equal(t, WalkerReductive, k)

	_, err = ParseWalkerKind("random")
	assert.ErrorContains(t, err, "unknown walker")
}

func TestWalkProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	fields := []string{"a", "b", "c"}

	properties.Property("simplifying a tree keeps its RowSpecs", prop.ForAll(
		func(seed uint64) bool {
			built, err := compiler.BuildTree(tu.RandomProfile(seed, fields, 2))
			if err != nil {
				return compiler.IsContradiction(err)
			}
			before := renderSet(CartesianWalker{}.Walk(built))
			after, err := compiler.Simplify(built)
			if err != nil {
				return compiler.IsContradiction(err) && len(before) == 0
			}
			return slices.Equal(before, renderSet(CartesianWalker{}.Walk(after)))
		},
		gen.UInt64(),
	))

	properties.Property("joining partition walks equals walking the whole tree", prop.ForAll(
		func(seed uint64) bool {
			built, err := compiler.BuildTree(tu.RandomProfile(seed, fields, 2))
			if err != nil {
				return true
			}
			whole, err := compiler.Simplify(built)
			if err != nil {
				return true
			}
			parts := compiler.Partition(whole, tree.NewFieldMemo(0))
			walked := make([][]fieldspec.RowSpec, len(parts))
			for i, part := range parts {
				walked[i] = slices.Collect(CartesianWalker{}.Walk(part))
			}
			joined := renderSet(joinPartitions(whole.Fields, walked))
			return slices.Equal(renderSet(CartesianWalker{}.Walk(whole)), joined)
		},
		gen.UInt64(),
	))

	properties.Property("reductive RowSpecs only admit rows that satisfy the profile", prop.ForAll(
		func(seed uint64) bool {
			p := tu.RandomProfile(seed, fields, 2)
			built, err := compiler.BuildTree(p)
			if err != nil {
				return true
			}
			whole, err := compiler.Simplify(built)
			if err != nil {
				return true
			}
			source := fixedValues{ir.String("a"), ir.String("b"), ir.String("c"), ir.DecimalFromInt(0), ir.DecimalFromInt(3), ir.Null{}}
			w := NewReductiveWalker(NewFieldSelector(SelectFrequency), source, WithBreadth(len(source)))
			for rs := range w.Walk(whole) {
				row := ir.Row{}
				for _, f := range whole.Fields {
					var value ir.Value = ir.Null{}
					for v := range source.Values(f, rs.Get(f)) {
						value = v
						break
					}
					row[f.Name] = value
				}
				if !rowSpecAdmits(rs, row) {
					continue
				}
				ok, err := fieldspec.SatisfiesAll(p.Formulas(), row)
				if err != nil || !ok {
					return false
				}
			}
			return true
		},
		gen.UInt64(),
	))

	properties.TestingRun(t)
}

// rowSpecAdmits reports whether every value of row is permitted by rs.
func rowSpecAdmits(rs fieldspec.RowSpec, row ir.Row) bool {
	for _, f := range rs.Fields() {
		if !rs.Get(f).Permits(row[f.Name]) {
			return false
		}
	}
	return true
}
