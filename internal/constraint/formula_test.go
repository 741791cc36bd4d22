package constraint

import (
	"math/rand/v2"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/profilegen/internal/ir"
)

var (
	country  = ir.NewField("country")
	currency = ir.NewField("currency")
	quantity = ir.NewField("quantity")
)

func eq(f ir.Field, v string) *Atomic {
	return NewAtomic(f, EqualTo{Value: ir.String(v)}, RuleInformation{Description: "test"})
}

func TestAtomicDoubleNegationIsIdentity(t *testing.T) {
	a := eq(country, "US")

	neg := a.Negate()
	require.IsType(t, &Atomic{}, neg)
	assert.True(t, neg.(*Atomic).Negated)
	assert.Same(t, a, neg.Negate(), "double negation must return the original atomic")
}

func TestAtomicString(t *testing.T) {
	a := eq(country, "US")
	assert.Equal(t, "country equalTo US", a.String())
	assert.Equal(t, "NOT(country equalTo US)", a.Negate().String())

	n := NewAtomic(quantity, IsNull{})
	assert.Equal(t, "quantity null", n.String())
}

func TestAndNegatesToOr(t *testing.T) {
	a, b := eq(country, "US"), eq(currency, "USD")

	got := And{Children: []Formula{a, b}}.Negate()

	or, ok := got.(Or)
	require.True(t, ok, "¬And must be an Or, got %T", got)
	require.Len(t, or.Children, 2)
	assert.Same(t, a.Negate(), or.Children[0])
	assert.Same(t, b.Negate(), or.Children[1])
}

func TestOrNegatesToAnd(t *testing.T) {
	a, b := eq(country, "US"), eq(currency, "USD")

	got := Or{Children: []Formula{a, b}}.Negate()

	and, ok := got.(And)
	require.True(t, ok)
	assert.Same(t, a.Negate(), and.Children[0])
	assert.Same(t, b.Negate(), and.Children[1])
}

func TestConditionalNegationWithoutElse(t *testing.T) {
	c, then := eq(country, "US"), eq(currency, "USD")

	got := Conditional{Condition: c, Then: then}.Negate()

	want := And{Children: []Formula{c, then.Negate()}}
	assert.True(t, Equal(want, got), "got %s", got)
}

func TestConditionalNegationWithElse(t *testing.T) {
	c, then, els := eq(country, "US"), eq(currency, "USD"), eq(currency, "GBP")

	got := Conditional{Condition: c, Then: then, Else: els}.Negate()

	want := Or{Children: []Formula{
		And{Children: []Formula{c, then.Negate()}},
		And{Children: []Formula{c.Negate(), els.Negate()}},
	}}
	assert.True(t, Equal(want, got), "got %s", got)
}

func TestConditionalExpand(t *testing.T) {
	c, then := eq(country, "US"), eq(currency, "USD")

	got := Conditional{Condition: c, Then: then}.Expand()
	want := Or{Children: []Formula{
		And{Children: []Formula{c, then}},
		c.Negate(),
	}}
	assert.True(t, Equal(want, got), "got %s", got)

	els := eq(currency, "GBP")
	got = Conditional{Condition: c, Then: then, Else: els}.Expand()
	want = Or{Children: []Formula{
		And{Children: []Formula{c, then}},
		And{Children: []Formula{c.Negate(), els}},
	}}
	assert.True(t, Equal(want, got), "got %s", got)
}

func TestNewNotCollapses(t *testing.T) {
	a := eq(country, "US")
	assert.Same(t, a.Negate(), NewNot(a), "negating an atomic folds into its inverse")

	and := And{Children: []Formula{a}}
	not := NewNot(and)
	require.IsType(t, Not{}, not)
	assert.True(t, Equal(and, NewNot(not)), "¬¬x must collapse to x")
	assert.True(t, Equal(and, not.Negate()))
}

func TestEqualDistinguishesShapes(t *testing.T) {
	a := eq(country, "US")
	assert.False(t, Equal(And{Children: []Formula{a}}, Or{Children: []Formula{a}}))
	assert.False(t, Equal(a, a.Negate()))
	assert.True(t, Equal(a, eq(country, "US")), "equal operands compare equal across pairs")
	assert.False(t, Equal(Conditional{Condition: a, Then: a}, Conditional{Condition: a, Then: a, Else: a}))
}

func TestAtomicsWalksEveryShape(t *testing.T) {
	a, b, c := eq(country, "US"), eq(currency, "USD"), eq(quantity, "1")
	f := And{Children: []Formula{
		Conditional{Condition: a, Then: b, Else: c},
		NewNot(Or{Children: []Formula{a}}),
	}}

	got := Atomics(f)
	assert.Equal(t, []*Atomic{a, b, c, a}, got)
}

func TestRuleFormula(t *testing.T) {
	a, b := eq(country, "US"), eq(currency, "USD")

	single := Rule{Constraints: []Formula{a}}
	assert.Same(t, a, single.Formula())

	multi := Rule{Constraints: []Formula{a, b}}
	assert.True(t, Equal(And{Children: []Formula{a, b}}, multi.Formula()))
}

// randomFormula builds a formula of bounded depth from a seed.
func randomFormula(rng *rand.Rand, depth int) Formula {
	fields := []ir.Field{country, currency, quantity}
	leaf := func() Formula {
		f := fields[rng.IntN(len(fields))]
		var a Formula = eq(f, string(rune('A'+rng.IntN(4))))
		if rng.IntN(2) == 0 {
			a = a.Negate()
		}
		return a
	}
	if depth == 0 {
		return leaf()
	}
	children := func() []Formula {
		n := 1 + rng.IntN(3)
		out := make([]Formula, n)
		for i := range out {
			out[i] = randomFormula(rng, depth-1)
		}
		return out
	}
	switch rng.IntN(5) {
	case 0:
		return And{Children: children()}
	case 1:
		return Or{Children: children()}
	case 2:
		return NewNot(randomFormula(rng, depth-1))
	case 3:
		c := Conditional{Condition: randomFormula(rng, depth-1), Then: randomFormula(rng, depth-1)}
		if rng.IntN(2) == 0 {
			c.Else = randomFormula(rng, depth-1)
		}
		return c
	default:
		return leaf()
	}
}

func TestNegationProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("atomic double negation returns the same atomic", prop.ForAll(
		func(seed uint64) bool {
			rng := rand.New(rand.NewPCG(seed, 1))
			a := randomFormula(rng, 0)
			return a.Negate().Negate() == a
		},
		gen.UInt64(),
	))

	properties.Property("double negation of combinators without conditionals is structural identity", prop.ForAll(
		func(seed uint64, depth int) bool {
			rng := rand.New(rand.NewPCG(seed, 2))
			f := randomFormula(rng, depth)
			if hasConditional(f) {
				return true
			}
			return Equal(stripNot(f), stripNot(f.Negate().Negate()))
		},
		gen.UInt64(),
		gen.IntRange(0, 4),
	))

	properties.Property("negation preserves the atomic field set", prop.ForAll(
		func(seed uint64, depth int) bool {
			rng := rand.New(rand.NewPCG(seed, 3))
			f := randomFormula(rng, depth)
			return fieldSet(f) == fieldSet(f.Negate())
		},
		gen.UInt64(),
		gen.IntRange(0, 4),
	))

	properties.TestingRun(t)
}

func hasConditional(f Formula) bool {
	switch v := f.(type) {
	case Conditional:
		return true
	case And:
		for _, c := range v.Children {
			if hasConditional(c) {
				return true
			}
		}
	case Or:
		for _, c := range v.Children {
			if hasConditional(c) {
				return true
			}
		}
	case Not:
		return hasConditional(v.Child)
	}
	return false
}

// stripNot pushes Not wrappers inward so that Not(x) and x.Negate()
// compare equal.
func stripNot(f Formula) Formula {
	switch v := f.(type) {
	case Not:
		return stripNot(v.Child.Negate())
	case And:
		out := make([]Formula, len(v.Children))
		for i, c := range v.Children {
			out[i] = stripNot(c)
		}
		return And{Children: out}
	case Or:
		out := make([]Formula, len(v.Children))
		for i, c := range v.Children {
			out[i] = stripNot(c)
		}
		return Or{Children: out}
	default:
		return f
	}
}

func fieldSet(f Formula) string {
	seen := map[string]bool{}
	for _, a := range Atomics(f) {
		seen[a.Field.Name] = true
	}
	out := ""
	for _, name := range []string{"country", "currency", "quantity"} {
		if seen[name] {
			out += name + ";"
		}
	}
	return out
}
