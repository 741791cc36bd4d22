package restrictions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/profilegen/internal/ir"
)

func dec(s string) ir.Decimal { return ir.MustDecimal(s) }

func TestMergeWithNilIsIdentityByReference(t *testing.T) {
	n := NumericAbove(dec("1"), false)
	assert.Same(t, n, MergeNumeric(n, nil).Value())
	assert.Same(t, n, MergeNumeric(nil, n).Value())

	s := Whitelist(ir.String("a"))
	assert.Same(t, s, MergeSet(nil, s).Value())

	str := StringShorterThan(4)
	assert.Same(t, str, MergeString(str, nil).Value())

	dt := DateTimeAfter(ir.MustDateTime("2024-01-01"), true)
	assert.Same(t, dt, MergeDateTime(nil, dt).Value())

	ty := OnlyTypes(ir.TypeString)
	assert.Same(t, ty, MergeType(ty, nil).Value())

	assert.Same(t, Null(MustBeNull), MergeNull(nil, Null(MustBeNull)).Value())
}

func TestMergedThen(t *testing.T) {
	ok := Ok(2)
	got := Then(ok, func(v int) Merged[string] { return Ok("x") })
	v, valid := got.Get()
	assert.True(t, valid)
	assert.Equal(t, "x", v)

	called := false
	bad := Then(Contradictory[int](), func(int) Merged[string] { called = true; return Ok("y") })
	assert.True(t, bad.IsContradictory())
	assert.False(t, called)
}

func TestNumericHalfOpenInterval(t *testing.T) {
	// quantity > 0 AND NOT(quantity > 5)
	got := MergeNumeric(NumericAbove(dec("0"), false), NumericBelow(dec("5"), true))
	require.False(t, got.IsContradictory())

	n := got.Value()
	assert.Equal(t, "(0, 5]", n.String())
	assert.False(t, n.Match(dec("0")))
	assert.True(t, n.Match(dec("0.5")))
	assert.True(t, n.Match(dec("5")))
	assert.False(t, n.Match(dec("5.000001")))
}

func TestNumericTighterBoundWins(t *testing.T) {
	got := MergeNumeric(NumericAbove(dec("3"), true), NumericAbove(dec("3"), false)).Value()
	assert.False(t, got.Min.Inclusive, "exclusive is tighter at the same limit")

	got = MergeNumeric(NumericAbove(dec("2"), false), NumericAbove(dec("3"), true)).Value()
	assert.Equal(t, 0, got.Min.Limit.Cmp(dec("3")))
	assert.True(t, got.Min.Inclusive)
}

func TestNumericScaleContradiction(t *testing.T) {
	openInterval := MergeNumeric(NumericAbove(dec("1.2"), false), NumericBelow(dec("1.8"), false))
	require.False(t, openInterval.IsContradictory(), "decimals fit between 1.2 and 1.8")

	got := MergeNumeric(openInterval.Value(), NumericGranularTo(0))
	assert.True(t, got.IsContradictory(), "no integer lies in (1.2, 1.8)")

	got = MergeNumeric(MergeNumeric(NumericAbove(dec("1"), false), NumericBelow(dec("2"), false)).Value(), NumericGranularTo(0))
	assert.True(t, got.IsContradictory(), "no integer lies in (1, 2)")

	got = MergeNumeric(MergeNumeric(NumericAbove(dec("1"), true), NumericBelow(dec("2"), false)).Value(), NumericGranularTo(0))
	require.False(t, got.IsContradictory())
	lo, _ := got.Value().LowerBound()
	hi, _ := got.Value().UpperBound()
	assert.Equal(t, "1", lo.String())
	assert.Equal(t, "1", hi.String())
}

func TestNumericBoundsAtScale(t *testing.T) {
	n := &NumericRestrictions{
		Min:   &NumericLimit{Limit: dec("0.123"), Inclusive: false},
		Max:   &NumericLimit{Limit: dec("-0"), Inclusive: true},
		Scale: 2,
	}
	lo, ok := n.LowerBound()
	require.True(t, ok)
	assert.Equal(t, "0.13", lo.String())
	assert.False(t, n.Satisfiable())

	n = &NumericRestrictions{Min: &NumericLimit{Limit: dec("-1.5")}, Max: &NumericLimit{Limit: dec("-1"), Inclusive: false}, Scale: 1}
	lo, _ = n.LowerBound()
	hi, _ := n.UpperBound()
	assert.Equal(t, "-1.4", lo.String())
	assert.Equal(t, "-1.1", hi.String())
	assert.True(t, n.Match(dec("-1.2")))
	assert.False(t, n.Match(dec("-1.25")), "off-granularity values are rejected")
}

func TestNumericCrossedBoundsContradict(t *testing.T) {
	got := MergeNumeric(NumericAbove(dec("5"), true), NumericBelow(dec("5"), false))
	assert.True(t, got.IsContradictory())

	got = MergeNumeric(NumericAbove(dec("5"), true), NumericBelow(dec("5"), true))
	assert.False(t, got.IsContradictory(), "the single point 5 is admissible")
}

func TestSetMerge(t *testing.T) {
	a, b, c := ir.String("a"), ir.String("b"), ir.String("c")

	got := MergeSet(Whitelist(a, b), Whitelist(b, c))
	require.False(t, got.IsContradictory())
	assert.Equal(t, []ir.Value{b}, got.Value().WhitelistValues())

	got = MergeSet(Whitelist(a, b), Blacklist(a))
	require.False(t, got.IsContradictory())
	assert.Equal(t, []ir.Value{b}, got.Value().WhitelistValues())
	assert.Empty(t, got.Value().BlacklistValues(), "blacklist folds into the whitelist")

	got = MergeSet(Blacklist(a), Blacklist(b))
	assert.False(t, got.Value().HasWhitelist())
	assert.Equal(t, []ir.Value{a, b}, got.Value().BlacklistValues())
	assert.Equal(t, "notIn[a, b]", got.Value().String())

	got = MergeSet(Whitelist(a), Whitelist(b))
	require.False(t, got.IsContradictory())
	assert.True(t, got.Value().IsEmptyWhitelist())

	got = MergeSet(Whitelist(a), Blacklist(a))
	require.False(t, got.IsContradictory())
	assert.True(t, got.Value().IsEmptyWhitelist())
	assert.Equal(t, "in[]", got.Value().String())
}

// An empty whitelist leaves nullness to NullRestrictions.
func TestSetEmptyWhitelistCarriesThrough(t *testing.T) {
	x := Whitelist(ir.String("X"))
	empty := Whitelist()

	assert.True(t, empty.IsEmptyWhitelist())
	for _, got := range []Merged[*SetRestrictions]{MergeSet(x, empty), MergeSet(empty, x)} {
		require.False(t, got.IsContradictory())
		assert.True(t, got.Value().IsEmptyWhitelist())
		assert.False(t, got.Value().Permits(ir.String("X")))
	}
	assert.Same(t, empty, MergeSet(empty, Blacklist(ir.String("Y"))).Value())
}

func TestSetValuesAreKeyedByHash(t *testing.T) {
	s := Whitelist(ir.MustDecimal("1.50"), ir.String("\u00e9"))

	assert.True(t, s.Permits(ir.MustDecimal("1.5")))
	assert.True(t, s.Permits(ir.String("e\u0301")), "NFC-equivalent strings are one value")
	assert.False(t, s.Permits(ir.String("1.5")))
}

func TestSetFilter(t *testing.T) {
	s := Whitelist(ir.String("a"), ir.DecimalFromInt(3))

	filtered := s.Filter(func(v ir.Value) bool { _, ok := v.(ir.String); return ok })
	assert.Equal(t, []ir.Value{ir.String("a")}, filtered.WhitelistValues())
	assert.Same(t, s, s.Filter(func(ir.Value) bool { return true }))

	bl := Blacklist(ir.String("a"))
	assert.Same(t, bl, bl.Filter(func(ir.Value) bool { return false }))
}

func TestTypeMerge(t *testing.T) {
	got := MergeType(OnlyTypes(ir.TypeString, ir.TypeNumeric), ExceptType(ir.TypeString))
	require.False(t, got.IsContradictory())
	assert.Equal(t, []ir.DataType{ir.TypeNumeric}, got.Value().Types())

	assert.True(t, MergeType(OnlyTypes(ir.TypeString), ExceptType(ir.TypeString)).IsContradictory())

	narrow := OnlyTypes(ir.TypeDateTime)
	assert.Same(t, narrow, MergeType(ExceptType(ir.TypeString), narrow).Value(), "subset operand is reused")
	assert.Equal(t, "type[numeric, datetime]", ExceptType(ir.TypeString).String())
}

func TestNullMerge(t *testing.T) {
	assert.True(t, MergeNull(Null(MustBeNull), Null(MustNotBeNull)).IsContradictory())
	assert.Equal(t, MustNotBeNull, MergeNull(Null(MustNotBeNull), Null(MustNotBeNull)).Value().Nullness)
}

func TestDateTimeMerge(t *testing.T) {
	jan, feb := ir.MustDateTime("2024-01-01"), ir.MustDateTime("2024-02-01")

	got := MergeDateTime(DateTimeAfter(jan, true), DateTimeBefore(feb, false))
	require.False(t, got.IsContradictory())
	assert.Equal(t, "[2024-01-01T00:00:00Z, 2024-02-01T00:00:00Z)", got.Value().String())
	assert.True(t, got.Value().Match(jan))
	assert.False(t, got.Value().Match(feb))

	assert.True(t, MergeDateTime(DateTimeAfter(feb, false), DateTimeBefore(feb, true)).IsContradictory())
	assert.True(t, MergeDateTime(DateTimeAfter(feb, true), DateTimeBefore(jan, true)).IsContradictory())
}

func TestStringLengthMerge(t *testing.T) {
	got := MergeString(StringLength(2, -1), StringShorterThan(5))
	require.False(t, got.IsContradictory())
	assert.Equal(t, "length[2, 4]", got.Value().String())

	assert.True(t, MergeString(StringLength(5, -1), StringShorterThan(5)).IsContradictory())

	got = MergeString(StringLength(2, 3), StringNotOfLength(2))
	require.False(t, got.IsContradictory())
	assert.True(t, got.Value().LengthAllowed(3))
	assert.False(t, got.Value().LengthAllowed(2))

	assert.True(t, MergeString(got.Value(), StringNotOfLength(3)).IsContradictory(), "every length in range is excluded")
}

func mustClause(t *testing.T, pattern string, contains, negated bool) RegexClause {
	t.Helper()
	c, err := NewRegexClause(pattern, contains, negated)
	require.NoError(t, err)
	return c
}

func TestStringSpaceMerge(t *testing.T) {
	digits := StringIn(NewRegexSpace(mustClause(t, `[0-9]+`, false, false)))
	notDigits := StringIn(NewRegexSpace(mustClause(t, `[0-9]+`, false, true)))

	assert.True(t, MergeString(digits, notDigits).IsContradictory())

	hasA := StringIn(NewRegexSpace(mustClause(t, `a`, true, false)))
	got := MergeString(digits, hasA)
	require.False(t, got.IsContradictory(), "not statically known to be empty")
	assert.Equal(t, "length[0, inf] matching /[0-9]+/ AND containing /a/", got.Value().String())
	assert.False(t, got.Value().Match("a1"))
	assert.False(t, got.Value().Match("12"))
}

func TestStringSpaceLiteral(t *testing.T) {
	lit := StringIn(NewRegexSpace(mustClause(t, `abc`, false, false)))

	assert.True(t, MergeString(lit, StringShorterThan(3)).IsContradictory(), "the only string is three runes long")
	assert.False(t, MergeString(lit, StringShorterThan(4)).IsContradictory())

	noB := StringIn(NewRegexSpace(mustClause(t, `b`, true, true)))
	assert.True(t, MergeString(lit, noB).IsContradictory(), "abc contains b")
}

func TestRegexSpaceIsCanonical(t *testing.T) {
	c1 := mustClause(t, `x`, false, false)
	c2 := mustClause(t, `a`, true, true)

	left := NewRegexSpace(c1).Intersect(NewRegexSpace(c2, c1))
	right := NewRegexSpace(c2).Intersect(NewRegexSpace(c1))
	assert.Equal(t, left.String(), right.String())
	assert.Len(t, left.(*RegexSpace).Clauses(), 2, "duplicates collapse")
}
