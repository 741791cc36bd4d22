package restrictions

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/profilegen/internal/ir"
)

// DefaultNumericScale is the granularity of an unconstrained numeric field:
// twenty decimal places.
const DefaultNumericScale int32 = 20

// NumericLimit is one end of a numeric interval.
type NumericLimit struct {
	Limit     ir.Decimal
	Inclusive bool
}

// NumericRestrictions is an interval of decimals at a granularity of
// 10^-Scale. A nil Min or Max leaves that side unbounded.
type NumericRestrictions struct {
	Min   *NumericLimit
	Max   *NumericLimit
	Scale int32
}

// NewNumericRestrictions returns an unbounded restriction at the default scale.
func NewNumericRestrictions() *NumericRestrictions {
	return &NumericRestrictions{Scale: DefaultNumericScale}
}

// NumericAbove restricts values to be greater than limit (or equal when inclusive).
func NumericAbove(limit ir.Decimal, inclusive bool) *NumericRestrictions {
	return &NumericRestrictions{Min: &NumericLimit{Limit: limit, Inclusive: inclusive}, Scale: DefaultNumericScale}
}

// NumericBelow restricts values to be less than limit (or equal when inclusive).
func NumericBelow(limit ir.Decimal, inclusive bool) *NumericRestrictions {
	return &NumericRestrictions{Max: &NumericLimit{Limit: limit, Inclusive: inclusive}, Scale: DefaultNumericScale}
}

// NumericGranularTo restricts values to at most scale decimal places.
func NumericGranularTo(scale int32) *NumericRestrictions {
	return &NumericRestrictions{Scale: scale}
}

// MergeNumeric intersects two numeric restrictions. The result is
// contradictory when no value at the merged scale lies in the merged interval.
func MergeNumeric(a, b *NumericRestrictions) Merged[*NumericRestrictions] {
	if a == nil {
		return Ok(b)
	}
	if b == nil {
		return Ok(a)
	}
	merged := &NumericRestrictions{
		Min:   tighterNumericMin(a.Min, b.Min),
		Max:   tighterNumericMax(a.Max, b.Max),
		Scale: min(a.Scale, b.Scale),
	}
	if !merged.Satisfiable() {
		return Contradictory[*NumericRestrictions]()
	}
	if merged.Equal(a) {
		return Ok(a)
	}
	if merged.Equal(b) {
		return Ok(b)
	}
	return Ok(merged)
}

func tighterNumericMin(a, b *NumericLimit) *NumericLimit {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	switch c := a.Limit.Cmp(b.Limit); {
	case c > 0:
		return a
	case c < 0:
		return b
	case a.Inclusive && !b.Inclusive:
		return b
	default:
		return a
	}
}

func tighterNumericMax(a, b *NumericLimit) *NumericLimit {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	switch c := a.Limit.Cmp(b.Limit); {
	case c < 0:
		return a
	case c > 0:
		return b
	case a.Inclusive && !b.Inclusive:
		return b
	default:
		return a
	}
}

// Step returns the granularity 10^-Scale.
func (n *NumericRestrictions) Step() ir.Decimal {
	return ir.DecimalFromApd(apd.New(1, -n.Scale))
}

// LowerBound returns the smallest admissible value, if the interval has a minimum.
func (n *NumericRestrictions) LowerBound() (ir.Decimal, bool) {
	if n.Min == nil {
		return ir.Decimal{}, false
	}
	limit := n.Min.Limit.Apd()
	lo := ceilToScale(limit, n.Scale)
	if !n.Min.Inclusive && lo.Cmp(limit) == 0 {
		step := apd.New(1, -n.Scale)
		ir.DecimalContext.Add(lo, lo, step)
	}
	return ir.DecimalFromApd(lo), true
}

// UpperBound returns the largest admissible value, if the interval has a maximum.
func (n *NumericRestrictions) UpperBound() (ir.Decimal, bool) {
	if n.Max == nil {
		return ir.Decimal{}, false
	}
	limit := n.Max.Limit.Apd()
	hi := floorToScale(limit, n.Scale)
	if !n.Max.Inclusive && hi.Cmp(limit) == 0 {
		step := apd.New(1, -n.Scale)
		ir.DecimalContext.Sub(hi, hi, step)
	}
	return ir.DecimalFromApd(hi), true
}

// Satisfiable reports whether at least one value at the scale lies in the interval.
func (n *NumericRestrictions) Satisfiable() bool {
	lo, hasLo := n.LowerBound()
	hi, hasHi := n.UpperBound()
	if !hasLo || !hasHi {
		return true
	}
	return lo.Cmp(hi) <= 0
}

// Match reports whether v is admissible.
func (n *NumericRestrictions) Match(v ir.Decimal) bool {
	if n.Min != nil {
		c := v.Cmp(n.Min.Limit)
		if c < 0 || (c == 0 && !n.Min.Inclusive) {
			return false
		}
	}
	if n.Max != nil {
		c := v.Cmp(n.Max.Limit)
		if c > 0 || (c == 0 && !n.Max.Inclusive) {
			return false
		}
	}
	raw := v.Apd()
	return ceilToScale(raw, n.Scale).Cmp(raw) == 0
}

// Equal compares structurally. Limits compare numerically.
func (n *NumericRestrictions) Equal(o *NumericRestrictions) bool {
	if n == nil || o == nil {
		return n == o
	}
	return n.Scale == o.Scale && numericLimitEqual(n.Min, o.Min) && numericLimitEqual(n.Max, o.Max)
}

func numericLimitEqual(a, b *NumericLimit) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Inclusive == b.Inclusive && a.Limit.Cmp(b.Limit) == 0
}

// String renders the interval, e.g. "(0, 5]" or "[1, +inf) granularTo 1".
func (n *NumericRestrictions) String() string {
	var b strings.Builder
	if n.Min == nil {
		b.WriteString("(-inf")
	} else {
		if n.Min.Inclusive {
			b.WriteByte('[')
		} else {
			b.WriteByte('(')
		}
		b.WriteString(n.Min.Limit.String())
	}
	b.WriteString(", ")
	if n.Max == nil {
		b.WriteString("+inf)")
	} else {
		b.WriteString(n.Max.Limit.String())
		if n.Max.Inclusive {
			b.WriteByte(']')
		} else {
			b.WriteByte(')')
		}
	}
	if n.Scale != DefaultNumericScale {
		b.WriteString(" granularTo ")
		if n.Scale == 0 {
			b.WriteString("1")
		} else {
			b.WriteString("1e-" + strconv.Itoa(int(n.Scale)))
		}
	}
	return b.String()
}

// ceilToScale rounds x up to a multiple of 10^-scale.
func ceilToScale(x *apd.Decimal, scale int32) *apd.Decimal {
	shifted := new(apd.Decimal).Set(x)
	shifted.Exponent += scale
	out := new(apd.Decimal)
	ir.DecimalContext.Ceil(out, shifted)
	out.Exponent -= scale
	return out
}

// floorToScale rounds x down to a multiple of 10^-scale.
func floorToScale(x *apd.Decimal, scale int32) *apd.Decimal {
	shifted := new(apd.Decimal).Set(x)
	shifted.Exponent += scale
	out := new(apd.Decimal)
	ir.DecimalContext.Floor(out, shifted)
	out.Exponent -= scale
	return out
}
