package restrictions

import (
	"time"

	"github.com/roach88/profilegen/internal/ir"
)

// DateTimeLimit is one end of a datetime interval.
type DateTimeLimit struct {
	Limit     ir.DateTime
	Inclusive bool
}

// DateTimeRestrictions is an interval of instants. A nil Min or Max leaves
// that side unbounded.
type DateTimeRestrictions struct {
	Min *DateTimeLimit
	Max *DateTimeLimit
}

// DateTimeAfter restricts values to be later than limit (or equal when inclusive).
func DateTimeAfter(limit ir.DateTime, inclusive bool) *DateTimeRestrictions {
	return &DateTimeRestrictions{Min: &DateTimeLimit{Limit: limit, Inclusive: inclusive}}
}

// DateTimeBefore restricts values to be earlier than limit (or equal when inclusive).
func DateTimeBefore(limit ir.DateTime, inclusive bool) *DateTimeRestrictions {
	return &DateTimeRestrictions{Max: &DateTimeLimit{Limit: limit, Inclusive: inclusive}}
}

// MergeDateTime intersects two datetime intervals.
func MergeDateTime(a, b *DateTimeRestrictions) Merged[*DateTimeRestrictions] {
	if a == nil {
		return Ok(b)
	}
	if b == nil {
		return Ok(a)
	}
	merged := &DateTimeRestrictions{
		Min: tighterDateTimeMin(a.Min, b.Min),
		Max: tighterDateTimeMax(a.Max, b.Max),
	}
	if !merged.Satisfiable() {
		return Contradictory[*DateTimeRestrictions]()
	}
	if merged.Equal(a) {
		return Ok(a)
	}
	if merged.Equal(b) {
		return Ok(b)
	}
	return Ok(merged)
}

func tighterDateTimeMin(a, b *DateTimeLimit) *DateTimeLimit {
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

func tighterDateTimeMax(a, b *DateTimeLimit) *DateTimeLimit {
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

// LowerBound returns the earliest admissible instant. Instants have
// nanosecond resolution.
func (d *DateTimeRestrictions) LowerBound() (ir.DateTime, bool) {
	if d.Min == nil {
		return ir.DateTime{}, false
	}
	if d.Min.Inclusive {
		return d.Min.Limit, true
	}
	return ir.NewDateTime(d.Min.Limit.Time().Add(time.Nanosecond)), true
}

// UpperBound returns the latest admissible instant.
func (d *DateTimeRestrictions) UpperBound() (ir.DateTime, bool) {
	if d.Max == nil {
		return ir.DateTime{}, false
	}
	if d.Max.Inclusive {
		return d.Max.Limit, true
	}
	return ir.NewDateTime(d.Max.Limit.Time().Add(-time.Nanosecond)), true
}

// Satisfiable reports whether any instant lies in the interval.
func (d *DateTimeRestrictions) Satisfiable() bool {
	lo, hasLo := d.LowerBound()
	hi, hasHi := d.UpperBound()
	if !hasLo || !hasHi {
		return true
	}
	return lo.Cmp(hi) <= 0
}

// Match reports whether v is admissible.
func (d *DateTimeRestrictions) Match(v ir.DateTime) bool {
	if d.Min != nil {
		c := v.Cmp(d.Min.Limit)
		if c < 0 || (c == 0 && !d.Min.Inclusive) {
			return false
		}
	}
	if d.Max != nil {
		c := v.Cmp(d.Max.Limit)
		if c > 0 || (c == 0 && !d.Max.Inclusive) {
			return false
		}
	}
	return true
}

func (d *DateTimeRestrictions) Equal(o *DateTimeRestrictions) bool {
	if d == nil || o == nil {
		return d == o
	}
	return dateTimeLimitEqual(d.Min, o.Min) && dateTimeLimitEqual(d.Max, o.Max)
}

func dateTimeLimitEqual(a, b *DateTimeLimit) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Inclusive == b.Inclusive && a.Limit.Cmp(b.Limit) == 0
}

func (d *DateTimeRestrictions) String() string {
	s := "(-inf"
	if d.Min != nil {
		s = "(" + d.Min.Limit.String()
		if d.Min.Inclusive {
			s = "[" + d.Min.Limit.String()
		}
	}
	s += ", "
	if d.Max == nil {
		return s + "+inf)"
	}
	if d.Max.Inclusive {
		return s + d.Max.Limit.String() + "]"
	}
	return s + d.Max.Limit.String() + ")"
}
