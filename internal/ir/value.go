package ir

import (
	"cmp"
	"fmt"
	"time"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/text/unicode/norm"
)

// Value is a sealed interface representing a concrete field value.
// Only Null, String, Decimal, and DateTime implement this.
// NO floats - numeric values are arbitrary-precision decimals.
type Value interface {
	irValue() // Sealed - only these types implement it

	// Hash is the stable identity of the value. Two values with the same
	// Hash are the same value for set membership.
	Hash() string

	String() string
}

// DecimalContext is the arithmetic context for all decimal operations.
// Precision 100 leaves headroom above the default numeric scale of 20.
var DecimalContext = apd.BaseContext.WithPrecision(100)

// Null is the absence of a value.
type Null struct{}

func (Null) irValue() {}

func (Null) Hash() string { return "null" }

func (Null) String() string { return "null" }

// String is a string value.
type String string

func (String) irValue() {}

// Hash is NFC normalized so that canonically equivalent strings are one value.
func (s String) Hash() string { return "s:" + norm.NFC.String(string(s)) }

func (s String) String() string { return string(s) }

// Decimal is an immutable arbitrary-precision numeric value.
// The zero Decimal is 0.
type Decimal struct {
	d *apd.Decimal
}

func (Decimal) irValue() {}

// NewDecimal parses a decimal literal such as "12", "-0.5" or "1e3".
func NewDecimal(s string) (Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	if d.Form != apd.Finite {
		return Decimal{}, fmt.Errorf("invalid decimal %q: must be finite", s)
	}
	return Decimal{d: d}, nil
}

// MustDecimal is like NewDecimal but panics on error.
// Use only in tests or for literals known to be valid.
func MustDecimal(s string) Decimal {
	d, err := NewDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DecimalFromInt creates a Decimal from an integer.
func DecimalFromInt(n int64) Decimal {
	return Decimal{d: apd.New(n, 0)}
}

// DecimalFromApd wraps a copy of d.
func DecimalFromApd(d *apd.Decimal) Decimal {
	var c apd.Decimal
	c.Set(d)
	return Decimal{d: &c}
}

// Apd returns a copy of the underlying decimal.
func (d Decimal) Apd() *apd.Decimal {
	var c apd.Decimal
	if d.d != nil {
		c.Set(d.d)
	}
	return &c
}

func (d Decimal) ref() *apd.Decimal {
	if d.d == nil {
		return apd.New(0, 0)
	}
	return d.d
}

// Cmp compares two decimals numerically, ignoring trailing zeros.
func (d Decimal) Cmp(o Decimal) int {
	return d.ref().Cmp(o.ref())
}

// Hash uses the reduced form so 1.50 and 1.5 are the same value.
func (d Decimal) Hash() string { return "n:" + d.String() }

func (d Decimal) String() string {
	var r apd.Decimal
	r.Reduce(d.ref())
	return r.Text('f')
}

// DateTime is an instant, always held in UTC.
type DateTime struct {
	t time.Time
}

func (DateTime) irValue() {}

// NewDateTime creates a DateTime normalized to UTC.
func NewDateTime(t time.Time) DateTime {
	return DateTime{t: t.UTC()}
}

// ParseDateTime parses an RFC 3339 timestamp. A bare date (2006-01-02)
// is accepted as midnight UTC.
func ParseDateTime(s string) (DateTime, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return NewDateTime(t), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return DateTime{}, fmt.Errorf("invalid datetime %q: must be RFC 3339", s)
	}
	return NewDateTime(t), nil
}

// MustDateTime is like ParseDateTime but panics on error.
func MustDateTime(s string) DateTime {
	dt, err := ParseDateTime(s)
	if err != nil {
		panic(err)
	}
	return dt
}

// Time returns the instant.
func (d DateTime) Time() time.Time { return d.t }

// Cmp compares two instants.
func (d DateTime) Cmp(o DateTime) int {
	return d.t.Compare(o.t)
}

func (d DateTime) Hash() string { return "t:" + d.String() }

func (d DateTime) String() string { return d.t.Format(time.RFC3339Nano) }

// TypeOf returns the base type of v. Null has no base type.
func TypeOf(v Value) (DataType, bool) {
	switch v.(type) {
	case Decimal:
		return TypeNumeric, true
	case String:
		return TypeString, true
	case DateTime:
		return TypeDateTime, true
	default:
		return "", false
	}
}

// kindRank orders values of different kinds: null, numeric, string, datetime.
func kindRank(v Value) int {
	switch v.(type) {
	case Null:
		return 0
	case Decimal:
		return 1
	case String:
		return 2
	case DateTime:
		return 3
	default:
		return 4
	}
}

// CompareValues is a total order over values used for deterministic output.
// Values of different kinds order by kind; within a kind they order naturally.
func CompareValues(a, b Value) int {
	if c := cmp.Compare(kindRank(a), kindRank(b)); c != 0 {
		return c
	}
	switch av := a.(type) {
	case Decimal:
		return av.Cmp(b.(Decimal))
	case String:
		return cmp.Compare(string(av), string(b.(String)))
	case DateTime:
		return av.Cmp(b.(DateTime))
	default:
		return 0
	}
}

// ValueFromAny converts a decoded document value into a Value.
// Strings stay strings, integers and decimal strings inside numeric
// contexts are handled by callers; this only maps Go kinds.
func ValueFromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case int:
		return DecimalFromInt(int64(val)), nil
	case int64:
		return DecimalFromInt(val), nil
	case uint64:
		return NewDecimal(fmt.Sprintf("%d", val))
	case float64:
		// Documents decode unquoted numbers as float64; keep the shortest
		// exact decimal text rather than a binary approximation.
		return NewDecimal(fmt.Sprintf("%v", val))
	case time.Time:
		return NewDateTime(val), nil
	case map[string]any:
		if s, ok := val["date"].(string); ok && len(val) == 1 {
			return ParseDateTime(s)
		}
		return nil, fmt.Errorf("unsupported object value %v: only {date: ...} is allowed", val)
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}
