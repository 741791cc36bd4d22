package constraint

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/roach88/profilegen/internal/ir"
)

// Predicate is a sealed interface for the test an Atomic applies to its field.
type Predicate interface {
	predicate() // Sealed

	// Name is the profile keyword for the predicate (equalTo, inSet, ...).
	Name() string

	// Describe renders the predicate's operand for diagnostics.
	Describe() string
}

// Predicate keywords as they appear in profile documents.
const (
	NameEqualTo            = "equalTo"
	NameInSet              = "inSet"
	NameNull               = "null"
	NameOfType             = "ofType"
	NameGreaterThan        = "greaterThan"
	NameGreaterThanOrEqual = "greaterThanOrEqualTo"
	NameLessThan           = "lessThan"
	NameLessThanOrEqual    = "lessThanOrEqualTo"
	NameGranularTo         = "granularTo"
	NameAfter              = "after"
	NameAfterOrAt          = "afterOrAt"
	NameBefore             = "before"
	NameBeforeOrAt         = "beforeOrAt"
	NameMatchingRegex      = "matchingRegex"
	NameContainingRegex    = "containingRegex"
	NameOfLength           = "ofLength"
	NameShorterThan        = "shorterThan"
	NameLongerThan         = "longerThan"
)

// EqualTo holds when the field equals Value.
type EqualTo struct{ Value ir.Value }

// InSet holds when the field is one of Values.
type InSet struct{ Values []ir.Value }

// IsNull holds when the field has no value.
type IsNull struct{}

// OfType holds when the field value has base type Type.
type OfType struct{ Type ir.DataType }

// GreaterThan holds for numeric values above Limit (or equal when OrEqual).
type GreaterThan struct {
	Limit   ir.Decimal
	OrEqual bool
}

// LessThan holds for numeric values below Limit (or equal when OrEqual).
type LessThan struct {
	Limit   ir.Decimal
	OrEqual bool
}

// GranularTo holds for numeric values with at most Scale decimal places.
type GranularTo struct{ Scale int32 }

// After holds for datetimes later than Limit (or equal when OrEqual).
type After struct {
	Limit   ir.DateTime
	OrEqual bool
}

// Before holds for datetimes earlier than Limit (or equal when OrEqual).
type Before struct {
	Limit   ir.DateTime
	OrEqual bool
}

// MatchesRegex holds for strings fully matched by Pattern.
type MatchesRegex struct{ Pattern string }

// ContainsRegex holds for strings containing a match of Pattern.
type ContainsRegex struct{ Pattern string }

// OfLength holds for strings of exactly Length characters.
type OfLength struct{ Length int }

// ShorterThan holds for strings with fewer than Length characters.
type ShorterThan struct{ Length int }

// LongerThan holds for strings with more than Length characters.
type LongerThan struct{ Length int }

func (EqualTo) predicate()       {}
func (InSet) predicate()         {}
func (IsNull) predicate()        {}
func (OfType) predicate()        {}
func (GreaterThan) predicate()   {}
func (LessThan) predicate()      {}
func (GranularTo) predicate()    {}
func (After) predicate()         {}
func (Before) predicate()        {}
func (MatchesRegex) predicate()  {}
func (ContainsRegex) predicate() {}
func (OfLength) predicate()      {}
func (ShorterThan) predicate()   {}
func (LongerThan) predicate()    {}

func (EqualTo) Name() string { return NameEqualTo }
func (InSet) Name() string   { return NameInSet }
func (IsNull) Name() string  { return NameNull }
func (OfType) Name() string  { return NameOfType }

func (p GreaterThan) Name() string {
	if p.OrEqual {
		return NameGreaterThanOrEqual
	}
	return NameGreaterThan
}

func (p LessThan) Name() string {
	if p.OrEqual {
		return NameLessThanOrEqual
	}
	return NameLessThan
}

func (GranularTo) Name() string { return NameGranularTo }

func (p After) Name() string {
	if p.OrEqual {
		return NameAfterOrAt
	}
	return NameAfter
}

func (p Before) Name() string {
	if p.OrEqual {
		return NameBeforeOrAt
	}
	return NameBefore
}

func (MatchesRegex) Name() string  { return NameMatchingRegex }
func (ContainsRegex) Name() string { return NameContainingRegex }
func (OfLength) Name() string      { return NameOfLength }
func (ShorterThan) Name() string   { return NameShorterThan }
func (LongerThan) Name() string    { return NameLongerThan }

func (p EqualTo) Describe() string { return p.Value.String() }

func (p InSet) Describe() string {
	parts := make([]string, len(p.Values))
	for i, v := range p.Values {
		parts[i] = v.String()
	}
	slices.Sort(parts)
	return "[" + strings.Join(parts, ", ") + "]"
}

func (IsNull) Describe() string          { return "" }
func (p OfType) Describe() string        { return string(p.Type) }
func (p GreaterThan) Describe() string   { return p.Limit.String() }
func (p LessThan) Describe() string      { return p.Limit.String() }
func (p GranularTo) Describe() string    { return ScaleToGranularity(p.Scale).String() }
func (p After) Describe() string         { return p.Limit.String() }
func (p Before) Describe() string        { return p.Limit.String() }
func (p MatchesRegex) Describe() string  { return "/" + p.Pattern + "/" }
func (p ContainsRegex) Describe() string { return "/" + p.Pattern + "/" }
func (p OfLength) Describe() string      { return fmt.Sprint(p.Length) }
func (p ShorterThan) Describe() string   { return fmt.Sprint(p.Length) }
func (p LongerThan) Describe() string    { return fmt.Sprint(p.Length) }

// GranularityToScale converts a granularity such as 0.01 to a scale (2).
// The granularity must be a positive power of ten no greater than 1.
func GranularityToScale(g ir.Decimal) (int32, error) {
	raw := g.Apd()
	raw.Reduce(raw)
	if raw.Negative || raw.IsZero() || !raw.Coeff.IsInt64() || raw.Coeff.Int64() != 1 || raw.Exponent > 0 {
		return 0, fmt.Errorf("granularity %s must be a power of ten no greater than 1", g)
	}
	return -raw.Exponent, nil
}

// ScaleToGranularity is the inverse of GranularityToScale.
func ScaleToGranularity(scale int32) ir.Decimal {
	raw := ir.DecimalFromInt(1).Apd()
	raw.Exponent = -scale
	return ir.DecimalFromApd(raw)
}

// CheckPredicate reports operand problems that make a predicate unusable:
// regexes that do not compile and negative lengths.
func CheckPredicate(p Predicate) error {
	switch pred := p.(type) {
	case MatchesRegex:
		if _, err := regexp.Compile(pred.Pattern); err != nil {
			return fmt.Errorf("invalid regex %q: %w", pred.Pattern, err)
		}
	case ContainsRegex:
		if _, err := regexp.Compile(pred.Pattern); err != nil {
			return fmt.Errorf("invalid regex %q: %w", pred.Pattern, err)
		}
	case OfLength:
		if pred.Length < 0 {
			return fmt.Errorf("length must not be negative, got %d", pred.Length)
		}
	case ShorterThan:
		if pred.Length < 0 {
			return fmt.Errorf("length must not be negative, got %d", pred.Length)
		}
	case LongerThan:
		if pred.Length < 0 {
			return fmt.Errorf("length must not be negative, got %d", pred.Length)
		}
	case GranularTo:
		if pred.Scale < 0 {
			return fmt.Errorf("granularity must be no greater than 1")
		}
	}
	return nil
}
