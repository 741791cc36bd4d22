package fieldspec

import (
	"fmt"

	"github.com/roach88/profilegen/internal/constraint"
	"github.com/roach88/profilegen/internal/ir"
	"github.com/roach88/profilegen/internal/restrictions"
)

// FromAtomic reduces an atomic constraint to a single-field FieldSpec.
// The result is contradictory when the atomic alone admits no value, such
// as membership of the empty set. An error means the predicate operand is
// malformed.
func FromAtomic(a *constraint.Atomic) (restrictions.Merged[*FieldSpec], error) {
	spec, err := specFor(a.Predicate, a.Negated)
	if err != nil {
		return restrictions.Merged[*FieldSpec]{}, fmt.Errorf("%s: %w", a, err)
	}
	spec.Rules = sortRules(a.Rules)
	if !satisfiable(spec) {
		return restrictions.Contradictory[*FieldSpec](), nil
	}
	return normalize(spec), nil
}

func satisfiable(f *FieldSpec) bool {
	if f.Numeric != nil && !f.Numeric.Satisfiable() {
		return false
	}
	if f.Strings != nil && !f.Strings.Satisfiable() {
		return false
	}
	if f.DateTime != nil && !f.DateTime.Satisfiable() {
		return false
	}
	return true
}

func specFor(p constraint.Predicate, negated bool) (*FieldSpec, error) {
	switch pred := p.(type) {
	case constraint.EqualTo:
		return membership([]ir.Value{pred.Value}, negated), nil

	case constraint.InSet:
		return membership(pred.Values, negated), nil

	case constraint.IsNull:
		if negated {
			return &FieldSpec{Null: restrictions.Null(restrictions.MustNotBeNull)}, nil
		}
		return &FieldSpec{Null: restrictions.Null(restrictions.MustBeNull)}, nil

	case constraint.OfType:
		if negated {
			return &FieldSpec{Types: restrictions.ExceptType(pred.Type)}, nil
		}
		return &FieldSpec{Types: restrictions.OnlyTypes(pred.Type)}, nil

	case constraint.GreaterThan:
		if negated {
			return &FieldSpec{Numeric: restrictions.NumericBelow(pred.Limit, !pred.OrEqual)}, nil
		}
		return &FieldSpec{Numeric: restrictions.NumericAbove(pred.Limit, pred.OrEqual)}, nil

	case constraint.LessThan:
		if negated {
			return &FieldSpec{Numeric: restrictions.NumericAbove(pred.Limit, !pred.OrEqual)}, nil
		}
		return &FieldSpec{Numeric: restrictions.NumericBelow(pred.Limit, pred.OrEqual)}, nil

	case constraint.GranularTo:
		// Intervals cannot express "finer than"; the negation is unrestricted.
		if negated {
			return &FieldSpec{}, nil
		}
		return &FieldSpec{Numeric: restrictions.NumericGranularTo(pred.Scale)}, nil

	case constraint.After:
		if negated {
			return &FieldSpec{DateTime: restrictions.DateTimeBefore(pred.Limit, !pred.OrEqual)}, nil
		}
		return &FieldSpec{DateTime: restrictions.DateTimeAfter(pred.Limit, pred.OrEqual)}, nil

	case constraint.Before:
		if negated {
			return &FieldSpec{DateTime: restrictions.DateTimeAfter(pred.Limit, !pred.OrEqual)}, nil
		}
		return &FieldSpec{DateTime: restrictions.DateTimeBefore(pred.Limit, pred.OrEqual)}, nil

	case constraint.MatchesRegex:
		return regexSpec(pred.Pattern, false, negated)

	case constraint.ContainsRegex:
		return regexSpec(pred.Pattern, true, negated)

	case constraint.OfLength:
		if negated {
			return &FieldSpec{Strings: restrictions.StringNotOfLength(pred.Length)}, nil
		}
		return &FieldSpec{Strings: restrictions.StringLength(pred.Length, pred.Length)}, nil

	case constraint.ShorterThan:
		if negated {
			return &FieldSpec{Strings: restrictions.StringLength(pred.Length, -1)}, nil
		}
		return &FieldSpec{Strings: restrictions.StringShorterThan(pred.Length)}, nil

	case constraint.LongerThan:
		if negated {
			return &FieldSpec{Strings: restrictions.StringLength(0, pred.Length)}, nil
		}
		return &FieldSpec{Strings: restrictions.StringLength(pred.Length+1, -1)}, nil

	default:
		return nil, fmt.Errorf("unsupported predicate %T", p)
	}
}

// membership maps equalTo and inSet. Null members control nullness rather
// than appearing in the whitelist.
func membership(values []ir.Value, negated bool) *FieldSpec {
	var nonNull []ir.Value
	hasNull := false
	for _, v := range values {
		if _, ok := v.(ir.Null); ok {
			hasNull = true
			continue
		}
		nonNull = append(nonNull, v)
	}

	if negated {
		spec := &FieldSpec{}
		if len(nonNull) > 0 {
			spec.Set = restrictions.Blacklist(nonNull...)
		}
		if hasNull {
			spec.Null = restrictions.Null(restrictions.MustNotBeNull)
		}
		return spec
	}

	spec := &FieldSpec{Set: restrictions.Whitelist(nonNull...)}
	switch {
	case hasNull && len(nonNull) == 0:
		spec.Null = restrictions.Null(restrictions.MustBeNull)
	case !hasNull:
		spec.Null = restrictions.Null(restrictions.MustNotBeNull)
	}
	return spec
}

func regexSpec(pattern string, contains, negated bool) (*FieldSpec, error) {
	clause, err := restrictions.NewRegexClause(pattern, contains, negated)
	if err != nil {
		return nil, err
	}
	return &FieldSpec{Strings: restrictions.StringIn(restrictions.NewRegexSpace(clause))}, nil
}

// ForValue is the spec asserting field = v, used when a walker fixes a value.
func ForValue(v ir.Value) *FieldSpec {
	return membership([]ir.Value{v}, false)
}
