// Package testutil provides shared builders for profilegen tests.
package testutil

import (
	"fmt"

	"github.com/roach88/profilegen/internal/constraint"
	"github.com/roach88/profilegen/internal/ir"
)

// V converts a Go literal into a Value: ints become decimals, strings stay
// strings and nil is null.
func V(x any) ir.Value {
	switch v := x.(type) {
	case int:
		return ir.DecimalFromInt(int64(v))
	case ir.Value:
		return v
	default:
		val, err := ir.ValueFromAny(x)
		if err != nil {
			panic(err)
		}
		return val
	}
}

// Num parses a decimal literal.
func Num(s string) ir.Decimal {
	return ir.MustDecimal(s)
}

// Eq is "field equalTo v".
func Eq(field string, v any) *constraint.Atomic {
	return constraint.NewAtomic(ir.NewField(field), constraint.EqualTo{Value: V(v)})
}

// In is "field inSet vs".
func In(field string, vs ...any) *constraint.Atomic {
	values := make([]ir.Value, len(vs))
	for i, v := range vs {
		values[i] = V(v)
	}
	return constraint.NewAtomic(ir.NewField(field), constraint.InSet{Values: values})
}

// IsNull is "field null".
func IsNull(field string) *constraint.Atomic {
	return constraint.NewAtomic(ir.NewField(field), constraint.IsNull{})
}

// OfType is "field ofType t".
func OfType(field string, t ir.DataType) *constraint.Atomic {
	return constraint.NewAtomic(ir.NewField(field), constraint.OfType{Type: t})
}

// GT is "field greaterThan limit".
func GT(field, limit string) *constraint.Atomic {
	return constraint.NewAtomic(ir.NewField(field), constraint.GreaterThan{Limit: Num(limit)})
}

// LT is "field lessThan limit".
func LT(field, limit string) *constraint.Atomic {
	return constraint.NewAtomic(ir.NewField(field), constraint.LessThan{Limit: Num(limit)})
}

// Granular is "field granularTo 10^-scale".
func Granular(field string, scale int32) *constraint.Atomic {
	return constraint.NewAtomic(ir.NewField(field), constraint.GranularTo{Scale: scale})
}

// Matching is "field matchingRegex pattern".
func Matching(field, pattern string) *constraint.Atomic {
	return constraint.NewAtomic(ir.NewField(field), constraint.MatchesRegex{Pattern: pattern})
}

// Longer is "field longerThan n".
func Longer(field string, n int) *constraint.Atomic {
	return constraint.NewAtomic(ir.NewField(field), constraint.LongerThan{Length: n})
}

// And conjoins formulas.
func And(fs ...constraint.Formula) constraint.Formula {
	return constraint.And{Children: fs}
}

// Or disjoins formulas.
func Or(fs ...constraint.Formula) constraint.Formula {
	return constraint.Or{Children: fs}
}

// Not negates f.
func Not(f constraint.Formula) constraint.Formula {
	return constraint.NewNot(f)
}

// If is "if c then t".
func If(c, t constraint.Formula) constraint.Formula {
	return constraint.Conditional{Condition: c, Then: t}
}

// IfElse is "if c then t else e".
func IfElse(c, t, e constraint.Formula) constraint.Formula {
	return constraint.Conditional{Condition: c, Then: t, Else: e}
}

// Rule builds a rule whose atomics all carry the rule's description as
// provenance.
func Rule(desc string, fs ...constraint.Formula) constraint.Rule {
	info := constraint.RuleInformation{Description: desc}
	out := make([]constraint.Formula, len(fs))
	for i, f := range fs {
		out[i] = Tag(f, info)
	}
	return constraint.Rule{Info: info, Constraints: out}
}

// Tag rebuilds f with info added to every atomic's provenance.
func Tag(f constraint.Formula, info constraint.RuleInformation) constraint.Formula {
	switch v := f.(type) {
	case *constraint.Atomic:
		rules := append(append([]constraint.RuleInformation{}, v.Rules...), info)
		a := constraint.NewAtomic(v.Field, v.Predicate, rules...)
		if v.Negated {
			return a.Negate()
		}
		return a
	case constraint.And:
		return constraint.And{Children: tagAll(v.Children, info)}
	case constraint.Or:
		return constraint.Or{Children: tagAll(v.Children, info)}
	case constraint.Not:
		return constraint.Not{Child: Tag(v.Child, info)}
	case constraint.Conditional:
		c := constraint.Conditional{Condition: Tag(v.Condition, info), Then: Tag(v.Then, info)}
		if v.Else != nil {
			c.Else = Tag(v.Else, info)
		}
		return c
	default:
		panic(fmt.Sprintf("testutil: unknown formula %T", f))
	}
}

func tagAll(fs []constraint.Formula, info constraint.RuleInformation) []constraint.Formula {
	out := make([]constraint.Formula, len(fs))
	for i, f := range fs {
		out[i] = Tag(f, info)
	}
	return out
}

// Profile builds a profile over the named fields.
func Profile(fields []string, rules ...constraint.Rule) *constraint.Profile {
	return &constraint.Profile{
		Fields:     ir.NewProfileFields(fields...),
		Rules:      rules,
		Generators: map[ir.Field]string{},
	}
}

// CountryProfile is the country, currency and city profile used across
// package tests.
func CountryProfile() *constraint.Profile {
	return Profile([]string{"country", "currency", "city"},
		Rule("US cities", If(Eq("country", "US"), In("city", "NYC", "DC"))),
		Rule("US currency", If(Eq("country", "US"), Eq("currency", "USD"))),
		Rule("GB cities", If(Eq("country", "GB"), In("city", "Bristol", "London"))),
		Rule("GB currency", If(Eq("country", "GB"), Eq("currency", "GBP"))),
	)
}
