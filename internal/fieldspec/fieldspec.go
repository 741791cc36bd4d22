// Package fieldspec bundles per-field restrictions into FieldSpecs and
// reduces atomic constraints into them.
//
// A FieldSpec holds at most one restriction of each kind. Restrictions of a
// kind apply to non-null values of that kind only: a numeric bound says
// nothing about strings, and null satisfies everything but a MustNotBeNull.
// Merging two FieldSpecs merges kind by kind and then filters any whitelist
// against the merged type and value restrictions.
package fieldspec

import (
	"slices"
	"strings"

	"github.com/roach88/profilegen/internal/constraint"
	"github.com/roach88/profilegen/internal/ir"
	"github.com/roach88/profilegen/internal/restrictions"
)

// FieldSpec is the accumulated restriction state for one field. Nil
// restrictions are absent. FieldSpecs are immutable.
type FieldSpec struct {
	Set      *restrictions.SetRestrictions
	Types    *restrictions.TypeRestrictions
	Numeric  *restrictions.NumericRestrictions
	Strings  *restrictions.StringRestrictions
	DateTime *restrictions.DateTimeRestrictions
	Null     *restrictions.NullRestrictions

	// Rules is the sorted provenance of the constraints merged into the spec.
	Rules []constraint.RuleInformation
}

var empty = &FieldSpec{}

// Empty returns the FieldSpec that permits any value of any type.
func Empty() *FieldSpec {
	return empty
}

// IsEmpty reports whether no restriction is present.
func (f *FieldSpec) IsEmpty() bool {
	return f.Set == nil && f.Types == nil && f.Numeric == nil &&
		f.Strings == nil && f.DateTime == nil && f.Null == nil
}

// Merge combines two FieldSpecs for the same field. Merging with an empty
// spec returns the other operand.
func Merge(a, b *FieldSpec) restrictions.Merged[*FieldSpec] {
	if a.IsEmpty() && len(a.Rules) == 0 {
		return restrictions.Ok(b)
	}
	if b.IsEmpty() && len(b.Rules) == 0 {
		return restrictions.Ok(a)
	}

	null := restrictions.MergeNull(a.Null, b.Null)
	if null.IsContradictory() {
		return restrictions.Contradictory[*FieldSpec]()
	}
	types := restrictions.MergeType(a.Types, b.Types)
	if types.IsContradictory() {
		return restrictions.Contradictory[*FieldSpec]()
	}
	// Set merges never contradict; normalize settles an empty whitelist.
	set := restrictions.MergeSet(a.Set, b.Set).Value()
	numeric := restrictions.MergeNumeric(a.Numeric, b.Numeric)
	if numeric.IsContradictory() {
		return restrictions.Contradictory[*FieldSpec]()
	}
	str := restrictions.MergeString(a.Strings, b.Strings)
	if str.IsContradictory() {
		return restrictions.Contradictory[*FieldSpec]()
	}
	dt := restrictions.MergeDateTime(a.DateTime, b.DateTime)
	if dt.IsContradictory() {
		return restrictions.Contradictory[*FieldSpec]()
	}

	return normalize(&FieldSpec{
		Set:      set,
		Types:    types.Value(),
		Numeric:  numeric.Value(),
		Strings:  str.Value(),
		DateTime: dt.Value(),
		Null:     null.Value(),
		Rules:    mergeRules(a.Rules, b.Rules),
	})
}

// normalize filters the whitelist against the other restrictions. An empty
// whitelist leaves null as the only candidate: the spec is contradictory if
// the field must not be null, and must be null otherwise.
func normalize(f *FieldSpec) restrictions.Merged[*FieldSpec] {
	if f.Set == nil || !f.Set.HasWhitelist() {
		return restrictions.Ok(f)
	}
	filtered := f.Set.Filter(f.permitsKind)
	null := f.Null
	if filtered.IsEmptyWhitelist() {
		if f.MustNotBeNull() {
			return restrictions.Contradictory[*FieldSpec]()
		}
		null = restrictions.Null(restrictions.MustBeNull)
	}
	if filtered == f.Set && null == f.Null {
		return restrictions.Ok(f)
	}
	c := *f
	c.Set = filtered
	c.Null = null
	return restrictions.Ok(&c)
}

// permitsKind checks v against the type restriction and the restriction of
// v's own kind.
func (f *FieldSpec) permitsKind(v ir.Value) bool {
	dt, ok := ir.TypeOf(v)
	if !ok {
		return false
	}
	if !f.Types.Allows(dt) {
		return false
	}
	switch val := v.(type) {
	case ir.Decimal:
		return f.Numeric == nil || f.Numeric.Match(val)
	case ir.String:
		return f.Strings == nil || f.Strings.Match(string(val))
	case ir.DateTime:
		return f.DateTime == nil || f.DateTime.Match(val)
	}
	return true
}

// Permits reports whether v satisfies every restriction.
func (f *FieldSpec) Permits(v ir.Value) bool {
	if _, isNull := v.(ir.Null); isNull {
		return !f.MustNotBeNull()
	}
	if f.MustBeNull() {
		return false
	}
	if f.Set != nil && !f.Set.Permits(v) {
		return false
	}
	return f.permitsKind(v)
}

// MustBeNull reports whether null is the only admissible value.
func (f *FieldSpec) MustBeNull() bool {
	return f.Null != nil && f.Null.Nullness == restrictions.MustBeNull
}

// MustNotBeNull reports whether null is excluded.
func (f *FieldSpec) MustNotBeNull() bool {
	return f.Null != nil && f.Null.Nullness == restrictions.MustNotBeNull
}

// Equal compares restrictions structurally. Provenance is ignored.
func (f *FieldSpec) Equal(o *FieldSpec) bool {
	if f == o {
		return true
	}
	return f.Set.Equal(o.Set) && f.Types.Equal(o.Types) && f.Numeric.Equal(o.Numeric) &&
		f.Strings.Equal(o.Strings) && f.DateTime.Equal(o.DateTime) && f.Null.Equal(o.Null)
}

// String renders the restrictions in a fixed order; equal specs render the
// same, so it doubles as a canonical key.
func (f *FieldSpec) String() string {
	var parts []string
	if f.Null != nil {
		parts = append(parts, f.Null.String())
	}
	if f.Types != nil {
		parts = append(parts, f.Types.String())
	}
	if f.Set != nil {
		parts = append(parts, f.Set.String())
	}
	if f.Numeric != nil {
		parts = append(parts, "numeric"+f.Numeric.String())
	}
	if f.Strings != nil {
		parts = append(parts, "string "+f.Strings.String())
	}
	if f.DateTime != nil {
		parts = append(parts, "datetime"+f.DateTime.String())
	}
	if len(parts) == 0 {
		return "any"
	}
	return strings.Join(parts, " ")
}

// RuleDescriptions returns the provenance descriptions.
func (f *FieldSpec) RuleDescriptions() []string {
	out := make([]string, len(f.Rules))
	for i, r := range f.Rules {
		out[i] = r.Description
	}
	return out
}

// WithRules returns a copy of f carrying additional provenance.
func (f *FieldSpec) WithRules(rules ...constraint.RuleInformation) *FieldSpec {
	c := *f
	c.Rules = mergeRules(f.Rules, rules)
	return &c
}

func mergeRules(a, b []constraint.RuleInformation) []constraint.RuleInformation {
	if len(b) == 0 {
		return a
	}
	if len(a) == 0 {
		return sortRules(b)
	}
	return sortRules(append(slices.Clone(a), b...))
}

func sortRules(rules []constraint.RuleInformation) []constraint.RuleInformation {
	out := slices.Clone(rules)
	slices.SortFunc(out, func(x, y constraint.RuleInformation) int { return strings.Compare(x.Description, y.Description) })
	return slices.Compact(out)
}
