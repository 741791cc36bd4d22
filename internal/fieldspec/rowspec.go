package fieldspec

import (
	"maps"
	"strings"

	"github.com/roach88/profilegen/internal/ir"
	"github.com/roach88/profilegen/internal/restrictions"
)

// RowSpec is one contradiction-free assignment of a FieldSpec to every
// field of a schema. Fields without an entry are unrestricted.
type RowSpec struct {
	fields ir.ProfileFields
	specs  map[ir.Field]*FieldSpec
}

// NewRowSpec returns the unrestricted RowSpec over fields.
func NewRowSpec(fields ir.ProfileFields) RowSpec {
	return RowSpec{fields: fields, specs: map[ir.Field]*FieldSpec{}}
}

// Fields returns the schema in declaration order.
func (r RowSpec) Fields() ir.ProfileFields {
	return r.fields
}

// Get returns the spec for f, Empty if unrestricted.
func (r RowSpec) Get(f ir.Field) *FieldSpec {
	if spec, ok := r.specs[f]; ok {
		return spec
	}
	return Empty()
}

// With returns a copy of r with f's spec replaced.
func (r RowSpec) With(f ir.Field, spec *FieldSpec) RowSpec {
	specs := maps.Clone(r.specs)
	specs[f] = spec
	return RowSpec{fields: r.fields, specs: specs}
}

// Merge folds specs into r field by field. Any field-level contradiction
// makes the whole merge contradictory.
func (r RowSpec) Merge(specs map[ir.Field]*FieldSpec) restrictions.Merged[RowSpec] {
	if len(specs) == 0 {
		return restrictions.Ok(r)
	}
	out := maps.Clone(r.specs)
	for f, spec := range specs {
		merged := Merge(r.Get(f), spec)
		if merged.IsContradictory() {
			return restrictions.Contradictory[RowSpec]()
		}
		out[f] = merged.Value()
	}
	return restrictions.Ok(RowSpec{fields: r.fields, specs: out})
}

// Join combines RowSpecs over disjoint field sets into one RowSpec over
// schema. Specs for the same field are merged.
func Join(schema ir.ProfileFields, parts ...RowSpec) restrictions.Merged[RowSpec] {
	acc := NewRowSpec(schema)
	for _, p := range parts {
		m := acc.Merge(p.specs)
		if m.IsContradictory() {
			return m
		}
		acc = m.Value()
	}
	return restrictions.Ok(acc)
}

// Restricted returns the fields that carry a non-empty spec, in schema order.
func (r RowSpec) Restricted() ir.ProfileFields {
	return r.fields.Subset(func(f ir.Field) bool { return !r.Get(f).IsEmpty() })
}

// Equal compares field specs structurally over the union of both schemas.
func (r RowSpec) Equal(o RowSpec) bool {
	for f := range r.specs {
		if !r.Get(f).Equal(o.Get(f)) {
			return false
		}
	}
	for f := range o.specs {
		if !r.Get(f).Equal(o.Get(f)) {
			return false
		}
	}
	return true
}

// String renders "{country=in[US] notNull, city=any}" in schema order.
// Equal RowSpecs over the same schema render identically.
func (r RowSpec) String() string {
	parts := make([]string, len(r.fields))
	for i, f := range r.fields {
		parts[i] = f.Name + "=" + r.Get(f).String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Describe is the canonical map form used for hashing and persistence.
func (r RowSpec) Describe() map[string]any {
	out := make(map[string]any, len(r.fields))
	for _, f := range r.fields {
		spec := r.Get(f)
		out[f.Name] = map[string]any{
			"restrictions": spec.String(),
			"rules":        spec.RuleDescriptions(),
		}
	}
	return out
}
