package fieldspec

import (
	"fmt"

	"github.com/roach88/profilegen/internal/constraint"
	"github.com/roach88/profilegen/internal/ir"
)

// Satisfies reports whether row meets f. A field missing from row is null.
//
// An atomic holds exactly when the FieldSpec it compiles to permits the
// field's value, so rows drawn from a RowSpec satisfy the formulas the
// RowSpec was built from.
func Satisfies(f constraint.Formula, row ir.Row) (bool, error) {
	switch v := f.(type) {
	case *constraint.Atomic:
		merged, err := FromAtomic(v)
		if err != nil {
			return false, err
		}
		spec, ok := merged.Get()
		if !ok {
			return false, nil
		}
		value, present := row[v.Field.Name]
		if !present || value == nil {
			value = ir.Null{}
		}
		return spec.Permits(value), nil

	case constraint.And:
		for _, c := range v.Children {
			ok, err := Satisfies(c, row)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil

	case constraint.Or:
		for _, c := range v.Children {
			ok, err := Satisfies(c, row)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil

	case constraint.Not:
		return Satisfies(v.Child.Negate(), row)

	case constraint.Conditional:
		return Satisfies(v.Expand(), row)

	default:
		return false, fmt.Errorf("unsupported constraint: %T", f)
	}
}

// SatisfiesAll reports whether row meets every formula.
func SatisfiesAll(formulas []constraint.Formula, row ir.Row) (bool, error) {
	return Satisfies(constraint.And{Children: formulas}, row)
}
