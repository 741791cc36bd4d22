package compiler

import (
	"fmt"

	"github.com/roach88/profilegen/internal/constraint"
	"github.com/roach88/profilegen/internal/ir"
)

// ValidationOption adjusts ValidateProfile.
type ValidationOption func(*validationConfig)

type validationConfig struct {
	requireTyping bool
}

// RequireTyping makes ValidateProfile report every field that no rule
// constrains with ofType (E106).
func RequireTyping() ValidationOption {
	return func(c *validationConfig) { c.requireTyping = true }
}

// ValidateProfile checks a compiled profile for structural problems.
// Returns all errors found (does not fail-fast). Satisfiability is checked
// separately by BuildTree.
func ValidateProfile(p *constraint.Profile, opts ...ValidationOption) []ValidationError {
	var cfg validationConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var errs []ValidationError

	// E101: at least one field required
	if len(p.Fields) == 0 {
		errs = append(errs, ValidationError{
			Field:   "fields",
			Message: "at least one field is required",
			Code:    ErrNoFields,
		})
	}

	// E102: duplicate field name
	seen := make(map[ir.Field]bool, len(p.Fields))
	for i, f := range p.Fields {
		if seen[f] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("fields[%d].name", i),
				Message: fmt.Sprintf("duplicate field name: %q", f.Name),
				Code:    ErrDuplicateField,
			})
		}
		seen[f] = true
	}

	typed := map[ir.Field]bool{}
	for i, rule := range p.Rules {
		path := fmt.Sprintf("rules[%d]", i)
		if len(rule.Constraints) == 0 {
			errs = append(errs, ValidationError{
				Field:   path + ".constraints",
				Message: fmt.Sprintf("rule %q has no constraints", rule.Info.Description),
				Code:    ErrEmptyCombinator,
			})
		}
		for j, f := range rule.Constraints {
			errs = append(errs, validateFormula(p, f, fmt.Sprintf("%s.constraints[%d]", path, j), typed)...)
		}
	}

	// E106: optional typing requirement
	if cfg.requireTyping {
		for i, f := range p.Fields {
			if !typed[f] {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("fields[%d]", i),
					Message: fmt.Sprintf("field %q has no ofType constraint", f.Name),
					Code:    ErrFieldNotTyped,
				})
			}
		}
	}

	return errs
}

// validateFormula walks one formula. typed collects fields with a positive
// ofType atomic.
func validateFormula(p *constraint.Profile, f constraint.Formula, path string, typed map[ir.Field]bool) []ValidationError {
	var errs []ValidationError

	switch v := f.(type) {
	case *constraint.Atomic:
		// E103: undeclared field
		if !p.Fields.Contains(v.Field) {
			errs = append(errs, ValidationError{
				Field:   path + ".field",
				Message: fmt.Sprintf("field %q is not declared", v.Field.Name),
				Code:    ErrUndeclaredField,
			})
		}
		// E105: operand unusable
		if err := constraint.CheckPredicate(v.Predicate); err != nil {
			errs = append(errs, ValidationError{
				Field:   path + ".value",
				Message: err.Error(),
				Code:    ErrInvalidPredicate,
			})
		}
		if _, ok := v.Predicate.(constraint.OfType); ok && !v.Negated {
			typed[v.Field] = true
		}

	case constraint.And:
		errs = append(errs, validateChildren(p, "allOf", v.Children, path, typed)...)

	case constraint.Or:
		errs = append(errs, validateChildren(p, "anyOf", v.Children, path, typed)...)

	case constraint.Not:
		errs = append(errs, validateFormula(p, v.Child, path+".not", typed)...)

	case constraint.Conditional:
		errs = append(errs, validateFormula(p, v.Condition, path+".if", typed)...)
		errs = append(errs, validateFormula(p, v.Then, path+".then", typed)...)
		if v.Else != nil {
			errs = append(errs, validateFormula(p, v.Else, path+".else", typed)...)
		}

	default:
		errs = append(errs, ValidationError{
			Field:   path,
			Message: fmt.Sprintf("unsupported constraint: %T", f),
			Code:    ErrUnsupportedFormat,
		})
	}

	return errs
}

func validateChildren(p *constraint.Profile, key string, children []constraint.Formula, path string, typed map[ir.Field]bool) []ValidationError {
	// E104: empty combinator
	if len(children) == 0 {
		return []ValidationError{{
			Field:   path + "." + key,
			Message: key + " requires at least one constraint",
			Code:    ErrEmptyCombinator,
		}}
	}
	var errs []ValidationError
	for i, c := range children {
		errs = append(errs, validateFormula(p, c, fmt.Sprintf("%s.%s[%d]", path, key, i), typed)...)
	}
	return errs
}
