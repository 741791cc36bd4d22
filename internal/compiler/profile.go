package compiler

import (
	"fmt"
	"slices"

	"cuelang.org/go/cue"

	"github.com/roach88/profilegen/internal/constraint"
	"github.com/roach88/profilegen/internal/ir"
)

// CompileProfileCUE compiles a CUE value holding a profile document.
//
// The CUE value should be the profile struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`fields: [{name: "country"}], rules: [...]`)
//	p, err := CompileProfileCUE(v)
func CompileProfileCUE(v cue.Value) (*constraint.Profile, error) {
	doc, err := DecodeCUE(v)
	if err != nil {
		return nil, err
	}
	return CompileProfile(doc)
}

// CompileProfileYAML compiles a YAML profile document.
func CompileProfileYAML(data []byte) (*constraint.Profile, error) {
	doc, err := DecodeYAML(data)
	if err != nil {
		return nil, err
	}
	return CompileProfile(doc)
}

// CompileProfile converts a decoded profile document into a Profile.
// Structural checks that need the whole profile (duplicate or undeclared
// fields, empty combinators) are left to ValidateProfile.
func CompileProfile(doc map[string]any) (*constraint.Profile, error) {
	p := &constraint.Profile{Generators: map[ir.Field]string{}}

	if desc, ok := doc["description"]; ok {
		s, ok := desc.(string)
		if !ok {
			return nil, &CompileError{Field: "description", Message: "must be a string"}
		}
		p.Description = s
	}

	fields, err := listAt(doc, "fields", "fields")
	if err != nil {
		return nil, err
	}
	for i, raw := range fields {
		path := fmt.Sprintf("fields[%d]", i)
		f, err := compileField(raw, path)
		if err != nil {
			return nil, err
		}
		p.Fields = append(p.Fields, f.field)
		if f.generator != "" {
			p.Generators[f.field] = f.generator
		}
	}

	rules, err := listAt(doc, "rules", "rules")
	if err != nil {
		return nil, err
	}
	for i, raw := range rules {
		rule, err := compileRule(raw, fmt.Sprintf("rules[%d]", i))
		if err != nil {
			return nil, err
		}
		p.Rules = append(p.Rules, rule)
	}

	hash, err := ir.ProfileHash(doc)
	if err != nil {
		return nil, &CompileError{Field: "profile", Message: err.Error()}
	}
	p.Hash = hash
	return p, nil
}

type compiledField struct {
	field     ir.Field
	generator string
}

func compileField(raw any, path string) (compiledField, error) {
	switch v := raw.(type) {
	case string:
		return compiledField{field: ir.NewField(v)}, nil
	case map[string]any:
		name, ok := v["name"].(string)
		if !ok || name == "" {
			return compiledField{}, &CompileError{Field: path + ".name", Message: "name is required"}
		}
		out := compiledField{field: ir.NewField(name)}
		if g, ok := v["generator"]; ok && g != nil {
			s, ok := g.(string)
			if !ok {
				return compiledField{}, &CompileError{Field: path + ".generator", Message: "must be a string"}
			}
			out.generator = s
		}
		return out, nil
	default:
		return compiledField{}, &CompileError{Field: path, Message: "field must be a name or {name: ...}"}
	}
}

func compileRule(raw any, path string) (constraint.Rule, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return constraint.Rule{}, &CompileError{Field: path, Message: "rule must be an object"}
	}
	info := constraint.RuleInformation{Description: path}
	if name, ok := m["rule"].(string); ok && name != "" {
		info.Description = name
	}

	items, err := listAt(m, "constraints", path+".constraints")
	if err != nil {
		return constraint.Rule{}, err
	}
	rule := constraint.Rule{Info: info}
	for i, item := range items {
		f, err := compileFormula(item, fmt.Sprintf("%s.constraints[%d]", path, i), info)
		if err != nil {
			return constraint.Rule{}, err
		}
		rule.Constraints = append(rule.Constraints, f)
	}
	return rule, nil
}

func compileFormula(raw any, path string, info constraint.RuleInformation) (constraint.Formula, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, &CompileError{Field: path, Message: "constraint must be an object"}
	}

	switch {
	case has(m, "not"):
		child, err := compileFormula(m["not"], path+".not", info)
		if err != nil {
			return nil, err
		}
		return constraint.NewNot(child), nil

	case has(m, "allOf"):
		children, err := compileChildren(m, "allOf", path, info)
		if err != nil {
			return nil, err
		}
		return constraint.And{Children: children}, nil

	case has(m, "anyOf"):
		children, err := compileChildren(m, "anyOf", path, info)
		if err != nil {
			return nil, err
		}
		return constraint.Or{Children: children}, nil

	case has(m, "if"):
		if !has(m, "then") {
			return nil, &CompileError{Field: path + ".then", Message: "if requires then"}
		}
		cond, err := compileFormula(m["if"], path+".if", info)
		if err != nil {
			return nil, err
		}
		then, err := compileFormula(m["then"], path+".then", info)
		if err != nil {
			return nil, err
		}
		c := constraint.Conditional{Condition: cond, Then: then}
		if has(m, "else") {
			c.Else, err = compileFormula(m["else"], path+".else", info)
			if err != nil {
				return nil, err
			}
		}
		return c, nil

	case has(m, "field"):
		return compileAtomic(m, path, info)

	default:
		return nil, &CompileError{
			Field:   path,
			Message: "constraint needs one of field, not, allOf, anyOf, if",
		}
	}
}

func compileChildren(m map[string]any, key, path string, info constraint.RuleInformation) ([]constraint.Formula, error) {
	items, err := listAt(m, key, path+"."+key)
	if err != nil {
		return nil, err
	}
	children := make([]constraint.Formula, 0, len(items))
	for i, item := range items {
		c, err := compileFormula(item, fmt.Sprintf("%s.%s[%d]", path, key, i), info)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return children, nil
}

func compileAtomic(m map[string]any, path string, info constraint.RuleInformation) (constraint.Formula, error) {
	name, ok := m["field"].(string)
	if !ok || name == "" {
		return nil, &CompileError{Field: path + ".field", Message: "field must be a non-empty string"}
	}
	is, ok := m["is"].(string)
	if !ok && has(m, "is") && m["is"] == nil {
		// YAML reads a bare `is: null` as the null value.
		is, ok = constraint.NameNull, true
	}
	if !ok {
		return nil, &CompileError{Field: path + ".is", Message: "is must name a predicate"}
	}

	pred, err := compilePredicate(is, m, path)
	if err != nil {
		return nil, err
	}
	return constraint.NewAtomic(ir.NewField(name), pred, info), nil
}

func compilePredicate(is string, m map[string]any, path string) (constraint.Predicate, error) {
	valuePath := path + ".value"
	value := m["value"]

	switch is {
	case constraint.NameEqualTo:
		v, err := ir.ValueFromAny(value)
		if err != nil {
			return nil, &CompileError{Field: valuePath, Message: err.Error()}
		}
		return constraint.EqualTo{Value: v}, nil

	case constraint.NameInSet:
		items, err := listAt(m, "values", path+".values")
		if err != nil {
			return nil, err
		}
		values := make([]ir.Value, 0, len(items))
		for i, item := range items {
			v, err := ir.ValueFromAny(item)
			if err != nil {
				return nil, &CompileError{Field: fmt.Sprintf("%s.values[%d]", path, i), Message: err.Error()}
			}
			values = append(values, v)
		}
		return constraint.InSet{Values: values}, nil

	case constraint.NameNull:
		return constraint.IsNull{}, nil

	case constraint.NameOfType:
		s, ok := value.(string)
		if !ok {
			return nil, &CompileError{Field: valuePath, Message: "ofType needs a type name"}
		}
		t, err := ir.ParseDataType(s)
		if err != nil {
			return nil, &CompileError{Field: valuePath, Message: err.Error()}
		}
		return constraint.OfType{Type: t}, nil

	case constraint.NameGreaterThan, constraint.NameGreaterThanOrEqual:
		d, err := decimalOperand(value, valuePath)
		if err != nil {
			return nil, err
		}
		return constraint.GreaterThan{Limit: d, OrEqual: is == constraint.NameGreaterThanOrEqual}, nil

	case constraint.NameLessThan, constraint.NameLessThanOrEqual:
		d, err := decimalOperand(value, valuePath)
		if err != nil {
			return nil, err
		}
		return constraint.LessThan{Limit: d, OrEqual: is == constraint.NameLessThanOrEqual}, nil

	case constraint.NameGranularTo:
		d, err := decimalOperand(value, valuePath)
		if err != nil {
			return nil, err
		}
		scale, err := constraint.GranularityToScale(d)
		if err != nil {
			return nil, &CompileError{Field: valuePath, Message: err.Error()}
		}
		return constraint.GranularTo{Scale: scale}, nil

	case constraint.NameAfter, constraint.NameAfterOrAt:
		t, err := dateTimeOperand(value, valuePath)
		if err != nil {
			return nil, err
		}
		return constraint.After{Limit: t, OrEqual: is == constraint.NameAfterOrAt}, nil

	case constraint.NameBefore, constraint.NameBeforeOrAt:
		t, err := dateTimeOperand(value, valuePath)
		if err != nil {
			return nil, err
		}
		return constraint.Before{Limit: t, OrEqual: is == constraint.NameBeforeOrAt}, nil

	case constraint.NameMatchingRegex, constraint.NameContainingRegex:
		s, ok := value.(string)
		if !ok {
			return nil, &CompileError{Field: valuePath, Message: is + " needs a pattern string"}
		}
		if is == constraint.NameMatchingRegex {
			return constraint.MatchesRegex{Pattern: s}, nil
		}
		return constraint.ContainsRegex{Pattern: s}, nil

	case constraint.NameOfLength, constraint.NameShorterThan, constraint.NameLongerThan:
		n, err := intOperand(value, valuePath)
		if err != nil {
			return nil, err
		}
		switch is {
		case constraint.NameOfLength:
			return constraint.OfLength{Length: n}, nil
		case constraint.NameShorterThan:
			return constraint.ShorterThan{Length: n}, nil
		default:
			return constraint.LongerThan{Length: n}, nil
		}
	}

	return nil, &CompileError{Field: path + ".is", Message: fmt.Sprintf("unknown predicate %q", is)}
}

func decimalOperand(v any, path string) (ir.Decimal, error) {
	switch val := v.(type) {
	case ir.Decimal:
		return val, nil
	case string:
		d, err := ir.NewDecimal(val)
		if err != nil {
			return ir.Decimal{}, &CompileError{Field: path, Message: err.Error()}
		}
		return d, nil
	}
	return ir.Decimal{}, &CompileError{Field: path, Message: fmt.Sprintf("expected a number, got %T", v)}
}

func intOperand(v any, path string) (int, error) {
	d, err := decimalOperand(v, path)
	if err != nil {
		return 0, err
	}
	n, err := d.Apd().Int64()
	if err != nil {
		return 0, &CompileError{Field: path, Message: fmt.Sprintf("expected an integer, got %s", d)}
	}
	return int(n), nil
}

func dateTimeOperand(v any, path string) (ir.DateTime, error) {
	if s, ok := v.(string); ok {
		v = map[string]any{"date": s}
	}
	val, err := ir.ValueFromAny(v)
	if err != nil {
		return ir.DateTime{}, &CompileError{Field: path, Message: err.Error()}
	}
	dt, ok := val.(ir.DateTime)
	if !ok {
		return ir.DateTime{}, &CompileError{Field: path, Message: "expected a datetime"}
	}
	return dt, nil
}

func has(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

// listAt returns m[key] as a list. A missing key is an empty list.
func listAt(m map[string]any, key, path string) ([]any, error) {
	raw, ok := m[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, &CompileError{Field: path, Message: "must be a list"}
	}
	return slices.Clip(items), nil
}
