package constraint

import "github.com/roach88/profilegen/internal/ir"

// Rule is a named, provenance-tagged conjunction of constraints.
type Rule struct {
	Info        RuleInformation
	Constraints []Formula
}

// Formula returns the rule as a single conjunction.
func (r Rule) Formula() Formula {
	if len(r.Constraints) == 1 {
		return r.Constraints[0]
	}
	return And{Children: r.Constraints}
}

// Profile is the full set of fields and rules supplied by the user.
type Profile struct {
	Description string
	Fields      ir.ProfileFields
	Rules       []Rule

	// Generators maps fields to custom value generator keys.
	Generators map[ir.Field]string

	// Hash is the content hash of the source document, if known.
	Hash string
}

// Formulas returns every rule as one formula each, in rule order.
func (p *Profile) Formulas() []Formula {
	out := make([]Formula, len(p.Rules))
	for i, r := range p.Rules {
		out[i] = r.Formula()
	}
	return out
}

// WithRules returns a shallow copy of p with rules replaced.
func (p *Profile) WithRules(rules []Rule) *Profile {
	c := *p
	c.Rules = rules
	return &c
}
