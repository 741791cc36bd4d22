package compiler

import (
	"slices"

	"github.com/roach88/profilegen/internal/constraint"
)

// Violation is a profile in which exactly one rule is negated.
type Violation struct {
	Rule    constraint.RuleInformation
	Profile *constraint.Profile
}

// ViolateProfile returns, for every rule with constraints, a copy of p in
// which that rule is replaced by its negation and every other rule is kept.
// Rows generated from a Violation break exactly its Rule.
func ViolateProfile(p *constraint.Profile) []Violation {
	var out []Violation
	for i, rule := range p.Rules {
		if len(rule.Constraints) == 0 {
			continue
		}
		rules := slices.Clone(p.Rules)
		rules[i] = constraint.Rule{
			Info:        rule.Info,
			Constraints: []constraint.Formula{rule.Formula().Negate()},
		}
		violated := p.WithRules(rules)
		violated.Description = p.Description + " (violating " + rule.Info.Description + ")"
		out = append(out, Violation{Rule: rule.Info, Profile: violated})
	}
	return out
}
