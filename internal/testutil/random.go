package testutil

import (
	"fmt"
	"math/rand/v2"

	"github.com/roach88/profilegen/internal/constraint"
)

// RandomFormula builds a formula over fields from r. Atomics draw from a
// small value domain so that random formulas overlap and contradict often.
func RandomFormula(r *rand.Rand, fields []string, depth int) constraint.Formula {
	if depth <= 0 || r.IntN(3) == 0 {
		return randomAtomic(r, fields)
	}
	children := func() []constraint.Formula {
		out := make([]constraint.Formula, 1+r.IntN(3))
		for i := range out {
			out[i] = RandomFormula(r, fields, depth-1)
		}
		return out
	}
	switch r.IntN(4) {
	case 0:
		return And(children()...)
	case 1:
		return Or(children()...)
	case 2:
		return Not(RandomFormula(r, fields, depth-1))
	default:
		if r.IntN(2) == 0 {
			return If(RandomFormula(r, fields, depth-1), RandomFormula(r, fields, depth-1))
		}
		return IfElse(RandomFormula(r, fields, depth-1), RandomFormula(r, fields, depth-1), RandomFormula(r, fields, depth-1))
	}
}

func randomAtomic(r *rand.Rand, fields []string) constraint.Formula {
	field := fields[r.IntN(len(fields))]
	word := func() string { return string(rune('a' + r.IntN(3))) }
	var a *constraint.Atomic
	switch r.IntN(6) {
	case 0:
		a = Eq(field, word())
	case 1:
		a = In(field, word(), word())
	case 2:
		a = IsNull(field)
	case 3:
		a = GT(field, fmt.Sprint(r.IntN(5)))
	case 4:
		a = LT(field, fmt.Sprint(r.IntN(5)))
	default:
		a = Eq(field, r.IntN(3))
	}
	if r.IntN(3) == 0 {
		return a.Negate()
	}
	return a
}

// RandomProfile builds a profile with up to four random rules.
func RandomProfile(seed uint64, fields []string, depth int) *constraint.Profile {
	r := rand.New(rand.NewPCG(seed, 0x9e3779b97f4a7c15))
	rules := make([]constraint.Rule, 1+r.IntN(4))
	for i := range rules {
		rules[i] = Rule(fmt.Sprintf("rule %d", i), RandomFormula(r, fields, depth))
	}
	return Profile(fields, rules...)
}
