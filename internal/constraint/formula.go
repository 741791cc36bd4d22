package constraint

import (
	"fmt"
	"strings"

	"github.com/roach88/profilegen/internal/ir"
)

// Formula is a sealed interface over the constraint formula shapes:
// *Atomic, And, Or, Not, Conditional.
type Formula interface {
	formula() // Sealed

	// Negate returns the logical negation. Combinators negate by
	// De Morgan's laws and never return a Not wrapping a combinator
	// built here; atomics return their paired inverse.
	Negate() Formula

	String() string
}

// RuleInformation identifies the profile rule a constraint came from.
type RuleInformation struct {
	Description string `json:"description"`
}

// Atomic is a single predicate on a single field.
//
// Atomics are created in inverse pairs by NewAtomic: a.Negate().Negate()
// returns a itself. Never construct an Atomic literal directly.
type Atomic struct {
	Field     ir.Field
	Predicate Predicate
	Negated   bool
	Rules     []RuleInformation

	inverse *Atomic
}

// NewAtomic creates a positive atomic and its negation.
func NewAtomic(field ir.Field, pred Predicate, rules ...RuleInformation) *Atomic {
	pos := &Atomic{Field: field, Predicate: pred, Rules: rules}
	neg := &Atomic{Field: field, Predicate: pred, Negated: true, Rules: rules, inverse: pos}
	pos.inverse = neg
	return pos
}

func (*Atomic) formula() {}

// Negate returns the paired inverse atomic.
func (a *Atomic) Negate() Formula {
	return a.inverse
}

func (a *Atomic) String() string {
	s := a.Field.Name + " " + a.Predicate.Name()
	if d := a.Predicate.Describe(); d != "" {
		s += " " + d
	}
	if a.Negated {
		return "NOT(" + s + ")"
	}
	return s
}

// And holds when every child holds.
type And struct {
	Children []Formula
}

func (And) formula() {}

// Negate applies ¬And(xs) = Or(¬xs).
func (a And) Negate() Formula {
	return Or{Children: negateAll(a.Children)}
}

func (a And) String() string { return joinFormulas("AND", a.Children) }

// Or holds when at least one child holds.
type Or struct {
	Children []Formula
}

func (Or) formula() {}

// Negate applies ¬Or(xs) = And(¬xs).
func (o Or) Negate() Formula {
	return And{Children: negateAll(o.Children)}
}

func (o Or) String() string { return joinFormulas("OR", o.Children) }

// Not negates a combinator. Use NewNot, which collapses double negation
// and folds negated atomics into their inverse.
type Not struct {
	Child Formula
}

func (Not) formula() {}

// Negate applies ¬¬x = x.
func (n Not) Negate() Formula {
	return n.Child
}

func (n Not) String() string { return "NOT(" + n.Child.String() + ")" }

// NewNot negates f without ever nesting Not inside Not.
func NewNot(f Formula) Formula {
	switch v := f.(type) {
	case Not:
		return v.Child
	case *Atomic:
		return v.Negate()
	default:
		return Not{Child: f}
	}
}

// Conditional is "if Condition then Then else Else". Else may be nil.
type Conditional struct {
	Condition Formula
	Then      Formula
	Else      Formula
}

func (Conditional) formula() {}

// Negate applies ¬(c ⇒ t | e) = Or(And(c,¬t), And(¬c,¬e)),
// or And(c,¬t) when there is no else branch.
func (c Conditional) Negate() Formula {
	violateThen := And{Children: []Formula{c.Condition, c.Then.Negate()}}
	if c.Else == nil {
		return violateThen
	}
	violateElse := And{Children: []Formula{c.Condition.Negate(), c.Else.Negate()}}
	return Or{Children: []Formula{violateThen, violateElse}}
}

// Expand rewrites the conditional as Or(And(c,t), And(¬c, e ?? ¬c)).
func (c Conditional) Expand() Formula {
	whenTrue := And{Children: []Formula{c.Condition, c.Then}}
	var whenFalse Formula
	if c.Else == nil {
		whenFalse = c.Condition.Negate()
	} else {
		whenFalse = And{Children: []Formula{c.Condition.Negate(), c.Else}}
	}
	return Or{Children: []Formula{whenTrue, whenFalse}}
}

func (c Conditional) String() string {
	s := fmt.Sprintf("IF(%s) THEN(%s)", c.Condition, c.Then)
	if c.Else != nil {
		s += fmt.Sprintf(" ELSE(%s)", c.Else)
	}
	return s
}

func negateAll(fs []Formula) []Formula {
	out := make([]Formula, len(fs))
	for i, f := range fs {
		out[i] = f.Negate()
	}
	return out
}

func joinFormulas(op string, fs []Formula) string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = f.String()
	}
	return op + "(" + strings.Join(parts, ", ") + ")"
}

// Equal reports structural equality. Child order matters for And and Or;
// atomics compare by field, predicate operand and polarity.
func Equal(a, b Formula) bool {
	switch av := a.(type) {
	case *Atomic:
		bv, ok := b.(*Atomic)
		if !ok {
			return false
		}
		if av == bv {
			return true
		}
		return av.Field == bv.Field && av.Negated == bv.Negated &&
			av.Predicate.Name() == bv.Predicate.Name() &&
			av.Predicate.Describe() == bv.Predicate.Describe()
	case And:
		bv, ok := b.(And)
		return ok && equalAll(av.Children, bv.Children)
	case Or:
		bv, ok := b.(Or)
		return ok && equalAll(av.Children, bv.Children)
	case Not:
		bv, ok := b.(Not)
		return ok && Equal(av.Child, bv.Child)
	case Conditional:
		bv, ok := b.(Conditional)
		if !ok || !Equal(av.Condition, bv.Condition) || !Equal(av.Then, bv.Then) {
			return false
		}
		if av.Else == nil || bv.Else == nil {
			return av.Else == nil && bv.Else == nil
		}
		return Equal(av.Else, bv.Else)
	default:
		return false
	}
}

func equalAll(a, b []Formula) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Atomics returns every atomic in f, depth first.
func Atomics(f Formula) []*Atomic {
	var out []*Atomic
	var walk func(Formula)
	walk = func(f Formula) {
		switch v := f.(type) {
		case *Atomic:
			out = append(out, v)
		case And:
			for _, c := range v.Children {
				walk(c)
			}
		case Or:
			for _, c := range v.Children {
				walk(c)
			}
		case Not:
			walk(v.Child)
		case Conditional:
			walk(v.Condition)
			walk(v.Then)
			if v.Else != nil {
				walk(v.Else)
			}
		}
	}
	walk(f)
	return out
}
