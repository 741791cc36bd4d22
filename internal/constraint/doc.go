// Package constraint implements the constraint formula model.
//
// A Formula is a closed sum type over five shapes:
//
//	*Atomic      - one predicate on one field, carrying rule provenance
//	And, Or      - order-irrelevant conjunction and disjunction
//	Not          - negation of a combinator (never of an atomic, never doubled)
//	Conditional  - if/then/else sugar
//
// Every Formula can be negated without wrapping a combinator in Not:
// atomics flip to their pre-built inverse and combinators follow
// De Morgan's laws. Double negation of an atomic returns the original
// *Atomic pointer, so identity comparisons survive a round trip.
//
// Formulas are immutable after construction and safe to share between
// goroutines.
package constraint
