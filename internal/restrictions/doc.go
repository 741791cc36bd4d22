// Package restrictions implements the restriction merger suite.
//
// Each restriction kind (set, numeric, string, datetime, type, null)
// exposes a pure Merge function returning Merged[T]: either a merged
// restriction or a contradiction. Contradictions are values, never errors.
//
// A nil restriction pointer means "no restriction of this kind". Merging
// with nil is the identity and returns the other operand unchanged, so
// unchanged restrictions are shared by reference between FieldSpecs.
//
// Restriction values are immutable once constructed. Merge functions
// always allocate a new value when the result differs from both inputs.
package restrictions
