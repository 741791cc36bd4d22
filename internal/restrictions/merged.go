package restrictions

// Merged is the outcome of merging two restrictions: either a value or a
// contradiction meaning no value can satisfy both inputs.
type Merged[T any] struct {
	value         T
	contradictory bool
}

// Ok wraps a successful merge result.
func Ok[T any](v T) Merged[T] {
	return Merged[T]{value: v}
}

// Contradictory is the merge result for unsatisfiable inputs.
func Contradictory[T any]() Merged[T] {
	return Merged[T]{contradictory: true}
}

// IsContradictory reports whether the merge failed.
func (m Merged[T]) IsContradictory() bool {
	return m.contradictory
}

// Get returns the merged value and true, or the zero value and false.
func (m Merged[T]) Get() (T, bool) {
	return m.value, !m.contradictory
}

// Value returns the merged value. It is the zero value when contradictory.
func (m Merged[T]) Value() T {
	return m.value
}

// Then chains a further merge when m is not contradictory.
func Then[T, U any](m Merged[T], f func(T) Merged[U]) Merged[U] {
	if m.contradictory {
		return Contradictory[U]()
	}
	return f(m.value)
}
