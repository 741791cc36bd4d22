package restrictions

// Nullness is whether a field must or must not be null.
type Nullness int

const (
	MustBeNull Nullness = iota + 1
	MustNotBeNull
)

// NullRestrictions pins a field's nullness. A nil *NullRestrictions means
// the field may be null.
type NullRestrictions struct {
	Nullness Nullness
}

var (
	mustBeNull    = &NullRestrictions{Nullness: MustBeNull}
	mustNotBeNull = &NullRestrictions{Nullness: MustNotBeNull}
)

// Null returns the shared restriction for n.
func Null(n Nullness) *NullRestrictions {
	if n == MustBeNull {
		return mustBeNull
	}
	return mustNotBeNull
}

// MergeNull is contradictory when one side requires null and the other forbids it.
func MergeNull(a, b *NullRestrictions) Merged[*NullRestrictions] {
	if a == nil {
		return Ok(b)
	}
	if b == nil {
		return Ok(a)
	}
	if a.Nullness != b.Nullness {
		return Contradictory[*NullRestrictions]()
	}
	return Ok(a)
}

func (n *NullRestrictions) Equal(o *NullRestrictions) bool {
	if n == nil || o == nil {
		return n == o
	}
	return n.Nullness == o.Nullness
}

func (n *NullRestrictions) String() string {
	if n.Nullness == MustBeNull {
		return "null"
	}
	return "notNull"
}
