package restrictions

import (
	"strings"

	"github.com/hashicorp/go-set/v2"

	"github.com/roach88/profilegen/internal/ir"
)

// TypeRestrictions is the set of base types a non-null value may take.
type TypeRestrictions struct {
	allowed *set.Set[ir.DataType]
}

// OnlyTypes allows exactly the given types.
func OnlyTypes(types ...ir.DataType) *TypeRestrictions {
	return &TypeRestrictions{allowed: set.From(types)}
}

// ExceptType allows every base type but t.
func ExceptType(t ir.DataType) *TypeRestrictions {
	allowed := set.From(ir.AllDataTypes())
	allowed.Remove(t)
	return &TypeRestrictions{allowed: allowed}
}

// MergeType intersects the allowed types. An empty intersection is a contradiction.
func MergeType(a, b *TypeRestrictions) Merged[*TypeRestrictions] {
	if a == nil {
		return Ok(b)
	}
	if b == nil {
		return Ok(a)
	}
	// Subset(x) reports whether x is a subset of the receiver.
	if b.allowed.Subset(a.allowed) {
		return nonEmptyTypes(a)
	}
	if a.allowed.Subset(b.allowed) {
		return nonEmptyTypes(b)
	}
	allowed := a.allowed.Copy()
	allowed.RemoveFunc(func(t ir.DataType) bool { return !b.allowed.Contains(t) })
	return nonEmptyTypes(&TypeRestrictions{allowed: allowed})
}

func nonEmptyTypes(t *TypeRestrictions) Merged[*TypeRestrictions] {
	if t.allowed.Empty() {
		return Contradictory[*TypeRestrictions]()
	}
	return Ok(t)
}

// Allows reports whether values of type t are permitted.
func (t *TypeRestrictions) Allows(dt ir.DataType) bool {
	return t == nil || t.allowed.Contains(dt)
}

// Types returns the allowed types in AllDataTypes order.
func (t *TypeRestrictions) Types() []ir.DataType {
	var out []ir.DataType
	for _, dt := range ir.AllDataTypes() {
		if t.Allows(dt) {
			out = append(out, dt)
		}
	}
	return out
}

func (t *TypeRestrictions) Equal(o *TypeRestrictions) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.allowed.Equal(o.allowed)
}

func (t *TypeRestrictions) String() string {
	names := make([]string, 0, 3)
	for _, dt := range t.Types() {
		names = append(names, string(dt))
	}
	return "type[" + strings.Join(names, ", ") + "]"
}
