package restrictions

import (
	"slices"
	"strings"

	"github.com/hashicorp/go-set/v2"

	"github.com/roach88/profilegen/internal/ir"
)

// ValueSet is a set of values keyed by ir.Value.Hash.
type ValueSet = set.HashSet[ir.Value, string]

// NewValueSet creates a ValueSet holding values.
func NewValueSet(values ...ir.Value) *ValueSet {
	s := set.NewHashSet[ir.Value, string](len(values))
	s.InsertSlice(values)
	return s
}

// SortedValues returns the members of s in CompareValues order.
func SortedValues(s *ValueSet) []ir.Value {
	if s == nil {
		return nil
	}
	out := s.Slice()
	slices.SortFunc(out, ir.CompareValues)
	return out
}

// SetRestrictions constrains a field to a whitelist of values, away from a
// blacklist of values, or both. The whitelist never holds a blacklisted
// value: once a whitelist exists the blacklist is folded into it.
//
// A whitelist, when present, restricts non-null values only; nullness is
// governed by NullRestrictions.
type SetRestrictions struct {
	whitelist *ValueSet
	blacklist *ValueSet
}

// Whitelist restricts a field to values.
func Whitelist(values ...ir.Value) *SetRestrictions {
	return &SetRestrictions{whitelist: NewValueSet(values...), blacklist: NewValueSet()}
}

// Blacklist excludes values from a field.
func Blacklist(values ...ir.Value) *SetRestrictions {
	return &SetRestrictions{blacklist: NewValueSet(values...)}
}

// MergeSet intersects whitelists and unions blacklists. It never reports a
// contradiction: an empty whitelist still admits null, and whether null is
// allowed is for the field's NullRestrictions to decide.
func MergeSet(a, b *SetRestrictions) Merged[*SetRestrictions] {
	if a == nil {
		return Ok(b)
	}
	if b == nil {
		return Ok(a)
	}

	blacklist := a.blacklist
	if b.blacklist.Size() > 0 {
		if blacklist.Size() == 0 {
			blacklist = b.blacklist
		} else {
			blacklist = a.blacklist.Copy()
			blacklist.InsertSet(b.blacklist)
		}
	}

	var whitelist *ValueSet
	switch {
	case a.whitelist != nil && b.whitelist != nil:
		whitelist = a.whitelist.Copy()
		whitelist.RemoveFunc(func(v ir.Value) bool { return !b.whitelist.Contains(v) })
	case a.whitelist != nil:
		whitelist = a.whitelist
	case b.whitelist != nil:
		whitelist = b.whitelist
	default:
		merged := &SetRestrictions{blacklist: blacklist}
		return Ok(preferOperand(merged, a, b))
	}

	if blacklist.Size() > 0 {
		whitelist = whitelist.Copy()
		whitelist.RemoveSet(blacklist)
	}
	merged := &SetRestrictions{whitelist: whitelist, blacklist: NewValueSet()}
	return Ok(preferOperand(merged, a, b))
}

func preferOperand(merged, a, b *SetRestrictions) *SetRestrictions {
	if merged.Equal(a) {
		return a
	}
	if merged.Equal(b) {
		return b
	}
	return merged
}

// HasWhitelist reports whether the field is limited to an explicit value list.
func (s *SetRestrictions) HasWhitelist() bool {
	return s.whitelist != nil
}

// WhitelistValues returns the whitelist in canonical order. It is nil when
// there is no whitelist.
func (s *SetRestrictions) WhitelistValues() []ir.Value {
	return SortedValues(s.whitelist)
}

// BlacklistValues returns the blacklist in canonical order.
func (s *SetRestrictions) BlacklistValues() []ir.Value {
	return SortedValues(s.blacklist)
}

// Permits reports whether v passes the whitelist and blacklist.
func (s *SetRestrictions) Permits(v ir.Value) bool {
	if s.blacklist.Contains(v) {
		return false
	}
	return s.whitelist == nil || s.whitelist.Contains(v)
}

// Filter returns a set restriction whose whitelist keeps only values for
// which keep returns true. Restrictions without a whitelist are returned
// unchanged.
func (s *SetRestrictions) Filter(keep func(ir.Value) bool) *SetRestrictions {
	if s.whitelist == nil {
		return s
	}
	whitelist := s.whitelist.Copy()
	if !whitelist.RemoveFunc(func(v ir.Value) bool { return !keep(v) }) {
		return s
	}
	return &SetRestrictions{whitelist: whitelist, blacklist: s.blacklist}
}

// IsEmptyWhitelist reports whether the whitelist admits no non-null value.
func (s *SetRestrictions) IsEmptyWhitelist() bool {
	return s.whitelist != nil && s.whitelist.Empty()
}

func (s *SetRestrictions) Equal(o *SetRestrictions) bool {
	if s == nil || o == nil {
		return s == o
	}
	if (s.whitelist == nil) != (o.whitelist == nil) {
		return false
	}
	if s.whitelist != nil && !s.whitelist.Equal(o.whitelist) {
		return false
	}
	return s.blacklist.Equal(o.blacklist)
}

// String renders "in[a, b]", "notIn[c]" or both.
func (s *SetRestrictions) String() string {
	var parts []string
	if s.whitelist != nil {
		parts = append(parts, "in"+renderValues(s.WhitelistValues()))
	}
	if s.blacklist.Size() > 0 {
		parts = append(parts, "notIn"+renderValues(s.BlacklistValues()))
	}
	return strings.Join(parts, " ")
}

func renderValues(values []ir.Value) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
