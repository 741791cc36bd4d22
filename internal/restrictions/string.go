package restrictions

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/go-set/v2"
)

// StringRestrictions bounds string length, excludes individual lengths and
// limits content to a StringSpace. Lengths count runes.
type StringRestrictions struct {
	MinLength int
	MaxLength *int // nil is unbounded
	Excluded  *set.Set[int]
	Space     StringSpace // nil holds every string
}

// StringLength restricts length to [minLen, maxLen]. A negative maxLen
// means unbounded.
func StringLength(minLen, maxLen int) *StringRestrictions {
	s := &StringRestrictions{MinLength: minLen, Excluded: set.New[int](0)}
	if maxLen >= 0 {
		s.MaxLength = &maxLen
	}
	return s
}

// StringShorterThan restricts length to below n.
func StringShorterThan(n int) *StringRestrictions {
	maxLen := n - 1
	return &StringRestrictions{MaxLength: &maxLen, Excluded: set.New[int](0)}
}

// StringNotOfLength excludes strings of exactly n runes.
func StringNotOfLength(n int) *StringRestrictions {
	return &StringRestrictions{Excluded: set.From([]int{n})}
}

// StringIn restricts content to space.
func StringIn(space StringSpace) *StringRestrictions {
	return &StringRestrictions{Excluded: set.New[int](0), Space: space}
}

// MergeString intersects bounds, unions exclusions and intersects spaces.
func MergeString(a, b *StringRestrictions) Merged[*StringRestrictions] {
	if a == nil {
		return Ok(b)
	}
	if b == nil {
		return Ok(a)
	}
	merged := &StringRestrictions{
		MinLength: max(a.MinLength, b.MinLength),
		MaxLength: minLength(a.MaxLength, b.MaxLength),
		Excluded:  a.Excluded,
		Space:     a.Space,
	}
	if b.Excluded.Size() > 0 {
		if a.Excluded.Size() == 0 {
			merged.Excluded = b.Excluded
		} else {
			merged.Excluded = a.Excluded.Copy()
			merged.Excluded.InsertSet(b.Excluded)
		}
	}
	switch {
	case a.Space == nil:
		merged.Space = b.Space
	case b.Space != nil:
		merged.Space = a.Space.Intersect(b.Space)
	}
	if !merged.Satisfiable() {
		return Contradictory[*StringRestrictions]()
	}
	if merged.Equal(a) {
		return Ok(a)
	}
	if merged.Equal(b) {
		return Ok(b)
	}
	return Ok(merged)
}

func minLength(a, b *int) *int {
	if a == nil {
		return b
	}
	if b == nil || *a <= *b {
		return a
	}
	return b
}

// Satisfiable reports false when the restriction is statically known to
// admit no string.
func (s *StringRestrictions) Satisfiable() bool {
	if s.MaxLength != nil {
		if s.MinLength > *s.MaxLength {
			return false
		}
		allExcluded := true
		for n := s.MinLength; n <= *s.MaxLength; n++ {
			if !s.Excluded.Contains(n) {
				allExcluded = false
				break
			}
		}
		if allExcluded {
			return false
		}
	}
	if s.Space == nil {
		return true
	}
	if s.Space.IsEmpty() {
		return false
	}
	if lit, ok := s.Space.(*RegexSpace); ok {
		if l, single := lit.Literal(); single {
			return s.LengthAllowed(utf8.RuneCountInString(l))
		}
	}
	return true
}

// LengthAllowed reports whether a string of n runes passes the length checks.
func (s *StringRestrictions) LengthAllowed(n int) bool {
	if n < s.MinLength || (s.MaxLength != nil && n > *s.MaxLength) {
		return false
	}
	return !s.Excluded.Contains(n)
}

// Match reports whether v is admissible.
func (s *StringRestrictions) Match(v string) bool {
	if !s.LengthAllowed(utf8.RuneCountInString(v)) {
		return false
	}
	return s.Space == nil || s.Space.Matches(v)
}

// ExcludedLengths returns the excluded lengths in ascending order.
func (s *StringRestrictions) ExcludedLengths() []int {
	out := s.Excluded.Slice()
	slices.Sort(out)
	return out
}

func (s *StringRestrictions) Equal(o *StringRestrictions) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.MinLength != o.MinLength || !s.Excluded.Equal(o.Excluded) {
		return false
	}
	if (s.MaxLength == nil) != (o.MaxLength == nil) || (s.MaxLength != nil && *s.MaxLength != *o.MaxLength) {
		return false
	}
	if (s.Space == nil) != (o.Space == nil) {
		return false
	}
	return s.Space == nil || s.Space.String() == o.Space.String()
}

func (s *StringRestrictions) String() string {
	maxLen := "inf"
	if s.MaxLength != nil {
		maxLen = fmt.Sprint(*s.MaxLength)
	}
	parts := []string{fmt.Sprintf("length[%d, %s]", s.MinLength, maxLen)}
	if s.Excluded.Size() > 0 {
		lengths := make([]string, 0, s.Excluded.Size())
		for _, n := range s.ExcludedLengths() {
			lengths = append(lengths, fmt.Sprint(n))
		}
		parts = append(parts, "notLength["+strings.Join(lengths, ", ")+"]")
	}
	if s.Space != nil {
		parts = append(parts, s.Space.String())
	}
	return strings.Join(parts, " ")
}
