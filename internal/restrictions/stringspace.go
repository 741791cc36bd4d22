package restrictions

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
)

// StringSpace is a possibly infinite set of strings described by pattern
// constraints. Intersect is only defined between spaces of the same
// implementation.
type StringSpace interface {
	// Intersect returns the space of strings in both s and other.
	Intersect(other StringSpace) StringSpace

	// IsEmpty reports whether the space is statically known to hold no string.
	// A false result does not guarantee a string exists.
	IsEmpty() bool

	// Matches reports whether s is in the space.
	Matches(s string) bool

	// String is a canonical rendering; equal spaces render identically.
	String() string
}

// RegexClause is one pattern constraint: the string must (or, negated,
// must not) fully match or contain a match of Pattern.
type RegexClause struct {
	Pattern  string
	Contains bool
	Negated  bool

	re *regexp.Regexp
}

// NewRegexClause compiles a clause.
func NewRegexClause(pattern string, contains, negated bool) (RegexClause, error) {
	expr := pattern
	if !contains {
		expr = `^(?:` + pattern + `)$`
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return RegexClause{}, err
	}
	return RegexClause{Pattern: pattern, Contains: contains, Negated: negated, re: re}, nil
}

// Holds reports whether s satisfies the clause.
func (c RegexClause) Holds(s string) bool {
	return c.re.MatchString(s) != c.Negated
}

// Regexp returns the anchored (matching) or unanchored (containing) expression.
func (c RegexClause) Regexp() *regexp.Regexp {
	return c.re
}

func (c RegexClause) inverseOf(o RegexClause) bool {
	return c.Pattern == o.Pattern && c.Contains == o.Contains && c.Negated != o.Negated
}

func (c RegexClause) String() string {
	s := "matching"
	if c.Contains {
		s = "containing"
	}
	s += " /" + c.Pattern + "/"
	if c.Negated {
		return "NOT(" + s + ")"
	}
	return s
}

func compareClauses(a, b RegexClause) int {
	return cmp.Or(
		cmp.Compare(a.Pattern, b.Pattern),
		compareBool(a.Contains, b.Contains),
		compareBool(a.Negated, b.Negated),
	)
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// RegexSpace is the conjunction of its clauses. The zero value holds every
// string.
type RegexSpace struct {
	clauses []RegexClause
}

// NewRegexSpace creates a space from clauses, sorted and deduplicated.
func NewRegexSpace(clauses ...RegexClause) *RegexSpace {
	sorted := slices.Clone(clauses)
	slices.SortFunc(sorted, compareClauses)
	sorted = slices.CompactFunc(sorted, func(a, b RegexClause) bool { return compareClauses(a, b) == 0 })
	return &RegexSpace{clauses: sorted}
}

// Clauses returns the clauses in canonical order.
func (r *RegexSpace) Clauses() []RegexClause {
	return slices.Clone(r.clauses)
}

// Intersect merges clause lists.
func (r *RegexSpace) Intersect(other StringSpace) StringSpace {
	o, ok := other.(*RegexSpace)
	if !ok {
		panic("restrictions: cannot intersect RegexSpace with " + other.String())
	}
	return NewRegexSpace(append(slices.Clone(r.clauses), o.clauses...)...)
}

// IsEmpty detects a clause together with its negation, and a full-match
// literal that another clause rejects.
func (r *RegexSpace) IsEmpty() bool {
	for i, c := range r.clauses {
		for _, o := range r.clauses[i+1:] {
			if c.inverseOf(o) {
				return true
			}
		}
	}
	if lit, ok := r.Literal(); ok {
		return !r.Matches(lit)
	}
	return false
}

// Literal returns the only string the space can hold when some positive
// full-match clause is a plain literal.
func (r *RegexSpace) Literal() (string, bool) {
	for _, c := range r.clauses {
		if c.Contains || c.Negated {
			continue
		}
		plain, err := regexp.Compile(c.Pattern)
		if err != nil {
			continue
		}
		if prefix, complete := plain.LiteralPrefix(); complete {
			return prefix, true
		}
	}
	return "", false
}

func (r *RegexSpace) Matches(s string) bool {
	for _, c := range r.clauses {
		if !c.Holds(s) {
			return false
		}
	}
	return true
}

func (r *RegexSpace) String() string {
	if len(r.clauses) == 0 {
		return "any"
	}
	parts := make([]string, len(r.clauses))
	for i, c := range r.clauses {
		parts[i] = c.String()
	}
	return strings.Join(parts, " AND ")
}
