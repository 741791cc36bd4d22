package generate

import (
	"math/rand/v2"
	"regexp/syntax"
	"strings"
	"unicode"
)

// defaultRepeat bounds the extra repetitions of *, + and open {n,}.
const defaultRepeat = 8

// regexSampler draws strings that fully match a pattern by walking its
// parsed syntax tree.
type regexSampler struct {
	re *syntax.Regexp
}

func newRegexSampler(pattern string) (*regexSampler, error) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return nil, err
	}
	return &regexSampler{re: re.Simplify()}, nil
}

// sample returns a random match. Shortest picks the fewest repetitions and
// the first alternative at every choice point.
func (s *regexSampler) sample(r *rand.Rand, shortest bool) string {
	var b strings.Builder
	sampleInto(&b, s.re, r, shortest)
	return b.String()
}

func sampleInto(b *strings.Builder, re *syntax.Regexp, r *rand.Rand, shortest bool) {
	switch re.Op {
	case syntax.OpLiteral:
		for _, c := range re.Rune {
			b.WriteRune(c)
		}

	case syntax.OpCharClass:
		b.WriteRune(pickFromClass(re.Rune, r, shortest))

	case syntax.OpAnyChar, syntax.OpAnyCharNotNL:
		if shortest {
			b.WriteRune('a')
			return
		}
		b.WriteRune(rune('a' + r.IntN(26)))

	case syntax.OpCapture:
		sampleInto(b, re.Sub[0], r, shortest)

	case syntax.OpConcat:
		for _, sub := range re.Sub {
			sampleInto(b, sub, r, shortest)
		}

	case syntax.OpAlternate:
		if shortest {
			sampleInto(b, re.Sub[0], r, shortest)
			return
		}
		sampleInto(b, re.Sub[r.IntN(len(re.Sub))], r, shortest)

	case syntax.OpStar, syntax.OpPlus, syntax.OpQuest, syntax.OpRepeat:
		lo, hi := repeatBounds(re)
		n := lo
		if !shortest && hi > lo {
			n += r.IntN(hi - lo + 1)
		}
		for range n {
			sampleInto(b, re.Sub[0], r, shortest)
		}

	default:
		// Anchors, boundaries and empty matches consume nothing.
	}
}

func repeatBounds(re *syntax.Regexp) (int, int) {
	switch re.Op {
	case syntax.OpStar:
		return 0, defaultRepeat
	case syntax.OpPlus:
		return 1, 1 + defaultRepeat
	case syntax.OpQuest:
		return 0, 1
	}
	if re.Max < 0 {
		return re.Min, re.Min + defaultRepeat
	}
	return re.Min, re.Max
}

// pickFromClass prefers printable ASCII members of a class so negated
// classes do not produce arbitrary code points.
func pickFromClass(ranges []rune, r *rand.Rand, shortest bool) rune {
	var printable []rune
	for i := 0; i+1 < len(ranges); i += 2 {
		lo, hi := max(ranges[i], 0x21), min(ranges[i+1], 0x7e)
		for c := lo; c <= hi; c++ {
			if unicode.IsPrint(c) {
				printable = append(printable, c)
			}
		}
	}
	if len(printable) > 0 {
		if shortest {
			return printable[0]
		}
		return printable[r.IntN(len(printable))]
	}
	if len(ranges) < 2 {
		return 'a'
	}
	if shortest {
		return ranges[0]
	}
	pair := r.IntN(len(ranges)/2) * 2
	return ranges[pair] + rune(r.IntN(int(ranges[pair+1]-ranges[pair])+1))
}
