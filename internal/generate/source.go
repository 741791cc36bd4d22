package generate

import (
	"iter"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/profilegen/internal/fieldspec"
	"github.com/roach88/profilegen/internal/ir"
	"github.com/roach88/profilegen/internal/restrictions"
)

const (
	// maxMisses ends a drawn sequence after this many consecutive values
	// were rejected by the FieldSpec or repeated an earlier value.
	maxMisses = 64

	// nullOneIn is the chance, one in n, that a nullable field draws null in
	// random mode.
	nullOneIn = 10

	// numericWindow is the width of the default range on an unbounded side.
	numericWindow = 100

	// randomStringSpan caps random string lengths above the minimum.
	randomStringSpan = 16
)

var (
	defaultEarliest = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	defaultLatest   = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
)

// Generator draws values for FieldSpecs in one Mode. A Generator is not safe
// for concurrent use; give each goroutine its own.
type Generator struct {
	mode     Mode
	rng      *rand.Rand
	registry *Registry
	custom   map[ir.Field]string
}

// Option configures a Generator.
type Option func(*Generator)

// WithRegistry sets the custom generator registry. Default: DefaultRegistry.
func WithRegistry(r *Registry) Option {
	return func(g *Generator) {
		g.registry = r
	}
}

// WithCustomGenerators names a registry key per field.
func WithCustomGenerators(keys map[ir.Field]string) Option {
	return func(g *Generator) {
		g.custom = keys
	}
}

// New creates a Generator drawing random choices from rng.
func New(mode Mode, rng *rand.Rand, opts ...Option) *Generator {
	g := &Generator{mode: mode, rng: rng}
	for _, opt := range opts {
		opt(g)
	}
	if g.registry == nil {
		g.registry = DefaultRegistry()
	}
	return g
}

// Mode returns the generation mode.
func (g *Generator) Mode() Mode {
	return g.mode
}

// Values yields admissible values of f under spec. Sequences in random mode
// never end on their own unless spec admits nothing.
func (g *Generator) Values(f ir.Field, spec *fieldspec.FieldSpec) iter.Seq[ir.Value] {
	if spec.MustBeNull() {
		return func(yield func(ir.Value) bool) {
			if g.mode == ModeRandom {
				for yield(ir.Null{}) {
				}
				return
			}
			yield(ir.Null{})
		}
	}
	var base iter.Seq[ir.Value]
	if spec.Set != nil && spec.Set.HasWhitelist() {
		base = g.whitelist(spec)
	} else {
		base = g.byKind(f, spec)
	}
	if spec.MustNotBeNull() {
		return base
	}
	return g.withNull(base)
}

// Take collects up to n values from seq.
func Take(seq iter.Seq[ir.Value], n int) []ir.Value {
	var out []ir.Value
	if n <= 0 {
		return out
	}
	for v := range seq {
		out = append(out, v)
		if len(out) == n {
			break
		}
	}
	return out
}

func (g *Generator) withNull(base iter.Seq[ir.Value]) iter.Seq[ir.Value] {
	return func(yield func(ir.Value) bool) {
		if g.mode != ModeRandom {
			for v := range base {
				if !yield(v) {
					return
				}
			}
			yield(ir.Null{})
			return
		}
		for v := range base {
			if g.rng.IntN(nullOneIn) == 0 && !yield(ir.Null{}) {
				return
			}
			if !yield(v) {
				return
			}
		}
		for yield(ir.Null{}) {
		}
	}
}

func (g *Generator) whitelist(spec *fieldspec.FieldSpec) iter.Seq[ir.Value] {
	var values []ir.Value
	for _, v := range spec.Set.WhitelistValues() {
		if spec.Permits(v) {
			values = append(values, v)
		}
	}
	return func(yield func(ir.Value) bool) {
		if g.mode != ModeRandom {
			for _, v := range values {
				if !yield(v) {
					return
				}
			}
			return
		}
		if len(values) == 0 {
			return
		}
		for yield(values[g.rng.IntN(len(values))]) {
		}
	}
}

// kinds picks the base types to draw. Without a type restriction, the kinds
// the spec restricts are preferred, and an entirely open spec draws strings.
func kinds(spec *fieldspec.FieldSpec) []ir.DataType {
	if spec.Types != nil {
		return spec.Types.Types()
	}
	var hinted []ir.DataType
	if spec.Numeric != nil {
		hinted = append(hinted, ir.TypeNumeric)
	}
	if spec.Strings != nil {
		hinted = append(hinted, ir.TypeString)
	}
	if spec.DateTime != nil {
		hinted = append(hinted, ir.TypeDateTime)
	}
	if len(hinted) == 0 {
		return []ir.DataType{ir.TypeString}
	}
	return hinted
}

func (g *Generator) byKind(f ir.Field, spec *fieldspec.FieldSpec) iter.Seq[ir.Value] {
	var seqs []iter.Seq[ir.Value]
	for _, k := range kinds(spec) {
		switch k {
		case ir.TypeNumeric:
			seqs = append(seqs, g.numeric(spec))
		case ir.TypeString:
			seqs = append(seqs, g.stringValues(f, spec))
		case ir.TypeDateTime:
			seqs = append(seqs, g.datetimes(spec))
		}
	}
	switch {
	case len(seqs) == 1:
		return seqs[0]
	case g.mode == ModeInteresting:
		return concat(seqs)
	case g.mode == ModeRandom:
		return interleave(seqs, g.rng.IntN)
	default:
		next := 0
		return interleave(seqs, func(n int) int {
			next++
			return (next - 1) % n
		})
	}
}

func concat(seqs []iter.Seq[ir.Value]) iter.Seq[ir.Value] {
	return func(yield func(ir.Value) bool) {
		for _, seq := range seqs {
			for v := range seq {
				if !yield(v) {
					return
				}
			}
		}
	}
}

// interleave pulls from the sequence pick chooses until all are exhausted.
func interleave(seqs []iter.Seq[ir.Value], pick func(n int) int) iter.Seq[ir.Value] {
	return func(yield func(ir.Value) bool) {
		type puller struct {
			next func() (ir.Value, bool)
			stop func()
		}
		live := make([]puller, 0, len(seqs))
		for _, seq := range seqs {
			next, stop := iter.Pull(seq)
			live = append(live, puller{next, stop})
		}
		defer func() {
			for _, p := range live {
				p.stop()
			}
		}()
		for len(live) > 0 {
			i := pick(len(live))
			v, ok := live[i].next()
			if !ok {
				live[i].stop()
				live = append(live[:i], live[i+1:]...)
				continue
			}
			if !yield(v) {
				return
			}
		}
	}
}

// drawn yields draw(0), draw(1), ... that spec permits, skipping repeats
// when distinct, stopping after limit values (0 is unlimited) or maxMisses
// consecutive rejections.
func drawn(spec *fieldspec.FieldSpec, draw func(i int) ir.Value, distinct bool, limit int) iter.Seq[ir.Value] {
	return func(yield func(ir.Value) bool) {
		seen := map[string]bool{}
		misses, emitted := 0, 0
		for i := 0; limit <= 0 || emitted < limit; i++ {
			v := draw(i)
			if !spec.Permits(v) || (distinct && seen[v.Hash()]) {
				misses++
				if misses >= maxMisses {
					return
				}
				continue
			}
			misses = 0
			if distinct {
				seen[v.Hash()] = true
			}
			emitted++
			if !yield(v) {
				return
			}
		}
	}
}

// numericRange is an interval at the granularity values are drawn with.
type numericRange struct {
	lo, hi       ir.Decimal
	step         ir.Decimal
	boundedAbove bool
}

// generationRange widens the default granularity to whole numbers when the
// interval holds one, and fills unbounded sides with a default window.
func generationRange(n *restrictions.NumericRestrictions) (numericRange, bool) {
	if n == nil {
		n = restrictions.NewNumericRestrictions()
	}
	if n.Scale == restrictions.DefaultNumericScale {
		whole := *n
		whole.Scale = 0
		if whole.Satisfiable() {
			n = &whole
		}
	}
	if !n.Satisfiable() {
		return numericRange{}, false
	}
	window := ir.DecimalFromInt(numericWindow)
	lo, hasLo := n.LowerBound()
	hi, hasHi := n.UpperBound()
	switch {
	case !hasLo && !hasHi:
		lo, hi = ir.DecimalFromInt(0), window
	case !hasLo:
		lo = sub(hi, window)
	case !hasHi:
		hi = add(lo, window)
	}
	return numericRange{lo: lo, hi: hi, step: n.Step(), boundedAbove: hasHi}, true
}

func (g *Generator) numeric(spec *fieldspec.FieldSpec) iter.Seq[ir.Value] {
	r, ok := generationRange(spec.Numeric)
	if !ok {
		return func(func(ir.Value) bool) {}
	}
	switch g.mode {
	case ModeInteresting:
		candidates := []ir.Value{r.lo, r.hi, ir.DecimalFromInt(0)}
		return drawn(spec, func(i int) ir.Value {
			if i < len(candidates) {
				return candidates[i]
			}
			return candidates[0]
		}, true, len(candidates))

	case ModeRandom:
		return drawn(spec, func(int) ir.Value {
			return add(r.lo, mul(randomSteps(g.rng, r), r.step))
		}, false, 0)

	default:
		return func(yield func(ir.Value) bool) {
			misses := 0
			for v := r.lo; !r.boundedAbove || v.Cmp(r.hi) <= 0; v = add(v, r.step) {
				if !spec.Permits(v) {
					misses++
					if misses >= maxMisses && !r.boundedAbove {
						return
					}
					continue
				}
				misses = 0
				if !yield(v) {
					return
				}
			}
		}
	}
}

// twoPow63 is the exclusive upper bound of rand.Int64.
var twoPow63 = func() *apd.Decimal {
	d, _, err := apd.NewFromString("9223372036854775808")
	if err != nil {
		panic(err)
	}
	return d
}()

// randomSteps draws a whole number of steps k with lo + k*step <= hi.
func randomSteps(rng *rand.Rand, r numericRange) ir.Decimal {
	var span, count apd.Decimal
	ir.DecimalContext.Sub(&span, r.hi.Apd(), r.lo.Apd())
	ir.DecimalContext.Quo(&count, &span, r.step.Apd())
	ir.DecimalContext.Floor(&count, &count)
	if c, err := count.Int64(); err == nil && c < math.MaxInt64 {
		return ir.DecimalFromInt(rng.Int64N(c + 1))
	}
	// Too many steps for an int64: scale count by a uniform fraction.
	var k apd.Decimal
	ir.DecimalContext.Mul(&k, &count, apd.New(rng.Int64(), 0))
	ir.DecimalContext.Quo(&k, &k, twoPow63)
	ir.DecimalContext.Floor(&k, &k)
	return ir.DecimalFromApd(&k)
}

func add(a, b ir.Decimal) ir.Decimal {
	var r apd.Decimal
	ir.DecimalContext.Add(&r, a.Apd(), b.Apd())
	return ir.DecimalFromApd(&r)
}

func sub(a, b ir.Decimal) ir.Decimal {
	var r apd.Decimal
	ir.DecimalContext.Sub(&r, a.Apd(), b.Apd())
	return ir.DecimalFromApd(&r)
}

func mul(a, b ir.Decimal) ir.Decimal {
	var r apd.Decimal
	ir.DecimalContext.Mul(&r, a.Apd(), b.Apd())
	return ir.DecimalFromApd(&r)
}

func (g *Generator) stringValues(f ir.Field, spec *fieldspec.FieldSpec) iter.Seq[ir.Value] {
	if key, ok := g.custom[f]; ok && key != "" {
		if factory, ok := g.registry.Lookup(key); ok {
			return g.customValues(spec, factory)
		}
	}
	s := spec.Strings
	if s == nil {
		s = restrictions.StringLength(0, -1)
	}
	if sampler := samplerFor(s); sampler != nil {
		return g.sampled(spec, sampler)
	}
	return g.plainStrings(spec, s)
}

func (g *Generator) customValues(spec *fieldspec.FieldSpec, factory Factory) iter.Seq[ir.Value] {
	draw := func(int) ir.Value { return factory(g.rng) }
	switch g.mode {
	case ModeInteresting:
		return drawn(spec, draw, true, 2)
	case ModeRandom:
		return drawn(spec, draw, false, 0)
	default:
		return drawn(spec, draw, true, 0)
	}
}

// samplerFor builds a sampler from the first positive pattern clause,
// preferring full-match clauses. Strings matching a contains clause's
// pattern contain a match of it.
func samplerFor(s *restrictions.StringRestrictions) *regexSampler {
	space, ok := s.Space.(*restrictions.RegexSpace)
	if !ok {
		return nil
	}
	var chosen *restrictions.RegexClause
	for _, c := range space.Clauses() {
		if c.Negated {
			continue
		}
		if !c.Contains {
			chosen = &c
			break
		}
		if chosen == nil {
			chosen = &c
		}
	}
	if chosen == nil {
		return nil
	}
	sampler, err := newRegexSampler(chosen.Pattern)
	if err != nil {
		return nil
	}
	return sampler
}

func (g *Generator) sampled(spec *fieldspec.FieldSpec, sampler *regexSampler) iter.Seq[ir.Value] {
	switch g.mode {
	case ModeRandom:
		return drawn(spec, func(int) ir.Value {
			return ir.String(sampler.sample(g.rng, false))
		}, false, 0)
	default:
		// Finite modes draw from a fixed stream so the same spec always
		// yields the same strings.
		local := rand.New(rand.NewPCG(0, 0))
		limit := 0
		if g.mode == ModeInteresting {
			limit = 2
		}
		return drawn(spec, func(i int) ir.Value {
			return ir.String(sampler.sample(local, i == 0))
		}, true, limit)
	}
}

// lengthRange is the span of lengths plain strings are drawn from.
func lengthRange(s *restrictions.StringRestrictions) (int, int, bool) {
	lo := max(s.MinLength, 1)
	if s.MaxLength != nil && *s.MaxLength == 0 {
		lo = 0
	}
	if s.MaxLength != nil {
		return lo, *s.MaxLength, true
	}
	return lo, lo + randomStringSpan, false
}

func (g *Generator) plainStrings(spec *fieldspec.FieldSpec, s *restrictions.StringRestrictions) iter.Seq[ir.Value] {
	lo, hi, bounded := lengthRange(s)
	switch g.mode {
	case ModeInteresting:
		var candidates []ir.Value
		for n := lo; n <= hi; n++ {
			if s.LengthAllowed(n) {
				candidates = append(candidates, ir.String(strings.Repeat("a", n)))
				break
			}
		}
		if bounded {
			for n := hi; n >= lo; n-- {
				if s.LengthAllowed(n) {
					candidates = append(candidates, ir.String(strings.Repeat("z", n)))
					break
				}
			}
		}
		return func(yield func(ir.Value) bool) {
			seen := map[string]bool{}
			for _, v := range candidates {
				if seen[v.Hash()] || !spec.Permits(v) {
					continue
				}
				seen[v.Hash()] = true
				if !yield(v) {
					return
				}
			}
		}

	case ModeRandom:
		top := min(hi, lo+randomStringSpan)
		return drawn(spec, func(int) ir.Value {
			n := lo + g.rng.IntN(top-lo+1)
			b := make([]byte, n)
			for i := range b {
				b[i] = byte('a' + g.rng.IntN(26))
			}
			return ir.String(b)
		}, false, 0)

	default:
		return func(yield func(ir.Value) bool) {
			for n := lo; !bounded || n <= hi; n++ {
				if !s.LengthAllowed(n) {
					continue
				}
				for str := range lexicographic(n) {
					v := ir.String(str)
					if spec.Permits(v) && !yield(v) {
						return
					}
				}
			}
		}
	}
}

// lexicographic yields every lowercase ASCII string of length n in order.
func lexicographic(n int) iter.Seq[string] {
	return func(yield func(string) bool) {
		b := []byte(strings.Repeat("a", n))
		for {
			if !yield(string(b)) {
				return
			}
			i := n - 1
			for i >= 0 && b[i] == 'z' {
				b[i] = 'a'
				i--
			}
			if i < 0 {
				return
			}
			b[i]++
		}
	}
}

func (g *Generator) datetimes(spec *fieldspec.FieldSpec) iter.Seq[ir.Value] {
	lo, hi := defaultEarliest, defaultLatest
	if d := spec.DateTime; d != nil {
		if !d.Satisfiable() {
			return func(func(ir.Value) bool) {}
		}
		if l, ok := d.LowerBound(); ok {
			lo = l.Time()
		}
		if h, ok := d.UpperBound(); ok {
			hi = h.Time()
		}
	}
	if lo.After(hi) {
		return func(func(ir.Value) bool) {}
	}
	switch g.mode {
	case ModeInteresting:
		candidates := []ir.Value{ir.NewDateTime(lo), ir.NewDateTime(hi)}
		return drawn(spec, func(i int) ir.Value {
			return candidates[i%len(candidates)]
		}, true, len(candidates))

	case ModeRandom:
		loS, hiS := lo.Unix(), hi.Unix()
		return drawn(spec, func(int) ir.Value {
			t := time.Unix(loS+g.rng.Int64N(hiS-loS+1), 0).UTC()
			if t.Before(lo) {
				t = lo
			}
			if t.After(hi) {
				t = hi
			}
			return ir.NewDateTime(t)
		}, false, 0)

	default:
		return func(yield func(ir.Value) bool) {
			for t := lo; !t.After(hi); t = t.AddDate(0, 0, 1) {
				v := ir.NewDateTime(t)
				if spec.Permits(v) && !yield(v) {
					return
				}
			}
		}
	}
}
