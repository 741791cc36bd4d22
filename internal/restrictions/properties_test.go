package restrictions

import (
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/roach88/profilegen/internal/ir"
)

type equaler[T any] interface {
	Equal(T) bool
}

func sameOutcome[T equaler[T]](x, y Merged[T]) bool {
	if x.IsContradictory() || y.IsContradictory() {
		return x.IsContradictory() == y.IsContradictory()
	}
	return x.Value().Equal(y.Value())
}

// addAlgebraProperties registers commutativity, associativity and
// contradiction monotonicity for one restriction kind.
func addAlgebraProperties[T equaler[T]](properties *gopter.Properties, kind string, random func(*rand.Rand) T, merge func(a, b T) Merged[T]) {
	triple := func(seed uint64) (T, T, T) {
		rng := rand.New(rand.NewPCG(seed, 7))
		return random(rng), random(rng), random(rng)
	}

	properties.Property(kind+" merge is commutative", prop.ForAll(
		func(seed uint64) bool {
			a, b, _ := triple(seed)
			return sameOutcome(merge(a, b), merge(b, a))
		},
		gen.UInt64(),
	))

	properties.Property(kind+" merge is associative", prop.ForAll(
		func(seed uint64) bool {
			a, b, c := triple(seed)
			left := Then(merge(a, b), func(ab T) Merged[T] { return merge(ab, c) })
			right := Then(merge(b, c), func(bc T) Merged[T] { return merge(a, bc) })
			return sameOutcome(left, right)
		},
		gen.UInt64(),
	))

	properties.Property(kind+" merge never resolves a contradiction", prop.ForAll(
		func(seed uint64) bool {
			a, b, x := triple(seed)
			if !merge(a, b).IsContradictory() {
				return true
			}
			return Then(merge(a, x), func(ax T) Merged[T] { return merge(ax, b) }).IsContradictory()
		},
		gen.UInt64(),
	))

	properties.Property(kind+" merge is never looser than its inputs", prop.ForAll(
		func(seed uint64) bool {
			a, b, _ := triple(seed)
			ab := merge(a, b)
			if ab.IsContradictory() {
				return true
			}
			// Merging the result with either input again changes nothing.
			return sameOutcome(merge(ab.Value(), a), ab) && sameOutcome(merge(ab.Value(), b), ab)
		},
		gen.UInt64(),
	))
}

func randomNumeric(rng *rand.Rand) *NumericRestrictions {
	limit := func() *NumericLimit {
		if rng.IntN(3) == 0 {
			return nil
		}
		v := ir.MustDecimal(fmt.Sprintf("%d.%d", rng.IntN(11)-5, rng.IntN(2)*5))
		return &NumericLimit{Limit: v, Inclusive: rng.IntN(2) == 0}
	}
	scales := []int32{0, 1, DefaultNumericScale}
	return &NumericRestrictions{Min: limit(), Max: limit(), Scale: scales[rng.IntN(len(scales))]}
}

func randomDateTime(rng *rand.Rand) *DateTimeRestrictions {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	limit := func() *DateTimeLimit {
		if rng.IntN(3) == 0 {
			return nil
		}
		at := ir.NewDateTime(base.Add(time.Duration(rng.IntN(5)) * time.Hour))
		return &DateTimeLimit{Limit: at, Inclusive: rng.IntN(2) == 0}
	}
	return &DateTimeRestrictions{Min: limit(), Max: limit()}
}

func randomSet(rng *rand.Rand) *SetRestrictions {
	pool := []ir.Value{ir.String("a"), ir.String("b"), ir.String("c"), ir.DecimalFromInt(1), ir.MustDateTime("2024-01-01")}
	var picked []ir.Value
	for _, v := range pool {
		if rng.IntN(2) == 0 {
			picked = append(picked, v)
		}
	}
	if rng.IntN(2) == 0 {
		return Whitelist(picked...)
	}
	return Blacklist(picked...)
}

func randomType(rng *rand.Rand) *TypeRestrictions {
	var types []ir.DataType
	for _, dt := range ir.AllDataTypes() {
		if rng.IntN(3) > 0 {
			types = append(types, dt)
		}
	}
	return OnlyTypes(types...)
}

func randomNull(rng *rand.Rand) *NullRestrictions {
	return Null(Nullness(1 + rng.IntN(2)))
}

func randomString(rng *rand.Rand) *StringRestrictions {
	var s *StringRestrictions
	switch rng.IntN(4) {
	case 0:
		s = StringLength(rng.IntN(4), rng.IntN(7)-1)
	case 1:
		s = StringShorterThan(rng.IntN(6))
	case 2:
		s = StringNotOfLength(rng.IntN(4))
	default:
		patterns := []string{`a+`, `[ab]*`, `abc`, `b`}
		clause, err := NewRegexClause(patterns[rng.IntN(len(patterns))], rng.IntN(2) == 0, rng.IntN(2) == 0)
		if err != nil {
			panic(err)
		}
		s = StringIn(NewRegexSpace(clause))
	}
	return s
}

func TestMergeAlgebra(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	addAlgebraProperties(properties, "numeric", randomNumeric, MergeNumeric)
	addAlgebraProperties(properties, "datetime", randomDateTime, MergeDateTime)
	addAlgebraProperties(properties, "set", randomSet, MergeSet)
	addAlgebraProperties(properties, "type", randomType, MergeType)
	addAlgebraProperties(properties, "null", randomNull, MergeNull)
	addAlgebraProperties(properties, "string", randomString, MergeString)

	properties.TestingRun(t)
}
