package generate

import (
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/biter777/countries"
	"github.com/go-faker/faker/v4"
	fakeropts "github.com/go-faker/faker/v4/pkg/options"

	"github.com/roach88/profilegen/internal/ir"
)

// Factory produces one value per call. Factories must be safe to call from
// several generators at once; r belongs to the calling generator.
type Factory func(r *rand.Rand) ir.Value

// Registry maps custom generator keys to factories. Profiles name a key per
// field; the registry is populated once at startup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: map[string]Factory{}}
}

// Register adds or replaces the factory for key.
func (r *Registry) Register(key string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[key] = f
}

// Lookup returns the factory for key.
func (r *Registry) Lookup(key string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[key]
	return f, ok
}

// Keys returns the registered keys, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.factories))
	for k := range r.factories {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

var fakerGenerators = map[string]func(...fakeropts.OptionFunc) string{
	"name":       faker.Name,
	"first_name": faker.FirstName,
	"last_name":  faker.LastName,
	"email":      faker.Email,
	"currency":   faker.Currency,
	"uuid":       faker.UUIDHyphenated,
	"word":       faker.Word,
	"sentence":   faker.Sentence,
	"phone":      faker.Phonenumber,
}

// DefaultRegistry returns a registry holding the built-in generators: the
// faker-backed person and text generators, plus "country" (ISO 3166-1
// alpha-2 codes) and "country_name".
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for key, gen := range fakerGenerators {
		r.Register(key, func(*rand.Rand) ir.Value {
			return ir.String(gen())
		})
	}
	r.Register("country", func(rng *rand.Rand) ir.Value {
		return ir.String(pickCountry(rng).Alpha2())
	})
	r.Register("country_name", func(rng *rand.Rand) ir.Value {
		return ir.String(pickCountry(rng).Info().Name)
	})
	return r
}

var knownCountries = sync.OnceValue(func() []countries.CountryCode {
	all := countries.All()
	out := make([]countries.CountryCode, 0, len(all))
	for _, c := range all {
		if c != countries.Unknown {
			out = append(out, c)
		}
	}
	return out
})

func pickCountry(r *rand.Rand) countries.CountryCode {
	all := knownCountries()
	return all[r.IntN(len(all))]
}
