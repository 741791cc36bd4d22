package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
	"gopkg.in/yaml.v3"

	"github.com/roach88/profilegen/internal/compiler"
	"github.com/roach88/profilegen/internal/constraint"
	"github.com/roach88/profilegen/internal/engine"
	"github.com/roach88/profilegen/internal/generate"
	"github.com/roach88/profilegen/internal/store"
	"github.com/roach88/profilegen/internal/testutil"
)

// defaultSeed is used when a scenario does not pick one.
const defaultSeed = 1

// Harness holds the state of one scenario run.
type Harness struct {
	scenario *Scenario
	profile  *constraint.Profile
	engine   *engine.Engine
	store    *store.Store
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory store with a fixed seed,
// run ID and clock, so two runs of the same scenario produce the same
// result.
//
// Execution flow:
// 1. Load and compile the profile
// 2. Walk it into RowSpecs and sort the listing
// 3. Compare the listing and contradiction flag with the expectation
// 4. Evaluate assertions, generating and persisting rows if any need them
//
// A returned error means the scenario could not be run at all: the profile
// failed to load or validate, or the config names an unknown strategy.
// Expectation and assertion failures are reported on the Result.
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	profile, err := scenario.LoadProfile()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		scenario: scenario,
		profile:  profile,
		store:    st,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	opts := h.engineOptions()
	h.engine = engine.New(opts...)

	result := NewResult()
	specs, err := h.engine.RowSpecs(ctx, profile)
	switch {
	case compiler.IsContradiction(err):
		result.Contradiction = true
	case err != nil:
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	default:
		for _, rs := range specs {
			result.RowSpecs = append(result.RowSpecs, rs.String())
		}
		slices.Sort(result.RowSpecs)
	}

	h.checkExpectation(result)

	actx := &AssertionContext{
		Ctx:     ctx,
		Options: opts,
		Profile: profile,
		Store:   st,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}
	if actx.run != nil {
		result.Rows = len(actx.run.Rows)
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"row_specs", len(result.RowSpecs),
	)
	return result, nil
}

// LoadProfile compiles the scenario's profile, inline or from its file.
func (s *Scenario) LoadProfile() (*constraint.Profile, error) {
	if s.ProfileFile == "" {
		data, err := yaml.Marshal(&s.Profile)
		if err != nil {
			return nil, fmt.Errorf("scenario %s: failed to encode profile: %w", s.Name, err)
		}
		return compileProfile(data, yamlProfile, s.Name)
	}

	path := s.profilePath()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}
	kind := yamlProfile
	if strings.EqualFold(filepath.Ext(path), ".cue") {
		kind = cueProfile
	}
	return compileProfile(data, kind, path)
}

type profileKind int

const (
	yamlProfile profileKind = iota
	cueProfile
)

func compileProfile(data []byte, kind profileKind, name string) (*constraint.Profile, error) {
	var (
		p   *constraint.Profile
		err error
	)
	switch kind {
	case cueProfile:
		v := cuecontext.New().CompileBytes(data, cue.Filename(name))
		if v.Err() != nil {
			return nil, fmt.Errorf("%s: %w", name, v.Err())
		}
		p, err = compiler.CompileProfileCUE(v)
	default:
		p, err = compiler.CompileProfileYAML(data)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return p, nil
}

// engineOptions turns the scenario config into deterministic engine
// options. Strategy names are passed through unchecked; the engine reports
// unknown ones.
func (h *Harness) engineOptions() []engine.EngineOption {
	cfg := h.scenario.Config
	opts := []engine.EngineOption{
		engine.WithLogger(h.logger),
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(h.scenario.Name)),
		engine.WithNow(testutil.NewSteppingClock(time.Second).Now),
		engine.WithSeed(defaultSeed),
		engine.WithMaxStringLength(0),
	}
	if cfg.Seed != 0 {
		opts = append(opts, engine.WithSeed(cfg.Seed))
	}
	if cfg.Walker != "" {
		opts = append(opts, engine.WithWalker(engine.WalkerKind(cfg.Walker)))
	}
	if cfg.FieldSelection != "" {
		opts = append(opts, engine.WithFieldSelection(engine.FieldSelection(cfg.FieldSelection)))
	}
	if cfg.Mode != "" {
		opts = append(opts, engine.WithGenerationMode(generate.Mode(cfg.Mode)))
	}
	if cfg.Combination != "" {
		opts = append(opts, engine.WithCombination(engine.Combination(cfg.Combination)))
	}
	if cfg.Partition != nil {
		opts = append(opts, engine.WithPartitioning(*cfg.Partition))
	}
	if cfg.MaxStringLength != nil {
		opts = append(opts, engine.WithMaxStringLength(*cfg.MaxStringLength))
	}
	return opts
}

func (h *Harness) checkExpectation(result *Result) {
	expect := h.scenario.Expect
	if expect.Contradiction != result.Contradiction {
		result.AddError(fmt.Sprintf("contradiction: expected %v, got %v", expect.Contradiction, result.Contradiction))
		return
	}
	if expect.RowSpecs == nil {
		return
	}

	want := slices.Clone(expect.RowSpecs)
	slices.Sort(want)
	if !slices.Equal(want, result.RowSpecs) {
		result.AddError("row_specs differ (- expected, + actual):\n" + DiffListing(want, result.RowSpecs))
	}
}

// DiffListing renders a line diff between two listings. Unchanged lines
// are prefixed with two spaces, removed lines with "- " and added lines
// with "+ ".
func DiffListing(want, got []string) string {
	dmp := diffpatch.New()
	a, b, lines := dmp.DiffLinesToChars(joinLines(want), joinLines(got))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var buf strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffpatch.DiffDelete:
			prefix = "- "
		case diffpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			buf.WriteString(prefix)
			buf.WriteString(line)
		}
	}
	return buf.String()
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}
