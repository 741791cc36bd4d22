package engine

import (
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/profilegen/internal/compiler"
	"github.com/roach88/profilegen/internal/constraint"
	"github.com/roach88/profilegen/internal/fieldspec"
	"github.com/roach88/profilegen/internal/generate"
	"github.com/roach88/profilegen/internal/ir"
	"github.com/roach88/profilegen/internal/tree"
)

const (
	// DefaultMaxRows caps the rows of one run.
	DefaultMaxRows = 1000

	// DefaultMaxStringLength caps every string field.
	DefaultMaxStringLength = 1000

	// DefaultParallelism bounds concurrent partition walks.
	DefaultParallelism = 4

	// DefaultMaxRowSpecs bounds the RowSpecs of one partition walk and of
	// the partition join.
	DefaultMaxRowSpecs = 100_000

	// valuesPerField caps each field's value list when rows are unlimited.
	valuesPerField = 1000
)

// Settings are the generation choices of one engine. They are recorded on
// every Run so a run can be reproduced.
type Settings struct {
	Walker          WalkerKind     `json:"walker"`
	FieldSelection  FieldSelection `json:"field_selection"`
	Mode            generate.Mode  `json:"mode"`
	Combination     Combination    `json:"combination"`
	MaxRows         int            `json:"max_rows"`
	MaxStringLength int            `json:"max_string_length"`
	Partition       bool           `json:"partition"`
	Parallelism     int            `json:"parallelism"`
	Seed            uint64         `json:"seed"`
	Violate         bool           `json:"violate"`
}

// DefaultSettings returns the settings New starts from.
func DefaultSettings() Settings {
	return Settings{
		Walker:          WalkerCartesian,
		FieldSelection:  SelectFrequency,
		Mode:            generate.ModeFullSequential,
		Combination:     CombinePinning,
		MaxRows:         DefaultMaxRows,
		MaxStringLength: DefaultMaxStringLength,
		Partition:       true,
		Parallelism:     DefaultParallelism,
	}
}

// Engine compiles profiles into decision trees, walks them into RowSpecs and
// turns RowSpecs into rows.
//
// An Engine holds no per-run state; Generate, RowSpecs and Stream may be
// called concurrently.
type Engine struct {
	settings    Settings
	maxRowSpecs int
	logger      *slog.Logger
	registry    *generate.Registry
	runIDs      RunIDGenerator
	now         func() time.Time
	memo        *tree.FieldMemo
}

// EngineOption allows configuration of engine parameters.
type EngineOption func(*Engine)

// WithSettings replaces every generation setting at once.
func WithSettings(s Settings) EngineOption {
	return func(e *Engine) {
		e.settings = s
	}
}

// WithWalker selects the walking strategy.
func WithWalker(k WalkerKind) EngineOption {
	return func(e *Engine) {
		e.settings.Walker = k
	}
}

// WithFieldSelection selects the reductive walker's field heuristic.
func WithFieldSelection(s FieldSelection) EngineOption {
	return func(e *Engine) {
		e.settings.FieldSelection = s
	}
}

// WithGenerationMode selects how values are drawn.
func WithGenerationMode(m generate.Mode) EngineOption {
	return func(e *Engine) {
		e.settings.Mode = m
	}
}

// WithCombination selects how per-field values become rows.
func WithCombination(c Combination) EngineOption {
	return func(e *Engine) {
		e.settings.Combination = c
	}
}

// WithMaxRows caps the rows of a run.
//
// Default: 1000 rows (DefaultMaxRows). Zero means unlimited in the finite
// modes; random mode always stops at a limit.
func WithMaxRows(n int) EngineOption {
	return func(e *Engine) {
		e.settings.MaxRows = n
	}
}

// WithMaxStringLength caps every string field. Zero disables the cap.
func WithMaxStringLength(n int) EngineOption {
	return func(e *Engine) {
		e.settings.MaxStringLength = n
	}
}

// WithPartitioning turns splitting into independent partitions on or off.
func WithPartitioning(on bool) EngineOption {
	return func(e *Engine) {
		e.settings.Partition = on
	}
}

// WithParallelism bounds concurrent partition walks.
func WithParallelism(n int) EngineOption {
	return func(e *Engine) {
		e.settings.Parallelism = n
	}
}

// WithSeed fixes the random seed. Zero picks a seed from the clock at the
// start of each run.
func WithSeed(seed uint64) EngineOption {
	return func(e *Engine) {
		e.settings.Seed = seed
	}
}

// WithViolation generates rows that break exactly one rule at a time.
func WithViolation(on bool) EngineOption {
	return func(e *Engine) {
		e.settings.Violate = on
	}
}

// WithLogger sets the engine logger. Default: discard.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithRegistry sets the custom value generator registry.
func WithRegistry(r *generate.Registry) EngineOption {
	return func(e *Engine) {
		e.registry = r
	}
}

// WithRunIDGenerator sets the run ID source. Use NewFixedGenerator in tests.
func WithRunIDGenerator(g RunIDGenerator) EngineOption {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithNow sets the wall clock used for Run.StartedAt and clock seeds.
func WithNow(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithMaxRowSpecs bounds the RowSpecs of a walk.
//
// Default: 100000 (DefaultMaxRowSpecs). Non-positive disables the bound.
func WithMaxRowSpecs(n int) EngineOption {
	return func(e *Engine) {
		e.maxRowSpecs = n
	}
}

// New creates an Engine with DefaultSettings adjusted by opts.
func New(opts ...EngineOption) *Engine {
	e := &Engine{
		settings:    DefaultSettings(),
		maxRowSpecs: DefaultMaxRowSpecs,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		runIDs:      UUIDv7Generator{},
		now:         time.Now,
		memo:        tree.NewFieldMemo(0),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.registry == nil {
		e.registry = generate.DefaultRegistry()
	}
	return e
}

// Settings returns the engine's generation settings.
func (e *Engine) Settings() Settings {
	return e.settings
}

// Run is the result of one Generate call.
type Run struct {
	ID          string
	ProfileHash string
	Description string
	Fields      ir.ProfileFields
	Settings    Settings
	StartedAt   time.Time
	RowSpecs    []fieldspec.RowSpec
	Rows        []Row
}

// Row is one generated row.
type Row struct {
	// Seq numbers rows within a run, starting at 1.
	Seq int64

	// Values maps field names to values; every schema field is present.
	Values ir.Row

	// RowSpec indexes the RowSpec the row was drawn from.
	RowSpec int

	// Violated names the rule the row breaks, empty for valid rows.
	Violated string
}

// target is one profile to generate from: the profile itself, or one of
// its violations.
type target struct {
	profile  *constraint.Profile
	violated string
}

// RowSpecs compiles p and walks it. Partitions are walked concurrently and
// joined in partition order. A contradictory profile returns an E201
// *compiler.ValidationError.
func (e *Engine) RowSpecs(ctx context.Context, p *constraint.Profile) ([]fieldspec.RowSpec, error) {
	if err := e.check(p); err != nil {
		return nil, err
	}
	return e.rowSpecs(ctx, "", p, e.seed(), 0)
}

// Generate produces a Run of rows for p.
//
// In the finite modes every RowSpec contributes rows until MaxRows is
// reached. In random mode RowSpecs take turns, one row each, so every
// RowSpec is represented.
func (e *Engine) Generate(ctx context.Context, p *constraint.Profile) (*Run, error) {
	if err := e.check(p); err != nil {
		return nil, err
	}

	settings := e.settings
	settings.Seed = e.seed()
	run := &Run{
		ID:          e.runIDs.Generate(),
		ProfileHash: p.Hash,
		Description: p.Description,
		Fields:      p.Fields,
		Settings:    settings,
		StartedAt:   e.now().UTC(),
	}
	log := e.logger.With("run_id", run.ID)
	log.Info("run started",
		"walker", settings.Walker,
		"mode", settings.Mode,
		"seed", settings.Seed,
		"violate", settings.Violate,
	)

	limit := settings.MaxRows
	if limit <= 0 && settings.Mode == generate.ModeRandom {
		limit = DefaultMaxRows
	}
	sink := newRowSink(limit, func(r Row) bool {
		run.Rows = append(run.Rows, r)
		return true
	})

	for i, tg := range e.targets(p) {
		if sink.done() {
			break
		}
		specs, err := e.rowSpecs(ctx, run.ID, tg.profile, settings.Seed, uint64(i))
		if err != nil {
			if tg.violated != "" && compiler.IsContradiction(err) {
				log.Info("violation skipped", "rule", tg.violated, "error", err)
				continue
			}
			return nil, err
		}
		offset := len(run.RowSpecs)
		run.RowSpecs = append(run.RowSpecs, specs...)

		gen := e.generator(tg.profile, settings.Seed, stream(uint64(i), 0))
		if _, err := e.emitRows(ctx, run.ID, gen, p.Fields, slices.Values(specs), offset, tg.violated, sink); err != nil {
			return nil, err
		}
	}

	if len(run.Rows) == 0 && len(run.RowSpecs) > 0 {
		return nil, NewNoValuesError(run.ID, len(run.RowSpecs))
	}
	log.Info("run finished", "row_specs", len(run.RowSpecs), "rows", len(run.Rows))
	return run, nil
}

// Stream yields rows for p as they are produced. The tree is walked lazily
// and unpartitioned: when yield returns false the walk stops. Random mode
// collects the RowSpecs first so they can take turns.
//
// MaxRows still applies; zero streams until yield stops.
func (e *Engine) Stream(ctx context.Context, p *constraint.Profile, yield func(Row) bool) error {
	if err := e.check(p); err != nil {
		return err
	}

	runID := e.runIDs.Generate()
	seed := e.seed()
	sink := newRowSink(e.settings.MaxRows, yield)
	offset := 0
	for i, tg := range e.targets(p) {
		if sink.done() {
			break
		}
		parts, err := e.compile(tg.profile, false)
		if err != nil {
			if tg.violated != "" && compiler.IsContradiction(err) {
				continue
			}
			return err
		}
		t := parts[0]
		walker := e.walker(tg.profile, seed, stream(uint64(i), 1))
		dedupe := NewRowSpecDeduper()
		specs := func(yield func(fieldspec.RowSpec) bool) {
			for rs := range walker.Walk(t) {
				if dedupe.Observe(0, rs) && !yield(rs) {
					return
				}
			}
		}

		gen := e.generator(tg.profile, seed, stream(uint64(i), 0))
		n, err := e.emitRows(ctx, runID, gen, p.Fields, specs, offset, tg.violated, sink)
		if err != nil {
			return err
		}
		offset += n
	}
	return nil
}

// check validates settings and the profile's structure.
func (e *Engine) check(p *constraint.Profile) error {
	if _, err := ParseWalkerKind(string(e.settings.Walker)); err != nil {
		return NewUnknownStrategyError("walker", err)
	}
	if _, err := ParseFieldSelection(string(e.settings.FieldSelection)); err != nil {
		return NewUnknownStrategyError("field_selection", err)
	}
	if _, err := generate.ParseMode(string(e.settings.Mode)); err != nil {
		return NewUnknownStrategyError("mode", err)
	}
	if _, err := ParseCombination(string(e.settings.Combination)); err != nil {
		return NewUnknownStrategyError("combination", err)
	}

	if errs := compiler.ValidateProfile(p); len(errs) > 0 {
		return compiler.ValidationErrors(errs)
	}
	for _, f := range p.Fields {
		key := p.Generators[f]
		if key == "" {
			continue
		}
		if _, ok := e.registry.Lookup(key); !ok {
			return NewUnknownGeneratorError(f.Name, key)
		}
	}
	return nil
}

func (e *Engine) seed() uint64 {
	if e.settings.Seed != 0 {
		return e.settings.Seed
	}
	return uint64(e.now().UnixNano())
}

// stream derives a PCG stream from a target index and a slot within it, so
// every goroutine draws from its own reproducible sequence.
func stream(target, slot uint64) uint64 {
	return target<<32 | slot
}

func (e *Engine) targets(p *constraint.Profile) []target {
	if !e.settings.Violate {
		return []target{{profile: p}}
	}
	violations := compiler.ViolateProfile(p)
	out := make([]target, len(violations))
	for i, v := range violations {
		out[i] = target{profile: v.Profile, violated: v.Rule.Description}
	}
	return out
}

func (e *Engine) generator(p *constraint.Profile, seed, streamID uint64) *generate.Generator {
	return generate.New(e.settings.Mode, rand.New(rand.NewPCG(seed, streamID)),
		generate.WithRegistry(e.registry),
		generate.WithCustomGenerators(p.Generators),
	)
}

func (e *Engine) walker(p *constraint.Profile, seed, streamID uint64) Walker {
	if e.settings.Walker == WalkerReductive {
		return NewReductiveWalker(
			NewFieldSelector(e.settings.FieldSelection),
			e.generator(p, seed, streamID),
			WithFieldMemo(e.memo),
		)
	}
	return CartesianWalker{}
}

// compile builds p's tree, caps its strings, simplifies it and, when
// partition is set, splits it into independent trees.
func (e *Engine) compile(p *constraint.Profile, partition bool) ([]*tree.DecisionTree, error) {
	t, err := compiler.BuildTree(p)
	if err != nil {
		return nil, errors.Wrap(err, "build tree")
	}
	if t, err = compiler.InjectMaxStringLength(t, e.settings.MaxStringLength); err != nil {
		return nil, errors.Wrap(err, "cap string length")
	}
	if t, err = compiler.Simplify(t); err != nil {
		return nil, errors.Wrap(err, "simplify tree")
	}

	stats := tree.Measure(t.Root)
	e.logger.Debug("tree compiled",
		"constraint_nodes", stats.ConstraintNodes,
		"decision_nodes", stats.DecisionNodes,
		"depth", stats.Depth,
	)
	if !partition {
		return []*tree.DecisionTree{t}, nil
	}
	return compiler.Partition(t, e.memo), nil
}

func (e *Engine) rowSpecs(ctx context.Context, runID string, p *constraint.Profile, seed, targetID uint64) ([]fieldspec.RowSpec, error) {
	parts, err := e.compile(p, e.settings.Partition)
	if err != nil {
		return nil, err
	}
	walked, err := e.walkPartitions(ctx, runID, p, parts, seed, targetID)
	if err != nil {
		return nil, err
	}

	limit := NewRowLimit("partition join", e.maxRowSpecs)
	var out []fieldspec.RowSpec
	for rs := range joinPartitions(p.Fields, walked) {
		if err := limit.Check(); err != nil {
			return nil, asRuntimeError(err)
		}
		out = append(out, rs)
	}
	e.logger.Debug("row specs joined", "run_id", runID, "partitions", len(parts), "row_specs", len(out))
	return out, nil
}

// walkPartitions walks every partition concurrently. Results keep
// partition order.
func (e *Engine) walkPartitions(ctx context.Context, runID string, p *constraint.Profile, parts []*tree.DecisionTree, seed, targetID uint64) ([][]fieldspec.RowSpec, error) {
	results := make([][]fieldspec.RowSpec, len(parts))
	dedupe := NewRowSpecDeduper()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, e.settings.Parallelism))
	for i, part := range parts {
		g.Go(func() error {
			walker := e.walker(p, seed, stream(targetID, uint64(i)+1))
			limit := NewRowLimit(fmt.Sprintf("partition %d", i), e.maxRowSpecs)
			for rs := range walker.Walk(part) {
				if err := gctx.Err(); err != nil {
					return err
				}
				if !dedupe.Observe(i, rs) {
					continue
				}
				if err := limit.Check(); err != nil {
					return err
				}
				results[i] = append(results[i], rs)
			}
			e.logger.Debug("partition walked",
				"run_id", runID,
				"partition", i,
				"fields", part.Fields.String(),
				"row_specs", len(results[i]),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, NewCancelledError(runID, ctx.Err())
		}
		return nil, asRuntimeError(err)
	}
	return results, nil
}

// joinPartitions yields every combination of one RowSpec per partition,
// the last partition varying fastest. A partition without RowSpecs makes
// the whole profile yield none.
func joinPartitions(schema ir.ProfileFields, parts [][]fieldspec.RowSpec) iter.Seq[fieldspec.RowSpec] {
	return func(yield func(fieldspec.RowSpec) bool) {
		if len(parts) == 0 {
			yield(fieldspec.NewRowSpec(schema))
			return
		}
		for _, part := range parts {
			if len(part) == 0 {
				return
			}
		}
		exhaustive(parts, func(pick []fieldspec.RowSpec) bool {
			joined, ok := fieldspec.Join(schema, pick...).Get()
			if !ok {
				// Partitions cover disjoint fields.
				return true
			}
			return yield(joined)
		})
	}
}

// emitRows turns RowSpecs into rows and hands them to sink. It returns how
// many RowSpecs it consumed.
func (e *Engine) emitRows(
	ctx context.Context,
	runID string,
	gen *generate.Generator,
	schema ir.ProfileFields,
	specs iter.Seq[fieldspec.RowSpec],
	offset int,
	violated string,
	sink *rowSink,
) (int, error) {
	if gen.Mode() == generate.ModeRandom {
		collected := slices.Collect(specs)
		return len(collected), e.randomRows(ctx, runID, gen, schema, collected, offset, violated, sink)
	}

	n := 0
	for rs := range specs {
		if err := ctx.Err(); err != nil {
			return n, NewCancelledError(runID, err)
		}
		index := offset + n
		n++

		lists := make([][]ir.Value, len(schema))
		for i, f := range schema {
			lists[i] = generate.Take(gen.Values(f, rs.Get(f)), sink.remaining())
		}
		for values := range combine(e.settings.Combination, lists) {
			if !sink.emit(Row{Values: toRow(schema, values), RowSpec: index, Violated: violated}) {
				return n, nil
			}
		}
	}
	return n, nil
}

// randomRows lets RowSpecs take turns, one fresh draw per field each. A
// RowSpec that fails to produce a value drops out.
func (e *Engine) randomRows(
	ctx context.Context,
	runID string,
	gen *generate.Generator,
	schema ir.ProfileFields,
	specs []fieldspec.RowSpec,
	offset int,
	violated string,
	sink *rowSink,
) error {
	live := make([]int, len(specs))
	for i := range live {
		live[i] = i
	}
	for len(live) > 0 {
		if err := ctx.Err(); err != nil {
			return NewCancelledError(runID, err)
		}
		next := live[:0]
		for _, i := range live {
			values := make([]ir.Value, 0, len(schema))
			for _, f := range schema {
				drawn := generate.Take(gen.Values(f, specs[i].Get(f)), 1)
				if len(drawn) == 0 {
					break
				}
				values = append(values, drawn[0])
			}
			if len(values) < len(schema) {
				e.logger.Debug("row spec exhausted", "run_id", runID, "row_spec", offset+i)
				continue
			}
			next = append(next, i)
			if !sink.emit(Row{Values: toRow(schema, values), RowSpec: offset + i, Violated: violated}) {
				return nil
			}
		}
		live = next
	}
	return nil
}

func toRow(schema ir.ProfileFields, values []ir.Value) ir.Row {
	row := make(ir.Row, len(schema))
	for i, f := range schema {
		row[f.Name] = values[i]
	}
	return row
}

// rowSink numbers rows and stops once a limit is reached or the consumer
// stops. A non-positive limit never stops.
type rowSink struct {
	clock   *Clock
	limit   int
	stopped bool
	yield   func(Row) bool
}

func newRowSink(limit int, yield func(Row) bool) *rowSink {
	return &rowSink{clock: NewClock(), limit: limit, yield: yield}
}

// emit delivers r and reports whether more rows are wanted.
func (s *rowSink) emit(r Row) bool {
	if s.done() {
		return false
	}
	r.Seq = s.clock.Next()
	if !s.yield(r) {
		s.stopped = true
		return false
	}
	return !s.done()
}

func (s *rowSink) done() bool {
	return s.stopped || (s.limit > 0 && s.clock.Issued() >= int64(s.limit))
}

// remaining is how many values per field are worth drawing for the next
// RowSpec.
func (s *rowSink) remaining() int {
	if s.limit <= 0 {
		return valuesPerField
	}
	return max(1, s.limit-int(s.clock.Issued()))
}
