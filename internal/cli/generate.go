package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/profilegen/internal/compiler"
	"github.com/roach88/profilegen/internal/engine"
	"github.com/roach88/profilegen/internal/generate"
	"github.com/roach88/profilegen/internal/store"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	MaxRows         int
	MaxStringLength int
	Walker          string
	FieldSelection  string
	Mode            string
	Combination     string
	Seed            uint64
	Violate         bool
	NoPartition     bool
	RowSpecsOnly    bool
	Store           string
	Output          string

	// RunIDs overrides the run ID generator (for testing).
	RunIDs engine.RunIDGenerator
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	return newGenerateCommand(&GenerateOptions{RootOptions: rootOpts})
}

func newGenerateCommand(opts *GenerateOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <profile>",
		Short: "Generate rows that satisfy a profile",
		Long: `Generate rows from a profile.

Rows are written as CSV in text format, or as a JSON envelope with
--format json. Settings come from --config, then PROFILEGEN_* environment
variables, then flags given on the command line.

Exit codes:
  0 - Rows generated
  1 - Profile is invalid or contradictory
  2 - Command error (profile not found, unknown strategy, store failure)

Examples:
  profilegen generate profile.yaml --max-rows 100
  profilegen generate profile.cue --mode random --seed 7
  profilegen generate profile.yaml --violate --store runs.db
  profilegen generate profile.yaml --row-specs --walker reductive`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, args[0], cmd)
		},
	}

	defaults := engine.DefaultSettings()
	cmd.Flags().IntVarP(&opts.MaxRows, "max-rows", "n", defaults.MaxRows, "maximum rows to generate (0 = every combination)")
	cmd.Flags().IntVar(&opts.MaxStringLength, "max-string-length", defaults.MaxStringLength, "cap on string field length (0 = none)")
	cmd.Flags().StringVar(&opts.Walker, "walker", string(defaults.Walker), "tree walker (cartesian|reductive)")
	cmd.Flags().StringVar(&opts.FieldSelection, "field-selection", string(defaults.FieldSelection), "reductive field selection (frequency|constrained|schema)")
	cmd.Flags().StringVar(&opts.Mode, "mode", string(defaults.Mode), "value generation mode (full_sequential|interesting|random)")
	cmd.Flags().StringVar(&opts.Combination, "combination", string(defaults.Combination), "value combination (exhaustive|pinning|minimal)")
	cmd.Flags().Uint64Var(&opts.Seed, "seed", 0, "random seed (0 = from the clock)")
	cmd.Flags().BoolVar(&opts.Violate, "violate", false, "also generate rows that break one rule each")
	cmd.Flags().BoolVar(&opts.NoPartition, "no-partition", false, "walk the tree whole instead of by independent partitions")
	cmd.Flags().BoolVar(&opts.RowSpecsOnly, "row-specs", false, "print the row specs the tree walks to instead of rows")
	cmd.Flags().StringVar(&opts.Store, "store", "", "SQLite database to record the run in")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write rows to a file instead of stdout")

	return cmd
}

func runGenerate(opts *GenerateOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(formatter.GetErrWriter(), &slog.HandlerOptions{
		Level: logLevel,
	}))

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	cfg.Generation, err = opts.settings(cmd, cfg.Generation)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid flag", err)
	}
	storePath := cfg.Store.Path
	if cmd.Flags().Changed("store") {
		storePath = opts.Store
	}

	loaded, err := LoadProfile(path)
	if err != nil {
		return outputValidateError(formatter, loadErrorCode(err), err.Error(), nil)
	}
	logger.Debug("profile loaded", "path", path, "fields", len(loaded.Profile.Fields), "rules", len(loaded.Profile.Rules))

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	engineOpts := append(cfg.EngineOptions(), engine.WithLogger(logger))
	if opts.RunIDs != nil {
		engineOpts = append(engineOpts, engine.WithRunIDGenerator(opts.RunIDs))
	}
	eng := engine.New(engineOpts...)
	if opts.RowSpecsOnly {
		specs, err := eng.RowSpecs(ctx, loaded.Profile)
		if err != nil {
			return outputGenerateError(formatter, err)
		}
		return formatter.RowSpecs(NewRowSpecsResult(loaded.Profile.Hash, loaded.Profile.Fields, specs))
	}

	run, err := eng.Generate(ctx, loaded.Profile)
	if err != nil {
		return outputGenerateError(formatter, err)
	}

	if storePath != "" {
		if err := saveRun(ctx, storePath, run, logger); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
	}

	w := formatter.Writer
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to create output file", err)
		}
		defer f.Close()
		w = f
	}

	out := &OutputFormatter{Format: formatter.Format, Writer: w}
	if err := out.Rows(run); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to write rows", err)
	}
	formatter.VerboseLog("Generated %d row(s) from %d row spec(s), run %s", len(run.Rows), len(run.RowSpecs), run.ID)
	return nil
}

// settings applies the flags the user set on top of the configured
// settings. Strategy names are checked and normalized.
func (o *GenerateOptions) settings(cmd *cobra.Command, s engine.Settings) (engine.Settings, error) {
	flags := cmd.Flags()
	var err error
	if flags.Changed("max-rows") {
		if o.MaxRows < 0 {
			return s, fmt.Errorf("--max-rows must be non-negative")
		}
		s.MaxRows = o.MaxRows
	}
	if flags.Changed("max-string-length") {
		if o.MaxStringLength < 0 {
			return s, fmt.Errorf("--max-string-length must be non-negative")
		}
		s.MaxStringLength = o.MaxStringLength
	}
	if flags.Changed("walker") {
		if s.Walker, err = engine.ParseWalkerKind(o.Walker); err != nil {
			return s, err
		}
	}
	if flags.Changed("field-selection") {
		if s.FieldSelection, err = engine.ParseFieldSelection(o.FieldSelection); err != nil {
			return s, err
		}
	}
	if flags.Changed("mode") {
		if s.Mode, err = generate.ParseMode(o.Mode); err != nil {
			return s, err
		}
	}
	if flags.Changed("combination") {
		if s.Combination, err = engine.ParseCombination(o.Combination); err != nil {
			return s, err
		}
	}
	if flags.Changed("seed") {
		s.Seed = o.Seed
	}
	if flags.Changed("violate") {
		s.Violate = o.Violate
	}
	if flags.Changed("no-partition") {
		s.Partition = !o.NoPartition
	}
	return s, nil
}

func saveRun(ctx context.Context, path string, run *engine.Run, logger *slog.Logger) error {
	st, err := store.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()
	if err := st.SaveRun(ctx, run); err != nil {
		return err
	}
	logger.Info("run recorded", "run_id", run.ID, "store", path)
	return nil
}

// outputGenerateError maps generation failures to exit codes: profile
// problems exit 1, everything else exits 2.
func outputGenerateError(formatter *OutputFormatter, err error) error {
	var verrs compiler.ValidationErrors
	if errors.As(err, &verrs) {
		return outputValidationErrors(formatter, verrs)
	}
	var ve *compiler.ValidationError
	if errors.As(err, &ve) {
		return outputValidationErrors(formatter, []compiler.ValidationError{*ve})
	}

	code := ErrCodeGeneric
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		code = string(re.Code)
	}
	_ = formatter.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, "generation failed", err)
}
