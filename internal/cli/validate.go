package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/profilegen/internal/compiler"
	"github.com/roach88/profilegen/internal/tree"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	RequireTypes bool
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Fields int                        `json:"fields,omitempty"`
	Rules  int                        `json:"rules,omitempty"`
	Tree   *tree.Stats                `json:"tree,omitempty"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <profile>",
		Short: "Validate a profile without generating rows",
		Long: `Validate a profile: decode it, check its structure and build its
decision tree. A profile whose rules can never hold together fails with
E201.

Exit codes:
  0 - Profile is valid
  1 - Validation failed
  2 - Command error (profile not found, unreadable, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.RequireTypes, "require-types", false, "require an ofType constraint on every field (E106)")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, err := LoadProfile(path)
	if err != nil {
		return outputValidateError(formatter, loadErrorCode(err), err.Error(), nil)
	}
	p := loaded.Profile
	formatter.VerboseLog("Loaded %d field(s) and %d rule(s) from %d file(s)", len(p.Fields), len(p.Rules), loaded.FileCount)

	var validationOpts []compiler.ValidationOption
	if opts.RequireTypes {
		validationOpts = append(validationOpts, compiler.RequireTyping())
	}
	if errs := compiler.ValidateProfile(p, validationOpts...); len(errs) > 0 {
		return outputValidationErrors(formatter, errs)
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	t, err := compileTree(p, cfg.Generation.MaxStringLength)
	if err != nil {
		var ve *compiler.ValidationError
		if errors.As(err, &ve) {
			return outputValidationErrors(formatter, []compiler.ValidationError{*ve})
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error(), nil)
	}

	stats := tree.Measure(t.Root)
	formatter.VerboseLog("Tree: %d constraint node(s), %d decision node(s), depth %d",
		stats.ConstraintNodes, stats.DecisionNodes, stats.Depth)

	return outputValidateSuccess(formatter, ValidationResult{
		Valid:  true,
		Fields: len(p.Fields),
		Rules:  len(p.Rules),
		Tree:   &stats,
	})
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	formatter.Pass("Profile valid (%d fields, %d rules)", result.Fields, result.Rules)
	return nil
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.JSON() {
		result := ValidationResult{Valid: false, Errors: errs}
		if err := formatter.Failure(errs[0].Code, errs[0].Message, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	formatter.Fail("Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", err.Code, err.Field, err.Message)
		for _, rule := range err.Rules {
			fmt.Fprintf(formatter.Writer, "    rule: %s\n", rule)
		}
		fmt.Fprintln(formatter.Writer)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
