package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/profilegen/internal/compiler"
	"github.com/roach88/profilegen/internal/constraint"
	"github.com/roach88/profilegen/internal/tree"
)

// VisualiseOptions holds flags for the visualise command.
type VisualiseOptions struct {
	*RootOptions
	DOT       bool
	Partition bool
}

// VisualiseResult is the JSON payload of the visualise command.
type VisualiseResult struct {
	Trees []string   `json:"trees"`
	Stats tree.Stats `json:"stats"`
	Kind  string     `json:"kind"` // "text" | "dot"
}

// NewVisualiseCommand creates the visualise command.
func NewVisualiseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VisualiseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:     "visualise <profile>",
		Aliases: []string{"visualize"},
		Short:   "Print a profile's simplified decision tree",
		Long: `Print the decision tree a profile compiles to, after string length
capping and simplification, as an indented outline or as Graphviz DOT.

Examples:
  profilegen visualise profile.yaml
  profilegen visualise --dot profile.cue | dot -Tsvg > tree.svg
  profilegen visualise --partition ./profile-dir`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVisualise(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DOT, "dot", false, "render Graphviz DOT")
	cmd.Flags().BoolVar(&opts.Partition, "partition", false, "render each independent partition separately")

	return cmd
}

func runVisualise(opts *VisualiseOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, err := LoadProfile(path)
	if err != nil {
		return outputValidateError(formatter, loadErrorCode(err), err.Error(), nil)
	}
	p := loaded.Profile
	if errs := compiler.ValidateProfile(p); len(errs) > 0 {
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

	trees := []*tree.DecisionTree{t}
	if opts.Partition {
		trees = compiler.Partition(t, tree.NewFieldMemo(0))
	}

	render := tree.Render
	kind := "text"
	if opts.DOT {
		render = tree.DOT
		kind = "dot"
	}
	result := VisualiseResult{Stats: tree.Measure(t.Root), Kind: kind}
	for _, part := range trees {
		result.Trees = append(result.Trees, render(part))
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	for i, s := range result.Trees {
		if len(result.Trees) > 1 && !opts.DOT {
			fmt.Fprintf(formatter.Writer, "# partition %d\n", i+1)
		}
		fmt.Fprint(formatter.Writer, s)
	}
	return nil
}

// compileTree builds, caps and simplifies the tree of p, as generation
// does before partitioning.
func compileTree(p *constraint.Profile, maxStringLength int) (*tree.DecisionTree, error) {
	t, err := compiler.BuildTree(p)
	if err != nil {
		return nil, err
	}
	if t, err = compiler.InjectMaxStringLength(t, maxStringLength); err != nil {
		return nil, err
	}
	return compiler.Simplify(t)
}
