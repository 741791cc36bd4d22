package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/profilegen/internal/store"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	Store string
}

// RunsResult is the JSON payload of the runs command.
type RunsResult struct {
	Runs []store.RunRecord `json:"runs"`
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List generation runs recorded in a store",
		Long: `List the runs recorded by generate --store, oldest first.

Example:
  profilegen runs --store runs.db
  profilegen runs --store runs.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Store, "store", "", "path to SQLite database (defaults to store.path from config)")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	path := opts.Store
	if path == "" {
		cfg, err := opts.loadConfig()
		if err != nil {
			return err
		}
		path = cfg.Store.Path
	}
	if path == "" {
		_ = formatter.Error(ErrCodeNotFound, "no store given: use --store or store.path", nil)
		return NewExitError(ExitCommandError, "no store given")
	}
	// Opening creates missing databases; listing must not.
	if _, err := os.Stat(path); os.IsNotExist(err) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("store not found: %s", path), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("store not found: %s", path))
	}

	st, err := store.Open(path)
	if err != nil {
		_ = formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(cmd.Context())
	if err != nil {
		_ = formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if formatter.JSON() {
		return formatter.Success(RunsResult{Runs: runs})
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tROW SPECS\tROWS\tWALKER\tMODE\tDESCRIPTION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\n",
			r.ID,
			r.StartedAt.UTC().Format(time.RFC3339),
			r.RowSpecCount,
			r.RowCount,
			r.Settings.Walker,
			r.Settings.Mode,
			r.Description,
		)
	}
	return tw.Flush()
}
