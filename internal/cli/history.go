package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/pagecheck/internal/report"
	"github.com/roach88/pagecheck/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
}

// RunView is the JSON shape of a recorded run.
type RunView struct {
	ID        string        `json:"id"`
	Contract  string        `json:"contract"`
	BaseURL   string        `json:"base_url"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Total     int           `json:"total"`
	Passed    int           `json:"passed"`
	Failed    int           `json:"failed"`
	Faulted   int           `json:"faulted"`
	OK        bool          `json:"ok"`
}

func viewOf(r store.Run) RunView {
	return RunView{
		ID:        r.ID,
		Contract:  r.Contract,
		BaseURL:   r.BaseURL,
		StartedAt: r.StartedAt,
		Duration:  r.FinishedAt.Sub(r.StartedAt),
		Total:     r.Total,
		Passed:    r.Passed,
		Failed:    r.Failed,
		Faulted:   r.Faulted,
		OK:        r.Failed == 0 && r.Faulted == 0,
	}
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}
	cfg := &opts.Config

	cmd := &cobra.Command{
		Use:   "history [run-id|latest]",
		Short: "List recorded check runs",
		Long: `List the runs recorded with check --db, most recent first.

With a run id (or "latest") the full report of that run is printed.

Examples:
  pagecheck history --db history.db
  pagecheck history --db history.db --limit 5
  pagecheck history --db history.db latest --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var id string
			if len(args) == 1 {
				id = args[0]
			}
			return runHistory(cmd.Context(), opts, id, cmd)
		},
	}

	cmd.Flags().StringVar(&cfg.DB, "db", cfg.DB, "history database path")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 for all)")

	return cmd
}

func runHistory(ctx context.Context, opts *HistoryOptions, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	if opts.Config.DB == "" {
		return NewExitError(ExitCommandError, "--db is required")
	}
	if _, err := os.Stat(opts.Config.DB); os.IsNotExist(err) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("database not found: %s", opts.Config.DB), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Config.DB))
	}

	st, err := store.Open(opts.Config.DB)
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if id != "" {
		return showRun(ctx, st, id, formatter)
	}

	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	if formatter.Format == "json" {
		views := make([]RunView, 0, len(runs))
		for _, r := range runs {
			views = append(views, viewOf(r))
		}
		return formatter.Success(views)
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tCONTRACT\tPASSED\tFAILED\tFAULTED\tTOTAL")
	for _, r := range runs {
		mark := "✓"
		if r.Failed > 0 || r.Faulted > 0 {
			mark = "✗"
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			mark, r.ID, r.StartedAt.Format(time.RFC3339), r.Contract,
			r.Passed, r.Failed, r.Faulted, r.Total)
	}
	return tw.Flush()
}

// showRun prints the recorded report of one run.
func showRun(ctx context.Context, st *store.Store, id string, formatter *OutputFormatter) error {
	var (
		run     store.Run
		entries []report.Entry
		err     error
	)
	if id == "latest" {
		run, entries, err = st.LatestRun(ctx)
	} else {
		run, entries, err = st.ReadRun(ctx, id)
	}
	if errors.Is(err, store.ErrRunNotFound) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("run not found: %s", id), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", id))
	}
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}

	summary := report.SummaryOf(run.Contract, run.ID, entries)
	if formatter.Format == "json" {
		return formatter.Success(summary)
	}
	return report.RenderText(formatter.Writer, summary)
}
