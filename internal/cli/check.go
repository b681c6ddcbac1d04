package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/pagecheck/internal/config"
	"github.com/roach88/pagecheck/internal/harness"
	"github.com/roach88/pagecheck/internal/report"
	"github.com/roach88/pagecheck/internal/store"
)

// CheckOptions holds flags for the check and timing commands.
type CheckOptions struct {
	*RootOptions
	Contract string // contract directory; empty uses the built-in contract
	Filter   string // scenario filter (glob pattern)
	Golden   bool   // compare results with golden snapshots
	Update   bool   // regenerate golden snapshots

	// timingOnly restricts the run to scenarios with a timing block.
	timingOnly bool
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run conformance scenarios against a running application.

Each scenario runs on its own session. Its observed outcome is compared
with the outcome the contract predicts; scenarios with a timing block
are run repeatedly and checked against the latency ceiling.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed or faulted
  2 - Command error (invalid paths, contract errors, etc.)

Examples:
  pagecheck check ./scenarios --base-url http://localhost:3000
  pagecheck check ./scenarios --variant static --driver static
  pagecheck check ./scenarios --filter "login-*" --golden
  pagecheck check ./scenarios --db history.db --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), opts, args[0], cmd)
		},
	}

	addCheckFlags(cmd, opts)
	cmd.Flags().BoolVar(&opts.Golden, "golden", false, "compare results with golden snapshots")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden snapshots")

	return cmd
}

// addCheckFlags registers the flags shared by check, timing and watch.
func addCheckFlags(cmd *cobra.Command, opts *CheckOptions) {
	cfg := &opts.Config
	cmd.Flags().StringVar(&opts.Contract, "contract", "", "contract directory (default: built-in contract)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&cfg.Variant, "variant", cfg.Variant, "built-in contract variant (react|static)")
	cmd.Flags().StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "application base URL (default: contract base URL)")
	cmd.Flags().StringVar(&cfg.Driver, "driver", cfg.Driver, "page driver (cdp|static)")
	cmd.Flags().StringVar(&cfg.DB, "db", cfg.DB, "record the run in this history database")
	cmd.Flags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "wait for each outcome at most this long")
	cmd.Flags().BoolVar(&cfg.Headless, "headless", cfg.Headless, "run Chrome without a window")
}

func runCheck(ctx context.Context, opts *CheckOptions, scenariosDir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)
	log := opts.logger(formatter.GetErrWriter())

	// Validate directories and configuration
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	c, err := LoadContract(opts.Contract, cfg.Variant)
	if err != nil {
		_ = formatter.Error(loadErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load contract", err)
	}
	applyTimingOverrides(c, cfg)
	formatter.VerboseLog("Contract %s (%s), %d route(s)", c.Name, c.Variant, len(c.Routes()))

	scenarios, err := harness.LoadScenarios(scenariosDir, opts.Filter)
	if err != nil {
		_ = formatter.Error(ErrCodeScenario, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenarios", err)
	}
	if opts.timingOnly {
		scenarios = timingScenarios(scenarios)
	}

	if len(scenarios) == 0 {
		if opts.Format == "json" {
			return outputCheckJSON(cmd, report.NewBuilder(c.Name, "").Summary())
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	pool, err := openDrivers(ctx, cfg, log)
	if err != nil {
		_ = formatter.Error(loadErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to start driver", err)
	}
	defer pool.close()

	runner := harness.NewRunner(c,
		harness.WithBaseURL(cfg.BaseURL),
		harness.WithTimeout(cfg.Timeout),
		harness.WithLogger(log),
	)

	ids := harness.UUIDv7Generator{}
	runID := ids.Generate()
	builder := report.NewBuilder(c.Name, runID)
	started := time.Now()

	for _, sc := range scenarios {
		formatter.VerboseLog("Running %s", sc.Name)
		if err := runScenario(ctx, runner, pool, ids, builder, sc, opts); err != nil {
			return WrapExitError(ExitCommandError, "check interrupted", err)
		}
	}

	summary := builder.Summary()

	if cfg.DB != "" {
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = c.BaseURL
		}
		if err := recordRun(ctx, cfg, store.RunOf(runID, baseURL, started, time.Now(), summary), summary); err != nil {
			_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to record run", err)
		}
		formatter.VerboseLog("Recorded run %s in %s", runID, cfg.DB)
	}

	// Output results
	if opts.Format == "json" {
		return outputCheckJSON(cmd, summary)
	}
	return outputCheckText(cmd, summary)
}

// runScenario runs sc on a fresh session and adds its entry to b. Only a
// cancelled context is returned as an error; everything else is reported.
func runScenario(ctx context.Context, runner *harness.Runner, pool *driverPool, ids harness.IDGenerator, b *report.Builder, sc *harness.Scenario, opts *CheckOptions) error {
	sess, err := harness.NewSession(ctx, ids, pool.factory)
	if err != nil {
		b.AddError(sc.Name, err)
		return nil
	}
	defer sess.Close()

	if sc.Timing != nil {
		res, err := runner.Timing(ctx, sess, sc)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.AddError(sc.Name, err)
			return nil
		}
		b.AddTiming(res)
		return nil
	}

	res, err := runner.Run(ctx, sess, sc)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.AddError(sc.Name, err)
		return nil
	}

	if opts.Update || opts.Golden {
		if err := checkGolden(sc, res, opts.Update); err != nil {
			res.AddError(err.Error())
		}
	}
	b.AddResult(res)
	return nil
}

// timingScenarios keeps the scenarios that carry a timing block.
func timingScenarios(in []*harness.Scenario) []*harness.Scenario {
	var out []*harness.Scenario
	for _, sc := range in {
		if sc.Timing != nil {
			out = append(out, sc)
		}
	}
	return out
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(sc *harness.Scenario) string {
	dir := filepath.Dir(sc.Path)
	base := filepath.Base(sc.Path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// checkGolden writes the result snapshot when update is set, and otherwise
// compares it with the stored one. A missing golden file is not an error.
func checkGolden(sc *harness.Scenario, res *harness.Result, update bool) error {
	current, err := harness.SnapshotOf(res).Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	goldenPath := goldenFilePath(sc)
	if update {
		if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
			return fmt.Errorf("failed to create golden directory: %w", err)
		}
		if err := os.WriteFile(goldenPath, current, 0644); err != nil {
			return fmt.Errorf("failed to write golden file: %w", err)
		}
		return nil
	}

	golden, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read golden file: %w", err)
	}
	if !bytes.Equal(golden, current) {
		return fmt.Errorf("golden file mismatch (run with --update to regenerate)")
	}
	return nil
}

// recordRun writes the summary to the history database.
func recordRun(ctx context.Context, cfg config.Config, run store.Run, summary report.Summary) error {
	st, err := store.Open(cfg.DB)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.WriteRun(ctx, run, summary.Entries)
}

// failedCount is the number of entries that did not pass.
func failedCount(s report.Summary) int {
	return s.Failed + s.Faulted
}

// outputCheckJSON outputs the summary as JSON.
func outputCheckJSON(cmd *cobra.Command, summary report.Summary) error {
	status := "ok"
	if !summary.OK() {
		status = "error"
	}

	response := CLIResponse{
		Status: status,
		Data:   summary,
		RunID:  summary.RunID,
	}

	failed := failedCount(summary)
	if failed > 0 {
		response.Error = &CLIError{
			Code:    "E_CHECK_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if failed > 0 {
		// Check failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", failed))
	}
	return nil
}

// outputCheckText outputs the summary as text.
func outputCheckText(cmd *cobra.Command, summary report.Summary) error {
	if err := report.RenderText(cmd.OutOrStdout(), summary); err != nil {
		return err
	}

	if failed := failedCount(summary); failed > 0 {
		// Check failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", failed))
	}
	return nil
}
