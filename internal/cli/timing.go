package cli

import (
	"github.com/spf13/cobra"
)

// NewTimingCommand creates the timing command.
func NewTimingCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts, timingOnly: true}
	cfg := &opts.Config

	cmd := &cobra.Command{
		Use:   "timing <scenarios-dir>",
		Short: "Run latency checks",
		Long: `Run only the scenarios that carry a timing block.

Each one is executed the configured number of times, strictly one after
the other, and passes when every run produces the expected outcome and
the mean latency is below the ceiling.

Examples:
  pagecheck timing ./scenarios
  pagecheck timing ./scenarios --runs 20 --ceiling 2s`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), opts, args[0], cmd)
		},
	}

	addCheckFlags(cmd, opts)
	cmd.Flags().IntVar(&cfg.TimingRuns, "runs", cfg.TimingRuns, "sequential runs per check (default: contract setting)")
	cmd.Flags().DurationVar(&cfg.TimingCeiling, "ceiling", cfg.TimingCeiling, "mean latency ceiling (default: contract setting)")

	return cmd
}
