package cmd

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/milmil7/gui-reaper/internal/logging"
	"github.com/milmil7/gui-reaper/internal/reaper"
)

// ErrSurvivors is returned by kill when a target could not be stopped.
var ErrSurvivors = errors.New("some processes could not be killed")

// NewKillCmd creates the kill command.
func NewKillCmd() *cobra.Command {
	var children bool
	var timeout time.Duration
	var workers int

	cmd := &cobra.Command{
		Use:   "kill pid [pid...]",
		Short: "Terminate processes, escalating to a forced kill",
		Long: `Sends each PID a graceful stop request and waits up to --timeout for it to exit ` +
			`before forcing it. With --children, every descendant is stopped first and the ` +
			`root last. Several PIDs are handled one after another.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd)
			pids, err := parsePIDs(args)
			if err != nil {
				return err
			}

			killer := newKiller(workers, logging.GetLogger("reaper"))
			ctx := cmd.Context()

			var reports []reaper.Report
			var out string
			if len(pids) == 1 {
				report := killer.KillTree(ctx, pids[0], children, timeout)
				reports = []reaper.Report{report}
				out = reaper.Summary(report)
			} else {
				reports = killer.BatchKill(ctx, pids, children, timeout)
				out = reaper.BatchSummary(reports)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)

			for _, r := range reports {
				if len(r.Failures()) > 0 {
					return ErrSurvivors
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&children, "children", "r", false, "Also kill every descendant, deepest first")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 5*time.Second, "Grace period before forcing")
	cmd.Flags().IntVar(&workers, "workers", runtime.NumCPU(), "Descendants terminated concurrently")
	addLoggingFlags(cmd)

	return cmd
}
