// Package cmd implements the local process-control subcommands. They act on
// the machine they run on and do not talk to a running server.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/milmil7/gui-reaper/internal/control"
	"github.com/milmil7/gui-reaper/internal/logging"
	"github.com/milmil7/gui-reaper/internal/procinfo"
	"github.com/milmil7/gui-reaper/internal/reaper"
)

// Commands returns every subcommand, ready to add to the root command.
func Commands() []*cobra.Command {
	return []*cobra.Command{
		NewPsCmd(),
		NewKillCmd(),
		NewRespawnCmd(),
		NewReniceCmd(),
		NewLimitCmd(),
	}
}

// Overridable in tests.
var (
	newProcessSource = func() control.ProcessSource {
		return procinfo.NewSystem(logging.GetLogger("procinfo"))
	}

	newKiller = func(workers int, logger *slog.Logger) control.Killer {
		system := procinfo.NewSystem(logging.GetLogger("procinfo"))
		term := reaper.NewTerminator(reaper.NewSignaler(), system, logger, nil)
		return reaper.NewCoordinator(&reaper.CoordinatorOptions{
			Snapshots:  system,
			Terminator: term,
			Workers:    workers,
			Logger:     logger,
		})
	}
)

// setupLogging initializes logging for a one-shot command. Commands stay
// quiet unless asked otherwise so their output can be piped.
func setupLogging(cmd *cobra.Command) {
	level := "warn"
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	format := "text"
	if logJSON, _ := cmd.Flags().GetBool("log-json"); logJSON {
		format = "json"
	}
	logging.Initialize(logging.Config{Level: level, Format: format, Output: os.Stderr})
}

func addLoggingFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("verbose", "v", false, "Enable debug logging")
	cmd.Flags().Bool("log-json", false, "Use JSON log format")
}

func parsePID(s string) (procinfo.PID, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid pid %q", s)
	}
	return procinfo.PID(n), nil
}

func parsePIDs(args []string) ([]procinfo.PID, error) {
	pids := make([]procinfo.PID, 0, len(args))
	for _, arg := range args {
		pid, err := parsePID(arg)
		if err != nil {
			return nil, err
		}
		pids = append(pids, pid)
	}
	return pids, nil
}
