package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/milmil7/gui-reaper/internal/priority"
)

// Overridable in tests.
var (
	setPriority   = priority.Set
	batchPriority = priority.BatchSet
)

// NewReniceCmd creates the renice command.
func NewReniceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "renice value pid [pid...]",
		Short: "Change scheduling priority",
		Long: fmt.Sprintf(`Sets the niceness of each PID to value (%d highest, %d lowest). `+
			`On Windows the value selects a priority class.`, priority.MinValue, priority.MaxValue),
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd)
			value, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid priority %q", args[0])
			}
			pids, err := parsePIDs(args[1:])
			if err != nil {
				return err
			}

			if len(pids) > 1 {
				fmt.Fprintln(cmd.OutOrStdout(), batchPriority(pids, value))
				return nil
			}
			msg, err := setPriority(pids[0], value)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	addLoggingFlags(cmd)
	return cmd
}
