package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/milmil7/gui-reaper/internal/limits"
)

// Overridable in tests.
var applyLimits = limits.Apply

// NewLimitCmd creates the limit command.
func NewLimitCmd() *cobra.Command {
	var memoryMB, openFiles uint64

	cmd := &cobra.Command{
		Use:   "limit pid",
		Short: "Apply resource ceilings to a running process",
		Long: `Sets the address-space ceiling (--memory-mb) and open file ceiling (--open-files) ` +
			`of a running process. Windows supports the memory ceiling only.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd)
			pid, err := parsePID(args[0])
			if err != nil {
				return err
			}

			l := limits.Limits{PID: pid}
			if cmd.Flags().Changed("memory-mb") {
				l.MaxMemoryMB = &memoryMB
			}
			if cmd.Flags().Changed("open-files") {
				l.MaxOpenFiles = &openFiles
			}
			if err := applyLimits(l); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied limits to PID %d\n", pid)
			return nil
		},
	}

	cmd.Flags().Uint64Var(&memoryMB, "memory-mb", 0, "Address space ceiling in MiB")
	cmd.Flags().Uint64Var(&openFiles, "open-files", 0, "Open file descriptor ceiling")
	addLoggingFlags(cmd)

	return cmd
}
