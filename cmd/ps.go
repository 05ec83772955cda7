package cmd

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/milmil7/gui-reaper/internal/procinfo"
)

// NewPsCmd creates the ps command.
func NewPsCmd() *cobra.Command {
	var sortBy string
	var limit int
	var sample time.Duration
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "ps [pid]",
		Short: "List running processes",
		Long: `Lists running processes with CPU, memory, uptime and disk I/O. ` +
			`With a PID argument, shows that process and its direct children only.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd)
			ctx := cmd.Context()
			source := newProcessSource()

			if len(args) == 1 {
				pid, err := parsePID(args[0])
				if err != nil {
					return err
				}
				info, err := source.Lookup(ctx, pid)
				if err != nil {
					return err
				}
				return writeProcesses(cmd.OutOrStdout(), []procinfo.ProcessInfo{info}, asJSON)
			}

			list, err := source.List(ctx)
			if err != nil {
				return err
			}
			// CPU and I/O rates need two samples
			if sample > 0 {
				select {
				case <-time.After(sample):
				case <-ctx.Done():
					return ctx.Err()
				}
				if list, err = source.List(ctx); err != nil {
					return err
				}
			}

			if err := sortProcesses(list, sortBy); err != nil {
				return err
			}
			if limit > 0 && len(list) > limit {
				list = list[:limit]
			}
			return writeProcesses(cmd.OutOrStdout(), list, asJSON)
		},
	}

	cmd.Flags().StringVarP(&sortBy, "sort", "s", "pid", "Sort by pid, cpu, mem, uptime or name")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Show at most this many processes")
	cmd.Flags().DurationVar(&sample, "sample", 0, "Sample twice this far apart so CPU and I/O rates are populated")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	addLoggingFlags(cmd)

	return cmd
}

func sortProcesses(list []procinfo.ProcessInfo, by string) error {
	var less func(a, b procinfo.ProcessInfo) int
	switch by {
	case "pid":
		less = func(a, b procinfo.ProcessInfo) int { return cmp.Compare(a.PID, b.PID) }
	case "cpu":
		less = func(a, b procinfo.ProcessInfo) int { return cmp.Compare(b.CPU, a.CPU) }
	case "mem":
		less = func(a, b procinfo.ProcessInfo) int { return cmp.Compare(b.MemoryKiB, a.MemoryKiB) }
	case "uptime":
		less = func(a, b procinfo.ProcessInfo) int { return cmp.Compare(b.UptimeSecs, a.UptimeSecs) }
	case "name":
		less = func(a, b procinfo.ProcessInfo) int { return strings.Compare(a.Name, b.Name) }
	default:
		return fmt.Errorf("unknown sort key %q", by)
	}
	slices.SortStableFunc(list, less)
	return nil
}

func writeProcesses(w io.Writer, list []procinfo.ProcessInfo, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PID\tPPID\tCPU%\tMEM(KiB)\tUPTIME\tCHILDREN\tNAME")
	for _, p := range list {
		ppid := "-"
		if p.ParentPID != nil {
			ppid = fmt.Sprint(*p.ParentPID)
		}
		fmt.Fprintf(tw, "%d\t%s\t%.1f\t%.0f\t%s\t%d\t%s\n",
			p.PID, ppid, p.CPU, p.MemoryKiB,
			time.Duration(p.UptimeSecs)*time.Second, len(p.Children), p.Name)
	}
	return tw.Flush()
}
