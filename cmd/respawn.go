package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/milmil7/gui-reaper/internal/config"
	"github.com/milmil7/gui-reaper/internal/logging"
	"github.com/milmil7/gui-reaper/internal/procinfo"
	"github.com/milmil7/gui-reaper/internal/process"
)

// Overridable in tests.
var respawnLauncher process.Launcher = process.LaunchHandle

// NewRespawnCmd creates the respawn command.
func NewRespawnCmd() *cobra.Command {
	var key int32
	var checkInterval, restartDelay time.Duration
	var maxRestarts int
	var configFile string

	cmd := &cobra.Command{
		Use:   "respawn [flags] -- command [args...]",
		Short: "Run a command and relaunch it when it exits",
		Long: `Supervises a command in the foreground, relaunching it after each exit until ` +
			`--max-restarts launches have been made. A single quoted argument is split like a ` +
			`shell command line. SIGINT or SIGTERM stops supervision and kills the current child. ` +
			`With --config, logging levels follow the [logging] table of that file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd)
			logger := logging.GetLogger("respawn")

			command, cmdArgs, err := splitCommand(args)
			if err != nil {
				return err
			}
			if key == 0 {
				key = int32(os.Getpid())
			}

			if configFile != "" {
				watcher := config.NewConfigWatcher(configFile, config.ReadLoggingConfig, logging.GetLogger("config"),
					config.WithName[logging.Config]("logging"))
				watcher.OnReload(logging.SetLevels)
				if err := watcher.Start(); err != nil {
					logger.Warn("Failed to start config watcher, hot-reload disabled", "error", err)
				} else {
					defer func() { _ = watcher.Stop() }()
				}
			}

			out := cmd.OutOrStdout()
			registry := process.NewRegistry(&process.RegistryOptions{
				Launcher: respawnLauncher,
				Logger:   logger,
				OnStateChange: func(_ procinfo.PID, childPID int, _, newState process.State, err error) {
					switch {
					case err != nil:
						fmt.Fprintf(out, "%s: %v\n", newState, err)
					case newState == process.StateRunning:
						fmt.Fprintf(out, "running (pid %d)\n", childPID)
					default:
						fmt.Fprintln(out, newState)
					}
				},
			})

			session, err := registry.Start(process.SessionSpec{
				Key:           procinfo.PID(key),
				Command:       command,
				Args:          cmdArgs,
				CheckInterval: checkInterval,
				RestartDelay:  restartDelay,
				MaxRestarts:   maxRestarts,
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			select {
			case <-session.Done():
			case <-ctx.Done():
				logger.Info("Stopping supervision", "reason", context.Cause(ctx))
				registry.StopAll()
			}

			if info := session.Info(); info.LastError != "" {
				return errors.New(info.LastError)
			}
			return nil
		},
	}

	cmd.Flags().Int32Var(&key, "key", 0, "Session key used in logs (defaults to this process's PID)")
	cmd.Flags().DurationVar(&checkInterval, "check-interval", process.DefaultCheckInterval, "How often the child is polled")
	cmd.Flags().DurationVar(&restartDelay, "restart-delay", time.Second, "Delay before each relaunch")
	cmd.Flags().IntVar(&maxRestarts, "max-restarts", 5, "Number of launches before giving up")
	cmd.Flags().StringVar(&configFile, "config", "", "Config file whose [logging] table is watched")
	addLoggingFlags(cmd)

	return cmd
}

// splitCommand returns the executable and its arguments. A single argument
// is parsed as a command line.
func splitCommand(args []string) (string, []string, error) {
	if len(args) == 1 {
		parsed, err := process.ParseCommand(args[0])
		if err != nil {
			return "", nil, err
		}
		return parsed[0], parsed[1:], nil
	}
	return args[0], args[1:], nil
}
