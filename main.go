package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"

	"github.com/milmil7/gui-reaper/cmd"
	"github.com/milmil7/gui-reaper/internal/api"
	"github.com/milmil7/gui-reaper/internal/config"
	"github.com/milmil7/gui-reaper/internal/control"
	"github.com/milmil7/gui-reaper/internal/events"
	"github.com/milmil7/gui-reaper/internal/logging"
	"github.com/milmil7/gui-reaper/internal/metrics/exporters"
	"github.com/milmil7/gui-reaper/internal/procinfo"
	"github.com/milmil7/gui-reaper/internal/process"
	"github.com/milmil7/gui-reaper/internal/reaper"
	"github.com/milmil7/gui-reaper/internal/systemd"
	"github.com/milmil7/gui-reaper/internal/version"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"reaper.toml"`

	// Server settings
	Port        string `help:"Address to listen on" short:"p" default:"127.0.0.1:8095" toml:"server.port" env:"SERVER_PORT"`
	CORSOrigins string `help:"Comma-separated allowed CORS origins (empty allows any)" default:"" toml:"server.cors_origins" env:"SERVER_CORS_ORIGINS"`

	// Kill settings
	KillTimeoutSecs int `help:"Grace period before a forced kill" default:"5" toml:"kill.default_timeout_secs" env:"KILL_TIMEOUT_SECS"`
	KillWorkers     int `help:"Descendants terminated concurrently (0 = number of CPUs)" default:"0" toml:"kill.workers" env:"KILL_WORKERS"`

	// Respawn defaults
	RespawnCheckIntervalSecs int `help:"Default respawn liveness poll interval" default:"1" toml:"respawn.default_check_interval_secs" env:"RESPAWN_CHECK_INTERVAL_SECS"`
	RespawnRestartDelaySecs  int `help:"Default delay before a relaunch" default:"1" toml:"respawn.default_restart_delay_secs" env:"RESPAWN_RESTART_DELAY_SECS"`
	RespawnMaxRestarts       int `help:"Default number of launches per session" default:"5" toml:"respawn.default_max_restarts" env:"RESPAWN_MAX_RESTARTS"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Observability settings
	MetricsEnabled bool `help:"Serve Prometheus metrics on /metrics" default:"true" toml:"metrics.prometheus_enabled" env:"METRICS_ENABLED"`

	// Logging settings
	LoggingLevel    string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat   string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingReaper   string `help:"Kill engine logging level" default:"info" toml:"logging.reaper" env:"LOGGING_REAPER"`
	LoggingRespawn  string `help:"Respawn supervisor logging level" default:"info" toml:"logging.respawn" env:"LOGGING_RESPAWN"`
	LoggingControl  string `help:"Controller logging level" default:"info" toml:"logging.control" env:"LOGGING_CONTROL"`
	LoggingProcinfo string `help:"Process table logging level" default:"warn" toml:"logging.procinfo" env:"LOGGING_PROCINFO"`
	LoggingChild    string `help:"Relaunched child output logging level" default:"info" toml:"logging.child" env:"LOGGING_CHILD"`
	LoggingAPI      string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP     string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
	LoggingConfig   string `help:"Config watcher logging level" default:"info" toml:"logging.config" env:"LOGGING_CONFIG"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, cliRoot); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"reaper":   opts.LoggingReaper,
				"respawn":  opts.LoggingRespawn,
				"control":  opts.LoggingControl,
				"procinfo": opts.LoggingProcinfo,
				"child":    opts.LoggingChild,
				"api":      opts.LoggingAPI,
				"http":     opts.LoggingHTTP,
				"config":   opts.LoggingConfig,
			},
		})
		logger := logging.GetLogger("main")

		// Create event bus for in-process event handling
		eventBus := events.New()
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Seq:        entry.Seq,
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		// Kill engine: one process table reader serves snapshots, liveness and listings
		reaperLogger := logging.GetLogger("reaper")
		system := procinfo.NewSystem(logging.GetLogger("procinfo"))
		terminator := reaper.NewTerminator(reaper.NewSignaler(), system, reaperLogger, control.LogNotifier(eventBus, reaperLogger))
		coordinator := reaper.NewCoordinator(&reaper.CoordinatorOptions{
			Snapshots:  system,
			Terminator: terminator,
			Workers:    opts.KillWorkers,
			Logger:     reaperLogger,
		})

		respawnLogger := logging.GetLogger("respawn")
		registry := process.NewRegistry(&process.RegistryOptions{
			OnStateChange: control.RespawnNotifier(eventBus, respawnLogger),
			Logger:        respawnLogger,
			ChildLogger:   logging.GetLogger("child"),
		})

		controller := control.New(&control.Options{
			Processes:   system,
			Killer:      coordinator,
			Registry:    registry,
			Bus:         eventBus,
			Logger:      logging.GetLogger("control"),
			ChildLogger: logging.GetLogger("child"),
		})

		apiOpts := &api.Options{
			AuthUsername:         opts.AuthUsername,
			AuthPassword:         opts.AuthPassword,
			CORSOrigins:          splitList(opts.CORSOrigins),
			DefaultKillTimeout:   time.Duration(opts.KillTimeoutSecs) * time.Second,
			DefaultCheckInterval: time.Duration(opts.RespawnCheckIntervalSecs) * time.Second,
			DefaultRestartDelay:  time.Duration(opts.RespawnRestartDelaySecs) * time.Second,
			DefaultMaxRestarts:   opts.RespawnMaxRestarts,
			Controller:           controller,
			EventBus:             eventBus,
		}
		if opts.MetricsEnabled {
			apiOpts.PrometheusHandler = exporters.HTTPHandler()
		}
		server := api.NewServer(apiOpts)

		// Logging levels and declared respawn sessions follow the config file
		// without a restart
		configLogger := logging.GetLogger("config")
		loggingWatcher := config.NewConfigWatcher(opts.Config, config.ReadLoggingConfig, configLogger,
			config.WithName[logging.Config]("logging"))
		loggingWatcher.OnReload(logging.SetLevels)

		sessionDefaults := config.SessionDefaults{
			CheckInterval: time.Duration(opts.RespawnCheckIntervalSecs) * time.Second,
			RestartDelay:  time.Duration(opts.RespawnRestartDelaySecs) * time.Second,
			MaxRestarts:   opts.RespawnMaxRestarts,
		}
		loadSpecs := func(path string) ([]process.SessionSpec, error) {
			return config.LoadRespawnSpecs(path, sessionDefaults)
		}
		sessionSync := control.NewSessionSync(controller, respawnLogger)
		sessionWatcher := config.NewConfigWatcher(opts.Config, loadSpecs, configLogger,
			config.WithName[[]process.SessionSpec]("respawn"))
		sessionWatcher.OnReload(func(specs []process.SessionSpec) { sessionSync.Apply(specs) })

		watchdogCtx, stopWatchdog := context.WithCancel(context.Background())

		hooks.OnStart(func() {
			if specs, loadErr := loadSpecs(opts.Config); loadErr != nil {
				logger.Error("Failed to load respawn sessions", "error", loadErr)
			} else {
				sessionSync.Apply(specs)
			}

			for _, w := range []interface{ Start() error }{loggingWatcher, sessionWatcher} {
				if startErr := w.Start(); startErr != nil {
					logger.Warn("Failed to start config watcher, hot-reload disabled", "error", startErr)
				}
			}

			systemd.StartWatchdog(watchdogCtx, logger)
			systemd.Ready(logger)

			logger.Info("Starting HTTP server", "port", opts.Port, "version", version.String())
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			systemd.Stopping(logger)
			stopWatchdog()
			_ = loggingWatcher.Stop()
			_ = sessionWatcher.Stop()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if stopErr := server.Stop(ctx); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			// Respawn sessions are stopped after the API stops accepting requests
			if closeErr := controller.Close(ctx); closeErr != nil {
				logger.Error("Error stopping controller", "error", closeErr)
			}
		})
	})

	cliRoot = cli.Root()
	cliRoot.Use = "reaper"
	cliRoot.Short = "Process inspection, tree termination and auto-respawn supervision"
	cliRoot.Version = version.String()
	cliRoot.AddCommand(cmd.Commands()...)

	cli.Run()
}

// cliRoot lets the option callback see which flags were set explicitly.
var cliRoot *cobra.Command

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
