// Package systemd reports service state to the systemd service manager.
// Every function is a no-op when the process was not started by systemd.
package systemd

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Overridable in tests.
var (
	sdNotify          = daemon.SdNotify
	sdWatchdogEnabled = daemon.SdWatchdogEnabled
)

// Ready tells systemd that startup has finished.
func Ready(logger *slog.Logger) {
	notify(logger, daemon.SdNotifyReady)
}

// Stopping tells systemd that shutdown has begun.
func Stopping(logger *slog.Logger) {
	notify(logger, daemon.SdNotifyStopping)
}

// Status sets the free-form status line shown by systemctl status.
func Status(logger *slog.Logger, status string) {
	notify(logger, "STATUS="+status)
}

// StartWatchdog pings the systemd watchdog at half the configured interval
// until ctx is done. It returns immediately when no watchdog is configured.
func StartWatchdog(ctx context.Context, logger *slog.Logger) {
	interval, err := sdWatchdogEnabled(false)
	if err != nil {
		logger.Warn("Failed to read watchdog settings", "error", err)
		return
	}
	if interval <= 0 {
		return
	}

	logger.Info("Systemd watchdog enabled", "interval", interval)
	go func() {
		ticker := time.NewTicker(interval / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				notify(logger, daemon.SdNotifyWatchdog)
			}
		}
	}()
}

func notify(logger *slog.Logger, state string) {
	sent, err := sdNotify(false, state)
	if err != nil {
		logger.Warn("Failed to notify systemd", "state", state, "error", err)
		return
	}
	if sent {
		logger.Debug("Notified systemd", "state", state)
	}
}
