package control

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/milmil7/gui-reaper/internal/events"
	"github.com/milmil7/gui-reaper/internal/procinfo"
	"github.com/milmil7/gui-reaper/internal/process"
	"github.com/milmil7/gui-reaper/internal/reaper"
)

// LogNotifier returns a notifier that publishes each line on the process log
// channel of bus and logs it. bus may be nil.
func LogNotifier(bus *events.Bus, logger *slog.Logger) reaper.Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return func(msg string) {
		logger.Debug("Process log", "message", msg)
		publish(bus, events.ProcessLogEvent{
			Message:   msg,
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
}

// RespawnNotifier returns a state change callback that publishes respawn
// transitions on bus, together with a process log line for the states a
// user cares about.
func RespawnNotifier(bus *events.Bus, logger *slog.Logger) process.StateChangeCallback {
	notify := LogNotifier(bus, logger)
	return func(key procinfo.PID, childPID int, oldState, newState process.State, err error) {
		ev := events.RespawnStateChangedEvent{
			SessionPID: int32(key),
			ChildPID:   childPID,
			OldState:   string(oldState),
			NewState:   string(newState),
			Timestamp:  time.Now().Format(time.RFC3339),
		}
		if err != nil {
			ev.Error = err.Error()
		}
		publish(bus, ev)

		switch newState {
		case process.StateRunning:
			notify(fmt.Sprintf("Auto-respawn for PID %d launched child %d", key, childPID))
		case process.StateExited:
			notify(fmt.Sprintf("Auto-respawn for PID %d: process exited", key))
		case process.StateCancelled:
			notify(fmt.Sprintf("Auto-respawn for PID %d stopped by user.", key))
		case process.StateTerminated:
			if err != nil {
				notify(fmt.Sprintf("Auto-respawn for PID %d terminated: %v", key, err))
			} else {
				notify(fmt.Sprintf("Auto-respawn loop ended for PID %d", key))
			}
		}
	}
}

func publish(bus *events.Bus, ev events.Event) {
	if bus != nil {
		bus.Publish(ev)
	}
}
