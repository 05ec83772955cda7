package process

import (
	"github.com/milmil7/gui-reaper/internal/logging"
	"github.com/milmil7/gui-reaper/internal/procinfo"
)

// StateChangeCallback is called when a session changes state.
// childPID is zero while no child is running.
type StateChangeCallback func(key procinfo.PID, childPID int, oldState, newState State, err error)

// RegistryOptions configures a new Registry.
type RegistryOptions struct {
	// Launcher starts children. If nil, uses Launch.
	Launcher Launcher

	// OnStateChange is called when a session state transitions (optional).
	OnStateChange StateChangeCallback

	// Logger for registry and session operations. If nil, uses slog.Default().
	Logger logging.Logger

	// ChildLogger receives child output. If nil, uses Logger.
	ChildLogger logging.Logger
}
