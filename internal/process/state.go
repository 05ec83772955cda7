package process

import (
	"time"

	"github.com/milmil7/gui-reaper/internal/procinfo"
)

// State represents the current state of a respawn session.
type State string

// Session states.
const (
	StateStarting   State = "starting"   // About to launch the child
	StateRunning    State = "running"    // Child alive, being polled
	StateExited     State = "exited"     // Child exited on its own
	StateRestarting State = "restarting" // Waiting out the restart delay
	StateCancelled  State = "cancelled"  // Stop observed, child killed
	StateTerminated State = "terminated" // Loop finished, terminal
)

// SessionInfo is a point-in-time view of a respawn session.
type SessionInfo struct {
	Key           procinfo.PID  `json:"pid"`
	Command       string        `json:"command"`
	Args          []string      `json:"args"`
	State         State         `json:"state"`
	ChildPID      int           `json:"child_pid,omitempty"`
	Launches      int           `json:"launches"`
	Restarts      int           `json:"restarts"`
	MaxRestarts   int           `json:"max_restarts"`
	CheckInterval time.Duration `json:"check_interval"`
	RestartDelay  time.Duration `json:"restart_delay"`
	StartedAt     time.Time     `json:"started_at"`
	LastError     string        `json:"last_error,omitempty"`
	LastExitCode  *int          `json:"last_exit_code,omitempty"`
}
