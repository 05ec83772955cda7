//go:build !windows

package reaper

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/milmil7/gui-reaper/internal/procinfo"
)

type osSignaler struct{}

// NewSignaler returns the platform Signaler: SIGTERM then SIGKILL.
func NewSignaler() Signaler {
	return osSignaler{}
}

func (osSignaler) RequestGracefulStop(pid procinfo.PID) error {
	return signal(pid, unix.SIGTERM)
}

func (osSignaler) ForceStop(pid procinfo.PID) error {
	return signal(pid, unix.SIGKILL)
}

// signal refuses pids that kill(2) would widen to a process group.
func signal(pid procinfo.PID, sig unix.Signal) error {
	if !pid.Valid() {
		return fmt.Errorf("signal pid %d: %w", pid, procinfo.ErrInvalidPID)
	}
	return unix.Kill(int(pid), sig)
}
