//go:build windows

package reaper

import (
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/milmil7/gui-reaper/internal/procinfo"
)

type osSignaler struct{}

// NewSignaler returns the platform Signaler. Windows has no stop request an
// arbitrary process is bound to honour, so both steps call TerminateProcess:
// the graceful wait only gives the process time to be reaped before the
// liveness checks.
func NewSignaler() Signaler {
	return osSignaler{}
}

func (s osSignaler) RequestGracefulStop(pid procinfo.PID) error {
	return s.ForceStop(pid)
}

func (osSignaler) ForceStop(pid procinfo.PID) error {
	if !pid.Valid() {
		return fmt.Errorf("terminate pid %d: %w", pid, procinfo.ErrInvalidPID)
	}
	h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, uint32(pid))
	if err != nil {
		return fmt.Errorf("open pid %d: %w", pid, err)
	}
	defer windows.CloseHandle(h)

	if err := windows.TerminateProcess(h, 1); err != nil {
		return fmt.Errorf("terminate pid %d: %w", pid, err)
	}
	return nil
}
