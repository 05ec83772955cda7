//go:build !windows

package reaper

import (
	"errors"
	"os"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/milmil7/gui-reaper/internal/procinfo"
)

func TestSignalRejectsProcessGroups(t *testing.T) {
	// Signal 0 only checks permissions, so nothing is delivered if the
	// guard regresses.
	for _, pid := range []procinfo.PID{0, -1, -42} {
		if err := signal(pid, unix.Signal(0)); !errors.Is(err, procinfo.ErrInvalidPID) {
			t.Errorf("signal(%d) error = %v, want ErrInvalidPID", pid, err)
		}
	}

	if err := signal(procinfo.PID(os.Getpid()), unix.Signal(0)); err != nil {
		t.Errorf("signal to self failed: %v", err)
	}
}
