//go:build !windows

package priority

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/milmil7/gui-reaper/internal/procinfo"
)

func setPriority(pid procinfo.PID, value int) (string, error) {
	if err := unix.Setpriority(unix.PRIO_PROCESS, int(pid), value); err != nil {
		return "", fmt.Errorf("set nice level of pid %d: %w", pid, err)
	}
	return fmt.Sprintf("Set PID %d nice level to %d", pid, value), nil
}
