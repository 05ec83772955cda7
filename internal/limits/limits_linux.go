//go:build linux

package limits

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func apply(l Limits) error {
	if l.MaxMemoryMB != nil {
		b := megabytes(*l.MaxMemoryMB)
		if err := prlimit(int(l.PID), unix.RLIMIT_AS, b); err != nil {
			return fmt.Errorf("set memory limit of pid %d: %w", l.PID, err)
		}
	}
	if l.MaxOpenFiles != nil {
		if err := prlimit(int(l.PID), unix.RLIMIT_NOFILE, *l.MaxOpenFiles); err != nil {
			return fmt.Errorf("set open file limit of pid %d: %w", l.PID, err)
		}
	}
	return nil
}

func prlimit(pid, resource int, value uint64) error {
	lim := unix.Rlimit{Cur: value, Max: value}
	return unix.Prlimit(pid, resource, &lim, nil)
}
