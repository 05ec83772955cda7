//go:build windows

package priority

import (
	"fmt"

	"golang.org/x/sys/windows"

	"github.com/milmil7/gui-reaper/internal/procinfo"
)

var nativeClasses = map[Class]uint32{
	ClassRealtime:    windows.REALTIME_PRIORITY_CLASS,
	ClassHigh:        windows.HIGH_PRIORITY_CLASS,
	ClassAboveNormal: windows.ABOVE_NORMAL_PRIORITY_CLASS,
	ClassNormal:      windows.NORMAL_PRIORITY_CLASS,
	ClassBelowNormal: windows.BELOW_NORMAL_PRIORITY_CLASS,
	ClassIdle:        windows.IDLE_PRIORITY_CLASS,
}

func setPriority(pid procinfo.PID, value int) (string, error) {
	class := ClassFor(value)

	h, err := windows.OpenProcess(windows.PROCESS_SET_INFORMATION|windows.PROCESS_QUERY_INFORMATION, false, uint32(pid))
	if err != nil {
		return "", fmt.Errorf("open pid %d for priority change: %w", pid, err)
	}
	defer windows.CloseHandle(h) //nolint:errcheck // nothing to do on close failure

	if err := windows.SetPriorityClass(h, nativeClasses[class]); err != nil {
		return "", fmt.Errorf("set priority class of pid %d: %w", pid, err)
	}
	return fmt.Sprintf("Set PID %d priority class to %s", pid, class), nil
}
