//go:build windows

package limits

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// apply places the process in a new job object carrying the memory limit.
// Windows has no per-process descriptor ceiling, so MaxOpenFiles alone is
// unsupported.
func apply(l Limits) error {
	if l.MaxMemoryMB == nil {
		return fmt.Errorf("open file limit: %w", ErrUnsupported)
	}

	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return fmt.Errorf("create job object: %w", err)
	}
	// The job lives on as long as a process is assigned to it.
	defer windows.CloseHandle(job) //nolint:errcheck // nothing to do on close failure

	var info windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION
	info.BasicLimitInformation.LimitFlags |= windows.JOB_OBJECT_LIMIT_PROCESS_MEMORY
	info.ProcessMemoryLimit = uintptr(megabytes(*l.MaxMemoryMB))

	if _, err := windows.SetInformationJobObject(
		job,
		windows.JobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	); err != nil {
		return fmt.Errorf("set job object limits: %w", err)
	}

	h, err := windows.OpenProcess(windows.PROCESS_SET_QUOTA|windows.PROCESS_TERMINATE, false, uint32(l.PID))
	if err != nil {
		return fmt.Errorf("open pid %d: %w", l.PID, err)
	}
	defer windows.CloseHandle(h) //nolint:errcheck // nothing to do on close failure

	if err := windows.AssignProcessToJobObject(job, h); err != nil {
		if errors.Is(err, windows.ERROR_ACCESS_DENIED) {
			return fmt.Errorf("pid %d already belongs to a job: %w", l.PID, err)
		}
		return fmt.Errorf("assign pid %d to job object: %w", l.PID, err)
	}
	return nil
}
