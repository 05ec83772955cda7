// Package limits applies resource ceilings to running processes.
package limits

import (
	"errors"
	"fmt"
	"math"

	"github.com/milmil7/gui-reaper/internal/procinfo"
)

// ErrUnsupported is returned on platforms without a per-process limit API.
var ErrUnsupported = errors.New("process limits are not supported on this platform")

// ErrNoLimits is returned when a request sets no ceiling at all.
var ErrNoLimits = errors.New("no limits requested")

// ErrOutOfRange is returned when a ceiling cannot be represented in bytes.
var ErrOutOfRange = errors.New("limit out of range")

// MaxMemoryMB is the largest memory ceiling whose byte count fits a uint64.
const MaxMemoryMB = math.MaxUint64 >> 20

// Limits is a set of ceilings for one process. Nil fields are left unchanged.
type Limits struct {
	PID          procinfo.PID `json:"pid"`
	MaxMemoryMB  *uint64      `json:"max_memory_mb,omitempty"`
	MaxOpenFiles *uint64      `json:"max_open_files,omitempty"`
}

// Apply sets the requested ceilings on l.PID.
func Apply(l Limits) error {
	if l.MaxMemoryMB == nil && l.MaxOpenFiles == nil {
		return ErrNoLimits
	}
	if !l.PID.Valid() {
		return fmt.Errorf("limit pid %d: %w", l.PID, procinfo.ErrInvalidPID)
	}
	if l.MaxMemoryMB != nil && *l.MaxMemoryMB > MaxMemoryMB {
		return fmt.Errorf("%w: max memory %d MiB (want at most %d)", ErrOutOfRange, *l.MaxMemoryMB, uint64(MaxMemoryMB))
	}
	return apply(l)
}

// megabytes converts mb to bytes. Callers bound mb by MaxMemoryMB.
func megabytes(mb uint64) uint64 {
	return mb << 20
}
