// Package priority adjusts the scheduling priority of running processes.
//
// Values use the unix nice scale: -20 is the most favourable, 19 the least.
// On windows the value is mapped onto a priority class.
package priority

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/milmil7/gui-reaper/internal/procinfo"
)

// Nice value bounds.
const (
	MinValue = -20
	MaxValue = 19
)

// ErrInvalidValue is returned for a value outside MinValue..MaxValue.
var ErrInvalidValue = errors.New("priority out of range")

// Class is a windows priority class.
type Class int

// Priority classes, most favourable first.
const (
	ClassRealtime Class = iota
	ClassHigh
	ClassAboveNormal
	ClassNormal
	ClassBelowNormal
	ClassIdle
)

// ClassFor maps a nice value onto a priority class.
func ClassFor(value int) Class {
	switch {
	case value <= -15:
		return ClassRealtime
	case value <= -10:
		return ClassHigh
	case value <= -5:
		return ClassAboveNormal
	case value <= 0:
		return ClassNormal
	case value <= 5:
		return ClassBelowNormal
	default:
		return ClassIdle
	}
}

func (c Class) String() string {
	switch c {
	case ClassRealtime:
		return "realtime"
	case ClassHigh:
		return "high"
	case ClassAboveNormal:
		return "above_normal"
	case ClassNormal:
		return "normal"
	case ClassBelowNormal:
		return "below_normal"
	default:
		return "idle"
	}
}

// Setter changes the priority of one process.
type Setter func(pid procinfo.PID, value int) (string, error)

// Set changes the priority of pid and returns a confirmation message.
func Set(pid procinfo.PID, value int) (string, error) {
	if !pid.Valid() {
		return "", fmt.Errorf("set priority of pid %d: %w", pid, procinfo.ErrInvalidPID)
	}
	if value < MinValue || value > MaxValue {
		return "", fmt.Errorf("%w: %d (want %d..%d)", ErrInvalidValue, value, MinValue, MaxValue)
	}
	return setPriority(pid, value)
}

// BatchSet applies value to each pid in order and returns one
// "PID n: message" line per pid. Failures do not stop the batch.
func BatchSet(pids []procinfo.PID, value int) string {
	return Batch(pids, value, Set)
}

// Batch is BatchSet with the per-process step supplied by set.
func Batch(pids []procinfo.PID, value int, set Setter) string {
	lines := lo.Map(pids, func(pid procinfo.PID, _ int) string {
		msg, err := set(pid, value)
		if err != nil {
			msg = err.Error()
		}
		return fmt.Sprintf("PID %d: %s", pid, msg)
	})
	return strings.Join(lines, "\n")
}
