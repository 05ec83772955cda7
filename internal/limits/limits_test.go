package limits

import (
	"errors"
	"math"
	"os/exec"
	"runtime"
	"testing"

	"github.com/milmil7/gui-reaper/internal/procinfo"
)

func ptr(v uint64) *uint64 { return &v }

func TestApplyValidation(t *testing.T) {
	tests := []struct {
		name string
		l    Limits
		want error
	}{
		{"nothing requested", Limits{PID: 1}, ErrNoLimits},
		{"pid zero", Limits{PID: 0, MaxOpenFiles: ptr(64)}, procinfo.ErrInvalidPID},
		{"negative pid", Limits{PID: -1, MaxOpenFiles: ptr(64)}, procinfo.ErrInvalidPID},
		{"memory overflows bytes", Limits{PID: 1, MaxMemoryMB: ptr(1 << 44)}, ErrOutOfRange},
		{"memory far past range", Limits{PID: 1, MaxMemoryMB: ptr(math.MaxUint64)}, ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Apply(tt.l); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestMegabytesAtBound(t *testing.T) {
	if got, want := megabytes(MaxMemoryMB), uint64(math.MaxUint64)&^(1<<20-1); got != want {
		t.Errorf("megabytes(MaxMemoryMB) = %d, want %d", got, want)
	}
	if got := megabytes(512); got != 512*1024*1024 {
		t.Errorf("megabytes(512) = %d", got)
	}
}

func TestApplyToChild(t *testing.T) {
	cmd := exec.Command("sleep", "5")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start child: %v", err)
	}
	defer func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}()

	err := Apply(Limits{
		PID:          procinfo.PID(cmd.Process.Pid),
		MaxMemoryMB:  ptr(512),
		MaxOpenFiles: ptr(128),
	})

	switch runtime.GOOS {
	case "linux", "windows":
		if err != nil {
			t.Errorf("Apply failed: %v", err)
		}
	default:
		if !errors.Is(err, ErrUnsupported) {
			t.Errorf("expected ErrUnsupported, got %v", err)
		}
	}
}
