package control

import (
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/milmil7/gui-reaper/internal/procinfo"
	"github.com/milmil7/gui-reaper/internal/process"
)

// SessionSync keeps the respawn sessions declared in a config file in line
// with the registry. It only touches sessions it started itself, so
// sessions started over the API survive a reload.
type SessionSync struct {
	ctrl   *Controller
	logger *slog.Logger

	mu    sync.Mutex
	owned map[procinfo.PID]process.SessionSpec
}

// NewSessionSync creates a SessionSync driving ctrl.
func NewSessionSync(ctrl *Controller, logger *slog.Logger) *SessionSync {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionSync{
		ctrl:   ctrl,
		logger: logger,
		owned:  make(map[procinfo.PID]process.SessionSpec),
	}
}

// Apply starts declared sessions that are new or changed and stops owned
// sessions no longer declared. Unchanged sessions are left alone, including
// ones that already spent their restart budget.
func (s *SessionSync) Apply(specs []process.SessionSpec) (started, stopped int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	declared := make(map[procinfo.PID]process.SessionSpec, len(specs))
	for _, spec := range specs {
		declared[spec.Key] = spec
	}

	for _, key := range slices.Sorted(maps.Keys(s.owned)) {
		if _, keep := declared[key]; keep {
			continue
		}
		delete(s.owned, key)
		if _, err := s.ctrl.StopAutoRespawn(key); err != nil {
			s.logger.Debug("Declared session already gone", "key", key)
			continue
		}
		stopped++
	}

	for _, spec := range specs {
		if prev, ok := s.owned[spec.Key]; ok && sameSpec(prev, spec) {
			continue
		}
		if _, err := s.ctrl.AutoRespawn(spec); err != nil {
			s.logger.Error("Failed to start declared respawn session", "key", spec.Key, "command", spec.Command, "error", err)
			delete(s.owned, spec.Key)
			continue
		}
		s.owned[spec.Key] = spec
		started++
	}

	if started > 0 || stopped > 0 {
		s.logger.Info("Declared respawn sessions applied", "started", started, "stopped", stopped, "declared", len(specs))
	}
	return started, stopped
}

func sameSpec(a, b process.SessionSpec) bool {
	return a.Key == b.Key &&
		a.Command == b.Command &&
		slices.Equal(a.Args, b.Args) &&
		a.CheckInterval == b.CheckInterval &&
		a.RestartDelay == b.RestartDelay &&
		a.MaxRestarts == b.MaxRestarts
}
