package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/milmil7/gui-reaper/internal/logging"
	"github.com/milmil7/gui-reaper/internal/metrics"
	"github.com/milmil7/gui-reaper/internal/procinfo"
)

// ErrSessionNotFound is returned when no session is registered under a key.
var ErrSessionNotFound = errors.New("no respawn session for pid")

// Session end reasons reported to metrics.
const (
	endCancelled    = "cancelled"
	endExhausted    = "exhausted"
	endLaunchFailed = "launch_failed"
)

// Registry owns the respawn sessions, keyed by logical session id.
type Registry struct {
	launch      Launcher
	onChange    StateChangeCallback
	logger      logging.Logger
	childLogger logging.Logger

	mu       sync.Mutex
	sessions map[procinfo.PID]*Session
	wg       sync.WaitGroup
}

// NewRegistry creates an empty registry.
func NewRegistry(opts *RegistryOptions) *Registry {
	if opts == nil {
		opts = &RegistryOptions{}
	}

	var logger logging.Logger = slog.Default()
	if opts.Logger != nil {
		logger = opts.Logger
	}
	childLogger := opts.ChildLogger
	if childLogger == nil {
		childLogger = logger
	}
	launch := opts.Launcher
	if launch == nil {
		launch = LaunchHandle
	}

	return &Registry{
		launch:      launch,
		onChange:    opts.OnStateChange,
		logger:      logger,
		childLogger: childLogger,
		sessions:    make(map[procinfo.PID]*Session),
	}
}

// Start registers a session and begins supervising it. The session is
// visible to Stop before its first child is launched. A live session that
// is already registered under the same key is cancelled and replaced.
func (r *Registry) Start(spec SessionSpec) (*Session, error) {
	spec, err := spec.validate()
	if err != nil {
		return nil, err
	}

	s := newSession(spec)

	r.mu.Lock()
	prev := r.sessions[spec.Key]
	r.sessions[spec.Key] = s
	count := len(r.sessions)
	r.mu.Unlock()

	metrics.SetActiveSessions(count)
	if prev != nil {
		r.logger.Warn("Replacing existing respawn session", "pid", spec.Key)
		prev.Cancel()
	}

	r.logger.Info("Starting respawn session",
		"pid", spec.Key,
		"command", spec.Command,
		"check_interval", spec.CheckInterval,
		"restart_delay", spec.RestartDelay,
		"max_restarts", spec.MaxRestarts)
	r.notifyStateChange(spec.Key, 0, "", StateStarting, nil)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(s.done)
		reason := r.run(s)
		metrics.ObserveSessionEnded(reason)
	}()

	return s, nil
}

// Stop removes the session registered under key and signals it to stop.
// The child, if alive, is killed at the session's next check.
func (r *Registry) Stop(key procinfo.PID) error {
	r.mu.Lock()
	s, exists := r.sessions[key]
	if exists {
		delete(r.sessions, key)
	}
	count := len(r.sessions)
	r.mu.Unlock()

	if !exists {
		return fmt.Errorf("%w %d", ErrSessionNotFound, key)
	}

	metrics.SetActiveSessions(count)
	r.logger.Info("Stopping respawn session", "pid", key)
	s.Cancel()
	return nil
}

// Get returns the session registered under key.
func (r *Registry) Get(key procinfo.PID) (SessionInfo, bool) {
	r.mu.Lock()
	s, exists := r.sessions[key]
	r.mu.Unlock()

	if !exists {
		return SessionInfo{}, false
	}
	return s.Info(), true
}

// List returns all registered sessions ordered by key.
func (r *Registry) List() []SessionInfo {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()

	infos := make([]SessionInfo, len(sessions))
	for i, s := range sessions {
		infos[i] = s.Info()
	}
	slices.SortFunc(infos, func(a, b SessionInfo) int { return int(a.Key) - int(b.Key) })
	return infos
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// StopAll cancels every session and waits for their loops to return.
func (r *Registry) StopAll() {
	r.logger.Info("Stopping all respawn sessions")

	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for key, s := range r.sessions {
		sessions = append(sessions, s)
		delete(r.sessions, key)
	}
	r.mu.Unlock()

	metrics.SetActiveSessions(0)
	for _, s := range sessions {
		s.Cancel()
	}

	r.wg.Wait()
	r.logger.Info("All respawn sessions stopped")
}

// run is the supervision loop. It returns the reason the session ended.
func (r *Registry) run(s *Session) string {
	spec := s.spec

	for {
		if s.cancelled() {
			r.transition(s, StateTerminated, nil)
			return endCancelled
		}

		// Children outlive the request that created the session; only the
		// session itself kills them.
		child, err := r.launch(context.Background(), spec.Command, spec.Args, r.childLogger)
		if err != nil {
			metrics.ObserveLaunch(false)
			r.logger.Error("Failed to launch respawn child", "pid", spec.Key, "command", spec.Command, "error", err)
			r.transition(s, StateTerminated, fmt.Errorf("launch %s: %w", spec.Command, err))
			r.prune(s)
			return endLaunchFailed
		}
		metrics.ObserveLaunch(true)

		s.mu.Lock()
		s.launches++
		s.childPID = child.PID()
		s.mu.Unlock()
		r.transition(s, StateRunning, nil)

		if !r.watch(s, child) {
			if !child.Exited() {
				if err := child.Kill(); err != nil {
					r.logger.Warn("Failed to kill respawn child", "pid", spec.Key, "child", child.PID(), "error", err)
				}
			}
			r.transition(s, StateCancelled, nil)
			r.clearChild(s)
			r.transition(s, StateTerminated, nil)
			return endCancelled
		}

		r.recordExit(s, child)
		r.clearChild(s)
		r.transition(s, StateExited, nil)

		s.mu.Lock()
		s.restarts++
		restarts := s.restarts
		s.mu.Unlock()

		if restarts >= spec.MaxRestarts {
			r.logger.Info("Restart budget exhausted", "pid", spec.Key, "restarts", restarts)
			r.transition(s, StateTerminated, nil)
			r.prune(s)
			return endExhausted
		}

		r.transition(s, StateRestarting, nil)
		if !s.sleep(spec.RestartDelay) {
			r.transition(s, StateTerminated, nil)
			return endCancelled
		}
		r.transition(s, StateStarting, nil)
	}
}

// watch polls the child every check interval. It returns true when the
// child exited on its own and false when the session was cancelled.
func (r *Registry) watch(s *Session, child Handle) bool {
	ticker := time.NewTicker(s.spec.CheckInterval)
	defer ticker.Stop()

	for range ticker.C {
		if s.cancelled() {
			return false
		}
		if child.Exited() {
			return true
		}
	}
	return true
}

// sleep waits for d, returning false if the session is cancelled first.
func (s *Session) sleep(d time.Duration) bool {
	if d <= 0 {
		return !s.cancelled()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.cancel:
		return false
	case <-timer.C:
		return true
	}
}

// recordExit keeps the exit code of a child that exited on its own, when
// the handle can report one.
func (r *Registry) recordExit(s *Session, child Handle) {
	ec, ok := child.(ExitCoder)
	if !ok {
		r.logger.Info("Respawn child exited", "pid", s.spec.Key, "child", child.PID())
		return
	}
	code, ok := ec.ExitCode()
	if !ok {
		return
	}
	r.logger.Info("Respawn child exited", "pid", s.spec.Key, "child", child.PID(), "exit_code", code)

	s.mu.Lock()
	s.exitCode = &code
	s.mu.Unlock()
}

func (r *Registry) clearChild(s *Session) {
	s.mu.Lock()
	s.childPID = 0
	s.mu.Unlock()
}

// prune removes a session that ended on its own, unless the key has since
// been taken by a newer session.
func (r *Registry) prune(s *Session) {
	r.mu.Lock()
	removed := false
	if r.sessions[s.spec.Key] == s {
		delete(r.sessions, s.spec.Key)
		removed = true
	}
	count := len(r.sessions)
	r.mu.Unlock()

	if removed {
		metrics.SetActiveSessions(count)
		r.logger.Info("Respawn session ended, removed from registry", "pid", s.spec.Key)
	}
}

func (r *Registry) transition(s *Session, state State, err error) {
	old, childPID := s.setState(state, err)
	r.logger.Debug("Respawn session state changed", "pid", s.spec.Key, "child", childPID, "from", old, "to", state)
	r.notifyStateChange(s.spec.Key, childPID, old, state, err)
}

// notifyStateChange invokes the OnStateChange callback if configured.
func (r *Registry) notifyStateChange(key procinfo.PID, childPID int, oldState, newState State, err error) {
	if r.onChange != nil {
		r.onChange(key, childPID, oldState, newState, err)
	}
}
