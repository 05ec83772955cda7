package process

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/milmil7/gui-reaper/internal/procinfo"
)

// DefaultCheckInterval is used when a SessionSpec leaves CheckInterval unset.
const DefaultCheckInterval = time.Second

// ErrInvalidSpec is returned for a SessionSpec that cannot be supervised.
var ErrInvalidSpec = errors.New("invalid respawn session")

// SessionSpec describes a respawn session.
type SessionSpec struct {
	// Key identifies the session in the registry. It is fixed at
	// registration and is not updated when the child is relaunched.
	Key procinfo.PID

	Command string
	Args    []string

	// CheckInterval is how often the child is polled. It also bounds how
	// long a Stop takes to be noticed.
	CheckInterval time.Duration

	// RestartDelay is slept between an exit and the next launch.
	RestartDelay time.Duration

	// MaxRestarts is the number of launches the session may perform.
	MaxRestarts int
}

func (s SessionSpec) validate() (SessionSpec, error) {
	if s.Command == "" {
		return s, fmt.Errorf("%w: command is required", ErrInvalidSpec)
	}
	if s.MaxRestarts < 0 {
		return s, fmt.Errorf("%w: max restarts must not be negative", ErrInvalidSpec)
	}
	if s.RestartDelay < 0 {
		return s, fmt.Errorf("%w: restart delay must not be negative", ErrInvalidSpec)
	}
	if s.CheckInterval <= 0 {
		s.CheckInterval = DefaultCheckInterval
	}
	s.Args = slices.Clone(s.Args)
	return s, nil
}

// Session is one supervised child lineage.
type Session struct {
	spec SessionSpec

	mu        sync.Mutex
	state     State
	childPID  int
	launches  int
	restarts  int
	startedAt time.Time
	lastError error
	exitCode  *int

	cancel     chan struct{}
	cancelOnce sync.Once
	done       chan struct{}
}

func newSession(spec SessionSpec) *Session {
	return &Session{
		spec:      spec,
		state:     StateStarting,
		startedAt: time.Now(),
		cancel:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Key returns the session's registry key.
func (s *Session) Key() procinfo.PID {
	return s.spec.Key
}

// Cancel asks the session to stop. Safe to call more than once.
func (s *Session) Cancel() {
	s.cancelOnce.Do(func() { close(s.cancel) })
}

// Done is closed once the session loop has returned.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Info returns a snapshot of the session.
func (s *Session) Info() SessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := SessionInfo{
		Key:           s.spec.Key,
		Command:       s.spec.Command,
		Args:          slices.Clone(s.spec.Args),
		State:         s.state,
		ChildPID:      s.childPID,
		Launches:      s.launches,
		Restarts:      s.restarts,
		MaxRestarts:   s.spec.MaxRestarts,
		CheckInterval: s.spec.CheckInterval,
		RestartDelay:  s.spec.RestartDelay,
		StartedAt:     s.startedAt,
	}
	if s.lastError != nil {
		info.LastError = s.lastError.Error()
	}
	if s.exitCode != nil {
		code := *s.exitCode
		info.LastExitCode = &code
	}
	return info
}

func (s *Session) cancelled() bool {
	select {
	case <-s.cancel:
		return true
	default:
		return false
	}
}

// setState records a transition and returns the previous state.
func (s *Session) setState(state State, err error) (State, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.state
	s.state = state
	if err != nil {
		s.lastError = err
	}
	return old, s.childPID
}
