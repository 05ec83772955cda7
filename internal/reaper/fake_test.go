package reaper

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/milmil7/gui-reaper/internal/procinfo"
)

type behavior int

const (
	diesOnTerm behavior = iota
	diesOnKill
	unkillable
)

var errNoSuchProcess = errors.New("no such process")

// fakeWorld is an in-memory process table that reacts to signals.
type fakeWorld struct {
	mu       sync.Mutex
	entries  []procinfo.Entry
	alive    map[procinfo.PID]bool
	behavior map[procinfo.PID]behavior
	terms    []procinfo.PID
	kills    []procinfo.PID
	snapErr  error
}

func newFakeWorld(entries ...procinfo.Entry) *fakeWorld {
	w := &fakeWorld{
		entries:  entries,
		alive:    make(map[procinfo.PID]bool),
		behavior: make(map[procinfo.PID]behavior),
	}
	for _, e := range entries {
		w.alive[e.PID] = true
	}
	return w
}

func (w *fakeWorld) set(pid procinfo.PID, b behavior) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.behavior[pid] = b
}

func (w *fakeWorld) RequestGracefulStop(pid procinfo.PID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.terms = append(w.terms, pid)
	if !w.alive[pid] {
		return errNoSuchProcess
	}
	if w.behavior[pid] == diesOnTerm {
		w.alive[pid] = false
	}
	return nil
}

func (w *fakeWorld) ForceStop(pid procinfo.PID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.kills = append(w.kills, pid)
	if !w.alive[pid] {
		return errNoSuchProcess
	}
	if w.behavior[pid] != unkillable {
		w.alive[pid] = false
	}
	return nil
}

func (w *fakeWorld) Alive(_ context.Context, pid procinfo.PID) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.alive[pid], nil
}

func (w *fakeWorld) Snapshot(_ context.Context) (*procinfo.Snapshot, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.snapErr != nil {
		return nil, w.snapErr
	}
	var live []procinfo.Entry
	for _, e := range w.entries {
		if w.alive[e.PID] {
			live = append(live, e)
		}
	}
	return procinfo.NewSnapshot(live), nil
}

func (w *fakeWorld) termOrder() []procinfo.PID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]procinfo.PID(nil), w.terms...)
}

func (w *fakeWorld) killCalls() []procinfo.PID {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]procinfo.PID(nil), w.kills...)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fastTerminator shrinks the escalation timings so tests run quickly.
func fastTerminator(w *fakeWorld, notify Notifier) *Terminator {
	t := NewTerminator(w, w, testLogger(), notify)
	t.pollInterval = 5 * time.Millisecond
	t.settleDelay = 7 * time.Millisecond
	return t
}

// child builds a snapshot entry for pid under parent.
func child(pid, parent procinfo.PID) procinfo.Entry {
	return procinfo.Entry{PID: pid, Parent: parent, HasParent: true}
}
