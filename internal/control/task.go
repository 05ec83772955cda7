package control

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/milmil7/gui-reaper/internal/procinfo"
	"github.com/milmil7/gui-reaper/internal/reaper"
)

// maxFinishedTasks bounds how many completed tasks stay queryable.
const maxFinishedTasks = 256

// TaskKind identifies the operation a task runs.
type TaskKind string

// Task kinds.
const (
	TaskKill           TaskKind = "kill"
	TaskBatchKill      TaskKind = "batch-kill"
	TaskKillAndRestart TaskKind = "kill-and-restart"
)

// Task is a background kill operation. Its results are available once Done
// is closed.
type Task struct {
	ID        string
	Kind      TaskKind
	Roots     []procinfo.PID
	CreatedAt time.Time

	done chan struct{}

	mu         sync.Mutex
	reports    []reaper.Report
	summary    string
	restart    string
	err        error
	finishedAt time.Time
}

// TaskInfo is a serialisable view of a task.
type TaskInfo struct {
	ID         string          `json:"id"`
	Kind       TaskKind        `json:"kind"`
	Roots      []int32         `json:"roots"`
	Done       bool            `json:"done"`
	CreatedAt  time.Time       `json:"created_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Failed     int             `json:"failed"`
	Summary    string          `json:"summary,omitempty"`
	Restart    string          `json:"restart,omitempty"`
	Error      string          `json:"error,omitempty"`
	Reports    []reaper.Report `json:"reports,omitempty"`
}

func newTask(kind TaskKind, roots []procinfo.PID) *Task {
	return &Task{
		ID:        uuid.NewString(),
		Kind:      kind,
		Roots:     slices.Clone(roots),
		CreatedAt: time.Now(),
		done:      make(chan struct{}),
	}
}

// Done is closed when the task has finished.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Reports returns the kill reports, one per root, in root order.
func (t *Task) Reports() []reaper.Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.reports)
}

// Summary returns the formatted kill report.
func (t *Task) Summary() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.summary
}

// Err returns the error of the restart step of a kill-and-restart task.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Failed returns the number of targets that survived escalation.
func (t *Task) Failed() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return countFailures(t.reports)
}

// Info returns a snapshot of the task.
func (t *Task) Info() TaskInfo {
	t.mu.Lock()
	defer t.mu.Unlock()

	info := TaskInfo{
		ID:        t.ID,
		Kind:      t.Kind,
		Roots:     pidsToInt32(t.Roots),
		CreatedAt: t.CreatedAt,
		Failed:    countFailures(t.reports),
		Summary:   t.summary,
		Restart:   t.restart,
		Reports:   slices.Clone(t.reports),
	}
	if !t.finishedAt.IsZero() {
		finished := t.finishedAt
		info.Done = true
		info.FinishedAt = &finished
	}
	if t.err != nil {
		info.Error = t.err.Error()
	}
	return info
}

func (t *Task) finish(reports []reaper.Report, summary, restart string, err error) {
	t.mu.Lock()
	t.reports = reports
	t.summary = summary
	t.restart = restart
	t.err = err
	t.finishedAt = time.Now()
	t.mu.Unlock()
	close(t.done)
}

func countFailures(reports []reaper.Report) int {
	n := 0
	for _, r := range reports {
		n += len(r.Failures())
	}
	return n
}

// taskStore keeps running tasks and a bounded history of finished ones.
type taskStore struct {
	mu       sync.Mutex
	tasks    map[string]*Task
	finished []string
}

func newTaskStore() *taskStore {
	return &taskStore{tasks: make(map[string]*Task)}
}

func (s *taskStore) add(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = t
}

func (s *taskStore) markFinished(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = append(s.finished, t.ID)
	for len(s.finished) > maxFinishedTasks {
		delete(s.tasks, s.finished[0])
		s.finished = s.finished[1:]
	}
}

func (s *taskStore) get(id string) (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	return t, ok
}

func (s *taskStore) list() []*Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b *Task) int { return a.CreatedAt.Compare(b.CreatedAt) })
	return out
}
