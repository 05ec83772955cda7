package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/milmil7/gui-reaper/internal/events"
	"github.com/milmil7/gui-reaper/internal/limits"
	"github.com/milmil7/gui-reaper/internal/priority"
	"github.com/milmil7/gui-reaper/internal/procinfo"
	"github.com/milmil7/gui-reaper/internal/process"
	"github.com/milmil7/gui-reaper/internal/reaper"
)

// ProcessSource enumerates and describes running processes.
type ProcessSource interface {
	List(ctx context.Context) ([]procinfo.ProcessInfo, error)
	Lookup(ctx context.Context, pid procinfo.PID) (procinfo.ProcessInfo, error)
}

// Killer terminates process trees.
type Killer interface {
	KillTree(ctx context.Context, root procinfo.PID, killChildren bool, timeout time.Duration) reaper.Report
	BatchKill(ctx context.Context, roots []procinfo.PID, killChildren bool, timeout time.Duration) []reaper.Report
}

// Options configures a Controller.
type Options struct {
	// Processes provides enumeration and lookup (required).
	Processes ProcessSource

	// Killer runs tree terminations (required).
	Killer Killer

	// Registry owns respawn sessions (required).
	Registry *process.Registry

	// Bus receives progress lines. If nil, lines are only logged.
	Bus *events.Bus

	// Launcher starts restarted processes. If nil, uses process.Launch.
	Launcher process.Launcher

	// SetPriority changes scheduling priority. If nil, uses priority.Set.
	SetPriority priority.Setter

	// ApplyLimits sets resource ceilings. If nil, uses limits.Apply.
	ApplyLimits func(limits.Limits) error

	// Logger for controller operations. If nil, uses slog.Default().
	Logger *slog.Logger

	// ChildLogger receives output of restarted processes. If nil, uses Logger.
	ChildLogger *slog.Logger
}

// Controller is the entry point for every process-lifecycle operation.
// Kill operations run in the background and return a Task; their progress
// and final report are also published as process log lines.
type Controller struct {
	processes   ProcessSource
	killer      Killer
	registry    *process.Registry
	launch      process.Launcher
	setPriority priority.Setter
	applyLimits func(limits.Limits) error
	logger      *slog.Logger
	childLogger *slog.Logger
	notify      reaper.Notifier
	bus         *events.Bus

	tasks  *taskStore
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Controller.
func New(opts *Options) *Controller {
	if opts == nil || opts.Processes == nil || opts.Killer == nil || opts.Registry == nil {
		panic("Options with Processes, Killer and Registry is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	childLogger := opts.ChildLogger
	if childLogger == nil {
		childLogger = logger
	}

	c := &Controller{
		processes:   opts.Processes,
		killer:      opts.Killer,
		registry:    opts.Registry,
		launch:      opts.Launcher,
		setPriority: opts.SetPriority,
		applyLimits: opts.ApplyLimits,
		logger:      logger,
		childLogger: childLogger,
		notify:      LogNotifier(opts.Bus, logger),
		bus:         opts.Bus,
		tasks:       newTaskStore(),
	}
	if c.launch == nil {
		c.launch = process.LaunchHandle
	}
	if c.setPriority == nil {
		c.setPriority = priority.Set
	}
	if c.applyLimits == nil {
		c.applyLimits = limits.Apply
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// ListProcesses returns every running process.
func (c *Controller) ListProcesses(ctx context.Context) ([]procinfo.ProcessInfo, error) {
	list, err := c.processes.List(ctx)
	if err != nil {
		return nil, NewError(ErrCodePlatformAPIFailure, "failed to enumerate processes", err)
	}
	return list, nil
}

// LookupProcess returns the process with pid.
func (c *Controller) LookupProcess(ctx context.Context, pid procinfo.PID) (procinfo.ProcessInfo, error) {
	info, err := c.processes.Lookup(ctx, pid)
	if errors.Is(err, procinfo.ErrNotFound) {
		c.emit("No such process")
		return procinfo.ProcessInfo{}, NewError(ErrCodeNotFound, fmt.Sprintf("process %d not found", pid), err)
	}
	if err != nil {
		return procinfo.ProcessInfo{}, NewError(ErrCodePlatformAPIFailure, fmt.Sprintf("failed to inspect process %d", pid), err)
	}
	return info, nil
}

// KillProcess terminates pid, and its descendants when killChildren is set,
// in the background.
func (c *Controller) KillProcess(pid procinfo.PID, killChildren bool, timeout time.Duration) (*Task, error) {
	if err := checkPIDs(pid); err != nil {
		return nil, err
	}
	task := newTask(TaskKill, []procinfo.PID{pid})
	c.run(task, func(ctx context.Context) ([]reaper.Report, string, string, error) {
		report := c.killer.KillTree(ctx, pid, killChildren, clampTimeout(timeout))
		summary := reaper.Summary(report)
		c.emit(summary)
		return []reaper.Report{report}, summary, "", nil
	})
	return task, nil
}

// BatchKill terminates each pid in turn in the background. The whole batch
// is rejected when any pid is invalid.
func (c *Controller) BatchKill(pids []procinfo.PID, killChildren bool, timeout time.Duration) (*Task, error) {
	if err := checkPIDs(pids...); err != nil {
		return nil, err
	}
	task := newTask(TaskBatchKill, pids)
	c.run(task, func(ctx context.Context) ([]reaper.Report, string, string, error) {
		reports := c.killer.BatchKill(ctx, pids, killChildren, clampTimeout(timeout))
		summary := reaper.BatchSummary(reports)
		c.emit(summary)
		return reports, summary, "", nil
	})
	return task, nil
}

// KillAndRestart terminates pid like KillProcess, then launches exe. The
// relaunch happens whatever the kill outcome was.
func (c *Controller) KillAndRestart(pid procinfo.PID, killChildren bool, timeout time.Duration, exe string, args []string) (*Task, error) {
	if err := checkPIDs(pid); err != nil {
		return nil, err
	}
	task := newTask(TaskKillAndRestart, []procinfo.PID{pid})
	c.run(task, func(ctx context.Context) ([]reaper.Report, string, string, error) {
		report := c.killer.KillTree(ctx, pid, killChildren, clampTimeout(timeout))
		summary := reaper.Summary(report)
		c.emit(summary)

		msg, err := c.RestartProcess(exe, args)
		return []reaper.Report{report}, summary, msg, err
	})
	return task, nil
}

// RestartProcess launches exe detached from any request and returns a
// confirmation naming the new PID.
func (c *Controller) RestartProcess(exe string, args []string) (string, error) {
	if exe == "" {
		return "", NewError(ErrCodeInvalidParams, "executable path is required", nil)
	}

	child, err := c.launch(context.Background(), exe, args, c.childLogger)
	if err != nil {
		c.emit(fmt.Sprintf("Failed to restart process: %v", err))
		return "", NewError(ErrCodeLaunchFailure, fmt.Sprintf("failed to restart %s", exe), err)
	}

	msg := fmt.Sprintf("Restarted process %s with PID %d", exe, child.PID())
	c.emit(msg)
	return msg, nil
}

// SetPriority changes the scheduling priority of pid.
func (c *Controller) SetPriority(pid procinfo.PID, value int) (string, error) {
	if err := checkPIDs(pid); err != nil {
		return "", err
	}
	msg, err := c.setPriority(pid, value)
	if err != nil {
		c.emit(fmt.Sprintf("Failed to set priority for PID %d: %v", pid, err))
		if errors.Is(err, priority.ErrInvalidValue) {
			return "", NewError(ErrCodeInvalidParams, "invalid priority", err)
		}
		return "", NewError(ErrCodePlatformAPIFailure, fmt.Sprintf("failed to set priority for PID %d", pid), err)
	}
	c.emit(msg)
	return msg, nil
}

// BatchSetPriority applies value to each pid in order and returns one
// "PID n: message" line per pid. The whole batch is rejected when any pid
// is invalid.
func (c *Controller) BatchSetPriority(pids []procinfo.PID, value int) (string, error) {
	if err := checkPIDs(pids...); err != nil {
		return "", err
	}
	out := priority.Batch(pids, value, c.setPriority)
	c.emit(out)
	return out, nil
}

// AutoRespawn starts a respawn session registered under spec.Key.
func (c *Controller) AutoRespawn(spec process.SessionSpec) (string, error) {
	if _, err := c.registry.Start(spec); err != nil {
		if errors.Is(err, process.ErrInvalidSpec) {
			return "", NewError(ErrCodeInvalidParams, "invalid respawn request", err)
		}
		return "", NewError(ErrCodeLaunchFailure, "failed to start respawn session", err)
	}

	msg := fmt.Sprintf("Auto-respawn started for pid %d", spec.Key)
	c.emit(msg)
	return msg, nil
}

// StopAutoRespawn stops the respawn session registered under pid.
func (c *Controller) StopAutoRespawn(pid procinfo.PID) (string, error) {
	if err := c.registry.Stop(pid); err != nil {
		return "", NewError(ErrCodeNotFound, fmt.Sprintf("No auto-respawn running for PID %d", pid), err)
	}
	msg := fmt.Sprintf("Stopped auto-respawn for PID %d", pid)
	c.emit(msg)
	return msg, nil
}

// RespawnSessions lists the registered respawn sessions.
func (c *Controller) RespawnSessions() []process.SessionInfo {
	return c.registry.List()
}

// SetProcessLimits applies resource ceilings to a process.
func (c *Controller) SetProcessLimits(l limits.Limits) error {
	err := c.applyLimits(l)
	switch {
	case err == nil:
		c.emit(fmt.Sprintf("Applied limits to PID %d", l.PID))
		return nil
	case errors.Is(err, limits.ErrUnsupported):
		return NewError(ErrCodePlatformUnsupported, "process limits are not supported on this platform", err)
	case errors.Is(err, limits.ErrNoLimits):
		return NewError(ErrCodeInvalidParams, "no limits requested", err)
	case errors.Is(err, limits.ErrOutOfRange), errors.Is(err, procinfo.ErrInvalidPID):
		return NewError(ErrCodeInvalidParams, "invalid limits request", err)
	default:
		return NewError(ErrCodePlatformAPIFailure, fmt.Sprintf("failed to apply limits to PID %d", l.PID), err)
	}
}

// Task returns a running or recently finished task.
func (c *Controller) Task(id string) (*Task, bool) {
	return c.tasks.get(id)
}

// Tasks returns known tasks, oldest first.
func (c *Controller) Tasks() []*Task {
	return c.tasks.list()
}

// Close stops every respawn session and waits for background tasks. Kill
// tasks still waiting out a grace period escalate immediately.
func (c *Controller) Close(ctx context.Context) error {
	c.cancel()
	c.registry.StopAll()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for background tasks: %w", ctx.Err())
	}
}

// run executes fn for task on its own goroutine.
func (c *Controller) run(task *Task, fn func(ctx context.Context) ([]reaper.Report, string, string, error)) {
	c.tasks.add(task)
	c.logger.Info("Task accepted", "task_id", task.ID, "kind", task.Kind, "roots", task.Roots)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		reports, summary, restart, err := fn(c.ctx)
		task.finish(reports, summary, restart, err)
		c.tasks.markFinished(task)

		failed := countFailures(reports)
		c.logger.Info("Task finished", "task_id", task.ID, "kind", task.Kind, "failed", failed)
		publish(c.bus, events.KillCompletedEvent{
			TaskID:    task.ID,
			Kind:      string(task.Kind),
			Roots:     pidsToInt32(task.Roots),
			Failed:    failed,
			Summary:   summary,
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}()
}

func (c *Controller) emit(msg string) {
	c.notify(msg)
}

// checkPIDs rejects PIDs that the platform would widen to a process group
// or resolve to the daemon itself.
func checkPIDs(pids ...procinfo.PID) error {
	invalid := lo.Reject(pids, func(pid procinfo.PID, _ int) bool { return pid.Valid() })
	if len(invalid) > 0 {
		return NewError(ErrCodeInvalidParams, fmt.Sprintf("invalid pids %v", invalid), procinfo.ErrInvalidPID)
	}
	return nil
}

func clampTimeout(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}

func pidsToInt32(pids []procinfo.PID) []int32 {
	return lo.Map(pids, func(pid procinfo.PID, _ int) int32 { return int32(pid) })
}
