package reaper

import (
	"context"
	"log/slog"
	"time"

	"github.com/milmil7/gui-reaper/internal/metrics"
	"github.com/milmil7/gui-reaper/internal/procinfo"
)

// Escalation timing.
const (
	PollInterval = 200 * time.Millisecond
	SettleDelay  = 300 * time.Millisecond
)

// Signaler delivers stop requests to a process.
type Signaler interface {
	// RequestGracefulStop asks the process to exit. The process may ignore it.
	RequestGracefulStop(pid procinfo.PID) error
	// ForceStop terminates the process unconditionally.
	ForceStop(pid procinfo.PID) error
}

// Liveness answers whether a process currently exists. Every call must
// observe the live process table, not a cached snapshot.
type Liveness interface {
	Alive(ctx context.Context, pid procinfo.PID) (bool, error)
}

// Notifier receives one human-readable line per terminal outcome.
type Notifier func(msg string)

// Terminator runs the escalating termination protocol for single processes.
type Terminator struct {
	signaler     Signaler
	liveness     Liveness
	logger       *slog.Logger
	notify       Notifier
	pollInterval time.Duration
	settleDelay  time.Duration
	sleep        func(context.Context, time.Duration) error
}

// NewTerminator creates a Terminator. notify may be nil.
func NewTerminator(signaler Signaler, liveness Liveness, logger *slog.Logger, notify Notifier) *Terminator {
	if logger == nil {
		logger = slog.Default()
	}
	if notify == nil {
		notify = func(string) {}
	}
	return &Terminator{
		signaler:     signaler,
		liveness:     liveness,
		logger:       logger,
		notify:       notify,
		pollInterval: PollInterval,
		settleDelay:  SettleDelay,
		sleep:        sleepWithContext,
	}
}

// Terminate stops pid, escalating to a forced stop when it is still alive
// after timeout. A timeout of zero skips the graceful wait entirely. If ctx
// is cancelled while waiting, the forced stop is sent immediately.
//
// Terminate blocks for at most timeout plus the settle delay.
func (t *Terminator) Terminate(ctx context.Context, pid procinfo.PID, timeout time.Duration, depth int) Outcome {
	start := time.Now()
	outcome := t.escalate(ctx, pid, timeout, depth)

	metrics.ObserveKillOutcome(outcome.Result.String(), time.Since(start))
	t.logger.Info("Termination finished", "pid", pid, "depth", depth, "result", outcome.Result.String())
	t.notify(outcome.String())
	return outcome
}

func (t *Terminator) escalate(ctx context.Context, pid procinfo.PID, timeout time.Duration, depth int) Outcome {
	outcome := Outcome{PID: pid, Depth: depth}
	if !pid.Valid() {
		t.logger.Warn("Refusing to signal invalid pid", "pid", pid)
		outcome.Result = Failed
		return outcome
	}

	if err := t.signaler.RequestGracefulStop(pid); err != nil {
		t.logger.Debug("Graceful stop request failed", "pid", pid, "error", err)
	}

	var elapsed time.Duration
	for elapsed < timeout {
		if err := t.sleep(ctx, t.pollInterval); err != nil {
			t.logger.Debug("Graceful wait interrupted", "pid", pid, "error", err)
			break
		}
		elapsed += t.pollInterval
		if !t.alive(ctx, pid) {
			outcome.Result = KilledGracefully
			return outcome
		}
	}

	// No grace period was granted; a process that is already gone still
	// counts as a graceful exit and is never force-signalled.
	if timeout <= 0 && !t.alive(ctx, pid) {
		outcome.Result = KilledGracefully
		return outcome
	}

	t.logger.Debug("Escalating to forced stop", "pid", pid, "waited", elapsed)
	if err := t.signaler.ForceStop(pid); err != nil {
		t.logger.Debug("Forced stop failed", "pid", pid, "error", err)
	}

	_ = t.sleep(context.WithoutCancel(ctx), t.settleDelay)

	if t.alive(context.WithoutCancel(ctx), pid) {
		outcome.Result = Failed
	} else {
		outcome.Result = KilledForcefully
	}
	return outcome
}

// alive reports a failed liveness check as still running.
func (t *Terminator) alive(ctx context.Context, pid procinfo.PID) bool {
	ok, err := t.liveness.Alive(ctx, pid)
	if err != nil {
		t.logger.Debug("Liveness check failed", "pid", pid, "error", err)
		return true
	}
	return ok
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
