package reaper

import (
	"context"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/milmil7/gui-reaper/internal/procinfo"
)

// Snapshotter captures the process table.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*procinfo.Snapshot, error)
}

// CoordinatorOptions configures a Coordinator.
type CoordinatorOptions struct {
	// Snapshots provides the process table used for tree discovery (required).
	Snapshots Snapshotter

	// Terminator runs the per-process escalation (required).
	Terminator *Terminator

	// Workers bounds concurrent descendant terminations. Defaults to NumCPU.
	Workers int

	// Logger for coordinator operations. If nil, uses slog.Default().
	Logger *slog.Logger
}

// Coordinator kills process trees: descendants in parallel, the root last.
type Coordinator struct {
	snapshots Snapshotter
	term      *Terminator
	workers   int
	logger    *slog.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(opts *CoordinatorOptions) *Coordinator {
	if opts == nil || opts.Snapshots == nil || opts.Terminator == nil {
		panic("CoordinatorOptions with Snapshots and Terminator is required")
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Coordinator{
		snapshots: opts.Snapshots,
		term:      opts.Terminator,
		workers:   workers,
		logger:    logger,
	}
}

// KillTree terminates root and, when killChildren is set, every descendant
// of root as seen in a single snapshot taken up front. Descendants are
// dispatched deepest first and processed concurrently; the root is only
// targeted after all of them have finished.
func (c *Coordinator) KillTree(ctx context.Context, root procinfo.PID, killChildren bool, timeout time.Duration) Report {
	descendants := c.descendants(ctx, root, killChildren)

	c.logger.Info("Killing process tree", "root", root, "descendants", len(descendants), "timeout", timeout)

	var (
		mu       sync.Mutex
		outcomes = make([]Outcome, 0, len(descendants)+1)
	)

	var g errgroup.Group
	g.SetLimit(c.workers)
	for _, d := range descendants {
		g.Go(func() error {
			o := c.term.Terminate(ctx, d.PID, timeout, d.Depth)
			mu.Lock()
			outcomes = append(outcomes, o)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	outcomes = append(outcomes, c.term.Terminate(ctx, root, timeout, 0))
	return Report{Root: root, Outcomes: outcomes}
}

// BatchKill kills each root in turn. Roots are processed strictly one after
// another, and so are the descendants within each root.
func (c *Coordinator) BatchKill(ctx context.Context, roots []procinfo.PID, killChildren bool, timeout time.Duration) []Report {
	reports := make([]Report, 0, len(roots))
	for _, root := range roots {
		descendants := c.descendants(ctx, root, killChildren)

		outcomes := make([]Outcome, 0, len(descendants)+1)
		for _, d := range descendants {
			outcomes = append(outcomes, c.term.Terminate(ctx, d.PID, timeout, d.Depth))
		}
		outcomes = append(outcomes, c.term.Terminate(ctx, root, timeout, 0))

		reports = append(reports, Report{Root: root, Outcomes: outcomes})
	}
	return reports
}

// descendants returns root's descendants sorted deepest first, or nothing
// when children are not requested or root is not a valid PID. A snapshot failure is logged and the
// root is still attempted on its own.
func (c *Coordinator) descendants(ctx context.Context, root procinfo.PID, killChildren bool) []Descendant {
	if !killChildren || !root.Valid() {
		return nil
	}

	snap, err := c.snapshots.Snapshot(ctx)
	if err != nil {
		c.logger.Warn("Failed to snapshot process table, killing root only", "root", root, "error", err)
		return nil
	}

	descendants := CollectDescendants(root, snap)
	slices.SortStableFunc(descendants, func(a, b Descendant) int { return b.Depth - a.Depth })
	return descendants
}
