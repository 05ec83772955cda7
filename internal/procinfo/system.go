package procinfo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/shirou/gopsutil/v4/process"
)

// ioSample remembers the cumulative I/O counters seen on the previous refresh
// so that per-refresh deltas can be reported.
type ioSample struct {
	read    uint64
	written uint64
}

// System is a Provider backed by gopsutil.
//
// It keeps gopsutil process handles between calls so that CPU percentages
// and instantaneous I/O figures are measured relative to the previous
// refresh, the same way a long-lived task manager view behaves.
type System struct {
	mu      sync.Mutex
	handles map[int32]*process.Process
	created map[int32]int64
	lastIO  map[int32]ioSample
	logger  *slog.Logger
}

// NewSystem creates a gopsutil-backed provider.
func NewSystem(logger *slog.Logger) *System {
	if logger == nil {
		logger = slog.Default()
	}
	return &System{
		handles: make(map[int32]*process.Process),
		created: make(map[int32]int64),
		lastIO:  make(map[int32]ioSample),
		logger:  logger,
	}
}

// Snapshot captures the parent relation of every running process.
func (s *System) Snapshot(ctx context.Context) (*Snapshot, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate processes: %w", err)
	}

	entries := make([]Entry, 0, len(procs))
	for _, p := range procs {
		ppid, err := p.PpidWithContext(ctx)
		if err != nil {
			// Exited between enumeration and the parent lookup.
			if gone(err) {
				continue
			}
			s.logger.Debug("Failed to read parent pid", "pid", p.Pid, "error", err)
		}
		name, _ := p.NameWithContext(ctx)
		entries = append(entries, Entry{
			PID:       PID(p.Pid),
			Parent:    PID(ppid),
			HasParent: err == nil && ppid > 0 && ppid != p.Pid,
			Name:      name,
		})
	}
	return NewSnapshot(entries), nil
}

// Alive reports whether pid currently exists. Zombies count as exited since
// they can no longer be signalled into doing anything.
func (s *System) Alive(ctx context.Context, pid PID) (bool, error) {
	exists, err := process.PidExistsWithContext(ctx, int32(pid))
	if err != nil || !exists {
		return exists, err
	}
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		if gone(err) {
			return false, nil
		}
		return true, err
	}
	status, err := p.StatusWithContext(ctx)
	if err != nil {
		return true, nil //nolint:nilerr // status is best effort once existence is known
	}
	return !slices.Contains(status, process.Zombie), nil
}

// List returns detailed information for every running process.
func (s *System) List(ctx context.Context) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate processes: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parents := make(map[int32]int32, len(procs))
	for _, p := range procs {
		if ppid, err := p.PpidWithContext(ctx); err == nil {
			parents[p.Pid] = ppid
		}
	}
	children := make(map[int32][]int32, len(procs))
	for pid, ppid := range parents {
		children[ppid] = append(children[ppid], pid)
	}

	seen := make(map[int32]struct{}, len(procs))
	infos := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		h := s.handleLocked(ctx, p)
		info, ok := s.describeLocked(ctx, h, parents, children)
		if !ok {
			continue
		}
		seen[p.Pid] = struct{}{}
		infos = append(infos, info)
	}
	s.pruneLocked(seen)

	slices.SortFunc(infos, func(a, b ProcessInfo) int { return int(a.PID) - int(b.PID) })
	return infos, nil
}

// Lookup returns detailed information for a single process.
func (s *System) Lookup(ctx context.Context, pid PID) (ProcessInfo, error) {
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		if gone(err) {
			return ProcessInfo{}, fmt.Errorf("pid %d: %w", pid, ErrNotFound)
		}
		return ProcessInfo{}, fmt.Errorf("open pid %d: %w", pid, err)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return ProcessInfo{}, err
	}
	parents := make(map[int32]int32)
	children := map[int32][]int32{
		int32(pid): lo.Map(snap.Children(pid), func(c PID, _ int) int32 { return int32(c) }),
	}
	if e, ok := snap.Lookup(pid); ok && e.HasParent {
		parents[int32(pid)] = int32(e.Parent)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.describeLocked(ctx, s.handleLocked(ctx, p), parents, children)
	if !ok {
		return ProcessInfo{}, fmt.Errorf("pid %d: %w", pid, ErrNotFound)
	}
	return info, nil
}

// handleLocked returns the cached gopsutil handle for p, replacing it when
// the PID has been reused by a different process.
func (s *System) handleLocked(ctx context.Context, p *process.Process) *process.Process {
	created, _ := p.CreateTimeWithContext(ctx)
	if h, ok := s.handles[p.Pid]; ok && s.created[p.Pid] == created {
		return h
	}
	s.handles[p.Pid] = p
	s.created[p.Pid] = created
	delete(s.lastIO, p.Pid)
	return p
}

func (s *System) pruneLocked(seen map[int32]struct{}) {
	for pid := range s.handles {
		if _, ok := seen[pid]; !ok {
			delete(s.handles, pid)
			delete(s.created, pid)
			delete(s.lastIO, pid)
		}
	}
}

func (s *System) describeLocked(
	ctx context.Context,
	p *process.Process,
	parents map[int32]int32,
	children map[int32][]int32,
) (ProcessInfo, bool) {
	name, err := p.NameWithContext(ctx)
	if gone(err) {
		return ProcessInfo{}, false
	}

	info := ProcessInfo{
		PID:      p.Pid,
		Name:     name,
		Children: children[p.Pid],
	}
	if info.Children == nil {
		info.Children = []int32{}
	}
	slices.Sort(info.Children)

	if ppid, ok := parents[p.Pid]; ok && ppid > 0 {
		info.ParentPID = &ppid
	}
	if args, err := p.CmdlineSliceWithContext(ctx); err == nil {
		info.Cmd = strings.Join(args, " ")
	}
	if exe, err := p.ExeWithContext(ctx); err == nil {
		info.Exe = exe
	}
	if cpu, err := p.PercentWithContext(ctx, 0); err == nil {
		info.CPU = cpu
	}
	if mem, err := p.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		info.MemoryKiB = float64(mem.RSS) / 1024.0
	}
	if created := s.created[p.Pid]; created > 0 {
		if up := time.Since(time.UnixMilli(created)); up > 0 {
			info.UptimeSecs = uint64(up.Seconds())
		}
	}
	if io, err := p.IOCountersWithContext(ctx); err == nil && io != nil {
		info.TotalReadBytes = io.ReadBytes
		info.TotalWrittenBytes = io.WriteBytes
		if prev, ok := s.lastIO[p.Pid]; ok {
			info.ReadBytes = io.ReadBytes - min(prev.read, io.ReadBytes)
			info.WrittenBytes = io.WriteBytes - min(prev.written, io.WriteBytes)
		}
		s.lastIO[p.Pid] = ioSample{read: io.ReadBytes, written: io.WriteBytes}
	}
	return info, true
}

// gone reports whether err says the process no longer exists: gopsutil's
// sentinel from the constructor, or a vanished /proc entry on later reads.
func gone(err error) bool {
	return errors.Is(err, process.ErrorProcessNotRunning) || errors.Is(err, fs.ErrNotExist)
}
