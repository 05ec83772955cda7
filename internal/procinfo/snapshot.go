package procinfo

import (
	"errors"
	"sort"
)

// PID identifies an operating system process. It is a lookup key, not an
// owned resource: the process it names may already have exited.
type PID int32

// ErrNotFound is returned when a process does not exist.
var ErrNotFound = errors.New("process not found")

// ErrInvalidPID is returned for a PID that does not name a single process.
// On unix, 0 and negative values address whole process groups.
var ErrInvalidPID = errors.New("invalid pid")

// Valid reports whether p can name a single process.
func (p PID) Valid() bool {
	return p > 0
}

// Entry is one row of a snapshot.
type Entry struct {
	PID       PID
	Parent    PID
	HasParent bool
	Name      string
}

// Snapshot is a point-in-time view of the process table.
type Snapshot struct {
	entries map[PID]Entry
}

// NewSnapshot builds a snapshot from entries. Later duplicates win.
func NewSnapshot(entries []Entry) *Snapshot {
	m := make(map[PID]Entry, len(entries))
	for _, e := range entries {
		m[e.PID] = e
	}
	return &Snapshot{entries: m}
}

// Len returns the number of processes in the snapshot.
func (s *Snapshot) Len() int {
	return len(s.entries)
}

// Lookup returns the entry for pid.
func (s *Snapshot) Lookup(pid PID) (Entry, bool) {
	e, ok := s.entries[pid]
	return e, ok
}

// Exists reports whether pid was running when the snapshot was taken.
func (s *Snapshot) Exists(pid PID) bool {
	_, ok := s.entries[pid]
	return ok
}

// Entries returns all entries in iteration order of the underlying map.
func (s *Snapshot) Entries() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out
}

// Children returns the direct children of pid, sorted ascending.
func (s *Snapshot) Children(pid PID) []PID {
	var out []PID
	for _, e := range s.entries {
		if e.HasParent && e.Parent == pid {
			out = append(out, e.PID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
