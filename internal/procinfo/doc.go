// Package procinfo takes snapshots of the operating system process table.
//
// A Snapshot is an immutable view of the parent relation between processes,
// captured in a single pass. Tree walks operate on one snapshot so that a
// process exiting mid-walk cannot change the shape of the computed tree.
// A PID that is absent from a snapshot is treated as already exited.
//
// System is the gopsutil-backed provider. Besides snapshots it answers
// liveness checks (used by escalating termination, which needs a fresh view
// on every poll) and produces the detailed ProcessInfo records exposed by the
// list and lookup operations.
package procinfo
