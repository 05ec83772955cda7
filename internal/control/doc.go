// Package control is the single entry point for process-lifecycle
// operations: enumeration, tree termination, restart, respawn supervision,
// priority and resource limits.
//
// Kill operations are accepted immediately and run in the background. The
// returned Task can be awaited, and every result is also published as a
// human-readable line on the process log channel of the event bus.
package control
