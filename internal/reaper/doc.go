// Package reaper terminates processes and their descendant trees.
//
// Termination escalates in two steps:
//   - a graceful stop request (SIGTERM on Unix), then liveness polling every
//     200ms until the process is gone or the timeout elapses
//   - a forced stop (SIGKILL on Unix) followed by a 300ms settle period and a
//     final liveness check
//
// The Coordinator takes one snapshot of the process table, collects the
// descendants of the root, terminates them concurrently on a bounded worker
// pool, and only then terminates the root. The resulting Report lists the
// descendants' outcomes first (in completion order) and the root last.
//
// Platform specifics live behind the Signaler interface; Terminator and
// Coordinator never call OS APIs directly.
package reaper
