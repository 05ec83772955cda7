// Package process launches and supervises child processes.
//
// The package offers two levels of abstraction:
//
// Child wraps os/exec for a single launched process:
//   - Output streaming of stdout/stderr into a module logger
//   - Non-blocking exit checks (Exited) and a Done channel
//   - Force kill and exit code reporting
//
// Registry supervises respawn sessions keyed by a logical session id:
//   - Start/Stop/Get/List sessions
//   - State tracking (starting, running, exited, restarting, cancelled, terminated)
//   - A bounded restart budget with a delay between launches
//   - Callback hook for state changes
//   - StopAll for shutdown of every session
//
// Cancellation is cooperative: a stopped session notices at its next check,
// so stop latency is bounded by the session's check interval.
//
// Example usage with Registry:
//
//	reg := process.NewRegistry(&process.RegistryOptions{
//	    OnStateChange: func(key procinfo.PID, child int, old, new process.State, err error) {
//	        log.Printf("Session %d: %s -> %s", key, old, new)
//	    },
//	})
//	reg.Start(process.SessionSpec{
//	    Key:           4242,
//	    Command:       "/usr/bin/worker",
//	    CheckInterval: time.Second,
//	    RestartDelay:  2 * time.Second,
//	    MaxRestarts:   5,
//	})
//	defer reg.StopAll()
package process
