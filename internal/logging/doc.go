// Package logging provides slog module loggers with per-module levels.
//
// Every record goes to up to three sinks:
//   - a text or JSON writer (stdout for the daemon, stderr for one-shot commands)
//   - the systemd journal, when journald is reachable
//   - an in-memory ring buffer that backs the application log stream
//
// Initialize once at startup, then ask for a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text",
//		Modules: map[string]string{"reaper": "debug", "api": "warn"},
//	})
//	logger := logging.GetLogger("reaper")
//	logger.Info("Escalating to forced kill", "pid", pid)
//
// Loggers handed out before Initialize are cached and pick up the configured
// sinks and levels. SetLevels retunes levels at runtime without rebuilding
// handlers, which is how config reloads take effect.
//
// In the journal, attributes become upper-case fields and the module is a
// field of its own:
//
//	journalctl -t reaper MODULE=respawn
//	journalctl -t reaper PID=4242 -p warning
package logging
