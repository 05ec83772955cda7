package events

// Event type constants for kelindar/event.
const (
	TypeProcessLog uint32 = iota + 1
	TypeKillCompleted
	TypeRespawnStateChanged
	TypeLogEntry
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// ProcessLogEvent is one human-readable progress line on the process log
// channel. Every kill outcome, restart and respawn transition produces one,
// and for background operations it is the primary way results reach a client.
type ProcessLogEvent struct {
	Message   string `json:"message" example:"PID 4242 killed gracefully (SIGTERM)" doc:"Progress message"`
	Timestamp string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for ProcessLogEvent.
func (e ProcessLogEvent) Type() uint32 { return TypeProcessLog }

// KillCompletedEvent is published when a background kill task finishes.
type KillCompletedEvent struct {
	TaskID    string  `json:"task_id" example:"0b6f3c1e-6f0d-4b39-9a51-2f1d8c1f8f9e" doc:"Task identifier"`
	Kind      string  `json:"kind" example:"kill" doc:"Task kind: kill, batch-kill, kill-and-restart"`
	Roots     []int32 `json:"roots" doc:"Root PIDs targeted by the task"`
	Failed    int     `json:"failed" example:"0" doc:"Number of processes that survived escalation"`
	Summary   string  `json:"summary" doc:"Formatted kill report"`
	Timestamp string  `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for KillCompletedEvent.
func (e KillCompletedEvent) Type() uint32 { return TypeKillCompleted }

// RespawnStateChangedEvent reports a respawn session state transition.
type RespawnStateChangedEvent struct {
	SessionPID int32  `json:"session_pid" example:"4242" doc:"PID the session was registered under"`
	ChildPID   int    `json:"child_pid,omitempty" example:"5151" doc:"PID of the current child, if any"`
	OldState   string `json:"old_state" example:"running" doc:"Previous state"`
	NewState   string `json:"new_state" example:"exited" doc:"New state"`
	Error      string `json:"error,omitempty" doc:"Error that caused the transition"`
	Timestamp  string `json:"timestamp" example:"2025-01-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for RespawnStateChangedEvent.
func (e RespawnStateChangedEvent) Type() uint32 { return TypeRespawnStateChanged }

// LogEntryEvent represents an application log entry for SSE streaming.
type LogEntryEvent struct {
	Seq        uint64         `json:"seq" example:"42" doc:"Monotonic sequence number for deduplication"`
	Timestamp  string         `json:"timestamp" example:"2025-01-09T10:30:00.123Z" doc:"Log timestamp"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"api" doc:"Source module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured log attributes"`
}

// Type returns the event type identifier for LogEntryEvent.
func (e LogEntryEvent) Type() uint32 { return TypeLogEntry }
