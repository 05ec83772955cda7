package models

import (
	"github.com/milmil7/gui-reaper/internal/control"
	"github.com/milmil7/gui-reaper/internal/procinfo"
	"github.com/milmil7/gui-reaper/internal/process"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.0.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc123" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2025-01-27T10:30:00Z" doc:"Build timestamp"`
	BuildID   string `json:"build_id" example:"42" doc:"Build identifier"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go runtime version"`
	Compiler  string `json:"compiler" example:"gc" doc:"Go compiler"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Operating system and architecture"`
}

type VersionResponse struct {
	Body VersionData
}

// MessageData is the confirmation returned by synchronous operations.
type MessageData struct {
	Message string `json:"message" example:"Set PID 4242 nice level to 5" doc:"Human-readable result"`
}

type MessageResponse struct {
	Body MessageData
}

// Process models
type PIDInput struct {
	PID int32 `path:"pid" minimum:"1" example:"4242" doc:"Process ID"`
}

type ProcessListData struct {
	Processes []procinfo.ProcessInfo `json:"processes" doc:"Running processes"`
	Count     int                    `json:"count" example:"312" doc:"Number of processes"`
}

type ProcessListResponse struct {
	Body ProcessListData
}

type ProcessResponse struct {
	Body procinfo.ProcessInfo
}

// KillOptions are shared by the kill operations.
type KillOptions struct {
	KillChildren bool `json:"kill_children,omitempty" doc:"Also terminate every descendant before the root"`
	TimeoutSecs  *int `json:"timeout_secs,omitempty" minimum:"0" maximum:"300" example:"5" doc:"Seconds to wait after the graceful request; server default when omitted"`
}

type KillRequest struct {
	PID  int32 `path:"pid" minimum:"1" example:"4242" doc:"Root process ID"`
	Body KillOptions
}

type BatchKillData struct {
	PIDs []int32 `json:"pids" minItems:"1" doc:"Root process IDs, processed in order"`
	KillOptions
}

type BatchKillRequest struct {
	Body BatchKillData
}

type RestartData struct {
	Exe  string   `json:"exe" minLength:"1" example:"/usr/bin/worker" doc:"Executable to launch"`
	Args []string `json:"args,omitempty" doc:"Arguments passed to the executable"`
}

type RestartRequest struct {
	Body RestartData
}

type KillAndRestartData struct {
	KillOptions
	RestartData
}

type KillAndRestartRequest struct {
	PID  int32 `path:"pid" minimum:"1" example:"4242" doc:"Root process ID"`
	Body KillAndRestartData
}

// TaskAcceptedResponse is returned with 202 by the background kill operations.
type TaskAcceptedResponse struct {
	Location string `header:"Location" doc:"Task status URL"`
	Body     control.TaskInfo
}

type PriorityData struct {
	Value int `json:"value" example:"5" doc:"Niceness from -20 (highest) to 19 (lowest)"`
}

type PriorityRequest struct {
	PID  int32 `path:"pid" minimum:"1" example:"4242" doc:"Process ID"`
	Body PriorityData
}

type BatchPriorityData struct {
	PIDs  []int32 `json:"pids" minItems:"1" doc:"Process IDs, processed in order"`
	Value int     `json:"value" example:"5" doc:"Niceness from -20 (highest) to 19 (lowest)"`
}

type BatchPriorityRequest struct {
	Body BatchPriorityData
}

type LimitsData struct {
	MaxMemoryMB  *uint64 `json:"max_memory_mb,omitempty" minimum:"1" maximum:"17592186044415" example:"512" doc:"Address space ceiling in MiB"`
	MaxOpenFiles *uint64 `json:"max_open_files,omitempty" minimum:"1" example:"1024" doc:"Open file descriptor ceiling"`
}

type LimitsRequest struct {
	PID  int32 `path:"pid" minimum:"1" example:"4242" doc:"Process ID"`
	Body LimitsData
}

// AppLogInput selects the application log entries to stream.
type AppLogInput struct {
	Since  uint64 `query:"since" doc:"Replay only buffered entries after this sequence number; 0 replays everything kept"`
	Module string `query:"module" example:"reaper" doc:"Only stream entries of this module"`
}

// Task models
type TaskInput struct {
	ID string `path:"id" format:"uuid" doc:"Task ID"`
}

type TaskResponse struct {
	Body control.TaskInfo
}

type TaskListData struct {
	Tasks []control.TaskInfo `json:"tasks" doc:"Running and recently finished tasks, oldest first"`
}

type TaskListResponse struct {
	Body TaskListData
}

// Respawn models
type RespawnData struct {
	PID               int32    `json:"pid" minimum:"1" example:"4242" doc:"Session key, usually the PID being supervised"`
	Command           string   `json:"command" minLength:"1" example:"/usr/bin/worker" doc:"Command to relaunch"`
	Args              []string `json:"args,omitempty" doc:"Command arguments"`
	CheckIntervalSecs *float64 `json:"check_interval_secs,omitempty" minimum:"0" example:"1" doc:"Liveness poll interval; server default when omitted"`
	RestartDelaySecs  *float64 `json:"restart_delay_secs,omitempty" minimum:"0" example:"2" doc:"Delay before each relaunch; server default when omitted"`
	MaxRestarts       *int     `json:"max_restarts,omitempty" minimum:"0" example:"5" doc:"Number of launches allowed; server default when omitted"`
}

type RespawnRequest struct {
	Body RespawnData
}

type RespawnListData struct {
	Sessions []process.SessionInfo `json:"sessions" doc:"Registered respawn sessions ordered by key"`
	Count    int                   `json:"count" example:"1" doc:"Number of sessions"`
}

type RespawnListResponse struct {
	Body RespawnListData
}
