package procinfo

// ProcessInfo is the detailed record returned by list and lookup operations.
type ProcessInfo struct {
	PID               int32   `json:"pid"`
	Name              string  `json:"name"`
	Cmd               string  `json:"cmd"`
	CPU               float64 `json:"cpu"`
	MemoryKiB         float64 `json:"memory"`
	UptimeSecs        uint64  `json:"uptime"`
	ParentPID         *int32  `json:"parent_pid,omitempty"`
	Children          []int32 `json:"children"`
	Exe               string  `json:"exe"`
	ReadBytes         uint64  `json:"read_bytes"`
	WrittenBytes      uint64  `json:"written_bytes"`
	TotalReadBytes    uint64  `json:"total_read_bytes"`
	TotalWrittenBytes uint64  `json:"total_written_bytes"`
}
