package reaper

import (
	"fmt"
	"strings"

	"github.com/milmil7/gui-reaper/internal/procinfo"
)

// Result is the terminal result of one termination attempt.
type Result int

// Termination results.
const (
	KilledGracefully Result = iota // exited after the graceful request
	KilledForcefully               // exited only after the forced stop
	Failed                         // survived both attempts
)

// String returns the metric label for r.
func (r Result) String() string {
	switch r {
	case KilledGracefully:
		return "killed_gracefully"
	case KilledForcefully:
		return "killed_forcefully"
	default:
		return "failed"
	}
}

// MarshalText encodes r as its metric label.
func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Outcome is the result for one target. Depth is 0 for a root and only
// affects report indentation.
type Outcome struct {
	PID    procinfo.PID `json:"pid"`
	Depth  int          `json:"depth"`
	Result Result       `json:"result"`
}

// String renders the human-readable progress line for o.
func (o Outcome) String() string {
	indent := strings.Repeat("  ", o.Depth)
	switch o.Result {
	case KilledGracefully:
		return fmt.Sprintf("%sPID %d killed gracefully (SIGTERM)", indent, o.PID)
	case KilledForcefully:
		return fmt.Sprintf("%sPID %d required force kill (SIGKILL)", indent, o.PID)
	default:
		return fmt.Sprintf("%sPID %d could not be killed", indent, o.PID)
	}
}

// Report is the ordered result of one kill-tree request: descendants first,
// root last.
type Report struct {
	Root     procinfo.PID `json:"root"`
	Outcomes []Outcome    `json:"outcomes"`
}

// Failures returns the outcomes whose target survived escalation.
func (r Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Result == Failed {
			out = append(out, o)
		}
	}
	return out
}

// String renders the report's outcome lines.
func (r Report) String() string {
	lines := make([]string, len(r.Outcomes))
	for i, o := range r.Outcomes {
		lines[i] = o.String()
	}
	return strings.Join(lines, "\n")
}

// Summary renders a single kill-tree report with its heading.
func Summary(r Report) string {
	return "Kill results:\n" + r.String()
}

// BatchSummary renders the combined report of a batch kill.
func BatchSummary(reports []Report) string {
	blocks := make([]string, len(reports))
	for i, r := range reports {
		blocks[i] = fmt.Sprintf("Killing PID %d\n%s", r.Root, r.String())
	}
	return "Batch Kill Report:\n" + strings.Join(blocks, "\n\n")
}
