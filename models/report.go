package models

import "time"

// Status is the terminal state of a long-running operation.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Mode selects whether files are copied or moved.
type Mode string

const (
	ModeCopy Mode = "copy"
	ModeMove Mode = "move"
)

// ParseMode validates a user supplied mode.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeCopy, ModeMove:
		return Mode(s), true
	default:
		return "", false
	}
}

// Result is the per-file outcome of a copy/move operation.
type Result string

const (
	ResultSucceeded Result = "succeeded"
	ResultFailed    Result = "failed"
	ResultSkipped   Result = "skipped"
)

// Outcome records what happened to a single file.
type Outcome struct {
	Source      string `json:"source"`
	Destination string `json:"destination,omitempty"`
	Result      Result `json:"result"`
}

// OperationReport aggregates the per-file outcomes of one operation.
type OperationReport struct {
	Kind       string    `json:"kind"`
	Status     Status    `json:"status"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Outcomes   []Outcome `json:"outcomes"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// NewOperationReport starts a report for kind.
func NewOperationReport(kind string) *OperationReport {
	return &OperationReport{
		Kind:      kind,
		Status:    StatusCompleted,
		StartedAt: time.Now(),
	}
}

// Record appends an outcome and updates the counters.
func (r *OperationReport) Record(source, destination string, result Result) {
	r.Outcomes = append(r.Outcomes, Outcome{Source: source, Destination: destination, Result: result})
	switch result {
	case ResultSucceeded:
		r.Succeeded++
	case ResultFailed:
		r.Failed++
	case ResultSkipped:
		r.Skipped++
	}
}

// Finish stamps the report with its final status.
func (r *OperationReport) Finish(status Status) *OperationReport {
	r.Status = status
	r.FinishedAt = time.Now()
	return r
}

// Progress is reported by long-running loops after each file.
type Progress struct {
	Done    int
	Total   int
	Current string
}

// ProgressFunc receives progress updates. It may be nil.
type ProgressFunc func(Progress)

// Report calls fn if it is set.
func (fn ProgressFunc) Report(done, total int, current string) {
	if fn != nil {
		fn(Progress{Done: done, Total: total, Current: current})
	}
}

// PrepMode selects what PrepareForAI writes for each file.
type PrepMode string

const (
	PrepFull    PrepMode = "full"
	PrepOutline PrepMode = "outline"
)

// ParsePrepMode validates a user supplied AI prep mode.
func ParsePrepMode(s string) (PrepMode, bool) {
	switch PrepMode(s) {
	case PrepFull, PrepOutline:
		return PrepMode(s), true
	default:
		return "", false
	}
}

// AIPrepResult describes one AI prep document.
type AIPrepResult struct {
	Status  Status `json:"status"`
	Path    string `json:"path,omitempty"`
	Files   int    `json:"files"`
	Skipped int    `json:"skipped"`
	Bytes   int    `json:"bytes"`
}
