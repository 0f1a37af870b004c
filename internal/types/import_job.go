package types

import (
	"time"
)

type ImportStatus string

type SkipReason string

const (
	ImportStatusInitializing ImportStatus = "initializing"
	ImportStatusValidating   ImportStatus = "validating"
	ImportStatusProcessing   ImportStatus = "processing"
	ImportStatusFinalizing   ImportStatus = "finalizing"
	ImportStatusCompleted    ImportStatus = "completed"
	ImportStatusFailed       ImportStatus = "failed"
	ImportStatusCancelled    ImportStatus = "cancelled"
)

const (
	SkipMissingRequiredFields SkipReason = "missing_required_fields"
	SkipInvalidEnum           SkipReason = "invalid_enum"
	SkipProcessingError       SkipReason = "processing_error"
	SkipDuplicate             SkipReason = "duplicate"
)

// IsTerminal reports whether no further transition is possible.
func (s ImportStatus) IsTerminal() bool {
	return s == ImportStatusCompleted || s == ImportStatusFailed || s == ImportStatusCancelled
}

// IsCancelable reports whether a cancellation request is honored in this state.
func (s ImportStatus) IsCancelable() bool {
	return s == ImportStatusInitializing || s == ImportStatusValidating || s == ImportStatusProcessing
}

// ImportTotals are the running counters of an import job.
type ImportTotals struct {
	Total     int `json:"total" yaml:"total"`
	Processed int `json:"processed" yaml:"processed"`
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed" yaml:"failed"`
	Duplicate int `json:"duplicate" yaml:"duplicate"`
}

// ChunkResult records what happened to one persisted chunk.
type ChunkResult struct {
	Index     int    `json:"index"`
	Records   int    `json:"records"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Duplicate int    `json:"duplicate"`
	ErrorCode int    `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Verification compares the persisted count against what the job expected to add.
type Verification struct {
	CountBefore int    `json:"count_before"`
	CountAfter  int    `json:"count_after"`
	Expected    int    `json:"expected"`
	Matched     bool   `json:"matched"`
	Error       string `json:"error,omitempty"`
}

// ImportJob is the state of one import invocation.
type ImportJob struct {
	ID            string             `json:"id"`
	UserID        string             `json:"user_id"`
	Status        ImportStatus       `json:"status"`
	Totals        ImportTotals       `json:"totals"`
	SkipBreakdown map[SkipReason]int `json:"skip_breakdown"`
	ChunkSize     int                `json:"chunk_size"`
	Chunks        []ChunkResult      `json:"chunks"`
	Verification  *Verification      `json:"verification,omitempty"`
	StartedAt     time.Time          `json:"started_at"`
	LastUpdatedAt time.Time          `json:"last_updated_at"`
	CompletedAt   time.Time          `json:"completed_at"`
	Error         string             `json:"error,omitempty"`
}

// Progress returns the completion percentage in [0, 100].
func (j *ImportJob) Progress() float64 {
	if j.Status == ImportStatusCompleted {
		return 100
	}

	if j.Totals.Total == 0 {
		return 0
	}

	return float64(j.Totals.Processed) / float64(j.Totals.Total) * 100
}

// StatusView is the polling shape of the job.
func (j *ImportJob) StatusView() ImportStatusView {
	return ImportStatusView{
		ID:        j.ID,
		Status:    j.Status,
		Progress:  j.Progress(),
		Processed: j.Totals.Processed,
		Succeeded: j.Totals.Succeeded,
		Failed:    j.Totals.Failed,
		Duplicate: j.Totals.Duplicate,
		Error:     j.Error,
	}
}

// Clone returns a deep copy safe to hand to pollers.
func (j *ImportJob) Clone() *ImportJob {
	dup := *j

	dup.SkipBreakdown = make(map[SkipReason]int, len(j.SkipBreakdown))
	for k, v := range j.SkipBreakdown {
		dup.SkipBreakdown[k] = v
	}

	dup.Chunks = append([]ChunkResult(nil), j.Chunks...)

	if j.Verification != nil {
		v := *j.Verification
		dup.Verification = &v
	}

	return &dup
}

// ImportStatusView is returned by status polling.
type ImportStatusView struct {
	ID        string       `json:"id"`
	Status    ImportStatus `json:"status"`
	Progress  float64      `json:"progress"`
	Processed int          `json:"processed"`
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Duplicate int          `json:"duplicate"`
	Error     string       `json:"error,omitempty"`
}

// ImportProgress is delivered to the progress callback after every chunk.
type ImportProgress struct {
	JobID     string  `json:"job_id"`
	Processed int     `json:"processed"`
	Total     int     `json:"total"`
	Succeeded int     `json:"succeeded"`
	Failed    int     `json:"failed"`
	Duplicate int     `json:"duplicate"`
	Percent   float64 `json:"percent"`
}
