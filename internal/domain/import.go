package domain

import "time"

// ImportStatus is the outcome of an import run
type ImportStatus string

const (
	ImportRunning      ImportStatus = "running"
	ImportCompleted    ImportStatus = "completed"
	ImportPartial      ImportStatus = "partial"
	ImportFailed       ImportStatus = "failed"
	ImportCancelled    ImportStatus = "cancelled"
	ImportNothingFound ImportStatus = "nothing_found"
)

// ImportProgress is a snapshot taken at a batch boundary. Values are never
// mutated after emission.
type ImportProgress struct {
	Batch   int `json:"batch"`
	Batches int `json:"batches"`
	// Current counts records persisted so far; Failed counts records of
	// failed batches. Current+Failed reaches Total after the last batch.
	Current int `json:"current"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
	Errors  int `json:"errors"` // failed batches
}

// Done reports whether every batch has been attempted
func (p ImportProgress) Done() bool {
	return p.Batch >= p.Batches
}

// ImportSummary reports the result of an import run
type ImportSummary struct {
	JobID         string       `json:"jobId"`
	Status        ImportStatus `json:"status"`
	Found         int          `json:"found"`
	Imported      int          `json:"imported"`
	Failed        int          `json:"failed"`
	FailedBatches int          `json:"failedBatches"`
	Skipped       int          `json:"skipped"`
	Rejected      int          `json:"rejected"`
	Errors        []string     `json:"errors,omitempty"`
	StartedAt     time.Time    `json:"startedAt"`
	FinishedAt    time.Time    `json:"finishedAt"`
}

// CleanupSummary reports the result of a global name cleanup
type CleanupSummary struct {
	Scanned int `json:"scanned"`
	Fixed   int `json:"fixed"`
	Failed  int `json:"failed"`
}
