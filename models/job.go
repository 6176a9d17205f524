package models

import "sync"

// RunJob tracks an asynchronous pipeline run started through the API.
// It is safe for concurrent use.
type RunJob struct {
	ID        string
	Date      string
	CreatedAt int64 // unix timestamp

	mu     sync.RWMutex
	status string
	result *RunResult
	err    *ErrorDetail
}

// NewRunJob creates a job in the processing state.
func NewRunJob(id, date string, createdAt int64) *RunJob {
	return &RunJob{ID: id, Date: date, CreatedAt: createdAt, status: RunProcessing}
}

// Finish records the outcome of the run.
func (j *RunJob) Finish(result *RunResult, err *ErrorDetail) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = result
	j.err = err
	switch {
	case err != nil:
		j.status = RunFailed
	case result != nil:
		j.status = result.Status
	default:
		j.status = RunFailed
	}
}

// Status returns a snapshot suitable for GET /api/v1/runs/:id.
func (j *RunJob) Status() RunStatusResponse {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return RunStatusResponse{
		ID:     j.ID,
		Status: j.status,
		Date:   j.Date,
		Result: j.result,
		Error:  j.err,
	}
}

// Done reports whether the job has left the processing state.
func (j *RunJob) Done() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.status != RunProcessing
}
