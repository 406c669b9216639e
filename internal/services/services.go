package services

import (
	"context"
	"encoding/json"
)

// JobStatusComplete is the status of a job whose result is available.
const JobStatusComplete = "complete"

// JobService starts example jobs and reports on them.
type JobService interface {
	// CreateJob starts a job expected to take duration seconds, give or take stdev.
	CreateJob(ctx context.Context, duration, stdev float64) (*Job, error)

	// GetJob returns the current status of the job.
	GetJob(ctx context.Context, uid string) (*JobResult, error)
}

// Job identifies a started job and its trace.
type Job struct {
	UID      string `json:"uid"`
	Sub      string `json:"sub"`
	PbarName string `json:"pbar_name"`
}

// JobResult is the status document of a job. Data is only meaningful once Status is [JobStatusComplete].
type JobResult struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Complete reports whether the job finished.
func (r *JobResult) Complete() bool {
	return r != nil && r.Status == JobStatusComplete
}
