package tasks

import (
	"encoding/json"
	"time"

	"github.com/desertthunder/ezpbars/internal/progress"
)

// Step is a named slice of a job's estimated runtime.
type Step struct {
	Name  string
	Share float64 // fraction of the estimate, all steps summing to 1
}

// DefaultSteps splits every job into the same three steps.
var DefaultSteps = []Step{
	{Name: "preparing", Share: 0.1},
	{Name: "processing", Share: 0.75},
	{Name: "finalizing", Share: 0.15},
}

// Job is a simulated unit of work with a trace.
type Job struct {
	UID       string
	Sub       string
	PbarName  string
	Expected  time.Duration // requested duration, reported as the overall ETA
	Actual    time.Duration // sampled runtime, unknown to watchers
	StartedAt time.Time
	Steps     []Step
}

// Result is the status document served for a job.
type Result struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data,omitempty"`
}

type resultData struct {
	ExpectedSeconds float64 `json:"expected_seconds"`
	ActualSeconds   float64 `json:"actual_seconds"`
}

// Elapsed is the time the job has been running at now, never negative.
func (j *Job) Elapsed(now time.Time) time.Duration {
	if e := now.Sub(j.StartedAt); e > 0 {
		return e
	}
	return 0
}

// Done reports whether the job finished by now.
func (j *Job) Done(now time.Time) bool {
	return j.Elapsed(now) >= j.Actual
}

// Phase returns the job phase at now.
func (j *Job) Phase(now time.Time) Phase {
	switch {
	case j.Done(now):
		return Complete
	case j.Elapsed(now) >= j.Expected:
		return Overtime
	default:
		return Running
	}
}

// Snapshot returns the trace fields at now. Remaining ETAs go negative once the estimate is exceeded.
func (j *Job) Snapshot(now time.Time) progress.Snapshot {
	elapsed := j.Elapsed(now).Seconds()
	if j.Done(now) {
		elapsed = j.Actual.Seconds()
	}
	expected := j.Expected.Seconds()

	snap := progress.Snapshot{
		OverallEtaSeconds:   expected,
		RemainingEtaSeconds: expected - elapsed,
	}

	steps := j.Steps
	if len(steps) == 0 {
		steps = DefaultSteps
	}

	var end float64
	for i, step := range steps {
		stepOverall := step.Share * expected
		end += stepOverall
		if elapsed < end || i == len(steps)-1 {
			snap.StepName = step.Name
			snap.StepOverallEtaSeconds = stepOverall
			snap.StepRemainingEtaSeconds = end - elapsed
			break
		}
	}
	return snap
}

// Update returns the progress update at now.
func (j *Job) Update(now time.Time) ProgressUpdate {
	snap := j.Snapshot(now)
	switch j.Phase(now) {
	case Complete:
		return completeUpdate(snap)
	case Overtime:
		return overtimeUpdate(snap)
	default:
		return runningUpdate(snap)
	}
}

// Result returns the job's status document at now. Data is only set once complete.
func (j *Job) Result(now time.Time) Result {
	if !j.Done(now) {
		return Result{Status: "pending"}
	}
	data, _ := json.Marshal(resultData{
		ExpectedSeconds: j.Expected.Seconds(),
		ActualSeconds:   j.Actual.Seconds(),
	})
	return Result{Status: "complete", Data: data}
}
