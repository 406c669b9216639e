package tasks

import (
	"fmt"

	"github.com/desertthunder/ezpbars/internal/progress"
	"github.com/desertthunder/ezpbars/internal/shared"
)

// ProgressUpdate represents the state of a job at one tick.
type ProgressUpdate struct {
	Phase    Phase             // Job phase
	Snapshot progress.Snapshot // Trace fields at this tick
	Message  string            // Human-readable message for display
}

// Done reports whether this is the final update of the job.
func (u ProgressUpdate) Done() bool { return u.Phase == Complete }

// Job phase enumeration
type Phase int

const (
	Running Phase = iota
	Overtime
	Complete
)

func (p Phase) String() string {
	switch p {
	case Running:
		return "running"
	case Overtime:
		return "overtime"
	case Complete:
		return "complete"
	default:
		return ""
	}
}

func runningUpdate(snap progress.Snapshot) ProgressUpdate {
	return ProgressUpdate{
		Phase:    Running,
		Snapshot: snap,
		Message:  fmt.Sprintf("%s (%s left)", snap.StepName, shared.FormatETA(snap.RemainingEtaSeconds)),
	}
}

func overtimeUpdate(snap progress.Snapshot) ProgressUpdate {
	return ProgressUpdate{
		Phase:    Overtime,
		Snapshot: snap,
		Message:  fmt.Sprintf("%s (over estimate by %s)", snap.StepName, shared.FormatETA(-snap.RemainingEtaSeconds)),
	}
}

func completeUpdate(snap progress.Snapshot) ProgressUpdate {
	return ProgressUpdate{
		Phase:    Complete,
		Snapshot: snap,
		Message:  "job complete",
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(ch chan<- ProgressUpdate, update ProgressUpdate) {
	if ch == nil {
		return
	}
	select {
	case ch <- update:
	default:
	}
}
