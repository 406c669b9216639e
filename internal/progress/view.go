package progress

import tea "github.com/charmbracelet/bubbletea"

// View receives progress fields for a single trace.
type View interface {
	// SetOverallEtaSeconds sets the estimated total time for the task, start to finish.
	SetOverallEtaSeconds(eta float64)
	// SetRemainingEtaSeconds sets the estimated time left for the task.
	SetRemainingEtaSeconds(eta float64)
	// SetStepName sets the name of the step the task is currently on.
	SetStepName(name string)
	// SetStepOverallEtaSeconds sets the estimated total time for the current step.
	SetStepOverallEtaSeconds(eta float64)
	// SetStepRemainingEtaSeconds sets the estimated time left for the current step.
	SetStepRemainingEtaSeconds(eta float64)
	// OnError is called when an unrecoverable error occurs, such as the server rejecting authentication.
	OnError(err error)
}

// Element is a [View] that can render itself.
type Element interface {
	View
	Render() string
}

// animator is implemented by elements that need bubbletea ticks to animate.
type animator interface {
	Init() tea.Cmd
	Update(msg tea.Msg) tea.Cmd
}

// Snapshot holds the five live fields of a trace.
type Snapshot struct {
	OverallEtaSeconds       float64 `json:"overall_eta_seconds"`
	RemainingEtaSeconds     float64 `json:"remaining_eta_seconds"`
	StepName                string  `json:"step_name"`
	StepOverallEtaSeconds   float64 `json:"step_overall_eta_seconds"`
	StepRemainingEtaSeconds float64 `json:"step_remaining_eta_seconds"`
}

// Apply pushes every field of s into v in protocol order.
func (s Snapshot) Apply(v View) {
	v.SetOverallEtaSeconds(s.OverallEtaSeconds)
	v.SetRemainingEtaSeconds(s.RemainingEtaSeconds)
	v.SetStepName(s.StepName)
	v.SetStepOverallEtaSeconds(s.StepOverallEtaSeconds)
	v.SetStepRemainingEtaSeconds(s.StepRemainingEtaSeconds)
}

// Noop discards everything. Used when a subscription is created without a view.
type Noop struct{}

var _ View = Noop{}

func (Noop) SetOverallEtaSeconds(float64)       {}
func (Noop) SetRemainingEtaSeconds(float64)     {}
func (Noop) SetStepName(string)                 {}
func (Noop) SetStepOverallEtaSeconds(float64)   {}
func (Noop) SetStepRemainingEtaSeconds(float64) {}
func (Noop) OnError(error)                      {}
