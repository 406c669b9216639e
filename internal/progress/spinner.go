package progress

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).Italic(true)

// Spinner is an indeterminate renderer, shown when there is no estimate left to count down.
type Spinner struct {
	spinner             spinner.Model
	overallEtaSeconds   float64
	remainingEtaSeconds float64
	stepName            string
	err                 error
}

var (
	_ Element  = (*Spinner)(nil)
	_ animator = (*Spinner)(nil)
)

// NewSpinner creates a [Spinner] using the dot animation.
func NewSpinner() *Spinner {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))
	return &Spinner{
		spinner:             s,
		overallEtaSeconds:   100,
		remainingEtaSeconds: 100,
	}
}

func (s *Spinner) SetOverallEtaSeconds(eta float64)   { s.overallEtaSeconds = eta }
func (s *Spinner) SetRemainingEtaSeconds(eta float64) { s.remainingEtaSeconds = eta }
func (s *Spinner) SetStepName(name string)            { s.stepName = name }
func (s *Spinner) SetStepOverallEtaSeconds(float64)   {}
func (s *Spinner) SetStepRemainingEtaSeconds(float64) {}
func (s *Spinner) OnError(err error)                  { s.err = err }

// Err returns the last error passed to OnError.
func (s *Spinner) Err() error { return s.err }

// Init starts the animation.
func (s *Spinner) Init() tea.Cmd {
	return s.spinner.Tick
}

// Update advances the animation on spinner ticks.
func (s *Spinner) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return cmd
}

// Render draws the current frame and step name.
func (s *Spinner) Render() string {
	if s.err != nil {
		return errorStyle.Render(fmt.Sprintf("error: %v", s.err))
	}
	label := s.stepName
	if label == "" {
		label = "finishing up"
	}
	return s.spinner.View() + " " + labelStyle.Render(label)
}
