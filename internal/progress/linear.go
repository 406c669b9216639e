package progress

import (
	"fmt"
	"math"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

const linearMax = 100.0

var errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)

// Linear is a determinate bar that proceeds from 0 to 100 and stays at 100 until completion.
//
// The value is never clamped in computation: a remaining ETA above the overall ETA yields a negative value.
// A task finishing early only jumps to 100 when the server sends remaining = 0.
type Linear struct {
	bar                 progress.Model
	overallEtaSeconds   float64
	remainingEtaSeconds float64
	err                 error
}

var _ Element = (*Linear)(nil)

// NewLinear creates a [Linear] bar of the given width, starting at 0 of 100.
func NewLinear(width int) *Linear {
	bar := progress.New(progress.WithDefaultGradient())
	if width > 0 {
		bar.Width = width
	}
	return &Linear{
		bar:                 bar,
		overallEtaSeconds:   100,
		remainingEtaSeconds: 100,
	}
}

func (l *Linear) SetOverallEtaSeconds(eta float64)   { l.overallEtaSeconds = eta }
func (l *Linear) SetRemainingEtaSeconds(eta float64) { l.remainingEtaSeconds = eta }

// Step fields are not rendered by the linear bar.
func (l *Linear) SetStepName(string)                 {}
func (l *Linear) SetStepOverallEtaSeconds(float64)   {}
func (l *Linear) SetStepRemainingEtaSeconds(float64) {}

// OnError records err; [Linear.Render] shows it in place of the bar.
func (l *Linear) OnError(err error) { l.err = err }

// Err returns the last error passed to OnError.
func (l *Linear) Err() error { return l.err }

// Value returns the displayed progress, 100 * (1 - remaining/overall).
func (l *Linear) Value() float64 {
	return linearMax - (l.remainingEtaSeconds/l.overallEtaSeconds)*linearMax
}

// Max is always 100.
func (l *Linear) Max() float64 { return linearMax }

// Render draws the bar. Only the drawn fraction is clamped to the display range.
func (l *Linear) Render() string {
	if l.err != nil {
		return errorStyle.Render(fmt.Sprintf("error: %v", l.err))
	}
	return l.bar.ViewAs(clampUnit(l.Value() / linearMax))
}

func clampUnit(f float64) float64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}
