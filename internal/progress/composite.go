package progress

import tea "github.com/charmbracelet/bubbletea"

// Composite delegates to a primary [Element] while the task has time remaining and to a secondary one once there is no
// time (or negative time) remaining.
//
// Both children receive every update so whichever is mounted is always current.
type Composite struct {
	primary        Element
	secondary      Element
	remaining      float64
	showingPrimary bool
	remounts       int
}

var (
	_ Element  = (*Composite)(nil)
	_ animator = (*Composite)(nil)
)

// NewComposite mounts primary first.
func NewComposite(primary, secondary Element) *Composite {
	return &Composite{
		primary:        primary,
		secondary:      secondary,
		remaining:      100,
		showingPrimary: true,
	}
}

// NewStandard is the standard display: a [Linear] bar while time remains, then a [Spinner].
func NewStandard(width int) *Composite {
	return NewComposite(NewLinear(width), NewSpinner())
}

func (c *Composite) SetOverallEtaSeconds(eta float64) {
	c.primary.SetOverallEtaSeconds(eta)
	c.secondary.SetOverallEtaSeconds(eta)
	c.update()
}

func (c *Composite) SetRemainingEtaSeconds(eta float64) {
	c.primary.SetRemainingEtaSeconds(eta)
	c.secondary.SetRemainingEtaSeconds(eta)
	c.remaining = eta
	c.update()
}

func (c *Composite) SetStepName(name string) {
	c.primary.SetStepName(name)
	c.secondary.SetStepName(name)
}

func (c *Composite) SetStepOverallEtaSeconds(eta float64) {
	c.primary.SetStepOverallEtaSeconds(eta)
	c.secondary.SetStepOverallEtaSeconds(eta)
}

func (c *Composite) SetStepRemainingEtaSeconds(eta float64) {
	c.primary.SetStepRemainingEtaSeconds(eta)
	c.secondary.SetStepRemainingEtaSeconds(eta)
}

// OnError notifies both children, since either may be mounted.
func (c *Composite) OnError(err error) {
	c.primary.OnError(err)
	c.secondary.OnError(err)
}

// ShowingPrimary reports which child is mounted.
func (c *Composite) ShowingPrimary() bool { return c.showingPrimary }

// Mounted returns the child currently rendered.
func (c *Composite) Mounted() Element {
	if c.showingPrimary {
		return c.primary
	}
	return c.secondary
}

// Remounts counts how many times the mounted child has been swapped.
func (c *Composite) Remounts() int { return c.remounts }

// Render draws the mounted child only.
func (c *Composite) Render() string {
	return c.Mounted().Render()
}

// Init starts animations on both children.
func (c *Composite) Init() tea.Cmd {
	var cmds []tea.Cmd
	for _, child := range []Element{c.primary, c.secondary} {
		if a, ok := child.(animator); ok {
			cmds = append(cmds, a.Init())
		}
	}
	return tea.Batch(cmds...)
}

// Update forwards animation messages to both children.
func (c *Composite) Update(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd
	for _, child := range []Element{c.primary, c.secondary} {
		if a, ok := child.(animator); ok {
			cmds = append(cmds, a.Update(msg))
		}
	}
	return tea.Batch(cmds...)
}

// update swaps the mounted child when the sign of the remaining ETA calls for the other one.
func (c *Composite) update() {
	wantPrimary := c.remaining > 0
	if wantPrimary == c.showingPrimary {
		return
	}
	c.showingPrimary = wantPrimary
	c.remounts++
}
