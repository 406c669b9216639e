package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ezpbars/internal/progress"
	"github.com/desertthunder/ezpbars/internal/shared"
	"github.com/desertthunder/ezpbars/internal/trace"
)

const barWidth = 48

// Subscription is the part of [trace.Subscription] the TUI depends on.
type Subscription interface {
	Done() <-chan struct{}
	Err() error
	Close() error
	Failures() int
	State() trace.State
}

var _ Subscription = (*trace.Subscription)(nil)

// Model hosts one trace subscription in a bubbletea program.
type Model struct {
	title   string
	sub     Subscription
	view    *ChannelView
	display *progress.Composite
	fields  snapshotView
	err     error
	done    bool
	quit    bool
	help    help.Model
	keys    keyMap
}

// NewModel creates a TUI model that renders updates arriving on view for the subscription sub.
//
// view must be the [progress.View] the subscription was created with.
func NewModel(title string, sub Subscription, view *ChannelView) *Model {
	return &Model{
		title:   title,
		sub:     sub,
		view:    view,
		display: progress.NewStandard(barWidth),
		help:    help.New(),
		keys:    newKeyMap(),
	}
}

// Err returns the outcome shown by the model: nil on completion, [trace.ErrClosed] when the user quit early.
func (m *Model) Err() error { return m.err }

// Completed reports whether the subscription settled before the program exited.
func (m *Model) Completed() bool { return m.done }

// Init starts the display animation, the update drain, and the settle watcher.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.display.Init(), m.view.next(), m.watchSettled())
}

// Update applies queued field updates, handles keys, and forwards animation ticks to the display.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case Msg:
		switch msg.kind {
		case MsgField:
			u := msg.data.(fieldUpdate)
			u.apply(m.display)
			u.apply(&m.fields)
			return m, m.view.next()
		case MsgSettled:
			m.err, _ = msg.data.(error)
			m.done = true
			m.view.Stop()
			return m, tea.Quit
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			m.quit = true
			m.err = trace.ErrClosed
			m.view.Stop()
			_ = m.sub.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
		return m, nil
	}

	return m, m.display.Update(msg)
}

// View renders the title, the mounted display, the step line, and the outcome.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(m.title))
	b.WriteString("\n")
	b.WriteString(m.display.Render())
	b.WriteString("\n")

	if line := m.stepLine(); line != "" {
		b.WriteString(styles.muted.Render(line))
		b.WriteString("\n")
	}

	if n := m.sub.Failures(); n > 0 && !m.done {
		b.WriteString(styles.warn.Render(fmt.Sprintf("reconnecting (%d failures in the last minute, %s)", n, m.sub.State())))
		b.WriteString("\n")
	}

	switch {
	case m.done && m.err == nil:
		b.WriteString(styles.ok.Render("✓ Done"))
		b.WriteString("\n")
	case m.err != nil && !errors.Is(m.err, trace.ErrClosed):
		b.WriteString(styles.err.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	case m.quit:
		b.WriteString(styles.warn.Render("Stopped waiting"))
		b.WriteString("\n")
	}

	if !m.done && !m.quit {
		b.WriteString(styles.help.Render(m.help.View(m.keys)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) stepLine() string {
	f := m.fields.snap
	if !m.fields.seen {
		return "waiting for the first update..."
	}

	line := fmt.Sprintf("%s remaining of %s", shared.FormatETA(f.RemainingEtaSeconds), shared.FormatETA(f.OverallEtaSeconds))
	if f.StepName != "" {
		line = fmt.Sprintf("%s · %s (%s of %s)", line, f.StepName,
			shared.FormatETA(f.StepRemainingEtaSeconds), shared.FormatETA(f.StepOverallEtaSeconds))
	}
	return line
}

// watchSettled queues the outcome behind every update the subscription already sent.
func (m *Model) watchSettled() tea.Cmd {
	return func() tea.Msg {
		<-m.sub.Done()
		m.view.Settle(m.sub.Err())
		return nil
	}
}

// snapshotView keeps the latest fields for the step line.
type snapshotView struct {
	snap progress.Snapshot
	seen bool
}

func (s *snapshotView) SetOverallEtaSeconds(eta float64) {
	s.snap.OverallEtaSeconds = eta
	s.seen = true
}

func (s *snapshotView) SetRemainingEtaSeconds(eta float64) {
	s.snap.RemainingEtaSeconds = eta
	s.seen = true
}

func (s *snapshotView) SetStepName(name string)                { s.snap.StepName = name }
func (s *snapshotView) SetStepOverallEtaSeconds(eta float64)   { s.snap.StepOverallEtaSeconds = eta }
func (s *snapshotView) SetStepRemainingEtaSeconds(eta float64) { s.snap.StepRemainingEtaSeconds = eta }
func (s *snapshotView) OnError(error)                          {}
