package ui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ezpbars/internal/progress"
)

// ChannelView is a [progress.View] that forwards every setter call as a message, so updates produced on the
// subscription goroutine are applied on the bubbletea goroutine in order.
//
// Sends block until the UI reads them and are never dropped; they give up once [ChannelView.Stop] is called.
type ChannelView struct {
	msgs chan Msg
	stop chan struct{}
	once sync.Once
}

var _ progress.View = (*ChannelView)(nil)

// NewChannelView creates a [ChannelView] buffering up to buffer messages.
func NewChannelView(buffer int) *ChannelView {
	return &ChannelView{
		msgs: make(chan Msg, buffer),
		stop: make(chan struct{}),
	}
}

func (v *ChannelView) SetOverallEtaSeconds(eta float64) {
	v.send(fieldMsg(fieldUpdate{field: FieldOverallEta, eta: eta}))
}

func (v *ChannelView) SetRemainingEtaSeconds(eta float64) {
	v.send(fieldMsg(fieldUpdate{field: FieldRemainingEta, eta: eta}))
}

func (v *ChannelView) SetStepName(name string) {
	v.send(fieldMsg(fieldUpdate{field: FieldStepName, name: name}))
}

func (v *ChannelView) SetStepOverallEtaSeconds(eta float64) {
	v.send(fieldMsg(fieldUpdate{field: FieldStepOverallEta, eta: eta}))
}

func (v *ChannelView) SetStepRemainingEtaSeconds(eta float64) {
	v.send(fieldMsg(fieldUpdate{field: FieldStepRemainingEta, eta: eta}))
}

func (v *ChannelView) OnError(err error) {
	v.send(fieldMsg(fieldUpdate{field: FieldError, err: err}))
}

// Settle queues the outcome behind every update already sent.
func (v *ChannelView) Settle(err error) {
	v.send(settledMsg(err))
}

// Stop releases blocked senders. Safe to call more than once.
func (v *ChannelView) Stop() {
	v.once.Do(func() { close(v.stop) })
}

func (v *ChannelView) send(m Msg) {
	select {
	case v.msgs <- m:
	case <-v.stop:
	}
}

// next waits for the next message. It returns nil once stopped.
func (v *ChannelView) next() tea.Cmd {
	return func() tea.Msg {
		select {
		case m := <-v.msgs:
			return m
		case <-v.stop:
			return nil
		}
	}
}
