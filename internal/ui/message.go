package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ezpbars/internal/progress"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgField MsgKind = iota
	MsgSettled
)

// Field names one setter of [progress.View].
type Field int

const (
	FieldOverallEta Field = iota
	FieldRemainingEta
	FieldStepName
	FieldStepOverallEta
	FieldStepRemainingEta
	FieldError
)

// fieldUpdate is one setter call captured for replay on the UI goroutine.
type fieldUpdate struct {
	field Field
	eta   float64
	name  string
	err   error
}

func (u fieldUpdate) apply(v progress.View) {
	switch u.field {
	case FieldOverallEta:
		v.SetOverallEtaSeconds(u.eta)
	case FieldRemainingEta:
		v.SetRemainingEtaSeconds(u.eta)
	case FieldStepName:
		v.SetStepName(u.name)
	case FieldStepOverallEta:
		v.SetStepOverallEtaSeconds(u.eta)
	case FieldStepRemainingEta:
		v.SetStepRemainingEtaSeconds(u.eta)
	case FieldError:
		v.OnError(u.err)
	}
}

// fieldMsg is the constructor for [MsgField]
func fieldMsg(u fieldUpdate) Msg {
	return Msg{kind: MsgField, data: u}
}

// settledMsg is the constructor for [MsgSettled]
func settledMsg(err error) Msg {
	return Msg{kind: MsgSettled, data: err}
}
