package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	help key.Binding
	quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "details")),
		quit: key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "stop waiting")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.help, k.quit}}
}
