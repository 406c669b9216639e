// Package ui implements the terminal interface for following a trace using bubbletea's Elm architecture.
//
// The subscription runs on its own goroutine and writes into a [ChannelView]. Each setter call becomes a [Msg] that the
// [Model] drains with a [tea.Cmd] and applies to a [progress.Composite] on the bubbletea goroutine, so the display never
// sees concurrent writes. When the subscription settles, the outcome is queued behind the pending updates and the
// program quits once it has been rendered.
//
// Pressing q closes the subscription and exits.
package ui
