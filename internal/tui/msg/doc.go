// Package msg defines the messages the TUI's Bubbletea loop receives and
// the commands that produce them.
//
// Every dispatcher call runs inside a [tea.Cmd] off the event loop and
// reports back with one result message. Only the loop's Update applies
// those results to view state.
package msg
