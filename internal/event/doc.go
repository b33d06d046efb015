// Package event provides a synchronous pub-sub bus for session and
// navigation state changes in parley.
//
// The session manager publishes [SessionInvalidatedEvent] when the server
// rejects the token; the navigation cache subscribes to it and resets
// itself, so neither package imports the other. The TUI subscribes to
// everything to refresh its status line.
//
// # Main Types
//
//   - [Event]: EventType() and Timestamp()
//   - [Bus]: synchronous dispatcher, safe for concurrent use
//   - [Handler]: func(Event)
//
// # Event Categories
//
// Session:
//   - [SessionStateChangedEvent]: every transition between session states
//   - [SessionInvalidatedEvent]: token rejected, credential cleared
//
// Navigation:
//   - [NavResetEvent], [GuildsLoadedEvent], [GuildSelectedEvent],
//     [ChannelSelectedEvent], [MessagesReplacedEvent]
//
// Publish runs handlers on the publisher's goroutine. A handler that
// panics is logged and the remaining handlers still run.
package event
