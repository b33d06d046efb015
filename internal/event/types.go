package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a "category.action" identifier such as
	// "session.invalidated".
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type identifiers.
const (
	TypeSessionStateChanged = "session.state_changed"
	TypeSessionInvalidated  = "session.invalidated"
	TypeNavReset            = "nav.reset"
	TypeGuildsLoaded        = "nav.guilds_loaded"
	TypeGuildSelected       = "nav.guild_selected"
	TypeChannelSelected     = "nav.channel_selected"
	TypeMessagesReplaced    = "nav.messages_replaced"
)

type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Session Events
// -----------------------------------------------------------------------------

// SessionStateChangedEvent is emitted on every session state transition.
// States are carried as their string names so this package stays free of
// session imports.
type SessionStateChangedEvent struct {
	baseEvent
	From string
	To   string
}

// NewSessionStateChangedEvent creates a SessionStateChangedEvent.
func NewSessionStateChangedEvent(from, to string) SessionStateChangedEvent {
	return SessionStateChangedEvent{
		baseEvent: newBaseEvent(TypeSessionStateChanged),
		From:      from,
		To:        to,
	}
}

// SessionInvalidatedEvent is emitted when the server rejected the token.
// Subscribers must drop anything fetched with it.
type SessionInvalidatedEvent struct {
	baseEvent
	Reason string
}

// NewSessionInvalidatedEvent creates a SessionInvalidatedEvent.
func NewSessionInvalidatedEvent(reason string) SessionInvalidatedEvent {
	return SessionInvalidatedEvent{
		baseEvent: newBaseEvent(TypeSessionInvalidated),
		Reason:    reason,
	}
}

// -----------------------------------------------------------------------------
// Navigation Events
// -----------------------------------------------------------------------------

// NavResetEvent is emitted after the navigation cache was cleared.
type NavResetEvent struct {
	baseEvent
}

// NewNavResetEvent creates a NavResetEvent.
func NewNavResetEvent() NavResetEvent {
	return NavResetEvent{baseEvent: newBaseEvent(TypeNavReset)}
}

// GuildsLoadedEvent is emitted when the guild list was replaced.
type GuildsLoadedEvent struct {
	baseEvent
	Count int
	// SelectionCleared is true when the selected guild disappeared from
	// the new list.
	SelectionCleared bool
}

// NewGuildsLoadedEvent creates a GuildsLoadedEvent.
func NewGuildsLoadedEvent(count int, selectionCleared bool) GuildsLoadedEvent {
	return GuildsLoadedEvent{
		baseEvent:        newBaseEvent(TypeGuildsLoaded),
		Count:            count,
		SelectionCleared: selectionCleared,
	}
}

// GuildSelectedEvent is emitted when a guild becomes the selection.
type GuildSelectedEvent struct {
	baseEvent
	GuildID      string
	ChannelCount int
	FromCache    bool // no fetch was needed
}

// NewGuildSelectedEvent creates a GuildSelectedEvent.
func NewGuildSelectedEvent(guildID string, channelCount int, fromCache bool) GuildSelectedEvent {
	return GuildSelectedEvent{
		baseEvent:    newBaseEvent(TypeGuildSelected),
		GuildID:      guildID,
		ChannelCount: channelCount,
		FromCache:    fromCache,
	}
}

// ChannelSelectedEvent is emitted when a channel becomes the selection.
type ChannelSelectedEvent struct {
	baseEvent
	GuildID   string
	ChannelID string
}

// NewChannelSelectedEvent creates a ChannelSelectedEvent.
func NewChannelSelectedEvent(guildID, channelID string) ChannelSelectedEvent {
	return ChannelSelectedEvent{
		baseEvent: newBaseEvent(TypeChannelSelected),
		GuildID:   guildID,
		ChannelID: channelID,
	}
}

// MessagesReplacedEvent is emitted when a channel's message window was
// replaced by a fresh fetch.
type MessagesReplacedEvent struct {
	baseEvent
	ChannelID string
	Count     int
}

// NewMessagesReplacedEvent creates a MessagesReplacedEvent.
func NewMessagesReplacedEvent(channelID string, count int) MessagesReplacedEvent {
	return MessagesReplacedEvent{
		baseEvent: newBaseEvent(TypeMessagesReplaced),
		ChannelID: channelID,
		Count:     count,
	}
}
