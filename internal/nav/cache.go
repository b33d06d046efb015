// Package nav owns the navigation state: the guild list, the selected
// guild and channel, and the per-guild channel and per-channel message
// caches.
//
// Every operation that needs the network is split in two. A Begin call
// validates the request against the current state and returns a Ticket.
// The caller performs the fetch without holding any lock and hands the
// result to the matching Apply call, which re-validates the ticket and
// returns ErrStale when a reset or a newer selection happened in between.
// A stale result is discarded and the state is left untouched.
package nav

import (
	"slices"
	"sync"

	"github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/event"
	"github.com/Iron-Ham/parley/internal/logging"
	"github.com/Iron-Ham/parley/internal/model"
)

// ErrStale is returned by Apply calls whose ticket was overtaken by a
// reset or a newer selection. The result was discarded.
var ErrStale = errors.New("navigation result is stale")

// Selection levels reported in SelectionError.
const (
	LevelGuild   = "guild"
	LevelChannel = "channel"
)

type ticketKind int

const (
	ticketGuilds ticketKind = iota + 1
	ticketChannels
	ticketMessages
)

// Ticket is issued by a Begin call and redeemed by the matching Apply.
type Ticket struct {
	kind  ticketKind
	epoch uint64
	seq   uint64

	GuildID   string
	ChannelID string
	// NeedsFetch is false when the request was satisfied from cache and
	// there is nothing to apply.
	NeedsFetch bool

	// selecting is true for channel selection, false for a refresh of the
	// already selected channel.
	selecting bool
}

// State is a deep copy of the navigation state.
type State struct {
	Guilds            []model.Guild
	SelectedGuildID   string
	SelectedChannelID string
	ChannelsByGuild   map[string][]model.Channel
	MessagesByChannel map[string][]model.Message
}

// SelectedGuild returns the selected guild, if any.
func (s State) SelectedGuild() (model.Guild, bool) {
	for _, g := range s.Guilds {
		if g.ID == s.SelectedGuildID && s.SelectedGuildID != "" {
			return g, true
		}
	}
	return model.Guild{}, false
}

// Channels returns the cached channel list of the selected guild.
func (s State) Channels() []model.Channel {
	if s.SelectedGuildID == "" {
		return nil
	}
	return s.ChannelsByGuild[s.SelectedGuildID]
}

// SelectedChannel returns the selected channel, if any.
func (s State) SelectedChannel() (model.Channel, bool) {
	if s.SelectedChannelID == "" {
		return model.Channel{}, false
	}
	for _, ch := range s.Channels() {
		if ch.ID == s.SelectedChannelID {
			return ch, true
		}
	}
	return model.Channel{}, false
}

// Messages returns the cached messages of the selected channel, newest
// first.
func (s State) Messages() []model.Message {
	if s.SelectedChannelID == "" {
		return nil
	}
	return s.MessagesByChannel[s.SelectedChannelID]
}

// Cache owns the navigation state. It is safe for concurrent use.
type Cache struct {
	mu    sync.Mutex
	state State

	// epoch increments on Reset and invalidates every ticket.
	epoch uint64
	// selSeq increments on every selection request; a selection or
	// refresh ticket is valid only while it is current.
	selSeq uint64
	// guildSeq orders guild list loads; an older load never replaces a
	// newer one.
	guildSeq     uint64
	guildApplied uint64

	bus    *event.Bus
	subID  string
	logger *logging.Logger
}

// NewCache creates an empty Cache. When bus is non-nil the cache resets
// itself whenever the session leaves the authenticated state. logger may be
// nil.
func NewCache(bus *event.Bus, logger *logging.Logger) *Cache {
	if logger == nil {
		logger = logging.NopLogger()
	}
	c := &Cache{
		state:  emptyState(),
		bus:    bus,
		logger: logger.WithComponent("nav"),
	}
	if bus != nil {
		c.subID = bus.Subscribe(event.TypeSessionStateChanged, c.onSessionStateChanged)
	}
	return c
}

func emptyState() State {
	return State{
		ChannelsByGuild:   make(map[string][]model.Channel),
		MessagesByChannel: make(map[string][]model.Message),
	}
}

func (c *Cache) onSessionStateChanged(e event.Event) {
	ev, ok := e.(event.SessionStateChangedEvent)
	if !ok || ev.From != "authenticated" {
		return
	}
	c.logger.Debug("session ended, resetting", "to", ev.To)
	c.Reset()
}

// Detach stops listening for session changes.
func (c *Cache) Detach() {
	if c.bus != nil && c.subID != "" {
		c.bus.Unsubscribe(c.subID)
		c.subID = ""
	}
}

// -----------------------------------------------------------------------------
// Guild list
// -----------------------------------------------------------------------------

// BeginLoadGuilds starts a guild list load. It never fails.
func (c *Cache) BeginLoadGuilds() Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guildSeq++
	return Ticket{kind: ticketGuilds, epoch: c.epoch, seq: c.guildSeq, NeedsFetch: true}
}

// ApplyGuilds replaces the guild list. The selection is kept unless the
// selected guild is no longer listed, in which case it is cleared. Caches
// of guilds that disappeared are dropped.
func (c *Cache) ApplyGuilds(t Ticket, guilds []model.Guild) error {
	c.mu.Lock()
	if t.kind != ticketGuilds || t.epoch != c.epoch || t.seq <= c.guildApplied {
		c.mu.Unlock()
		return ErrStale
	}
	c.guildApplied = t.seq

	listed := make(map[string]bool, len(guilds))
	for _, g := range guilds {
		listed[g.ID] = true
	}
	for id, channels := range c.state.ChannelsByGuild {
		if listed[id] {
			continue
		}
		for _, ch := range channels {
			delete(c.state.MessagesByChannel, ch.ID)
		}
		delete(c.state.ChannelsByGuild, id)
	}

	cleared := false
	if c.state.SelectedGuildID != "" && !listed[c.state.SelectedGuildID] {
		c.state.SelectedGuildID = ""
		c.state.SelectedChannelID = ""
		c.selSeq++
		cleared = true
	}
	c.state.Guilds = slices.Clone(guilds)
	c.mu.Unlock()

	if cleared {
		c.logger.Info("selected guild no longer listed, selection cleared")
	}
	c.publish(event.NewGuildsLoadedEvent(len(guilds), cleared))
	return nil
}

// -----------------------------------------------------------------------------
// Guild selection
// -----------------------------------------------------------------------------

// BeginSelectGuild requests the selection of a listed guild. When its
// channels are cached the selection is applied at once and the returned
// ticket has NeedsFetch false. Otherwise the selection happens in
// ApplyChannels.
func (c *Cache) BeginSelectGuild(guildID string) (Ticket, error) {
	c.mu.Lock()
	if !c.hasGuild(guildID) {
		c.mu.Unlock()
		return Ticket{}, errors.NewSelectionError(errors.KindInvalidSelection, LevelGuild, guildID).
			WithReason("guild is not listed")
	}
	c.selSeq++
	t := Ticket{kind: ticketChannels, epoch: c.epoch, seq: c.selSeq, GuildID: guildID}

	channels, cached := c.state.ChannelsByGuild[guildID]
	if cached {
		c.selectGuildLocked(guildID)
		c.mu.Unlock()
		c.publish(event.NewGuildSelectedEvent(guildID, len(channels), true))
		return t, nil
	}
	t.NeedsFetch = true
	c.mu.Unlock()
	return t, nil
}

// ApplyChannels stores the fetched channel list and selects the guild,
// clearing any channel selection.
func (c *Cache) ApplyChannels(t Ticket, channels []model.Channel) error {
	c.mu.Lock()
	if t.kind != ticketChannels || !t.NeedsFetch || !c.currentLocked(t) || !c.hasGuild(t.GuildID) {
		c.mu.Unlock()
		return ErrStale
	}
	c.state.ChannelsByGuild[t.GuildID] = slices.Clone(channels)
	c.selectGuildLocked(t.GuildID)
	c.mu.Unlock()

	c.publish(event.NewGuildSelectedEvent(t.GuildID, len(channels), false))
	return nil
}

func (c *Cache) selectGuildLocked(guildID string) {
	c.state.SelectedGuildID = guildID
	c.state.SelectedChannelID = ""
}

// -----------------------------------------------------------------------------
// Channel selection and message refresh
// -----------------------------------------------------------------------------

// BeginSelectChannel requests the selection of a joinable channel of the
// selected guild. The selection happens in ApplyMessages.
func (c *Cache) BeginSelectChannel(channelID string) (Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	guildID := c.state.SelectedGuildID
	if guildID == "" {
		return Ticket{}, errors.NewSelectionError(errors.KindInvalidSelection, LevelChannel, channelID).
			WithReason("no guild selected")
	}
	ch, ok := findChannel(c.state.ChannelsByGuild[guildID], channelID)
	if !ok {
		return Ticket{}, errors.NewSelectionError(errors.KindInvalidSelection, LevelChannel, channelID).
			WithReason("channel is not in the selected guild")
	}
	if !ch.Kind.Joinable() {
		return Ticket{}, errors.NewSelectionError(errors.KindInvalidSelection, LevelChannel, channelID).
			WithReason(ch.Kind.String() + " channels cannot be opened")
	}

	c.selSeq++
	return Ticket{
		kind:       ticketMessages,
		epoch:      c.epoch,
		seq:        c.selSeq,
		GuildID:    guildID,
		ChannelID:  channelID,
		NeedsFetch: true,
		selecting:  true,
	}, nil
}

// BeginRefreshMessages requests a reload of the selected channel's
// messages, typically after sending one. channelID must be the selected
// channel.
func (c *Cache) BeginRefreshMessages(channelID string) (Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.SelectedChannelID == "" {
		return Ticket{}, errors.NewSelectionError(errors.KindNoChannelSelected, LevelChannel, channelID)
	}
	if c.state.SelectedChannelID != channelID {
		return Ticket{}, errors.NewSelectionError(errors.KindInvalidSelection, LevelChannel, channelID).
			WithReason("channel is not selected")
	}
	return Ticket{
		kind:       ticketMessages,
		epoch:      c.epoch,
		seq:        c.selSeq,
		GuildID:    c.state.SelectedGuildID,
		ChannelID:  channelID,
		NeedsFetch: true,
	}, nil
}

// ApplyMessages replaces the channel's cached messages with the fetch
// result and, for a selection ticket, selects the channel.
func (c *Cache) ApplyMessages(t Ticket, messages []model.Message) error {
	c.mu.Lock()
	if t.kind != ticketMessages || !c.currentLocked(t) || c.state.SelectedGuildID != t.GuildID {
		c.mu.Unlock()
		return ErrStale
	}
	if !t.selecting && c.state.SelectedChannelID != t.ChannelID {
		c.mu.Unlock()
		return ErrStale
	}
	if _, ok := findChannel(c.state.ChannelsByGuild[t.GuildID], t.ChannelID); !ok {
		c.mu.Unlock()
		return ErrStale
	}

	c.state.MessagesByChannel[t.ChannelID] = slices.Clone(messages)
	if t.selecting {
		c.state.SelectedChannelID = t.ChannelID
	}
	c.mu.Unlock()

	if t.selecting {
		c.publish(event.NewChannelSelectedEvent(t.GuildID, t.ChannelID))
	}
	c.publish(event.NewMessagesReplacedEvent(t.ChannelID, len(messages)))
	return nil
}

// -----------------------------------------------------------------------------
// Reset and queries
// -----------------------------------------------------------------------------

// Reset clears every cache tier and the selection, and invalidates every
// outstanding ticket.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.epoch++
	c.selSeq++
	c.state = emptyState()
	c.mu.Unlock()

	c.logger.Info("navigation reset")
	c.publish(event.NewNavResetEvent())
}

// SelectedChannel returns the selected channel ID.
func (c *Cache) SelectedChannel() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.SelectedChannelID, c.state.SelectedChannelID != ""
}

// Snapshot returns a deep copy of the state.
func (c *Cache) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := State{
		Guilds:            slices.Clone(c.state.Guilds),
		SelectedGuildID:   c.state.SelectedGuildID,
		SelectedChannelID: c.state.SelectedChannelID,
		ChannelsByGuild:   make(map[string][]model.Channel, len(c.state.ChannelsByGuild)),
		MessagesByChannel: make(map[string][]model.Message, len(c.state.MessagesByChannel)),
	}
	for id, channels := range c.state.ChannelsByGuild {
		out.ChannelsByGuild[id] = slices.Clone(channels)
	}
	for id, messages := range c.state.MessagesByChannel {
		out.MessagesByChannel[id] = slices.Clone(messages)
	}
	return out
}

// currentLocked reports whether a selection or refresh ticket is still the
// latest request of the current epoch.
func (c *Cache) currentLocked(t Ticket) bool {
	return t.epoch == c.epoch && t.seq == c.selSeq
}

func (c *Cache) hasGuild(id string) bool {
	return slices.ContainsFunc(c.state.Guilds, func(g model.Guild) bool { return g.ID == id })
}

func findChannel(channels []model.Channel, id string) (model.Channel, bool) {
	i := slices.IndexFunc(channels, func(ch model.Channel) bool { return ch.ID == id })
	if i < 0 {
		return model.Channel{}, false
	}
	return channels[i], true
}

func (c *Cache) publish(e event.Event) {
	if c.bus != nil {
		c.bus.Publish(e)
	}
}
