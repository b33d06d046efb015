package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/parley/internal/dispatch"
	"github.com/Iron-Ham/parley/internal/model"
	"github.com/Iron-Ham/parley/internal/tui/keymap"
	tuimsg "github.com/Iron-Ham/parley/internal/tui/msg"
)

type screen int

const (
	screenLogin screen = iota
	screenMain
)

// pane is one of the three browse columns.
type pane int

const (
	paneGuilds pane = iota
	paneChannels
	paneMessages
	paneCount
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusSuccess
	statusError
)

// Login form fields.
const (
	fieldEmail = iota
	fieldPassword
)

// Options tune the model.
type Options struct {
	// MessageWidth wraps message lines at this many cells. Zero uses the
	// full width of the messages pane.
	MessageWidth int
	// ShowChannelKinds prints "(voice)" and similar after channel names.
	ShowChannelKinds bool
	// Restore tries the saved credential when the program starts.
	Restore bool
	// Keymap defaults to keymap.Default().
	Keymap *keymap.Keymap
}

// Model holds the TUI state. All remote work goes through actions; after
// every result the model re-reads actions.Snapshot() and renders only that.
type Model struct {
	ctx     context.Context
	actions tuimsg.Actions
	keys    *keymap.Keymap
	opts    Options
	events  <-chan tea.Msg

	// UI state
	screen   screen
	mode     keymap.Mode
	focus    pane
	width    int
	height   int
	ready    bool
	quitting bool
	showHelp bool

	// Login form
	email      textinput.Model
	password   textinput.Model
	loginField int
	remember   bool

	// Browse screen
	composer    textinput.Model
	friendInput textinput.Model
	messages    viewport.Model

	view          dispatch.View
	friends       []model.User
	guildCursor   int
	channelCursor int

	// busy names the request in flight, if any.
	busy       string
	status     string
	statusKind statusKind
}

// NewModel creates the model. events carries messages forwarded from the
// event bus and may be nil.
func NewModel(ctx context.Context, actions tuimsg.Actions, events <-chan tea.Msg, opts Options) Model {
	if opts.Keymap == nil {
		opts.Keymap = keymap.Default()
	}

	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.CharLimit = 254
	email.Width = 32
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'
	password.CharLimit = 128
	password.Width = 32

	composer := textinput.New()
	composer.Placeholder = "Message"
	composer.CharLimit = 2000

	friend := textinput.New()
	friend.Placeholder = "username#0000"
	friend.CharLimit = 64

	m := Model{
		ctx:         ctx,
		actions:     actions,
		keys:        opts.Keymap,
		opts:        opts,
		events:      events,
		screen:      screenLogin,
		mode:        keymap.ModeLogin,
		email:       email,
		password:    password,
		composer:    composer,
		friendInput: friend,
		messages:    viewport.New(0, 0),
	}
	if opts.Restore {
		m.busy = "Restoring session"
	}
	m.view = actions.Snapshot()
	return m
}

// Init starts the cursor blink, the event listener and, if enabled, the
// session restore.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.events != nil {
		cmds = append(cmds, tuimsg.Listen(m.events))
	}
	if m.opts.Restore {
		cmds = append(cmds, tuimsg.Restore(m.ctx, m.actions))
	}
	return tea.Batch(cmds...)
}

// refresh re-reads the dispatcher snapshot and keeps the cursors in range.
func (m *Model) refresh() {
	m.view = m.actions.Snapshot()
	m.guildCursor = clamp(m.guildCursor, len(m.view.Nav.Guilds))
	m.channelCursor = clamp(m.channelCursor, len(m.view.Nav.Channels()))
	m.syncMessages()
}

// syncMessages renders the selected channel's messages into the viewport
// and scrolls to the newest one.
func (m *Model) syncMessages() {
	m.messages.SetContent(m.renderMessages(m.messageWidth()))
	m.messages.GotoBottom()
}

func (m *Model) setStatus(kind statusKind, text string) {
	m.statusKind = kind
	m.status = text
}

// cursorGuild returns the guild under the cursor.
func (m Model) cursorGuild() (model.Guild, bool) {
	guilds := m.view.Nav.Guilds
	if m.guildCursor < 0 || m.guildCursor >= len(guilds) {
		return model.Guild{}, false
	}
	return guilds[m.guildCursor], true
}

// cursorChannel returns the channel under the cursor.
func (m Model) cursorChannel() (model.Channel, bool) {
	channels := m.view.Nav.Channels()
	if m.channelCursor < 0 || m.channelCursor >= len(channels) {
		return model.Channel{}, false
	}
	return channels[m.channelCursor], true
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
