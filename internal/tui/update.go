package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/parley/internal/dispatch"
	"github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/session"
	"github.com/Iron-Ham/parley/internal/tui/keymap"
	tuimsg "github.com/Iron-Ham/parley/internal/tui/msg"
)

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.layout()
		return m, nil

	case tuimsg.LoginMsg:
		return m.handleHome(msg.Home, msg.Err)

	case tuimsg.RestoreMsg:
		if !msg.Restored && msg.Err == nil {
			m.busy = ""
			return m, nil
		}
		return m.handleHome(msg.Home, msg.Err)

	case tuimsg.LogoutMsg:
		m.toLogin()
		if msg.Err != nil {
			m.setStatus(statusError, errors.UserMessage(msg.Err))
		} else {
			m.setStatus(statusInfo, "Logged out.")
		}
		return m, nil

	case tuimsg.GuildsMsg:
		if msg.Err != nil {
			return m.fail(msg.Err)
		}
		m.busy = ""
		m.refresh()
		m.setStatus(statusInfo, fmt.Sprintf("%d guilds", len(msg.Guilds)))
		return m, nil

	case tuimsg.ChannelsMsg:
		if msg.Err != nil {
			return m.fail(msg.Err)
		}
		m.busy = ""
		m.channelCursor = 0
		m.refresh()
		m.focus = paneChannels
		m.setStatus(statusInfo, "")
		return m, nil

	case tuimsg.MessagesMsg:
		if msg.Err != nil {
			return m.fail(msg.Err)
		}
		m.busy = ""
		m.refresh()
		m.focus = paneMessages
		m.setStatus(statusInfo, "")
		return m, nil

	case tuimsg.SentMsg:
		if msg.Err != nil {
			return m.fail(msg.Err)
		}
		m.busy = ""
		m.composer.Reset()
		m.refresh()
		m.setStatus(statusSuccess, "Message sent.")
		return m, nil

	case tuimsg.FriendAddedMsg:
		if msg.Err != nil {
			return m.fail(msg.Err)
		}
		m.busy = ""
		m.friendInput.Reset()
		m.leaveInput()
		m.setStatus(statusSuccess, "Friend request sent to "+msg.Username+".")
		return m, nil

	case tuimsg.FriendsMsg:
		if msg.Err != nil {
			return m.fail(msg.Err)
		}
		m.busy = ""
		m.friends = msg.Friends
		m.setStatus(statusInfo, fmt.Sprintf("%d friends", len(msg.Friends)))
		return m, nil

	case tuimsg.SessionEndedMsg:
		if m.screen == screenMain {
			m.toLogin()
			m.setStatus(statusError, errors.UserMessage(errors.ErrSessionExpired))
		}
		return m, m.listen()

	case tuimsg.ErrMsg:
		return m.fail(msg.Err)
	}

	return m.updateInput(msg)
}

// listen re-arms the event bus listener.
func (m Model) listen() tea.Cmd {
	if m.events == nil {
		return nil
	}
	return tuimsg.Listen(m.events)
}

// handleHome finishes a login or restore.
func (m Model) handleHome(home dispatch.Home, err error) (tea.Model, tea.Cmd) {
	m.busy = ""
	m.refresh()
	if m.view.Session.State != session.Authenticated {
		m.toLogin()
		if err != nil {
			m.setStatus(statusError, errors.UserMessage(err))
		}
		return m, nil
	}

	// Logged in even if the home data failed to load; r reloads it.
	m.screen = screenMain
	m.mode = keymap.ModeBrowse
	m.focus = paneGuilds
	m.email.Blur()
	m.password.Blur()
	m.password.Reset()
	m.friends = home.Friends
	if err != nil {
		m.setStatus(statusError, errors.UserMessage(err))
		return m, nil
	}
	m.setStatus(statusSuccess, "Logged in as "+home.Self.Tag()+".")
	return m, nil
}

// fail reports err. Errors that ended the session return to the login
// screen.
func (m Model) fail(err error) (tea.Model, tea.Cmd) {
	m.busy = ""
	if errors.Is(err, errors.ErrSessionExpired) || errors.Is(err, errors.ErrNotAuthenticated) {
		m.toLogin()
	} else {
		m.refresh()
	}
	m.setStatus(statusError, errors.UserMessage(err))
	return m, nil
}

// toLogin clears everything that belonged to the session and shows the
// login form.
func (m *Model) toLogin() {
	m.screen = screenLogin
	m.mode = keymap.ModeLogin
	m.focus = paneGuilds
	m.busy = ""
	m.friends = nil
	m.guildCursor = 0
	m.channelCursor = 0
	m.composer.Reset()
	m.composer.Blur()
	m.friendInput.Reset()
	m.friendInput.Blur()
	m.password.Reset()
	m.loginField = fieldEmail
	m.password.Blur()
	m.email.Focus()
	m.refresh()
}

func (m Model) handleKey(k tea.KeyMsg) (tea.Model, tea.Cmd) {
	cmd, ok := m.keys.Lookup(k, m.mode)
	if ok && cmd == keymap.CmdForceQuit {
		m.quitting = true
		return m, tea.Quit
	}

	switch m.mode {
	case keymap.ModeLogin:
		if ok {
			return m.handleLoginCommand(cmd)
		}
		return m.updateInput(k)
	case keymap.ModeCompose, keymap.ModeFriend:
		if ok {
			return m.handleTextCommand(cmd)
		}
		return m.updateInput(k)
	default:
		if ok {
			return m.handleBrowseCommand(cmd)
		}
		return m, nil
	}
}

func (m Model) handleLoginCommand(cmd keymap.Command) (tea.Model, tea.Cmd) {
	switch cmd {
	case keymap.CmdSubmit:
		if m.busy != "" {
			return m, nil
		}
		m.busy = "Logging in"
		m.setStatus(statusInfo, "")
		return m, tuimsg.Login(m.ctx, m.actions, m.email.Value(), m.password.Value(), m.remember)
	case keymap.CmdNextField:
		if m.loginField == fieldEmail {
			m.loginField = fieldPassword
			m.email.Blur()
			return m, m.password.Focus()
		}
		m.loginField = fieldEmail
		m.password.Blur()
		return m, m.email.Focus()
	case keymap.CmdToggleRemember:
		m.remember = !m.remember
	}
	return m, nil
}

func (m Model) handleBrowseCommand(cmd keymap.Command) (tea.Model, tea.Cmd) {
	switch cmd {
	case keymap.CmdNextPane:
		m.focus = (m.focus + 1) % paneCount
	case keymap.CmdPrevPane:
		m.focus = (m.focus + paneCount - 1) % paneCount
	case keymap.CmdCursorUp:
		m.moveCursor(-1)
	case keymap.CmdCursorDown:
		m.moveCursor(1)
	case keymap.CmdOpen:
		return m.open()
	case keymap.CmdCompose:
		m.mode = keymap.ModeCompose
		return m, m.composer.Focus()
	case keymap.CmdAddFriend:
		m.mode = keymap.ModeFriend
		return m, m.friendInput.Focus()
	case keymap.CmdRefresh:
		m.busy = "Loading guilds"
		return m, tuimsg.BrowseGuilds(m.ctx, m.actions)
	case keymap.CmdRefreshFriend:
		m.busy = "Loading friends"
		return m, tuimsg.Friends(m.ctx, m.actions)
	case keymap.CmdLogout:
		m.busy = "Logging out"
		return m, tuimsg.Logout(m.ctx, m.actions)
	case keymap.CmdToggleHelp:
		m.showHelp = !m.showHelp
	case keymap.CmdQuit:
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	switch m.focus {
	case paneGuilds:
		m.guildCursor = clamp(m.guildCursor+delta, len(m.view.Nav.Guilds))
	case paneChannels:
		m.channelCursor = clamp(m.channelCursor+delta, len(m.view.Nav.Channels()))
	case paneMessages:
		if delta < 0 {
			m.messages.LineUp(-delta)
		} else {
			m.messages.LineDown(delta)
		}
	}
}

// open selects the guild or channel under the cursor.
func (m Model) open() (tea.Model, tea.Cmd) {
	switch m.focus {
	case paneGuilds:
		g, ok := m.cursorGuild()
		if !ok {
			return m, nil
		}
		m.busy = "Opening " + g.Name
		return m, tuimsg.OpenGuild(m.ctx, m.actions, g.ID)
	case paneChannels:
		c, ok := m.cursorChannel()
		if !ok {
			return m, nil
		}
		m.busy = "Opening " + c.Name
		return m, tuimsg.OpenChannel(m.ctx, m.actions, c.ID)
	}
	return m, nil
}

func (m Model) handleTextCommand(cmd keymap.Command) (tea.Model, tea.Cmd) {
	switch cmd {
	case keymap.CmdSubmit:
		if m.mode == keymap.ModeFriend {
			m.busy = "Sending friend request"
			return m, tuimsg.AddFriend(m.ctx, m.actions, m.friendInput.Value())
		}
		m.busy = "Sending"
		return m, tuimsg.Send(m.ctx, m.actions, m.composer.Value())
	case keymap.CmdCancel:
		m.leaveInput()
	}
	return m, nil
}

// leaveInput returns from a text mode to browsing.
func (m *Model) leaveInput() {
	m.mode = keymap.ModeBrowse
	m.composer.Blur()
	m.friendInput.Blur()
}

// updateInput forwards msg to the focused text input.
func (m Model) updateInput(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.mode {
	case keymap.ModeLogin:
		if m.loginField == fieldEmail {
			m.email, cmd = m.email.Update(msg)
		} else {
			m.password, cmd = m.password.Update(msg)
		}
	case keymap.ModeCompose:
		m.composer, cmd = m.composer.Update(msg)
	case keymap.ModeFriend:
		m.friendInput, cmd = m.friendInput.Update(msg)
	}
	return m, cmd
}
