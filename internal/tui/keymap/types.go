// Package keymap declares the TUI's key bindings per input mode, so the
// update loop dispatches on named commands instead of raw keys.
package keymap

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Mode is the TUI's current input mode.
type Mode string

const (
	ModeLogin   Mode = "login"   // login form
	ModeBrowse  Mode = "browse"  // moving between guilds, channels and messages
	ModeCompose Mode = "compose" // typing a chat message
	ModeFriend  Mode = "friend"  // typing a friend's username
)

// Command is a named action triggered by a key.
type Command string

// Browse mode commands.
const (
	CmdNextPane      Command = "next_pane"
	CmdPrevPane      Command = "prev_pane"
	CmdCursorUp      Command = "cursor_up"
	CmdCursorDown    Command = "cursor_down"
	CmdOpen          Command = "open"
	CmdCompose       Command = "compose"
	CmdAddFriend     Command = "add_friend"
	CmdRefresh       Command = "refresh"
	CmdRefreshFriend Command = "refresh_friends"
	CmdLogout        Command = "logout"
	CmdToggleHelp    Command = "toggle_help"
	CmdQuit          Command = "quit"
)

// Form and text input commands.
const (
	CmdSubmit         Command = "submit"
	CmdCancel         Command = "cancel"
	CmdNextField      Command = "next_field"
	CmdToggleRemember Command = "toggle_remember"
	CmdForceQuit      Command = "force_quit"
)

// Modifier is a keyboard modifier that must be held.
type Modifier uint8

const (
	ModNone Modifier = 0
	ModAlt  Modifier = 1 << iota
)

// KeyBinding maps one key to a command.
type KeyBinding struct {
	// KeyType is tea.KeyRunes for character keys, in which case Rune is the
	// character.
	KeyType   tea.KeyType
	Rune      rune
	Modifiers Modifier

	Command     Command
	Description string
}

// Matches reports whether msg triggers this binding.
func (kb KeyBinding) Matches(msg tea.KeyMsg) bool {
	if msg.Alt != (kb.Modifiers&ModAlt != 0) {
		return false
	}
	if kb.KeyType != tea.KeyRunes {
		return msg.Type == kb.KeyType
	}
	if msg.Type != tea.KeyRunes || len(msg.Runes) == 0 {
		return false
	}
	return msg.Runes[0] == kb.Rune
}

// String renders the key for the help bar.
func (kb KeyBinding) String() string {
	prefix := ""
	if kb.Modifiers&ModAlt != 0 {
		prefix = "alt+"
	}
	if kb.KeyType != tea.KeyRunes {
		return prefix + kb.KeyType.String()
	}
	return prefix + string(kb.Rune)
}

// Keymap holds the bindings of every mode.
type Keymap struct {
	Name  string
	Modes map[Mode][]KeyBinding
}

// Lookup returns the command bound to msg in mode.
func (km *Keymap) Lookup(msg tea.KeyMsg, mode Mode) (Command, bool) {
	for _, b := range km.Modes[mode] {
		if b.Matches(msg) {
			return b.Command, true
		}
	}
	return "", false
}

// Help returns one entry per command of mode, first binding wins, in
// declaration order.
func (km *Keymap) Help(mode Mode) []KeyBinding {
	seen := make(map[Command]bool)
	var out []KeyBinding
	for _, b := range km.Modes[mode] {
		if seen[b.Command] || b.Description == "" {
			continue
		}
		seen[b.Command] = true
		out = append(out, b)
	}
	return out
}
