package keymap

import tea "github.com/charmbracelet/bubbletea"

// Default returns the default key bindings.
func Default() *Keymap {
	return &Keymap{
		Name: "default",
		Modes: map[Mode][]KeyBinding{
			ModeLogin:   loginBindings(),
			ModeBrowse:  browseBindings(),
			ModeCompose: textBindings("send"),
			ModeFriend:  textBindings("send request"),
		},
	}
}

func loginBindings() []KeyBinding {
	return []KeyBinding{
		{KeyType: tea.KeyEnter, Command: CmdSubmit, Description: "log in"},
		{KeyType: tea.KeyTab, Command: CmdNextField, Description: "next field"},
		{KeyType: tea.KeyShiftTab, Command: CmdNextField},
		{KeyType: tea.KeyCtrlR, Command: CmdToggleRemember, Description: "remember me"},
		{KeyType: tea.KeyCtrlC, Command: CmdForceQuit, Description: "quit"},
		{KeyType: tea.KeyEsc, Command: CmdForceQuit},
	}
}

func browseBindings() []KeyBinding {
	return []KeyBinding{
		{KeyType: tea.KeyTab, Command: CmdNextPane, Description: "next pane"},
		{KeyType: tea.KeyRunes, Rune: 'l', Command: CmdNextPane},
		{KeyType: tea.KeyShiftTab, Command: CmdPrevPane},
		{KeyType: tea.KeyRunes, Rune: 'h', Command: CmdPrevPane},
		{KeyType: tea.KeyUp, Command: CmdCursorUp, Description: "up"},
		{KeyType: tea.KeyRunes, Rune: 'k', Command: CmdCursorUp},
		{KeyType: tea.KeyDown, Command: CmdCursorDown, Description: "down"},
		{KeyType: tea.KeyRunes, Rune: 'j', Command: CmdCursorDown},
		{KeyType: tea.KeyEnter, Command: CmdOpen, Description: "open"},
		{KeyType: tea.KeyRunes, Rune: 'i', Command: CmdCompose, Description: "write"},
		{KeyType: tea.KeyRunes, Rune: 'a', Command: CmdAddFriend, Description: "add friend"},
		{KeyType: tea.KeyRunes, Rune: 'r', Command: CmdRefresh, Description: "reload"},
		{KeyType: tea.KeyRunes, Rune: 'f', Command: CmdRefreshFriend, Description: "friends"},
		{KeyType: tea.KeyRunes, Rune: 'L', Command: CmdLogout, Description: "log out"},
		{KeyType: tea.KeyRunes, Rune: '?', Command: CmdToggleHelp, Description: "help"},
		{KeyType: tea.KeyRunes, Rune: 'q', Command: CmdQuit, Description: "quit"},
		{KeyType: tea.KeyCtrlC, Command: CmdForceQuit},
	}
}

func textBindings(submit string) []KeyBinding {
	return []KeyBinding{
		{KeyType: tea.KeyEnter, Command: CmdSubmit, Description: submit},
		{KeyType: tea.KeyEsc, Command: CmdCancel, Description: "cancel"},
		{KeyType: tea.KeyCtrlC, Command: CmdForceQuit},
	}
}
