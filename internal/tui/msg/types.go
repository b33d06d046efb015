package msg

import (
	"github.com/Iron-Ham/parley/internal/dispatch"
	"github.com/Iron-Ham/parley/internal/model"
)

// ErrMsg wraps an error to be shown in the status bar.
type ErrMsg struct {
	Err error
}

// LoginMsg is the result of a login attempt followed by Bootstrap.
type LoginMsg struct {
	Home dispatch.Home
	Err  error
}

// RestoreMsg is the result of adopting the saved credential at start-up
// followed by Bootstrap. Restored is false when nothing was saved.
type RestoreMsg struct {
	Restored bool
	Home     dispatch.Home
	Err      error
}

// LogoutMsg reports a finished logout.
type LogoutMsg struct {
	Err error
}

// GuildsMsg is the result of reloading the guild list.
type GuildsMsg struct {
	Guilds []model.Guild
	Err    error
}

// ChannelsMsg is the result of opening a guild.
type ChannelsMsg struct {
	GuildID  string
	Channels []model.Channel
	Err      error
}

// MessagesMsg is the result of opening a channel.
type MessagesMsg struct {
	ChannelID string
	Messages  []model.Message
	Err       error
}

// SentMsg is the result of sending a chat message.
type SentMsg struct {
	Messages []model.Message
	Err      error
}

// FriendAddedMsg is the result of a friend request.
type FriendAddedMsg struct {
	Username string
	Err      error
}

// FriendsMsg is the result of reloading the friend list.
type FriendsMsg struct {
	Friends []model.User
	Err     error
}

// SessionEndedMsg is forwarded from the event bus when the server rejected
// the token, whichever action noticed it.
type SessionEndedMsg struct {
	Reason string
}
