package msg

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/parley/internal/dispatch"
	"github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/model"
)

// Actions is the part of the dispatcher the TUI uses.
type Actions interface {
	Login(ctx context.Context, email, password string, remember bool) error
	RestoreSession(ctx context.Context) error
	Logout(ctx context.Context) error
	Bootstrap(ctx context.Context) (dispatch.Home, error)
	BrowseGuilds(ctx context.Context) ([]model.Guild, error)
	OpenGuild(ctx context.Context, guildID string) ([]model.Channel, error)
	OpenChannel(ctx context.Context, channelID string) ([]model.Message, error)
	SendMessage(ctx context.Context, text string) ([]model.Message, error)
	AddFriend(ctx context.Context, username string) error
	Friends(ctx context.Context) ([]model.User, error)
	Snapshot() dispatch.View
}

// Login logs in and, on success, loads the home data.
func Login(ctx context.Context, a Actions, email, password string, remember bool) tea.Cmd {
	return func() tea.Msg {
		if err := a.Login(ctx, email, password, remember); err != nil {
			return LoginMsg{Err: err}
		}
		home, err := a.Bootstrap(ctx)
		return LoginMsg{Home: home, Err: err}
	}
}

// Restore adopts the saved credential, if any, and loads the home data.
func Restore(ctx context.Context, a Actions) tea.Cmd {
	return func() tea.Msg {
		if err := a.RestoreSession(ctx); err != nil {
			if errors.Is(err, errors.ErrNoSavedCredential) {
				return RestoreMsg{}
			}
			return RestoreMsg{Err: err}
		}
		home, err := a.Bootstrap(ctx)
		return RestoreMsg{Restored: true, Home: home, Err: err}
	}
}

// Logout ends the session.
func Logout(ctx context.Context, a Actions) tea.Cmd {
	return func() tea.Msg {
		return LogoutMsg{Err: a.Logout(ctx)}
	}
}

// BrowseGuilds reloads the guild list.
func BrowseGuilds(ctx context.Context, a Actions) tea.Cmd {
	return func() tea.Msg {
		guilds, err := a.BrowseGuilds(ctx)
		return GuildsMsg{Guilds: guilds, Err: err}
	}
}

// OpenGuild selects a guild.
func OpenGuild(ctx context.Context, a Actions, guildID string) tea.Cmd {
	return func() tea.Msg {
		channels, err := a.OpenGuild(ctx, guildID)
		return ChannelsMsg{GuildID: guildID, Channels: channels, Err: err}
	}
}

// OpenChannel selects a channel.
func OpenChannel(ctx context.Context, a Actions, channelID string) tea.Cmd {
	return func() tea.Msg {
		msgs, err := a.OpenChannel(ctx, channelID)
		return MessagesMsg{ChannelID: channelID, Messages: msgs, Err: err}
	}
}

// Send posts a chat message to the selected channel.
func Send(ctx context.Context, a Actions, text string) tea.Cmd {
	return func() tea.Msg {
		msgs, err := a.SendMessage(ctx, text)
		return SentMsg{Messages: msgs, Err: err}
	}
}

// AddFriend sends a friend request.
func AddFriend(ctx context.Context, a Actions, username string) tea.Cmd {
	return func() tea.Msg {
		return FriendAddedMsg{Username: username, Err: a.AddFriend(ctx, username)}
	}
}

// Friends reloads the friend list.
func Friends(ctx context.Context, a Actions) tea.Cmd {
	return func() tea.Msg {
		friends, err := a.Friends(ctx)
		return FriendsMsg{Friends: friends, Err: err}
	}
}

// Listen waits for the next message forwarded from the event bus. The
// update loop re-arms it after every delivery.
func Listen(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		m, ok := <-events
		if !ok {
			return nil
		}
		return m
	}
}
