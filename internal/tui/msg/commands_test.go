package msg

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/parley/internal/dispatch"
	"github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/model"
)

// stubActions returns canned results and records which calls were made.
type stubActions struct {
	calls []string

	loginErr   error
	restoreErr error
	home       dispatch.Home
	homeErr    error
	channels   []model.Channel
	messages   []model.Message
	sendErr    error
	friends    []model.User
}

func (s *stubActions) Login(_ context.Context, _, _ string, _ bool) error {
	s.calls = append(s.calls, "login")
	return s.loginErr
}

func (s *stubActions) RestoreSession(context.Context) error {
	s.calls = append(s.calls, "restore")
	return s.restoreErr
}

func (s *stubActions) Logout(context.Context) error {
	s.calls = append(s.calls, "logout")
	return nil
}

func (s *stubActions) Bootstrap(context.Context) (dispatch.Home, error) {
	s.calls = append(s.calls, "bootstrap")
	return s.home, s.homeErr
}

func (s *stubActions) BrowseGuilds(context.Context) ([]model.Guild, error) {
	s.calls = append(s.calls, "guilds")
	return s.home.Guilds, nil
}

func (s *stubActions) OpenGuild(_ context.Context, id string) ([]model.Channel, error) {
	s.calls = append(s.calls, "open_guild:"+id)
	return s.channels, nil
}

func (s *stubActions) OpenChannel(_ context.Context, id string) ([]model.Message, error) {
	s.calls = append(s.calls, "open_channel:"+id)
	return s.messages, nil
}

func (s *stubActions) SendMessage(_ context.Context, text string) ([]model.Message, error) {
	s.calls = append(s.calls, "send:"+text)
	return s.messages, s.sendErr
}

func (s *stubActions) AddFriend(_ context.Context, name string) error {
	s.calls = append(s.calls, "friend:"+name)
	return nil
}

func (s *stubActions) Friends(context.Context) ([]model.User, error) {
	s.calls = append(s.calls, "friends")
	return s.friends, nil
}

func (s *stubActions) Snapshot() dispatch.View { return dispatch.View{} }

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("bootstraps after success", func(t *testing.T) {
		a := &stubActions{home: dispatch.Home{Self: model.User{Username: "alice"}}}
		got := Login(ctx, a, "a@b.com", "secret", true)().(LoginMsg)
		if got.Err != nil || got.Home.Self.Username != "alice" {
			t.Errorf("LoginMsg = %+v", got)
		}
		if len(a.calls) != 2 || a.calls[1] != "bootstrap" {
			t.Errorf("calls = %v", a.calls)
		}
	})

	t.Run("stops on failure", func(t *testing.T) {
		a := &stubActions{loginErr: errors.NewAPIError("login", errors.KindTwoFactor)}
		got := Login(ctx, a, "a@b.com", "secret", false)().(LoginMsg)
		if errors.KindOf(got.Err) != errors.KindTwoFactor {
			t.Errorf("Err = %v", got.Err)
		}
		if len(a.calls) != 1 {
			t.Errorf("calls = %v, want only login", a.calls)
		}
	})
}

func TestRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("nothing saved is not an error", func(t *testing.T) {
		a := &stubActions{restoreErr: errors.ErrNoSavedCredential}
		got := Restore(ctx, a)().(RestoreMsg)
		if got.Restored || got.Err != nil {
			t.Errorf("RestoreMsg = %+v", got)
		}
	})

	t.Run("restored and bootstrapped", func(t *testing.T) {
		a := &stubActions{home: dispatch.Home{Guilds: []model.Guild{{ID: "1"}}}}
		got := Restore(ctx, a)().(RestoreMsg)
		if !got.Restored || len(got.Home.Guilds) != 1 {
			t.Errorf("RestoreMsg = %+v", got)
		}
	})

	t.Run("rejected token surfaces the bootstrap error", func(t *testing.T) {
		expired := errors.NewSessionExpiredError(errors.NewAPIError("fetch_self", errors.KindAuth))
		a := &stubActions{homeErr: expired}
		got := Restore(ctx, a)().(RestoreMsg)
		if !got.Restored || !errors.Is(got.Err, errors.ErrSessionExpired) {
			t.Errorf("RestoreMsg = %+v", got)
		}
	})
}

func TestResultCommands(t *testing.T) {
	ctx := context.Background()
	a := &stubActions{
		channels: []model.Channel{{ID: "10"}},
		messages: []model.Message{{ID: "1"}},
		friends:  []model.User{{Username: "bob"}},
	}

	if got := OpenGuild(ctx, a, "1")().(ChannelsMsg); got.GuildID != "1" || len(got.Channels) != 1 {
		t.Errorf("ChannelsMsg = %+v", got)
	}
	if got := OpenChannel(ctx, a, "10")().(MessagesMsg); got.ChannelID != "10" || len(got.Messages) != 1 {
		t.Errorf("MessagesMsg = %+v", got)
	}
	if got := Send(ctx, a, "hi")().(SentMsg); got.Err != nil || len(got.Messages) != 1 {
		t.Errorf("SentMsg = %+v", got)
	}
	if got := AddFriend(ctx, a, "bob#0042")().(FriendAddedMsg); got.Username != "bob#0042" || got.Err != nil {
		t.Errorf("FriendAddedMsg = %+v", got)
	}
	if got := Friends(ctx, a)().(FriendsMsg); len(got.Friends) != 1 {
		t.Errorf("FriendsMsg = %+v", got)
	}
	if _, ok := BrowseGuilds(ctx, a)().(GuildsMsg); !ok {
		t.Error("BrowseGuilds did not return GuildsMsg")
	}
	if _, ok := Logout(ctx, a)().(LogoutMsg); !ok {
		t.Error("Logout did not return LogoutMsg")
	}

	want := []string{"open_guild:1", "open_channel:10", "send:hi", "friend:bob#0042", "friends", "guilds", "logout"}
	if len(a.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", a.calls, want)
	}
	for i := range want {
		if a.calls[i] != want[i] {
			t.Errorf("call[%d] = %q, want %q", i, a.calls[i], want[i])
		}
	}
}

func TestListen(t *testing.T) {
	events := make(chan tea.Msg, 1)
	events <- SessionEndedMsg{Reason: "fetch_guilds"}
	if got, ok := Listen(events)().(SessionEndedMsg); !ok || got.Reason != "fetch_guilds" {
		t.Errorf("Listen() = %#v", got)
	}
	close(events)
	if got := Listen(events)(); got != nil {
		t.Errorf("Listen() on closed channel = %#v, want nil", got)
	}
}
