package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/model"
)

// Operation names, used in errors and logs.
const (
	OpLogin             = "login"
	OpFetchSelf         = "fetch_self"
	OpFetchGuilds       = "fetch_guilds"
	OpFetchChannels     = "fetch_channels"
	OpFetchMessages     = "fetch_messages"
	OpPostMessage       = "post_message"
	OpFetchRelations    = "fetch_relationships"
	OpPostFriendRequest = "post_friend_request"
)

// Login exchanges credentials for a token. A 401 is KindAuth and a 403 is
// KindTwoFactor.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var resp loginResponse
	err := c.do(ctx, request{
		op:     OpLogin,
		method: http.MethodPost,
		path:   "/auth/login",
		in:     loginRequest{Email: email, Password: password},
		out:    &resp,
		login:  true,
	})
	if err != nil {
		return "", err
	}
	if resp.Token == "" {
		if resp.MFA {
			return "", errors.NewAPIError(OpLogin, errors.KindTwoFactor).WithStatus(http.StatusOK)
		}
		return "", errors.NewAPIError(OpLogin, errors.KindTransport).
			WithStatus(http.StatusOK).
			WithCause(fmt.Errorf("login response has no token"))
	}
	return resp.Token, nil
}

// FetchSelf returns the identity the token belongs to.
func (c *Client) FetchSelf(ctx context.Context, token string) (model.User, error) {
	var u wireUser
	if err := c.do(ctx, request{op: OpFetchSelf, method: http.MethodGet, path: "/users/@me", token: token, out: &u}); err != nil {
		return model.User{}, err
	}
	return u.model(), nil
}

// FetchGuilds returns the guilds the user is a member of.
func (c *Client) FetchGuilds(ctx context.Context, token string) ([]model.Guild, error) {
	var wire []wireGuild
	if err := c.do(ctx, request{op: OpFetchGuilds, method: http.MethodGet, path: "/users/@me/guilds", token: token, out: &wire}); err != nil {
		return nil, err
	}
	guilds := make([]model.Guild, 0, len(wire))
	for _, g := range wire {
		guilds = append(guilds, model.Guild{ID: g.ID, Name: g.Name})
	}
	return guilds, nil
}

// FetchChannels returns every channel of a guild in server order. Kinds
// the client cannot open come back as model.ChannelOther.
func (c *Client) FetchChannels(ctx context.Context, token, guildID string) ([]model.Channel, error) {
	var wire []wireChannel
	path := "/guilds/" + url.PathEscape(guildID) + "/channels"
	if err := c.do(ctx, request{op: OpFetchChannels, method: http.MethodGet, path: path, token: token, out: &wire}); err != nil {
		return nil, err
	}
	channels := make([]model.Channel, 0, len(wire))
	for _, ch := range wire {
		channels = append(channels, model.Channel{ID: ch.ID, Name: ch.Name, Kind: model.ChannelKindFromType(ch.Type)})
	}
	return channels, nil
}

// FetchMessages returns the latest message window of a channel, newest
// first.
func (c *Client) FetchMessages(ctx context.Context, token, channelID string) ([]model.Message, error) {
	var wire []wireMessage
	path := "/channels/" + url.PathEscape(channelID) + "/messages"
	if err := c.do(ctx, request{op: OpFetchMessages, method: http.MethodGet, path: path, token: token, out: &wire}); err != nil {
		return nil, err
	}
	msgs := make([]model.Message, 0, len(wire))
	for _, m := range wire {
		msgs = append(msgs, model.Message{ID: m.ID, AuthorName: m.Author.Username, Content: m.Content})
	}
	return msgs, nil
}

// PostMessage sends content to a channel. The created message is not
// returned; callers refetch the window.
func (c *Client) PostMessage(ctx context.Context, token, channelID, content string) error {
	path := "/channels/" + url.PathEscape(channelID) + "/messages"
	return c.do(ctx, request{
		op:     OpPostMessage,
		method: http.MethodPost,
		path:   path,
		token:  token,
		in:     postMessageRequest{Content: content, TTS: false},
	})
}

// FetchRelationships returns every relationship of the user. Callers
// filter with Relationship.IsFriend.
func (c *Client) FetchRelationships(ctx context.Context, token string) ([]model.Relationship, error) {
	var wire []wireRelationship
	if err := c.do(ctx, request{op: OpFetchRelations, method: http.MethodGet, path: "/users/@me/relationships", token: token, out: &wire}); err != nil {
		return nil, err
	}
	rels := make([]model.Relationship, 0, len(wire))
	for _, r := range wire {
		rels = append(rels, model.Relationship{ID: r.ID, Type: r.Type, User: r.User.model()})
	}
	return rels, nil
}

// PostFriendRequest sends a friend request by username. A "name#1234" tag
// is split into username and discriminator.
func (c *Client) PostFriendRequest(ctx context.Context, token, username string) error {
	return c.do(ctx, request{
		op:     OpPostFriendRequest,
		method: http.MethodPost,
		path:   "/users/@me/relationships",
		token:  token,
		in:     newFriendRequest(username),
	})
}
