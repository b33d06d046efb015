package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/model"
	"github.com/Iron-Ham/parley/internal/testutil/fakeapi"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestClient(t *testing.T) (*Client, *fakeapi.Server) {
	t.Helper()
	srv := fakeapi.New(fakeapi.DefaultFixture())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.CloseClientConnections()
		ts.Close()
	})
	// A private transport lets Close drop idle keep-alive goroutines.
	transport := &http.Transport{}
	t.Cleanup(transport.CloseIdleConnections)
	return New(ts.URL, WithHTTPClient(&http.Client{Transport: transport})), srv
}

func requireKind(t *testing.T, err error, kind errors.Kind) *errors.APIError {
	t.Helper()
	require.Error(t, err)
	var apiErr *errors.APIError
	require.True(t, errors.As(err, &apiErr), "error %v is not an *APIError", err)
	require.Equal(t, kind, apiErr.Kind(), "error: %v", err)
	return apiErr
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("ok returns token", func(t *testing.T) {
		c, srv := newTestClient(t)
		token, err := c.Login(ctx, "a@b.com", "secret")
		require.NoError(t, err)
		assert.Equal(t, "tok123", token)

		calls := srv.Calls()
		require.Len(t, calls, 1)
		assert.Empty(t, calls[0].Authorization)
		assert.NotEmpty(t, calls[0].RequestID)
		assert.JSONEq(t, `{"email":"a@b.com","password":"secret"}`, string(calls[0].Body))
	})

	t.Run("401 is auth error", func(t *testing.T) {
		c, _ := newTestClient(t)
		_, err := c.Login(ctx, "a@b.com", "wrong")
		apiErr := requireKind(t, err, errors.KindAuth)
		assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
		assert.Equal(t, "Invalid email or password.", errors.UserMessage(err))
	})

	t.Run("403 is two-factor", func(t *testing.T) {
		f := fakeapi.DefaultFixture()
		f.TwoFactor = true
		ts := httptest.NewServer(fakeapi.New(f).Handler())
		defer ts.Close()
		transport := &http.Transport{}
		defer transport.CloseIdleConnections()

		_, err := New(ts.URL, WithHTTPClient(&http.Client{Transport: transport})).Login(ctx, "a@b.com", "secret")
		requireKind(t, err, errors.KindTwoFactor)
		assert.False(t, errors.IsRetryable(err))
	})

	t.Run("other status is remote with server message", func(t *testing.T) {
		c, srv := newTestClient(t)
		srv.Fail(fakeapi.RouteLogin, http.StatusBadRequest, 50035, "Invalid Form Body", 1)
		_, err := c.Login(ctx, "a@b.com", "secret")
		apiErr := requireKind(t, err, errors.KindRemote)
		assert.Equal(t, 50035, apiErr.Code)
		assert.Equal(t, "Invalid Form Body", errors.UserMessage(err))
	})

	t.Run("remote without message falls back", func(t *testing.T) {
		c, srv := newTestClient(t)
		srv.FailRaw(fakeapi.RouteLogin, http.StatusInternalServerError, "<html>oops</html>")
		_, err := c.Login(ctx, "a@b.com", "secret")
		requireKind(t, err, errors.KindRemote)
		assert.Equal(t, "Unknown error", errors.UserMessage(err))
	})
}

func TestLogin_ResponseShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		kind errors.Kind
	}{
		{"missing token", `{}`, errors.KindTransport},
		{"mfa ticket", `{"token":null,"mfa":true,"ticket":"abc"}`, errors.KindTwoFactor},
		{"not json", `token=abc`, errors.KindTransport},
		{"empty body", ``, errors.KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()
			transport := &http.Transport{}
			defer transport.CloseIdleConnections()

			_, err := New(ts.URL, WithHTTPClient(&http.Client{Transport: transport})).Login(context.Background(), "e", "p")
			requireKind(t, err, tt.kind)
		})
	}
}

func TestAuthorizationHeaderIsRawToken(t *testing.T) {
	c, srv := newTestClient(t)
	_, err := c.FetchGuilds(context.Background(), "tok123")
	require.NoError(t, err)

	calls := srv.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "tok123", calls[0].Authorization)
}

func TestFetchSelf(t *testing.T) {
	c, _ := newTestClient(t)
	u, err := c.FetchSelf(context.Background(), "tok123")
	require.NoError(t, err)
	assert.Equal(t, model.User{ID: "100", Username: "alice", Discriminator: "0001"}, u)
	assert.Equal(t, "alice#0001", u.Tag())
}

func TestFetchGuilds(t *testing.T) {
	c, _ := newTestClient(t)
	guilds, err := c.FetchGuilds(context.Background(), "tok123")
	require.NoError(t, err)
	assert.Equal(t, []model.Guild{{ID: "1", Name: "Guild1"}, {ID: "2", Name: "Guild2"}}, guilds)
}

func TestFetchChannels_Kinds(t *testing.T) {
	c, _ := newTestClient(t)
	channels, err := c.FetchChannels(context.Background(), "tok123", "2")
	require.NoError(t, err)
	assert.Equal(t, []model.Channel{
		{ID: "20", Name: "lobby", Kind: model.ChannelText},
		{ID: "21", Name: "Voice", Kind: model.ChannelVoice},
		{ID: "22", Name: "Info", Kind: model.ChannelOther},
	}, channels)
}

func TestFetchChannels_UnknownGuild(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.FetchChannels(context.Background(), "tok123", "999")
	apiErr := requireKind(t, err, errors.KindRemote)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Unknown Guild", apiErr.Message)
}

func TestFetchMessages(t *testing.T) {
	c, _ := newTestClient(t)
	msgs, err := c.FetchMessages(context.Background(), "tok123", "10")
	require.NoError(t, err)
	assert.Equal(t, []model.Message{
		{ID: "502", AuthorName: "bob", Content: "welcome!"},
		{ID: "501", AuthorName: "alice", Content: "hello"},
	}, msgs)
}

func TestPostMessage(t *testing.T) {
	c, srv := newTestClient(t)
	require.NoError(t, c.PostMessage(context.Background(), "tok123", "10", "hi"))

	calls := srv.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, fakeapi.RoutePostMessage, calls[0].Route)
	assert.Equal(t, "/channels/10/messages", calls[0].Path)
	assert.JSONEq(t, `{"content":"hi","tts":false}`, string(calls[0].Body))
	assert.Equal(t, "hi", srv.Messages("10")[0].Content)
}

func TestFetchRelationships(t *testing.T) {
	c, _ := newTestClient(t)
	rels, err := c.FetchRelationships(context.Background(), "tok123")
	require.NoError(t, err)
	require.Len(t, rels, 2)
	assert.True(t, rels[0].IsFriend())
	assert.Equal(t, "bob#0042", rels[0].User.Tag())
	assert.False(t, rels[1].IsFriend())
}

func TestPostFriendRequest(t *testing.T) {
	c, srv := newTestClient(t)
	ctx := context.Background()

	// 204 No Content counts as success.
	require.NoError(t, c.PostFriendRequest(ctx, "tok123", "dave"))
	require.NoError(t, c.PostFriendRequest(ctx, "tok123", "erin#1234"))

	reqs := srv.FriendRequests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "dave", reqs[0].Username)
	assert.Nil(t, reqs[0].Discriminator)
	assert.Equal(t, 1, reqs[0].Type)
	assert.Equal(t, "erin", reqs[1].Username)
	require.NotNil(t, reqs[1].Discriminator)
	assert.Equal(t, 1234, *reqs[1].Discriminator)

	err := c.PostFriendRequest(ctx, "tok123", "alice")
	apiErr := requireKind(t, err, errors.KindRemote)
	assert.Equal(t, "Cannot send friend request to self", apiErr.Message)
}

func TestAuthRejectedOnEveryAuthedOperation(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	bad := "expired"

	ops := map[string]func() error{
		OpFetchSelf:         func() error { _, err := c.FetchSelf(ctx, bad); return err },
		OpFetchGuilds:       func() error { _, err := c.FetchGuilds(ctx, bad); return err },
		OpFetchChannels:     func() error { _, err := c.FetchChannels(ctx, bad, "1"); return err },
		OpFetchMessages:     func() error { _, err := c.FetchMessages(ctx, bad, "10"); return err },
		OpPostMessage:       func() error { return c.PostMessage(ctx, bad, "10", "hi") },
		OpFetchRelations:    func() error { _, err := c.FetchRelationships(ctx, bad); return err },
		OpPostFriendRequest: func() error { return c.PostFriendRequest(ctx, bad, "dave") },
	}

	for op, call := range ops {
		t.Run(op, func(t *testing.T) {
			apiErr := requireKind(t, call(), errors.KindAuth)
			assert.Equal(t, op, apiErr.Op)
			assert.True(t, errors.IsAuthRejected(apiErr))
		})
	}
}

func TestForbiddenOutsideLoginIsRemote(t *testing.T) {
	c, srv := newTestClient(t)
	srv.Fail(fakeapi.RouteChannels, http.StatusForbidden, 50001, "Missing Access", 1)

	_, err := c.FetchChannels(context.Background(), "tok123", "1")
	apiErr := requireKind(t, err, errors.KindRemote)
	assert.Equal(t, "Missing Access", apiErr.Message)
}

func TestTransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := New(url).FetchGuilds(context.Background(), "tok123")
	requireKind(t, err, errors.KindTransport)
	assert.True(t, errors.IsRetryable(err))
	assert.False(t, errors.IsUserFacing(err))
}

func TestTimeoutIsTransport(t *testing.T) {
	c, srv := newTestClient(t)
	c = New(c.BaseURL(), WithHTTPClient(c.http), WithTimeout(50*time.Millisecond))
	gate := srv.Hold(fakeapi.RouteGuilds)
	defer gate.Release()

	_, err := c.FetchGuilds(context.Background(), "tok123")
	requireKind(t, err, errors.KindTransport)
}

func TestNewFriendRequest(t *testing.T) {
	tests := []struct {
		in       string
		username string
		disc     int // 0 = none
	}{
		{"dave", "dave", 0},
		{"erin#1234", "erin", 1234},
		{"#1234", "#1234", 0},
		{"frank#", "frank#", 0},
		{"gina#12", "gina#12", 0},
		{"h#i#0007", "h#i", 7},
		{"bob#+123", "bob#+123", 0},
		{"bob#-001", "bob#-001", 0},
		{"bob#12a4", "bob#12a4", 0},
		{"bob#١٢٣٤", "bob#١٢٣٤", 0},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			req := newFriendRequest(tt.in)
			assert.Equal(t, tt.username, req.Username)
			assert.Equal(t, model.RelationshipFriend, req.Type)
			if tt.disc == 0 {
				assert.Nil(t, req.Discriminator)
				data, _ := json.Marshal(req)
				assert.NotContains(t, string(data), "discriminator")
			} else {
				require.NotNil(t, req.Discriminator)
				assert.Equal(t, tt.disc, *req.Discriminator)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		status int
		login  bool
		want   errors.Kind // KindUnknown = no error
	}{
		{200, false, errors.KindUnknown},
		{204, false, errors.KindUnknown},
		{201, true, errors.KindUnknown},
		{401, false, errors.KindAuth},
		{401, true, errors.KindAuth},
		{403, true, errors.KindTwoFactor},
		{403, false, errors.KindRemote},
		{404, false, errors.KindRemote},
		{429, false, errors.KindRemote},
		{500, true, errors.KindRemote},
	}

	for _, tt := range tests {
		got := classify("op", tt.status, nil, tt.login)
		if tt.want == errors.KindUnknown {
			assert.Nil(t, got, "status %d", tt.status)
			continue
		}
		require.NotNil(t, got, "status %d", tt.status)
		assert.Equal(t, tt.want, got.Kind(), "status %d login=%v", tt.status, tt.login)
	}
}
