// Package dispatch is the action façade the presentation layer talks to.
//
// Each operation checks its preconditions, calls the gateway with the
// current token and applies the result to the session and navigation
// cache. Network calls never hold a lock; results that were overtaken by
// a newer selection or a session change are discarded by the navigation
// cache. Any authentication rejection ends the session and is reported
// as errors.ErrSessionExpired.
//
// The session manager and navigation cache must share an event bus so the
// cache resets when the session ends:
//
//	bus := event.NewBus(logger)
//	sess := session.NewManager(client, store, bus, logger)
//	cache := nav.NewCache(bus, logger)
//	d := dispatch.New(client, sess, cache, dispatch.WithLogger(logger))
package dispatch

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/logging"
	"github.com/Iron-Ham/parley/internal/model"
	"github.com/Iron-Ham/parley/internal/nav"
	"github.com/Iron-Ham/parley/internal/session"
)

// Field names reported in input errors.
const (
	FieldCredentials = "email and password"
	FieldMessage     = "message"
	FieldFriend      = "friend's username"
)

// Action names used in logs and as the session invalidation reason.
const (
	ActionLogin          = "login"
	ActionRestoreSession = "restore_session"
	ActionLogout         = "logout"
	ActionWhoami         = "whoami"
	ActionBrowseGuilds   = "browse_guilds"
	ActionOpenGuild      = "open_guild"
	ActionOpenChannel    = "open_channel"
	ActionSendMessage    = "send_message"
	ActionAddFriend      = "add_friend"
	ActionFriends        = "friends"
	ActionBootstrap      = "bootstrap"
)

// Gateway is the remote API.
type Gateway interface {
	session.Authenticator
	FetchSelf(ctx context.Context, token string) (model.User, error)
	FetchGuilds(ctx context.Context, token string) ([]model.Guild, error)
	FetchChannels(ctx context.Context, token, guildID string) ([]model.Channel, error)
	FetchMessages(ctx context.Context, token, channelID string) ([]model.Message, error)
	PostMessage(ctx context.Context, token, channelID, content string) error
	FetchRelationships(ctx context.Context, token string) ([]model.Relationship, error)
	PostFriendRequest(ctx context.Context, token, username string) error
}

// Home is what Bootstrap loads after a login or restore.
type Home struct {
	Self    model.User
	Guilds  []model.Guild
	Friends []model.User
}

// View is a read-only snapshot of everything the presentation layer may
// render.
type View struct {
	Session session.Snapshot
	Nav     nav.State
	// Self is the identity of the current session, once fetched.
	Self *model.User
}

// Dispatcher coordinates the gateway, session manager and navigation cache.
// It is safe for concurrent use.
type Dispatcher struct {
	gw     Gateway
	sess   *session.Manager
	nav    *nav.Cache
	logger *logging.Logger
	newID  func() string

	// mu guards the identity fetched for selfToken. It is never held while
	// calling into the session or the cache.
	mu        sync.Mutex
	self      model.User
	selfToken string
}

// New creates a Dispatcher. gw, sess and cache must be non-nil.
func New(gw Gateway, sess *session.Manager, cache *nav.Cache, opts ...Option) *Dispatcher {
	if gw == nil {
		panic("dispatch: Gateway must not be nil")
	}
	if sess == nil {
		panic("dispatch: session.Manager must not be nil")
	}
	if cache == nil {
		panic("dispatch: nav.Cache must not be nil")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Dispatcher{
		gw:     gw,
		sess:   sess,
		nav:    cache,
		logger: cfg.logger.WithComponent("dispatch"),
		newID:  cfg.newID,
	}
}

// -----------------------------------------------------------------------------
// Session
// -----------------------------------------------------------------------------

// Login authenticates and, when remember is set, saves the token.
// Two-factor accounts fail with an error of kind errors.KindTwoFactor.
func (d *Dispatcher) Login(ctx context.Context, email, password string, remember bool) error {
	log := d.action(ActionLogin)
	email = strings.TrimSpace(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return d.done(log, errors.NewInputError(FieldCredentials))
	}
	err := d.sess.Login(ctx, email, password, remember)
	return d.done(log, err)
}

// RestoreSession adopts the saved credential without contacting the
// server. It fails with errors.ErrNoSavedCredential when nothing is saved.
func (d *Dispatcher) RestoreSession(ctx context.Context) error {
	log := d.action(ActionRestoreSession)
	return d.done(log, d.sess.LoadSaved(ctx))
}

// Logout ends the session and deletes the saved credential.
func (d *Dispatcher) Logout(ctx context.Context) error {
	log := d.action(ActionLogout)
	return d.done(log, d.sess.Logout(ctx))
}

// Whoami fetches the identity behind the current token.
func (d *Dispatcher) Whoami(ctx context.Context) (model.User, error) {
	log := d.action(ActionWhoami)
	token, err := d.token()
	if err != nil {
		return model.User{}, d.done(log, err)
	}
	u, err := d.gw.FetchSelf(ctx, token)
	if err != nil {
		return model.User{}, d.done(log, d.fail(ctx, ActionWhoami, token, err))
	}
	d.rememberSelf(token, u)
	return u, d.done(log, nil)
}

// -----------------------------------------------------------------------------
// Navigation
// -----------------------------------------------------------------------------

// BrowseGuilds loads the guild list. The selection survives unless the
// selected guild is gone.
func (d *Dispatcher) BrowseGuilds(ctx context.Context) ([]model.Guild, error) {
	log := d.action(ActionBrowseGuilds)
	if _, err := d.token(); err != nil {
		return nil, d.done(log, err)
	}
	t := d.nav.BeginLoadGuilds()
	// Read after the ticket: a session change from here on also stales it.
	token, err := d.token()
	if err != nil {
		return nil, d.done(log, err)
	}

	guilds, err := d.gw.FetchGuilds(ctx, token)
	if err != nil {
		return nil, d.done(log, d.fail(ctx, ActionBrowseGuilds, token, err))
	}
	if err := d.nav.ApplyGuilds(t, guilds); err != nil {
		return nil, d.done(log, stale(err, nav.LevelGuild, ""))
	}
	log.Debug("guilds loaded", "count", len(guilds))
	return guilds, d.done(log, nil)
}

// OpenGuild selects a listed guild and returns its channels, fetching them
// unless cached.
func (d *Dispatcher) OpenGuild(ctx context.Context, guildID string) ([]model.Channel, error) {
	log := d.action(ActionOpenGuild).With("guild_id", guildID)
	if _, err := d.token(); err != nil {
		return nil, d.done(log, err)
	}
	t, err := d.nav.BeginSelectGuild(guildID)
	if err != nil {
		return nil, d.done(log, err)
	}
	if !t.NeedsFetch {
		log.Debug("channels served from cache")
		return d.nav.Snapshot().ChannelsByGuild[guildID], d.done(log, nil)
	}
	token, err := d.token()
	if err != nil {
		return nil, d.done(log, err)
	}

	channels, err := d.gw.FetchChannels(ctx, token, guildID)
	if err != nil {
		return nil, d.done(log, d.fail(ctx, ActionOpenGuild, token, err))
	}
	if err := d.nav.ApplyChannels(t, channels); err != nil {
		return nil, d.done(log, stale(err, nav.LevelGuild, guildID))
	}
	return channels, d.done(log, nil)
}

// OpenChannel selects a text or voice channel of the selected guild and
// returns its latest messages, newest first. The channel's cached messages
// are replaced.
func (d *Dispatcher) OpenChannel(ctx context.Context, channelID string) ([]model.Message, error) {
	log := d.action(ActionOpenChannel).With("channel_id", channelID)
	if _, err := d.token(); err != nil {
		return nil, d.done(log, err)
	}
	t, err := d.nav.BeginSelectChannel(channelID)
	if err != nil {
		return nil, d.done(log, err)
	}
	msgs, err := d.fetchMessages(ctx, ActionOpenChannel, t)
	return msgs, d.done(log, err)
}

// SendMessage posts text to the selected channel and reloads its messages.
// Blank text fails with an input error and no channel selected fails with
// errors.ErrNoChannelSelected; neither reaches the network.
func (d *Dispatcher) SendMessage(ctx context.Context, text string) ([]model.Message, error) {
	log := d.action(ActionSendMessage)
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, d.done(log, errors.NewInputError(FieldMessage))
	}
	if _, err := d.token(); err != nil {
		return nil, d.done(log, err)
	}
	channelID, ok := d.nav.SelectedChannel()
	if !ok {
		return nil, d.done(log, errors.NewSelectionError(errors.KindNoChannelSelected, nav.LevelChannel, ""))
	}
	log = log.With("channel_id", channelID)
	t, err := d.nav.BeginRefreshMessages(channelID)
	if err != nil {
		return nil, d.done(log, err)
	}
	token, err := d.token()
	if err != nil {
		return nil, d.done(log, err)
	}

	if err := d.gw.PostMessage(ctx, token, channelID, text); err != nil {
		return nil, d.done(log, d.fail(ctx, ActionSendMessage, token, err))
	}
	log.Debug("message posted", "length", len(text))

	msgs, err := d.fetchMessages(ctx, ActionSendMessage, t)
	if errors.Is(err, nav.ErrStale) {
		// Sent, but the user moved on; nothing to refresh.
		return nil, d.done(log, nil)
	}
	return msgs, d.done(log, err)
}

func (d *Dispatcher) fetchMessages(ctx context.Context, action string, t nav.Ticket) ([]model.Message, error) {
	token, err := d.token()
	if err != nil {
		return nil, err
	}
	msgs, err := d.gw.FetchMessages(ctx, token, t.ChannelID)
	if err != nil {
		return nil, d.fail(ctx, action, token, err)
	}
	if err := d.nav.ApplyMessages(t, msgs); err != nil {
		if action == ActionSendMessage {
			return nil, err
		}
		return nil, stale(err, nav.LevelChannel, t.ChannelID)
	}
	return msgs, nil
}

// -----------------------------------------------------------------------------
// Friends
// -----------------------------------------------------------------------------

// AddFriend sends a friend request. username may carry a "#1234"
// discriminator.
func (d *Dispatcher) AddFriend(ctx context.Context, username string) error {
	log := d.action(ActionAddFriend)
	username = strings.TrimSpace(username)
	if username == "" {
		return d.done(log, errors.NewInputError(FieldFriend))
	}
	token, err := d.token()
	if err != nil {
		return d.done(log, err)
	}
	if err := d.gw.PostFriendRequest(ctx, token, username); err != nil {
		return d.done(log, d.fail(ctx, ActionAddFriend, token, err))
	}
	return d.done(log, nil)
}

// Friends lists confirmed friends.
func (d *Dispatcher) Friends(ctx context.Context) ([]model.User, error) {
	log := d.action(ActionFriends)
	token, err := d.token()
	if err != nil {
		return nil, d.done(log, err)
	}
	rels, err := d.gw.FetchRelationships(ctx, token)
	if err != nil {
		return nil, d.done(log, d.fail(ctx, ActionFriends, token, err))
	}
	return friendsOf(rels), d.done(log, nil)
}

func friendsOf(rels []model.Relationship) []model.User {
	var out []model.User
	for _, r := range rels {
		if r.IsFriend() {
			out = append(out, r.User)
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// Bootstrap
// -----------------------------------------------------------------------------

// Bootstrap loads the identity, the guild list and the friend list
// concurrently. It is the first call after Login or RestoreSession, and
// where a restored token turns out to be rejected.
func (d *Dispatcher) Bootstrap(ctx context.Context) (Home, error) {
	log := d.action(ActionBootstrap)
	if _, err := d.token(); err != nil {
		return Home{}, d.done(log, err)
	}
	t := d.nav.BeginLoadGuilds()
	token, err := d.token()
	if err != nil {
		return Home{}, d.done(log, err)
	}

	var (
		self   model.User
		guilds []model.Guild
		rels   []model.Relationship

		rejectedMu sync.Mutex
		rejected   error
	)
	// The fetches are not cancelled on the first failure: an auth
	// rejection from any of them must still end the session, even when
	// another fetch failed first.
	watch := func(err error) error {
		if errors.IsAuthRejected(err) {
			rejectedMu.Lock()
			if rejected == nil {
				rejected = err
			}
			rejectedMu.Unlock()
		}
		return err
	}
	var g errgroup.Group
	g.Go(func() error {
		var err error
		self, err = d.gw.FetchSelf(ctx, token)
		return watch(err)
	})
	g.Go(func() error {
		var err error
		guilds, err = d.gw.FetchGuilds(ctx, token)
		return watch(err)
	})
	g.Go(func() error {
		var err error
		rels, err = d.gw.FetchRelationships(ctx, token)
		return watch(err)
	})
	if err := g.Wait(); err != nil {
		if rejected != nil {
			err = rejected
		}
		return Home{}, d.done(log, d.fail(ctx, ActionBootstrap, token, err))
	}

	if err := d.nav.ApplyGuilds(t, guilds); err != nil {
		return Home{}, d.done(log, stale(err, nav.LevelGuild, ""))
	}
	d.rememberSelf(token, self)
	home := Home{Self: self, Guilds: guilds, Friends: friendsOf(rels)}
	log.Info("session ready", "guilds", len(home.Guilds), "friends", len(home.Friends))
	return home, d.done(log, nil)
}

// Snapshot returns the current session and navigation state. Event
// handlers may call it.
func (d *Dispatcher) Snapshot() View {
	v := View{
		Session: d.sess.Snapshot(),
		Nav:     d.nav.Snapshot(),
	}
	token, ok := d.sess.CurrentToken()
	d.mu.Lock()
	if ok && token == d.selfToken {
		self := d.self
		v.Self = &self
	}
	d.mu.Unlock()
	return v
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (d *Dispatcher) action(name string) *logging.Logger {
	log := d.logger.WithAction(name, d.newID())
	log.Debug("action started")
	return log
}

// done logs the outcome of an action at a level following the error's
// severity and returns err unchanged.
func (d *Dispatcher) done(log *logging.Logger, err error) error {
	if err == nil {
		log.Debug("action completed")
		return nil
	}
	args := []any{"kind", errors.KindOf(err).String(), "retryable", errors.IsRetryable(err), "error", err.Error()}
	switch errors.GetSeverity(err) {
	case errors.SeverityDebug:
		log.Debug("action failed", args...)
	case errors.SeverityInfo, errors.SeverityWarning:
		log.Info("action failed", args...)
	case errors.SeverityError:
		log.Warn("action failed", args...)
	default:
		log.Error("action failed", args...)
	}
	return err
}

func (d *Dispatcher) token() (string, error) {
	token, ok := d.sess.CurrentToken()
	if !ok {
		return "", errors.NewNotAuthenticatedError()
	}
	return token, nil
}

// fail turns a gateway error into the action's result. An auth rejection
// of the current token ends the session; the navigation cache resets
// through the session's state change event.
func (d *Dispatcher) fail(ctx context.Context, action, token string, err error) error {
	if !errors.IsAuthRejected(err) {
		return err
	}
	if !d.sess.OnAuthRejected(ctx, token, action) {
		// An older session's token; the current one is unaffected.
		return err
	}
	d.mu.Lock()
	if d.selfToken == token {
		d.self, d.selfToken = model.User{}, ""
	}
	d.mu.Unlock()
	return errors.NewSessionExpiredError(err)
}

func (d *Dispatcher) rememberSelf(token string, u model.User) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.self, d.selfToken = u, token
}

// stale maps a discarded result to the selection error the caller sees.
func stale(err error, level, id string) error {
	if !errors.Is(err, nav.ErrStale) {
		return err
	}
	return errors.NewSelectionError(errors.KindInvalidSelection, level, id).
		WithReason("superseded by a newer selection or session change")
}
