// Package session owns the authentication state machine and the current
// token.
//
//	LoggedOut ──Login ok / LoadSaved──▶ Authenticated
//	    ▲                                   │
//	    │◀──────────── Logout ──────────────┤
//	    │                                   │ OnAuthRejected
//	    └────────────── Invalid ◀───────────┘
//
// Login passes through Authenticating while the request is in flight.
// The token is held if and only if the state is Authenticated. Every
// transition is published as event.SessionStateChangedEvent after the
// manager's lock is released.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/Iron-Ham/parley/internal/credential"
	"github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/event"
	"github.com/Iron-Ham/parley/internal/logging"
)

// State is a session state.
type State int

const (
	LoggedOut State = iota
	Authenticating
	Authenticated
	// Invalid is transient: the token was rejected and is being discarded.
	Invalid
)

// String returns the snake_case name used in events and logs.
func (s State) String() string {
	switch s {
	case LoggedOut:
		return "logged_out"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// ErrLoginAborted is returned by Login when the session was logged out
// while the login request was in flight. The token is discarded.
var ErrLoginAborted = errors.New("login aborted by logout")

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// Snapshot is a read-only view of the session.
type Snapshot struct {
	State    State
	HasToken bool
}

// Manager owns the Session. It is safe for concurrent use.
type Manager struct {
	mu    sync.Mutex
	state State
	token string
	// gen increments on every transition so a login that returns after a
	// logout can tell it lost the race.
	gen uint64

	auth   Authenticator
	store  credential.Store
	bus    *event.Bus
	logger *logging.Logger
}

// NewManager creates a Manager in the LoggedOut state. bus and logger may
// be nil.
func NewManager(auth Authenticator, store credential.Store, bus *event.Bus, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if bus == nil {
		bus = event.NewBus(logger)
	}
	return &Manager{
		state:  LoggedOut,
		auth:   auth,
		store:  store,
		bus:    bus,
		logger: logger.WithComponent("session"),
	}
}

// Login authenticates with email and password. On success the session is
// Authenticated and the token is saved when remember is set, otherwise any
// saved credential is deleted. On failure the session is LoggedOut and the
// gateway error is returned unchanged, so two-factor stays distinguishable.
//
// Logging in while Authenticated drops the current session first; if the
// new login then fails, the old session's saved credential is deleted too.
// A second Login while one is in flight returns errors.ErrLoginInProgress.
func (m *Manager) Login(ctx context.Context, email, password string, remember bool) error {
	m.mu.Lock()
	if m.state == Authenticating {
		m.mu.Unlock()
		return errors.ErrLoginInProgress
	}
	replacing := m.state == Authenticated
	evs := m.setState(Authenticating, "")
	gen := m.gen
	m.mu.Unlock()
	m.publish(evs)

	token, err := m.auth.Login(ctx, email, password)

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		m.logger.Info("login result discarded", "reason", "session changed during login")
		return ErrLoginAborted
	}
	// Saved under the lock so a concurrent Logout cannot leave a
	// credential behind.
	if err == nil && remember {
		if saveErr := m.store.Save(ctx, credential.Record{Token: token}); saveErr != nil {
			err = fmt.Errorf("failed to save credential: %w", saveErr)
		}
	}
	if err != nil {
		evs = m.setState(LoggedOut, "")
		m.mu.Unlock()
		m.publish(evs)
		m.logger.Info("login failed", "kind", errors.KindOf(err).String())
		if replacing {
			// The previous session is gone; its credential must not come
			// back on the next restore.
			if delErr := m.store.Delete(ctx); delErr != nil {
				m.logger.Warn("failed to delete saved credential", "error", delErr.Error())
			}
		}
		return err
	}
	evs = m.setState(Authenticated, token)
	m.mu.Unlock()
	m.publish(evs)

	if !remember {
		if delErr := m.store.Delete(ctx); delErr != nil {
			m.logger.Warn("failed to delete saved credential", "error", delErr.Error())
		}
	}
	m.logger.Info("logged in", "remembered", remember)
	return nil
}

// LoadSaved adopts the saved credential without contacting the server.
// Its validity is discovered on first use. Returns
// errors.ErrNoSavedCredential when nothing is saved.
func (m *Manager) LoadSaved(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case Authenticated:
		m.mu.Unlock()
		return nil
	case Authenticating:
		m.mu.Unlock()
		return errors.ErrLoginInProgress
	}
	gen := m.gen
	m.mu.Unlock()

	rec, err := m.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, errors.ErrNoSavedCredential) {
			m.logger.Warn("failed to load saved credential", "error", err.Error())
		}
		return err
	}

	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return ErrLoginAborted
	}
	evs := m.setState(Authenticated, rec.Token)
	m.mu.Unlock()
	m.publish(evs)
	m.logger.Info("restored saved session")
	return nil
}

// Logout ends the session and deletes the saved credential regardless of
// the current state.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	evs := m.setState(LoggedOut, "")
	// Also invalidates a LoadSaved that started while already logged out.
	m.gen++
	m.mu.Unlock()
	m.publish(evs)

	if err := m.store.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete saved credential: %w", err)
	}
	m.logger.Info("logged out")
	return nil
}

// OnAuthRejected handles an authentication rejection of token by any
// remote call: the session passes through Invalid to LoggedOut, the saved
// credential is deleted and event.SessionInvalidatedEvent is published.
//
// It returns false, and does nothing, when token is no longer the current
// token; a rejection of an older session must not end a newer one.
func (m *Manager) OnAuthRejected(ctx context.Context, token, reason string) bool {
	m.mu.Lock()
	if m.state != Authenticated || m.token != token {
		m.mu.Unlock()
		return false
	}
	evs := m.setState(Invalid, "")
	evs = append(evs, m.setState(LoggedOut, "")...)
	m.mu.Unlock()
	m.publish(evs)

	if err := m.store.Delete(ctx); err != nil {
		m.logger.Warn("failed to delete rejected credential", "error", err.Error())
	}
	m.logger.Warn("session invalidated", "reason", reason)
	m.bus.Publish(event.NewSessionInvalidatedEvent(reason))
	return true
}

// CurrentToken returns the token when Authenticated.
func (m *Manager) CurrentToken() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Authenticated {
		return "", false
	}
	return m.token, true
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot returns a read-only view of the session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{State: m.state, HasToken: m.token != ""}
}

// setState must be called with mu held. It keeps the token invariant and
// returns the event to publish once mu is released.
func (m *Manager) setState(to State, token string) []event.Event {
	if to != Authenticated {
		token = ""
	}
	from := m.state
	m.token = token
	if from == to {
		return nil
	}
	m.state = to
	m.gen++
	return []event.Event{event.NewSessionStateChangedEvent(from.String(), to.String())}
}

func (m *Manager) publish(evs []event.Event) {
	for _, ev := range evs {
		m.bus.Publish(ev)
	}
}
