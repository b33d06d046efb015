package session

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Iron-Ham/parley/internal/credential"
	"github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/event"
)

// stubAuth answers Login from a table and can block until released.
type stubAuth struct {
	mu      sync.Mutex
	calls   int
	token   string
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *stubAuth) Login(ctx context.Context, email, password string) (string, error) {
	s.mu.Lock()
	s.calls++
	started, release := s.started, s.release
	s.mu.Unlock()
	if started != nil {
		close(started)
	}
	if release != nil {
		<-release
	}
	return s.token, s.err
}

func newTestManager(t *testing.T, auth Authenticator) (*Manager, *credential.FileStore, *event.Bus) {
	t.Helper()
	store := credential.NewFileStore(filepath.Join(t.TempDir(), "token.json"))
	bus := event.NewBus(nil)
	return NewManager(auth, store, bus, nil), store, bus
}

func recordTransitions(bus *event.Bus) *[]string {
	var got []string
	bus.Subscribe(event.TypeSessionStateChanged, func(e event.Event) {
		ev := e.(event.SessionStateChangedEvent)
		got = append(got, ev.From+"->"+ev.To)
	})
	return &got
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{LoggedOut, "logged_out"},
		{Authenticating, "authenticating"},
		{Authenticated, "authenticated"},
		{Invalid, "invalid"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestManager_InitialState(t *testing.T) {
	m, _, _ := newTestManager(t, &stubAuth{})
	if m.State() != LoggedOut {
		t.Errorf("State() = %v, want LoggedOut", m.State())
	}
	if _, ok := m.CurrentToken(); ok {
		t.Error("CurrentToken() should be absent when logged out")
	}
}

func TestManager_LoginSuccess(t *testing.T) {
	ctx := context.Background()

	t.Run("remember saves the token", func(t *testing.T) {
		m, store, bus := newTestManager(t, &stubAuth{token: "tok123"})
		transitions := recordTransitions(bus)

		if err := m.Login(ctx, "a@b.com", "secret", true); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if tok, ok := m.CurrentToken(); !ok || tok != "tok123" {
			t.Errorf("CurrentToken() = %q, %v; want tok123, true", tok, ok)
		}
		rec, err := store.Load(ctx)
		if err != nil || rec.Token != "tok123" {
			t.Errorf("saved record = %+v, %v", rec, err)
		}
		want := []string{"logged_out->authenticating", "authenticating->authenticated"}
		if fmt.Sprint(*transitions) != fmt.Sprint(want) {
			t.Errorf("transitions = %v, want %v", *transitions, want)
		}
	})

	t.Run("no remember deletes a saved token", func(t *testing.T) {
		m, store, _ := newTestManager(t, &stubAuth{token: "tok123"})
		_ = store.Save(ctx, credential.Record{Token: "old"})

		if err := m.Login(ctx, "a@b.com", "secret", false); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if _, err := store.Load(ctx); !errors.Is(err, errors.ErrNoSavedCredential) {
			t.Errorf("Load() after login without remember = %v, want ErrNoSavedCredential", err)
		}
	})
}

func TestManager_LoginFailure(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		err  error
		kind errors.Kind
	}{
		{"bad credentials", errors.NewAPIError("login", errors.KindAuth).WithStatus(401), errors.KindAuth},
		{"two factor", errors.NewAPIError("login", errors.KindTwoFactor).WithStatus(403), errors.KindTwoFactor},
		{"remote", errors.NewAPIError("login", errors.KindRemote).WithStatus(500), errors.KindRemote},
		{"transport", errors.NewAPIError("login", errors.KindTransport), errors.KindTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, store, _ := newTestManager(t, &stubAuth{err: tt.err})
			_ = store.Save(ctx, credential.Record{Token: "keep"})

			err := m.Login(ctx, "a@b.com", "pw", true)
			if errors.KindOf(err) != tt.kind {
				t.Fatalf("Login() kind = %v, want %v (err %v)", errors.KindOf(err), tt.kind, err)
			}
			if m.State() != LoggedOut {
				t.Errorf("State() = %v, want LoggedOut", m.State())
			}
			if _, ok := m.CurrentToken(); ok {
				t.Error("no token should be held after a failed login")
			}
			// A failed attempt leaves the saved credential alone.
			if rec, err := store.Load(ctx); err != nil || rec.Token != "keep" {
				t.Errorf("saved record = %+v, %v; want keep", rec, err)
			}
		})
	}
}

func TestManager_FailedReloginDropsOldCredential(t *testing.T) {
	ctx := context.Background()
	auth := &stubAuth{token: "tok123"}
	m, store, _ := newTestManager(t, auth)

	if err := m.Login(ctx, "a@b.com", "secret", true); err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	auth.mu.Lock()
	auth.token, auth.err = "", errors.NewAPIError("login", errors.KindAuth).WithStatus(401)
	auth.mu.Unlock()

	if err := m.Login(ctx, "other@b.com", "wrong", true); errors.KindOf(err) != errors.KindAuth {
		t.Fatalf("second Login() = %v, want an auth error", err)
	}
	if m.State() != LoggedOut {
		t.Errorf("State() = %v, want LoggedOut", m.State())
	}
	if _, err := store.Load(ctx); !errors.Is(err, errors.ErrNoSavedCredential) {
		t.Errorf("Load() after failed re-login = %v, want ErrNoSavedCredential", err)
	}
	if err := m.LoadSaved(ctx); !errors.Is(err, errors.ErrNoSavedCredential) {
		t.Errorf("LoadSaved() = %v, want ErrNoSavedCredential", err)
	}
}

func TestManager_LoginInProgress(t *testing.T) {
	ctx := context.Background()
	auth := &stubAuth{token: "tok", started: make(chan struct{}), release: make(chan struct{})}
	m, _, _ := newTestManager(t, auth)

	done := make(chan error, 1)
	go func() { done <- m.Login(ctx, "a@b.com", "pw", false) }()
	<-auth.started

	if m.State() != Authenticating {
		t.Errorf("State() during login = %v, want Authenticating", m.State())
	}
	if err := m.Login(ctx, "a@b.com", "pw", false); !errors.Is(err, errors.ErrLoginInProgress) {
		t.Errorf("second Login() = %v, want ErrLoginInProgress", err)
	}

	close(auth.release)
	if err := <-done; err != nil {
		t.Fatalf("first Login() error = %v", err)
	}
	if m.State() != Authenticated {
		t.Errorf("State() = %v, want Authenticated", m.State())
	}
}

func TestManager_LogoutDuringLogin(t *testing.T) {
	ctx := context.Background()
	auth := &stubAuth{token: "tok", started: make(chan struct{}), release: make(chan struct{})}
	m, store, _ := newTestManager(t, auth)

	done := make(chan error, 1)
	go func() { done <- m.Login(ctx, "a@b.com", "pw", true) }()
	<-auth.started

	if err := m.Logout(ctx); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	close(auth.release)

	if err := <-done; !errors.Is(err, ErrLoginAborted) {
		t.Errorf("Login() = %v, want ErrLoginAborted", err)
	}
	if m.State() != LoggedOut {
		t.Errorf("State() = %v, want LoggedOut", m.State())
	}
	if _, err := store.Load(ctx); !errors.Is(err, errors.ErrNoSavedCredential) {
		t.Error("an aborted login must not save its token")
	}
}

func TestManager_LoadSaved(t *testing.T) {
	ctx := context.Background()

	t.Run("adopts saved token without remote call", func(t *testing.T) {
		auth := &stubAuth{}
		m, store, _ := newTestManager(t, auth)
		_ = store.Save(ctx, credential.Record{Token: "saved"})

		if err := m.LoadSaved(ctx); err != nil {
			t.Fatalf("LoadSaved() error = %v", err)
		}
		if tok, ok := m.CurrentToken(); !ok || tok != "saved" {
			t.Errorf("CurrentToken() = %q, %v", tok, ok)
		}
		if auth.calls != 0 {
			t.Errorf("Login called %d times, want 0", auth.calls)
		}
	})

	t.Run("nothing saved", func(t *testing.T) {
		m, _, _ := newTestManager(t, &stubAuth{})
		if err := m.LoadSaved(ctx); !errors.Is(err, errors.ErrNoSavedCredential) {
			t.Errorf("LoadSaved() = %v, want ErrNoSavedCredential", err)
		}
		if m.State() != LoggedOut {
			t.Errorf("State() = %v, want LoggedOut", m.State())
		}
	})

	t.Run("already authenticated is a no-op", func(t *testing.T) {
		m, _, _ := newTestManager(t, &stubAuth{token: "live"})
		_ = m.Login(ctx, "a", "b", false)
		if err := m.LoadSaved(ctx); err != nil {
			t.Errorf("LoadSaved() = %v, want nil", err)
		}
		if tok, _ := m.CurrentToken(); tok != "live" {
			t.Errorf("token = %q, want live", tok)
		}
	})
}

func TestManager_Logout(t *testing.T) {
	ctx := context.Background()
	m, store, bus := newTestManager(t, &stubAuth{token: "tok"})
	_ = m.Login(ctx, "a", "b", true)
	transitions := recordTransitions(bus)

	if err := m.Logout(ctx); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if m.State() != LoggedOut {
		t.Errorf("State() = %v, want LoggedOut", m.State())
	}
	if _, err := store.Load(ctx); !errors.Is(err, errors.ErrNoSavedCredential) {
		t.Error("Logout must delete the saved credential")
	}
	if len(*transitions) != 1 || (*transitions)[0] != "authenticated->logged_out" {
		t.Errorf("transitions = %v", *transitions)
	}

	// Logging out again still succeeds and publishes nothing.
	if err := m.Logout(ctx); err != nil {
		t.Errorf("second Logout() = %v", err)
	}
	if len(*transitions) != 1 {
		t.Errorf("transitions after second logout = %v", *transitions)
	}
}

func TestManager_OnAuthRejected(t *testing.T) {
	ctx := context.Background()
	m, store, bus := newTestManager(t, &stubAuth{token: "tok"})
	_ = m.Login(ctx, "a", "b", true)
	transitions := recordTransitions(bus)

	var invalidated []string
	bus.Subscribe(event.TypeSessionInvalidated, func(e event.Event) {
		invalidated = append(invalidated, e.(event.SessionInvalidatedEvent).Reason)
	})

	if m.OnAuthRejected(ctx, "other-token", "fetch_guilds") {
		t.Error("rejection of a token that is not current should be ignored")
	}
	if m.State() != Authenticated {
		t.Fatalf("State() = %v, want Authenticated", m.State())
	}

	if !m.OnAuthRejected(ctx, "tok", "fetch_channels") {
		t.Fatal("OnAuthRejected() = false, want true")
	}
	if m.State() != LoggedOut {
		t.Errorf("State() = %v, want LoggedOut", m.State())
	}
	if _, ok := m.CurrentToken(); ok {
		t.Error("token should be cleared")
	}
	if _, err := store.Load(ctx); !errors.Is(err, errors.ErrNoSavedCredential) {
		t.Error("rejected credential should be deleted")
	}
	want := []string{"authenticated->invalid", "invalid->logged_out"}
	if fmt.Sprint(*transitions) != fmt.Sprint(want) {
		t.Errorf("transitions = %v, want %v", *transitions, want)
	}
	if len(invalidated) != 1 || invalidated[0] != "fetch_channels" {
		t.Errorf("invalidated events = %v", invalidated)
	}

	if m.OnAuthRejected(ctx, "tok", "again") {
		t.Error("second rejection should be a no-op")
	}
}

func TestManager_HandlersMayReadState(t *testing.T) {
	ctx := context.Background()
	m, _, bus := newTestManager(t, &stubAuth{token: "tok"})

	var seen []State
	bus.Subscribe(event.TypeSessionStateChanged, func(event.Event) {
		// Would deadlock if events were published under the manager's lock.
		seen = append(seen, m.State())
	})

	if err := m.Login(ctx, "a", "b", false); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 2 || seen[1] != Authenticated {
		t.Errorf("states seen by handler = %v", seen)
	}
}

func TestManager_Snapshot(t *testing.T) {
	m, _, _ := newTestManager(t, &stubAuth{token: "tok"})
	if snap := m.Snapshot(); snap.State != LoggedOut || snap.HasToken {
		t.Errorf("Snapshot() = %+v", snap)
	}
	_ = m.Login(context.Background(), "a", "b", false)
	if snap := m.Snapshot(); snap.State != Authenticated || !snap.HasToken {
		t.Errorf("Snapshot() = %+v", snap)
	}
}
