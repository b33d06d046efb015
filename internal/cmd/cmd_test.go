package cmd

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/testutil/fakeapi"
)

// executeCommand runs the root command with args and stdin, returning
// captured output.
func executeCommand(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	// Flags are package state; reset them between runs.
	cfgFile = ""
	loginEmail = ""
	loginRemember = true
	mockserverAddr = "127.0.0.1:8089"

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(new(bytes.Buffer))
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

type env struct {
	srv       *fakeapi.Server
	configDir string
}

// setupEnv points the client at a fresh fake API and an empty config dir.
func setupEnv(t *testing.T) *env {
	t.Helper()
	srv := fakeapi.New(fakeapi.DefaultFixture())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.CloseClientConnections()
		ts.Close()
	})

	home := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("PARLEY_API_BASE_URL", ts.URL)
	t.Setenv("PARLEY_LOGGING_ENABLED", "false")
	return &env{srv: srv, configDir: filepath.Join(home, "parley")}
}

func (e *env) tokenFile() string {
	return filepath.Join(e.configDir, "token.json")
}

func login(t *testing.T) {
	t.Helper()
	out, err := executeCommand(t, "secret\n", "login", "--email", "a@b.com")
	require.NoError(t, err)
	require.Contains(t, out, "Logged in as alice#0001")
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "parley" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "parley")
	}

	expected := []string{"login", "logout", "whoami", "guilds", "channels", "messages", "send", "friend", "friends", "tui", "config", "mockserver"}
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range expected {
		if !names[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestLogin(t *testing.T) {
	t.Run("saves the token", func(t *testing.T) {
		e := setupEnv(t)
		login(t)
		assert.FileExists(t, e.tokenFile())
	})

	t.Run("prompts for email", func(t *testing.T) {
		e := setupEnv(t)
		out, err := executeCommand(t, "a@b.com\nsecret", "login")
		require.NoError(t, err)
		assert.Contains(t, out, "Logged in as alice#0001")
		assert.FileExists(t, e.tokenFile())
	})

	t.Run("without remember", func(t *testing.T) {
		e := setupEnv(t)
		out, err := executeCommand(t, "secret\n", "login", "--email", "a@b.com", "--remember=false")
		require.NoError(t, err)
		assert.Contains(t, out, "Token not saved")
		assert.NoFileExists(t, e.tokenFile())
	})

	t.Run("wrong password", func(t *testing.T) {
		e := setupEnv(t)
		_, err := executeCommand(t, "nope\n", "login", "--email", "a@b.com")
		require.Error(t, err)
		assert.Equal(t, "Invalid email or password.", err.Error())
		assert.True(t, errors.Is(err, errors.ErrAuthRejected))
		assert.NoFileExists(t, e.tokenFile())
	})

	t.Run("empty password", func(t *testing.T) {
		e := setupEnv(t)
		_, err := executeCommand(t, "\n", "login", "--email", "a@b.com")
		require.Error(t, err)
		assert.Equal(t, "Email and password cannot be empty!", err.Error())
		assert.Zero(t, e.srv.CallCount(fakeapi.RouteLogin))
	})

	t.Run("no input", func(t *testing.T) {
		setupEnv(t)
		_, err := executeCommand(t, "", "login")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read email")
	})
}

func TestOneShotCommands(t *testing.T) {
	e := setupEnv(t)
	login(t)

	out, err := executeCommand(t, "", "whoami")
	require.NoError(t, err)
	assert.Equal(t, "alice#0001 (id 100)\n", out)

	out, err = executeCommand(t, "", "guilds")
	require.NoError(t, err)
	assert.Contains(t, out, "Guild1")
	assert.Contains(t, out, "Guild2")

	out, err = executeCommand(t, "", "channels", "guild2")
	require.NoError(t, err)
	assert.Contains(t, out, "# lobby")
	assert.Contains(t, out, "♪ Voice")
	assert.Contains(t, out, "· Info")

	out, err = executeCommand(t, "", "messages", "1", "#general")
	require.NoError(t, err)
	assert.Equal(t, "alice: hello\nbob: welcome!\n", out)

	out, err = executeCommand(t, "", "send", "Guild1", "10", "hi", "there")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Sent.\n"))
	assert.True(t, strings.HasSuffix(out, "alice: hi there\n"), "newest message last: %q", out)
	assert.Equal(t, "hi there", e.srv.Messages("10")[0].Content)

	out, err = executeCommand(t, "", "friends")
	require.NoError(t, err)
	assert.Equal(t, "bob#0042\n", out)

	out, err = executeCommand(t, "", "friend", "dave#1234")
	require.NoError(t, err)
	assert.Equal(t, "Friend request sent to dave#1234\n", out)
	require.Len(t, e.srv.FriendRequests(), 1)
	assert.Equal(t, "dave", e.srv.FriendRequests()[0].Username)

	// Every command after login reused the saved token.
	assert.Equal(t, 1, e.srv.CallCount(fakeapi.RouteLogin))
}

func TestSelectionErrors(t *testing.T) {
	setupEnv(t)
	login(t)

	_, err := executeCommand(t, "", "channels", "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidSelection))

	// Info is a category and cannot be opened.
	_, err = executeCommand(t, "", "messages", "2", "Info")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidSelection))

	_, err = executeCommand(t, "", "send", "1", "10", "   ")
	require.Error(t, err)
	assert.Equal(t, "Message cannot be empty!", err.Error())
}

func TestNotLoggedIn(t *testing.T) {
	setupEnv(t)
	for _, args := range [][]string{{"whoami"}, {"guilds"}, {"friends"}, {"channels", "1"}} {
		_, err := executeCommand(t, "", args...)
		require.Error(t, err, args)
		assert.True(t, errors.Is(err, errors.ErrNoSavedCredential), args)
		assert.Contains(t, err.Error(), "parley login")
	}
}

func TestSessionExpired(t *testing.T) {
	e := setupEnv(t)
	login(t)
	e.srv.RevokeTokens()

	_, err := executeCommand(t, "", "guilds")
	require.Error(t, err)
	assert.Equal(t, "Session expired, please log in again.", err.Error())
	assert.NoFileExists(t, e.tokenFile(), "a rejected token is forgotten")
}

func TestLogout(t *testing.T) {
	e := setupEnv(t)
	login(t)

	out, err := executeCommand(t, "", "logout")
	require.NoError(t, err)
	assert.Equal(t, "Logged out.\n", out)
	assert.NoFileExists(t, e.tokenFile())

	_, err = executeCommand(t, "", "whoami")
	assert.Error(t, err)
}

func TestInvalidConfig(t *testing.T) {
	setupEnv(t)
	t.Setenv("PARLEY_API_TIMEOUT_SECONDS", "0")

	_, err := executeCommand(t, "", "guilds")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestConfigCommands(t *testing.T) {
	e := setupEnv(t)
	configFile := filepath.Join(e.configDir, "config.yaml")

	out, err := executeCommand(t, "", "config", "path")
	require.NoError(t, err)
	assert.Contains(t, out, configFile)

	out, err = executeCommand(t, "", "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, configFile)
	data, err := os.ReadFile(configFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "base_url: https://discord.com/api/v9")

	_, err = executeCommand(t, "", "config", "init")
	assert.Error(t, err, "init must not overwrite")

	out, err = executeCommand(t, "", "config", "set", "logging.level", "debug")
	require.NoError(t, err)
	assert.Contains(t, out, "Set logging.level = debug")

	out, err = executeCommand(t, "", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "level: debug")
	// The environment override is shown but was not persisted.
	assert.Contains(t, out, "enabled: false")
	data, err = os.ReadFile(configFile)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "127.0.0.1")

	_, err = executeCommand(t, "", "config", "set", "logging.level", "loud")
	assert.Error(t, err)
	_, err = executeCommand(t, "", "config", "set", "api.timeout_seconds", "soon")
	assert.Error(t, err)
	_, err = executeCommand(t, "", "config", "set", "no.such_key", "1")
	assert.Error(t, err)
}

func TestConfigFlag(t *testing.T) {
	setupEnv(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tui:\n  message_width: 42\n"), 0644))

	out, err := executeCommand(t, "", "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "# Config file: "+path)
	assert.Contains(t, out, "message_width: 42")
}

func TestMockServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	cmd := &cobra.Command{}
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	go func() {
		done <- serveMock(ctx, ln, newMockRouter(fakeapi.New(fakeapi.DefaultFixture())), cmd)
	}()

	base := "http://" + ln.Addr().String()
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(base + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = client.Get(base + mockPrefix + "/users/@me")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, err = client.Get(base + "/users/@me")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "the API lives under the prefix only")

	cancel()
	require.NoError(t, <-done)
	assert.Contains(t, out.String(), base+mockPrefix)
}

func TestResolve(t *testing.T) {
	type item struct{ id, name string }
	items := []item{{"1", "General"}, {"2", "1"}}
	key := func(i item) (string, string) { return i.id, i.name }

	tests := []struct {
		ref  string
		want string
	}{
		{"1", "1"}, // an ID beats a name
		{"general", "1"},
		{"#General", "1"},
		{"missing", "missing"},
	}
	for _, tt := range tests {
		if got := resolve(tt.ref, items, key); got != tt.want {
			t.Errorf("resolve(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestPresent(t *testing.T) {
	assert.NoError(t, present(nil))

	plain := errors.New("boom")
	assert.Equal(t, plain, present(plain))

	wrapped := present(errors.NewInputError("message"))
	assert.Equal(t, "Message cannot be empty!", wrapped.Error())
	assert.True(t, errors.Is(wrapped, errors.ErrEmptyInput))
}
