package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Iron-Ham/parley/internal/api"
	"github.com/Iron-Ham/parley/internal/config"
	"github.com/Iron-Ham/parley/internal/credential"
	"github.com/Iron-Ham/parley/internal/dispatch"
	"github.com/Iron-Ham/parley/internal/errors"
	"github.com/Iron-Ham/parley/internal/event"
	"github.com/Iron-Ham/parley/internal/logging"
	"github.com/Iron-Ham/parley/internal/model"
	"github.com/Iron-Ham/parley/internal/nav"
	"github.com/Iron-Ham/parley/internal/session"
)

// app is the wired client shared by every command.
type app struct {
	cfg    *config.Config
	logger *logging.Logger
	bus    *event.Bus
	cache  *nav.Cache
	d      *dispatch.Dispatcher
}

// newApp loads the configuration and wires the gateway, session manager,
// navigation cache and dispatcher. Callers must Close it.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := CreateLogger(cfg)
	store, err := credential.Open(cfg)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	client := api.New(cfg.API.BaseURL,
		api.WithTimeout(cfg.API.Timeout()),
		api.WithUserAgent(cfg.API.UserAgent),
		api.WithLogger(logger),
	)
	bus := event.NewBus(logger)
	sess := session.NewManager(client, store, bus, logger)
	cache := nav.NewCache(bus, logger)

	return &app{
		cfg:    cfg,
		logger: logger,
		bus:    bus,
		cache:  cache,
		d:      dispatch.New(client, sess, cache, dispatch.WithLogger(logger)),
	}, nil
}

// Close detaches the cache and flushes the log.
func (a *app) Close() {
	a.cache.Detach()
	_ = a.logger.Close()
}

// restore adopts the saved credential. One-shot commands run in a fresh
// process, so this is how they find the session "parley login" left.
func (a *app) restore(ctx context.Context) error {
	err := a.d.RestoreSession(ctx)
	if errors.Is(err, errors.ErrNoSavedCredential) {
		return fmt.Errorf("not logged in, run 'parley login' first: %w", err)
	}
	return err
}

// openGuild restores the session and selects the guild named or
// identified by ref.
func (a *app) openGuild(ctx context.Context, ref string) ([]model.Channel, error) {
	if err := a.restore(ctx); err != nil {
		return nil, err
	}
	guilds, err := a.d.BrowseGuilds(ctx)
	if err != nil {
		return nil, err
	}
	return a.d.OpenGuild(ctx, resolve(ref, guilds, func(g model.Guild) (string, string) { return g.ID, g.Name }))
}

// openChannel selects guildRef, then channelRef within it.
func (a *app) openChannel(ctx context.Context, guildRef, channelRef string) ([]model.Message, error) {
	channels, err := a.openGuild(ctx, guildRef)
	if err != nil {
		return nil, err
	}
	return a.d.OpenChannel(ctx, resolve(channelRef, channels, func(c model.Channel) (string, string) { return c.ID, c.Name }))
}

// resolve maps ref to an ID. An exact ID wins, then a case-insensitive
// name; anything else is returned as is for the dispatcher to reject.
func resolve[T any](ref string, items []T, key func(T) (id, name string)) string {
	for _, it := range items {
		if id, _ := key(it); id == ref {
			return id
		}
	}
	ref = strings.TrimPrefix(ref, "#")
	for _, it := range items {
		if id, name := key(it); strings.EqualFold(name, ref) {
			return id
		}
	}
	return ref
}

// CreateLogger builds the file logger described by cfg. Logging problems
// never stop the client; they fall back to a no-op logger.
func CreateLogger(cfg *config.Config) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}

	rotationConfig := logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	}

	logger, err := logging.NewLoggerWithRotation(cfg.LogDir(), cfg.Logging.Level, rotationConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to create logger: %v\n", err)
		return logging.NopLogger()
	}
	return logger
}

// userError shows err as its status-line text while keeping it matchable
// with errors.Is.
type userError struct{ err error }

func (e userError) Error() string { return errors.UserMessage(e.err) }
func (e userError) Unwrap() error { return e.err }

// present wraps taxonomy errors for display. Other errors pass through.
func present(err error) error {
	if err == nil {
		return nil
	}
	if errors.KindOf(err) == errors.KindUnknown {
		return err
	}
	return userError{err}
}
