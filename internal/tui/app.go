// Package tui is the interactive terminal client: a login form, then
// guild, channel and message panes with a composer line.
package tui

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/parley/internal/event"
	"github.com/Iron-Ham/parley/internal/logging"
	tuimsg "github.com/Iron-Ham/parley/internal/tui/msg"
)

// eventBuffer bounds the bus messages queued for the update loop. Further
// messages are dropped until the loop catches up.
const eventBuffer = 16

// App wraps the Bubbletea program
type App struct {
	program *tea.Program
	model   Model
	bus     *event.Bus
	events  chan tea.Msg
	logger  *logging.Logger
}

// New creates a new TUI application. bus is the bus shared with the
// session manager; session invalidations on it send the user back to the
// login form.
func New(ctx context.Context, actions tuimsg.Actions, bus *event.Bus, logger *logging.Logger, opts Options) *App {
	if logger == nil {
		logger = logging.NopLogger()
	}
	events := make(chan tea.Msg, eventBuffer)
	return &App{
		model:  NewModel(ctx, actions, events, opts),
		bus:    bus,
		events: events,
		logger: logger.WithComponent("tui"),
	}
}

// forward returns a bus handler that queues msg without blocking the
// publisher.
func (a *App) forward(toMsg func(event.Event) tea.Msg) event.Handler {
	return func(e event.Event) {
		select {
		case a.events <- toMsg(e):
		default:
			a.logger.Warn("dropped event, update loop is behind", "event_type", e.EventType())
		}
	}
}

// attach forwards session invalidations from the bus to the update loop
// and returns the function that detaches it.
func (a *App) attach() func() {
	if a.bus == nil {
		return func() {}
	}
	id := a.bus.Subscribe(event.TypeSessionInvalidated, a.forward(func(e event.Event) tea.Msg {
		reason := ""
		if inv, ok := e.(event.SessionInvalidatedEvent); ok {
			reason = inv.Reason
		}
		return tuimsg.SessionEndedMsg{Reason: reason}
	}))
	return func() { a.bus.Unsubscribe(id) }
}

// Run starts the TUI application and blocks until it exits.
func (a *App) Run() error {
	defer a.attach()()

	a.program = tea.NewProgram(
		a.model,
		tea.WithAltScreen(),
	)

	// Quit cleanly on termination signals so the terminal is restored.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		if _, ok := <-sigChan; ok && a.program != nil {
			a.program.Send(tea.Quit())
		}
	}()

	a.logger.Info("tui started")
	_, err := a.program.Run()

	signal.Stop(sigChan)
	close(sigChan)

	if err != nil {
		a.logger.Error("tui exited with error", "error", err)
	}
	return err
}
