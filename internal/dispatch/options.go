package dispatch

import (
	"github.com/google/uuid"

	"github.com/Iron-Ham/parley/internal/logging"
)

// Option configures a Dispatcher.
type Option func(*config)

type config struct {
	logger *logging.Logger
	newID  func() string
}

func defaultConfig() *config {
	return &config{
		logger: logging.NopLogger(),
		newID:  uuid.NewString,
	}
}

// WithLogger sets the logger. Every action logs under its own action_id.
func WithLogger(logger *logging.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithIDGenerator replaces the action ID generator (uuid by default).
func WithIDGenerator(fn func() string) Option {
	return func(c *config) {
		if fn != nil {
			c.newID = fn
		}
	}
}
