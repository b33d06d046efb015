package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete parley configuration
type Config struct {
	API         APIConfig         `mapstructure:"api" yaml:"api"`
	Credentials CredentialsConfig `mapstructure:"credentials" yaml:"credentials"`
	Logging     LoggingConfig     `mapstructure:"logging" yaml:"logging"`
	TUI         TUIConfig         `mapstructure:"tui" yaml:"tui"`
}

// APIConfig controls how the client talks to the chat service
type APIConfig struct {
	// BaseURL is the REST root, without a trailing slash
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// TimeoutSeconds bounds every request, including body read
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	// UserAgent is sent on every request
	UserAgent string `mapstructure:"user_agent" yaml:"user_agent"`
}

// Timeout returns the request timeout as a time.Duration
func (c *APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// CredentialsConfig controls where a remembered token is kept
type CredentialsConfig struct {
	// Backend is "file" or "keyring"
	Backend string `mapstructure:"backend" yaml:"backend"`
	// Path is the token file for the file backend. Empty means
	// <config dir>/token.json. A leading ~ is expanded.
	Path string `mapstructure:"path" yaml:"path"`
	// KeyringService is the service name used with the OS keyring
	KeyringService string `mapstructure:"keyring_service" yaml:"keyring_service"`
}

// LoggingConfig controls debug logging
type LoggingConfig struct {
	// Enabled turns on the JSON log file (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is the log directory. Empty means <config dir>/logs.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// MaxSizeMB is the size at which parley.log rotates (0 = never)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is how many rotated files to keep
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
	// Compress gzips rotated files
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// TUIConfig controls the terminal UI
type TUIConfig struct {
	// MessageWidth caps the rendered width of a message line (0 = pane width)
	MessageWidth int `mapstructure:"message_width" yaml:"message_width"`
	// ShowChannelKinds prefixes channels with # or a voice marker
	ShowChannelKinds bool `mapstructure:"show_channel_kinds" yaml:"show_channel_kinds"`
}

// Credential backends
const (
	BackendFile    = "file"
	BackendKeyring = "keyring"
)

// DefaultBaseURL is the public REST endpoint of the chat service.
const DefaultBaseURL = "https://discord.com/api/v9"

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        DefaultBaseURL,
			TimeoutSeconds: 15,
			UserAgent:      "parley/1.0",
		},
		Credentials: CredentialsConfig{
			Backend:        BackendFile,
			Path:           "", // Empty means <config dir>/token.json
			KeyringService: "parley",
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Dir:        "",
			MaxSizeMB:  5,
			MaxBackups: 2,
			Compress:   false,
		},
		TUI: TUIConfig{
			MessageWidth:     0,
			ShowChannelKinds: true,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("api.base_url", defaults.API.BaseURL)
	viper.SetDefault("api.timeout_seconds", defaults.API.TimeoutSeconds)
	viper.SetDefault("api.user_agent", defaults.API.UserAgent)

	viper.SetDefault("credentials.backend", defaults.Credentials.Backend)
	viper.SetDefault("credentials.path", defaults.Credentials.Path)
	viper.SetDefault("credentials.keyring_service", defaults.Credentials.KeyringService)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	viper.SetDefault("tui.message_width", defaults.TUI.MessageWidth)
	viper.SetDefault("tui.show_channel_kinds", defaults.TUI.ShowChannelKinds)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "parley")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".parley"
	}
	return filepath.Join(home, ".config", "parley")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// CredentialsPath returns the token file location, applying the default
// and expanding a leading ~.
func (c *Config) CredentialsPath() string {
	if c.Credentials.Path == "" {
		return filepath.Join(ConfigDir(), "token.json")
	}
	return expandHome(c.Credentials.Path)
}

// LogDir returns the log directory, applying the default and expanding ~.
func (c *Config) LogDir() string {
	if c.Logging.Dir == "" {
		return filepath.Join(ConfigDir(), "logs")
	}
	return expandHome(c.Logging.Dir)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// ValidBackends returns the list of valid credential backends
func ValidBackends() []string {
	return []string{BackendFile, BackendKeyring}
}
