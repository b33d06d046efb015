package config

import (
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("Default config should be valid, got %d errors: %v", len(errs), errs)
	}
}

func TestConfig_Validate_API(t *testing.T) {
	tests := []struct {
		name     string
		baseURL  string
		timeout  int
		hasError bool
	}{
		{"default", DefaultBaseURL, 15, false},
		{"local http", "http://127.0.0.1:8080", 1, false},
		{"max timeout", DefaultBaseURL, MaxTimeoutSeconds, false},
		{"relative url", "/api/v9", 15, true},
		{"no scheme", "discord.com/api", 15, true},
		{"ftp scheme", "ftp://example.com", 15, true},
		{"empty url", "", 15, true},
		{"zero timeout", DefaultBaseURL, 0, true},
		{"timeout too large", DefaultBaseURL, MaxTimeoutSeconds + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.API.BaseURL = tt.baseURL
			cfg.API.TimeoutSeconds = tt.timeout

			errs := cfg.validateAPI()
			if (len(errs) > 0) != tt.hasError {
				t.Errorf("validateAPI() errors = %v, want error: %v", errs, tt.hasError)
			}
		})
	}
}

func TestConfig_Validate_Credentials(t *testing.T) {
	tests := []struct {
		name     string
		backend  string
		service  string
		hasError bool
	}{
		{"file", BackendFile, "", false},
		{"keyring", BackendKeyring, "parley", false},
		{"keyring without service", BackendKeyring, "  ", true},
		{"unknown backend", "vault", "parley", true},
		{"empty backend", "", "parley", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Credentials.Backend = tt.backend
			cfg.Credentials.KeyringService = tt.service

			errs := cfg.validateCredentials()
			if (len(errs) > 0) != tt.hasError {
				t.Errorf("validateCredentials() errors = %v, want error: %v", errs, tt.hasError)
			}
		})
	}
}

func TestConfig_Validate_Logging(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		maxSize    int
		maxBackups int
		hasError   bool
	}{
		{"defaults", "info", 5, 2, false},
		{"upper case level", "DEBUG", 5, 2, false},
		{"empty level", "", 5, 2, false},
		{"zero sizes", "warn", 0, 0, false},
		{"bad level", "trace", 5, 2, true},
		{"negative size", "info", -1, 2, true},
		{"negative backups", "info", 5, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Logging.Level = tt.level
			cfg.Logging.MaxSizeMB = tt.maxSize
			cfg.Logging.MaxBackups = tt.maxBackups

			errs := cfg.validateLogging()
			if (len(errs) > 0) != tt.hasError {
				t.Errorf("validateLogging() errors = %v, want error: %v", errs, tt.hasError)
			}
		})
	}
}

func TestConfig_Validate_TUI(t *testing.T) {
	cfg := Default()
	cfg.TUI.MessageWidth = -5
	errs := cfg.Validate()
	if len(errs) != 1 || errs[0].Field != "tui.message_width" {
		t.Errorf("Validate() = %v, want a single tui.message_width error", errs)
	}
}

func TestConfig_Validate_CollectsAll(t *testing.T) {
	cfg := Default()
	cfg.API.TimeoutSeconds = 0
	cfg.Credentials.Backend = "nope"
	cfg.Logging.Level = "loud"

	if errs := cfg.Validate(); len(errs) != 3 {
		t.Errorf("Validate() returned %d errors, want 3: %v", len(errs), errs)
	}
}
