package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/parley/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify parley configuration",
	Long: `View or modify parley configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  parley config set api.base_url http://127.0.0.1:8089/api/v9
  parley config set credentials.backend keyring
  parley config set logging.level debug

Valid keys:
  api.base_url              - REST root of the chat service
  api.timeout_seconds       - Request timeout (1-300)
  api.user_agent            - User-Agent header
  credentials.backend       - Where a remembered token is kept (file/keyring)
  credentials.path          - Token file for the file backend
  credentials.keyring_service - Service name for the keyring backend
  logging.enabled           - Write a debug log (true/false)
  logging.level             - debug, info, warn or error
  logging.dir               - Log directory
  logging.max_size_mb       - Rotate the log at this size (0 = never)
  logging.max_backups       - Rotated logs to keep
  logging.compress          - Gzip rotated logs (true/false)
  tui.message_width         - Wrap messages at this width (0 = pane width)
  tui.show_channel_kinds    - Mark voice and other channels (true/false)`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/parley/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

// configKeys maps every settable key to its value type.
var configKeys = map[string]string{
	"api.base_url":                "string",
	"api.timeout_seconds":         "int",
	"api.user_agent":              "string",
	"credentials.backend":         "string",
	"credentials.path":            "string",
	"credentials.keyring_service": "string",
	"logging.enabled":             "bool",
	"logging.level":               "string",
	"logging.dir":                 "string",
	"logging.max_size_mb":         "int",
	"logging.max_backups":         "int",
	"logging.compress":            "bool",
	"tui.message_width":           "int",
	"tui.show_channel_kinds":      "bool",
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	out := cmd.OutOrStdout()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintln(out, "# Config file: (none - using defaults)")
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	_, err = out.Write(data)
	return err
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key := args[0]
	value := args[1]

	keyType, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown configuration key: %s\nRun 'parley config set --help' to see valid keys", key)
	}

	var typedValue any
	switch keyType {
	case "string":
		typedValue = value
	case "bool":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		typedValue = b
	case "int":
		intVal, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: expected integer", key)
		}
		typedValue = intVal
	}

	// Start from the file on disk so flags and env overrides are not
	// persisted along with the new value.
	configFile := config.ConfigFile()
	if cfgFile != "" {
		configFile = cfgFile
	}
	settings, err := readConfigFile(configFile)
	if err != nil {
		return err
	}

	v := viper.New()
	if err := v.MergeConfigMap(settings); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	v.Set(key, typedValue)

	// Validate the result before writing it.
	cfg := config.Default()
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return config.ValidationErrors(errs)
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

// readConfigFile returns the YAML settings in path, or none when it does
// not exist.
func readConfigFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	settings := map[string]any{}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return settings, nil
}

const configHeader = `# parley configuration
#
# Every key can also be set from the environment with the PARLEY_ prefix,
# e.g. PARLEY_API_BASE_URL or PARLEY_LOGGING_LEVEL.
#
# credentials.backend: file | keyring
# logging.level:       debug | info | warn | error

`

func runConfigInit(cmd *cobra.Command, args []string) error {
	configFile := config.ConfigFile()
	if cfgFile != "" {
		configFile = cfgFile
	}

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'parley config set' to modify values", configFile)
	}
	if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config.Default())
	if err != nil {
		return fmt.Errorf("failed to render default configuration: %w", err)
	}
	if err := os.WriteFile(configFile, append([]byte(configHeader), data...), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	fmt.Fprintln(out, "Edit this file to customize parley's behavior.")
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if viper.ConfigFileUsed() != "" {
		if _, err := os.Stat(viper.ConfigFileUsed()); err == nil {
			fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
		} else {
			fmt.Fprintf(out, "Config file: %s (not created)\n", viper.ConfigFileUsed())
		}
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", config.ConfigFile())
	}

	fmt.Fprintln(out, "\nEnvironment variables: PARLEY_* (e.g., PARLEY_API_BASE_URL)")
	return nil
}
