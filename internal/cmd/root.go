// Package cmd is the parley command line: one-shot commands that restore
// the saved session, run one action and print the result, plus the
// interactive TUI.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/parley/internal/config"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Terminal client for a Discord-style chat service",
	Long: `parley logs in to a Discord-style chat service and lets you browse
guilds, channels and message history, send messages and manage friends.

Run without a subcommand to start the interactive TUI.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is $HOME/.config/parley/config.yaml)")
}

func initConfig() {
	// Start clean so repeated executions in one process do not share state.
	viper.Reset()

	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("PARLEY")
	// Replace dots with underscores for nested keys in env vars
	// e.g., PARLEY_API_BASE_URL for api.base_url
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
