package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/parley/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Start the interactive client",
	Long: `Start the interactive client.

A saved session is restored automatically; otherwise the login form is
shown. This is also what running parley without a subcommand does.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	a.logger.Info("parley started", "base_url", a.cfg.API.BaseURL)
	app := tui.New(cmd.Context(), a.d, a.bus, a.logger, tui.Options{
		MessageWidth:     a.cfg.TUI.MessageWidth,
		ShowChannelKinds: a.cfg.TUI.ShowChannelKinds,
		Restore:          true,
	})
	return app.Run()
}
