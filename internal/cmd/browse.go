package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Iron-Ham/parley/internal/model"
	"github.com/Iron-Ham/parley/internal/tui/styles"
	"github.com/Iron-Ham/parley/internal/util"
)

var guildsCmd = &cobra.Command{
	Use:   "guilds",
	Short: "List the guilds you are a member of",
	Args:  cobra.NoArgs,
	RunE:  runGuilds,
}

var channelsCmd = &cobra.Command{
	Use:   "channels <guild>",
	Short: "List a guild's channels",
	Long: `List a guild's channels.

<guild> is a guild ID or name. Channels marked # are text channels and ♪
voice channels; the rest cannot be opened.`,
	Args: cobra.ExactArgs(1),
	RunE: runChannels,
}

var messagesCmd = &cobra.Command{
	Use:   "messages <guild> <channel>",
	Short: "Show a channel's recent messages, oldest first",
	Args:  cobra.ExactArgs(2),
	RunE:  runMessages,
}

var sendCmd = &cobra.Command{
	Use:   "send <guild> <channel> <text>...",
	Short: "Send a message to a channel",
	Long: `Send a message to a channel.

The remaining arguments are joined with spaces. Surrounding whitespace is
trimmed and an empty message is rejected.`,
	Args: cobra.MinimumNArgs(3),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(guildsCmd)
	rootCmd.AddCommand(channelsCmd)
	rootCmd.AddCommand(messagesCmd)
	rootCmd.AddCommand(sendCmd)
}

func runGuilds(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if err := a.restore(ctx); err != nil {
		return present(err)
	}
	guilds, err := a.d.BrowseGuilds(ctx)
	if err != nil {
		return present(err)
	}

	out := cmd.OutOrStdout()
	if len(guilds) == 0 {
		fmt.Fprintln(out, "No guilds.")
		return nil
	}
	for _, g := range guilds {
		fmt.Fprintf(out, "%-20s %s\n", g.ID, g.Name)
	}
	return nil
}

func runChannels(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	channels, err := a.openGuild(cmd.Context(), args[0])
	if err != nil {
		return present(err)
	}

	out := cmd.OutOrStdout()
	if len(channels) == 0 {
		fmt.Fprintln(out, "No channels.")
		return nil
	}
	for _, c := range channels {
		fmt.Fprintf(out, "%-20s %s %s\n", c.ID, styles.ChannelIcon(c.Kind), c.Name)
	}
	return nil
}

func runMessages(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	msgs, err := a.openChannel(cmd.Context(), args[0], args[1])
	if err != nil {
		return present(err)
	}
	printMessages(cmd.OutOrStdout(), msgs, outputWidth(cmd.OutOrStdout(), a.cfg.TUI.MessageWidth))
	return nil
}

func runSend(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if _, err := a.openChannel(ctx, args[0], args[1]); err != nil {
		return present(err)
	}
	msgs, err := a.d.SendMessage(ctx, strings.Join(args[2:], " "))
	if err != nil {
		return present(err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Sent.")
	printMessages(out, msgs, outputWidth(out, a.cfg.TUI.MessageWidth))
	return nil
}

// printMessages writes msgs (newest first, as fetched) oldest first, one
// line each, cut to width cells when width is positive.
func printMessages(w io.Writer, msgs []model.Message, width int) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, "No messages.")
		return
	}
	for i := len(msgs) - 1; i >= 0; i-- {
		line := msgs[i].AuthorName + ": " + util.SingleLine(msgs[i].Content)
		if width > 0 {
			line = util.TruncateString(line, width)
		}
		fmt.Fprintln(w, line)
	}
}

// outputWidth is the configured message width, else the terminal width
// when w is a terminal, else 0 for no limit.
func outputWidth(w io.Writer, configured int) int {
	if configured > 0 {
		return configured
	}
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil {
			return width
		}
	}
	return 0
}
