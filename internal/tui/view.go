package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/parley/internal/model"
	"github.com/Iron-Ham/parley/internal/tui/keymap"
	"github.com/Iron-Ham/parley/internal/tui/styles"
	"github.com/Iron-Ham/parley/internal/util"
)

// Layout constants
const (
	GuildPaneWidth   = 24 // outer width including the border
	ChannelPaneWidth = 26

	// header (2) + input box (3) + status bar + help bar
	ChromeHeight = 7
	// border (2) + horizontal padding (2)
	paneFrame      = 4
	minPaneContent = 10
)

// View renders the model.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}
	if !m.ready {
		return "Loading..."
	}
	if m.screen == screenLogin {
		return m.loginView()
	}
	return m.mainView()
}

func (m Model) loginView() string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("parley"))
	b.WriteString("\n")
	b.WriteString(fieldLine("Email", m.email.View(), m.loginField == fieldEmail))
	b.WriteString("\n")
	b.WriteString(fieldLine("Password", m.password.View(), m.loginField == fieldPassword))
	b.WriteString("\n\n")

	check := "[ ]"
	if m.remember {
		check = styles.Secondary.Render("[x]")
	}
	b.WriteString(check + " " + styles.Muted.Render("Remember me"))

	if line := m.statusLine(); line != "" {
		b.WriteString("\n\n")
		b.WriteString(line)
	}

	box := styles.LoginBox.Render(b.String())
	return lipgloss.Place(m.width, max(m.height-1, 0), lipgloss.Center, lipgloss.Center, box) +
		"\n" + m.helpView()
}

func fieldLine(label, input string, focused bool) string {
	style := styles.FieldLabel
	if focused {
		style = styles.FieldLabelFocused
	}
	return style.Render(label) + input
}

func (m Model) mainView() string {
	var b strings.Builder

	title := "parley"
	if m.view.Self != nil {
		title += " · " + m.view.Self.Tag()
	}
	b.WriteString(styles.Header.Width(max(m.width, 1)).Render(title))
	b.WriteString("\n")

	height := m.paneHeight()
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		m.paneStyle(paneGuilds, GuildPaneWidth).Height(height).Render(m.guildPane(height)),
		m.paneStyle(paneChannels, ChannelPaneWidth).Height(height).Render(m.channelPane(height)),
		m.paneStyle(paneMessages, m.messagePaneWidth()).Height(height).Render(m.messagePane()),
	))
	b.WriteString("\n")
	b.WriteString(m.inputView())
	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Width(max(m.width, 1)).Render(util.TruncateANSI(m.statusLine(), max(m.width-2, 1))))
	b.WriteString("\n")
	b.WriteString(m.helpView())
	return b.String()
}

// paneStyle returns the frame of a pane whose outer width is width.
func (m Model) paneStyle(p pane, width int) lipgloss.Style {
	style := styles.Pane
	if m.focus == p && m.mode == keymap.ModeBrowse {
		style = styles.PaneFocused
	}
	return style.Width(width - 2)
}

type listItem struct {
	label    string
	selected bool
	disabled bool
}

// renderList draws items into at most height rows, scrolled so the cursor
// stays visible.
func renderList(items []listItem, cursor int, focused bool, width, height int) []string {
	if height <= 0 {
		return nil
	}
	start := 0
	if cursor >= height {
		start = cursor - height + 1
	}
	end := min(start+height, len(items))

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		it := items[i]
		marker := "  "
		if focused && i == cursor {
			marker = "› "
		}
		label := util.TruncateANSI(marker+it.label, max(width-2, 2))

		style := styles.Item
		switch {
		case it.selected:
			style = styles.ItemSelected
		case focused && i == cursor:
			style = styles.ItemCursor
		case it.disabled:
			style = styles.ItemDisabled
		}
		lines = append(lines, style.Render(label))
	}
	return lines
}

func (m Model) guildPane(height int) string {
	lines := []string{styles.PaneTitle.Render("Guilds")}

	guilds := m.view.Nav.Guilds
	items := make([]listItem, len(guilds))
	for i, g := range guilds {
		items[i] = listItem{label: g.Name, selected: g.ID == m.view.Nav.SelectedGuildID}
	}

	listHeight := height - 1
	var friendLines []string
	if len(m.friends) > 0 {
		friendLines = append(friendLines, "", styles.PaneTitle.Render("Friends"))
		for _, f := range m.friends {
			friendLines = append(friendLines, styles.Muted.Render("  "+util.TruncateString(f.Tag(), GuildPaneWidth-paneFrame-2)))
		}
		// Guilds keep at least half of the pane.
		listHeight -= min(len(friendLines), height/2)
	}

	if len(items) == 0 {
		lines = append(lines, styles.Muted.Render("No guilds"))
	}
	lines = append(lines, renderList(items, m.guildCursor, m.focus == paneGuilds, GuildPaneWidth-paneFrame, listHeight)...)
	lines = append(lines, friendLines...)
	if len(lines) > height {
		lines = lines[:height]
	}
	return strings.Join(lines, "\n")
}

func (m Model) channelPane(height int) string {
	title := "Channels"
	if g, ok := m.view.Nav.SelectedGuild(); ok {
		title = util.TruncateString(g.Name, ChannelPaneWidth-paneFrame)
	}
	lines := []string{styles.PaneTitle.Render(title)}

	channels := m.view.Nav.Channels()
	if _, ok := m.view.Nav.SelectedGuild(); !ok {
		lines = append(lines, styles.Muted.Render("Open a guild"))
	} else if len(channels) == 0 {
		lines = append(lines, styles.Muted.Render("No channels"))
	}

	items := make([]listItem, len(channels))
	for i, c := range channels {
		items[i] = listItem{
			label:    m.channelLabel(c),
			selected: c.ID == m.view.Nav.SelectedChannelID,
			disabled: !c.Kind.Joinable(),
		}
	}
	lines = append(lines, renderList(items, m.channelCursor, m.focus == paneChannels, ChannelPaneWidth-paneFrame, height-1)...)
	return strings.Join(lines, "\n")
}

func (m Model) channelLabel(c model.Channel) string {
	icon := lipgloss.NewStyle().Foreground(styles.ChannelColor(c.Kind)).Render(styles.ChannelIcon(c.Kind))
	label := icon + " " + c.Name
	if m.opts.ShowChannelKinds && c.Kind != model.ChannelText {
		label += styles.Muted.Render(" (" + c.Kind.String() + ")")
	}
	return label
}

func (m Model) messagePane() string {
	title := "No channel selected"
	if c, ok := m.view.Nav.SelectedChannel(); ok {
		title = styles.ChannelIcon(c.Kind) + c.Name
	}
	title = util.TruncateString(title, max(m.messagePaneWidth()-paneFrame, 1))
	return styles.PaneTitle.Render(title) + "\n" + m.messages.View()
}

// renderMessages lays out the selected channel's messages oldest first,
// one per paragraph, wrapped at width.
func (m Model) renderMessages(width int) string {
	if _, ok := m.view.Nav.SelectedChannel(); !ok {
		return ""
	}
	msgs := m.view.Nav.Messages()
	if len(msgs) == 0 {
		return styles.Muted.Render("No messages yet.")
	}

	selfName := ""
	if m.view.Self != nil {
		selfName = m.view.Self.Username
	}
	wrap := lipgloss.NewStyle().Width(max(width, 1))

	lines := make([]string, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		author := styles.Author
		if selfName != "" && msg.AuthorName == selfName {
			author = styles.AuthorSelf
		}
		lines = append(lines, wrap.Render(author.Render(msg.AuthorName)+": "+util.SingleLine(msg.Content)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) inputView() string {
	width := max(m.width-2, 1)
	box := styles.InputBox.Width(width)
	switch m.mode {
	case keymap.ModeCompose:
		return box.Render(styles.InputPrompt.Render("> ") + m.composer.View())
	case keymap.ModeFriend:
		return box.Render(styles.InputPrompt.Render("Add friend: ") + m.friendInput.View())
	default:
		return box.BorderForeground(styles.BorderColor).
			Render(styles.Muted.Render("Press i to write a message, a to add a friend"))
	}
}

func (m Model) statusLine() string {
	if m.busy != "" {
		return styles.WarningMsg.Render(m.busy + "…")
	}
	switch m.statusKind {
	case statusError:
		return styles.ErrorMsg.Render(m.status)
	case statusSuccess:
		return styles.SuccessMsg.Render(m.status)
	default:
		return m.status
	}
}

// shortHelpEntries is how many browse bindings show while the full help
// is hidden.
const shortHelpEntries = 5

func (m Model) helpView() string {
	entries := m.keys.Help(m.mode)
	if m.mode == keymap.ModeBrowse && !m.showHelp && len(entries) > shortHelpEntries {
		short := entries[:shortHelpEntries:shortHelpEntries]
		for _, e := range entries[shortHelpEntries:] {
			if e.Command == keymap.CmdToggleHelp || e.Command == keymap.CmdQuit {
				short = append(short, e)
			}
		}
		entries = short
	}

	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s %s", styles.HelpKey.Render(e.String()), e.Description)
	}
	return styles.HelpBar.Render(util.TruncateANSI(strings.Join(parts, "  "), max(m.width, 1)))
}

func (m Model) paneHeight() int {
	// Pane borders take two rows.
	return max(m.height-ChromeHeight-2, 3)
}

func (m Model) messagePaneWidth() int {
	return max(m.width-GuildPaneWidth-ChannelPaneWidth, minPaneContent+paneFrame)
}

// messageWidth is the wrap width of message text.
func (m Model) messageWidth() int {
	w := m.messagePaneWidth() - paneFrame
	if m.opts.MessageWidth > 0 && m.opts.MessageWidth < w {
		return m.opts.MessageWidth
	}
	return w
}

// layout sizes the viewport and inputs to the terminal.
func (m *Model) layout() {
	m.messages.Width = m.messagePaneWidth() - paneFrame
	// One row is the pane title.
	m.messages.Height = m.paneHeight() - 1
	inputWidth := max(m.width-20, 10)
	m.composer.Width = inputWidth
	m.friendInput.Width = inputWidth
	m.syncMessages()
}
