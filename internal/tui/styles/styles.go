// Package styles holds the TUI's colors and lipgloss styles.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/parley/internal/model"
)

var (
	// Colors meet WCAG AA contrast on black and on SurfaceColor.
	PrimaryColor   = lipgloss.Color("#A78BFA") // violet-400
	SecondaryColor = lipgloss.Color("#10B981") // green
	WarningColor   = lipgloss.Color("#F59E0B") // amber
	ErrorColor     = lipgloss.Color("#F87171") // red-400
	MutedColor     = lipgloss.Color("#9CA3AF")
	SurfaceColor   = lipgloss.Color("#1F2937")
	TextColor      = lipgloss.Color("#F9FAFB")
	BorderColor    = lipgloss.Color("#6B7280")
	VoiceColor     = lipgloss.Color("#60A5FA") // blue

	Primary   = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Muted     = lipgloss.NewStyle().Foreground(MutedColor)
	Text      = lipgloss.NewStyle().Foreground(TextColor)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)

	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(BorderColor)

	// Login form
	LoginBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Padding(1, 3)

	FieldLabel = lipgloss.NewStyle().
			Foreground(MutedColor).
			Width(10)

	FieldLabelFocused = lipgloss.NewStyle().
				Foreground(SecondaryColor).
				Bold(true).
				Width(10)

	// Panes
	Pane = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 1)

	PaneFocused = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Padding(0, 1)

	PaneTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)

	Item = lipgloss.NewStyle().
		Padding(0, 1)

	ItemCursor = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(SurfaceColor).
			Padding(0, 1)

	ItemSelected = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextColor).
			Background(PrimaryColor).
			Padding(0, 1)

	ItemDisabled = lipgloss.NewStyle().
			Foreground(MutedColor).
			Padding(0, 1)

	// Messages
	Author = lipgloss.NewStyle().
		Bold(true).
		Foreground(SecondaryColor)

	AuthorSelf = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)

	// Input line
	InputBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Padding(0, 1)

	InputPrompt = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	// Status bar
	StatusBar = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(SurfaceColor).
			Padding(0, 1)

	ErrorMsg = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	SuccessMsg = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	WarningMsg = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor)

	HelpKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(SecondaryColor)
)

// ChannelIcon returns the marker shown before a channel name.
func ChannelIcon(kind model.ChannelKind) string {
	switch kind {
	case model.ChannelText:
		return "#"
	case model.ChannelVoice:
		return "♪"
	default:
		return "·"
	}
}

// ChannelColor returns the color of a channel's marker.
func ChannelColor(kind model.ChannelKind) lipgloss.Color {
	switch kind {
	case model.ChannelText:
		return SecondaryColor
	case model.ChannelVoice:
		return VoiceColor
	default:
		return MutedColor
	}
}
