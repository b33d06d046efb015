package styles

import (
	"testing"

	"github.com/Iron-Ham/parley/internal/model"
)

func TestChannelIcon(t *testing.T) {
	tests := []struct {
		kind model.ChannelKind
		want string
	}{
		{model.ChannelText, "#"},
		{model.ChannelVoice, "♪"},
		{model.ChannelOther, "·"},
	}
	for _, tt := range tests {
		if got := ChannelIcon(tt.kind); got != tt.want {
			t.Errorf("ChannelIcon(%v) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

func TestChannelColor(t *testing.T) {
	if ChannelColor(model.ChannelText) != SecondaryColor {
		t.Error("text channels should use the secondary color")
	}
	if ChannelColor(model.ChannelVoice) != VoiceColor {
		t.Error("voice channels should use the voice color")
	}
	if ChannelColor(model.ChannelOther) != MutedColor {
		t.Error("other channels should be muted")
	}
}

func TestStylesRender(t *testing.T) {
	// Rendering must not panic and must keep the text.
	for name, s := range map[string]interface{ Render(...string) string }{
		"ItemSelected": ItemSelected,
		"StatusBar":    StatusBar,
		"ErrorMsg":     ErrorMsg,
		"Author":       Author,
	} {
		if out := s.Render("general"); out == "" {
			t.Errorf("%s rendered nothing", name)
		}
	}
}
