package minemsg

import (
	"strings"
	"time"
)

// Click actions accepted by the bridge mod.
const (
	ClickSuggestCommand = "SUGGEST_COMMAND"
	ClickRunCommand     = "RUN_COMMAND"
	ClickOpenURL        = "OPEN_URL"
)

// Component is one styled, optionally interactive text segment of a rich
// in-game message.
type Component struct {
	Text        string `json:"text"`
	Color       string `json:"color,omitempty"`
	Bold        bool   `json:"bold,omitempty"`
	ClickAction string `json:"click_action,omitempty"`
	ClickValue  string `json:"click_value,omitempty"`
	HoverText   string `json:"hover_text,omitempty"`
}

// Valid reports whether the component carries sendable text.
func (c Component) Valid() bool { return strings.TrimSpace(c.Text) != "" }

// NormalizeClickAction coerces unrecognized actions to SUGGEST_COMMAND.
func NormalizeClickAction(action string) string {
	switch strings.ToUpper(strings.TrimSpace(action)) {
	case ClickRunCommand:
		return ClickRunCommand
	case ClickOpenURL:
		return ClickOpenURL
	default:
		return ClickSuggestCommand
	}
}

// Sanitize drops invalid components and normalizes click actions on the rest.
func Sanitize(components []Component) []Component {
	out := make([]Component, 0, len(components))
	for _, c := range components {
		if !c.Valid() {
			continue
		}
		if c.ClickValue != "" {
			c.ClickAction = NormalizeClickAction(c.ClickAction)
		}
		out = append(out, c)
	}
	return out
}

// ExpandTime substitutes every literal {time} token with now formatted HH:MM.
// Substitution happens at send time so scheduled broadcasts show the actual
// time of day.
func ExpandTime(text string, now time.Time) string {
	return strings.ReplaceAll(text, "{time}", now.Format("15:04"))
}
