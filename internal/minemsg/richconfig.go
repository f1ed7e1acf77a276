package minemsg

import (
	"errors"
	"strings"
)

// ParseRichConfig parses the operator-facing pipe grammar into components.
//
// Rich mode (contains "|"): each |-separated part is
// "text,color,bold,click,hover" with trailing fields optional. Parts with
// empty text are skipped. Simple mode (no "|"): the whole string becomes one
// aqua component with a default hover.
func ParseRichConfig(s string) ([]Component, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty broadcast config")
	}
	if !strings.Contains(s, "|") {
		return []Component{{
			Text:        s,
			Color:       "aqua",
			ClickAction: ClickSuggestCommand,
			ClickValue:  "/time query daytime",
			HoverText:   "Hourly broadcast",
		}}, nil
	}

	var components []Component
	for _, part := range strings.Split(s, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		params := strings.Split(part, ",")
		for i := range params {
			params[i] = strings.TrimSpace(params[i])
		}
		c := Component{Text: params[0], Color: "white"}
		if len(params) > 1 && params[1] != "" {
			c.Color = params[1]
		}
		if len(params) > 2 && params[2] != "" {
			c.Bold = strings.EqualFold(params[2], "true")
		}
		if len(params) > 3 && params[3] != "" {
			c.ClickAction = ClickSuggestCommand
			c.ClickValue = params[3]
		}
		if len(params) > 4 && params[4] != "" {
			c.HoverText = params[4]
		}
		if c.Text != "" {
			components = append(components, c)
		}
	}
	if len(components) == 0 {
		return nil, errors.New("config needs at least one component with text")
	}
	return components, nil
}

// FormatConfig renders components back into a readable one-per-line listing
// for operator replies.
func FormatConfig(components []Component) string {
	var b strings.Builder
	for i, c := range components {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("  ")
		b.WriteString(c.Text)
		if c.Color != "" && c.Color != "white" {
			b.WriteString(" | color: " + c.Color)
		}
		if c.Bold {
			b.WriteString(" | bold")
		}
		if c.ClickValue != "" {
			b.WriteString(" | click: " + c.ClickValue)
		}
		if c.HoverText != "" {
			b.WriteString(" | hover: " + c.HoverText)
		}
	}
	return b.String()
}
