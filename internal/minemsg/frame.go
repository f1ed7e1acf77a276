package minemsg

import (
	"encoding/json"
	"fmt"
)

// Wire shapes spoken with the game-side bridge mod. Outbound frames wrap
// components in {"type":"text","data":{...}} entries; inbound frames carry a
// server type tag, an event name and an optional player block.

type textEntry struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// OutboundFrame is a generic api envelope.
type OutboundFrame struct {
	API  string         `json:"api"`
	Data map[string]any `json:"data"`
	Echo string         `json:"echo,omitempty"`
}

func componentData(c Component) map[string]any {
	data := map[string]any{
		"text":  c.Text,
		"color": c.Color,
		"bold":  c.Bold,
	}
	if data["color"] == "" {
		data["color"] = "white"
	}
	if c.HoverText != "" {
		data["hover_event"] = map[string]any{
			"action": "SHOW_TEXT",
			"text": []map[string]any{
				{"text": c.HoverText, "color": "yellow", "bold": true},
			},
		}
	}
	if c.ClickValue != "" {
		data["click_event"] = map[string]any{
			"action": NormalizeClickAction(c.ClickAction),
			"value":  c.ClickValue,
		}
	}
	return data
}

func entries(components []Component) []textEntry {
	out := make([]textEntry, 0, len(components))
	for _, c := range components {
		out = append(out, textEntry{Type: "text", Data: componentData(c)})
	}
	return out
}

// BroadcastFrame builds the broadcast envelope for a component sequence.
// Invalid components are dropped before transmission.
func BroadcastFrame(components []Component) OutboundFrame {
	return OutboundFrame{
		API:  "broadcast",
		Data: map[string]any{"message": entries(Sanitize(components))},
	}
}

// SimpleBroadcastFrame wraps plain text (optionally "sender: text") in a
// single white component.
func SimpleBroadcastFrame(text, sender string) OutboundFrame {
	if sender != "" {
		text = fmt.Sprintf("%s: %s", sender, text)
	}
	return BroadcastFrame([]Component{{Text: text}})
}

// PrivateFrame builds the private-message envelope for one player.
func PrivateFrame(uuid, nickname string, components []Component) OutboundFrame {
	return OutboundFrame{
		API: "send_private_msg",
		Data: map[string]any{
			"uuid":     uuid,
			"nickname": nickname,
			"message":  entries(Sanitize(components)),
		},
		Echo: "1",
	}
}

// Player is the optional player block of an inbound frame. Coordinate fields
// are pointers because not every flavor supplies them.
type Player struct {
	Nickname    string `json:"nickname"`
	DisplayName string `json:"display_name"`
	UUID        string `json:"uuid,omitempty"`
	BlockX      *int   `json:"block_x,omitempty"`
	BlockY      *int   `json:"block_y,omitempty"`
	BlockZ      *int   `json:"block_z,omitempty"`
	IsOp        *bool  `json:"is_op,omitempty"`
	Dimension   string `json:"dimension,omitempty"`
}

// Name returns the best available player name.
func (p Player) Name() string {
	if p.Nickname != "" {
		return p.Nickname
	}
	return p.DisplayName
}

// Position renders the player's block coordinates, or "" when absent.
func (p Player) Position() string {
	if p.BlockX == nil || p.BlockY == nil || p.BlockZ == nil {
		return ""
	}
	return fmt.Sprintf("%d %d %d", *p.BlockX, *p.BlockY, *p.BlockZ)
}

// Inbound is a decoded frame from the bridge mod.
type Inbound struct {
	ServerType string `json:"server_type"`
	EventName  string `json:"event_name"`
	ServerName string `json:"server_name"`
	Player     Player `json:"player"`
	Message    string `json:"message"`
	// Some flavors report the death text in a dedicated field.
	DeathMessage string `json:"death_message,omitempty"`
}

// DecodeInbound parses one inbound text frame.
func DecodeInbound(raw []byte) (*Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("decode inbound frame: %w", err)
	}
	return &in, nil
}
