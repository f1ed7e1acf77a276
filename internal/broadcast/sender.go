package broadcast

import (
	"time"

	"go.uber.org/zap"

	"github.com/kapu/mc-bridge-go/internal/minemsg"
	"github.com/kapu/mc-bridge-go/internal/obslog"
)

// DefaultPace is the delay between consecutive broadcast frames, keeping the
// bridge mod from rate-limiting multi-component messages.
const DefaultPace = 100 * time.Millisecond

// Conn is the send surface of one adapter connection.
type Conn interface {
	ID() string
	Connected() bool
	Send(frame minemsg.OutboundFrame) bool
}

// Sender emits rich broadcasts one component per frame, paced.
type Sender struct {
	pace   time.Duration
	now    func() time.Time
	logger *zap.Logger
}

func NewSender(pace time.Duration) *Sender {
	if pace <= 0 {
		pace = DefaultPace
	}
	return &Sender{pace: pace, now: time.Now, logger: obslog.L().Named("broadcast")}
}

// Pace returns the configured inter-frame delay. Callers reuse it to space
// whole adapters apart during fan-out.
func (s *Sender) Pace() time.Duration { return s.pace }

// SendRich broadcasts each component as its own frame, substituting {time}
// tokens at send time. Partial delivery still counts as success; only a fully
// failed send returns false.
func (s *Sender) SendRich(conn Conn, components []minemsg.Component) bool {
	components = minemsg.Sanitize(components)
	if !conn.Connected() || len(components) == 0 {
		return false
	}

	sent := 0
	for i, c := range components {
		c.Text = minemsg.ExpandTime(c.Text, s.now())
		if conn.Send(minemsg.BroadcastFrame([]minemsg.Component{c})) {
			sent++
		} else {
			s.logger.Warn("broadcast frame dropped",
				zap.String("adapter", conn.ID()), zap.Int("component", i))
		}
		if i < len(components)-1 {
			time.Sleep(s.pace)
		}
	}
	if sent == 0 {
		s.logger.Error("broadcast failed for every component", zap.String("adapter", conn.ID()))
		return false
	}
	if sent < len(components) {
		s.logger.Warn("broadcast partially delivered",
			zap.String("adapter", conn.ID()), zap.Int("sent", sent), zap.Int("total", len(components)))
	}
	return true
}

// SendCustom broadcasts an operator announcement: a red bold tag followed by
// the message text with hover and click events, in a single frame.
func (s *Sender) SendCustom(conn Conn, text, clickValue, hoverText string) bool {
	if !conn.Connected() {
		return false
	}
	frame := minemsg.BroadcastFrame([]minemsg.Component{
		{Text: "[Announcement] ", Color: "red", Bold: true},
		{
			Text:        text,
			ClickAction: minemsg.ClickSuggestCommand,
			ClickValue:  clickValue,
			HoverText:   hoverText,
		},
	})
	return conn.Send(frame)
}
