package dispatch

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kapu/mc-bridge-go/internal/minemsg"
	"github.com/kapu/mc-bridge-go/internal/obslog"
	"github.com/kapu/mc-bridge-go/internal/servertype"
)

// Request carries one in-game command through the pipeline. The callbacks are
// wired per event by the adapter, so replies always reach the originating
// player and server.
type Request struct {
	Player      minemsg.Player
	Server      *servertype.Descriptor
	AdapterID   string
	BoundGroups []string

	// ReplyToGame sends a plain message back to the origin server.
	ReplyToGame func(text string)
	// ForwardToChat relays text to the given chat groups.
	ForwardToChat func(groups []string, text string)
	// SendRich sends a clickable link message to the origin server.
	SendRich func(text, url, hover string) bool
	// SendPrivate whispers components to one player by uuid.
	SendPrivate func(uuid, nickname string, comps []minemsg.Component) bool
}

// Handler is one command processor. Matches sees the command text with the
// wake prefix already stripped. Execute returns false to decline, letting
// lower-priority handlers see the command.
type Handler interface {
	Matches(cmd string) bool
	Execute(ctx context.Context, cmd string, req *Request) (bool, error)
	Priority() int
	Help() string
}

// Base implements prefix matching shared by the builtin handlers.
type Base struct {
	prefix   string // empty matches every command
	exact    bool
	priority int
}

func (b Base) Matches(cmd string) bool {
	if b.prefix == "" {
		return true
	}
	if b.exact {
		return cmd == b.prefix
	}
	return strings.HasPrefix(cmd, b.prefix)
}

func (b Base) Priority() int { return b.priority }

// Args returns the command text after the handler's prefix, trimmed.
func (b Base) Args(cmd string) string {
	return strings.TrimSpace(strings.TrimPrefix(cmd, b.prefix))
}

// Pipeline matches wake prefixes and dispatches commands to handlers in
// priority order.
type Pipeline struct {
	wakePrefixes []string
	handlers     []Handler
	logger       *zap.Logger
}

// NewPipeline builds a pipeline. The legacy "#" wake prefix is always
// recognized in addition to the configured ones.
func NewPipeline(wakePrefixes []string) *Pipeline {
	prefixes := append([]string(nil), wakePrefixes...)
	seen := false
	for _, p := range prefixes {
		if p == "#" {
			seen = true
		}
	}
	if !seen {
		prefixes = append(prefixes, "#")
	}
	return &Pipeline{
		wakePrefixes: prefixes,
		logger:       obslog.L().Named("dispatch"),
	}
}

// Register adds a handler. Handlers are kept sorted by priority, highest
// first; registration order breaks ties.
func (p *Pipeline) Register(h Handler) {
	p.handlers = append(p.handlers, h)
	sort.SliceStable(p.handlers, func(i, j int) bool {
		return p.handlers[i].Priority() > p.handlers[j].Priority()
	})
}

// Wake reports whether text starts with a wake prefix and returns the
// command with the prefix stripped.
func (p *Pipeline) Wake(text string) (string, bool) {
	for _, prefix := range p.wakePrefixes {
		if prefix != "" && strings.HasPrefix(text, prefix) {
			return strings.TrimSpace(text[len(prefix):]), true
		}
	}
	return "", false
}

// Dispatch offers cmd to each matching handler until one claims it. A handler
// error or panic counts as a decline and the walk continues.
func (p *Pipeline) Dispatch(ctx context.Context, cmd string, req *Request) bool {
	for _, h := range p.handlers {
		if !h.Matches(cmd) {
			continue
		}
		handled, err := p.execute(ctx, h, cmd, req)
		if err != nil {
			p.logger.Error("command handler failed",
				zap.String("cmd", cmd), zap.String("player", req.Player.Name()), zap.Error(err))
			continue
		}
		if handled {
			return true
		}
	}
	p.logger.Debug("no handler claimed command", zap.String("cmd", cmd))
	return false
}

func (p *Pipeline) execute(ctx context.Context, h Handler, cmd string, req *Request) (handled bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			handled = false
			err = &panicError{value: r}
		}
	}()
	return h.Execute(ctx, cmd, req)
}

type panicError struct{ value any }

func (e *panicError) Error() string { return fmt.Sprintf("handler panic: %v", e.value) }

// HelpLines collects the help text of every registered handler, highest
// priority first, skipping handlers without one.
func (p *Pipeline) HelpLines() []string {
	var out []string
	for _, h := range p.handlers {
		if t := h.Help(); t != "" {
			out = append(out, t)
		}
	}
	return out
}
