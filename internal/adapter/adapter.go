package adapter

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/mc-bridge-go/internal/binding"
	"github.com/kapu/mc-bridge-go/internal/botfilter"
	"github.com/kapu/mc-bridge-go/internal/config"
	"github.com/kapu/mc-bridge-go/internal/dispatch"
	"github.com/kapu/mc-bridge-go/internal/minemsg"
	"github.com/kapu/mc-bridge-go/internal/msgcat"
	"github.com/kapu/mc-bridge-go/internal/obslog"
	"github.com/kapu/mc-bridge-go/internal/router"
	"github.com/kapu/mc-bridge-go/internal/servertype"
	"github.com/kapu/mc-bridge-go/internal/transport"
)

// privatePace separates consecutive whisper frames so the bridge mod does not
// rate-limit multi-component private messages.
const privatePace = 100 * time.Millisecond

// wire is the transport surface the adapter needs. *transport.Manager
// satisfies it.
type wire interface {
	Send(v any) bool
	Connected() bool
}

// GroupSender delivers text to chat groups on the host framework side.
type GroupSender interface {
	SendToGroups(groupIDs []string, text string)
}

// Deps are the shared collaborators one adapter plugs into.
type Deps struct {
	Bindings *binding.Store
	Filter   *botfilter.Filter
	Pipeline *dispatch.Pipeline
	Router   *router.Router
	Groups   GroupSender
	Catalog  *msgcat.Catalog
}

// Adapter owns the connection to one game server: it decodes inbound events,
// forwards chat to the bound groups, relays between servers, and feeds
// wake-prefixed messages into the command pipeline.
type Adapter struct {
	id         string
	serverName string

	manager *transport.Manager
	wire    wire

	bindings *binding.Store
	filter   *botfilter.Filter
	pipeline *dispatch.Pipeline
	router   *router.Router
	groups   GroupSender
	cat      *msgcat.Catalog

	tag            string
	enableJoinQuit bool
	relaySlashCmds bool

	pace   time.Duration
	logger *zap.Logger
}

func New(cfg config.AdapterConfig, app *config.AppConfig, deps Deps) *Adapter {
	headers := http.Header{}
	headers.Set("x-self-name", cfg.ServerName)
	headers.Set("x-client-origin", "bridge")
	if cfg.AuthToken != "" {
		headers.Set("Authorization", "Bearer "+cfg.AuthToken)
	}

	a := &Adapter{
		id:             cfg.AdapterID,
		serverName:     cfg.ServerName,
		bindings:       deps.Bindings,
		filter:         deps.Filter,
		pipeline:       deps.Pipeline,
		router:         deps.Router,
		groups:         deps.Groups,
		cat:            deps.Catalog,
		tag:            app.ChatMessagePrefix,
		enableJoinQuit: app.EnableJoinQuit,
		relaySlashCmds: app.RelaySlashCmds,
		pace:           privatePace,
		logger:         obslog.L().Named("adapter").With(zap.String("adapter", cfg.AdapterID)),
	}
	a.manager = transport.NewManager(cfg.WSURL, headers, app.ReconnectInterval, app.MaxRetries)
	a.manager.OnFrame(a.handleFrame)
	a.manager.OnStateChange(func(s transport.State) {
		a.logger.Info("connection state changed", zap.String("state", s.String()))
	})
	a.wire = a.manager
	return a
}

func (a *Adapter) ID() string         { return a.id }
func (a *Adapter) ServerName() string { return a.serverName }

// Run drives the connection until ctx is cancelled or the transport gives up.
func (a *Adapter) Run(ctx context.Context) { a.manager.Run(ctx) }

func (a *Adapter) Close()          { a.manager.Close() }
func (a *Adapter) Connected() bool { return a.wire.Connected() }

// State exposes the transport state for status commands.
func (a *Adapter) State() transport.State { return a.manager.State() }

// Send transmits one outbound frame.
func (a *Adapter) Send(frame minemsg.OutboundFrame) bool { return a.wire.Send(frame) }

// SendChat broadcasts plain text into the game.
func (a *Adapter) SendChat(text string) bool {
	return a.Send(minemsg.SimpleBroadcastFrame(text, ""))
}

// SendChatFrom broadcasts "sender: text" into the game.
func (a *Adapter) SendChatFrom(text, sender string) bool {
	return a.Send(minemsg.SimpleBroadcastFrame(text, sender))
}

// SendRich broadcasts one clickable link component.
func (a *Adapter) SendRich(text, url, hover string) bool {
	return a.Send(minemsg.BroadcastFrame([]minemsg.Component{{
		Text:        text,
		Color:       "#E6E6FA",
		ClickAction: minemsg.ClickOpenURL,
		ClickValue:  url,
		HoverText:   hover,
	}}))
}

// SendPrivate whispers components to one player, one frame per component,
// paced. Partial delivery counts as success.
func (a *Adapter) SendPrivate(uuid, nickname string, comps []minemsg.Component) bool {
	comps = minemsg.Sanitize(comps)
	if len(comps) == 0 {
		return false
	}
	sent := 0
	for i, c := range comps {
		if a.Send(minemsg.PrivateFrame(uuid, nickname, []minemsg.Component{c})) {
			sent++
		}
		if i < len(comps)-1 {
			time.Sleep(a.pace)
		}
	}
	if sent == 0 {
		a.logger.Warn("private message failed for every component", zap.String("uuid", uuid))
		return false
	}
	return true
}

// handleFrame processes one inbound frame from the bridge mod. Malformed
// frames are logged and dropped; the connection stays up.
func (a *Adapter) handleFrame(raw []byte) {
	in, err := minemsg.DecodeInbound(raw)
	if err != nil {
		a.logger.Warn("discarding malformed frame", zap.Error(err), zap.Int("bytes", len(raw)))
		return
	}

	desc := servertype.Resolve(in.ServerType)
	serverName := in.ServerName
	if serverName == "" {
		serverName = a.serverName
	}
	boundGroups := a.bindings.BoundGroups(serverName)

	switch {
	case in.EventName == desc.ChatEvent:
		a.handleChat(in, desc, boundGroups)
	case in.EventName == desc.JoinEvent:
		a.handleJoinQuit(in, boundGroups, true)
	case in.EventName == desc.QuitEvent:
		a.handleJoinQuit(in, boundGroups, false)
	case desc.HasDeath() && in.EventName == desc.DeathEvent:
		a.handleDeath(in, boundGroups)
	default:
		a.logger.Debug("unhandled event", zap.String("event", in.EventName),
			zap.String("server_type", string(desc.Type)))
	}
}

func (a *Adapter) handleChat(in *minemsg.Inbound, desc servertype.Descriptor, boundGroups []string) {
	name := in.Player.Name()
	text := in.Message
	if text == "" {
		return
	}
	a.logger.Info("chat", zap.String("player", name), zap.String("text", text))

	isBot := a.filter.IsBot(name)

	// Cross-server relay first, bots excluded.
	if a.router != nil && name != "" && !isBot {
		a.router.RouteChat(a.id, a.serverName, name, text)
	}

	// Wake-prefixed messages go through the command pipeline.
	if cmd, ok := a.pipeline.Wake(text); ok {
		req := &dispatch.Request{
			Player:      in.Player,
			Server:      &desc,
			AdapterID:   a.id,
			BoundGroups: boundGroups,
			ReplyToGame: func(reply string) {
				if !a.SendChat(reply) {
					a.logger.Warn("command reply dropped", zap.String("player", name))
				}
			},
			ForwardToChat: func(groups []string, msg string) {
				if a.groups != nil {
					a.groups.SendToGroups(groups, msg)
				}
			},
			SendRich:    a.SendRich,
			SendPrivate: a.SendPrivate,
		}
		if !a.pipeline.Dispatch(context.Background(), cmd, req) {
			// The player spoke to the bridge and nobody answered; tell them
			// instead of going silent.
			a.logger.Info("command unclaimed", zap.String("player", name), zap.String("text", cmd))
			if !a.SendChat(a.cat.MustRender("dispatch.unhandled", nil)) {
				a.logger.Warn("failure notice dropped", zap.String("player", name))
			}
		}
		return
	}

	// Plain conversation: pass through to the bound groups. Slash commands
	// stay inside the game unless relaying is switched on.
	if isBot || len(boundGroups) == 0 || a.groups == nil {
		return
	}
	if len(text) > 0 && text[0] == '/' && !a.relaySlashCmds {
		return
	}
	a.groups.SendToGroups(boundGroups, fmt.Sprintf("%s %s: %s", a.tag, name, text))
}

func (a *Adapter) handleJoinQuit(in *minemsg.Inbound, boundGroups []string, join bool) {
	name := in.Player.Name()
	if name == "" || a.filter.IsBot(name) {
		return
	}

	if a.router != nil {
		if join {
			a.router.RouteJoin(a.id, a.serverName, name)
		} else {
			a.router.RouteQuit(a.id, a.serverName, name)
		}
	}

	if !a.enableJoinQuit || len(boundGroups) == 0 || a.groups == nil {
		return
	}
	verb := "joined the game"
	if !join {
		verb = "left the game"
	}
	a.groups.SendToGroups(boundGroups, fmt.Sprintf("%s %s %s", a.tag, name, verb))
}

func (a *Adapter) handleDeath(in *minemsg.Inbound, boundGroups []string) {
	name := in.Player.Name()
	if a.filter.IsBot(name) {
		return
	}
	msg := in.DeathMessage
	if msg == "" {
		msg = in.Message
	}
	if msg == "" {
		msg = name + " died"
	}

	if a.router != nil {
		a.router.RouteDeath(a.id, a.serverName, msg)
	}
	if len(boundGroups) == 0 || a.groups == nil {
		return
	}
	a.groups.SendToGroups(boundGroups, fmt.Sprintf("%s %s", a.tag, msg))
}
