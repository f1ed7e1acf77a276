// Package opsapi receives chat-platform events over HTTP and routes the
// operator commands into chatops. A plain group message from a bound group is
// relayed into the game instead.
package opsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/kapu/mc-bridge-go/internal/binding"
	"github.com/kapu/mc-bridge-go/internal/chatops"
	"github.com/kapu/mc-bridge-go/internal/obslog"
)

// Event is one inbound chat message as posted by the platform connector.
type Event struct {
	GroupID  string `json:"group_id"`
	UserID   string `json:"user_id"`
	Nickname string `json:"nickname"`
	Message  string `json:"message"`
}

type eventReply struct {
	Reply string `json:"reply,omitempty"`
}

// Server is the HTTP face of the operator command surface.
type Server struct {
	ops      *chatops.Service
	targets  func() []chatops.Target
	bindings *binding.Store
	admins   map[string]bool
	logger   *zap.Logger

	srv *fasthttp.Server
}

func NewServer(ops *chatops.Service, targets func() []chatops.Target, bindings *binding.Store, adminUsers []string) *Server {
	admins := make(map[string]bool, len(adminUsers))
	for _, u := range adminUsers {
		admins[u] = true
	}
	s := &Server{
		ops:      ops,
		targets:  targets,
		bindings: bindings,
		admins:   admins,
		logger:   obslog.L().Named("opsapi"),
	}
	s.srv = &fasthttp.Server{Handler: s.handle, Name: "mc-bridge"}
	return s
}

// ListenAndServe blocks serving addr until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("operator api listening", zap.String("addr", addr))
	return s.srv.ListenAndServe(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.ShutdownWithContext(ctx)
}

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	if string(ctx.Path()) != "/event" || !ctx.IsPost() {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		return
	}
	var ev Event
	if err := json.Unmarshal(ctx.PostBody(), &ev); err != nil {
		ctx.SetStatusCode(fasthttp.StatusBadRequest)
		return
	}
	reply := s.HandleEvent(ctx, ev)
	ctx.SetContentType("application/json")
	out, _ := json.Marshal(eventReply{Reply: reply})
	ctx.SetBody(out)
}

// HandleEvent routes one chat event. Commands return the operator reply;
// everything else is relayed to the servers bound to the group and returns "".
func (s *Server) HandleEvent(ctx context.Context, ev Event) string {
	msg := strings.TrimSpace(ev.Message)
	if msg == "" {
		return ""
	}
	if strings.HasPrefix(msg, "/mc") {
		return s.runCommand(ctx, ev, msg)
	}
	s.relayToGame(ev, msg)
	return ""
}

func (s *Server) runCommand(ctx context.Context, ev Event, msg string) string {
	isAdmin := s.admins[ev.UserID]
	fields := strings.Fields(msg)
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "/mcbind":
		if len(args) < 1 {
			return "Usage: /mcbind <adapter>"
		}
		return s.ops.Bind(ev.GroupID, args[0], isAdmin)
	case "/mcunbind":
		if len(args) < 1 {
			return "Usage: /mcunbind <adapter>"
		}
		return s.ops.Unbind(ev.GroupID, args[0], isAdmin)
	case "/mcstatus":
		if len(args) < 1 {
			return s.statusAll(ev.GroupID)
		}
		return s.ops.Status(ev.GroupID, args[0])
	case "/mcsay":
		if len(args) < 2 {
			return "Usage: /mcsay <adapter> <message>"
		}
		return s.ops.Say(args[0], senderName(ev), strings.Join(args[1:], " "))
	case "/mcsayall":
		return s.ops.SayAll(senderName(ev), strings.Join(args, " "))
	case "/mcbroadcast":
		return s.runBroadcast(ctx, args, isAdmin)
	case "/mccustom":
		adapterID, rest := splitAdapterArg(args)
		return s.ops.CustomBroadcast(adapterID, strings.Join(rest, " "), isAdmin)
	case "/mcrcon":
		return s.ops.Rcon(strings.Join(args, " "), isAdmin)
	case "/mchelp":
		return helpText
	default:
		return "Unknown command, try /mchelp"
	}
}

func (s *Server) runBroadcast(ctx context.Context, args []string, isAdmin bool) string {
	if len(args) == 0 {
		return s.ops.BroadcastSet("", "", isAdmin)
	}
	switch args[0] {
	case "toggle":
		return s.ops.BroadcastToggle(isAdmin)
	case "clear":
		return s.ops.BroadcastClear(isAdmin)
	case "test":
		return s.ops.BroadcastTest(ctx, isAdmin)
	case "set":
		adapterID, rest := splitAdapterArg(args[1:])
		return s.ops.BroadcastSet(adapterID, strings.Join(rest, " "), isAdmin)
	default:
		return "Usage: /mcbroadcast [set [@adapter] <config> | toggle | clear | test]"
	}
}

func (s *Server) statusAll(groupID string) string {
	targets := s.targets()
	if len(targets) == 0 {
		return "No game-server adapters are registered"
	}
	lines := make([]string, 0, len(targets))
	for _, t := range targets {
		lines = append(lines, fmt.Sprintf("%s:\n%s", t.ID(), s.ops.Status(groupID, t.ID())))
	}
	return strings.Join(lines, "\n")
}

// relayToGame forwards a plain group message into every server the group is
// bound to.
func (s *Server) relayToGame(ev Event, msg string) {
	sender := senderName(ev)
	for _, t := range s.targets() {
		if !s.bindings.IsBound(ev.GroupID, t.ServerName()) {
			continue
		}
		if !t.SendChatFrom(msg, sender) {
			s.logger.Warn("group message relay failed",
				zap.String("adapter", t.ID()), zap.String("group", ev.GroupID))
		}
	}
}

// splitAdapterArg peels a leading "@adapter" token off args.
func splitAdapterArg(args []string) (string, []string) {
	if len(args) > 0 && strings.HasPrefix(args[0], "@") {
		return strings.TrimPrefix(args[0], "@"), args[1:]
	}
	return "", args
}

func senderName(ev Event) string {
	if ev.Nickname != "" {
		return ev.Nickname
	}
	return ev.UserID
}

const helpText = `MC bridge commands:
/mcbind <adapter> - bind this group to a server
/mcunbind <adapter> - unbind this group
/mcstatus [adapter] - connection and binding status
/mcsay <adapter> <message> - send a message into the game
/mcsayall <message> - send a message to every connected server
/mcbroadcast [set [@adapter] <config> | toggle | clear | test] - hourly broadcast
/mccustom [@adapter] <text>|<click command>|<hover text> - announce now
/mcrcon <command> - run a console command`
