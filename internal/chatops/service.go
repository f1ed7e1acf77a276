// Package chatops implements the operator command surface on the chat side:
// binding groups to servers, connection status, relaying messages into the
// game, broadcast administration and remote console access. Every operation
// returns a human-readable reply for the invoking chat.
package chatops

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/mc-bridge-go/internal/binding"
	"github.com/kapu/mc-bridge-go/internal/broadcast"
	"github.com/kapu/mc-bridge-go/internal/minemsg"
	"github.com/kapu/mc-bridge-go/internal/msgcat"
	"github.com/kapu/mc-bridge-go/internal/obslog"
	"github.com/kapu/mc-bridge-go/internal/rconsole"
	"github.com/kapu/mc-bridge-go/internal/router"
)

// Target is the adapter surface chatops operates on.
type Target interface {
	ID() string
	ServerName() string
	Connected() bool
	SendChatFrom(text, sender string) bool
	Send(frame minemsg.OutboundFrame) bool
}

// Service executes operator commands against the running bridge.
type Service struct {
	resolve  func(id string) (Target, bool)
	all      func() []Target
	rt       *router.Router
	bindings *binding.Store
	store    *broadcast.ConfigStore
	sender   *broadcast.Sender
	sched    *broadcast.Scheduler
	rcon     *rconsole.Manager
	cat      *msgcat.Catalog
	logger   *zap.Logger
}

func NewService(
	resolve func(id string) (Target, bool),
	all func() []Target,
	rt *router.Router,
	bindings *binding.Store,
	store *broadcast.ConfigStore,
	sender *broadcast.Sender,
	sched *broadcast.Scheduler,
	rcon *rconsole.Manager,
	cat *msgcat.Catalog,
) *Service {
	return &Service{
		resolve:  resolve,
		all:      all,
		rt:       rt,
		bindings: bindings,
		store:    store,
		sender:   sender,
		sched:    sched,
		rcon:     rcon,
		cat:      cat,
		logger:   obslog.L().Named("chatops"),
	}
}

func (s *Service) adminOnly() string { return s.cat.MustRender("common.admin_only", nil) }

func (s *Service) target(adapterID string) (Target, string) {
	t, ok := s.resolve(adapterID)
	if !ok {
		return nil, s.cat.MustRender("adapter.not_found", map[string]any{"ID": adapterID})
	}
	return t, ""
}

// Bind associates the invoking group with an adapter's server.
func (s *Service) Bind(groupID, adapterID string, isAdmin bool) string {
	if !isAdmin {
		return s.adminOnly()
	}
	if strings.TrimSpace(groupID) == "" {
		return s.cat.MustRender("bind.no_group", nil)
	}
	t, errMsg := s.target(adapterID)
	if t == nil {
		return errMsg
	}
	data := map[string]any{"Server": t.ServerName()}
	if s.bindings.Bind(groupID, t.ServerName()) {
		s.logger.Info("group bound", zap.String("group", groupID), zap.String("server", t.ServerName()))
		return s.cat.MustRender("bind.ok", data)
	}
	return s.cat.MustRender("bind.already", data)
}

// Unbind removes the association.
func (s *Service) Unbind(groupID, adapterID string, isAdmin bool) string {
	if !isAdmin {
		return s.adminOnly()
	}
	if strings.TrimSpace(groupID) == "" {
		return s.cat.MustRender("bind.no_group", nil)
	}
	t, errMsg := s.target(adapterID)
	if t == nil {
		return errMsg
	}
	data := map[string]any{"Server": t.ServerName()}
	if s.bindings.Unbind(groupID, t.ServerName()) {
		s.logger.Info("group unbound", zap.String("group", groupID), zap.String("server", t.ServerName()))
		return s.cat.MustRender("unbind.ok", data)
	}
	return s.cat.MustRender("unbind.not_bound", data)
}

// Status reports the adapter's connection state and the invoking group's
// binding.
func (s *Service) Status(groupID, adapterID string) string {
	t, errMsg := s.target(adapterID)
	if t == nil {
		return errMsg
	}
	data := map[string]any{"Server": t.ServerName()}

	var lines []string
	if t.Connected() {
		lines = append(lines, s.cat.MustRender("status.connected", data))
	} else {
		lines = append(lines, s.cat.MustRender("status.reconnecting", data))
	}
	if groupID != "" {
		if s.bindings.IsBound(groupID, t.ServerName()) {
			lines = append(lines, s.cat.MustRender("status.bound", data))
		} else {
			lines = append(lines, s.cat.MustRender("status.not_bound", data))
		}
	}
	return strings.Join(lines, "\n")
}

// Say relays a chat user's message into the game as "sender: message".
func (s *Service) Say(adapterID, sender, message string) string {
	if strings.TrimSpace(message) == "" {
		return s.cat.MustRender("say.empty", nil)
	}
	t, errMsg := s.target(adapterID)
	if t == nil {
		return errMsg
	}
	data := map[string]any{"Server": t.ServerName()}
	if !t.Connected() || !t.SendChatFrom(message, sender) {
		return s.cat.MustRender("say.not_connected", data)
	}
	return s.cat.MustRender("say.sent", data)
}

// SayAll relays a chat user's message into every connected server at once.
func (s *Service) SayAll(sender, message string) string {
	if strings.TrimSpace(message) == "" {
		return s.cat.MustRender("say.empty", nil)
	}
	s.rt.BroadcastAll(sender+": "+message, "")
	return s.cat.MustRender("say.sent_all", nil)
}

// BroadcastSet updates the hourly broadcast content. An empty config shows
// the current one. A non-empty adapterID pins the content to that adapter
// only.
func (s *Service) BroadcastSet(adapterID, cfg string, isAdmin bool) string {
	if !isAdmin {
		return s.adminOnly()
	}
	if strings.TrimSpace(cfg) == "" {
		return s.cat.MustRender("broadcast.current", map[string]any{
			"Config": minemsg.FormatConfig(s.store.Current()),
		})
	}
	comps, err := minemsg.ParseRichConfig(cfg)
	if err != nil {
		return s.cat.MustRender("broadcast.parse_error", map[string]any{"Error": err.Error()})
	}
	if adapterID != "" {
		if t, errMsg := s.target(adapterID); t == nil {
			return errMsg
		}
		s.store.SetOverride(adapterID, comps)
	} else {
		s.store.SetCustom(comps)
	}
	return s.cat.MustRender("broadcast.updated", map[string]any{
		"Config": minemsg.FormatConfig(comps),
	})
}

// BroadcastToggle flips the hourly broadcast on or off.
func (s *Service) BroadcastToggle(isAdmin bool) string {
	if !isAdmin {
		return s.adminOnly()
	}
	if s.store.Toggle() {
		return s.cat.MustRender("broadcast.toggled_on", nil)
	}
	return s.cat.MustRender("broadcast.toggled_off", nil)
}

// BroadcastClear drops custom content and overrides.
func (s *Service) BroadcastClear(isAdmin bool) string {
	if !isAdmin {
		return s.adminOnly()
	}
	s.store.ClearCustom()
	return s.cat.MustRender("broadcast.cleared", nil)
}

// BroadcastTest fires one full broadcast cycle immediately.
func (s *Service) BroadcastTest(ctx context.Context, isAdmin bool) string {
	if !isAdmin {
		return s.adminOnly()
	}
	s.sched.Fire(ctx)
	return s.cat.MustRender("broadcast.test_done", nil)
}

// CustomBroadcast sends an operator announcement now. raw is
// "text|click command|hover text". An empty adapterID targets every
// connected adapter.
func (s *Service) CustomBroadcast(adapterID, raw string, isAdmin bool) string {
	if !isAdmin {
		return s.adminOnly()
	}
	if strings.TrimSpace(raw) == "" {
		return s.cat.MustRender("custom.usage", nil)
	}
	parts := strings.Split(raw, "|")
	if len(parts) != 3 {
		return s.cat.MustRender("custom.bad_args", nil)
	}
	text := strings.TrimSpace(parts[0])
	clickValue := strings.TrimSpace(parts[1])
	hoverText := strings.TrimSpace(parts[2])
	if text == "" {
		return s.cat.MustRender("custom.empty_text", nil)
	}

	var targets []Target
	if adapterID != "" {
		t, errMsg := s.target(adapterID)
		if t == nil {
			return errMsg
		}
		targets = []Target{t}
	} else {
		targets = s.all()
	}

	sent := false
	for i, t := range targets {
		if s.sender.SendCustom(t, text, clickValue, hoverText) {
			sent = true
		}
		// Adapters are spaced apart like broadcast components are.
		if i < len(targets)-1 {
			time.Sleep(s.sender.Pace())
		}
	}
	if !sent {
		return s.cat.MustRender("custom.failed", nil)
	}
	return s.cat.MustRender("custom.sent", map[string]any{"Text": text})
}

// Rcon runs a console command. "restart" drops the connection so the next
// command redials.
func (s *Service) Rcon(cmd string, isAdmin bool) string {
	if !isAdmin {
		return s.adminOnly()
	}
	if s.rcon == nil {
		return s.cat.MustRender("rcon.disabled", nil)
	}
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return s.cat.MustRender("rcon.usage", nil)
	}
	if cmd == "restart" {
		_ = s.rcon.Close()
		return s.cat.MustRender("rcon.reconnecting", nil)
	}
	out, err := s.rcon.Execute(cmd)
	if err != nil {
		return s.cat.MustRender("rcon.error", map[string]any{"Error": err.Error()})
	}
	if strings.TrimSpace(out) == "" {
		return s.cat.MustRender("rcon.empty_response", nil)
	}
	return out
}
