package opsapi

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/kapu/mc-bridge-go/internal/binding"
	"github.com/kapu/mc-bridge-go/internal/broadcast"
	"github.com/kapu/mc-bridge-go/internal/chatops"
	"github.com/kapu/mc-bridge-go/internal/minemsg"
	"github.com/kapu/mc-bridge-go/internal/msgcat"
	"github.com/kapu/mc-bridge-go/internal/router"
)

type fakeTarget struct {
	id        string
	server    string
	connected bool

	chats  []string
	frames []minemsg.OutboundFrame
}

func (f *fakeTarget) ID() string         { return f.id }
func (f *fakeTarget) ServerName() string { return f.server }
func (f *fakeTarget) Connected() bool    { return f.connected }
func (f *fakeTarget) SendChat(text string) bool {
	f.chats = append(f.chats, text)
	return true
}
func (f *fakeTarget) SendChatFrom(text, sender string) bool {
	f.chats = append(f.chats, sender+": "+text)
	return true
}
func (f *fakeTarget) Send(frame minemsg.OutboundFrame) bool {
	f.frames = append(f.frames, frame)
	return true
}

func newTestServer(t *testing.T, targets ...*fakeTarget) (*Server, *binding.Store) {
	t.Helper()
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	byID := make(map[string]*fakeTarget, len(targets))
	for _, tg := range targets {
		byID[tg.id] = tg
	}
	resolve := func(id string) (chatops.Target, bool) {
		tg, ok := byID[id]
		if !ok {
			return nil, false
		}
		return tg, true
	}
	all := func() []chatops.Target {
		out := make([]chatops.Target, 0, len(targets))
		for _, tg := range targets {
			out = append(out, tg)
		}
		return out
	}
	reg := router.NewRegistry()
	for _, tg := range targets {
		if err := reg.Register(tg); err != nil {
			t.Fatalf("register %s: %v", tg.id, err)
		}
	}
	rt := router.New(reg)
	bindings := binding.Open(t.TempDir())
	store := broadcast.OpenConfig(t.TempDir())
	sender := broadcast.NewSender(time.Millisecond)
	sched := broadcast.NewScheduler(store, sender, nil, func() []broadcast.Conn {
		out := make([]broadcast.Conn, 0, len(targets))
		for _, tg := range targets {
			out = append(out, tg)
		}
		return out
	})
	ops := chatops.NewService(resolve, all, rt, bindings, store, sender, sched, nil, cat)
	return NewServer(ops, all, bindings, []string{"admin-1"}), bindings
}

func TestBindCommandRoutes(t *testing.T) {
	tg := &fakeTarget{id: "srv1", server: "Hub", connected: true}
	s, bindings := newTestServer(t, tg)

	reply := s.HandleEvent(context.Background(), Event{GroupID: "g1", UserID: "admin-1", Message: "/mcbind srv1"})
	if !strings.Contains(reply, "now bound") {
		t.Fatalf("bind reply = %q", reply)
	}
	if !bindings.IsBound("g1", "Hub") {
		t.Fatalf("binding not stored")
	}

	reply = s.HandleEvent(context.Background(), Event{GroupID: "g1", UserID: "someone", Message: "/mcbind srv1"})
	if !strings.Contains(reply, "administrators") {
		t.Fatalf("non-admin reply = %q", reply)
	}
}

func TestPlainMessageRelayedToBoundServersOnly(t *testing.T) {
	a := &fakeTarget{id: "srv1", server: "Hub", connected: true}
	b := &fakeTarget{id: "srv2", server: "Creative", connected: true}
	s, bindings := newTestServer(t, a, b)
	bindings.Bind("g1", "Hub")

	reply := s.HandleEvent(context.Background(), Event{GroupID: "g1", UserID: "u1", Nickname: "Alice", Message: "hello miners"})
	if reply != "" {
		t.Fatalf("plain message reply = %q, want empty", reply)
	}
	if len(a.chats) != 1 || a.chats[0] != "Alice: hello miners" {
		t.Fatalf("bound server chats = %v", a.chats)
	}
	if len(b.chats) != 0 {
		t.Fatalf("unbound server received relay: %v", b.chats)
	}
}

func TestSayAllCommand(t *testing.T) {
	a := &fakeTarget{id: "srv1", server: "Hub", connected: true}
	b := &fakeTarget{id: "srv2", server: "Creative", connected: true}
	s, _ := newTestServer(t, a, b)

	reply := s.HandleEvent(context.Background(), Event{GroupID: "g1", UserID: "u1", Nickname: "Alice", Message: "/mcsayall restart at noon"})
	if !strings.Contains(reply, "every connected server") {
		t.Fatalf("sayall reply = %q", reply)
	}
	for _, tg := range []*fakeTarget{a, b} {
		if len(tg.chats) != 1 || tg.chats[0] != "Alice: restart at noon" {
			t.Fatalf("%s chats = %v", tg.id, tg.chats)
		}
	}
}

func TestStatusWithoutAdapterListsAll(t *testing.T) {
	a := &fakeTarget{id: "srv1", server: "Hub", connected: true}
	b := &fakeTarget{id: "srv2", server: "Creative", connected: false}
	s, _ := newTestServer(t, a, b)

	reply := s.HandleEvent(context.Background(), Event{GroupID: "g1", UserID: "u1", Message: "/mcstatus"})
	if !strings.Contains(reply, "srv1") || !strings.Contains(reply, "srv2") {
		t.Fatalf("status reply = %q", reply)
	}
}

func TestCustomBroadcastAdapterArg(t *testing.T) {
	a := &fakeTarget{id: "srv1", server: "Hub", connected: true}
	b := &fakeTarget{id: "srv2", server: "Creative", connected: true}
	s, _ := newTestServer(t, a, b)

	reply := s.HandleEvent(context.Background(), Event{
		GroupID: "g1", UserID: "admin-1",
		Message: "/mccustom @srv2 Restarting soon|/spawn|Back to spawn",
	})
	if !strings.Contains(reply, "sent") {
		t.Fatalf("custom reply = %q", reply)
	}
	if len(a.frames) != 0 || len(b.frames) != 1 {
		t.Fatalf("frames = %d/%d, want 0/1", len(a.frames), len(b.frames))
	}
}

func TestUnknownCommand(t *testing.T) {
	s, _ := newTestServer(t)
	reply := s.HandleEvent(context.Background(), Event{GroupID: "g1", UserID: "u1", Message: "/mcdance"})
	if !strings.Contains(reply, "/mchelp") {
		t.Fatalf("unknown command reply = %q", reply)
	}
}

func TestHTTPEventRoundTrip(t *testing.T) {
	tg := &fakeTarget{id: "srv1", server: "Hub", connected: true}
	s, _ := newTestServer(t, tg)

	body, _ := json.Marshal(Event{GroupID: "g1", UserID: "u1", Message: "/mchelp"})
	var rctx fasthttp.RequestCtx
	rctx.Request.Header.SetMethod(fasthttp.MethodPost)
	rctx.Request.SetRequestURI("/event")
	rctx.Request.SetBody(body)

	s.handle(&rctx)

	if rctx.Response.StatusCode() != fasthttp.StatusOK {
		t.Fatalf("status = %d", rctx.Response.StatusCode())
	}
	var out struct {
		Reply string `json:"reply"`
	}
	if err := json.Unmarshal(rctx.Response.Body(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.Contains(out.Reply, "/mcbind") {
		t.Fatalf("help reply = %q", out.Reply)
	}
}

func TestHTTPRejectsBadRequests(t *testing.T) {
	s, _ := newTestServer(t)

	var rctx fasthttp.RequestCtx
	rctx.Request.Header.SetMethod(fasthttp.MethodGet)
	rctx.Request.SetRequestURI("/event")
	s.handle(&rctx)
	if rctx.Response.StatusCode() != fasthttp.StatusNotFound {
		t.Fatalf("GET status = %d", rctx.Response.StatusCode())
	}

	var bad fasthttp.RequestCtx
	bad.Request.Header.SetMethod(fasthttp.MethodPost)
	bad.Request.SetRequestURI("/event")
	bad.Request.SetBody([]byte("{not json"))
	s.handle(&bad)
	if bad.Response.StatusCode() != fasthttp.StatusBadRequest {
		t.Fatalf("bad body status = %d", bad.Response.StatusCode())
	}
}
