package dispatch

import (
	"context"
	"strings"
	"testing"

	"github.com/kapu/mc-bridge-go/internal/botfilter"
	"github.com/kapu/mc-bridge-go/internal/landmark"
	"github.com/kapu/mc-bridge-go/internal/minemsg"
	"github.com/kapu/mc-bridge-go/internal/servertype"
	"github.com/kapu/mc-bridge-go/internal/wiki"
)

type stubLookup struct {
	byTitle func(title string) (*wiki.Entry, error)
	random  func() (*wiki.Entry, error)
}

func (s *stubLookup) Random(context.Context) (*wiki.Entry, error) { return s.random() }
func (s *stubLookup) ByTitle(_ context.Context, title string) (*wiki.Entry, error) {
	return s.byTitle(title)
}

func TestWikiHandlerByTitle(t *testing.T) {
	lookup := &stubLookup{byTitle: func(title string) (*wiki.Entry, error) {
		if title != "Creeper" {
			t.Fatalf("lookup title = %q", title)
		}
		return &wiki.Entry{Title: "Creeper", Content: "A hostile mob.", URL: "https://zh.minecraft.wiki/w/Creeper"}, nil
	}}
	h := NewWikiHandler(lookup)

	var richText, richURL, richHover string
	req := testRequest()
	req.SendRich = func(text, url, hover string) bool {
		richText, richURL, richHover = text, url, hover
		return true
	}

	handled, err := h.Execute(context.Background(), "wiki Creeper", req)
	if err != nil || !handled {
		t.Fatalf("Execute = (%v, %v)", handled, err)
	}
	if richText != "Creeper: A hostile mob." {
		t.Fatalf("rich text = %q", richText)
	}
	if richURL != "https://zh.minecraft.wiki/w/Creeper" {
		t.Fatalf("rich url = %q", richURL)
	}
	if !strings.Contains(richHover, "Creeper") {
		t.Fatalf("hover = %q", richHover)
	}
}

func TestWikiHandlerRandomWhenNoTitle(t *testing.T) {
	lookup := &stubLookup{random: func() (*wiki.Entry, error) {
		return &wiki.Entry{Title: "Torch", Content: "Light source.", URL: "u"}, nil
	}}
	h := NewWikiHandler(lookup)

	var sent string
	req := testRequest()
	req.SendRich = func(text, _, _ string) bool {
		sent = text
		return true
	}
	if handled, _ := h.Execute(context.Background(), "wiki", req); !handled {
		t.Fatalf("not handled")
	}
	if !strings.HasPrefix(sent, "Did you know: Torch") {
		t.Fatalf("random display = %q", sent)
	}
}

func TestWikiHandlerNotFound(t *testing.T) {
	lookup := &stubLookup{byTitle: func(string) (*wiki.Entry, error) { return nil, wiki.ErrNotFound }}
	h := NewWikiHandler(lookup)

	var reply string
	req := testRequest()
	req.ReplyToGame = func(s string) { reply = s }
	if handled, err := h.Execute(context.Background(), "wiki Nope", req); !handled || err != nil {
		t.Fatalf("Execute = (%v, %v)", handled, err)
	}
	if !strings.Contains(reply, "Nope") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestWikiHandlerFallsBackWithoutRichSend(t *testing.T) {
	lookup := &stubLookup{byTitle: func(string) (*wiki.Entry, error) {
		return &wiki.Entry{Title: "Creeper", Content: "Boom.", URL: "https://example/w/Creeper"}, nil
	}}
	h := NewWikiHandler(lookup)

	var reply string
	req := testRequest()
	req.ReplyToGame = func(s string) { reply = s }
	req.SendRich = nil
	if handled, _ := h.Execute(context.Background(), "wiki Creeper", req); !handled {
		t.Fatalf("not handled")
	}
	if !strings.Contains(reply, "https://example/w/Creeper") {
		t.Fatalf("fallback reply should carry the url: %q", reply)
	}
}

func TestChatForwardHandler(t *testing.T) {
	h := NewChatForwardHandler("[MC]", botfilter.New(true, []string{"bot_", "Bot_"}, nil))

	var groups []string
	var text string
	req := testRequest()
	req.BoundGroups = []string{"g1", "g2"}
	req.ForwardToChat = func(g []string, s string) { groups, text = g, s }

	if handled, _ := h.Execute(context.Background(), "chat hello there", req); !handled {
		t.Fatalf("not handled")
	}
	if len(groups) != 2 {
		t.Fatalf("groups = %v", groups)
	}
	if text != "[MC] Steve: hello there" {
		t.Fatalf("forwarded text = %q", text)
	}
}

func TestChatForwardHandlerDropsBots(t *testing.T) {
	h := NewChatForwardHandler("[MC]", botfilter.New(true, []string{"bot_", "Bot_"}, nil))

	forwarded := false
	req := testRequest()
	req.Player = minemsg.Player{Nickname: "Bot_Farmer"}
	req.BoundGroups = []string{"g1"}
	req.ForwardToChat = func([]string, string) { forwarded = true }

	if handled, _ := h.Execute(context.Background(), "chat spam", req); !handled {
		t.Fatalf("bot message should still be claimed")
	}
	if forwarded {
		t.Fatalf("bot message was forwarded")
	}
}

func TestChatForwardHandlerNoGroups(t *testing.T) {
	h := NewChatForwardHandler("[MC]", botfilter.New(true, nil, nil))
	var reply string
	req := testRequest()
	req.ReplyToGame = func(s string) { reply = s }
	if handled, _ := h.Execute(context.Background(), "chat hi", req); !handled {
		t.Fatalf("not handled")
	}
	if !strings.Contains(reply, "No chat groups") {
		t.Fatalf("reply = %q", reply)
	}
}

func intp(v int) *int { return &v }

func landmarkRequest() *Request {
	req := testRequest()
	req.Player = minemsg.Player{
		Nickname: "Steve",
		UUID:     "u-1",
		BlockX:   intp(10), BlockY: intp(64), BlockZ: intp(-5),
	}
	return req
}

func TestLandmarkAddListDelete(t *testing.T) {
	store := landmark.NewFileStore(t.TempDir())
	h := NewLandmarkHandler(store)
	ctx := context.Background()

	var replies []string
	req := landmarkRequest()
	req.ReplyToGame = func(s string) { replies = append(replies, s) }

	// Explicit coordinates and a description.
	if handled, err := h.Execute(ctx, "landmark add base 100 64 -20 main base", req); !handled || err != nil {
		t.Fatalf("add: (%v, %v)", handled, err)
	}
	lm, ok, _ := store.Get(ctx, "srv1", "base")
	if !ok {
		t.Fatalf("landmark not stored")
	}
	if lm.Pos != "100 64 -20" || lm.Desc != "main base" || lm.Creator != "Steve" {
		t.Fatalf("stored = %+v", lm)
	}

	// No coordinates: falls back to the player's block position.
	if handled, err := h.Execute(ctx, "landmark add here", req); !handled || err != nil {
		t.Fatalf("add here: (%v, %v)", handled, err)
	}
	lm, _, _ = store.Get(ctx, "srv1", "here")
	if lm.Pos != "10 64 -5" {
		t.Fatalf("fallback pos = %q", lm.Pos)
	}

	// Duplicate add is rejected.
	if handled, _ := h.Execute(ctx, "landmark add base 0 0 0", req); !handled {
		t.Fatalf("duplicate add not handled")
	}
	if last := replies[len(replies)-1]; !strings.Contains(last, "already exists") {
		t.Fatalf("duplicate reply = %q", last)
	}

	// List whispers click-to-teleport components.
	var comps []minemsg.Component
	req.SendPrivate = func(uuid, nickname string, c []minemsg.Component) bool {
		if uuid != "u-1" {
			t.Fatalf("whisper uuid = %q", uuid)
		}
		comps = c
		return true
	}
	if handled, err := h.Execute(ctx, "landmark list", req); !handled || err != nil {
		t.Fatalf("list: (%v, %v)", handled, err)
	}
	if len(comps) != 2 {
		t.Fatalf("list components = %d", len(comps))
	}
	for _, c := range comps {
		if c.ClickAction != minemsg.ClickSuggestCommand || !strings.HasPrefix(c.ClickValue, "/tp ") {
			t.Fatalf("component not clickable: %+v", c)
		}
	}

	if handled, err := h.Execute(ctx, "landmark del here", req); !handled || err != nil {
		t.Fatalf("del: (%v, %v)", handled, err)
	}
	if _, ok, _ := store.Get(ctx, "srv1", "here"); ok {
		t.Fatalf("landmark survived delete")
	}
}

func TestLandmarkEdit(t *testing.T) {
	store := landmark.NewFileStore(t.TempDir())
	h := NewLandmarkHandler(store)
	ctx := context.Background()

	req := landmarkRequest()
	_, _ = h.Execute(ctx, "landmark add base 0 60 0 old desc", req)
	if handled, err := h.Execute(ctx, "landmark edit base 5 70 5 new desc", req); !handled || err != nil {
		t.Fatalf("edit: (%v, %v)", handled, err)
	}
	lm, _, _ := store.Get(ctx, "srv1", "base")
	if lm.Pos != "5 70 5" || lm.Desc != "new desc" {
		t.Fatalf("edited = %+v", lm)
	}

	var reply string
	req.ReplyToGame = func(s string) { reply = s }
	_, _ = h.Execute(ctx, "landmark edit ghost", req)
	if !strings.Contains(reply, "does not exist") {
		t.Fatalf("edit missing reply = %q", reply)
	}
}

func TestLandmarkPositionDefaultNeedsCoordinateSupport(t *testing.T) {
	store := landmark.NewFileStore(t.TempDir())
	h := NewLandmarkHandler(store)

	// Vanilla frames carry no block coordinates, so whatever is sitting in
	// the player block must not become the landmark position.
	vanilla := servertype.Resolve("vanilla")
	req := landmarkRequest()
	req.Server = &vanilla
	var reply string
	req.ReplyToGame = func(s string) { reply = s }

	if handled, _ := h.Execute(context.Background(), "landmark add spawn", req); !handled {
		t.Fatalf("not handled")
	}
	if !strings.Contains(reply, "position unavailable") {
		t.Fatalf("reply = %q", reply)
	}

	// Explicit coordinates still work on those flavors.
	if handled, _ := h.Execute(context.Background(), "landmark add spawn 1 64 -2", req); !handled {
		t.Fatalf("not handled")
	}
	lm, exists, err := store.Get(context.Background(), "srv1", "spawn")
	if err != nil || !exists {
		t.Fatalf("landmark missing after explicit add: %v", err)
	}
	if lm.Pos != "1 64 -2" {
		t.Fatalf("pos = %q", lm.Pos)
	}

	// A coordinate-reporting flavor keeps the position default.
	fabric := servertype.Resolve("fabric")
	req.Server = &fabric
	if handled, _ := h.Execute(context.Background(), "landmark add base outpost", req); !handled {
		t.Fatalf("not handled")
	}
	lm, exists, err = store.Get(context.Background(), "srv1", "base")
	if err != nil || !exists {
		t.Fatalf("landmark missing after default add: %v", err)
	}
	if lm.Pos != "10 64 -5" {
		t.Fatalf("defaulted pos = %q", lm.Pos)
	}
}

func TestLandmarkUsage(t *testing.T) {
	h := NewLandmarkHandler(landmark.NewFileStore(t.TempDir()))
	var reply string
	req := landmarkRequest()
	req.ReplyToGame = func(s string) { reply = s }
	_, _ = h.Execute(context.Background(), "landmark", req)
	if !strings.HasPrefix(reply, "Usage:") {
		t.Fatalf("reply = %q", reply)
	}
}

func TestHelpHandlerWhispers(t *testing.T) {
	p := NewPipeline(nil)
	p.Register(NewWikiHandler(&stubLookup{}))
	h := NewHelpHandler(p)
	p.Register(h)

	var comps []minemsg.Component
	req := landmarkRequest()
	req.SendPrivate = func(_, _ string, c []minemsg.Component) bool {
		comps = c
		return true
	}
	if handled, _ := h.Execute(context.Background(), "help", req); !handled {
		t.Fatalf("not handled")
	}
	if len(comps) < 2 {
		t.Fatalf("help whisper too short: %d components", len(comps))
	}
}

func TestHelpHandlerFallsBackToPlainReply(t *testing.T) {
	p := NewPipeline(nil)
	p.Register(NewWikiHandler(&stubLookup{}))
	h := NewHelpHandler(p)

	var reply string
	req := testRequest() // no uuid
	req.ReplyToGame = func(s string) { reply = s }
	if handled, _ := h.Execute(context.Background(), "help", req); !handled {
		t.Fatalf("not handled")
	}
	if !strings.Contains(reply, "wiki") {
		t.Fatalf("plain help missing handler line: %q", reply)
	}
}

func TestBotCommandHandlerForwardsToSink(t *testing.T) {
	var got BotCommand
	h := NewBotCommandHandler(func(cmd BotCommand) { got = cmd })

	replies := 0
	req := testRequest()
	req.ReplyToGame = func(string) { replies++ }

	if handled, _ := h.Execute(context.Background(), "weather tomorrow", req); !handled {
		t.Fatalf("not handled")
	}
	if got.ID == "" {
		t.Fatalf("missing correlation id")
	}
	if got.Text != "weather tomorrow" || got.Player.Name() != "Steve" {
		t.Fatalf("command = %+v", got)
	}
	got.Reply("it will rain")
	if replies != 1 {
		t.Fatalf("reply not routed back to origin")
	}
}

func TestBotCommandHandlerWithoutSinkDeclines(t *testing.T) {
	h := NewBotCommandHandler(nil)
	if handled, _ := h.Execute(context.Background(), "anything", testRequest()); handled {
		t.Fatalf("nil sink should decline")
	}
}
