package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kapu/mc-bridge-go/internal/botfilter"
	"github.com/kapu/mc-bridge-go/internal/landmark"
	"github.com/kapu/mc-bridge-go/internal/minemsg"
	"github.com/kapu/mc-bridge-go/internal/servertype"
	"github.com/kapu/mc-bridge-go/internal/wiki"
)

// WikiHandler answers "wiki [title]" with an article summary and a clickable
// link. Without a title it fetches a random article.
type WikiHandler struct {
	Base
	lookup wiki.Lookup
}

func NewWikiHandler(lookup wiki.Lookup) *WikiHandler {
	return &WikiHandler{Base: Base{prefix: "wiki", priority: 100}, lookup: lookup}
}

func (h *WikiHandler) Execute(ctx context.Context, cmd string, req *Request) (bool, error) {
	title := h.Args(cmd)

	var (
		entry *wiki.Entry
		err   error
	)
	if title == "" {
		entry, err = h.lookup.Random(ctx)
	} else {
		entry, err = h.lookup.ByTitle(ctx, title)
	}
	if errors.Is(err, wiki.ErrNotFound) {
		req.ReplyToGame(fmt.Sprintf("No wiki article named %s, check the title", title))
		return true, nil
	}
	if err != nil {
		req.ReplyToGame("Wiki lookup failed, try again later")
		return true, nil
	}

	var display string
	if title == "" {
		display = fmt.Sprintf("Did you know: %s - %s", entry.Title, entry.Content)
	} else {
		display = fmt.Sprintf("%s: %s", entry.Title, entry.Content)
	}
	hover := fmt.Sprintf("Click to open the wiki page for %s", entry.Title)

	if req.SendRich == nil || !req.SendRich(display, entry.URL, hover) {
		req.ReplyToGame(display + "\nFull article: " + entry.URL)
	}
	return true, nil
}

func (h *WikiHandler) Help() string {
	return "wiki [title] - look up the Minecraft wiki, random article without a title"
}

// ChatForwardHandler relays "chat <message>" to the bound chat groups,
// prefixed with the bridge tag and the player's name. Bot players are dropped
// silently.
type ChatForwardHandler struct {
	Base
	tag    string
	filter *botfilter.Filter
}

func NewChatForwardHandler(tag string, filter *botfilter.Filter) *ChatForwardHandler {
	return &ChatForwardHandler{Base: Base{prefix: "chat", priority: 100}, tag: tag, filter: filter}
}

func (h *ChatForwardHandler) Execute(_ context.Context, cmd string, req *Request) (bool, error) {
	text := h.Args(cmd)
	if text == "" {
		req.ReplyToGame("Provide a message to forward")
		return true, nil
	}
	name := req.Player.Name()
	if h.filter.IsBot(name) {
		return true, nil
	}
	if len(req.BoundGroups) == 0 {
		req.ReplyToGame("No chat groups are bound to this server")
		return true, nil
	}
	req.ForwardToChat(req.BoundGroups, fmt.Sprintf("%s %s: %s", h.tag, name, text))
	return true, nil
}

func (h *ChatForwardHandler) Help() string {
	return "chat <message> - forward a message to the bound chat groups"
}

// LandmarkHandler manages per-server waypoints. The list is whispered to the
// player with click-to-teleport suggestions.
type LandmarkHandler struct {
	Base
	store landmark.Store
}

func NewLandmarkHandler(store landmark.Store) *LandmarkHandler {
	return &LandmarkHandler{Base: Base{prefix: "landmark", priority: 100}, store: store}
}

const landmarkUsage = "Usage: landmark <list|add|del|edit> [name] [x y z] [description]"

func (h *LandmarkHandler) Execute(ctx context.Context, cmd string, req *Request) (bool, error) {
	args := strings.Fields(h.Args(cmd))
	if len(args) == 0 {
		req.ReplyToGame(landmarkUsage)
		return true, nil
	}

	switch args[0] {
	case "list":
		return true, h.list(ctx, req)
	case "add":
		return true, h.add(ctx, args[1:], req)
	case "del":
		return true, h.del(ctx, args[1:], req)
	case "edit":
		return true, h.edit(ctx, args[1:], req)
	default:
		req.ReplyToGame(landmarkUsage)
		return true, nil
	}
}

func (h *LandmarkHandler) list(ctx context.Context, req *Request) error {
	if req.Player.UUID == "" {
		req.ReplyToGame("Player uuid unavailable, cannot whisper the landmark list")
		return nil
	}
	table, err := h.store.All(ctx, req.AdapterID)
	if err != nil {
		req.ReplyToGame("Failed to load landmarks")
		return err
	}
	if len(table) == 0 {
		req.ReplyToGame("No landmarks recorded yet")
		return nil
	}
	comps := make([]minemsg.Component, 0, len(table))
	for name, lm := range table {
		comps = append(comps, minemsg.Component{
			Text:        fmt.Sprintf("%s: %s at %s", name, lm.Desc, lm.Pos),
			Color:       "aqua",
			ClickAction: minemsg.ClickSuggestCommand,
			ClickValue:  "/tp " + lm.Pos,
			HoverText:   "Click to teleport to " + name,
		})
	}
	if req.SendPrivate == nil || !req.SendPrivate(req.Player.UUID, req.Player.Name(), comps) {
		req.ReplyToGame("Whisper failed, is the bridge mod up to date?")
	}
	return nil
}

// position picks the explicit coordinate argument when one is given,
// otherwise the player's current block position. The fallback only applies
// on flavors that report block coordinates; anything else in the player
// block is stale or fabricated.
func position(args []string, req *Request) (pos string, rest []string, ok bool) {
	if len(args) >= 3 && looksLikeCoords(args[0], args[1], args[2]) {
		return strings.Join(args[:3], " "), args[3:], true
	}
	if req.Server != nil && !req.Server.Supports(servertype.FieldBlockX) {
		return "", args, false
	}
	if p := req.Player.Position(); p != "" {
		return p, args, true
	}
	return "", args, false
}

func looksLikeCoords(parts ...string) bool {
	for _, p := range parts {
		if p == "" {
			return false
		}
		for i, r := range p {
			if r == '-' && i == 0 && len(p) > 1 {
				continue
			}
			if r < '0' || r > '9' {
				return false
			}
		}
	}
	return true
}

func (h *LandmarkHandler) add(ctx context.Context, args []string, req *Request) error {
	if len(args) == 0 {
		req.ReplyToGame(landmarkUsage)
		return nil
	}
	name := args[0]
	if _, exists, err := h.store.Get(ctx, req.AdapterID, name); err != nil {
		req.ReplyToGame("Failed to load landmarks")
		return err
	} else if exists {
		req.ReplyToGame(fmt.Sprintf("Landmark %s already exists", name))
		return nil
	}
	pos, rest, ok := position(args[1:], req)
	if !ok {
		req.ReplyToGame("No coordinates given and player position unavailable")
		return nil
	}
	lm := landmark.Landmark{Pos: pos, Desc: strings.Join(rest, " "), Creator: req.Player.Name()}
	if err := h.store.Put(ctx, req.AdapterID, name, lm); err != nil {
		req.ReplyToGame("Failed to save landmark")
		return err
	}
	req.ReplyToGame(fmt.Sprintf("Landmark %s added", name))
	return nil
}

func (h *LandmarkHandler) del(ctx context.Context, args []string, req *Request) error {
	if len(args) == 0 {
		req.ReplyToGame(landmarkUsage)
		return nil
	}
	name := args[0]
	deleted, err := h.store.Delete(ctx, req.AdapterID, name)
	if err != nil {
		req.ReplyToGame("Failed to delete landmark")
		return err
	}
	if !deleted {
		req.ReplyToGame(fmt.Sprintf("Landmark %s does not exist", name))
		return nil
	}
	req.ReplyToGame(fmt.Sprintf("Landmark %s deleted", name))
	return nil
}

func (h *LandmarkHandler) edit(ctx context.Context, args []string, req *Request) error {
	if len(args) == 0 {
		req.ReplyToGame(landmarkUsage)
		return nil
	}
	name := args[0]
	current, exists, err := h.store.Get(ctx, req.AdapterID, name)
	if err != nil {
		req.ReplyToGame("Failed to load landmarks")
		return err
	}
	if !exists {
		req.ReplyToGame(fmt.Sprintf("Landmark %s does not exist", name))
		return nil
	}
	pos, rest, ok := position(args[1:], req)
	if !ok {
		req.ReplyToGame("No coordinates given and player position unavailable")
		return nil
	}
	current.Pos = pos
	if len(rest) > 0 {
		current.Desc = strings.Join(rest, " ")
	}
	if err := h.store.Put(ctx, req.AdapterID, name, current); err != nil {
		req.ReplyToGame("Failed to save landmark")
		return err
	}
	req.ReplyToGame(fmt.Sprintf("Landmark %s updated", name))
	return nil
}

func (h *LandmarkHandler) Help() string {
	return "landmark <list|add|del|edit> [args] - manage and browse waypoints"
}

// HelpHandler whispers the command guide to the player.
type HelpHandler struct {
	Base
	pipeline *Pipeline
}

func NewHelpHandler(p *Pipeline) *HelpHandler {
	return &HelpHandler{Base: Base{prefix: "help", exact: true, priority: 50}, pipeline: p}
}

func (h *HelpHandler) Execute(_ context.Context, _ string, req *Request) (bool, error) {
	lines := h.pipeline.HelpLines()
	if req.Player.UUID != "" && req.SendPrivate != nil {
		comps := make([]minemsg.Component, 0, len(lines)+1)
		comps = append(comps, minemsg.Component{Text: "Commands:\n", Color: "gold", Bold: true})
		for _, line := range lines {
			comps = append(comps, minemsg.Component{Text: line + "\n", Color: "gray"})
		}
		if req.SendPrivate(req.Player.UUID, req.Player.Name(), comps) {
			return true, nil
		}
	}
	req.ReplyToGame("Commands:\n" + strings.Join(lines, "\n"))
	return true, nil
}

func (h *HelpHandler) Help() string { return "help - show this command guide" }

// BotCommand is a wake-prefixed message no builtin handler claimed, packaged
// for the host chat framework. Reply is bound to the originating player and
// server, so concurrent commands cannot cross replies.
type BotCommand struct {
	ID     string
	Player minemsg.Player
	Text   string
	Reply  func(text string)
}

// CommandSink consumes relayed bot commands.
type CommandSink func(cmd BotCommand)

// BotCommandHandler is the catch-all that forwards unclaimed commands to the
// host framework. Lowest priority; matches everything.
type BotCommandHandler struct {
	Base
	sink CommandSink
}

func NewBotCommandHandler(sink CommandSink) *BotCommandHandler {
	return &BotCommandHandler{Base: Base{priority: 0}, sink: sink}
}

func (h *BotCommandHandler) Execute(_ context.Context, cmd string, req *Request) (bool, error) {
	if h.sink == nil {
		return false, nil
	}
	h.sink(BotCommand{
		ID:     uuid.NewString(),
		Player: req.Player,
		Text:   cmd,
		Reply:  req.ReplyToGame,
	})
	return true, nil
}

func (h *BotCommandHandler) Help() string {
	return "<anything else> - forwarded to the chat assistant"
}
