package router

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/kapu/mc-bridge-go/internal/obslog"
)

// Peer is one registered adapter as the router sees it.
type Peer interface {
	ID() string
	ServerName() string
	Connected() bool
	// SendChat broadcasts plain text into the peer's server.
	SendChat(text string) bool
}

// Registry tracks the live adapters by id.
type Registry struct {
	mu    sync.RWMutex
	peers map[string]Peer
}

func NewRegistry() *Registry {
	return &Registry{peers: make(map[string]Peer)}
}

func (r *Registry) Register(p Peer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.peers[p.ID()]; dup {
		return fmt.Errorf("adapter %s already registered", p.ID())
	}
	r.peers[p.ID()] = p
	return nil
}

func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.peers, id)
}

func (r *Registry) Get(id string) (Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.peers[id]
	return p, ok
}

// All returns a snapshot of the registered peers.
func (r *Registry) All() []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		out = append(out, p)
	}
	return out
}

// Router relays game events between servers. Each relay fans out
// concurrently; a slow or failing peer never blocks the others.
type Router struct {
	reg    *Registry
	logger *zap.Logger
}

func New(reg *Registry) *Router {
	return &Router{reg: reg, logger: obslog.L().Named("router")}
}

// RouteChat relays a chat line to every other server, tagged with the origin
// server's name.
func (r *Router) RouteChat(originID, originServer, player, message string) {
	r.broadcastToOthers(originID, fmt.Sprintf("[%s] %s: %s", originServer, player, message))
}

// RouteJoin relays a join notice.
func (r *Router) RouteJoin(originID, originServer, player string) {
	r.broadcastToOthers(originID, fmt.Sprintf("[%s] %s joined the game", originServer, player))
}

// RouteQuit relays a quit notice.
func (r *Router) RouteQuit(originID, originServer, player string) {
	r.broadcastToOthers(originID, fmt.Sprintf("[%s] %s left the game", originServer, player))
}

// RouteDeath relays a death message as reported by the origin server.
func (r *Router) RouteDeath(originID, originServer, message string) {
	r.broadcastToOthers(originID, fmt.Sprintf("[%s] %s", originServer, message))
}

// BroadcastAll sends text to every connected server. excludeID skips one
// adapter; pass "" to reach them all.
func (r *Router) BroadcastAll(text, excludeID string) {
	r.broadcastToOthers(excludeID, text)
}

// broadcastToOthers sends text to every connected peer except the origin and
// waits for the fan-out to finish. Connectivity is re-checked per peer at
// dispatch time.
func (r *Router) broadcastToOthers(originID, text string) {
	var wg sync.WaitGroup
	for _, p := range r.reg.All() {
		if p.ID() == originID {
			continue
		}
		wg.Add(1)
		go func(p Peer) {
			defer wg.Done()
			if !p.Connected() {
				return
			}
			if !p.SendChat(text) {
				r.logger.Warn("cross-server relay dropped",
					zap.String("target", p.ID()), zap.String("text", text))
			}
		}(p)
	}
	wg.Wait()
}
