package transport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/kapu/mc-bridge-go/internal/obslog"
)

// State of one managed connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateFatallyClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateFatallyClosed:
		return "fatally_closed"
	default:
		return "disconnected"
	}
}

// FrameHandler receives one inbound text frame. Handlers are invoked
// synchronously from the read loop, so frames from one connection are always
// handled in arrival order.
type FrameHandler func(raw []byte)

// StateHandler observes state transitions.
type StateHandler func(State)

// Manager owns at most one live duplex connection to a game-server endpoint
// and drives the reconnect state machine:
//
//	Disconnected → Connecting → Connected → (Disconnected | FatallyClosed)
type Manager struct {
	url     string
	headers http.Header

	reconnectInterval time.Duration
	maxRetries        int
	pingInterval      time.Duration
	pingTimeout       time.Duration

	mu           sync.RWMutex
	conn         *websocket.Conn
	state        State
	retryCount   int
	totalRetries int

	handler  FrameHandler
	stateCbs []StateHandler

	stopCh   chan struct{}
	stopOnce sync.Once

	dial   func(ctx context.Context) (*websocket.Conn, error)
	logger *zap.Logger
}

func NewManager(url string, headers http.Header, reconnectInterval time.Duration, maxRetries int) *Manager {
	m := &Manager{
		url:               url,
		headers:           headers,
		reconnectInterval: reconnectInterval,
		maxRetries:        maxRetries,
		pingInterval:      30 * time.Second,
		pingTimeout:       10 * time.Second,
		state:             StateDisconnected,
		stopCh:            make(chan struct{}),
		logger:            obslog.L().Named("transport"),
	}
	m.dial = m.dialWS
	return m
}

// OnFrame registers the single frame handler. Must be called before Run.
func (m *Manager) OnFrame(h FrameHandler) { m.handler = h }

// OnStateChange registers a state observer. Must be called before Run.
func (m *Manager) OnStateChange(cb StateHandler) { m.stateCbs = append(m.stateCbs, cb) }

func (m *Manager) dialWS(ctx context.Context) (*websocket.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, resp, err := websocket.Dial(dialCtx, m.url, &websocket.DialOptions{
		HTTPHeader:      m.headers,
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		if resp != nil {
			return nil, &HandshakeError{Status: resp.StatusCode, Err: err}
		}
		return nil, err
	}
	return conn, nil
}

// Run drives the connect/receive loop until the context is cancelled, Close
// is called, or a fatal error stops reconnection permanently.
func (m *Manager) Run(ctx context.Context) {
	for {
		if m.stopped(ctx) {
			m.setState(StateDisconnected)
			return
		}
		m.setState(StateConnecting)
		m.logger.Info("connecting", zap.String("url", m.url))

		conn, err := m.dial(ctx)
		if err == nil {
			m.mu.Lock()
			m.conn = conn
			m.retryCount = 0
			m.totalRetries = 0
			m.mu.Unlock()
			m.setState(StateConnected)
			m.logger.Info("connected", zap.String("url", m.url))

			err = m.serve(ctx, conn)

			m.mu.Lock()
			m.conn = nil
			m.mu.Unlock()
			if m.stopped(ctx) {
				m.setState(StateDisconnected)
				return
			}
			m.setState(StateDisconnected)
		}

		if Classify(err) == Fatal {
			m.logger.Error("fatal transport error, reconnection stopped", zap.Error(err))
			m.setState(StateFatallyClosed)
			return
		}

		m.mu.Lock()
		m.retryCount++
		m.totalRetries++
		retry, total := m.retryCount, m.totalRetries
		m.mu.Unlock()

		if total >= m.maxRetries {
			m.logger.Error("retry budget exhausted, reconnection stopped",
				zap.Int("total_retries", total), zap.Int("max_retries", m.maxRetries))
			m.setState(StateFatallyClosed)
			return
		}

		wait := Backoff(m.reconnectInterval, retry)
		m.logger.Warn("connection lost, backing off",
			zap.Error(err), zap.Duration("wait", wait),
			zap.Int("retry", retry), zap.Int("total_retries", total))
		if !m.sleep(ctx, wait) {
			m.setState(StateDisconnected)
			return
		}
	}
}

// serve reads frames until the connection drops, keeping the link alive with
// periodic pings in a companion goroutine.
func (m *Manager) serve(ctx context.Context, conn *websocket.Conn) error {
	pingCtx, cancelPing := context.WithCancel(ctx)
	defer cancelPing()
	go m.pingLoop(pingCtx, conn)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			_ = conn.Close(websocket.StatusGoingAway, "read failed")
			return err
		}
		m.logger.Debug("frame received", zap.Int("bytes", len(data)))
		if m.handler != nil {
			m.handler(data)
		}
	}
}

func (m *Manager) pingLoop(ctx context.Context, conn *websocket.Conn) {
	t := time.NewTicker(m.pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, m.pingTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				m.logger.Warn("ping failed, dropping connection", zap.Error(err))
				// Unblocks the read loop; classified there as retryable.
				_ = conn.Close(websocket.StatusGoingAway, "ping timeout")
				return
			}
		}
	}
}

// Send writes one frame over the live connection. It fails fast with false
// when no connection is live; it never blocks indefinitely.
func (m *Manager) Send(v any) bool {
	m.mu.RLock()
	conn, state := m.conn, m.state
	m.mu.RUnlock()
	if conn == nil || state != StateConnected {
		m.logger.Warn("send dropped, not connected", zap.String("state", state.String()))
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, conn, v); err != nil {
		m.logger.Error("send failed", zap.Error(err))
		return false
	}
	return true
}

// Close stops reconnection and tears down any live connection. Idempotent.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.mu.Lock()
	conn := m.conn
	m.conn = nil
	m.mu.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}
}

// Connected reports whether a connection is currently live.
func (m *Manager) Connected() bool { return m.State() == StateConnected }

// State returns a snapshot of the connection state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Retries returns the current and total retry counters.
func (m *Manager) Retries() (retry, total int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.retryCount, m.totalRetries
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	changed := m.state != s
	m.state = s
	m.mu.Unlock()
	if !changed {
		return
	}
	for _, cb := range m.stateCbs {
		cb(s)
	}
}

func (m *Manager) stopped(ctx context.Context) bool {
	select {
	case <-m.stopCh:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// sleep waits for d, returning false when cancelled.
func (m *Manager) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-m.stopCh:
		return false
	case <-t.C:
		return true
	}
}
