package rconsole

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/gorcon/rcon"
	"go.uber.org/zap"

	"github.com/kapu/mc-bridge-go/internal/obslog"
)

// ErrDisabled reports that no remote console endpoint is configured.
var ErrDisabled = errors.New("rcon: not configured")

// Manager holds one lazily-dialed remote console connection. Commands are
// serialized; a stale connection is redialed once per call.
type Manager struct {
	addr     string
	password string

	mu   sync.Mutex
	conn *rcon.Conn

	dial   func() (*rcon.Conn, error)
	logger *zap.Logger
}

// New returns a Manager, or nil when host is empty. Callers treat a nil
// Manager as disabled.
func New(host string, port int, password string) *Manager {
	if host == "" {
		return nil
	}
	m := &Manager{
		addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		password: password,
		logger:   obslog.L().Named("rcon"),
	}
	m.dial = func() (*rcon.Conn, error) {
		return rcon.Dial(m.addr, m.password)
	}
	return m
}

// Execute runs one console command and returns the server's reply.
func (m *Manager) Execute(cmd string) (string, error) {
	if m == nil {
		return "", ErrDisabled
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, err := m.getConn()
	if err != nil {
		return "", fmt.Errorf("rcon connect: %w", err)
	}

	resp, err := conn.Execute(cmd)
	if err == nil {
		return resp, nil
	}

	// Stale connection. Drop it and retry once with a fresh dial.
	m.logger.Warn("rcon command failed, redialing", zap.Error(err))
	_ = m.conn.Close()
	m.conn = nil

	conn, err = m.getConn()
	if err != nil {
		return "", fmt.Errorf("rcon reconnect: %w", err)
	}
	resp, err = conn.Execute(cmd)
	if err != nil {
		_ = m.conn.Close()
		m.conn = nil
		return "", fmt.Errorf("rcon execute after reconnect: %w", err)
	}
	return resp, nil
}

func (m *Manager) getConn() (*rcon.Conn, error) {
	if m.conn != nil {
		return m.conn, nil
	}
	conn, err := m.dial()
	if err != nil {
		return nil, err
	}
	m.logger.Info("rcon connected", zap.String("addr", m.addr))
	m.conn = conn
	return conn, nil
}

// Close tears down the connection if one is live. Safe on a nil Manager.
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		err := m.conn.Close()
		m.conn = nil
		return err
	}
	return nil
}
