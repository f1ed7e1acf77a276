package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, Retryable},
		{"generic", errors.New("connection refused"), Retryable},
		{"normal close", websocket.CloseError{Code: websocket.StatusNormalClosure}, Retryable},
		{"going away", websocket.CloseError{Code: websocket.StatusGoingAway}, Retryable},
		{"policy violation", websocket.CloseError{Code: websocket.StatusPolicyViolation}, Fatal},
		{"unsupported data", websocket.CloseError{Code: websocket.StatusUnsupportedData}, Fatal},
		{"mandatory extension", websocket.CloseError{Code: websocket.StatusMandatoryExtension}, Fatal},
		{"handshake 401", &HandshakeError{Status: 401, Err: errors.New("unauthorized")}, Fatal},
		{"handshake 403", &HandshakeError{Status: 403, Err: errors.New("forbidden")}, Fatal},
		{"handshake 404", &HandshakeError{Status: 404, Err: errors.New("not found")}, Fatal},
		{"handshake 500", &HandshakeError{Status: 500, Err: errors.New("boom")}, Retryable},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("%s: Classify = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestBackoffMonotonicAndCapped(t *testing.T) {
	interval := 10 * time.Second
	prev := time.Duration(0)
	for attempt := 1; attempt <= 10; attempt++ {
		d := Backoff(interval, attempt)
		if d < prev {
			t.Fatalf("backoff decreased at attempt %d: %v < %v", attempt, d, prev)
		}
		want := interval * time.Duration(attempt)
		if want > 60*time.Second {
			want = 60 * time.Second
		}
		if d != want {
			t.Fatalf("Backoff(%v, %d) = %v, want %v", interval, attempt, d, want)
		}
		prev = d
	}
	if Backoff(interval, 0) != interval {
		t.Fatalf("attempt < 1 should behave like attempt 1")
	}
}

func TestSendFailsFastWhenDisconnected(t *testing.T) {
	m := NewManager("ws://127.0.0.1:1/ws", nil, time.Second, 3)
	if m.Send(map[string]any{"api": "broadcast"}) {
		t.Fatalf("Send should return false with no live connection")
	}
}

func TestRunStopsAfterRetryBudget(t *testing.T) {
	m := NewManager("ws://test/ws", nil, time.Millisecond, 3)
	dials := 0
	m.dial = func(ctx context.Context) (*websocket.Conn, error) {
		dials++
		return nil, errors.New("connection refused")
	}

	done := make(chan struct{})
	go func() {
		m.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not stop after exhausting retries")
	}
	if m.State() != StateFatallyClosed {
		t.Fatalf("state = %v, want fatally closed", m.State())
	}
	if dials != 3 {
		t.Fatalf("dial attempts = %d, want 3", dials)
	}
	if _, total := m.Retries(); total != 3 {
		t.Fatalf("total retries = %d, want 3", total)
	}
}

func TestRunStopsImmediatelyOnFatalError(t *testing.T) {
	m := NewManager("ws://test/ws", nil, time.Millisecond, 5)
	dials := 0
	m.dial = func(ctx context.Context) (*websocket.Conn, error) {
		dials++
		return nil, &HandshakeError{Status: 401, Err: errors.New("unauthorized")}
	}

	var states []State
	m.OnStateChange(func(s State) { states = append(states, s) })

	done := make(chan struct{})
	go func() {
		m.Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not stop on fatal error")
	}
	if dials != 1 {
		t.Fatalf("fatal error should not be retried, dials = %d", dials)
	}
	if m.State() != StateFatallyClosed {
		t.Fatalf("state = %v, want fatally closed", m.State())
	}
	if len(states) == 0 || states[len(states)-1] != StateFatallyClosed {
		t.Fatalf("state observer missed fatal transition: %v", states)
	}
}

func TestCloseStopsRunAndIsIdempotent(t *testing.T) {
	m := NewManager("ws://test/ws", nil, time.Hour, 100)
	m.dial = func(ctx context.Context) (*websocket.Conn, error) {
		return nil, errors.New("connection refused")
	}

	done := make(chan struct{})
	go func() {
		m.Run(context.Background())
		close(done)
	}()
	// Give the loop a moment to enter its backoff sleep.
	time.Sleep(50 * time.Millisecond)
	m.Close()
	m.Close()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not unwind after Close")
	}
	if m.State() == StateConnected {
		t.Fatalf("closed manager reports connected")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	m := NewManager("ws://test/ws", nil, time.Hour, 100)
	m.dial = func(ctx context.Context) (*websocket.Conn, error) {
		return nil, errors.New("connection refused")
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not unwind after context cancel")
	}
}
