package rconsole

import (
	"errors"
	"testing"

	"github.com/gorcon/rcon"
)

func TestNilManagerIsDisabled(t *testing.T) {
	m := New("", 25575, "secret")
	if m != nil {
		t.Fatalf("empty host should return nil manager")
	}
	if _, err := m.Execute("list"); !errors.Is(err, ErrDisabled) {
		t.Fatalf("want ErrDisabled, got %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close on nil manager: %v", err)
	}
}

func TestExecuteWrapsDialFailure(t *testing.T) {
	m := New("127.0.0.1", 25575, "secret")
	dials := 0
	m.dial = func() (*rcon.Conn, error) {
		dials++
		return nil, errors.New("connection refused")
	}
	if _, err := m.Execute("list"); err == nil {
		t.Fatalf("Execute should fail when dial fails")
	}
	if dials != 1 {
		t.Fatalf("dial attempts = %d, want 1", dials)
	}
	// A later call dials again rather than caching the failure.
	_, _ = m.Execute("list")
	if dials != 2 {
		t.Fatalf("dial attempts = %d, want 2", dials)
	}
}

func TestCloseWithoutConnect(t *testing.T) {
	m := New("127.0.0.1", 25575, "secret")
	if err := m.Close(); err != nil {
		t.Fatalf("Close before connect: %v", err)
	}
}
