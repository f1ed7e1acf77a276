package transport

import (
	"errors"
	"fmt"
	"time"

	"nhooyr.io/websocket"
)

// Class partitions connection failures into those worth retrying and those
// that need operator intervention.
type Class int

const (
	Retryable Class = iota
	Fatal
)

func (c Class) String() string {
	if c == Fatal {
		return "fatal"
	}
	return "retryable"
}

// HandshakeError carries the HTTP status of a rejected websocket handshake.
type HandshakeError struct {
	Status int
	Err    error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake rejected with status %d: %v", e.Status, e.Err)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

// Close codes that signal a configuration or protocol problem rather than a
// transient network fault.
var fatalCloseCodes = map[websocket.StatusCode]bool{
	websocket.StatusPolicyViolation:    true, // 1008
	websocket.StatusUnsupportedData:    true, // 1003
	websocket.StatusMandatoryExtension: true, // 1010
}

var fatalHandshakeStatuses = map[int]bool{401: true, 403: true, 404: true}

// Classify decides whether a connect or read error should stop reconnection
// permanently. Pure; unit-testable independent of the socket.
func Classify(err error) Class {
	if err == nil {
		return Retryable
	}
	if code := websocket.CloseStatus(err); code != -1 && fatalCloseCodes[code] {
		return Fatal
	}
	var he *HandshakeError
	if errors.As(err, &he) && fatalHandshakeStatuses[he.Status] {
		return Fatal
	}
	return Retryable
}

const backoffCap = 60 * time.Second

// Backoff returns the linear backoff delay for the given retry attempt,
// capped at 60s.
func Backoff(interval time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := interval * time.Duration(attempt)
	if d > backoffCap {
		return backoffCap
	}
	return d
}
