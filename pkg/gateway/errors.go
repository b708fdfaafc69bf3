package gateway

import (
	"errors"
	"fmt"
)

// Common gateway errors.
var (
	// ErrMissingToken is returned when a session is opened without a bot token.
	ErrMissingToken = errors.New("gateway: missing token")

	// ErrNoSubscribers is returned when a session is opened before any event
	// handler has been registered. A session with no consumers would discard
	// every event it receives, which is never intentional.
	ErrNoSubscribers = errors.New("gateway: no event handlers registered")

	// ErrAlreadyOpen is returned when Open is called on a session that is
	// already running.
	ErrAlreadyOpen = errors.New("gateway: session already open")

	// ErrSessionClosed is returned when an operation is attempted on a
	// closed session.
	ErrSessionClosed = errors.New("gateway: session closed")

	// ErrNotConnected is returned when a send is attempted while the
	// transport is down.
	ErrNotConnected = errors.New("gateway: not connected")

	// ErrNoGatewayURL is returned when a session has neither a pinned
	// gateway URL nor a resolver to fetch one.
	ErrNoGatewayURL = errors.New("gateway: no gateway URL or resolver configured")

	// ErrInvalidShard is returned when the shard tuple is malformed,
	// for example shard ID >= shard count.
	ErrInvalidShard = errors.New("gateway: invalid shard configuration")
)

// SessionError wraps an error with session context.
type SessionError struct {
	Shard int    // Shard ID, -1 if unknown
	Op    string // Operation that failed (e.g., "identify", "heartbeat")
	Err   error  // Underlying error
}

// Error implements the error interface.
func (e *SessionError) Error() string {
	if e.Shard < 0 {
		return fmt.Sprintf("gateway: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("gateway: shard %d: %s: %v", e.Shard, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *SessionError) Unwrap() error {
	return e.Err
}

// NewSessionError creates a new SessionError.
func NewSessionError(shard int, op string, err error) *SessionError {
	return &SessionError{
		Shard: shard,
		Op:    op,
		Err:   err,
	}
}

// HandlerError is reported when a registered event handler panics.
// The session recovers the panic, logs it, and keeps running; the
// handler that panicked is the only work lost.
type HandlerError struct {
	Shard     int
	EventType string
	Panic     any
	Stack     []byte
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("gateway: shard %d: handler for %q panicked: %v", e.Shard, e.EventType, e.Panic)
}

// CloseError describes a close frame received from the gateway, after
// classification. Fatal close codes stop the session permanently.
type CloseError struct {
	Code   int
	Reason string
	Fatal  bool
}

// Error implements the error interface.
func (e *CloseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("gateway: connection closed with code %d", e.Code)
	}
	return fmt.Sprintf("gateway: connection closed with code %d: %s", e.Code, e.Reason)
}
