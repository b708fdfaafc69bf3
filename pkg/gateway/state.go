package gateway

import "sync/atomic"

// SessionState identifies where a session is in its connection lifecycle.
//
// Transitions only move forward through a connection attempt
// (Disconnected -> Connecting -> AwaitingHello -> Identifying/Resuming
// -> Ready) and fall back to Disconnected when the transport drops.
type SessionState int32

const (
	// StateDisconnected means no transport exists. The session may be
	// waiting on a reconnect timer or permanently stopped.
	StateDisconnected SessionState = iota

	// StateConnecting means a dial is in flight.
	StateConnecting

	// StateAwaitingHello means the socket is open and the session is
	// waiting for the server's Hello frame.
	StateAwaitingHello

	// StateIdentifying means an Identify has been sent and the session
	// is waiting for READY.
	StateIdentifying

	// StateResuming means a Resume has been sent and the session is
	// waiting for replayed events and RESUMED.
	StateResuming

	// StateReady means the handshake completed and dispatch events are
	// flowing.
	StateReady
)

// String returns a human-readable state name.
func (s SessionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingHello:
		return "awaiting-hello"
	case StateIdentifying:
		return "identifying"
	case StateResuming:
		return "resuming"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// atomicState holds a SessionState readable without the session lock.
// Stats and logging read it from arbitrary goroutines.
type atomicState struct {
	v atomic.Int32
}

func (a *atomicState) Load() SessionState {
	return SessionState(a.v.Load())
}

func (a *atomicState) Store(s SessionState) {
	a.v.Store(int32(s))
}
