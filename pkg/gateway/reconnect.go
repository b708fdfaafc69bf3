package gateway

import "time"

// closeAction is the session's response to a connection loss.
type closeAction int

const (
	// actionRetry reschedules a connection attempt on the normal retry
	// ladder, resuming if the session is eligible.
	actionRetry closeAction = iota

	// actionReconnect reconnects promptly with a fresh Identify. The
	// server has told us the old session is not worth resuming.
	actionReconnect

	// actionFatal stops the session permanently. Retrying would fail
	// the same way until the operator fixes the configuration.
	actionFatal

	// actionWarn logs and takes no further action. The close is the
	// server pushing back, not rejecting the session; resume state is
	// kept and reconnecting is left to the caller.
	actionWarn
)

// String returns a human-readable action name.
func (a closeAction) String() string {
	switch a {
	case actionRetry:
		return "retry"
	case actionReconnect:
		return "reconnect"
	case actionFatal:
		return "fatal"
	case actionWarn:
		return "warn"
	default:
		return "unknown"
	}
}

// classifyClose maps a close code to the session's response.
//
// Codes that invalidate the server-side session reconnect with a fresh
// Identify. Codes caused by configuration (bad token, bad intents,
// sharding required) are fatal. Rate limiting gets a warning and
// nothing else. Everything else, including transport-level closes and
// connections that died without a close frame, retries.
func classifyClose(code int) closeAction {
	switch code {
	case 4000, 4001, 4002, 4003, 4005, 4007, 4009, 4010:
		return actionReconnect
	case 4004, 4011, 4012, 4013, 4014:
		return actionFatal
	case 4008:
		return actionWarn
	default:
		return actionRetry
	}
}

// retryDelay returns the wait before reconnect attempt n (1-based).
// Early attempts use the short delay; once shortAttempts is exhausted
// every attempt waits the long delay. There is no cap on attempts.
func retryDelay(attempt int, base, long time.Duration, shortAttempts int) time.Duration {
	if attempt <= shortAttempts {
		return base
	}
	return long
}

// refreshURLBeforeAttempt reports whether attempt n (1-based,
// cumulative since the last successful connection) should discard the
// cached gateway URL and re-resolve it. Persistent failure against one
// endpoint suggests the endpoint, not the network, is the problem.
func refreshURLBeforeAttempt(attempt, threshold int) bool {
	return attempt > threshold
}
