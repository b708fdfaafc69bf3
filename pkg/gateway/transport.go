package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/gatewire-dev/gatewire/pkg/protocol"
)

// writeWait is the maximum time to wait when writing a frame.
const writeWait = 10 * time.Second

// transport abstracts the WebSocket connection so session logic can be
// tested without a network. Each instance carries exactly one
// connection; the session creates a fresh transport per attempt and
// ignores callbacks from instances it has already replaced.
type transport interface {
	// Connect dials the URL asynchronously. Success is reported through
	// OnOpen, failure through OnError followed by OnClose. Connect
	// itself never returns an error.
	Connect(ctx context.Context, url string)

	// Send writes a frame, waiting on the outbound rate limiter first.
	Send(ctx context.Context, data []byte) error

	// SendNow writes a frame without consuming rate limit budget.
	// Heartbeats and the handshake use it; they must never queue
	// behind user traffic.
	SendNow(data []byte) error

	// Close writes a close frame and tears down the connection. The
	// read loop still reports OnClose when the socket dies, always with
	// code -1: the code passed here is for the peer, not for OnClose.
	Close(code int, reason string)

	// Alive reports whether the connection is established and not yet
	// closed.
	Alive() bool
}

// transportEvents are the session's callbacks. Every callback passes
// the originating transport so the session can discard events from a
// connection it has already abandoned.
type transportEvents struct {
	OnOpen    func(t transport)
	OnMessage func(t transport, data []byte)
	OnClose   func(t transport, code int, reason string, err error)
	OnError   func(t transport, err error)
}

// wsTransport is the gorilla/websocket implementation of transport.
type wsTransport struct {
	events           transportEvents
	limiter          *rate.Limiter
	compress         bool
	handshakeTimeout time.Duration
	logger           *slog.Logger

	mu     sync.Mutex // Protects conn writes
	conn   *websocket.Conn
	alive  atomic.Bool
	closed atomic.Bool
}

func newWSTransport(cfg *Config, events transportEvents) transport {
	limit := rate.Limit(float64(cfg.SendRateLimit) / cfg.SendRatePeriod.Seconds())
	return &wsTransport{
		events:           events,
		limiter:          rate.NewLimiter(limit, cfg.SendRateLimit),
		compress:         cfg.Compress,
		handshakeTimeout: cfg.HandshakeTimeout,
		logger:           cfg.Logger,
	}
}

// Connect dials in a new goroutine and runs the read loop on success.
func (t *wsTransport) Connect(ctx context.Context, gatewayURL string) {
	go t.dial(ctx, gatewayURL)
}

func (t *wsTransport) dial(ctx context.Context, gatewayURL string) {
	dialer := websocket.Dialer{
		HandshakeTimeout: t.handshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, gatewayURL, nil)
	if err != nil {
		t.events.OnError(t, fmt.Errorf("dial %s: %w", gatewayURL, err))
		t.events.OnClose(t, -1, "", err)
		return
	}

	if t.closed.Load() {
		// The session gave up on this attempt while the dial was in
		// flight.
		conn.Close()
		return
	}

	conn.SetReadLimit(protocol.MaxMessageSize)

	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
	t.alive.Store(true)

	t.events.OnOpen(t)
	t.readLoop(conn)
}

// readLoop reads frames until the connection dies, then reports the
// close exactly once. A close initiated through Close reports code -1
// no matter what the peer echoes back, so only server-chosen codes
// reach the session. Binary frames are zlib payloads when compression
// is negotiated; a frame that fails to inflate is dropped, not fatal.
func (t *wsTransport) readLoop(conn *websocket.Conn) {
	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			t.alive.Store(false)
			code, reason := -1, ""
			var ce *websocket.CloseError
			if errors.As(err, &ce) && !t.closed.Load() {
				code, reason = ce.Code, ce.Text
			}
			t.events.OnClose(t, code, reason, err)
			return
		}

		if msgType == websocket.BinaryMessage {
			msg, err = protocol.Inflate(msg)
			if err != nil {
				t.events.OnError(t, fmt.Errorf("inflate frame: %w", err))
				continue
			}
		}

		t.events.OnMessage(t, msg)
	}
}

// Send writes a text frame after waiting for rate limit budget.
func (t *wsTransport) Send(ctx context.Context, data []byte) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.SendNow(data)
}

// SendNow writes a text frame immediately.
func (t *wsTransport) SendNow(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil || !t.alive.Load() {
		return ErrNotConnected
	}

	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return t.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame and closes the socket. Safe to call before
// the dial completes and safe to call more than once.
func (t *wsTransport) Close(code int, reason string) {
	t.closed.Store(true)
	t.alive.Store(false)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return
	}

	msg := websocket.FormatCloseMessage(code, reason)
	if err := t.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		t.logger.Debug("close frame write failed", "error", err)
	}
	t.conn.Close()
}

// Alive reports whether the connection is up.
func (t *wsTransport) Alive() bool {
	return t.alive.Load()
}

// buildGatewayURL appends the protocol version and encoding query
// parameters the gateway expects. Existing parameters on resume URLs
// are preserved.
func buildGatewayURL(base string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("v", strconv.Itoa(protocol.GatewayVersion))
	q.Set("encoding", "json")
	u.RawQuery = q.Encode()
	return u.String()
}
