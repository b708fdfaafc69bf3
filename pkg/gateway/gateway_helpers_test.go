package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/gatewire-dev/gatewire/pkg/protocol"
)

// fakeTransport stands in for the WebSocket so session logic can be
// driven deterministically. Tests call open, deliver, and serverClose
// to play the server's side of the conversation.
type fakeTransport struct {
	events transportEvents

	mu          sync.Mutex
	connectURL  string
	alive       bool
	closed      bool
	closeCode   int
	closeReason string
	sent        [][]byte
}

func (t *fakeTransport) Connect(ctx context.Context, url string) {
	t.mu.Lock()
	t.connectURL = url
	t.mu.Unlock()
}

func (t *fakeTransport) Send(ctx context.Context, data []byte) error {
	return t.SendNow(data)
}

func (t *fakeTransport) SendNow(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.alive {
		return ErrNotConnected
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	t.sent = append(t.sent, cp)
	return nil
}

// Close mimics the real transport: flags flip immediately, and the
// close report arrives later from another goroutine, the way a read
// loop would deliver it.
func (t *fakeTransport) Close(code int, reason string) {
	t.mu.Lock()
	already := t.closed
	t.closed = true
	t.alive = false
	t.closeCode = code
	t.closeReason = reason
	t.mu.Unlock()
	if already {
		return
	}
	go t.events.OnClose(t, -1, "", errors.New("use of closed connection"))
}

func (t *fakeTransport) Alive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alive
}

// open marks the connection established and fires OnOpen.
func (t *fakeTransport) open() {
	t.mu.Lock()
	t.alive = true
	t.mu.Unlock()
	t.events.OnOpen(t)
}

// deliver feeds one frame to the session, as the read loop would.
func (t *fakeTransport) deliver(frame string) {
	t.events.OnMessage(t, []byte(frame))
}

// serverClose simulates the server closing the connection with a close
// frame.
func (t *fakeTransport) serverClose(code int, reason string) {
	t.mu.Lock()
	t.alive = false
	t.mu.Unlock()
	t.events.OnClose(t, code, reason, fmt.Errorf("websocket: close %d: %s", code, reason))
}

// dialFail simulates the dial never establishing a connection.
func (t *fakeTransport) dialFail() {
	t.events.OnError(t, errors.New("dial: connection refused"))
	t.events.OnClose(t, -1, "", errors.New("dial: connection refused"))
}

// die simulates the TCP connection vanishing without a close frame and
// without the read loop noticing. Nothing is reported to the session.
func (t *fakeTransport) die() {
	t.mu.Lock()
	t.alive = false
	t.mu.Unlock()
}

func (t *fakeTransport) url() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connectURL
}

func (t *fakeTransport) closedWith() (bool, int, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed, t.closeCode, t.closeReason
}

// sentFrames returns decoded copies of everything written so far.
func (t *fakeTransport) sentFrames() []sentFrame {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]sentFrame, 0, len(t.sent))
	for _, raw := range t.sent {
		var f sentFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			panic(fmt.Sprintf("fake transport holds undecodable frame %q: %v", raw, err))
		}
		f.Raw = raw
		out = append(out, f)
	}
	return out
}

// sentOps returns only frames of the given opcode.
func (t *fakeTransport) sentOps(op protocol.Opcode) []sentFrame {
	var out []sentFrame
	for _, f := range t.sentFrames() {
		if f.Op == op {
			out = append(out, f)
		}
	}
	return out
}

// sentFrame is a decoded outbound frame.
type sentFrame struct {
	Op  protocol.Opcode `json:"op"`
	D   json.RawMessage `json:"d"`
	S   *int64          `json:"s"`
	T   string          `json:"t"`
	Raw []byte          `json:"-"`
}

// fakeFactory builds fakeTransports and remembers them in creation
// order.
type fakeFactory struct {
	mu         sync.Mutex
	transports []*fakeTransport
}

func (f *fakeFactory) new(cfg *Config, events transportEvents) transport {
	t := &fakeTransport{events: events}
	f.mu.Lock()
	f.transports = append(f.transports, t)
	f.mu.Unlock()
	return t
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transports)
}

func (f *fakeFactory) at(i int) *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i < 0 {
		i += len(f.transports)
	}
	return f.transports[i]
}

// countingResolver returns a distinct URL per call and counts calls.
type countingResolver struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (r *countingResolver) GatewayURL(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.fail {
		return "", errors.New("resolver unavailable")
	}
	return fmt.Sprintf("wss://gateway-%d.test", r.calls), nil
}

func (r *countingResolver) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func (r *countingResolver) setFail(fail bool) {
	r.mu.Lock()
	r.fail = fail
	r.mu.Unlock()
}

// eventRecorder collects delivered events for inspection.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) handler() Handler {
	return func(ev Event) {
		r.mu.Lock()
		r.events = append(r.events, ev)
		r.mu.Unlock()
	}
}

func (r *eventRecorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *eventRecorder) countOf(name string) int {
	n := 0
	for _, ev := range r.all() {
		if ev.Name == name {
			n++
		}
	}
	return n
}

func (r *eventRecorder) has(name string) bool {
	return r.countOf(name) > 0
}

// find returns the first recorded event with the given name.
func (r *eventRecorder) find(name string) (Event, bool) {
	for _, ev := range r.all() {
		if ev.Name == name {
			return ev, true
		}
	}
	return Event{}, false
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestSession builds a session wired to a fake transport factory,
// with test-friendly retry timing.
func newTestSession(t *testing.T, mutate func(*Config)) (*Session, *fakeFactory) {
	t.Helper()

	cfg := DefaultConfig().
		WithToken("token-for-tests").
		WithLogger(testLogger())
	cfg.GatewayURL = "wss://gateway.test"
	cfg.RetryBaseDelay = 5 * time.Millisecond
	cfg.RetryLongDelay = 40 * time.Millisecond

	if mutate != nil {
		mutate(cfg)
	}

	s, err := NewSession(cfg)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	f := &fakeFactory{}
	s.newTransport = f.new
	return s, f
}

// openTestSession registers a no-op handler, opens the session, and
// completes the socket-level connect on the first fake transport.
func openTestSession(t *testing.T, s *Session, f *fakeFactory) *fakeTransport {
	t.Helper()
	if s.emitter.HandlerCount() == 0 {
		s.OnAny(func(Event) {})
	}
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	ft := f.at(0)
	ft.open()
	return ft
}

// waitUntil polls cond until it holds or the deadline passes.
func waitUntil(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// Frame builders for the server's side of the conversation.

func helloFrame(intervalMS int) string {
	return fmt.Sprintf(`{"op":10,"d":{"heartbeat_interval":%d}}`, intervalMS)
}

func ackFrame() string {
	return `{"op":11}`
}

func dispatchFrame(eventType string, seq int64, data string) string {
	return fmt.Sprintf(`{"op":0,"s":%d,"t":%q,"d":%s}`, seq, eventType, data)
}

func readyFrame(sessionID string, seq int64) string {
	data := fmt.Sprintf(`{"v":10,"user":{"id":"self","username":"testbot"},"session_id":%q,"resume_gateway_url":"wss://resume.test","guilds":[{"id":"g1","unavailable":true}]}`, sessionID)
	return dispatchFrame(EventReady, seq, data)
}

// driveToReady completes the full handshake on a transport: Hello,
// then the READY dispatch.
func driveToReady(t *testing.T, ft *fakeTransport, sessionID string, seq int64) {
	t.Helper()
	ft.deliver(helloFrame(60_000))
	ft.deliver(readyFrame(sessionID, seq))
}
