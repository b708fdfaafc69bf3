package gatewaytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gatewire-dev/gatewire/pkg/protocol"
)

// Options configures the mock gateway.
type Options struct {
	// Token is the expected bot token. Empty accepts any token;
	// a mismatch closes the connection with code 4004.
	Token string

	// HeartbeatInterval is the interval announced in Hello.
	// Default: 45 seconds.
	HeartbeatInterval time.Duration

	// GuildCount is the number of unavailable guilds listed in READY.
	GuildCount int

	// DropAcks makes the server swallow heartbeats without
	// acknowledging them, for zombie-connection drills.
	DropAcks bool
}

// Server is an in-process gateway. Construct with NewServer; the
// zero value is not usable.
type Server struct {
	// URL is the ws:// address clients connect to.
	URL string

	opts     Options
	hs       *httptest.Server
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    map[*conn]struct{}
	sessions map[string]*session

	nextSessionID atomic.Int64
	identifies    atomic.Int64
	resumes       atomic.Int64
	dispatched    atomic.Int64
}

// session is the server-side resume record: one per successful
// identify, carrying the dispatch sequence.
type session struct {
	id  string
	seq atomic.Int64
}

// conn is one connected client.
type conn struct {
	ws    *websocket.Conn
	wmu   sync.Mutex
	sess  *session
	ready atomic.Bool
}

// NewServer starts a mock gateway on a loopback listener.
func NewServer(opts Options) *Server {
	if opts.HeartbeatInterval == 0 {
		opts.HeartbeatInterval = 45 * time.Second
	}

	s := &Server{
		opts:     opts,
		conns:    make(map[*conn]struct{}),
		sessions: make(map[string]*session),
	}
	s.hs = httptest.NewServer(http.HandlerFunc(s.handle))
	s.URL = "ws" + strings.TrimPrefix(s.hs.URL, "http")
	return s
}

// Close tears down the server and every live connection.
func (s *Server) Close() {
	s.mu.Lock()
	for c := range s.conns {
		c.ws.Close()
	}
	s.mu.Unlock()
	s.hs.Close()
}

// Identifies returns how many identify handshakes completed.
func (s *Server) Identifies() int64 {
	return s.identifies.Load()
}

// Resumes returns how many resume handshakes completed.
func (s *Server) Resumes() int64 {
	return s.resumes.Load()
}

// Dispatched returns how many dispatch frames the server has written.
func (s *Server) Dispatched() int64 {
	return s.dispatched.Load()
}

// ClientCount returns the number of live connections.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// ReadyCount returns the number of connections past the handshake.
func (s *Server) ReadyCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for c := range s.conns {
		if c.ready.Load() {
			n++
		}
	}
	return n
}

// WaitReady blocks until n connections are past the handshake or the
// timeout expires.
func (s *Server) WaitReady(n int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.ReadyCount() >= n {
			return nil
		}
		time.Sleep(5 * time.Millisecond)
	}
	return fmt.Errorf("gatewaytest: %d of %d connections ready after %v", s.ReadyCount(), n, timeout)
}

// Dispatch broadcasts a named event to every ready connection and
// returns how many received it.
func (s *Server) Dispatch(eventType string, data any) int {
	raw, err := json.Marshal(data)
	if err != nil {
		return 0
	}

	s.mu.Lock()
	targets := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		if c.ready.Load() {
			targets = append(targets, c)
		}
	}
	s.mu.Unlock()

	n := 0
	for _, c := range targets {
		seq := c.sess.seq.Add(1)
		if err := c.writeDispatch(eventType, raw, seq); err == nil {
			s.dispatched.Add(1)
			n++
		}
	}
	return n
}

// SendReconnect orders every connection to reconnect (opcode 7).
func (s *Server) SendReconnect() {
	for _, c := range s.liveConns() {
		c.writeOp(protocol.OpReconnect, nil)
	}
}

// InvalidateSessions tells every connection its session is invalid
// (opcode 9). With resumable false the server also forgets its resume
// records, so a later Resume for one of those sessions is rejected.
func (s *Server) InvalidateSessions(resumable bool) {
	if !resumable {
		s.mu.Lock()
		s.sessions = make(map[string]*session)
		s.mu.Unlock()
	}
	for _, c := range s.liveConns() {
		c.ready.Store(false)
		c.writeOp(protocol.OpInvalidSession, resumable)
	}
}

// CloseConnections sends a close frame with the given code to every
// connection.
func (s *Server) CloseConnections(code int, reason string) {
	for _, c := range s.liveConns() {
		c.closeWith(code, reason)
	}
}

// SeverConnections drops every connection at the TCP level with no
// close frame, the way a network fault would.
func (s *Server) SeverConnections() {
	for _, c := range s.liveConns() {
		c.ws.Close()
	}
}

func (s *Server) liveConns() []*conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*conn, 0, len(s.conns))
	for c := range s.conns {
		out = append(out, c)
	}
	return out
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &conn{ws: ws}

	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, c)
		s.mu.Unlock()
		ws.Close()
	}()

	hello := protocol.Hello{HeartbeatInterval: int(s.opts.HeartbeatInterval / time.Millisecond)}
	if err := c.writeOp(protocol.OpHello, hello); err != nil {
		return
	}

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		env, err := protocol.ParseEnvelope(data)
		if err != nil {
			continue
		}

		switch env.Op {
		case protocol.OpHeartbeat:
			if !s.opts.DropAcks {
				c.writeOp(protocol.OpHeartbeatACK, nil)
			}
		case protocol.OpIdentify:
			if !s.handleIdentify(c, env.Data) {
				return
			}
		case protocol.OpResume:
			if !s.handleResume(c, env.Data) {
				return
			}
		}
	}
}

// handleIdentify answers an identify with READY. Returns false when the
// connection was closed for a bad token.
func (s *Server) handleIdentify(c *conn, data json.RawMessage) bool {
	var id protocol.Identify
	if err := json.Unmarshal(data, &id); err != nil {
		return true
	}
	if s.opts.Token != "" && id.Token != s.opts.Token {
		c.closeWith(int(protocol.CloseAuthenticationFailed), "Authentication failed.")
		return false
	}

	sess := &session{id: fmt.Sprintf("gatewaytest-%d", s.nextSessionID.Add(1))}
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	c.sess = sess
	seq := sess.seq.Add(1)

	guilds := make([]readyGuild, s.opts.GuildCount)
	for i := range guilds {
		guilds[i] = readyGuild{ID: fmt.Sprintf("guild-%d", i+1), Unavailable: true}
	}
	ready := readyPayload{
		V:                10,
		User:             readyUser{ID: "gatewaytest-bot", Username: "gatewaytest"},
		SessionID:        sess.id,
		ResumeGatewayURL: s.URL,
		Guilds:           guilds,
	}
	raw, _ := json.Marshal(ready)
	if err := c.writeDispatch("READY", raw, seq); err != nil {
		return false
	}

	c.ready.Store(true)
	s.identifies.Add(1)
	return true
}

// handleResume continues a known session with RESUMED or rejects it
// with InvalidSession. Returns false when the connection was closed
// for a bad token.
func (s *Server) handleResume(c *conn, data json.RawMessage) bool {
	var res protocol.Resume
	if err := json.Unmarshal(data, &res); err != nil {
		return true
	}
	if s.opts.Token != "" && res.Token != s.opts.Token {
		c.closeWith(int(protocol.CloseAuthenticationFailed), "Authentication failed.")
		return false
	}

	s.mu.Lock()
	sess, ok := s.sessions[res.SessionID]
	s.mu.Unlock()

	if !ok {
		c.writeOp(protocol.OpInvalidSession, false)
		return true
	}

	c.sess = sess
	seq := sess.seq.Add(1)
	if err := c.writeDispatch("RESUMED", json.RawMessage("null"), seq); err != nil {
		return false
	}

	c.ready.Store(true)
	s.resumes.Add(1)
	return true
}

func (c *conn) writeOp(op protocol.Opcode, d any) error {
	frame, err := protocol.EncodeEnvelope(op, d)
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

func (c *conn) writeDispatch(eventType string, data json.RawMessage, seq int64) error {
	frame, err := json.Marshal(protocol.Envelope{
		Op:   protocol.OpDispatch,
		Data: data,
		Seq:  &seq,
		Type: eventType,
	})
	if err != nil {
		return err
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

func (c *conn) closeWith(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	c.wmu.Lock()
	c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	c.wmu.Unlock()
	c.ws.Close()
}

type readyUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type readyGuild struct {
	ID          string `json:"id"`
	Unavailable bool   `json:"unavailable"`
}

type readyPayload struct {
	V                int          `json:"v"`
	User             readyUser    `json:"user"`
	SessionID        string       `json:"session_id"`
	ResumeGatewayURL string       `json:"resume_gateway_url"`
	Guilds           []readyGuild `json:"guilds"`
}
