package gateway

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"

	"github.com/gatewire-dev/gatewire/pkg/protocol"
	"github.com/gatewire-dev/gatewire/pkg/state"
)

// Session is one shard's connection to the gateway. It owns the
// WebSocket, the heartbeat schedule, the reconnect ladder, and the
// entity cache, and delivers events to registered handlers on a
// dedicated goroutine.
//
// Register handlers with On or OnAny before calling Open; a session
// with no handlers refuses to start. A Session must be Closed when no
// longer needed.
type Session struct {
	// Identity
	shard      int
	shardCount int

	cfg    *Config
	logger *slog.Logger

	cache   *state.Cache
	emitter *emitter
	hb      *heartbeat
	store   ResumeStore

	// newTransport builds the socket for each connection attempt.
	// Tests substitute a fake.
	newTransport func(*Config, transportEvents) transport

	// ctx lives for the whole session; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	state  atomicState
	opened atomic.Bool
	closed atomic.Bool

	seq   atomic.Int64 // last dispatch sequence, -1 before any
	acked atomic.Bool  // last heartbeat was acknowledged

	beatSent atomic.Int64 // UnixNano of the pending heartbeat, 0 when acked
	latency  atomic.Int64 // round-trip of the last acked heartbeat, in ns

	// Everything below is protected by mu.
	mu               sync.Mutex
	transport        transport
	active           bool // Open succeeded and no fatal close since
	ready            bool // counted in the ready gauge
	sessionID        string
	gatewayURL       string
	resumeGatewayURL string
	shouldResume     bool
	attempts         int // failed attempts since the last successful connect
	reconnectPending bool
	forceURLRefresh  bool
	reconnectTimer   *time.Timer
	connectSpan      trace.Span
	fatalErr         error

	// Counters
	eventsReceived atomic.Uint64
	heartbeatsSent atomic.Uint64
	acksReceived   atomic.Uint64
	reconnects     atomic.Uint64
}

// NewSession creates a session from the config. The token and a
// gateway URL source are validated here, before any network activity.
func NewSession(cfg *Config) (*Session, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		shard:        cfg.Shard[0],
		shardCount:   cfg.Shard[1],
		cfg:          cfg,
		logger:       cfg.Logger.With("shard", cfg.Shard[0]),
		cache:        state.NewCache(),
		store:        cfg.Store,
		newTransport: newWSTransport,
		ctx:          ctx,
		cancel:       cancel,
	}
	s.seq.Store(-1)
	s.acked.Store(true)
	s.emitter = newEmitter(s.shard, cfg.EventBuffer, s.logger)
	s.hb = newHeartbeat(s.onHeartbeatTick)

	// Adopt persisted resume state so a restart can continue the old
	// session instead of re-identifying.
	if rs, ok := s.store.Load(s.shard); ok && rs.SessionID != "" {
		s.sessionID = rs.SessionID
		s.resumeGatewayURL = rs.GatewayURL
		s.seq.Store(rs.Sequence)
		s.shouldResume = true
	}

	return s, nil
}

// On registers a handler for the named event. Dispatch events use
// their wire names ("MESSAGE_CREATE"); lifecycle events use the
// lowercase Event* constants. Handlers must be registered before Open.
func (s *Session) On(name string, h Handler) {
	s.emitter.On(name, h)
}

// OnAny registers a handler that receives every event.
func (s *Session) OnAny(h Handler) {
	s.emitter.OnAny(h)
}

// Open resolves the gateway URL and starts connecting. It returns
// before the handshake completes; readiness is signalled by the READY
// event. Configuration problems are returned immediately.
func (s *Session) Open(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	if s.emitter.HandlerCount() == 0 {
		return ErrNoSubscribers
	}
	if !s.opened.CompareAndSwap(false, true) {
		return ErrAlreadyOpen
	}

	url, err := s.resolveURL(ctx)
	if err != nil {
		s.opened.Store(false)
		return NewSessionError(s.shard, "resolve gateway url", err)
	}

	s.emitter.start()

	s.mu.Lock()
	s.gatewayURL = url
	s.active = true
	s.connectLocked()
	s.mu.Unlock()
	return nil
}

// Close shuts the session down: the heartbeat stops, any pending
// reconnect is cancelled, and the socket is closed with a normal close
// frame so the server discards the session. Safe to call more than
// once.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.cancel()

	s.mu.Lock()
	s.hb.Stop()
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	s.reconnectPending = false
	s.active = false
	t := s.transport
	s.transport = nil
	wasReady := s.ready
	s.ready = false
	s.state.Store(StateDisconnected)
	// A normal close invalidates the server-side session, so the
	// stored resume state is useless from here on.
	s.clearResumeLocked()
	s.mu.Unlock()

	if t != nil {
		t.Close(websocket.CloseNormalClosure, "shutting down")
	}
	if wasReady {
		recordReady(-1)
	}

	s.emitter.Emit(Event{Name: EventClose, Shard: s.shard, Data: CloseInfo{
		Code:   websocket.CloseNormalClosure,
		Reason: "client closing",
	}})
	s.emitter.Stop()
	s.cache.Clear()
	s.logger.Info("session closed")
	return nil
}

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	return s.state.Load()
}

// Cache returns the session's entity cache.
func (s *Session) Cache() *state.Cache {
	return s.cache
}

// Shard returns this session's shard ID.
func (s *Session) Shard() int {
	return s.shard
}

// Sequence returns the last dispatch sequence number, or -1 before any
// dispatch has arrived.
func (s *Session) Sequence() int64 {
	return s.seq.Load()
}

// SessionID returns the server-assigned session ID, empty before READY.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// Latency returns the round-trip time of the most recently acknowledged
// heartbeat, or 0 before the first acknowledgement.
func (s *Session) Latency() time.Duration {
	return time.Duration(s.latency.Load())
}

// Err returns the error that permanently stopped the session, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fatalErr
}

// Stats is a point-in-time snapshot of session counters.
type Stats struct {
	Shard          int          `json:"shard"`
	State          SessionState `json:"-"`
	StateName      string       `json:"state"`
	SessionID      string       `json:"session_id,omitempty"`
	Sequence       int64        `json:"sequence"`
	Attempts       int          `json:"attempts"`
	EventsReceived uint64       `json:"events_received"`
	HeartbeatsSent uint64       `json:"heartbeats_sent"`
	AcksReceived   uint64       `json:"acks_received"`
	LatencyMS      float64      `json:"latency_ms"`
	Reconnects     uint64       `json:"reconnects"`
	EventsDropped  uint64       `json:"events_dropped"`
	Guilds         int          `json:"guilds"`
}

// Stats returns a snapshot of the session's counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	sessionID := s.sessionID
	attempts := s.attempts
	s.mu.Unlock()

	st := s.state.Load()
	return Stats{
		Shard:          s.shard,
		State:          st,
		StateName:      st.String(),
		SessionID:      sessionID,
		Sequence:       s.seq.Load(),
		Attempts:       attempts,
		EventsReceived: s.eventsReceived.Load(),
		HeartbeatsSent: s.heartbeatsSent.Load(),
		AcksReceived:   s.acksReceived.Load(),
		LatencyMS:      float64(s.latency.Load()) / float64(time.Millisecond),
		Reconnects:     s.reconnects.Load(),
		EventsDropped:  s.emitter.Dropped(),
		Guilds:         s.cache.GuildCount(),
	}
}

// RequestGuildMembers asks the gateway to stream member chunks for a
// guild. Results arrive as GUILD_MEMBERS_CHUNK events carrying the
// returned nonce. An empty query with limit 0 requests every member,
// which needs the guild members intent.
func (s *Session) RequestGuildMembers(ctx context.Context, guildID, query string, limit int) (string, error) {
	nonce := uuid.NewString()
	req := protocol.RequestGuildMembers{
		GuildID: guildID,
		Query:   query,
		Limit:   limit,
		Nonce:   nonce,
	}
	if err := s.send(ctx, protocol.OpRequestGuildMembers, req); err != nil {
		return "", err
	}
	return nonce, nil
}

// UpdateVoiceState joins, moves, or leaves a voice channel. A nil
// channelID disconnects from voice in the guild.
func (s *Session) UpdateVoiceState(ctx context.Context, guildID string, channelID *string, selfMute, selfDeaf bool) error {
	return s.send(ctx, protocol.OpVoiceStateUpdate, protocol.VoiceStateUpdate{
		GuildID:   guildID,
		ChannelID: channelID,
		SelfMute:  selfMute,
		SelfDeaf:  selfDeaf,
	})
}

// UpdatePresence changes the bot's status and activities.
func (s *Session) UpdatePresence(ctx context.Context, p protocol.PresenceUpdate) error {
	if p.Activities == nil {
		p.Activities = []protocol.Activity{}
	}
	return s.send(ctx, protocol.OpPresenceUpdate, p)
}

// send encodes and writes a rate-limited command frame.
func (s *Session) send(ctx context.Context, op protocol.Opcode, d any) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	s.mu.Lock()
	t := s.transport
	s.mu.Unlock()
	if t == nil || !t.Alive() {
		return ErrNotConnected
	}

	data, err := protocol.EncodeEnvelope(op, d)
	if err != nil {
		return NewSessionError(s.shard, "encode "+op.String(), err)
	}
	if err := t.Send(ctx, data); err != nil {
		recordSendError()
		return NewSessionError(s.shard, "send "+op.String(), err)
	}
	return nil
}

// resolveURL returns the pinned URL or asks the resolver for one.
func (s *Session) resolveURL(ctx context.Context) (string, error) {
	if s.cfg.GatewayURL != "" {
		return s.cfg.GatewayURL, nil
	}
	return s.cfg.Resolver.GatewayURL(ctx)
}

// connectLocked starts a connection attempt. Caller holds s.mu.
func (s *Session) connectLocked() {
	s.state.Store(StateConnecting)

	target := s.gatewayURL
	if s.canResumeLocked() && s.resumeGatewayURL != "" {
		target = s.resumeGatewayURL
	}

	ctx, span := startConnectSpan(s.ctx, s.shard, s.attempts)
	s.connectSpan = span

	t := s.newTransport(s.cfg, s.transportEvents())
	s.transport = t
	s.logger.Info("connecting", "url", target, "attempt", s.attempts)
	t.Connect(ctx, buildGatewayURL(target))
}

func (s *Session) transportEvents() transportEvents {
	return transportEvents{
		OnOpen:    s.onTransportOpen,
		OnMessage: s.onTransportMessage,
		OnClose:   s.onTransportClose,
		OnError:   s.onTransportError,
	}
}

// onTransportOpen runs when the socket finishes connecting. The
// handshake proper starts when the server's Hello arrives.
func (s *Session) onTransportOpen(t transport) {
	s.mu.Lock()
	if t != s.transport || s.closed.Load() {
		s.mu.Unlock()
		return
	}
	s.attempts = 0
	s.acked.Store(true)
	s.state.Store(StateAwaitingHello)
	if s.connectSpan != nil {
		endSpan(s.connectSpan, nil)
		s.connectSpan = nil
	}
	s.mu.Unlock()

	s.logger.Info("connected, awaiting hello")
	s.emitter.Emit(Event{Name: EventOpen, Shard: s.shard, Seq: s.seq.Load()})
}

// onTransportMessage decodes and applies one frame. A frame that
// cannot be decoded, or whose handling panics, is dropped; the
// connection lives on.
func (s *Session) onTransportMessage(t transport, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t != s.transport || s.closed.Load() {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic handling frame",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()

	s.handleMessageLocked(data)
}

func (s *Session) onTransportError(t transport, err error) {
	s.mu.Lock()
	stale := t != s.transport || s.closed.Load()
	s.mu.Unlock()
	if stale {
		return
	}
	s.logger.Error("transport error", "error", err)
}

// onTransportClose runs exactly once per connection death: dial
// failures, read errors, server close frames, and locally forced
// closes all end here. It classifies the close and decides between
// retrying, reconnecting fresh, and giving up.
func (s *Session) onTransportClose(t transport, code int, reason string, err error) {
	s.mu.Lock()
	if t != s.transport {
		s.mu.Unlock()
		return
	}
	s.transport = nil
	s.hb.Stop()
	s.state.Store(StateDisconnected)
	if s.connectSpan != nil {
		endSpan(s.connectSpan, err)
		s.connectSpan = nil
	}
	wasReady := s.ready
	s.ready = false

	if s.closed.Load() {
		s.mu.Unlock()
		if wasReady {
			recordReady(-1)
		}
		return
	}

	action := classifyClose(code)
	recordClose(action)
	s.logger.Warn("connection closed",
		"code", code,
		"reason", reason,
		"action", action.String(),
		"error", err)

	fatal := false
	switch action {
	case actionFatal:
		// Retrying would hit the same rejection until the operator
		// fixes the configuration.
		fatal = true
		s.active = false
		s.fatalErr = &CloseError{Code: code, Reason: reason, Fatal: true}
		s.clearResumeLocked()

	case actionReconnect:
		// The server-side session is gone. Reconnect, but identify
		// from scratch.
		s.clearResumeLocked()
		s.scheduleReconnectLocked("server-close", false, 0)

	case actionWarn:
		// No automatic reconnect. The close is surfaced with resume
		// state intact; when to come back is the caller's decision.
		s.logger.Warn("gateway is rate limiting this session; slow down outbound commands")

	case actionRetry:
		s.scheduleReconnectLocked("connection-lost", false, 0)
	}
	s.mu.Unlock()

	if wasReady {
		recordReady(-1)
	}
	s.emitter.Emit(Event{Name: EventClose, Shard: s.shard, Data: CloseInfo{
		Code:   code,
		Reason: reason,
		Fatal:  fatal,
		Err:    err,
	}})
}

// scheduleReconnectLocked arms the reconnect timer. At most one timer
// is pending at a time; later triggers while one is armed are ignored.
// delayOverride <= 0 means use the retry ladder. Caller holds s.mu.
func (s *Session) scheduleReconnectLocked(trigger string, refreshURL bool, delayOverride time.Duration) {
	if s.reconnectPending || s.closed.Load() || !s.active {
		return
	}
	s.reconnectPending = true
	s.attempts++
	if refreshURL {
		s.forceURLRefresh = true
	}

	delay := delayOverride
	if delay <= 0 {
		delay = retryDelay(s.attempts, s.cfg.RetryBaseDelay, s.cfg.RetryLongDelay, s.cfg.RetryShortAttempts)
	}

	s.reconnects.Add(1)
	recordReconnect(trigger)
	s.logger.Info("scheduling reconnect",
		"trigger", trigger,
		"attempt", s.attempts,
		"delay", delay)
	s.reconnectTimer = time.AfterFunc(delay, s.runReconnect)
}

// runReconnect fires when the reconnect timer expires.
func (s *Session) runReconnect() {
	s.mu.Lock()
	s.reconnectPending = false
	s.reconnectTimer = nil
	if s.closed.Load() || !s.active {
		s.mu.Unlock()
		return
	}
	refresh := s.forceURLRefresh || refreshURLBeforeAttempt(s.attempts, s.cfg.URLRefreshAfter)
	s.forceURLRefresh = false
	s.mu.Unlock()

	if refresh {
		url, err := s.resolveURL(s.ctx)
		if err != nil {
			s.logger.Error("gateway url refresh failed", "error", err)
			s.mu.Lock()
			s.scheduleReconnectLocked("url-refresh-failed", true, 0)
			s.mu.Unlock()
			return
		}
		s.mu.Lock()
		s.gatewayURL = url
		s.resumeGatewayURL = ""
		s.mu.Unlock()
		s.logger.Info("refreshed gateway url", "url", url)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() || !s.active {
		return
	}
	if t := s.transport; t != nil {
		if t.Alive() {
			return
		}
		t.Close(websocket.CloseGoingAway, "superseded")
		s.transport = nil
	}
	s.connectLocked()
}

// onHeartbeatTick runs once per heartbeat interval. In order of
// precedence: a dead transport triggers self-healing, an unacked
// heartbeat marks the connection as a zombie and force-closes it, and
// otherwise a heartbeat is sent.
func (s *Session) onHeartbeatTick(stop <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-stop:
		// A Hello or teardown replaced this schedule while the tick
		// was waiting on the lock.
		return
	default:
	}
	if s.closed.Load() || !s.active {
		return
	}

	t := s.transport
	if t == nil || !t.Alive() {
		if !s.reconnectPending {
			s.logger.Warn("heartbeat fired with no live connection, reconnecting")
			s.scheduleReconnectLocked("dead-transport", true, s.cfg.RetryBaseDelay)
		}
		return
	}

	if !s.acked.Load() {
		s.logger.Warn("heartbeat not acknowledged, closing zombie connection")
		s.zombieCloseLocked(t)
		return
	}

	s.sendHeartbeatLocked(t)
}

// zombieCloseLocked force-closes a connection whose heartbeats are not
// being acknowledged. The close code avoids 1000 and 1001 so the
// server keeps the session resumable; the read loop's close report
// drives the reconnect, with resume state intact.
func (s *Session) zombieCloseLocked(t transport) {
	t.Close(4000, "heartbeat ack timeout")
}

// sendHeartbeatLocked writes one heartbeat carrying the last sequence
// number, or null before the first dispatch. Caller holds s.mu.
func (s *Session) sendHeartbeatLocked(t transport) {
	seq := s.seq.Load()
	var d any
	if seq >= 0 {
		d = seq
	}
	data, err := protocol.EncodeEnvelope(protocol.OpHeartbeat, d)
	if err != nil {
		s.logger.Error("encode heartbeat", "error", err)
		return
	}

	s.acked.Store(false)
	if err := t.SendNow(data); err != nil {
		recordSendError()
		s.logger.Error("send heartbeat", "error", err)
		return
	}

	s.beatSent.Store(time.Now().UnixNano())
	s.heartbeatsSent.Add(1)
	recordHeartbeat()
	s.emitter.Emit(Event{Name: EventHeartbeat, Shard: s.shard, Seq: seq, Data: seq})
}

// sendIdentifyLocked starts a brand-new server-side session. Caller
// holds s.mu.
func (s *Session) sendIdentifyLocked(t transport) {
	ident := protocol.Identify{
		Token:          s.cfg.Token,
		Properties:     s.cfg.Properties,
		Compress:       s.cfg.Compress,
		LargeThreshold: s.cfg.LargeThreshold,
		Presence:       s.cfg.Presence,
		Intents:        s.cfg.Intents,
	}
	if s.shardCount > 1 {
		shard := [2]int{s.shard, s.shardCount}
		ident.Shard = &shard
	}

	data, err := protocol.EncodeEnvelope(protocol.OpIdentify, ident)
	if err != nil {
		s.logger.Error("encode identify", "error", err)
		return
	}
	if err := t.SendNow(data); err != nil {
		recordSendError()
		s.logger.Error("send identify", "error", err)
		return
	}

	s.state.Store(StateIdentifying)
	// From here on the session has an identity worth resuming, even if
	// READY has not arrived yet by the next disconnect.
	s.shouldResume = true
	s.logger.Info("identifying", "intents", uint32(s.cfg.Intents))
}

// sendResumeLocked continues the previous server-side session. Caller
// holds s.mu.
func (s *Session) sendResumeLocked(t transport) {
	res := protocol.Resume{
		Token:     s.cfg.Token,
		SessionID: s.sessionID,
		Seq:       s.seq.Load(),
	}

	data, err := protocol.EncodeEnvelope(protocol.OpResume, res)
	if err != nil {
		s.logger.Error("encode resume", "error", err)
		return
	}
	if err := t.SendNow(data); err != nil {
		recordSendError()
		s.logger.Error("send resume", "error", err)
		return
	}

	s.state.Store(StateResuming)
	s.logger.Info("resuming", "session_id", s.sessionID, "seq", res.Seq)
}

// canResumeLocked reports whether the session has everything a Resume
// needs. Caller holds s.mu.
func (s *Session) canResumeLocked() bool {
	return s.shouldResume && s.sessionID != "" && s.seq.Load() >= 0
}

// clearResumeLocked forgets the server-side session. The next
// connection identifies from scratch. Caller holds s.mu.
func (s *Session) clearResumeLocked() {
	s.shouldResume = false
	s.sessionID = ""
	s.resumeGatewayURL = ""
	s.seq.Store(-1)
	if err := s.store.Clear(s.shard); err != nil {
		s.logger.Warn("clear resume state", "error", err)
	}
}

// saveResumeLocked persists what a future Resume will need. Caller
// holds s.mu.
func (s *Session) saveResumeLocked() {
	if s.sessionID == "" {
		return
	}
	rs := ResumeState{
		SessionID:  s.sessionID,
		Sequence:   s.seq.Load(),
		GatewayURL: s.resumeGatewayURL,
	}
	if err := s.store.Save(s.shard, rs); err != nil {
		s.logger.Warn("save resume state", "error", err)
	}
}
