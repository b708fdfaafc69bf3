package gateway

import (
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/gatewire-dev/gatewire/pkg/protocol"
	"github.com/gatewire-dev/gatewire/pkg/state"
)

// handleMessageLocked decodes and routes one frame. Caller holds s.mu.
func (s *Session) handleMessageLocked(data []byte) {
	env, err := protocol.ParseEnvelope(data)
	if err != nil {
		s.logger.Error("malformed frame", "error", err, "size", len(data))
		return
	}

	// Last write wins. After a resume the gateway can replay frames
	// out of order relative to what we saw before the disconnect;
	// tracking the most recent value rather than the maximum keeps the
	// next Resume aligned with what the server last sent.
	if env.Seq != nil {
		s.seq.Store(*env.Seq)
	}

	switch env.Op {
	case protocol.OpDispatch:
		s.handleDispatchLocked(env)

	case protocol.OpHello:
		s.handleHelloLocked(env)

	case protocol.OpHeartbeat:
		// The server may demand an immediate beat.
		if t := s.transport; t != nil {
			s.sendHeartbeatLocked(t)
		}

	case protocol.OpHeartbeatACK:
		s.acked.Store(true)
		if sent := s.beatSent.Swap(0); sent > 0 {
			rtt := time.Since(time.Unix(0, sent))
			s.latency.Store(int64(rtt))
			recordLatency(rtt)
		}
		s.acksReceived.Add(1)
		recordHeartbeatAck()
		s.emitter.Emit(Event{Name: EventHeartbeatAck, Shard: s.shard, Seq: s.seq.Load()})

	case protocol.OpReconnect:
		s.handleReconnectLocked()

	case protocol.OpInvalidSession:
		s.handleInvalidSessionLocked(env)

	default:
		s.logger.Debug("unhandled opcode", "op", env.Op.String())
		s.emitter.Emit(Event{Name: EventUnhandled, Shard: s.shard, Seq: s.seq.Load(), Data: UnhandledInfo{
			Op:   env.Op,
			Type: env.Type,
			Data: env.Data,
		}})
	}
}

// handleHelloLocked restarts the heartbeat schedule and begins the
// handshake. A repeated Hello on the same socket replaces the schedule
// instead of stacking a second one.
func (s *Session) handleHelloLocked(env *protocol.Envelope) {
	hello, err := protocol.ParseHello(env.Data)
	if err != nil {
		s.logger.Error("malformed hello", "error", err)
		return
	}
	interval := time.Duration(hello.HeartbeatInterval) * time.Millisecond
	if interval <= 0 {
		s.logger.Error("hello carried a non-positive heartbeat interval", "interval_ms", hello.HeartbeatInterval)
		return
	}

	// The heartbeat starts before the handshake so a stalled Identify
	// still keeps the connection alive.
	s.hb.Start(interval)
	s.logger.Info("hello received", "heartbeat_interval", interval)

	t := s.transport
	if t == nil {
		return
	}
	if s.canResumeLocked() {
		s.sendResumeLocked(t)
	} else {
		s.sendIdentifyLocked(t)
	}
}

// handleReconnectLocked honors a server-ordered reconnect. Closing the
// socket routes the request through the normal close path, which keeps
// resume state and schedules the attempt.
func (s *Session) handleReconnectLocked() {
	s.logger.Info("server requested reconnect")
	if t := s.transport; t != nil {
		t.Close(4000, "reconnect requested")
	}
}

// handleInvalidSessionLocked reacts to the server rejecting our
// session. Closing the socket routes recovery through the normal close
// path; whether the next handshake resumes or identifies follows the
// boolean in the event body.
func (s *Session) handleInvalidSessionLocked(env *protocol.Envelope) {
	resumable, err := protocol.ParseInvalidSession(env.Data)
	if err != nil {
		s.logger.Error("malformed invalid session payload", "error", err)
		resumable = false
	}
	s.logger.Warn("session invalidated by server", "resumable", resumable)
	if !resumable {
		s.clearResumeLocked()
	}
	if t := s.transport; t != nil {
		t.Close(4000, "session invalidated")
	}
}

// knownPassthrough lists dispatch events forwarded by wire name with
// their raw payload. The cache holds no state for them.
var knownPassthrough = map[string]struct{}{
	EventPresenceUpdate:     {},
	EventTypingStart:        {},
	EventMessageUpdate:      {},
	EventMessageDelete:      {},
	EventVoiceStateUpdate:   {},
	EventGuildBanAdd:        {},
	EventGuildBanRemove:     {},
	EventGuildMembersChunk:  {},
	EventInteractionCreate:  {},
	EventInviteCreate:       {},
	EventInviteDelete:       {},
	EventWebhooksUpdate:     {},
	EventGuildIntegrations:  {},
	EventGuildEmojisUpdate:  {},
	EventThreadCreate:       {},
	EventThreadUpdate:       {},
	EventThreadDelete:       {},
	EventMessageReactionAdd: {},
}

// handleDispatchLocked applies one dispatch event to the cache and
// queues it for delivery. Events that replace cached entities carry the
// pre-update snapshot in Prior. Caller holds s.mu.
func (s *Session) handleDispatchLocked(env *protocol.Envelope) {
	s.eventsReceived.Add(1)
	seq := s.seq.Load()

	_, span := startDispatchSpan(s.ctx, s.shard, env.Type, seq)
	defer span.End()

	ev := Event{Name: env.Type, Shard: s.shard, Seq: seq}

	switch env.Type {
	case EventReady:
		var ready ReadyData
		if err := json.Unmarshal(env.Data, &ready); err != nil {
			s.dispatchDecodeError(span, env.Type, err)
			return
		}
		s.applyReadyLocked(&ready)
		ev.Data = &ready

	case EventResumed:
		s.applyResumedLocked()

	case EventGuildCreate:
		var g state.Guild
		if err := json.Unmarshal(env.Data, &g); err != nil {
			s.dispatchDecodeError(span, env.Type, err)
			return
		}
		ev.Prior = orNil(s.cache.UpsertGuild(&g))
		ev.Data = &g

	case EventGuildUpdate:
		var g state.Guild
		if err := json.Unmarshal(env.Data, &g); err != nil {
			s.dispatchDecodeError(span, env.Type, err)
			return
		}
		prior, _ := s.cache.MergeGuild(&g)
		ev.Prior = orNil(prior)
		ev.Data = &g

	case EventGuildDelete:
		var gd GuildDelete
		if err := json.Unmarshal(env.Data, &gd); err != nil {
			s.dispatchDecodeError(span, env.Type, err)
			return
		}
		prior, _ := s.cache.RemoveGuild(gd.ID, gd.Unavailable)
		ev.Prior = orNil(prior)
		ev.Data = &gd

	case EventChannelCreate, EventChannelUpdate:
		var ch state.Channel
		if err := json.Unmarshal(env.Data, &ch); err != nil {
			s.dispatchDecodeError(span, env.Type, err)
			return
		}
		prior, _ := s.cache.UpsertChannel(&ch)
		ev.Prior = orNil(prior)
		ev.Data = &ch

	case EventChannelDelete:
		var ch state.Channel
		if err := json.Unmarshal(env.Data, &ch); err != nil {
			s.dispatchDecodeError(span, env.Type, err)
			return
		}
		prior, _ := s.cache.RemoveChannel(&ch)
		ev.Prior = orNil(prior)
		ev.Data = &ch

	case EventGuildMemberAdd:
		var m state.Member
		if err := json.Unmarshal(env.Data, &m); err != nil {
			s.dispatchDecodeError(span, env.Type, err)
			return
		}
		prior, _ := s.cache.UpsertMember(&m)
		ev.Prior = orNil(prior)
		ev.Data = &m

	case EventGuildMemberUpdate:
		var p state.MemberPatch
		if err := json.Unmarshal(env.Data, &p); err != nil {
			s.dispatchDecodeError(span, env.Type, err)
			return
		}
		prior, updated, _ := s.cache.PatchMember(&p)
		ev.Prior = orNil(prior)
		if updated != nil {
			ev.Data = updated
		} else {
			ev.Data = &p
		}

	case EventGuildMemberRemove:
		var mr MemberRemove
		if err := json.Unmarshal(env.Data, &mr); err != nil {
			s.dispatchDecodeError(span, env.Type, err)
			return
		}
		prior, _ := s.cache.RemoveMember(mr.GuildID, mr.User.ID)
		ev.Prior = orNil(prior)
		ev.Data = &mr

	case EventGuildRoleCreate, EventGuildRoleUpdate:
		var gr GuildRole
		if err := json.Unmarshal(env.Data, &gr); err != nil {
			s.dispatchDecodeError(span, env.Type, err)
			return
		}
		prior, _ := s.cache.UpsertRole(gr.GuildID, &gr.Role)
		ev.Prior = orNil(prior)
		ev.Data = &gr

	case EventGuildRoleDelete:
		var rd RoleDelete
		if err := json.Unmarshal(env.Data, &rd); err != nil {
			s.dispatchDecodeError(span, env.Type, err)
			return
		}
		prior, _ := s.cache.RemoveRole(rd.GuildID, rd.RoleID)
		ev.Prior = orNil(prior)
		ev.Data = &rd

	case EventMessageCreate:
		var m state.Message
		if err := json.Unmarshal(env.Data, &m); err != nil {
			s.dispatchDecodeError(span, env.Type, err)
			return
		}
		s.cache.SetLastMessage(m.ChannelID, m.ID)
		ev.Data = &m

	case EventUserUpdate:
		var u state.User
		if err := json.Unmarshal(env.Data, &u); err != nil {
			s.dispatchDecodeError(span, env.Type, err)
			return
		}
		ev.Prior = orNil(s.cache.SelfUser())
		n := s.cache.PropagateUser(&u)
		ev.Data = &u
		s.logger.Debug("propagated user update", "user", u.ID, "records", n)

	default:
		if _, ok := knownPassthrough[env.Type]; !ok {
			recordEvent("other")
			s.emitter.Emit(Event{Name: EventUnhandled, Shard: s.shard, Seq: seq, Data: UnhandledInfo{
				Op:   env.Op,
				Type: env.Type,
				Data: env.Data,
			}})
			return
		}
		ev.Data = env.Data
	}

	recordEvent(env.Type)
	s.saveResumeLocked()
	s.emitter.Emit(ev)
}

// applyReadyLocked installs the READY snapshot: the cache is replaced
// wholesale and the resume identity recorded. Caller holds s.mu.
func (s *Session) applyReadyLocked(ready *ReadyData) {
	guilds := make([]*state.Guild, 0, len(ready.Guilds))
	for i := range ready.Guilds {
		guilds = append(guilds, &ready.Guilds[i])
	}
	s.cache.SetReady(ready.User, guilds)

	s.sessionID = ready.SessionID
	if ready.ResumeGatewayURL != "" {
		s.resumeGatewayURL = ready.ResumeGatewayURL
	}
	s.shouldResume = true
	s.state.Store(StateReady)
	if !s.ready {
		s.ready = true
		recordReady(1)
	}
	s.saveResumeLocked()

	username := ""
	if ready.User != nil {
		username = ready.User.Username
	}
	s.logger.Info("session ready",
		"session_id", s.sessionID,
		"user", username,
		"guilds", len(guilds))
}

// applyResumedLocked marks the handshake complete after a successful
// resume. Replayed dispatches have already been applied individually.
// Caller holds s.mu.
func (s *Session) applyResumedLocked() {
	s.state.Store(StateReady)
	if !s.ready {
		s.ready = true
		recordReady(1)
	}
	s.logger.Info("session resumed", "session_id", s.sessionID, "seq", s.seq.Load())
}

func (s *Session) dispatchDecodeError(span trace.Span, eventType string, err error) {
	span.RecordError(err)
	s.logger.Error("malformed dispatch payload", "event", eventType, "error", err)
}

// orNil collapses a typed nil pointer into an untyped nil so Prior
// compares cleanly against nil in handler code.
func orNil[T any](p *T) any {
	if p == nil {
		return nil
	}
	return p
}
