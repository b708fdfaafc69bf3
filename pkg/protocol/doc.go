// Package protocol implements the gateway wire protocol.
//
// The gateway speaks JSON text frames over a WebSocket connection. Every
// frame is a single envelope tagging an opcode-specific body, and dispatch
// frames additionally carry a sequence number and an event name.
//
// # Wire Format
//
// All messages share one envelope shape:
//
//	{
//	  "op": 0,              // opcode (always present)
//	  "d":  { ... },        // opcode-specific body
//	  "s":  42,             // sequence number (Dispatch only, else null)
//	  "t":  "GUILD_CREATE"  // event name (Dispatch only, else null)
//	}
//
// # Opcodes
//
//   - OpDispatch (0): Server → client named event (recv)
//   - OpHeartbeat (1): Liveness ping carrying the last sequence (send + recv)
//   - OpIdentify (2): New-session handshake (send)
//   - OpPresenceUpdate (3): Presence/status change (send)
//   - OpVoiceStateUpdate (4): Voice channel join/leave/mute (send)
//   - OpResume (6): Continue a prior session after disconnect (send)
//   - OpReconnect (7): Server orders a reconnect (recv)
//   - OpRequestGuildMembers (8): Ask for member chunks (send)
//   - OpInvalidSession (9): Session rejected; body says if resumable (recv)
//   - OpHello (10): First frame after connect; carries heartbeat interval (recv)
//   - OpHeartbeatACK (11): Acknowledges a heartbeat (recv)
//
// # Close Codes
//
// The gateway closes connections with numeric codes in the 4000 range
// (CloseUnknownError through CloseDisallowedIntents). The codes carry the
// retry/resume/fatal contract; this package only names them, policy lives
// with the session engine.
//
// # Compression
//
// When the client identifies with compress enabled, the gateway may deliver
// whole payloads as zlib-deflated binary frames. Inflate reverses that
// before envelope decoding.
//
// # Usage
//
//	env, err := protocol.ParseEnvelope(raw)
//	if err != nil {
//	    // malformed frame
//	}
//	switch env.Op {
//	case protocol.OpHello:
//	    hello, _ := protocol.ParseHello(env.Data)
//	    // start heartbeating at hello.HeartbeatInterval
//	}
//
//	data, err := protocol.EncodeEnvelope(protocol.OpIdentify, protocol.Identify{
//	    Token:   token,
//	    Intents: protocol.IntentsDefault,
//	})
package protocol
