package protocol

// Opcode identifies the semantic type of a gateway frame.
type Opcode int

const (
	OpDispatch            Opcode = 0  // Named event (recv)
	OpHeartbeat           Opcode = 1  // Liveness ping (send + recv)
	OpIdentify            Opcode = 2  // New-session handshake (send)
	OpPresenceUpdate      Opcode = 3  // Presence/status change (send)
	OpVoiceStateUpdate    Opcode = 4  // Voice state change (send)
	OpResume              Opcode = 6  // Session continuation (send)
	OpReconnect           Opcode = 7  // Server-ordered reconnect (recv)
	OpRequestGuildMembers Opcode = 8  // Member chunk request (send)
	OpInvalidSession      Opcode = 9  // Session rejected (recv)
	OpHello               Opcode = 10 // Heartbeat interval announcement (recv)
	OpHeartbeatACK        Opcode = 11 // Heartbeat acknowledgement (recv)
)

// String returns the string representation of the opcode.
func (op Opcode) String() string {
	switch op {
	case OpDispatch:
		return "Dispatch"
	case OpHeartbeat:
		return "Heartbeat"
	case OpIdentify:
		return "Identify"
	case OpPresenceUpdate:
		return "PresenceUpdate"
	case OpVoiceStateUpdate:
		return "VoiceStateUpdate"
	case OpResume:
		return "Resume"
	case OpReconnect:
		return "Reconnect"
	case OpRequestGuildMembers:
		return "RequestGuildMembers"
	case OpInvalidSession:
		return "InvalidSession"
	case OpHello:
		return "Hello"
	case OpHeartbeatACK:
		return "HeartbeatACK"
	default:
		return "Unknown"
	}
}

// Sendable reports whether the client may emit this opcode.
func (op Opcode) Sendable() bool {
	switch op {
	case OpHeartbeat, OpIdentify, OpPresenceUpdate, OpVoiceStateUpdate,
		OpResume, OpRequestGuildMembers:
		return true
	default:
		return false
	}
}
