package protocol

// CloseCode is a numeric reason delivered with a gateway close frame.
type CloseCode int

const (
	CloseUnknownError         CloseCode = 4000 // Unspecified server error
	CloseUnknownOpcode        CloseCode = 4001 // Client sent an invalid opcode
	CloseDecodeError          CloseCode = 4002 // Client sent an undecodable payload
	CloseNotAuthenticated     CloseCode = 4003 // Payload sent before identify
	CloseAuthenticationFailed CloseCode = 4004 // Invalid token
	CloseAlreadyAuthenticated CloseCode = 4005 // More than one identify
	CloseInvalidSequence      CloseCode = 4007 // Invalid resume sequence
	CloseRateLimited          CloseCode = 4008 // Too many frames
	CloseSessionTimeout       CloseCode = 4009 // Session expired server-side
	CloseInvalidShard         CloseCode = 4010 // Bad shard descriptor
	CloseShardingRequired     CloseCode = 4011 // Too many guilds for one shard
	CloseInvalidAPIVersion    CloseCode = 4012 // Unsupported gateway version
	CloseInvalidIntents       CloseCode = 4013 // Malformed intents bitfield
	CloseDisallowedIntents    CloseCode = 4014 // Intents not enabled for the app
)

// String returns the string representation of the close code.
func (cc CloseCode) String() string {
	switch cc {
	case CloseUnknownError:
		return "UnknownError"
	case CloseUnknownOpcode:
		return "UnknownOpcode"
	case CloseDecodeError:
		return "DecodeError"
	case CloseNotAuthenticated:
		return "NotAuthenticated"
	case CloseAuthenticationFailed:
		return "AuthenticationFailed"
	case CloseAlreadyAuthenticated:
		return "AlreadyAuthenticated"
	case CloseInvalidSequence:
		return "InvalidSequence"
	case CloseRateLimited:
		return "RateLimited"
	case CloseSessionTimeout:
		return "SessionTimeout"
	case CloseInvalidShard:
		return "InvalidShard"
	case CloseShardingRequired:
		return "ShardingRequired"
	case CloseInvalidAPIVersion:
		return "InvalidAPIVersion"
	case CloseInvalidIntents:
		return "InvalidIntents"
	case CloseDisallowedIntents:
		return "DisallowedIntents"
	default:
		return "Unknown"
	}
}
