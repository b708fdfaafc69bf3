package gateway

import (
	"encoding/json"

	"github.com/gatewire-dev/gatewire/pkg/protocol"
	"github.com/gatewire-dev/gatewire/pkg/state"
)

// Event is delivered to registered handlers. Name is either a lifecycle
// event name (lowercase) or a dispatch event name exactly as it arrived
// on the wire (uppercase, e.g. "MESSAGE_CREATE").
//
// Data holds the decoded payload for events the session understands and
// is nil otherwise. Prior carries the pre-update snapshot for events
// that replace cached entities, so handlers can diff without keeping
// their own copies.
type Event struct {
	Name  string
	Shard int
	Seq   int64
	Data  any
	Prior any
}

// Lifecycle event names. These never collide with dispatch events,
// which are uppercase on the wire.
const (
	// EventOpen fires when the WebSocket connection is established,
	// before the handshake completes.
	EventOpen = "open"

	// EventClose fires when the connection drops. Data is a CloseInfo.
	EventClose = "close"

	// EventHeartbeat fires after each heartbeat is written. Data is the
	// sequence number that was sent.
	EventHeartbeat = "heartbeat"

	// EventHeartbeatAck fires when the server acknowledges a heartbeat.
	EventHeartbeatAck = "heartbeat-ack"

	// EventUnhandled fires for frames the session does not understand.
	// Data is an UnhandledInfo.
	EventUnhandled = "unhandled"
)

// Dispatch event names, as they appear in the t field of op 0 frames.
const (
	EventReady              = "READY"
	EventResumed            = "RESUMED"
	EventGuildCreate        = "GUILD_CREATE"
	EventGuildUpdate        = "GUILD_UPDATE"
	EventGuildDelete        = "GUILD_DELETE"
	EventChannelCreate      = "CHANNEL_CREATE"
	EventChannelUpdate      = "CHANNEL_UPDATE"
	EventChannelDelete      = "CHANNEL_DELETE"
	EventGuildMemberAdd     = "GUILD_MEMBER_ADD"
	EventGuildMemberUpdate  = "GUILD_MEMBER_UPDATE"
	EventGuildMemberRemove  = "GUILD_MEMBER_REMOVE"
	EventGuildRoleCreate    = "GUILD_ROLE_CREATE"
	EventGuildRoleUpdate    = "GUILD_ROLE_UPDATE"
	EventGuildRoleDelete    = "GUILD_ROLE_DELETE"
	EventMessageCreate      = "MESSAGE_CREATE"
	EventMessageUpdate      = "MESSAGE_UPDATE"
	EventMessageDelete      = "MESSAGE_DELETE"
	EventUserUpdate         = "USER_UPDATE"
	EventPresenceUpdate     = "PRESENCE_UPDATE"
	EventTypingStart        = "TYPING_START"
	EventVoiceStateUpdate   = "VOICE_STATE_UPDATE"
	EventGuildBanAdd        = "GUILD_BAN_ADD"
	EventGuildBanRemove     = "GUILD_BAN_REMOVE"
	EventGuildMembersChunk  = "GUILD_MEMBERS_CHUNK"
	EventInteractionCreate  = "INTERACTION_CREATE"
	EventInviteCreate       = "INVITE_CREATE"
	EventInviteDelete       = "INVITE_DELETE"
	EventWebhooksUpdate     = "WEBHOOKS_UPDATE"
	EventGuildIntegrations  = "GUILD_INTEGRATIONS_UPDATE"
	EventGuildEmojisUpdate  = "GUILD_EMOJIS_UPDATE"
	EventThreadCreate       = "THREAD_CREATE"
	EventThreadUpdate       = "THREAD_UPDATE"
	EventThreadDelete       = "THREAD_DELETE"
	EventMessageReactionAdd = "MESSAGE_REACTION_ADD"
)

// CloseInfo is the payload of an EventClose event.
type CloseInfo struct {
	// Code is the WebSocket close code, or -1 when the connection died
	// without a close frame.
	Code int

	// Reason is the close frame's text, if any.
	Reason string

	// Fatal reports whether the session gave up. When false the session
	// is already scheduling a reconnect.
	Fatal bool

	// Err is the error that ended the connection, if the close was
	// caused by a local failure rather than a server close frame.
	Err error
}

// UnhandledInfo is the payload of an EventUnhandled event. It carries
// the raw frame so callers can decode event types the session does not
// track.
type UnhandledInfo struct {
	Op   protocol.Opcode
	Type string
	Data json.RawMessage
}

// ReadyData is the decoded READY payload.
type ReadyData struct {
	Version          int           `json:"v"`
	User             *state.User   `json:"user"`
	SessionID        string        `json:"session_id"`
	ResumeGatewayURL string        `json:"resume_gateway_url"`
	Guilds           []state.Guild `json:"guilds"`
}

// GuildRole is the payload shape of GUILD_ROLE_CREATE and
// GUILD_ROLE_UPDATE dispatches.
type GuildRole struct {
	GuildID string     `json:"guild_id"`
	Role    state.Role `json:"role"`
}

// RoleDelete is the payload shape of GUILD_ROLE_DELETE.
type RoleDelete struct {
	GuildID string `json:"guild_id"`
	RoleID  string `json:"role_id"`
}

// MemberRemove is the payload shape of GUILD_MEMBER_REMOVE.
type MemberRemove struct {
	GuildID string     `json:"guild_id"`
	User    state.User `json:"user"`
}

// GuildDelete is the payload shape of GUILD_DELETE. Unavailable is set
// when the guild went offline rather than removing the bot from it.
type GuildDelete struct {
	ID          string `json:"id"`
	Unavailable bool   `json:"unavailable"`
}
