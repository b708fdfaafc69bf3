// Package gatewire maintains resilient Discord gateway connections:
// the identify/resume handshake, heartbeating with zombie detection,
// a reconnect ladder, and an entity cache fed by dispatch events.
//
// This is the recommended import for most bots:
//
//	import "github.com/gatewire-dev/gatewire"
//
// Usage:
//
//	sess, err := gatewire.New(os.Getenv("DISCORD_TOKEN"),
//		gatewire.WithIntents(gatewire.IntentGuilds|gatewire.IntentGuildMessages),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	sess.On(gatewire.EventMessageCreate, func(e gatewire.Event) {
//		msg := e.Data.(*gatewire.Message)
//		log.Printf("#%s: %s", msg.ChannelID, msg.Content)
//	})
//	if err := sess.Open(context.Background()); err != nil {
//		log.Fatal(err)
//	}
//	defer sess.Close()
//
// The subpackages remain importable on their own: pkg/gateway holds
// the session engine, pkg/protocol the wire layer, pkg/state the
// entity cache, and pkg/rest the gateway URL resolver.
package gatewire

import (
	"github.com/gatewire-dev/gatewire/pkg/gateway"
	"github.com/gatewire-dev/gatewire/pkg/protocol"
	"github.com/gatewire-dev/gatewire/pkg/state"
)

// =============================================================================
// Session and shard manager (re-export from pkg/gateway)
// =============================================================================

// Session is a single gateway connection: one shard, one WebSocket,
// one resume identity. Create one with New, register handlers, then
// Open it.
type Session = gateway.Session

// Manager runs one Session per shard and paces their handshakes.
// Create one with NewShardManager.
type Manager = gateway.Manager

// Config is the full session configuration. Most callers use New with
// Options instead; Config is for wiring every knob explicitly.
type Config = gateway.Config

// ManagerConfig configures a shard Manager built directly from
// pkg/gateway rather than through NewShardManager.
type ManagerConfig = gateway.ManagerConfig

// DefaultConfig returns a Config with the library defaults.
var DefaultConfig = gateway.DefaultConfig

// NewSession creates a Session from an explicit Config.
var NewSession = gateway.NewSession

// NewManager creates a Manager from an explicit ManagerConfig.
var NewManager = gateway.NewManager

// URLResolver supplies the gateway URL for fresh connections. New
// wires a REST-backed one automatically when no URL is pinned.
type URLResolver = gateway.URLResolver

// =============================================================================
// Events
// =============================================================================

// Event is delivered to registered handlers.
type Event = gateway.Event

// Handler consumes events. Handlers run on the session's delivery
// goroutine; a slow handler delays the events behind it.
type Handler = gateway.Handler

// CloseInfo is the payload of an EventClose event.
type CloseInfo = gateway.CloseInfo

// ReadyData is the decoded READY payload.
type ReadyData = gateway.ReadyData

// UnhandledInfo is the payload of an EventUnhandled event.
type UnhandledInfo = gateway.UnhandledInfo

// Lifecycle event names.
const (
	EventOpen         = gateway.EventOpen
	EventClose        = gateway.EventClose
	EventHeartbeat    = gateway.EventHeartbeat
	EventHeartbeatAck = gateway.EventHeartbeatAck
	EventUnhandled    = gateway.EventUnhandled
)

// Dispatch event names, exactly as they arrive on the wire.
const (
	EventReady              = gateway.EventReady
	EventResumed            = gateway.EventResumed
	EventGuildCreate        = gateway.EventGuildCreate
	EventGuildUpdate        = gateway.EventGuildUpdate
	EventGuildDelete        = gateway.EventGuildDelete
	EventChannelCreate      = gateway.EventChannelCreate
	EventChannelUpdate      = gateway.EventChannelUpdate
	EventChannelDelete      = gateway.EventChannelDelete
	EventGuildMemberAdd     = gateway.EventGuildMemberAdd
	EventGuildMemberUpdate  = gateway.EventGuildMemberUpdate
	EventGuildMemberRemove  = gateway.EventGuildMemberRemove
	EventGuildRoleCreate    = gateway.EventGuildRoleCreate
	EventGuildRoleUpdate    = gateway.EventGuildRoleUpdate
	EventGuildRoleDelete    = gateway.EventGuildRoleDelete
	EventMessageCreate      = gateway.EventMessageCreate
	EventMessageUpdate      = gateway.EventMessageUpdate
	EventMessageDelete      = gateway.EventMessageDelete
	EventUserUpdate         = gateway.EventUserUpdate
	EventPresenceUpdate     = gateway.EventPresenceUpdate
	EventTypingStart        = gateway.EventTypingStart
	EventVoiceStateUpdate   = gateway.EventVoiceStateUpdate
	EventGuildBanAdd        = gateway.EventGuildBanAdd
	EventGuildBanRemove     = gateway.EventGuildBanRemove
	EventGuildMembersChunk  = gateway.EventGuildMembersChunk
	EventInteractionCreate  = gateway.EventInteractionCreate
	EventInviteCreate       = gateway.EventInviteCreate
	EventInviteDelete       = gateway.EventInviteDelete
	EventWebhooksUpdate     = gateway.EventWebhooksUpdate
	EventGuildIntegrations  = gateway.EventGuildIntegrations
	EventGuildEmojisUpdate  = gateway.EventGuildEmojisUpdate
	EventThreadCreate       = gateway.EventThreadCreate
	EventThreadUpdate       = gateway.EventThreadUpdate
	EventThreadDelete       = gateway.EventThreadDelete
	EventMessageReactionAdd = gateway.EventMessageReactionAdd
)

// =============================================================================
// Connection state
// =============================================================================

// SessionState is the connection lifecycle phase.
type SessionState = gateway.SessionState

const (
	StateDisconnected  = gateway.StateDisconnected
	StateConnecting    = gateway.StateConnecting
	StateAwaitingHello = gateway.StateAwaitingHello
	StateIdentifying   = gateway.StateIdentifying
	StateResuming      = gateway.StateResuming
	StateReady         = gateway.StateReady
)

// Stats is a point-in-time snapshot of one session's counters.
type Stats = gateway.Stats

// =============================================================================
// Persistence
// =============================================================================

// ResumeStore persists resume state across restarts.
type ResumeStore = gateway.ResumeStore

// ResumeState is what a ResumeStore holds per shard.
type ResumeState = gateway.ResumeState

// NewMemoryResumeStore returns the in-process ResumeStore used by
// default.
var NewMemoryResumeStore = gateway.NewMemoryResumeStore

// =============================================================================
// Metrics
// =============================================================================

// EnableMetrics registers the Prometheus collectors for every session
// in the process.
var EnableMetrics = gateway.EnableMetrics

// MetricsOption configures EnableMetrics.
type MetricsOption = gateway.MetricsOption

var (
	WithMetricsNamespace   = gateway.WithMetricsNamespace
	WithMetricsRegistry    = gateway.WithMetricsRegistry
	WithMetricsConstLabels = gateway.WithMetricsConstLabels
)

// =============================================================================
// Errors
// =============================================================================

var (
	ErrMissingToken  = gateway.ErrMissingToken
	ErrNoSubscribers = gateway.ErrNoSubscribers
	ErrAlreadyOpen   = gateway.ErrAlreadyOpen
	ErrSessionClosed = gateway.ErrSessionClosed
	ErrNotConnected  = gateway.ErrNotConnected
	ErrNoGatewayURL  = gateway.ErrNoGatewayURL
	ErrInvalidShard  = gateway.ErrInvalidShard
)

// SessionError wraps a failure with the shard and operation it came
// from.
type SessionError = gateway.SessionError

// CloseError reports a connection closed by the server, with whether
// the session will retry.
type CloseError = gateway.CloseError

// HandlerError reports a panic recovered from an event handler.
type HandlerError = gateway.HandlerError

// =============================================================================
// Intents (re-export from pkg/protocol)
// =============================================================================

// Intents is the bitfield declaring which event groups the gateway
// should deliver.
type Intents = protocol.Intents

const (
	IntentGuilds                = protocol.IntentGuilds
	IntentGuildMembers          = protocol.IntentGuildMembers
	IntentGuildModeration       = protocol.IntentGuildModeration
	IntentGuildEmojis           = protocol.IntentGuildEmojis
	IntentGuildIntegrations     = protocol.IntentGuildIntegrations
	IntentGuildWebhooks         = protocol.IntentGuildWebhooks
	IntentGuildInvites          = protocol.IntentGuildInvites
	IntentGuildVoiceStates      = protocol.IntentGuildVoiceStates
	IntentGuildPresences        = protocol.IntentGuildPresences
	IntentGuildMessages         = protocol.IntentGuildMessages
	IntentGuildMessageReactions = protocol.IntentGuildMessageReactions
	IntentGuildMessageTyping    = protocol.IntentGuildMessageTyping
	IntentDirectMessages        = protocol.IntentDirectMessages
	IntentDirectReactions       = protocol.IntentDirectReactions
	IntentDirectTyping          = protocol.IntentDirectTyping
	IntentMessageContent        = protocol.IntentMessageContent
	IntentGuildScheduledEvents  = protocol.IntentGuildScheduledEvents

	// IntentsDefault covers the event set the entity cache consumes.
	IntentsDefault = protocol.IntentsDefault
)

// =============================================================================
// Presence
// =============================================================================

// PresenceUpdate is the presence announced at identify or through
// Session.UpdatePresence.
type PresenceUpdate = protocol.PresenceUpdate

// Activity is one entry in a presence's activity list.
type Activity = protocol.Activity

// Status is a presence status string.
type Status = protocol.Status

const (
	StatusOnline    = protocol.StatusOnline
	StatusDND       = protocol.StatusDND
	StatusIdle      = protocol.StatusIdle
	StatusInvisible = protocol.StatusInvisible
)

const (
	ActivityPlaying   = protocol.ActivityPlaying
	ActivityStreaming = protocol.ActivityStreaming
	ActivityListening = protocol.ActivityListening
	ActivityWatching  = protocol.ActivityWatching
	ActivityCompeting = protocol.ActivityCompeting
)

// =============================================================================
// Entities (re-export from pkg/state)
// =============================================================================

// Cache is the entity cache a ready session keeps in sync. Access it
// through Session.Cache.
type Cache = state.Cache

// CacheStats counts the entities currently cached.
type CacheStats = state.Stats

type (
	User      = state.User
	Guild     = state.Guild
	Channel   = state.Channel
	Member    = state.Member
	Role      = state.Role
	Message   = state.Message
	GuildRole = gateway.GuildRole
)
