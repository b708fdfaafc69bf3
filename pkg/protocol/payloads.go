package protocol

// GatewayVersion is the gateway API version this package speaks.
const GatewayVersion = 10

// Hello is the body of the first frame the gateway sends after the
// socket opens (opcode 10).
type Hello struct {
	// HeartbeatInterval is the heartbeat period in milliseconds.
	HeartbeatInterval int `json:"heartbeat_interval"`
}

// IdentifyProperties describes the connecting client to the gateway.
type IdentifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

// Identify is the opcode 2 body establishing a brand-new session.
type Identify struct {
	Token          string             `json:"token"`
	Properties     IdentifyProperties `json:"properties"`
	Compress       bool               `json:"compress,omitempty"`
	LargeThreshold int                `json:"large_threshold,omitempty"`
	Shard          *[2]int            `json:"shard,omitempty"`
	Presence       *PresenceUpdate    `json:"presence,omitempty"`
	Intents        Intents            `json:"intents"`
}

// Resume is the opcode 6 body continuing a prior session after a
// transient disconnect.
type Resume struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Seq       int64  `json:"seq"`
}

// RequestGuildMembers is the opcode 8 body asking the gateway to stream
// member chunks for a guild. Query and UserIDs are mutually exclusive;
// an empty Query with Limit 0 requests all members.
type RequestGuildMembers struct {
	GuildID   string   `json:"guild_id"`
	Query     string   `json:"query"`
	Limit     int      `json:"limit"`
	Presences bool     `json:"presences,omitempty"`
	UserIDs   []string `json:"user_ids,omitempty"`
	Nonce     string   `json:"nonce,omitempty"`
}

// VoiceStateUpdate is the opcode 4 body. A nil ChannelID disconnects
// from voice.
type VoiceStateUpdate struct {
	GuildID   string  `json:"guild_id"`
	ChannelID *string `json:"channel_id"`
	SelfMute  bool    `json:"self_mute"`
	SelfDeaf  bool    `json:"self_deaf"`
}

// PresenceUpdate is the opcode 3 body. Since is the unix millisecond
// timestamp the client went idle, or nil when active.
type PresenceUpdate struct {
	Since      *int64     `json:"since"`
	Activities []Activity `json:"activities"`
	Status     Status     `json:"status"`
	AFK        bool       `json:"afk"`
}

// Status is a presence status string.
type Status string

const (
	StatusOnline    Status = "online"
	StatusDND       Status = "dnd"
	StatusIdle      Status = "idle"
	StatusInvisible Status = "invisible"
	StatusOffline   Status = "offline"
)

// ActivityType tags what kind of activity a presence carries.
type ActivityType int

const (
	ActivityPlaying   ActivityType = 0
	ActivityStreaming ActivityType = 1
	ActivityListening ActivityType = 2
	ActivityWatching  ActivityType = 3
	ActivityCompeting ActivityType = 5
)

// Activity is one entry in a presence's activity list.
type Activity struct {
	Name string       `json:"name"`
	Type ActivityType `json:"type"`
	URL  string       `json:"url,omitempty"`
}
