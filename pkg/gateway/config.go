package gateway

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/gatewire-dev/gatewire/pkg/protocol"
)

// URLResolver supplies the gateway URL for fresh connections. A
// rest.Client satisfies it; tests substitute a fixed URL.
type URLResolver interface {
	GatewayURL(ctx context.Context) (string, error)
}

// Config holds configuration for a gateway session.
type Config struct {
	// Identity

	// Token is the bot token. Required.
	Token string

	// Intents selects which dispatch events the gateway sends.
	// Default: protocol.IntentsDefault.
	Intents protocol.Intents

	// Shard is the (shard ID, shard count) pair sent in Identify.
	// Default: [0, 1] (unsharded).
	Shard [2]int

	// Properties identifies the client library to the gateway.
	// Default: OS from runtime.GOOS, browser and device "gatewire".
	Properties protocol.IdentifyProperties

	// Presence is the initial presence sent in Identify.
	// Default: nil (gateway default).
	Presence *protocol.PresenceUpdate

	// Connection

	// GatewayURL pins the WebSocket URL. When empty the Resolver is
	// asked before every fresh connection.
	GatewayURL string

	// Resolver fetches the gateway URL when GatewayURL is empty.
	// Required unless GatewayURL is set.
	Resolver URLResolver

	// Compress requests zlib transport compression.
	// Default: false.
	Compress bool

	// LargeThreshold is the member count above which guilds arrive
	// without offline members. 0 sends the gateway default.
	LargeThreshold int

	// HandshakeTimeout is the maximum time for the WebSocket dial.
	// Default: 30 seconds.
	HandshakeTimeout time.Duration

	// Retry schedule

	// RetryBaseDelay is the delay before early reconnect attempts.
	// Default: 1 second.
	RetryBaseDelay time.Duration

	// RetryLongDelay is the delay once RetryShortAttempts is exhausted.
	// Default: 15 seconds.
	RetryLongDelay time.Duration

	// RetryShortAttempts is how many attempts use RetryBaseDelay before
	// switching to RetryLongDelay.
	// Default: 3.
	RetryShortAttempts int

	// URLRefreshAfter is the cumulative attempt count after which the
	// cached gateway URL is discarded and re-resolved, in case the old
	// endpoint is the problem.
	// Default: 8.
	URLRefreshAfter int

	// Outbound limits

	// SendRateLimit is the number of frames the session may send per
	// SendRatePeriod. Heartbeats and the handshake bypass it.
	// Default: 110 (leaves headroom under the gateway's 120/minute).
	SendRateLimit int

	// SendRatePeriod is the window for SendRateLimit.
	// Default: 60 seconds.
	SendRatePeriod time.Duration

	// Delivery

	// EventBuffer is the size of the event delivery queue. Events are
	// dropped, not blocked on, when it fills.
	// Default: 256.
	EventBuffer int

	// Persistence

	// Store persists resume state across restarts.
	// Default: in-memory only.
	Store ResumeStore

	// Logger is the structured logger for session internals.
	// Default: slog.Default().
	Logger *slog.Logger
}

// DefaultConfig returns a Config with sensible defaults. Token and
// Resolver (or GatewayURL) must still be set by the caller.
func DefaultConfig() *Config {
	return &Config{
		Intents: protocol.IntentsDefault,
		Shard:   [2]int{0, 1},
		Properties: protocol.IdentifyProperties{
			OS:      runtime.GOOS,
			Browser: "gatewire",
			Device:  "gatewire",
		},
		HandshakeTimeout:   30 * time.Second,
		RetryBaseDelay:     1 * time.Second,
		RetryLongDelay:     15 * time.Second,
		RetryShortAttempts: 3,
		URLRefreshAfter:    8,
		SendRateLimit:      110,
		SendRatePeriod:     60 * time.Second,
		EventBuffer:        256,
	}
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	if c.Presence != nil {
		p := *c.Presence
		clone.Presence = &p
	}
	return &clone
}

// WithToken sets the bot token and returns the config for chaining.
func (c *Config) WithToken(token string) *Config {
	c.Token = token
	return c
}

// WithIntents sets the gateway intents and returns the config for chaining.
func (c *Config) WithIntents(intents protocol.Intents) *Config {
	c.Intents = intents
	return c
}

// WithShard sets the shard tuple and returns the config for chaining.
func (c *Config) WithShard(id, count int) *Config {
	c.Shard = [2]int{id, count}
	return c
}

// WithGatewayURL pins the gateway URL and returns the config for chaining.
func (c *Config) WithGatewayURL(url string) *Config {
	c.GatewayURL = url
	return c
}

// WithResolver sets the URL resolver and returns the config for chaining.
func (c *Config) WithResolver(r URLResolver) *Config {
	c.Resolver = r
	return c
}

// WithLogger sets the logger and returns the config for chaining.
func (c *Config) WithLogger(logger *slog.Logger) *Config {
	c.Logger = logger
	return c
}

// WithStore sets the resume store and returns the config for chaining.
func (c *Config) WithStore(store ResumeStore) *Config {
	c.Store = store
	return c
}

// withDefaults fills zero-valued fields from DefaultConfig.
func (c *Config) withDefaults() *Config {
	d := DefaultConfig()
	out := c.Clone()
	if out.Intents == 0 {
		out.Intents = d.Intents
	}
	if out.Shard[1] == 0 {
		out.Shard = d.Shard
	}
	if out.Properties == (protocol.IdentifyProperties{}) {
		out.Properties = d.Properties
	}
	if out.HandshakeTimeout == 0 {
		out.HandshakeTimeout = d.HandshakeTimeout
	}
	if out.RetryBaseDelay == 0 {
		out.RetryBaseDelay = d.RetryBaseDelay
	}
	if out.RetryLongDelay == 0 {
		out.RetryLongDelay = d.RetryLongDelay
	}
	if out.RetryShortAttempts == 0 {
		out.RetryShortAttempts = d.RetryShortAttempts
	}
	if out.URLRefreshAfter == 0 {
		out.URLRefreshAfter = d.URLRefreshAfter
	}
	if out.SendRateLimit == 0 {
		out.SendRateLimit = d.SendRateLimit
	}
	if out.SendRatePeriod == 0 {
		out.SendRatePeriod = d.SendRatePeriod
	}
	if out.EventBuffer == 0 {
		out.EventBuffer = d.EventBuffer
	}
	if out.Store == nil {
		out.Store = NewMemoryResumeStore()
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	return out
}

// validate rejects configurations that can never connect. These are
// caller bugs, reported before any network activity.
func (c *Config) validate() error {
	if c.Token == "" {
		return ErrMissingToken
	}
	if c.GatewayURL == "" && c.Resolver == nil {
		return ErrNoGatewayURL
	}
	if c.Shard[0] < 0 || c.Shard[1] < 1 || c.Shard[0] >= c.Shard[1] {
		return ErrInvalidShard
	}
	return nil
}
