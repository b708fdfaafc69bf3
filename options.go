package gatewire

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gatewire-dev/gatewire/pkg/gateway"
	"github.com/gatewire-dev/gatewire/pkg/rest"
)

// options collects the root-level knobs before they are lowered onto
// the session and REST configs.
type options struct {
	cfg              *gateway.Config
	apiBaseURL       string
	httpClient       *http.Client
	identifyInterval time.Duration
}

// Option configures New and NewShardManager.
type Option func(*options)

// WithIntents selects which dispatch event groups the gateway sends.
func WithIntents(intents Intents) Option {
	return func(o *options) { o.cfg.Intents = intents }
}

// WithShard sets the (shard ID, shard count) pair for a single
// session. NewShardManager overrides it per shard.
func WithShard(id, count int) Option {
	return func(o *options) { o.cfg.Shard = [2]int{id, count} }
}

// WithPresence sets the presence announced at identify.
func WithPresence(p *PresenceUpdate) Option {
	return func(o *options) { o.cfg.Presence = p }
}

// WithGatewayURL pins the WebSocket URL instead of resolving it over
// REST before each fresh connection.
func WithGatewayURL(url string) Option {
	return func(o *options) { o.cfg.GatewayURL = url }
}

// WithResolver substitutes the URL resolver. Mostly useful in tests.
func WithResolver(r URLResolver) Option {
	return func(o *options) { o.cfg.Resolver = r }
}

// WithAPIBaseURL points the automatic REST resolver at a different
// API root, such as a proxy.
func WithAPIBaseURL(url string) Option {
	return func(o *options) { o.apiBaseURL = url }
}

// WithHTTPClient supplies the http.Client the automatic REST resolver
// uses.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithLogger sets the structured logger for session internals.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.cfg.Logger = logger }
}

// WithStore persists resume state across restarts.
func WithStore(store ResumeStore) Option {
	return func(o *options) { o.cfg.Store = store }
}

// WithCompression requests zlib transport compression.
func WithCompression() Option {
	return func(o *options) { o.cfg.Compress = true }
}

// WithLargeThreshold sets the member count above which guilds arrive
// without offline members.
func WithLargeThreshold(n int) Option {
	return func(o *options) { o.cfg.LargeThreshold = n }
}

// WithEventBuffer sizes the event delivery queue. Events are dropped,
// not blocked on, when it fills.
func WithEventBuffer(n int) Option {
	return func(o *options) { o.cfg.EventBuffer = n }
}

// WithIdentifyInterval spaces shard handshakes in NewShardManager.
// Single sessions ignore it.
func WithIdentifyInterval(d time.Duration) Option {
	return func(o *options) { o.identifyInterval = d }
}

// New creates a single-shard Session. Register handlers with On and
// OnAny, then Open it.
//
// Unless WithGatewayURL or WithResolver is given, the session resolves
// the gateway URL through the Discord REST API with the same token.
func New(token string, opts ...Option) (*Session, error) {
	o := applyOptions(token, opts)
	return gateway.NewSession(o.cfg)
}

// NewShardManager creates a Manager running one Session per shard.
// shards 0 asks the REST API for the recommended count.
func NewShardManager(token string, shards int, opts ...Option) (*Manager, error) {
	o := applyOptions(token, opts)
	return gateway.NewManager(&gateway.ManagerConfig{
		Session:          o.cfg,
		Shards:           shards,
		IdentifyInterval: o.identifyInterval,
		Logger:           o.cfg.Logger,
	})
}

func applyOptions(token string, opts []Option) *options {
	o := &options{cfg: gateway.DefaultConfig().WithToken(token)}
	for _, opt := range opts {
		opt(o)
	}
	if o.cfg.Resolver == nil && o.cfg.GatewayURL == "" {
		var restOpts []rest.Option
		if o.apiBaseURL != "" {
			restOpts = append(restOpts, rest.WithBaseURL(o.apiBaseURL))
		}
		if o.httpClient != nil {
			restOpts = append(restOpts, rest.WithHTTPClient(o.httpClient))
		}
		if o.cfg.Logger != nil {
			restOpts = append(restOpts, rest.WithLogger(o.cfg.Logger))
		}
		o.cfg.Resolver = rest.NewClient(token, restOpts...)
	}
	return o
}
