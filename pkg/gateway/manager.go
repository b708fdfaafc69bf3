package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/gatewire-dev/gatewire/pkg/rest"
)

// ManagerConfig configures a shard Manager.
type ManagerConfig struct {
	// Session is the template config for every shard. Its Shard field
	// is overridden per shard.
	Session *Config

	// Shards is the total shard count. 0 asks the REST API for the
	// recommended count.
	Shards int

	// IdentifyInterval is the minimum spacing between shard
	// handshakes. The gateway rejects identifies that arrive faster.
	// Default: 5 seconds.
	IdentifyInterval time.Duration

	// Logger is the structured logger for manager internals.
	// Default: the session config's logger.
	Logger *slog.Logger
}

// shardCounter is the optional resolver capability the manager uses to
// discover the recommended shard count. A rest.Client provides it.
type shardCounter interface {
	BotGateway(ctx context.Context) (*rest.BotGateway, error)
}

// Manager runs one Session per shard. It discovers the shard count,
// paces the handshakes so the gateway accepts them, and fans handler
// registrations out to every shard.
type Manager struct {
	cfg    *ManagerConfig
	logger *slog.Logger

	handlersMu sync.Mutex
	named      map[string][]Handler
	wildcard   []Handler

	mu       sync.RWMutex
	sessions map[int]*Session

	identifyLimiter *rate.Limiter

	// newSession builds each shard's session. Tests substitute a
	// constructor that wires in a fake transport.
	newSession func(*Config) (*Session, error)

	opened atomic.Bool
	closed atomic.Bool
}

// NewManager creates a Manager. The session template is validated when
// the individual sessions are created in Open.
func NewManager(cfg *ManagerConfig) (*Manager, error) {
	if cfg == nil || cfg.Session == nil {
		return nil, NewSessionError(-1, "manager", ErrMissingToken)
	}
	if cfg.IdentifyInterval <= 0 {
		cfg.IdentifyInterval = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = cfg.Session.Logger
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Manager{
		cfg:             cfg,
		logger:          logger.With("component", "shard_manager"),
		named:           make(map[string][]Handler),
		sessions:        make(map[int]*Session),
		identifyLimiter: rate.NewLimiter(rate.Every(cfg.IdentifyInterval), 1),
		newSession:      NewSession,
	}, nil
}

// On registers a handler for the named event on every shard. Must be
// called before Open.
func (m *Manager) On(name string, h Handler) {
	m.handlersMu.Lock()
	m.named[name] = append(m.named[name], h)
	m.handlersMu.Unlock()
}

// OnAny registers a handler for every event on every shard. Must be
// called before Open.
func (m *Manager) OnAny(h Handler) {
	m.handlersMu.Lock()
	m.wildcard = append(m.wildcard, h)
	m.handlersMu.Unlock()
}

// Open creates and connects every shard in order, pacing the
// handshakes. It returns after the last shard starts connecting. On
// error the shards already started are closed.
func (m *Manager) Open(ctx context.Context) error {
	if m.closed.Load() {
		return ErrSessionClosed
	}
	if !m.opened.CompareAndSwap(false, true) {
		return ErrAlreadyOpen
	}

	shards, err := m.shardCount(ctx)
	if err != nil {
		m.opened.Store(false)
		return err
	}
	m.logger.Info("starting shards", "count", shards)

	for i := 0; i < shards; i++ {
		if err := m.identifyLimiter.Wait(ctx); err != nil {
			m.closeStarted()
			return err
		}

		cfg := m.cfg.Session.Clone().WithShard(i, shards)
		s, err := m.newSession(cfg)
		if err != nil {
			m.closeStarted()
			return fmt.Errorf("shard %d: %w", i, err)
		}
		m.applyHandlers(s)

		if err := s.Open(ctx); err != nil {
			s.Close()
			m.closeStarted()
			return fmt.Errorf("shard %d: %w", i, err)
		}

		m.mu.Lock()
		m.sessions[i] = s
		m.mu.Unlock()
	}
	return nil
}

// shardCount picks the configured count or asks the REST API.
func (m *Manager) shardCount(ctx context.Context) (int, error) {
	if m.cfg.Shards > 0 {
		return m.cfg.Shards, nil
	}
	sc, ok := m.cfg.Session.Resolver.(shardCounter)
	if !ok {
		// No way to discover a count; a single shard is always valid.
		return 1, nil
	}
	bg, err := sc.BotGateway(ctx)
	if err != nil {
		return 0, NewSessionError(-1, "discover shard count", err)
	}
	if bg.Shards < 1 {
		return 1, nil
	}
	m.logger.Info("using recommended shard count",
		"shards", bg.Shards,
		"session_start_remaining", bg.SessionStartLimit.Remaining)
	return bg.Shards, nil
}

func (m *Manager) applyHandlers(s *Session) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	for name, hs := range m.named {
		for _, h := range hs {
			s.On(name, h)
		}
	}
	for _, h := range m.wildcard {
		s.OnAny(h)
	}
}

// Session returns the session for a shard.
func (m *Manager) Session(shard int) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[shard]
	return s, ok
}

// Sessions returns all sessions ordered by shard ID.
func (m *Manager) Sessions() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Shard() < out[j].Shard() })
	return out
}

// Stats returns a snapshot per shard, ordered by shard ID.
func (m *Manager) Stats() []Stats {
	sessions := m.Sessions()
	out := make([]Stats, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Stats())
	}
	return out
}

// Close shuts every shard down concurrently. Safe to call more than
// once.
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	m.closeStarted()
	m.logger.Info("all shards closed")
	return nil
}

func (m *Manager) closeStarted() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *Session) {
			defer wg.Done()
			s.Close()
		}(s)
	}
	wg.Wait()
}
