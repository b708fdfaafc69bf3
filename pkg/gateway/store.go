package gateway

import "sync"

// ResumeState is everything needed to resume a gateway session instead
// of re-identifying: the server-assigned session ID, the last sequence
// number processed, and the resume endpoint the READY payload named.
type ResumeState struct {
	SessionID  string `json:"session_id"`
	Sequence   int64  `json:"sequence"`
	GatewayURL string `json:"gateway_url"`
}

// ResumeStore persists resume state between connections. Implementations
// must be safe for concurrent use; the session saves on every dispatch
// frame and loads when reconnecting.
type ResumeStore interface {
	// Save records the resume state for a shard.
	Save(shard int, state ResumeState) error

	// Load returns the resume state for a shard. ok is false when no
	// state has been saved or it was cleared.
	Load(shard int) (state ResumeState, ok bool)

	// Clear discards the resume state for a shard. Called when the
	// server invalidates the session.
	Clear(shard int) error
}

// MemoryResumeStore keeps resume state in process memory. State is lost
// on restart, which forces a fresh Identify; that is always safe.
type MemoryResumeStore struct {
	mu     sync.RWMutex
	states map[int]ResumeState
}

// NewMemoryResumeStore creates an empty in-memory resume store.
func NewMemoryResumeStore() *MemoryResumeStore {
	return &MemoryResumeStore{
		states: make(map[int]ResumeState),
	}
}

// Save records the resume state for a shard.
func (s *MemoryResumeStore) Save(shard int, state ResumeState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[shard] = state
	return nil
}

// Load returns the resume state for a shard.
func (s *MemoryResumeStore) Load(shard int) (ResumeState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[shard]
	return state, ok
}

// Clear discards the resume state for a shard.
func (s *MemoryResumeStore) Clear(shard int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, shard)
	return nil
}
