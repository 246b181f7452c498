package services

import "sync"

// IngestionSession tracks the two-phase boundary selection for one operator.
// Zero values mean "unset": Telegram message IDs start at 1 and channel IDs
// are never zero.
type IngestionSession struct {
	BoundaryStart int
	BoundaryEnd   int
	SourceChannel int64
}

// Started reports whether the start boundary has been recorded.
func (s IngestionSession) Started() bool { return s.BoundaryStart != 0 }

// SessionStore holds process-local ingestion sessions keyed by operator
// identity. Sessions are ephemeral bookkeeping and never persisted.
type SessionStore interface {
	// Get returns the current session for the operator (zero value if none).
	Get(operatorID int64) IngestionSession

	// Put replaces the operator's session.
	Put(operatorID int64, s IngestionSession)

	// Reset discards the operator's session from any state.
	Reset(operatorID int64)
}

// MemorySessionStore is a mutex-guarded in-memory SessionStore. The guard is
// required because update handling and the ops server run on separate
// goroutines.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[int64]IngestionSession
}

// NewMemorySessionStore returns an empty session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[int64]IngestionSession)}
}

// Get implements SessionStore.
func (m *MemorySessionStore) Get(operatorID int64) IngestionSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[operatorID]
}

// Put implements SessionStore.
func (m *MemorySessionStore) Put(operatorID int64, s IngestionSession) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[operatorID] = s
}

// Reset implements SessionStore.
func (m *MemorySessionStore) Reset(operatorID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, operatorID)
}
