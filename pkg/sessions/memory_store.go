package sessions

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	snap      Snapshot
	expiresAt time.Time
}

type flowEntry struct {
	verifier  string
	expiresAt time.Time
}

// MemoryStore implements Store with mutex-guarded maps. Expired entries
// are dropped lazily on access. It exists for tests and single-process
// development; production deployments share a RedisStore.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]memoryEntry
	userIndex map[string]map[string]struct{}
	flows     map[string]flowEntry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]memoryEntry),
		userIndex: make(map[string]map[string]struct{}),
		flows:     make(map[string]flowEntry),
	}
}

func (m *MemoryStore) PutSession(_ context.Context, token string, snap Snapshot, ttl time.Duration) error {
	if token == "" {
		return ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[token] = memoryEntry{snap: snap, expiresAt: time.Now().Add(ttl)}
	if m.userIndex[snap.Email] == nil {
		m.userIndex[snap.Email] = make(map[string]struct{})
	}
	m.userIndex[snap.Email][token] = struct{}{}
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, token string) (Snapshot, error) {
	if token == "" {
		return Snapshot{}, ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[token]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	if time.Now().After(entry.expiresAt) {
		m.evictLocked(token, entry.snap.Email)
		return Snapshot{}, ErrNotFound
	}
	return entry.snap, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, token string) error {
	if token == "" {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.sessions[token]; ok {
		m.evictLocked(token, entry.snap.Email)
	}
	return nil
}

func (m *MemoryStore) DeleteUserSessions(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for token := range m.userIndex[email] {
		delete(m.sessions, token)
	}
	delete(m.userIndex, email)
	return nil
}

func (m *MemoryStore) PutFlowState(_ context.Context, state, verifier string, ttl time.Duration) error {
	if state == "" {
		return ErrEmptyKey
	}
	if ttl <= 0 {
		ttl = DefaultFlowStateTTL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.flows[state] = flowEntry{verifier: verifier, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (m *MemoryStore) TakeFlowState(_ context.Context, state string) (string, error) {
	if state == "" {
		return "", ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.flows[state]
	if !ok {
		return "", ErrNotFound
	}
	// Consume before the expiry check so a stale flow cannot be
	// replayed either way.
	delete(m.flows, state)
	if time.Now().After(entry.expiresAt) {
		return "", ErrNotFound
	}
	return entry.verifier, nil
}

func (m *MemoryStore) evictLocked(token, email string) {
	delete(m.sessions, token)
	if index, ok := m.userIndex[email]; ok {
		delete(index, token)
		if len(index) == 0 {
			delete(m.userIndex, email)
		}
	}
}
