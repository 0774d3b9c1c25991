package session

import (
	"context"
	"encoding/json"
	"sync"

	"busmitra/models"
)

// MemoryStore is an in-process Store used in tests and single-node setups.
// It honours the same copy-on-read and locking semantics as the Redis store.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
	locks    map[string]bool
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string][]byte),
		locks:    make(map[string]bool),
	}
}

func (m *MemoryStore) Get(ctx context.Context, sessionID string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (m *MemoryStore) Save(ctx context.Context, sess *models.Session) error {
	b, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = b
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *MemoryStore) Acquire(ctx context.Context, sessionID string) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[sessionID] {
		return nil, ErrLocked
	}
	m.locks[sessionID] = true
	release := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.locks, sessionID)
	}
	return release, nil
}
