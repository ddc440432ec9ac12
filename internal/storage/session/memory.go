package session

import (
	"context"
	"sync"

	"github.com/zhouzirui/z-saga/backend/internal/model/story"
)

// MemoryStore keeps sessions in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]story.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]story.Session)}
}

func (m *MemoryStore) LoadAll(context.Context) (map[string]story.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return cloneAll(m.sessions), nil
}

func (m *MemoryStore) SaveAll(_ context.Context, sessions map[string]story.Session) error {
	snapshot := cloneAll(sessions)

	m.mu.Lock()
	m.sessions = snapshot
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
