package storage

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/narrative-engine/pkg/state"
)

// MockStorage is an in-memory Storage for tests. Worlds round-trip
// through JSON so tests observe the same copy semantics as Redis.
type MockStorage struct {
	mu     sync.RWMutex
	worlds map[uuid.UUID][]byte

	PingErr error
}

var _ Storage = (*MockStorage)(nil)

func NewMockStorage() *MockStorage {
	return &MockStorage{
		worlds: make(map[uuid.UUID][]byte),
	}
}

func (m *MockStorage) Ping(ctx context.Context) error {
	return m.PingErr
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) SaveWorld(ctx context.Context, id uuid.UUID, w *state.World) error {
	data, err := json.Marshal(w)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.worlds[id] = data
	return nil
}

func (m *MockStorage) LoadWorld(ctx context.Context, id uuid.UUID) (*state.World, error) {
	m.mu.RLock()
	data, ok := m.worlds[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	var w state.World
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (m *MockStorage) DeleteWorld(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.worlds[id]; !ok {
		return ErrNotFound
	}
	delete(m.worlds, id)
	return nil
}
