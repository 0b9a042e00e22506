package cart

import (
	"context"
	"sync"
)

// MemoryPersister keeps encoded blobs in process. It backs the "memory" cart
// backend and tests.
type MemoryPersister struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{blobs: make(map[string][]byte)}
}

func (m *MemoryPersister) Load(_ context.Context, key string) (*State, error) {
	m.mu.RLock()
	raw, ok := m.blobs[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return DecodeState(raw)
}

func (m *MemoryPersister) Save(_ context.Context, key string, state State) error {
	raw, err := EncodeState(state)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.blobs[key] = raw
	m.mu.Unlock()
	return nil
}

// Raw returns the stored blob for key.
func (m *MemoryPersister) Raw(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.blobs[key]
	return raw, ok
}
