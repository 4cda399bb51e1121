package store

import (
	"context"
	"sync"
)

// MemStore keeps documents in process memory.
type MemStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{data: map[string][]byte{}}
}

func (m *MemStore) Get(_ context.Context, key string, v any) (bool, error) {
	m.mu.RLock()
	b, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, decode(key, b, v)
}

func (m *MemStore) Put(_ context.Context, key string, v any) error {
	b, err := encode(key, v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = b
	m.mu.Unlock()
	return nil
}

func (m *MemStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}
