package kvstore

import (
	"context"
	"sync"
)

// Memory is an in-process Store, suitable for tests and for hosts that
// supply their own persistence by copying keys in and out.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

// Get returns the value for key, or ErrNotFound.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	cpy := make([]byte, len(v))
	copy(cpy, v)
	return cpy, nil
}

// Set stores value under key, replacing any previous value.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cpy := make([]byte, len(value))
	copy(cpy, value)
	m.values[key] = cpy
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
