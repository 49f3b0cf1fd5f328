package registry

import (
	"context"
	"sync"
)

// Memory is an in-process Registry guarded by a mutex.
type Memory struct {
	mu      sync.Mutex
	claimed map[string]struct{}
}

// NewMemory creates an empty in-process registry.
func NewMemory() *Memory {
	return &Memory{claimed: make(map[string]struct{})}
}

// Claim implements Registry. It never returns an error.
func (m *Memory) Claim(_ context.Context, id string) (bool, error) {
	id = NormalizeID(id)

	m.mu.Lock()
	_, exists := m.claimed[id]
	if !exists {
		m.claimed[id] = struct{}{}
	}
	m.mu.Unlock()

	recordClaim("memory", !exists, nil)
	return !exists, nil
}

// AllClaimed implements Registry.
func (m *Memory) AllClaimed(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.claimed))
	for id := range m.claimed {
		ids = append(ids, id)
	}
	return ids, nil
}

// Discard implements Registry.
func (m *Memory) Discard(_ context.Context) error {
	m.mu.Lock()
	m.claimed = make(map[string]struct{})
	m.mu.Unlock()
	return nil
}
