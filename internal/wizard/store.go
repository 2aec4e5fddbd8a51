package wizard

import (
	"context"
	"sync"
)

// MemoryStore is a Store kept in process memory. It backs scratch engines
// and tests.
type MemoryStore struct {
	mu     sync.Mutex
	data   []byte
	saves  int
	clears int
}

// NewMemoryStore creates an empty store, optionally seeded with a snapshot
func NewMemoryStore(seed []byte) *MemoryStore {
	return &MemoryStore{data: seed}
}

func (m *MemoryStore) Load(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

func (m *MemoryStore) Save(ctx context.Context, snapshot []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), snapshot...)
	m.saves++
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	m.clears++
	return nil
}

// Snapshot returns the stored bytes, or nil
func (m *MemoryStore) Snapshot() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}
