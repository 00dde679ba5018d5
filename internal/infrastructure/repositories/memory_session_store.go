package repositories

import (
	"context"
	"sync"

	"github.com/you/storefront/domain"
)

// MemorySessionStore implements domain.SessionStore in process memory.
// It is the ephemeral backend: entries live as long as the process.
type MemorySessionStore struct {
	mu       sync.RWMutex
	entries  map[string][]byte
	capacity int
}

// NewMemorySessionStore creates an ephemeral store. capacity bounds the total
// stored bytes; Set fails with domain.ErrStoreQuotaExceeded beyond it. Zero means unbounded.
func NewMemorySessionStore(capacity int) *MemorySessionStore {
	return &MemorySessionStore{
		entries:  make(map[string][]byte),
		capacity: capacity,
	}
}

// Get implements domain.SessionStore
func (m *MemorySessionStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.entries[key]
	if !ok {
		return nil, domain.ErrStoreEntryNotFound
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set implements domain.SessionStore
func (m *MemorySessionStore) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.capacity > 0 {
		used := 0
		for k, v := range m.entries {
			if k != key {
				used += len(v)
			}
		}
		if used+len(value) > m.capacity {
			return domain.ErrStoreQuotaExceeded
		}
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	m.entries[key] = stored
	return nil
}

// Delete implements domain.SessionStore
func (m *MemorySessionStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

var _ domain.SessionStore = (*MemorySessionStore)(nil)
