package mocks

import (
	"context"

	"github.com/you/storefront/domain"
)

// MockSessionStore implements domain.SessionStore interface for testing
type MockSessionStore struct {
	GetFunc    func(ctx context.Context, key string) ([]byte, error)
	SetFunc    func(ctx context.Context, key string, value []byte) error
	DeleteFunc func(ctx context.Context, key string) error
}

// NewMockSessionStore creates a new MockSessionStore with default behaviors
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{}
}

// Get returns the stored value for key
func (m *MockSessionStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, key)
	}
	// Default behavior: not found
	return nil, domain.ErrStoreEntryNotFound
}

// Set stores value under key
func (m *MockSessionStore) Set(ctx context.Context, key string, value []byte) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, key, value)
	}
	// Default behavior: success
	return nil
}

// Delete removes key
func (m *MockSessionStore) Delete(ctx context.Context, key string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, key)
	}
	// Default behavior: success
	return nil
}

// Compile-time interface compliance verification
var _ domain.SessionStore = (*MockSessionStore)(nil)
