package mocks

import (
	"time"

	"github.com/you/storefront/domain"
)

// MockTokenInspector implements domain.TokenInspector interface for testing
type MockTokenInspector struct {
	ExpiresAtFunc func(token string) (time.Time, error)
}

// NewMockTokenInspector creates a new MockTokenInspector with default behaviors
func NewMockTokenInspector() *MockTokenInspector {
	return &MockTokenInspector{}
}

// ExpiresAt returns the token expiry
func (m *MockTokenInspector) ExpiresAt(token string) (time.Time, error) {
	if m.ExpiresAtFunc != nil {
		return m.ExpiresAtFunc(token)
	}
	// Default behavior: valid for 15 minutes
	return time.Now().Add(15 * time.Minute), nil
}

// Compile-time interface compliance verification
var _ domain.TokenInspector = (*MockTokenInspector)(nil)
