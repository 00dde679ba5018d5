package mocks

import (
	"context"

	"github.com/you/storefront/domain"
)

// MockIdentityAPI implements domain.IdentityAPI interface for testing
type MockIdentityAPI struct {
	LoginFunc        func(ctx context.Context, creds domain.Credentials) (*domain.LoginResult, error)
	RegisterFunc     func(ctx context.Context, form domain.RegistrationForm) (*domain.User, error)
	RefreshTokenFunc func(ctx context.Context, refresh string) (*domain.TokenPair, error)
}

// NewMockIdentityAPI creates a new MockIdentityAPI with default behaviors
func NewMockIdentityAPI() *MockIdentityAPI {
	return &MockIdentityAPI{}
}

// Login authenticates credentials
func (m *MockIdentityAPI) Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, creds)
	}
	// Default behavior: accept any credentials
	return &domain.LoginResult{
		User:   &domain.User{ID: 1, Username: creds.Username, Email: creds.Username + "@example.com", Role: domain.RoleCustomer},
		Tokens: domain.TokenPair{Access: "mock_access_token", Refresh: "mock_refresh_token"},
	}, nil
}

// Register creates an account
func (m *MockIdentityAPI) Register(ctx context.Context, form domain.RegistrationForm) (*domain.User, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, form)
	}
	// Default behavior: success
	return &domain.User{ID: 1, Username: form.Username, Email: form.Email, Role: domain.RoleCustomer}, nil
}

// RefreshToken exchanges a refresh token for a new access token
func (m *MockIdentityAPI) RefreshToken(ctx context.Context, refresh string) (*domain.TokenPair, error) {
	if m.RefreshTokenFunc != nil {
		return m.RefreshTokenFunc(ctx, refresh)
	}
	// Default behavior: issue a new access token, keep refresh
	return &domain.TokenPair{Access: "mock_refreshed_access_token"}, nil
}

// Compile-time interface compliance verification
var _ domain.IdentityAPI = (*MockIdentityAPI)(nil)
