package mocks

import (
	"context"
	"time"

	"github.com/you/storefront/domain"
)

// MockOrderAPI implements domain.OrderAPI and domain.AddressAPI interfaces for testing
type MockOrderAPI struct {
	ListAddressesFunc func(ctx context.Context, token string) ([]domain.Address, error)
	GenerateOTPFunc   func(ctx context.Context, token string, addressID uint) (string, error)
	VerifyOTPFunc     func(ctx context.Context, token, code string) error
	PlaceOrderFunc    func(ctx context.Context, token string, addressID uint, idempotencyKey string) (*domain.Order, error)
	GetOrderFunc      func(ctx context.Context, token string, orderID uint) (*domain.Order, error)
}

// NewMockOrderAPI creates a new MockOrderAPI with default behaviors
func NewMockOrderAPI() *MockOrderAPI {
	return &MockOrderAPI{}
}

// ListAddresses returns the address book
func (m *MockOrderAPI) ListAddresses(ctx context.Context, token string) ([]domain.Address, error) {
	if m.ListAddressesFunc != nil {
		return m.ListAddressesFunc(ctx, token)
	}
	// Default behavior: a single default address
	return []domain.Address{{ID: 1, Type: "home", Street: "1 Main St", City: "Springfield", Country: "US", IsDefault: true}}, nil
}

// GenerateOTP requests an OTP for the address
func (m *MockOrderAPI) GenerateOTP(ctx context.Context, token string, addressID uint) (string, error) {
	if m.GenerateOTPFunc != nil {
		return m.GenerateOTPFunc(ctx, token, addressID)
	}
	return "OTP sent to your email", nil
}

// VerifyOTP verifies the OTP code
func (m *MockOrderAPI) VerifyOTP(ctx context.Context, token, code string) error {
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, token, code)
	}
	// Default behavior: accept "123456" as valid OTP
	if code != "123456" {
		return &domain.APIError{Status: 400, Message: "Invalid OTP"}
	}
	return nil
}

// PlaceOrder creates the order
func (m *MockOrderAPI) PlaceOrder(ctx context.Context, token string, addressID uint, idempotencyKey string) (*domain.Order, error) {
	if m.PlaceOrderFunc != nil {
		return m.PlaceOrderFunc(ctx, token, addressID, idempotencyKey)
	}
	return &domain.Order{ID: 100, Status: "pending", AddressID: addressID, CreatedAt: time.Now()}, nil
}

// GetOrder loads an order
func (m *MockOrderAPI) GetOrder(ctx context.Context, token string, orderID uint) (*domain.Order, error) {
	if m.GetOrderFunc != nil {
		return m.GetOrderFunc(ctx, token, orderID)
	}
	return &domain.Order{ID: orderID, Status: "pending"}, nil
}

// Compile-time interface compliance verification
var (
	_ domain.OrderAPI   = (*MockOrderAPI)(nil)
	_ domain.AddressAPI = (*MockOrderAPI)(nil)
)
