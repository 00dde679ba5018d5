package mocks

import (
	"context"

	"github.com/you/storefront/domain"
)

// MockCartAPI implements domain.CartAPI interface for testing
type MockCartAPI struct {
	GetCartFunc    func(ctx context.Context, token string) ([]domain.CartItem, error)
	AddItemFunc    func(ctx context.Context, token string, req domain.AddToCartRequest) error
	UpdateItemFunc func(ctx context.Context, token string, itemID uint, quantity int) error
	RemoveItemFunc func(ctx context.Context, token string, itemID uint) error
}

// NewMockCartAPI creates a new MockCartAPI with default behaviors
func NewMockCartAPI() *MockCartAPI {
	return &MockCartAPI{}
}

// GetCart returns the cart lines
func (m *MockCartAPI) GetCart(ctx context.Context, token string) ([]domain.CartItem, error) {
	if m.GetCartFunc != nil {
		return m.GetCartFunc(ctx, token)
	}
	// Default behavior: empty cart
	return []domain.CartItem{}, nil
}

// AddItem adds a product to the cart
func (m *MockCartAPI) AddItem(ctx context.Context, token string, req domain.AddToCartRequest) error {
	if m.AddItemFunc != nil {
		return m.AddItemFunc(ctx, token, req)
	}
	return nil
}

// UpdateItem changes a line quantity
func (m *MockCartAPI) UpdateItem(ctx context.Context, token string, itemID uint, quantity int) error {
	if m.UpdateItemFunc != nil {
		return m.UpdateItemFunc(ctx, token, itemID, quantity)
	}
	return nil
}

// RemoveItem deletes a line
func (m *MockCartAPI) RemoveItem(ctx context.Context, token string, itemID uint) error {
	if m.RemoveItemFunc != nil {
		return m.RemoveItemFunc(ctx, token, itemID)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.CartAPI = (*MockCartAPI)(nil)
