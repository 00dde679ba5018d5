package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/you/storefront/domain"
	"github.com/you/storefront/internal/infrastructure/repositories"
	"github.com/you/storefront/internal/mocks"
)

// cartBackend is an in-memory domain.CartAPI that counts calls per operation
type cartBackend struct {
	mu     sync.Mutex
	items  []domain.CartItem
	nextID uint
	calls  map[string]int

	// failRemove makes RemoveItem fail for the listed item ids
	failRemove map[uint]bool
	// getErr, when set, is returned by GetCart
	getErr error
	// onGet runs inside GetCart before the items are copied
	onGet func()
}

func newCartBackend(items ...domain.CartItem) *cartBackend {
	b := &cartBackend{nextID: 1, calls: make(map[string]int), failRemove: make(map[uint]bool)}
	for _, item := range items {
		if item.ID >= b.nextID {
			b.nextID = item.ID + 1
		}
		b.items = append(b.items, item)
	}
	return b
}

func (b *cartBackend) count(op string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[op]
}

func (b *cartBackend) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

func (b *cartBackend) GetCart(ctx context.Context, token string) ([]domain.CartItem, error) {
	b.mu.Lock()
	b.calls["get"]++
	hook, getErr := b.onGet, b.getErr
	b.mu.Unlock()

	if hook != nil {
		hook()
	}
	if getErr != nil {
		return nil, getErr
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.CartItem{}, b.items...), nil
}

func (b *cartBackend) AddItem(ctx context.Context, token string, req domain.AddToCartRequest) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["add"]++
	b.items = append(b.items, domain.CartItem{
		ID:       b.nextID,
		Product:  domain.CartProduct{ID: req.ProductID, Name: fmt.Sprintf("product-%d", req.ProductID), Price: "10.00"},
		Quantity: req.Quantity,
		Size:     req.Size,
	})
	b.nextID++
	return nil
}

func (b *cartBackend) UpdateItem(ctx context.Context, token string, itemID uint, quantity int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["update"]++
	for i := range b.items {
		if b.items[i].ID == itemID {
			b.items[i].Quantity = quantity
			return nil
		}
	}
	return &domain.APIError{Status: 404, Message: "Cart item not found."}
}

func (b *cartBackend) RemoveItem(ctx context.Context, token string, itemID uint) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls["remove"]++
	if b.failRemove[itemID] {
		return &domain.APIError{Status: 500, Message: "Internal server error"}
	}
	for i := range b.items {
		if b.items[i].ID == itemID {
			b.items = append(b.items[:i:i], b.items[i+1:]...)
			return nil
		}
	}
	return &domain.APIError{Status: 404, Message: "Cart item not found."}
}

var _ domain.CartAPI = (*cartBackend)(nil)

func cartLine(id uint, price string, quantity int) domain.CartItem {
	return domain.CartItem{
		ID:       id,
		Product:  domain.CartProduct{ID: id, Name: fmt.Sprintf("product-%d", id), Price: price},
		Quantity: quantity,
	}
}

func strPtr(s string) *string { return &s }

// createTestUser returns a customer with a profile phone
func createTestUser(t *testing.T) *domain.User {
	t.Helper()
	return &domain.User{
		ID:          42,
		Username:    "ana",
		Email:       "ana@example.com",
		Role:        domain.RoleCustomer,
		PhoneNumber: strPtr("+15550100"),
	}
}

func createTestTokens(t *testing.T) *domain.TokenPair {
	t.Helper()
	return &domain.TokenPair{Access: "access-token", Refresh: "refresh-token"}
}

// newTestPersistence wires a persistence adapter over real in-memory stores
func newTestPersistence(t *testing.T) (domain.PersistenceAdapter, *repositories.MemorySessionStore, *repositories.MemorySessionStore) {
	t.Helper()
	durable := repositories.NewMemorySessionStore(0)
	ephemeral := repositories.NewMemorySessionStore(0)
	return NewPersistenceAdapter(durable, ephemeral, zaptest.NewLogger(t)), durable, ephemeral
}

// newTestSession creates a session over in-memory stores and the given identity API.
// identity may be nil.
func newTestSession(t *testing.T, identity domain.IdentityAPI) (*AuthSessionImpl, *mocks.MockAuditLogger) {
	t.Helper()
	if identity == nil {
		identity = mocks.NewMockIdentityAPI()
	}
	persistence, _, _ := newTestPersistence(t)
	audit := mocks.NewMockAuditLogger()
	return NewAuthSession(persistence, identity, mocks.NewMockTokenInspector(), audit, zaptest.NewLogger(t)), audit
}

// newSignedInCart returns a session already logged in and a cart bound to it
func newSignedInCart(t *testing.T, backend domain.CartAPI) (*AuthSessionImpl, *CartStoreImpl) {
	t.Helper()
	ctx := context.Background()

	session, _ := newTestSession(t, nil)
	session.Restore(ctx)
	cart := NewCartStore(session, backend, mocks.NewMockAuditLogger(), nil, zaptest.NewLogger(t))
	t.Cleanup(cart.Close)

	if err := session.Login(ctx, createTestUser(t), createTestTokens(t), true); err != nil {
		t.Fatalf("login: %v", err)
	}
	return session, cart
}
