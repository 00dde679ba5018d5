package services

import (
	"context"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/you/storefront/domain"
	"github.com/you/storefront/internal/observability"
)

// CartStoreImpl implements domain.CartStore as a read replica of the server
// cart. Every mutation is a write followed by a full re-fetch; nothing is
// merged locally.
//
// Mutations and fetches are serialized through mutateMu, held across the
// write and the trailing fetch, so the replica is always replaced in the
// order the backend was read. generation is bumped on every reset; results of calls started under an
// older generation are dropped so a logout cannot be undone by a late response.
type CartStoreImpl struct {
	session domain.SessionProvider
	api     domain.CartAPI
	audit   domain.AuditLogger
	metrics *observability.Metrics
	logger  *zap.Logger

	mutateMu sync.Mutex

	mu         sync.RWMutex
	items      []domain.CartItem
	inflight   int
	generation uint64

	unsubscribe func()
}

// NewCartStore creates a cart bound to session. It fetches on every sign-in
// and empties itself on every sign-out.
func NewCartStore(
	session domain.SessionProvider,
	api domain.CartAPI,
	audit domain.AuditLogger,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *CartStoreImpl {
	c := &CartStoreImpl{
		session: session,
		api:     api,
		audit:   audit,
		metrics: metrics,
		logger:  logger.Named("cart"),
		items:   []domain.CartItem{},
	}
	c.unsubscribe = session.Subscribe(c.onAuthEvent)
	return c
}

// Close detaches the cart from the session
func (c *CartStoreImpl) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

func (c *CartStoreImpl) onAuthEvent(ctx context.Context, event domain.AuthEvent) {
	if event.Current != domain.AuthAuthenticated {
		c.reset()
		return
	}
	switch event.Type {
	case domain.AuthEventLoggedIn, domain.AuthEventRestored:
		if event.AccessToken != "" {
			c.Fetch(ctx)
		}
	}
}

// Items implements domain.CartStore. The slice is a copy and never nil.
func (c *CartStoreImpl) Items() []domain.CartItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	items := make([]domain.CartItem, len(c.items))
	copy(items, c.items)
	return items
}

// Loading implements domain.CartStore
func (c *CartStoreImpl) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inflight > 0
}

// Fetch implements domain.CartStore. Failures empty the cart and are logged;
// nothing is returned to the caller. It queues behind running mutations so an
// older snapshot never lands after a newer one.
func (c *CartStoreImpl) Fetch(ctx context.Context) {
	c.mutateMu.Lock()
	defer c.mutateMu.Unlock()

	token := c.session.AccessToken()
	if token == "" {
		c.reset()
		return
	}

	gen := c.begin()
	defer c.end(gen)
	c.refresh(ctx, token, gen)
}

// Add implements domain.CartStore
func (c *CartStoreImpl) Add(ctx context.Context, productID uint, quantity int, size *string) bool {
	if quantity < 1 {
		c.logger.Debug("rejected add with invalid quantity", zap.Int("quantity", quantity))
		return false
	}
	req := domain.AddToCartRequest{ProductID: productID, Quantity: quantity, Size: size}
	return c.mutate(ctx, "add", false, func(ctx context.Context, token string) error {
		return c.api.AddItem(ctx, token, req)
	})
}

// UpdateQuantity implements domain.CartStore. Quantities below 1 are refused
// before any request; they are never clamped.
func (c *CartStoreImpl) UpdateQuantity(ctx context.Context, itemID uint, quantity int) bool {
	if quantity < 1 {
		c.logger.Debug("rejected update with invalid quantity", zap.Uint("item_id", itemID), zap.Int("quantity", quantity))
		return false
	}
	return c.mutate(ctx, "update", false, func(ctx context.Context, token string) error {
		return c.api.UpdateItem(ctx, token, itemID, quantity)
	})
}

// Remove implements domain.CartStore
func (c *CartStoreImpl) Remove(ctx context.Context, itemID uint) bool {
	return c.mutate(ctx, "remove", false, func(ctx context.Context, token string) error {
		return c.api.RemoveItem(ctx, token, itemID)
	})
}

// Clear implements domain.CartStore. Items are deleted concurrently and the
// cart re-fetched once. This is best effort: a partial failure leaves the
// lines that could not be deleted, and false is returned.
func (c *CartStoreImpl) Clear(ctx context.Context) bool {
	return c.mutate(ctx, "clear", true, func(ctx context.Context, token string) error {
		return c.removeAll(ctx, token, c.Items())
	})
}

// ResetAfterOrder implements domain.CartStore. The backend normally empties
// the cart when it creates an order; any lines still present are deleted.
func (c *CartStoreImpl) ResetAfterOrder(ctx context.Context) {
	c.mutate(ctx, "reset_after_order", true, func(ctx context.Context, token string) error {
		items, err := c.api.GetCart(ctx, token)
		if err != nil {
			return err
		}
		return c.removeAll(ctx, token, items)
	})
}

func (c *CartStoreImpl) removeAll(ctx context.Context, token string, items []domain.CartItem) error {
	var g errgroup.Group
	for _, item := range items {
		id := item.ID
		g.Go(func() error {
			return c.api.RemoveItem(ctx, token, id)
		})
	}
	return g.Wait()
}

// TotalItems implements domain.CartStore
func (c *CartStoreImpl) TotalItems() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := 0
	for _, item := range c.items {
		total += item.Quantity
	}
	return total
}

// TotalPrice implements domain.CartStore. The sum is exact; round only for display.
func (c *CartStoreImpl) TotalPrice() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return TotalPrice(c.items)
}

// mutate runs one serialized write plus the trailing re-fetch. Multi-request
// writes set refetchOnFailure so a partial result is still mirrored.
// Anonymous sessions never reach the network.
func (c *CartStoreImpl) mutate(ctx context.Context, op string, refetchOnFailure bool, write func(ctx context.Context, token string) error) bool {
	c.mutateMu.Lock()
	defer c.mutateMu.Unlock()

	token := c.session.AccessToken()
	if token == "" {
		c.logger.Debug("cart mutation ignored for anonymous session", zap.String("op", op))
		return false
	}

	gen := c.begin()
	defer c.end(gen)

	if err := write(ctx, token); err != nil {
		c.logger.Warn("cart mutation failed", zap.String("op", op), zap.Error(err))
		c.metrics.CartMutation(op, false)
		c.logFailure(ctx, op, err)
		if refetchOnFailure {
			c.refresh(ctx, token, gen)
		}
		return false
	}

	c.refresh(ctx, token, gen)
	c.metrics.CartMutation(op, true)
	return true
}

// refresh replaces the items with the server's copy, or empties them on failure
func (c *CartStoreImpl) refresh(ctx context.Context, token string, gen uint64) {
	items, err := c.api.GetCart(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			c.logger.Warn("cart fetch unauthorized, clearing cart", zap.Error(err))
		} else {
			c.logger.Warn("cart fetch failed, clearing cart", zap.Error(err))
		}
		items = nil
	}

	replica := make([]domain.CartItem, len(items))
	copy(replica, items)

	c.mu.Lock()
	if c.generation == gen {
		c.items = replica
	}
	c.mu.Unlock()
}

func (c *CartStoreImpl) begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight++
	return c.generation
}

func (c *CartStoreImpl) end(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation == gen && c.inflight > 0 {
		c.inflight--
	}
}

func (c *CartStoreImpl) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.items = []domain.CartItem{}
	c.inflight = 0
}

func (c *CartStoreImpl) logFailure(ctx context.Context, op string, err error) {
	if c.audit == nil {
		return
	}
	_ = c.audit.LogEvent(ctx, domain.NewAuditEvent(domain.CartMutationFailureEvent, 0).
		WithMetadata("op", op).
		WithError(err))
}

// UnitPrice returns the discounted price when present and parseable, else the list price
func UnitPrice(product domain.CartProduct) decimal.Decimal {
	if product.DiscountedPrice != nil && *product.DiscountedPrice != "" {
		if d, err := decimal.NewFromString(*product.DiscountedPrice); err == nil {
			return d
		}
	}
	price, err := decimal.NewFromString(product.Price)
	if err != nil {
		return decimal.Zero
	}
	return price
}

// TotalPrice sums quantity × unit price over items without rounding
func TotalPrice(items []domain.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(UnitPrice(item.Product).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

// FormatPrice renders an amount with two decimal places
func FormatPrice(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

var _ domain.CartStore = (*CartStoreImpl)(nil)
