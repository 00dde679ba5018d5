package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/you/storefront/domain"
	"github.com/you/storefront/internal/observability"
)

// CheckoutConfig bounds the OTP and placement calls
type CheckoutConfig struct {
	OTPTimeout   time.Duration
	PlaceTimeout time.Duration
}

// CheckoutOrchestrator starts checkout attempts for the current session
type CheckoutOrchestrator struct {
	session   domain.SessionProvider
	cart      domain.CartStore
	addresses domain.AddressAPI
	orders    domain.OrderAPI
	config    CheckoutConfig
	audit     domain.AuditLogger
	metrics   *observability.Metrics
	logger    *zap.Logger
	newKey    func() string
}

// NewCheckoutOrchestrator creates a new orchestrator
func NewCheckoutOrchestrator(
	session domain.SessionProvider,
	cart domain.CartStore,
	addresses domain.AddressAPI,
	orders domain.OrderAPI,
	config CheckoutConfig,
	audit domain.AuditLogger,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *CheckoutOrchestrator {
	return &CheckoutOrchestrator{
		session:   session,
		cart:      cart,
		addresses: addresses,
		orders:    orders,
		config:    config,
		audit:     audit,
		metrics:   metrics,
		logger:    logger.Named("checkout"),
		newKey:    uuid.NewString,
	}
}

// Begin opens a checkout attempt. Anonymous sessions and empty carts get
// domain.ErrCheckoutRedirect without any backend call.
func (o *CheckoutOrchestrator) Begin(ctx context.Context) (*Checkout, error) {
	snapshot := o.session.Snapshot()
	if !snapshot.IsAuthenticated || len(o.cart.Items()) == 0 {
		return nil, domain.ErrCheckoutRedirect
	}

	addresses, err := o.addresses.ListAddresses(ctx, snapshot.Tokens.Access)
	if err != nil {
		return nil, fmt.Errorf("load addresses: %w", err)
	}

	co := &Checkout{
		orchestrator: o,
		userID:       snapshot.User.ID,
		profilePhone: snapshot.User.Phone(),
		addresses:    addresses,
		state:        domain.CheckoutSelectingAddress,
		key:          o.newKey(),
	}
	if def := domain.DefaultAddress(addresses); def != nil {
		co.selected = def.ID
	}
	o.metrics.CheckoutTransition(co.state.String())
	return co, nil
}

// OrderConfirmation loads a placed order for the confirmation view
func (o *CheckoutOrchestrator) OrderConfirmation(ctx context.Context, orderID uint) (*domain.Order, error) {
	token := o.session.AccessToken()
	if token == "" {
		return nil, domain.ErrNotAuthenticated
	}
	order, err := o.orders.GetOrder(ctx, token, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order %d: %w", orderID, err)
	}
	return order, nil
}

// Checkout is one attempt through
// SelectingAddress -> OtpRequested -> OtpVerified -> OrderPlaced.
// Placement is only reachable from OtpVerified. The idempotency key is fixed
// for the attempt so retried placements can be deduplicated by the backend;
// it rotates whenever the attempt goes back to address selection.
type Checkout struct {
	orchestrator *CheckoutOrchestrator
	userID       uint
	profilePhone string

	mu        sync.Mutex
	addresses []domain.Address
	selected  uint
	phone     string
	state     domain.CheckoutState
	handoff   *domain.CheckoutHandoff
	key       string
	order     *domain.Order
	lastError string
}

// State returns the current pipeline state
func (c *Checkout) State() domain.CheckoutState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Addresses returns the address book loaded at Begin
func (c *Checkout) Addresses() []domain.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.Address, len(c.addresses))
	copy(out, c.addresses)
	return out
}

// SelectedAddress returns the selected address id, 0 when none
func (c *Checkout) SelectedAddress() uint {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selected
}

// ProfilePhone returns the phone stored on the user profile
func (c *Checkout) ProfilePhone() string {
	return c.profilePhone
}

// LastError returns the message of the last failed step
func (c *Checkout) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// Order returns the placed order, nil before OrderPlaced
func (c *Checkout) Order() *domain.Order {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order
}

// SelectAddress picks one of the loaded addresses. Choosing a different
// address after an OTP was requested sends the attempt back to address
// selection: the OTP has to be requested again for the new address.
func (c *Checkout) SelectAddress(addressID uint) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Terminal() {
		return domain.ErrCheckoutClosed
	}
	found := false
	for _, a := range c.addresses {
		if a.ID == addressID {
			found = true
			break
		}
	}
	if !found {
		return domain.ErrAddressNotFound
	}

	if addressID != c.selected && c.state != domain.CheckoutSelectingAddress {
		c.backLocked()
	}
	c.selected = addressID
	return nil
}

// ResolveContactPhone fixes the contact phone: the profile phone when
// useProfilePhone is set, else manualPhone. The result must be non-empty.
func (c *Checkout) ResolveContactPhone(useProfilePhone bool, manualPhone string) (string, error) {
	phone := strings.TrimSpace(manualPhone)
	if useProfilePhone {
		phone = c.profilePhone
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Terminal() {
		return "", domain.ErrCheckoutClosed
	}
	if phone == "" {
		c.lastError = domain.ErrContactPhoneRequired.Error()
		return "", domain.ErrContactPhoneRequired
	}
	c.phone = phone
	return phone, nil
}

// RequestOTP asks the backend to send an OTP for the selected address.
// On failure the attempt stays at SelectingAddress and may be retried.
func (c *Checkout) RequestOTP(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Terminal() {
		return "", domain.ErrCheckoutClosed
	}
	if c.state != domain.CheckoutSelectingAddress {
		c.backLocked()
	}
	if err := c.validateLocked(); err != nil {
		return "", err
	}
	return c.generateLocked(ctx, c.selected)
}

// ResendOTP asks for a new code for the address already handed off
func (c *Checkout) ResendOTP(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != domain.CheckoutOTPRequested {
		return "", domain.ErrOTPNotRequested
	}
	return c.generateLocked(ctx, c.handoff.AddressID)
}

// Handoff returns what the OTP step passes on. Only available once an OTP
// was requested in this attempt.
func (c *Checkout) Handoff() (domain.CheckoutHandoff, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.handoff == nil {
		return domain.CheckoutHandoff{}, domain.ErrOTPNotRequested
	}
	return *c.handoff, nil
}

// VerifyOTP confirms the out-of-band code. On failure the attempt stays at OtpRequested.
func (c *Checkout) VerifyOTP(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.Terminal() {
		return domain.ErrCheckoutClosed
	}
	if c.state != domain.CheckoutOTPRequested {
		return domain.ErrOTPNotRequested
	}
	if code == "" {
		c.lastError = domain.ErrOTPCodeRequired.Error()
		return domain.ErrOTPCodeRequired
	}

	token := c.orchestrator.session.AccessToken()
	if token == "" {
		return domain.ErrNotAuthenticated
	}

	callCtx, cancel := c.orchestrator.withTimeout(ctx, c.orchestrator.config.OTPTimeout)
	defer cancel()

	if err := c.orchestrator.orders.VerifyOTP(callCtx, token, code); err != nil {
		c.lastError = domain.UserMessage(err)
		c.orchestrator.logger.Warn("otp verification failed", zap.Uint("user_id", c.userID), zap.Error(err))
		return fmt.Errorf("verify otp: %w", err)
	}

	c.lastError = ""
	c.moveLocked(domain.CheckoutOTPVerified)
	c.orchestrator.logAudit(ctx, domain.NewAuditEvent(domain.CheckoutOTPVerifyEvent, c.userID))
	return nil
}

// PlaceOrder creates the order. It is refused unless the OTP was verified in
// this attempt. A 403 means verification lapsed: the attempt goes back to
// address selection and the error wraps domain.ErrVerificationLapsed. Other
// failures keep OtpVerified so the call can be retried with the same key.
// On success the cart is emptied before returning.
func (c *Checkout) PlaceOrder(ctx context.Context) (*domain.Order, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case domain.CheckoutOTPVerified:
	case domain.CheckoutOrderPlaced:
		return c.order, domain.ErrOrderAlreadyPlaced
	case domain.CheckoutAbandoned:
		return nil, domain.ErrCheckoutClosed
	default:
		return nil, domain.ErrOTPNotVerified
	}

	token := c.orchestrator.session.AccessToken()
	if token == "" {
		return nil, domain.ErrNotAuthenticated
	}

	callCtx, cancel := c.orchestrator.withTimeout(ctx, c.orchestrator.config.PlaceTimeout)
	defer cancel()

	order, err := c.orchestrator.orders.PlaceOrder(callCtx, token, c.handoff.AddressID, c.handoff.IdempotencyKey)
	if err != nil {
		c.lastError = domain.UserMessage(err)
		if errors.Is(err, domain.ErrForbidden) {
			c.orchestrator.logger.Info("otp verification lapsed, returning to address selection", zap.Uint("user_id", c.userID))
			c.orchestrator.logAudit(ctx, domain.NewAuditEvent(domain.CheckoutVerificationLapsedEvent, c.userID).WithError(err))
			c.backLocked()
			return nil, fmt.Errorf("%w: %w", domain.ErrVerificationLapsed, err)
		}
		c.orchestrator.logger.Warn("order placement failed",
			zap.Uint("user_id", c.userID),
			zap.String("idempotency_key", c.handoff.IdempotencyKey),
			zap.Error(err))
		c.orchestrator.logAudit(ctx, domain.NewAuditEvent(domain.CheckoutOrderFailureEvent, c.userID).WithError(err))
		return nil, fmt.Errorf("place order: %w", err)
	}

	c.order = order
	c.lastError = ""
	c.moveLocked(domain.CheckoutOrderPlaced)
	c.orchestrator.logAudit(ctx, domain.NewAuditEvent(domain.CheckoutOrderPlacedEvent, c.userID).
		WithMetadata("order_id", order.ID).
		WithMetadata("address_id", c.handoff.AddressID))

	c.orchestrator.cart.ResetAfterOrder(ctx)
	return order, nil
}

// Back returns to address selection, discarding any OTP progress
func (c *Checkout) Back() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Terminal() {
		return domain.ErrCheckoutClosed
	}
	c.backLocked()
	return nil
}

// Abandon closes the attempt; every later call fails with domain.ErrCheckoutClosed
func (c *Checkout) Abandon() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == domain.CheckoutOrderPlaced {
		return
	}
	c.moveLocked(domain.CheckoutAbandoned)
	c.handoff = nil
}

func (c *Checkout) validateLocked() error {
	if c.selected == 0 {
		c.lastError = domain.ErrAddressRequired.Error()
		return domain.ErrAddressRequired
	}
	if c.phone == "" {
		c.lastError = domain.ErrContactPhoneRequired.Error()
		return domain.ErrContactPhoneRequired
	}
	return nil
}

func (c *Checkout) generateLocked(ctx context.Context, addressID uint) (string, error) {
	token := c.orchestrator.session.AccessToken()
	if token == "" {
		return "", domain.ErrNotAuthenticated
	}

	callCtx, cancel := c.orchestrator.withTimeout(ctx, c.orchestrator.config.OTPTimeout)
	defer cancel()

	msg, err := c.orchestrator.orders.GenerateOTP(callCtx, token, addressID)
	if err != nil {
		c.lastError = domain.UserMessage(err)
		c.orchestrator.logger.Warn("otp generation failed",
			zap.Uint("user_id", c.userID),
			zap.Uint("address_id", addressID),
			zap.Error(err))
		return "", fmt.Errorf("generate otp: %w", err)
	}

	c.lastError = ""
	c.handoff = &domain.CheckoutHandoff{
		AddressID:      addressID,
		ContactPhone:   c.phone,
		IdempotencyKey: c.key,
	}
	if c.state != domain.CheckoutOTPRequested {
		c.moveLocked(domain.CheckoutOTPRequested)
	}
	c.orchestrator.logAudit(ctx, domain.NewAuditEvent(domain.CheckoutOTPRequestEvent, c.userID).
		WithMetadata("address_id", addressID))
	return msg, nil
}

func (c *Checkout) backLocked() {
	c.handoff = nil
	c.key = c.orchestrator.newKey()
	if c.state != domain.CheckoutSelectingAddress {
		c.moveLocked(domain.CheckoutSelectingAddress)
	}
}

func (c *Checkout) moveLocked(to domain.CheckoutState) {
	c.orchestrator.logger.Debug("checkout transition",
		zap.Stringer("from", c.state),
		zap.Stringer("to", to),
		zap.Uint("user_id", c.userID))
	c.state = to
	c.orchestrator.metrics.CheckoutTransition(to.String())
}

func (o *CheckoutOrchestrator) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (o *CheckoutOrchestrator) logAudit(ctx context.Context, event *domain.AuditEvent) {
	if o.audit == nil {
		return
	}
	if err := o.audit.LogEvent(ctx, event); err != nil {
		o.logger.Debug("audit log failed", zap.Error(err))
	}
}
