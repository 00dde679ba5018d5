package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// StorageBackend identifies one of the two session stores
type StorageBackend int

const (
	BackendDurable StorageBackend = iota
	BackendEphemeral
)

func (b StorageBackend) String() string {
	if b == BackendDurable {
		return "durable"
	}
	return "ephemeral"
}

// SessionStore is a key-value store holding serialized session blobs.
// Get returns ErrStoreEntryNotFound when the key is absent.
type SessionStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// PersistenceAdapter round-trips a session blob to exactly one of two stores
type PersistenceAdapter interface {
	Save(ctx context.Context, session StoredSession, remember bool)
	Restore(ctx context.Context) (*StoredSession, bool)
	Clear(ctx context.Context)
	Locate(ctx context.Context) (StorageBackend, bool)
	Rewrite(ctx context.Context, backend StorageBackend, session StoredSession) error
}

// SessionProvider is the read side of the session used by cart and checkout
type SessionProvider interface {
	Snapshot() Session
	AccessToken() string
	Subscribe(listener AuthListener) (unsubscribe func())
}

// AuthSession owns the authentication lifecycle
type AuthSession interface {
	SessionProvider
	State() AuthState
	Restore(ctx context.Context) bool
	Login(ctx context.Context, user *User, tokens *TokenPair, remember bool) error
	Logout(ctx context.Context)
	UpdateUser(ctx context.Context, user *User) error
	ReplaceTokens(ctx context.Context, tokens *TokenPair) error
	SetError(msg *string)
	Error() *string
	Authenticate(ctx context.Context, creds Credentials, remember bool) (*User, error)
	Register(ctx context.Context, form RegistrationForm) (*User, error)
	RefreshTokens(ctx context.Context) error
	AccessTokenExpired(now time.Time) bool
}

// CartStore mirrors the server cart for the current session
type CartStore interface {
	Items() []CartItem
	Loading() bool
	Fetch(ctx context.Context)
	Add(ctx context.Context, productID uint, quantity int, size *string) bool
	UpdateQuantity(ctx context.Context, itemID uint, quantity int) bool
	Remove(ctx context.Context, itemID uint) bool
	Clear(ctx context.Context) bool
	ResetAfterOrder(ctx context.Context)
	TotalItems() int
	TotalPrice() decimal.Decimal
}

// IdentityAPI is the identity collaborator
type IdentityAPI interface {
	Login(ctx context.Context, creds Credentials) (*LoginResult, error)
	Register(ctx context.Context, form RegistrationForm) (*User, error)
	RefreshToken(ctx context.Context, refresh string) (*TokenPair, error)
}

// CartAPI is the cart collaborator; every call is bearer-authenticated
type CartAPI interface {
	GetCart(ctx context.Context, token string) ([]CartItem, error)
	AddItem(ctx context.Context, token string, req AddToCartRequest) error
	UpdateItem(ctx context.Context, token string, itemID uint, quantity int) error
	RemoveItem(ctx context.Context, token string, itemID uint) error
}

// AddressAPI is the address-book collaborator
type AddressAPI interface {
	ListAddresses(ctx context.Context, token string) ([]Address, error)
}

// OrderAPI is the order collaborator. GenerateOTP returns the server message;
// the code itself is delivered out of band.
type OrderAPI interface {
	GenerateOTP(ctx context.Context, token string, addressID uint) (string, error)
	VerifyOTP(ctx context.Context, token, code string) error
	PlaceOrder(ctx context.Context, token string, addressID uint, idempotencyKey string) (*Order, error)
	GetOrder(ctx context.Context, token string, orderID uint) (*Order, error)
}

// TokenInspector reads claims from an access token without verifying it
type TokenInspector interface {
	ExpiresAt(token string) (time.Time, error)
}
