package domain

import (
	"strings"
	"time"
)

// Role is the account role assigned by the identity backend
type Role string

const (
	RoleCustomer Role = "customer"
	RoleManager  Role = "manager"
)

// User represents the identity record returned by the backend
type User struct {
	ID          uint    `json:"id"`
	Username    string  `json:"username"`
	Email       string  `json:"email"`
	Role        Role    `json:"role"`
	PhoneNumber *string `json:"phone_number,omitempty"`
}

// Phone returns the profile phone number, or an empty string when none is stored
func (u *User) Phone() string {
	if u == nil || u.PhoneNumber == nil {
		return ""
	}
	return strings.TrimSpace(*u.PhoneNumber)
}

// TokenPair holds the opaque bearer credentials issued at login
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Session is the in-memory authentication state.
// IsAuthenticated is true exactly when both User and Tokens are set.
type Session struct {
	IsAuthenticated bool
	User            *User
	Tokens          *TokenPair
}

// StoredSession is the blob persisted between runs
type StoredSession struct {
	User   *User      `json:"user"`
	Tokens *TokenPair `json:"tokens"`
}

// Valid reports whether the blob carries a complete identity
func (s *StoredSession) Valid() bool {
	return s != nil && s.User != nil && s.Tokens != nil && s.Tokens.Access != ""
}

// Credentials represents a login request
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegistrationForm represents a sign-up request
type RegistrationForm struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// LoginResult represents a successful login response
type LoginResult struct {
	User   *User     `json:"user"`
	Tokens TokenPair `json:"tokens"`
}

// CartProduct is the product summary embedded in a cart line
type CartProduct struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	Price           string  `json:"price"`
	DiscountedPrice *string `json:"discounted_price"`
	Image           *string `json:"image,omitempty"`
}

// CartItem is one server-owned cart line
type CartItem struct {
	ID       uint        `json:"id"`
	Product  CartProduct `json:"product"`
	Quantity int         `json:"quantity"`
	Size     *string     `json:"size,omitempty"`
}

// AddToCartRequest represents the body of an add-to-cart call
type AddToCartRequest struct {
	ProductID uint    `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Size      *string `json:"size,omitempty"`
}

// Address is a server-owned shipping address
type Address struct {
	ID        uint   `json:"id"`
	Type      string `json:"type"`
	Street    string `json:"street"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
	Country   string `json:"country"`
	IsDefault bool   `json:"is_default"`
}

// OrderItem is a line of a placed order
type OrderItem struct {
	ProductID uint    `json:"product_id"`
	Name      string  `json:"product_name"`
	Quantity  int     `json:"quantity"`
	Price     string  `json:"price"`
	Size      *string `json:"size,omitempty"`
}

// Order represents an order created by the backend
type Order struct {
	ID          uint        `json:"id"`
	Status      string      `json:"status"`
	TotalAmount string      `json:"total_amount"`
	AddressID   uint        `json:"address_id,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	Items       []OrderItem `json:"items,omitempty"`
}
