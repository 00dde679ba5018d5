// Package fakeapi is an in-process storefront backend for tests. It speaks the
// same {status, message, data} envelope as the real service, issues real
// HS256 tokens and keeps carts, addresses and orders in memory.
package fakeapi

import (
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/you/storefront/domain"
)

// DefaultOTP is the code every generated OTP uses unless OTPCode is changed
const DefaultOTP = "123456"

type account struct {
	user     domain.User
	password string
}

type fault struct {
	status  int
	message string
	times   int
}

// Server is the fake backend. All exported methods are safe for concurrent use.
type Server struct {
	HTTP *httptest.Server

	secret    []byte
	accessTTL time.Duration

	mu          sync.Mutex
	accounts    map[string]*account
	products    map[uint]domain.CartProduct
	carts       map[uint][]domain.CartItem
	addresses   map[uint][]domain.Address
	orders      map[uint]*domain.Order
	idempotency map[string]uint
	otpSent     map[uint]uint
	verified    map[uint]bool
	otpCode     string
	faults      map[string]*fault
	hits        map[string]int
	nextUserID  uint
	nextItemID  uint
	nextOrderID uint
}

// New starts a fake backend and stops it when the test ends
func New(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		secret:      []byte("fakeapi-signing-key"),
		accessTTL:   15 * time.Minute,
		accounts:    make(map[string]*account),
		products:    make(map[uint]domain.CartProduct),
		carts:       make(map[uint][]domain.CartItem),
		addresses:   make(map[uint][]domain.Address),
		orders:      make(map[uint]*domain.Order),
		idempotency: make(map[string]uint),
		otpSent:     make(map[uint]uint),
		verified:    make(map[uint]bool),
		otpCode:     DefaultOTP,
		faults:      make(map[string]*fault),
		hits:        make(map[string]int),
		nextUserID:  1,
		nextItemID:  1,
		nextOrderID: 1000,
	}
	s.seedCatalogue()

	s.HTTP = httptest.NewServer(s.router())
	t.Cleanup(s.HTTP.Close)
	return s
}

// BaseURL is the API root clients should be configured with
func (s *Server) BaseURL() string {
	return s.HTTP.URL + "/api"
}

func (s *Server) seedCatalogue() {
	discounted := "30.00"
	s.products[1] = domain.CartProduct{ID: 1, Name: "Basic Tee", Price: "10.00"}
	s.products[2] = domain.CartProduct{ID: 2, Name: "Zip Hoodie", Price: "40.00", DiscountedPrice: &discounted}
	s.products[3] = domain.CartProduct{ID: 3, Name: "Socks", Price: "4.99"}
}

// AddUser registers an account and returns its user record
func (s *Server) AddUser(username, password string, phone *string) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addUserLocked(username, username+"@example.com", password, phone)
}

func (s *Server) addUserLocked(username, email, password string, phone *string) domain.User {
	user := domain.User{
		ID:          s.nextUserID,
		Username:    username,
		Email:       email,
		Role:        domain.RoleCustomer,
		PhoneNumber: phone,
	}
	s.nextUserID++
	s.accounts[username] = &account{user: user, password: password}
	return user
}

// AddAddress adds an address to a user's book. ID is assigned when zero.
func (s *Server) AddAddress(userID uint, addr domain.Address) domain.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	if addr.ID == 0 {
		addr.ID = uint(len(s.addresses[userID])+1) + userID*100
	}
	s.addresses[userID] = append(s.addresses[userID], addr)
	return addr
}

// Cart returns a copy of the server cart of a user
func (s *Server) Cart(userID uint) []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CartItem(nil), s.carts[userID]...)
}

// SetCart replaces the server cart of a user
func (s *Server) SetCart(userID uint, items []domain.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range items {
		if items[i].ID == 0 {
			items[i].ID = s.nextItemID
			s.nextItemID++
		}
	}
	s.carts[userID] = append([]domain.CartItem(nil), items...)
}

// Orders returns how many distinct orders were created
func (s *Server) Orders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

// SetOTPCode changes the code expected by verify-otp
func (s *Server) SetOTPCode(code string) {
	s.mu.Lock()
	s.otpCode = code
	s.mu.Unlock()
}

// ExpireVerification drops a user's verified OTP so the next placement is refused with 403
func (s *Server) ExpireVerification(userID uint) {
	s.mu.Lock()
	delete(s.verified, userID)
	s.mu.Unlock()
}

// Fail makes the next times requests to method+route answer status with message.
// route is the gin route template, e.g. "/api/cart/item/:id/".
func (s *Server) Fail(method, route string, status int, message string, times int) {
	s.mu.Lock()
	s.faults[method+" "+route] = &fault{status: status, message: message, times: times}
	s.mu.Unlock()
}

// Hits returns how many requests reached method+route
func (s *Server) Hits(method, route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[method+" "+route]
}

// TotalHits returns the number of requests served
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

func success(c *gin.Context, status int, message string, data any) {
	c.JSON(status, gin.H{"status": "success", "message": message, "data": data})
}

func failure(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"status": "error", "message": message})
}

func (s *Server) lookupProduct(id uint) (domain.CartProduct, error) {
	p, ok := s.products[id]
	if !ok {
		return domain.CartProduct{}, fmt.Errorf("product %d not found", id)
	}
	return p, nil
}
