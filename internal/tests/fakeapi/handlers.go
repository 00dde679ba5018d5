package fakeapi

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/you/storefront/domain"
)

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		failure(c, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return uint(id), true
}

func (s *Server) getCart(c *gin.Context) {
	s.mu.Lock()
	items := append([]domain.CartItem{}, s.carts[currentUser(c)]...)
	s.mu.Unlock()
	success(c, http.StatusOK, "", gin.H{"items": items})
}

func (s *Server) addItem(c *gin.Context) {
	var req domain.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failure(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Quantity < 1 {
		failure(c, http.StatusBadRequest, "Quantity must be at least 1.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	product, err := s.lookupProduct(req.ProductID)
	if err != nil {
		failure(c, http.StatusNotFound, "Product not found.")
		return
	}

	userID := currentUser(c)
	cart := s.carts[userID]
	for i := range cart {
		if cart[i].Product.ID == req.ProductID && sameSize(cart[i].Size, req.Size) {
			cart[i].Quantity += req.Quantity
			success(c, http.StatusOK, "Cart updated", nil)
			return
		}
	}
	s.carts[userID] = append(cart, domain.CartItem{
		ID:       s.nextItemID,
		Product:  product,
		Quantity: req.Quantity,
		Size:     req.Size,
	})
	s.nextItemID++
	success(c, http.StatusCreated, "Item added to cart", nil)
}

func sameSize(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *Server) updateItem(c *gin.Context) {
	itemID, ok := paramID(c)
	if !ok {
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity < 1 {
		failure(c, http.StatusBadRequest, "Quantity must be at least 1.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	cart := s.carts[currentUser(c)]
	for i := range cart {
		if cart[i].ID == itemID {
			cart[i].Quantity = req.Quantity
			success(c, http.StatusOK, "Cart updated", nil)
			return
		}
	}
	failure(c, http.StatusNotFound, "Cart item not found.")
}

func (s *Server) removeItem(c *gin.Context) {
	itemID, ok := paramID(c)
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	userID := currentUser(c)
	cart := s.carts[userID]
	for i := range cart {
		if cart[i].ID == itemID {
			s.carts[userID] = append(cart[:i:i], cart[i+1:]...)
			c.Status(http.StatusNoContent)
			return
		}
	}
	failure(c, http.StatusNotFound, "Cart item not found.")
}

func (s *Server) listAddresses(c *gin.Context) {
	s.mu.Lock()
	addrs := append([]domain.Address{}, s.addresses[currentUser(c)]...)
	s.mu.Unlock()
	success(c, http.StatusOK, "", addrs)
}

func (s *Server) ownsAddressLocked(userID, addressID uint) bool {
	for _, a := range s.addresses[userID] {
		if a.ID == addressID {
			return true
		}
	}
	return false
}

func (s *Server) generateOTP(c *gin.Context) {
	var req struct {
		AddressID uint `json:"address_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.AddressID == 0 {
		failure(c, http.StatusBadRequest, "Address is required.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	userID := currentUser(c)
	if !s.ownsAddressLocked(userID, req.AddressID) {
		failure(c, http.StatusNotFound, "Address not found.")
		return
	}
	if len(s.carts[userID]) == 0 {
		failure(c, http.StatusForbidden, "Your cart is empty.")
		return
	}
	s.otpSent[userID] = req.AddressID
	delete(s.verified, userID)
	success(c, http.StatusOK, "OTP sent to your email", nil)
}

func (s *Server) verifyOTP(c *gin.Context) {
	var req struct {
		OTP string `json:"otp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.OTP == "" {
		failure(c, http.StatusBadRequest, "OTP is required.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	userID := currentUser(c)
	if _, sent := s.otpSent[userID]; !sent {
		failure(c, http.StatusBadRequest, "No OTP was requested.")
		return
	}
	if req.OTP != s.otpCode {
		failure(c, http.StatusBadRequest, "Invalid OTP")
		return
	}
	s.verified[userID] = true
	success(c, http.StatusOK, "OTP verified successfully", nil)
}

func (s *Server) placeOrder(c *gin.Context) {
	var req struct {
		AddressID uint `json:"address_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.AddressID == 0 {
		failure(c, http.StatusBadRequest, "Address is required.")
		return
	}
	key := c.GetHeader("Idempotency-Key")

	s.mu.Lock()
	defer s.mu.Unlock()
	userID := currentUser(c)

	if key != "" {
		if orderID, seen := s.idempotency[key]; seen {
			success(c, http.StatusOK, "Order already placed", gin.H{"order": s.orders[orderID]})
			return
		}
	}
	if !s.verified[userID] {
		failure(c, http.StatusForbidden, "OTP verification required.")
		return
	}
	if s.otpSent[userID] != req.AddressID {
		failure(c, http.StatusForbidden, "OTP was issued for a different address.")
		return
	}
	cart := s.carts[userID]
	if len(cart) == 0 {
		failure(c, http.StatusBadRequest, "Your cart is empty.")
		return
	}

	order := &domain.Order{
		ID:        s.nextOrderID,
		Status:    "pending",
		AddressID: req.AddressID,
		CreatedAt: time.Now().UTC(),
	}
	total := decimal.Zero
	for _, item := range cart {
		price := item.Product.Price
		if item.Product.DiscountedPrice != nil {
			price = *item.Product.DiscountedPrice
		}
		unit, _ := decimal.NewFromString(price)
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(item.Quantity))))
		order.Items = append(order.Items, domain.OrderItem{
			ProductID: item.Product.ID,
			Name:      item.Product.Name,
			Quantity:  item.Quantity,
			Price:     price,
			Size:      item.Size,
		})
	}
	order.TotalAmount = total.StringFixed(2)

	s.nextOrderID++
	s.orders[order.ID] = order
	if key != "" {
		s.idempotency[key] = order.ID
	}
	delete(s.carts, userID)
	delete(s.verified, userID)
	delete(s.otpSent, userID)

	success(c, http.StatusCreated, fmt.Sprintf("Order #%d placed", order.ID), gin.H{"order": order})
}

func (s *Server) getOrder(c *gin.Context) {
	orderID, ok := paramID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	order, found := s.orders[orderID]
	s.mu.Unlock()
	if !found {
		failure(c, http.StatusNotFound, "Order not found.")
		return
	}
	success(c, http.StatusOK, "", gin.H{"order": order})
}
