package fakeapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/you/storefront/domain"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

func (s *Server) mint(userID uint, typ string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"typ":     typ,
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) parse(tokenString, typ string) (uint, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return 0, err
	}
	if claims["typ"] != typ {
		return 0, errors.New("wrong token type")
	}
	id, ok := claims["user_id"].(float64)
	if !ok {
		return 0, errors.New("missing user_id")
	}
	return uint(id), nil
}

func (s *Server) issue(userID uint) (domain.TokenPair, error) {
	access, err := s.mint(userID, tokenTypeAccess, s.accessTTL)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.mint(userID, tokenTypeRefresh, 24*time.Hour)
	if err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{Access: access, Refresh: refresh}, nil
}

// withJWT requires a valid bearer access token and stores user_id in the context
func (s *Server) withJWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			failure(c, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}

		userID, err := s.parse(parts[1], tokenTypeAccess)
		if err != nil {
			failure(c, http.StatusUnauthorized, "Given token not valid for any token type")
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) uint {
	return c.GetUint("user_id")
}

func (s *Server) login(c *gin.Context) {
	var req domain.Credentials
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		failure(c, http.StatusBadRequest, "Username and password are required.")
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[req.Username]
	s.mu.Unlock()
	if !ok || acc.password != req.Password {
		failure(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	tokens, err := s.issue(acc.user.ID)
	if err != nil {
		failure(c, http.StatusInternalServerError, "Failed to issue tokens")
		return
	}
	success(c, http.StatusOK, "Login successful", domain.LoginResult{User: &acc.user, Tokens: tokens})
}

func (s *Server) register(c *gin.Context) {
	var req domain.RegistrationForm
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" || req.Email == "" {
		failure(c, http.StatusBadRequest, "Username, email and password are required.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[req.Username]; exists {
		failure(c, http.StatusBadRequest, "A user with that username already exists.")
		return
	}
	var phone *string
	if req.PhoneNumber != "" {
		p := req.PhoneNumber
		phone = &p
	}
	user := s.addUserLocked(req.Username, req.Email, req.Password, phone)
	success(c, http.StatusCreated, "User registered successfully", gin.H{"user": user})
}

func (s *Server) refresh(c *gin.Context) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Refresh == "" {
		failure(c, http.StatusBadRequest, "Refresh token is required.")
		return
	}
	userID, err := s.parse(req.Refresh, tokenTypeRefresh)
	if err != nil {
		failure(c, http.StatusUnauthorized, "Token is invalid or expired")
		return
	}
	access, err := s.mint(userID, tokenTypeAccess, s.accessTTL)
	if err != nil {
		failure(c, http.StatusInternalServerError, "Failed to issue tokens")
		return
	}
	success(c, http.StatusOK, "", gin.H{"access": access})
}
