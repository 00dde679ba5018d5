package fakeapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.countAndInject())

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	api := r.Group("/api")
	api.POST("/login/", s.login)
	api.POST("/register/", s.register)
	api.POST("/token/refresh/", s.refresh)

	v := api.Group("/").Use(s.withJWT())
	v.GET("/cart/", s.getCart)
	v.POST("/cart/add/", s.addItem)
	v.PUT("/cart/item/:id/", s.updateItem)
	v.DELETE("/cart/item/:id/", s.removeItem)
	v.GET("/addresses/", s.listAddresses)
	v.POST("/orders/generate-otp/", s.generateOTP)
	v.POST("/orders/verify-otp/", s.verifyOTP)
	v.POST("/orders/place/", s.placeOrder)
	v.GET("/orders/:id/", s.getOrder)

	return r
}

// countAndInject records every hit and serves injected faults before routing
func (s *Server) countAndInject() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Request.Method + " " + c.FullPath()

		s.mu.Lock()
		s.hits[key]++
		f, ok := s.faults[key]
		if ok {
			f.times--
			if f.times <= 0 {
				delete(s.faults, key)
			}
		}
		s.mu.Unlock()

		if ok {
			msg := f.message
			if msg == "" {
				msg = http.StatusText(f.status)
			}
			failure(c, f.status, msg)
			return
		}
		c.Next()
	}
}
