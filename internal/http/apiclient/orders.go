package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/you/storefront/domain"
)

type orderPayload struct {
	Order *domain.Order `json:"order"`
}

// GenerateOTP implements domain.OrderAPI
func (c *Client) GenerateOTP(ctx context.Context, token string, addressID uint) (string, error) {
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   "/orders/generate-otp/",
		route:  "/orders/generate-otp/",
		token:  token,
		body:   map[string]uint{"address_id": addressID},
	}, nil)
}

// VerifyOTP implements domain.OrderAPI
func (c *Client) VerifyOTP(ctx context.Context, token, code string) error {
	_, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/orders/verify-otp/",
		route:  "/orders/verify-otp/",
		token:  token,
		body:   map[string]string{"otp": code},
	}, nil)
	return err
}

// PlaceOrder implements domain.OrderAPI
func (c *Client) PlaceOrder(ctx context.Context, token string, addressID uint, idempotencyKey string) (*domain.Order, error) {
	var payload orderPayload
	rc := call{
		method: http.MethodPost,
		path:   "/orders/place/",
		route:  "/orders/place/",
		token:  token,
		body:   map[string]uint{"address_id": addressID},
	}
	if idempotencyKey != "" {
		rc.headers = map[string]string{IdempotencyHeader: idempotencyKey}
	}

	if _, err := c.do(ctx, rc, &payload); err != nil {
		return nil, err
	}
	if payload.Order == nil {
		return nil, &domain.APIError{Status: http.StatusOK, Message: domain.GenericErrorMessage}
	}
	return payload.Order, nil
}

// GetOrder implements domain.OrderAPI
func (c *Client) GetOrder(ctx context.Context, token string, orderID uint) (*domain.Order, error) {
	var payload orderPayload
	_, err := c.do(ctx, call{
		method: http.MethodGet,
		path:   fmt.Sprintf("/orders/%d/", orderID),
		route:  "/orders/{id}/",
		token:  token,
	}, &payload)
	if err != nil {
		return nil, err
	}
	if payload.Order == nil {
		return nil, &domain.APIError{Status: http.StatusNotFound, Message: "Order not found."}
	}
	return payload.Order, nil
}
