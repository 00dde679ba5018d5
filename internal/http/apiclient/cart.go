package apiclient

import (
	"context"
	"fmt"
	"net/http"

	"github.com/you/storefront/domain"
)

// GetCart implements domain.CartAPI
func (c *Client) GetCart(ctx context.Context, token string) ([]domain.CartItem, error) {
	var cart struct {
		Items []domain.CartItem `json:"items"`
	}
	_, err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/cart/",
		route:  "/cart/",
		token:  token,
	}, &cart)
	if err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []domain.CartItem{}
	}
	return cart.Items, nil
}

// AddItem implements domain.CartAPI
func (c *Client) AddItem(ctx context.Context, token string, req domain.AddToCartRequest) error {
	_, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/cart/add/",
		route:  "/cart/add/",
		token:  token,
		body:   req,
	}, nil)
	return err
}

// UpdateItem implements domain.CartAPI
func (c *Client) UpdateItem(ctx context.Context, token string, itemID uint, quantity int) error {
	_, err := c.do(ctx, call{
		method: http.MethodPut,
		path:   fmt.Sprintf("/cart/item/%d/", itemID),
		route:  "/cart/item/{id}/",
		token:  token,
		body:   map[string]int{"quantity": quantity},
	}, nil)
	return err
}

// RemoveItem implements domain.CartAPI
func (c *Client) RemoveItem(ctx context.Context, token string, itemID uint) error {
	_, err := c.do(ctx, call{
		method: http.MethodDelete,
		path:   fmt.Sprintf("/cart/item/%d/", itemID),
		route:  "/cart/item/{id}/",
		token:  token,
	}, nil)
	return err
}

// ListAddresses implements domain.AddressAPI
func (c *Client) ListAddresses(ctx context.Context, token string) ([]domain.Address, error) {
	var addresses []domain.Address
	_, err := c.do(ctx, call{
		method: http.MethodGet,
		path:   "/addresses/",
		route:  "/addresses/",
		token:  token,
	}, &addresses)
	if err != nil {
		return nil, err
	}
	return addresses, nil
}
