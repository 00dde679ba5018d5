package apiclient

import (
	"context"
	"net/http"

	"github.com/you/storefront/domain"
)

// Login implements domain.IdentityAPI
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (*domain.LoginResult, error) {
	var result domain.LoginResult
	_, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/login/",
		route:  "/login/",
		body:   creds,
	}, &result)
	if err != nil {
		return nil, err
	}
	if result.User == nil || result.Tokens.Access == "" {
		return nil, &domain.APIError{Status: http.StatusOK, Message: domain.GenericErrorMessage}
	}
	return &result, nil
}

// Register implements domain.IdentityAPI
func (c *Client) Register(ctx context.Context, form domain.RegistrationForm) (*domain.User, error) {
	var result struct {
		User *domain.User `json:"user"`
	}
	_, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/register/",
		route:  "/register/",
		body:   form,
	}, &result)
	if err != nil {
		return nil, err
	}
	return result.User, nil
}

// RefreshToken implements domain.IdentityAPI. The backend may omit a rotated
// refresh token, in which case Refresh is left empty.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (*domain.TokenPair, error) {
	var tokens domain.TokenPair
	_, err := c.do(ctx, call{
		method: http.MethodPost,
		path:   "/token/refresh/",
		route:  "/token/refresh/",
		body:   map[string]string{"refresh": refresh},
	}, &tokens)
	if err != nil {
		return nil, err
	}
	if tokens.Access == "" {
		return nil, &domain.APIError{Status: http.StatusOK, Message: domain.GenericErrorMessage}
	}
	return &tokens, nil
}
