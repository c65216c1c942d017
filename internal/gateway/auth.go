package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type loginResponse struct {
	Token string `json:"token"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (string, error) {
	var resp loginResponse
	err := c.do(ctx, call{
		route:  "auth.login",
		method: http.MethodPost,
		path:   "/authenticate/login",
		body:   creds,

		skipAuthHook: true,
	}, &resp)
	if errors.Is(err, ErrUnauthorized) {
		return "", fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
	}
	if err != nil {
		return "", err
	}
	tok := strings.TrimSpace(resp.Token)
	if tok == "" {
		return "", fmt.Errorf("auth.login: %w: empty token", ErrInvalidCredentials)
	}
	return tok, nil
}

// RegisterClient creates a customer account. Any role on req is dropped.
func (c *Client) RegisterClient(ctx context.Context, req domain.RegisterRequest) error {
	req.Role = ""
	return c.do(ctx, call{
		route:  "auth.register",
		method: http.MethodPost,
		path:   "/authenticate/client-register",
		body:   req,
	}, nil)
}

// RegisterAdmin creates an account with an explicit role. It requires an
// administrator credential.
func (c *Client) RegisterAdmin(ctx context.Context, req domain.RegisterRequest) error {
	if req.Role == "" {
		req.Role = domain.RoleAdmin
	}
	return c.do(ctx, call{
		route:  "auth.register_admin",
		method: http.MethodPost,
		path:   "/authenticate/admin-register",
		body:   req,
	}, nil)
}
