package strapi

import (
	"context"
	"net/http"
)

// Login exchanges an identifier (username or email) and password for a bearer token.
func (c *Client) Login(ctx context.Context, identifier, password string) (*AuthResponse, error) {
	body := map[string]string{"identifier": identifier, "password": password}
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/local", nil, "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates a credential account and returns its bearer token.
func (c *Client) Register(ctx context.Context, username, email, password string) (*AuthResponse, error) {
	body := map[string]string{"username": username, "email": email, "password": password}
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/local/register", nil, "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendOTP asks the backend to deliver a one-time code to phone.
func (c *Client) SendOTP(ctx context.Context, phone string) error {
	return c.do(ctx, http.MethodPost, "/api/otp/send", nil, "", map[string]string{"phone": phone}, nil)
}

// VerifyOTP checks code for phone and returns a session on success.
func (c *Client) VerifyOTP(ctx context.Context, phone, code string) (*AuthResponse, error) {
	body := map[string]string{"phone": phone, "otp": code}
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/api/otp/verify", nil, "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
