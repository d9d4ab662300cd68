package strapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Me fetches the profile behind token, including the embedded cart.
func (c *Client) Me(ctx context.Context, token string) (*User, error) {
	var out User
	query := url.Values{"populate": []string{"*"}}
	if err := c.do(ctx, http.MethodGet, "/api/users/me", query, token, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateUser applies a partial update to user id.
func (c *Client) UpdateUser(ctx context.Context, token string, id int64, update UserUpdate) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/users/%d", id), nil, token, update, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
