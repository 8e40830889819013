package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/freshcart/basket/internal/auth"
)

// Login calls POST /api/auth/login. Client satisfies auth.Service.
func (c *Client) Login(ctx context.Context, creds auth.Credentials) (auth.Grant, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", creds, &resp, false); err != nil {
		return auth.Grant{}, err
	}
	return resp.grant("/api/auth/login")
}

// Register calls POST /api/auth/register.
func (c *Client) Register(ctx context.Context, u auth.NewUser) (auth.Grant, error) {
	var resp authResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", u, &resp, false); err != nil {
		return auth.Grant{}, err
	}
	return resp.grant("/api/auth/register")
}

func (r authResponse) grant(path string) (auth.Grant, error) {
	if r.User == nil || strings.TrimSpace(r.User.Name) == "" || strings.TrimSpace(r.Token) == "" {
		return auth.Grant{}, fmt.Errorf("%w: %s returned no user or token", ErrMalformedResponse, path)
	}
	return auth.Grant{User: *r.User, Token: r.Token}, nil
}
