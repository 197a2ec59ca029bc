package api

import (
	"context"
	"errors"
)

// Credentials are returned by Login and Register.
type Credentials struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

type authRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login signs in and stores the returned bearer token on the client.
func (c *Client) Login(ctx context.Context, username, password string) (Credentials, error) {
	return c.authenticate(ctx, "/auth/login", username, password)
}

// Register creates an account and signs in.
func (c *Client) Register(ctx context.Context, username, password string) (Credentials, error) {
	return c.authenticate(ctx, "/auth/register", username, password)
}

func (c *Client) authenticate(ctx context.Context, path, username, password string) (Credentials, error) {
	var out Credentials
	if err := c.postJSON(ctx, path, authRequest{Username: username, Password: password}, &out); err != nil {
		return Credentials{}, err
	}
	if out.Token == "" {
		return Credentials{}, errors.New("api: response carries no token")
	}
	c.SetToken(out.Token)
	return out, nil
}
