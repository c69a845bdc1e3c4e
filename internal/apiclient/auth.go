package apiclient

import (
	"context"
	"net/http"

	"github.com/example/ec-storefront/internal/readmodel"
)

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

var authKeys = []string{"accessToken", "refreshToken", "user"}

// Login exchanges credentials for tokens and the user identity
func (c *Client) Login(ctx context.Context, email, password string) (*readmodel.AuthResponse, error) {
	var out readmodel.AuthResponse
	err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      "/auth/login",
		body:      loginRequest{Email: email, Password: password},
		anonymous: true,
	}, &out, authKeys...)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns its tokens
func (c *Client) Register(ctx context.Context, in RegisterRequest) (*readmodel.AuthResponse, error) {
	var out readmodel.AuthResponse
	err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      "/auth/register",
		body:      in,
		anonymous: true,
	}, &out, authKeys...)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh trades a refresh token for a new token pair
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*readmodel.AuthResponse, error) {
	var out readmodel.AuthResponse
	err := c.do(ctx, request{
		method:    http.MethodPost,
		path:      "/auth/refresh",
		body:      refreshRequest{RefreshToken: refreshToken},
		anonymous: true,
	}, &out, "accessToken", "refreshToken")
	if err != nil {
		return nil, err
	}
	return &out, nil
}
