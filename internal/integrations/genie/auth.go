package genie

import (
	"context"
	"errors"
	"net/http"

	"meingenie/internal/domain"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type codeExchangeRequest struct {
	Code string `json:"code"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

type tokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (t tokenResponse) pair() (domain.TokenPair, error) {
	if t.Access == "" {
		return domain.TokenPair{}, errors.New("genie: response carries no access token")
	}
	return domain.TokenPair{AccessToken: t.Access, RefreshToken: t.Refresh}, nil
}

// Login exchanges email and password for a token pair.
func (c *Client) Login(ctx context.Context, email, password string) (domain.TokenPair, error) {
	var out tokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/login/", false, loginRequest{Email: email, Password: password}, &out); err != nil {
		return domain.TokenPair{}, err
	}
	return out.pair()
}

// ExchangeGoogleCode trades an OAuth authorization code for a token pair.
func (c *Client) ExchangeGoogleCode(ctx context.Context, code string) (domain.TokenPair, error) {
	var out tokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/google-auth-code/", false, codeExchangeRequest{Code: code}, &out); err != nil {
		return domain.TokenPair{}, err
	}
	return out.pair()
}

// Register creates an account and returns its token pair.
func (c *Client) Register(ctx context.Context, in domain.Registration) (domain.TokenPair, error) {
	var out tokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/users/register/", false, in, &out); err != nil {
		return domain.TokenPair{}, err
	}
	return out.pair()
}

// RequestPasswordReset asks the backend to send a reset link to email.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, "/api/users/password-reset/", false, passwordResetRequest{Email: email}, nil)
}
