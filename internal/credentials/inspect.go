package credentials

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"meingenie/internal/domain"
)

// ErrSignedOut is returned by Inspect when no access token is held.
var ErrSignedOut = errors.New("credentials: not signed in")

type accessClaims struct {
	Email  string `json:"email"`
	UserID any    `json:"user_id"`
	jwt.RegisteredClaims
}

// Inspect decodes the access token's claims without verifying its signature.
// The backend is the only party that can verify; this is for display and
// local expiry hints.
func (p *Provider) Inspect() (domain.Identity, error) {
	token := p.AccessToken()
	if token == "" {
		return domain.Identity{}, ErrSignedOut
	}
	return ParseIdentity(token)
}

// ParseIdentity reads subject, email, user id and expiry from a JWT.
func ParseIdentity(token string) (domain.Identity, error) {
	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return domain.Identity{}, fmt.Errorf("credentials: parse access token: %w", err)
	}
	id := domain.Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
	}
	if claims.UserID != nil {
		switch v := claims.UserID.(type) {
		case float64:
			id.UserID = fmt.Sprintf("%.0f", v)
		default:
			id.UserID = fmt.Sprint(v)
		}
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}
