package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidTokenFormat is returned for strings that are not JWTs
var ErrInvalidTokenFormat = errors.New("invalid JWT token format")

// AccessClaims are the claims the marketplace puts into access tokens
type AccessClaims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Claims is the client-side view of an access token
type Claims struct {
	Subject   string
	Role      string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at now
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// TimeUntilExpiry returns the duration until the token expires
func (c Claims) TimeUntilExpiry(now time.Time) time.Duration {
	if c.ExpiresAt.IsZero() {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}

// Inspect reads the claims of token without verifying its signature. Clients
// only use this for display; the server stays the authority on validity.
func Inspect(token string) (Claims, error) {
	var claims AccessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Claims{}, fmt.Errorf("%w: %w", ErrInvalidTokenFormat, err)
	}

	out := Claims{
		Subject: claims.Subject,
		Role:    claims.Role,
		Email:   claims.Email,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
