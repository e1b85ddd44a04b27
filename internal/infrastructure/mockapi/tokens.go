package mockapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"hokz.academy/cli/internal/core/domain"
	"hokz.academy/cli/internal/infrastructure/tokens"
)

var errStaleToken = errors.New("access token generation is stale")

// mockClaims extends the public access claims with the token generation
type mockClaims struct {
	tokens.AccessClaims
	Generation int64 `json:"gen"`
}

// issueAccessToken signs a short-lived token bound to a refresh session. The
// role claim is the highest priority role signed in on that session.
func (s *Server) issueAccessToken(sessionID string, session *refreshSession) (string, error) {
	role, email := primaryRole(session)
	now := s.now()

	claims := mockClaims{
		AccessClaims: tokens.AccessClaims{
			Role:  role.String(),
			Email: email,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   sessionID,
				Issuer:    "hokz-mock",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTTL)),
			},
		},
		Generation: s.generation.Load(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// verifyAccessToken validates a bearer header value and returns its session id
func (s *Server) verifyAccessToken(header string) (string, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return "", errors.New("missing bearer token")
	}

	var claims mockClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return []byte(s.config.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", err
	}
	if claims.Generation < s.generation.Load() {
		return "", errStaleToken
	}
	return claims.Subject, nil
}

func primaryRole(session *refreshSession) (domain.Role, string) {
	for _, role := range domain.Roles() {
		if email, ok := session.roles[role]; ok {
			return role, email
		}
	}
	return "", ""
}
