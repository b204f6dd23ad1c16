package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"adminconsole/internal/auth/models"
)

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// claimsFromToken reads identity and expiry from an access token without
// verifying its signature.
func claimsFromToken(token string) (models.Identity, time.Time, error) {
	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return models.Identity{}, time.Time{}, fmt.Errorf("parse access token: %w", err)
	}
	var exp time.Time
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time.UTC()
	}
	return models.Identity{ID: claims.Subject, Email: claims.Email}, exp, nil
}

// complete fills the identity and expiry of s from its access token when the
// response omitted them.
func complete(s *models.Session) error {
	if s.User.ID != "" && !s.ExpiresAt.IsZero() {
		return nil
	}
	ident, exp, err := claimsFromToken(s.AccessToken)
	if err != nil {
		return err
	}
	if s.User.ID == "" {
		s.User = ident
	}
	if s.ExpiresAt.IsZero() {
		s.ExpiresAt = exp
	}
	if s.User.ID == "" {
		return fmt.Errorf("access token has no subject")
	}
	return nil
}
