package identity

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adminconsole/internal/auth/models"
)

func signedToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return token
}

func TestCompleteFillsIdentityFromToken(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	s := &models.Session{AccessToken: signedToken(t, jwt.MapClaims{
		"sub":   "u-1",
		"email": "a@example.com",
		"exp":   exp.Unix(),
	})}

	require.NoError(t, complete(s))
	assert.Equal(t, models.Identity{ID: "u-1", Email: "a@example.com"}, s.User)
	assert.True(t, exp.Equal(s.ExpiresAt))
}

func TestCompleteKeepsExplicitValues(t *testing.T) {
	exp := time.Now().Add(time.Minute)
	s := &models.Session{
		AccessToken: "not-a-jwt",
		ExpiresAt:   exp,
		User:        models.Identity{ID: "u-2"},
	}
	require.NoError(t, complete(s))
	assert.Equal(t, "u-2", s.User.ID)
}

func TestCompleteRejectsTokenWithoutSubject(t *testing.T) {
	s := &models.Session{AccessToken: signedToken(t, jwt.MapClaims{"email": "a@example.com"})}
	assert.Error(t, complete(s))

	assert.Error(t, complete(&models.Session{AccessToken: "garbage"}))
}
