package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginRequest_Validate(t *testing.T) {
	t.Run("valid request passes validation", func(t *testing.T) {
		req := &LoginRequest{Email: "admin@example.com", Password: "secret"}
		assert.NoError(t, req.Validate())
	})

	t.Run("missing email rejected", func(t *testing.T) {
		req := &LoginRequest{Password: "secret"}
		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "email is required")
	})

	t.Run("blank password rejected", func(t *testing.T) {
		req := &LoginRequest{Email: "admin@example.com", Password: "   "}
		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "password must not be blank")
	})

	t.Run("oversized email rejected", func(t *testing.T) {
		req := &LoginRequest{Email: strings.Repeat("a", 256), Password: "secret"}
		err := req.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "email must be at most 255")
	})
}

func TestLoginRequest_Normalize(t *testing.T) {
	req := &LoginRequest{Email: "  Admin@Example.COM "}
	req.Normalize()
	assert.Equal(t, "admin@example.com", req.Email)
}
