package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "adminconsole/pkg/domain-errors"
)

type sample struct {
	DisplayName string `validate:"required,notblank"`
	Role        string `validate:"omitempty,oneof=admin viewer"`
	AvatarURL   string `json:"avatar,omitempty" validate:"max=8"`
}

func TestValidate(t *testing.T) {
	t.Run("valid struct", func(t *testing.T) {
		assert.NoError(t, Validate(&sample{DisplayName: "Ada"}))
	})

	t.Run("required field reported in snake case", func(t *testing.T) {
		err := Validate(&sample{})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Equal(t, "display_name is required", err.Error())
	})

	t.Run("blank field rejected", func(t *testing.T) {
		err := Validate(&sample{DisplayName: "  "})
		require.Error(t, err)
		assert.Equal(t, "display_name must not be blank", err.Error())
	})

	t.Run("oneof message lists options", func(t *testing.T) {
		err := Validate(&sample{DisplayName: "Ada", Role: "owner"})
		require.Error(t, err)
		assert.Equal(t, "role must be one of [admin viewer]", err.Error())
	})
}

func TestValidateUsesJSONKey(t *testing.T) {
	err := Validate(&sample{DisplayName: "Ada", AvatarURL: "https://example.com/a.png"})
	require.Error(t, err)
	assert.Equal(t, "avatar must be at most 8 characters", err.Error())
}

func TestErrorMessageFallback(t *testing.T) {
	assert.Equal(t, "invalid request body", ErrorMessage(errors.New("boom")))
}
