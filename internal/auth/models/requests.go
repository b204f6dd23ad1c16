package models

import (
	"strings"

	s "adminconsole/pkg/string"
	"adminconsole/pkg/validation"
)

// LoginRequest is the password sign-in form.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,notblank,max=255"`
	Password string `json:"password" validate:"required,notblank,max=1024"`
}

func (r *LoginRequest) Normalize() {
	s.TrimStrings(&r.Email)
	r.Email = strings.ToLower(r.Email)
}

func (r *LoginRequest) Validate() error {
	return validation.Validate(r)
}
