package models

import (
	"slices"
	"strings"
	"time"
)

// This file contains pure domain models for the console's authentication
// state. They carry no transport concerns; JSON tags match the identity
// service and profile table wire formats.

// Identity is the authenticated principal as reported by the identity service.
// It is read-only from the console's perspective.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is the opaque credential bundle issued on sign-in. The console only
// inspects it for the embedded identity and expiry.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         Identity  `json:"user"`
}

// Expired reports whether the session expires within margin of now.
// A zero ExpiresAt never expires.
func (s *Session) Expired(now time.Time, margin time.Duration) bool {
	if s == nil {
		return true
	}
	if s.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(margin).Before(s.ExpiresAt)
}

// IdentityID returns the id of the embedded identity, or "" for a nil session.
func (s *Session) IdentityID() string {
	if s == nil {
		return ""
	}
	return s.User.ID
}

// Profile is the console-owned record keyed by identity id. IsAdmin is the
// sole authorization attribute.
type Profile struct {
	ID        string    `json:"id"`
	IsAdmin   bool      `json:"is_admin"`
	Name      *string   `json:"name"`
	AvatarURL *string   `json:"avatar_url"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewDefaultProfile builds the row created when an identity has no profile yet.
func NewDefaultProfile(id string, isAdmin bool, now time.Time) *Profile {
	return &Profile{
		ID:        id,
		IsAdmin:   isAdmin,
		UpdatedAt: now.UTC(),
	}
}

// DisplayName returns the profile name or "" when unset.
func (p *Profile) DisplayName() string {
	if p == nil || p.Name == nil {
		return ""
	}
	return *p.Name
}

// Avatar returns the avatar url or "" when unset.
func (p *Profile) Avatar() string {
	if p == nil || p.AvatarURL == nil {
		return ""
	}
	return *p.AvatarURL
}

// SignInResult is the outcome of a password sign-in. Error is set only when
// Success is false.
type SignInResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// PrivilegedIdentities is an allow-list of identity ids that are always
// treated as administrators and whose profiles are healed to is_admin=true.
type PrivilegedIdentities []string

// ParsePrivilegedIdentities splits a comma separated list, dropping blanks.
func ParsePrivilegedIdentities(raw string) PrivilegedIdentities {
	var out PrivilegedIdentities
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(part); id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func (p PrivilegedIdentities) Contains(id string) bool {
	if id == "" {
		return false
	}
	return slices.Contains(p, id)
}
