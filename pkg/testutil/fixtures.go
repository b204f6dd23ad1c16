package testutil

import (
	"time"

	"github.com/google/uuid"

	"adminconsole/internal/auth/models"
)

// TestIDs provides fixed identity ids for deterministic test data.
var TestIDs = struct {
	Identity1 string
	Identity2 string
	Admin     string
}{
	Identity1: "11111111-1111-1111-1111-111111111111",
	Identity2: "22222222-2222-2222-2222-222222222222",
	Admin:     "aaaa0000-0000-0000-0000-000000000001",
}

// SessionBuilder provides a fluent interface for building test sessions.
type SessionBuilder struct {
	session *models.Session
}

// NewSessionBuilder creates a session for TestIDs.Identity1 that expires in an hour.
func NewSessionBuilder() *SessionBuilder {
	return &SessionBuilder{
		session: &models.Session{
			AccessToken:  "access-" + uuid.NewString(),
			RefreshToken: "refresh-" + uuid.NewString(),
			TokenType:    "bearer",
			ExpiresAt:    time.Now().Add(time.Hour).UTC().Truncate(time.Second),
			User:         models.Identity{ID: TestIDs.Identity1, Email: "user1@example.com"},
		},
	}
}

func (b *SessionBuilder) ForIdentity(id, email string) *SessionBuilder {
	b.session.User = models.Identity{ID: id, Email: email}
	return b
}

func (b *SessionBuilder) WithAccessToken(token string) *SessionBuilder {
	b.session.AccessToken = token
	return b
}

func (b *SessionBuilder) WithRefreshToken(token string) *SessionBuilder {
	b.session.RefreshToken = token
	return b
}

func (b *SessionBuilder) ExpiresAt(t time.Time) *SessionBuilder {
	b.session.ExpiresAt = t
	return b
}

func (b *SessionBuilder) Build() *models.Session {
	return b.session
}

// ProfileBuilder provides a fluent interface for building test profiles.
type ProfileBuilder struct {
	profile *models.Profile
}

// NewProfileBuilder creates a non-admin profile for TestIDs.Identity1.
func NewProfileBuilder() *ProfileBuilder {
	return &ProfileBuilder{
		profile: models.NewDefaultProfile(TestIDs.Identity1, false, time.Now().Truncate(time.Second)),
	}
}

func (b *ProfileBuilder) WithID(id string) *ProfileBuilder {
	b.profile.ID = id
	return b
}

func (b *ProfileBuilder) Admin(isAdmin bool) *ProfileBuilder {
	b.profile.IsAdmin = isAdmin
	return b
}

func (b *ProfileBuilder) WithName(name string) *ProfileBuilder {
	b.profile.Name = &name
	return b
}

func (b *ProfileBuilder) WithAvatarURL(url string) *ProfileBuilder {
	b.profile.AvatarURL = &url
	return b
}

func (b *ProfileBuilder) Build() *models.Profile {
	return b.profile
}
