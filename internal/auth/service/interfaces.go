package service

import (
	"context"

	"adminconsole/internal/audit"
	"adminconsole/internal/auth/models"
)

// IdentityProvider is the identity service capability the console consumes.
// The concrete implementation is identity.Client.
type IdentityProvider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	GetSession(ctx context.Context) (*models.Session, error)
	OnAuthStateChange(fn func(models.ChangeEvent)) (unsubscribe func())
	SignOut(ctx context.Context) error
}

// ProfileStore is the backing store for profiles.
//
// Error Contract:
//   - FindByID and SetAdmin return an error wrapping sentinel.ErrNotFound when no row matches
//   - Insert returns an error wrapping sentinel.ErrConflict when the id already exists
//   - any other error is a read/write failure
type ProfileStore interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
	Insert(ctx context.Context, profile *models.Profile) (*models.Profile, error)
	SetAdmin(ctx context.Context, id string, isAdmin bool) (*models.Profile, error)
	Upsert(ctx context.Context, profile *models.Profile) (*models.Profile, error)
}

// AuditPublisher emits audit events for security-relevant operations.
type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}
