package identity

import (
	"context"

	"adminconsole/internal/auth/models"
)

// SessionStore persists the current session between process runs.
// Load returns an error wrapping sentinel.ErrNotFound when nothing is stored.
type SessionStore interface {
	Load(ctx context.Context, key string) (*models.Session, error)
	Save(ctx context.Context, key string, session *models.Session) error
	Delete(ctx context.Context, key string) error
}
