package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"adminconsole/internal/auth/models"
	"adminconsole/pkg/platform/sentinel"
)

// profileRow is the bun mapping of the profiles table. The alias matches the
// table name so ON CONFLICT clauses can reference existing columns the same
// way on every dialect.
type profileRow struct {
	bun.BaseModel `bun:"table:profiles,alias:profiles"`

	ID        string    `bun:"id,pk"`
	IsAdmin   bool      `bun:"is_admin,notnull"`
	Name      *string   `bun:"name"`
	AvatarURL *string   `bun:"avatar_url"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func toRow(p *models.Profile) *profileRow {
	return &profileRow{
		ID:        p.ID,
		IsAdmin:   p.IsAdmin,
		Name:      p.Name,
		AvatarURL: p.AvatarURL,
		UpdatedAt: p.UpdatedAt.UTC(),
	}
}

func (r *profileRow) toModel() *models.Profile {
	return &models.Profile{
		ID:        r.ID,
		IsAdmin:   r.IsAdmin,
		Name:      r.Name,
		AvatarURL: r.AvatarURL,
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

// BunStore persists profiles through bun against Postgres or SQLite.
type BunStore struct {
	db  bun.IDB
	now func() time.Time
}

// NewBun constructs a profile store over db.
func NewBun(db bun.IDB) *BunStore {
	return &BunStore{db: db, now: time.Now}
}

// CreateSchema creates the profiles table from the row model. Postgres
// deployments use the SQL migrations instead; this serves SQLite and tests.
func (s *BunStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().Model((*profileRow)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return fmt.Errorf("create profiles table: %w", err)
	}
	return nil
}

func (s *BunStore) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	row := new(profileRow)
	err := s.db.NewSelect().Model(row).Where("?TableAlias.id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", id, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("query profile: %w", err)
	}
	return row.toModel(), nil
}

func (s *BunStore) Insert(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	if p == nil || p.ID == "" {
		return nil, fmt.Errorf("insert profile without id: %w", sentinel.ErrInvalidInput)
	}
	row := toRow(p)
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		if isDuplicateKeyError(err) {
			return nil, fmt.Errorf("profile %s: %w", p.ID, sentinel.ErrConflict)
		}
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return row.toModel(), nil
}

func (s *BunStore) SetAdmin(ctx context.Context, id string, isAdmin bool) (*models.Profile, error) {
	result, err := s.db.NewUpdate().
		Model((*profileRow)(nil)).
		Set("is_admin = ?", isAdmin).
		Set("updated_at = ?", s.now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return nil, fmt.Errorf("profile %s: %w", id, sentinel.ErrNotFound)
	}
	return s.FindByID(ctx, id)
}

// Upsert inserts p or, when the id exists, overwrites is_admin and
// updated_at. Name and avatar are only replaced when p carries them.
func (s *BunStore) Upsert(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	if p == nil || p.ID == "" {
		return nil, fmt.Errorf("upsert profile without id: %w", sentinel.ErrInvalidInput)
	}
	_, err := s.db.NewInsert().
		Model(toRow(p)).
		On("CONFLICT (id) DO UPDATE").
		Set("is_admin = EXCLUDED.is_admin").
		Set("updated_at = EXCLUDED.updated_at").
		Set("name = COALESCE(EXCLUDED.name, profiles.name)").
		Set("avatar_url = COALESCE(EXCLUDED.avatar_url, profiles.avatar_url)").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	return s.FindByID(ctx, p.ID)
}

// isDuplicateKeyError recognises a primary key violation from Postgres
// (SQLSTATE 23505) or SQLite.
func isDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
