package profile

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"adminconsole/internal/auth/models"
	"adminconsole/internal/platform/baas"
	"adminconsole/pkg/platform/sentinel"
)

const (
	profilesPath = "/rest/v1/profiles"

	// codeNoRows is reported when a single-object request matches no row.
	codeNoRows = "PGRST116"
	// codeUniqueViolation is the Postgres unique_violation SQLSTATE.
	codeUniqueViolation = "23505"

	singleObject = "application/vnd.pgrst.object+json"
)

// TokenSource returns the bearer token for data requests so row level
// security sees the signed-in identity. An empty token falls back to the
// project api key.
type TokenSource func(ctx context.Context) string

// RESTStore reads and writes profiles through the hosted data API.
type RESTStore struct {
	client *baas.Client
	token  TokenSource
	now    func() time.Time
}

type RESTOption func(*RESTStore)

// WithTokenSource sets the bearer token provider for data requests.
func WithTokenSource(ts TokenSource) RESTOption {
	return func(s *RESTStore) {
		s.token = ts
	}
}

// NewREST constructs a profile store over the data API.
func NewREST(client *baas.Client, opts ...RESTOption) *RESTStore {
	s := &RESTStore{
		client: client,
		token:  func(context.Context) string { return "" },
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RESTStore) FindByID(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	err := s.client.Do(ctx, baas.Request{
		Method: http.MethodGet,
		Path:   profilesPath,
		Query:  url.Values{"id": {"eq." + id}, "select": {"*"}},
		Header: http.Header{"Accept": {singleObject}},
		Bearer: s.token(ctx),
	}, &p)
	if err != nil {
		return nil, s.translate(err, id, "query profile")
	}
	return &p, nil
}

func (s *RESTStore) Insert(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	if p == nil || p.ID == "" {
		return nil, fmt.Errorf("insert profile without id: %w", sentinel.ErrInvalidInput)
	}
	var out models.Profile
	err := s.client.Do(ctx, baas.Request{
		Method: http.MethodPost,
		Path:   profilesPath,
		Body:   p,
		Header: http.Header{
			"Accept": {singleObject},
			"Prefer": {"return=representation"},
		},
		Bearer: s.token(ctx),
	}, &out)
	if err != nil {
		return nil, s.translate(err, p.ID, "insert profile")
	}
	return &out, nil
}

func (s *RESTStore) SetAdmin(ctx context.Context, id string, isAdmin bool) (*models.Profile, error) {
	var out models.Profile
	err := s.client.Do(ctx, baas.Request{
		Method: http.MethodPatch,
		Path:   profilesPath,
		Query:  url.Values{"id": {"eq." + id}},
		Body: map[string]any{
			"is_admin":   isAdmin,
			"updated_at": s.now().UTC(),
		},
		Header: http.Header{
			"Accept": {singleObject},
			"Prefer": {"return=representation"},
		},
		Bearer: s.token(ctx),
	}, &out)
	if err != nil {
		return nil, s.translate(err, id, "update profile")
	}
	return &out, nil
}

// Upsert merges p into an existing row. Only non-nil name and avatar are
// sent so a bare admin grant never clears them.
func (s *RESTStore) Upsert(ctx context.Context, p *models.Profile) (*models.Profile, error) {
	if p == nil || p.ID == "" {
		return nil, fmt.Errorf("upsert profile without id: %w", sentinel.ErrInvalidInput)
	}
	body := map[string]any{
		"id":         p.ID,
		"is_admin":   p.IsAdmin,
		"updated_at": p.UpdatedAt.UTC(),
	}
	if p.Name != nil {
		body["name"] = *p.Name
	}
	if p.AvatarURL != nil {
		body["avatar_url"] = *p.AvatarURL
	}

	var out models.Profile
	err := s.client.Do(ctx, baas.Request{
		Method: http.MethodPost,
		Path:   profilesPath,
		Query:  url.Values{"on_conflict": {"id"}},
		Body:   body,
		Header: http.Header{
			"Accept": {singleObject},
			"Prefer": {"resolution=merge-duplicates,return=representation"},
		},
		Bearer: s.token(ctx),
	}, &out)
	if err != nil {
		return nil, s.translate(err, p.ID, "upsert profile")
	}
	return &out, nil
}

func (s *RESTStore) translate(err error, id, op string) error {
	apiErr, ok := baas.AsAPIError(err)
	if !ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	switch {
	case apiErr.Code == codeNoRows || apiErr.Status == http.StatusNotFound:
		return fmt.Errorf("profile %s: %w", id, sentinel.ErrNotFound)
	case apiErr.Code == codeUniqueViolation || apiErr.Status == http.StatusConflict:
		return fmt.Errorf("profile %s: %w", id, sentinel.ErrConflict)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
