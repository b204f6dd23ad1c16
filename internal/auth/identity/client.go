// Package identity is the client for the hosted identity service (GoTrue
// protocol). It owns the persisted session record and emits change events
// whenever that record changes.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"adminconsole/internal/auth/models"
	"adminconsole/internal/platform/baas"
	"adminconsole/pkg/platform/clock"
	"adminconsole/pkg/platform/sentinel"
)

const (
	tokenPath  = "/auth/v1/token"
	userPath   = "/auth/v1/user"
	logoutPath = "/auth/v1/logout"

	// DefaultExpiryMargin is how early a session is treated as expired so a
	// request never leaves with a token that lapses in flight.
	DefaultExpiryMargin = 30 * time.Second
)

// tokenResponse is the grant response body.
type tokenResponse struct {
	AccessToken  string           `json:"access_token"`
	TokenType    string           `json:"token_type"`
	ExpiresIn    int64            `json:"expires_in"`
	ExpiresAt    int64            `json:"expires_at"`
	RefreshToken string           `json:"refresh_token"`
	User         *models.Identity `json:"user"`
}

// Client talks to the identity service and keeps the persisted session.
type Client struct {
	api        *baas.Client
	store      SessionStore
	storageKey string
	clock      clock.Clock
	margin     time.Duration
	logger     *slog.Logger
	events     *broadcaster

	// refreshMu serializes refresh-token exchanges; a refresh token is
	// single use.
	refreshMu sync.Mutex
}

type Option func(*Client)

func WithStorageKey(key string) Option {
	return func(c *Client) {
		c.storageKey = key
	}
}

func WithClock(clk clock.Clock) Option {
	return func(c *Client) {
		c.clock = clk
	}
}

func WithExpiryMargin(d time.Duration) Option {
	return func(c *Client) {
		c.margin = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New builds a client over api that persists sessions in store.
func New(api *baas.Client, store SessionStore, opts ...Option) *Client {
	c := &Client{
		api:        api,
		store:      store,
		storageKey: StorageKey(api.BaseURL()),
		clock:      clock.Real{},
		margin:     DefaultExpiryMargin,
		logger:     slog.Default(),
		events:     newBroadcaster(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StorageKey derives the persisted-session key from the project url:
// sb-<project-ref>-auth-token, where the ref is the first host label.
func StorageKey(baseURL string) string {
	ref := "local"
	if u, err := url.Parse(baseURL); err == nil && u.Hostname() != "" {
		ref = strings.SplitN(u.Hostname(), ".", 2)[0]
	}
	return "sb-" + ref + "-auth-token"
}

// Key returns the storage key the session is persisted under.
func (c *Client) Key() string {
	return c.storageKey
}

// SignInWithPassword exchanges credentials for a session, persists it and
// emits SIGNED_IN.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	session, err := c.grant(ctx, "password", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, translateError(err, "sign in")
	}
	if err := c.store.Save(ctx, c.storageKey, session); err != nil {
		c.logger.WarnContext(ctx, "failed to persist session", "error", err)
	}
	c.events.emit(models.ChangeEvent{Type: models.EventSignedIn, Session: session})
	return session, nil
}

// GetSession returns the persisted session, refreshing it first when it is
// about to expire. A missing record yields (nil, nil).
func (c *Client) GetSession(ctx context.Context) (*models.Session, error) {
	session, err := c.load(ctx)
	if err != nil || session == nil {
		return nil, err
	}
	if !session.Expired(c.clock.Now(), c.margin) {
		return session, nil
	}
	if session.RefreshToken == "" {
		c.logger.InfoContext(ctx, "persisted session expired without refresh token")
		c.clear(ctx)
		return nil, nil
	}
	return c.refresh(ctx, session.RefreshToken)
}

// RefreshSession forces a refresh-token exchange for the persisted session.
func (c *Client) RefreshSession(ctx context.Context) (*models.Session, error) {
	session, err := c.load(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil || session.RefreshToken == "" {
		return nil, translateError(fmt.Errorf("no session to refresh: %w", sentinel.ErrUnauthorized), "refresh session")
	}
	return c.refresh(ctx, session.RefreshToken)
}

// GetUser asks the identity service who the current session belongs to.
func (c *Client) GetUser(ctx context.Context) (*models.Identity, error) {
	session, err := c.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	var user models.Identity
	err = c.api.Do(ctx, baas.Request{
		Method: http.MethodGet,
		Path:   userPath,
		Bearer: session.AccessToken,
	}, &user)
	if err != nil {
		return nil, translateError(err, "get user")
	}
	return &user, nil
}

// AccessToken returns the current access token, or "" when signed out.
func (c *Client) AccessToken(ctx context.Context) string {
	session, err := c.GetSession(ctx)
	if err != nil || session == nil {
		return ""
	}
	return session.AccessToken
}

// SignOut revokes the session remotely, then always removes the local record
// and emits SIGNED_OUT. The remote error, if any, is returned.
func (c *Client) SignOut(ctx context.Context) error {
	session, loadErr := c.load(ctx)

	var remoteErr error
	if loadErr == nil && session != nil && session.AccessToken != "" {
		remoteErr = c.api.Do(ctx, baas.Request{
			Method: http.MethodPost,
			Path:   logoutPath,
			Query:  url.Values{"scope": {"global"}},
			Bearer: session.AccessToken,
		}, nil)
		if apiErr, ok := baas.AsAPIError(remoteErr); ok && apiErr.Status == http.StatusUnauthorized {
			// Token already revoked or expired remotely.
			remoteErr = nil
		}
	}

	c.clear(ctx)
	if remoteErr != nil {
		return translateError(remoteErr, "sign out")
	}
	return nil
}

// OnAuthStateChange registers fn for change events. Events are delivered in
// emission order and never concurrently. The returned func unsubscribes and
// is safe to call more than once.
func (c *Client) OnAuthStateChange(fn func(models.ChangeEvent)) func() {
	return c.events.subscribe(fn)
}

func (c *Client) load(ctx context.Context) (*models.Session, error) {
	session, err := c.store.Load(ctx, c.storageKey)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, translateError(fmt.Errorf("load session: %w", err), "load session")
	}
	return session, nil
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	// Another caller may have refreshed while we waited.
	if current, err := c.load(ctx); err == nil && current != nil &&
		current.RefreshToken != refreshToken && !current.Expired(c.clock.Now(), c.margin) {
		return current, nil
	}

	session, err := c.grant(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken})
	if err != nil {
		if _, rejected := baas.AsAPIError(err); rejected {
			c.logger.InfoContext(ctx, "refresh token rejected, clearing session", "error", err)
			c.clear(ctx)
			return nil, nil
		}
		return nil, translateError(err, "refresh session")
	}
	if err := c.store.Save(ctx, c.storageKey, session); err != nil {
		c.logger.WarnContext(ctx, "failed to persist refreshed session", "error", err)
	}
	c.events.emit(models.ChangeEvent{Type: models.EventTokenRefreshed, Session: session})
	return session, nil
}

func (c *Client) grant(ctx context.Context, grantType string, body any) (*models.Session, error) {
	var resp tokenResponse
	err := c.api.Do(ctx, baas.Request{
		Method: http.MethodPost,
		Path:   tokenPath,
		Query:  url.Values{"grant_type": {grantType}},
		Body:   body,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("%s grant returned no access token", grantType)
	}

	session := &models.Session{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
	}
	switch {
	case resp.ExpiresAt > 0:
		session.ExpiresAt = time.Unix(resp.ExpiresAt, 0).UTC()
	case resp.ExpiresIn > 0:
		session.ExpiresAt = c.clock.Now().Add(time.Duration(resp.ExpiresIn) * time.Second).UTC()
	}
	if resp.User != nil {
		session.User = *resp.User
	}
	if err := complete(session); err != nil {
		return nil, err
	}
	return session, nil
}

// clear removes the persisted record and emits SIGNED_OUT.
func (c *Client) clear(ctx context.Context) {
	if err := c.store.Delete(ctx, c.storageKey); err != nil {
		c.logger.WarnContext(ctx, "failed to remove persisted session", "error", err)
	}
	c.events.emit(models.ChangeEvent{Type: models.EventSignedOut})
}
