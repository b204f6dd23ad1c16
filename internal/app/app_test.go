package app

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adminconsole/internal/auth/identity/identitytest"
	"adminconsole/internal/auth/models"
	"adminconsole/internal/platform/config"
	"adminconsole/internal/platform/health"
)

func testConfig(t *testing.T, srv *identitytest.Server) config.Server {
	t.Helper()
	cfg := config.Default()
	cfg.Identity.URL = srv.URL
	cfg.Identity.APIKey = identitytest.APIKey
	cfg.Profiles.Backend = config.ProfileBackendMemory
	cfg.Session.Store = config.SessionStoreMemory
	cfg.Auth.GrantAdminOnSignIn = false
	cfg.Auth.AdminRetryDelay = 10 * time.Millisecond
	return cfg
}

func newApp(t *testing.T, cfg config.Server) *App {
	t.Helper()
	a, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(context.Background(), config.Default(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "IDENTITY_URL is required")
}

func TestSessionSurvivesRestartWithSQLiteProfiles(t *testing.T) {
	srv := identitytest.NewServer()
	t.Cleanup(srv.Close)
	userID := srv.AddUser("ada@example.com", "hunter2")

	dir := t.TempDir()
	cfg := testConfig(t, srv)
	cfg.Profiles.Backend = config.ProfileBackendSQLite
	cfg.Database.URL = filepath.Join(dir, "profiles.db")
	cfg.Session.Store = config.SessionStoreFile
	cfg.Session.Dir = dir

	first := newApp(t, cfg)
	require.NoError(t, first.Start(context.Background()))
	require.NoError(t, first.Auth.WaitSessionChecked(waitCtx(t)))
	assert.False(t, first.Auth.Snapshot().SignedIn())

	result := first.Auth.SignIn(context.Background(), "ada@example.com", "hunter2")
	require.True(t, result.Success, result.Error)
	require.NoError(t, first.Auth.WaitResolved(waitCtx(t)))

	snap := first.Auth.Snapshot()
	require.NotNil(t, snap.Profile)
	assert.Equal(t, userID, snap.Profile.ID)
	assert.False(t, snap.Profile.IsAdmin)
	assert.False(t, first.Auth.CheckAdminStatus(context.Background()))
	require.NoError(t, first.Close())

	second := newApp(t, cfg)
	require.NoError(t, second.Start(context.Background()))
	require.NoError(t, second.Auth.WaitResolved(waitCtx(t)))

	restored := second.Auth.Snapshot()
	require.True(t, restored.SignedIn())
	assert.Equal(t, userID, restored.IdentityID())
	require.NotNil(t, restored.Profile)
	assert.Equal(t, userID, restored.Profile.ID)
	assert.Equal(t, 1, srv.Grants(), "the restored session needs no new grant")
}

func TestPrivilegedIdentityIsAdminWithoutGrant(t *testing.T) {
	srv := identitytest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddUserWithID("root-id", "root@example.com", "pw")

	cfg := testConfig(t, srv)
	cfg.Auth.PrivilegedIDs = models.PrivilegedIdentities{"root-id"}
	a := newApp(t, cfg)
	require.NoError(t, a.Start(context.Background()))

	require.True(t, a.Auth.SignIn(context.Background(), "root@example.com", "pw").Success)
	require.NoError(t, a.Auth.WaitResolved(waitCtx(t)))

	assert.True(t, a.Auth.CheckAdminStatus(context.Background()))
	require.NotNil(t, a.Auth.Snapshot().Profile)
	assert.True(t, a.Auth.Snapshot().Profile.IsAdmin)

	require.NoError(t, a.Auth.SignOut(context.Background()))
	assert.False(t, a.Auth.Snapshot().SignedIn())
	assert.False(t, a.Auth.CheckAdminStatus(context.Background()))
	assert.Equal(t, 1, srv.Logouts())
}

func TestSignInGrantMakesEveryoneAdmin(t *testing.T) {
	srv := identitytest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddUser("grace@example.com", "pw")

	cfg := testConfig(t, srv)
	cfg.Auth.GrantAdminOnSignIn = true
	a := newApp(t, cfg)
	require.NoError(t, a.Start(context.Background()))

	require.True(t, a.Auth.SignIn(context.Background(), "grace@example.com", "pw").Success)
	require.NoError(t, a.Auth.WaitResolved(waitCtx(t)))

	require.NotNil(t, a.Auth.Snapshot().Profile)
	assert.True(t, a.Auth.Snapshot().Profile.IsAdmin)
	assert.True(t, a.Auth.CheckAdminStatus(context.Background()))

	identityID := a.Auth.Snapshot().IdentityID()
	require.NoError(t, a.Close())
	events, err := a.Audit.List(context.Background(), identityID)
	require.NoError(t, err)
	assert.NotEmpty(t, events)
}

func TestRegisterHealthChecks(t *testing.T) {
	srv := identitytest.NewServer()
	t.Cleanup(srv.Close)

	a := newApp(t, testConfig(t, srv))
	h := health.New("test")
	a.RegisterHealthChecks(h)

	ready := func() int {
		w := httptest.NewRecorder()
		h.HandleReadiness(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		return w.Code
	}

	assert.Equal(t, http.StatusServiceUnavailable, ready(), "not ready before the session check")
	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, a.Auth.WaitSessionChecked(waitCtx(t)))
	assert.Equal(t, http.StatusOK, ready())
}

func TestHTTPHandlerRateLimitsSignIn(t *testing.T) {
	srv := identitytest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddUser("ada@example.com", "hunter2")

	cfg := testConfig(t, srv)
	cfg.LoginRateLimit = 10
	a := newApp(t, cfg)
	require.NoError(t, a.Start(context.Background()))
	require.NoError(t, a.Auth.WaitSessionChecked(waitCtx(t)))

	router, err := a.HTTPHandler()
	require.NoError(t, err)

	login := func() *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"ada@example.com","password":"wrong"}`))
		r.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, login().Code)
	limited := login()
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

// browser is an HTTP client with its own cookie jar.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newBrowser(t *testing.T, base string) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, base: base, client: &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}}
}

func (b *browser) do(method, path, body string) *http.Response {
	b.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, b.base+path, reader)
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	b.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (b *browser) login(email, password string) int {
	b.t.Helper()
	return b.do(http.MethodPost, "/auth/login", `{"email":"`+email+`","password":"`+password+`"}`).StatusCode
}

func (b *browser) sessionUser() *models.Identity {
	b.t.Helper()
	resp := b.do(http.MethodGet, "/auth/session", "")
	require.Equal(b.t, http.StatusOK, resp.StatusCode)
	var got models.SessionResponse
	require.NoError(b.t, json.NewDecoder(resp.Body).Decode(&got))
	return got.User
}

func serve(t *testing.T, a *App) string {
	t.Helper()
	router, err := a.HTTPHandler()
	require.NoError(t, err)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server.URL
}

func TestBrowserSessionsAreIndependent(t *testing.T) {
	srv := identitytest.NewServer()
	t.Cleanup(srv.Close)
	adaID := srv.AddUser("ada@example.com", "hunter2")
	srv.AddUser("grace@example.com", "pw")

	a := newApp(t, testConfig(t, srv))
	require.NoError(t, a.Start(context.Background()))
	base := serve(t, a)
	alice, bob := newBrowser(t, base), newBrowser(t, base)

	require.Equal(t, http.StatusOK, alice.login("ada@example.com", "hunter2"))
	require.NoError(t, a.Clients.WaitResolved(waitCtx(t)))

	assert.Equal(t, http.StatusUnauthorized, bob.do(http.MethodGet, "/console/chrome", "").StatusCode,
		"another browser's sign-in grants nothing")
	assert.Nil(t, bob.sessionUser())
	assert.False(t, a.Auth.Snapshot().SignedIn(), "the process context is untouched")

	require.Equal(t, http.StatusOK, bob.login("grace@example.com", "pw"))
	assert.Equal(t, http.StatusOK, bob.do(http.MethodGet, "/console/chrome", "").StatusCode)
	assert.Equal(t, 2, a.Clients.Len())

	assert.Equal(t, http.StatusNoContent, bob.do(http.MethodPost, "/auth/logout", "").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, bob.do(http.MethodGet, "/console/chrome", "").StatusCode)
	assert.Equal(t, 1, a.Clients.Len())

	assert.Equal(t, http.StatusOK, alice.do(http.MethodGet, "/console/chrome", "").StatusCode,
		"signing out one browser leaves the other signed in")
	user := alice.sessionUser()
	require.NotNil(t, user)
	assert.Equal(t, adaID, user.ID)
}

func TestBrowserSessionIsRestoredAfterRestart(t *testing.T) {
	srv := identitytest.NewServer()
	t.Cleanup(srv.Close)
	adaID := srv.AddUser("ada@example.com", "hunter2")

	dir := t.TempDir()
	cfg := testConfig(t, srv)
	cfg.Session.Store = config.SessionStoreFile
	cfg.Session.Dir = dir

	first := newApp(t, cfg)
	require.NoError(t, first.Start(context.Background()))
	firstBase := serve(t, first)
	alice := newBrowser(t, firstBase)
	require.Equal(t, http.StatusOK, alice.login("ada@example.com", "hunter2"))
	require.NoError(t, first.Clients.WaitResolved(waitCtx(t)))
	require.NoError(t, first.Close())

	second := newApp(t, cfg)
	require.NoError(t, second.Start(context.Background()))
	secondBase := serve(t, second)

	// Carry alice's cookie over to the restarted server.
	restarted := newBrowser(t, secondBase)
	from, err := http.NewRequest(http.MethodGet, firstBase, nil)
	require.NoError(t, err)
	to, err := http.NewRequest(http.MethodGet, secondBase, nil)
	require.NoError(t, err)
	restarted.client.Jar.SetCookies(to.URL, alice.client.Jar.Cookies(from.URL))

	user := restarted.sessionUser()
	require.NotNil(t, user)
	assert.Equal(t, adaID, user.ID)
	assert.Equal(t, 1, srv.Grants(), "the restored session needs no new grant")
	assert.False(t, second.Auth.Snapshot().SignedIn(), "a browser session is not the process session")

	stranger := newBrowser(t, secondBase)
	assert.Nil(t, stranger.sessionUser())
}
