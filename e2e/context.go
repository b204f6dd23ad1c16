package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"adminconsole/internal/app"
	"adminconsole/internal/auth/identity/identitytest"
	"adminconsole/internal/platform/config"
)

const settleTimeout = 5 * time.Second

// firstBrowser names the browser every scenario starts in.
const firstBrowser = "first"

// TestContext holds state between test steps. The console stack is built
// lazily on the first request so that Given steps can shape its config.
// Requests go out from the current browser; each browser keeps its own
// cookies.
type TestContext struct {
	Identity   *identitytest.Server
	Config     config.Server
	App        *app.App
	Server     *httptest.Server
	HTTPClient *http.Client

	LastResponse     *http.Response
	LastResponseBody []byte

	dir      string
	ids      map[string]string
	browsers map[string]*http.Client
	current  string
}

// NewTestContext starts a fake identity service and prepares a config that
// keeps sessions and profiles in a scenario-scoped temp dir.
func NewTestContext() (*TestContext, error) {
	dir, err := os.MkdirTemp("", "console-e2e-*")
	if err != nil {
		return nil, fmt.Errorf("create scenario dir: %w", err)
	}
	srv := identitytest.NewServer()

	cfg := config.Default()
	cfg.Identity.URL = srv.URL
	cfg.Identity.APIKey = identitytest.APIKey
	cfg.Profiles.Backend = config.ProfileBackendSQLite
	cfg.Database.URL = filepath.Join(dir, "profiles.db")
	cfg.Session.Store = config.SessionStoreFile
	cfg.Session.Dir = filepath.Join(dir, "sessions")
	cfg.Auth.GrantAdminOnSignIn = false
	cfg.Auth.AdminRetryDelay = 10 * time.Millisecond
	cfg.LoginRateLimit = 0

	tc := &TestContext{
		Identity: srv,
		Config:   cfg,
		dir:      dir,
		ids:      make(map[string]string),
		browsers: make(map[string]*http.Client),
	}
	if err := tc.UseBrowser(firstBrowser); err != nil {
		srv.Close()
		_ = os.RemoveAll(dir)
		return nil, err
	}
	return tc, nil
}

// UseBrowser makes name the current browser, opening it with an empty
// cookie jar the first time.
func (tc *TestContext) UseBrowser(name string) error {
	client, ok := tc.browsers[name]
	if !ok {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return fmt.Errorf("cookie jar: %w", err)
		}
		client = &http.Client{
			Jar:     jar,
			Timeout: 10 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
		tc.browsers[name] = client
	}
	tc.HTTPClient = client
	tc.current = name
	return nil
}

// CurrentBrowser names the browser requests go out from.
func (tc *TestContext) CurrentBrowser() string {
	return tc.current
}

// Close stops the console and the identity service and removes the temp dir.
func (tc *TestContext) Close() {
	tc.stopConsole()
	tc.Identity.Close()
	_ = os.RemoveAll(tc.dir)
}

func (tc *TestContext) ensureStarted() error {
	if tc.App != nil {
		return nil
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := app.New(context.Background(), tc.Config, logger)
	if err != nil {
		return err
	}
	if err := a.Start(context.Background()); err != nil {
		_ = a.Close()
		return err
	}

	router, err := a.HTTPHandler()
	if err != nil {
		_ = a.Close()
		return err
	}

	tc.App = a
	tc.Server = httptest.NewServer(router)
	return nil
}

func (tc *TestContext) stopConsole() {
	if tc.Server != nil {
		tc.Server.Close()
		tc.Server = nil
	}
	if tc.App != nil {
		_ = tc.App.Close()
		tc.App = nil
	}
}

// Restart stops the console and builds a new one over the same stores.
func (tc *TestContext) Restart() error {
	tc.stopConsole()
	return tc.ensureStarted()
}

// settle waits until every browser's authorization context has finished
// resolving its latest change, so the next request sees a stable state.
func (tc *TestContext) settle() error {
	ctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
	defer cancel()
	return tc.App.Clients.WaitResolved(ctx)
}

// AddIdentity registers an account with the identity service.
func (tc *TestContext) AddIdentity(email, password string) {
	tc.ids[email] = tc.Identity.AddUser(email, password)
}

// AddPrivilegedIdentity registers an account whose id is on the allow-list.
// It must run before the console starts.
func (tc *TestContext) AddPrivilegedIdentity(email, password string) error {
	if tc.App != nil {
		return errors.New("privileged identities must be declared before the console starts")
	}
	id := tc.Identity.AddUser(email, password)
	tc.ids[email] = id
	tc.Config.Auth.PrivilegedIDs = append(tc.Config.Auth.PrivilegedIDs, id)
	return nil
}

// SetGrantAdminOnSignIn toggles the sign-in grant. It must run before the
// console starts.
func (tc *TestContext) SetGrantAdminOnSignIn(enabled bool) error {
	if tc.App != nil {
		return errors.New("sign-in grant must be configured before the console starts")
	}
	tc.Config.Auth.GrantAdminOnSignIn = enabled
	return nil
}

func (tc *TestContext) SetIdentityServiceDown(down bool) {
	tc.Identity.SetDown(down)
}

// IdentityID returns the id registered for email.
func (tc *TestContext) IdentityID(email string) (string, error) {
	id, ok := tc.ids[email]
	if !ok {
		return "", fmt.Errorf("no identity registered for %s", email)
	}
	return id, nil
}

// POST makes a JSON POST request and stores the response.
func (tc *TestContext) POST(path string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	return tc.do(http.MethodPost, path, bytes.NewReader(data), map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	})
}

// GET makes a GET request and stores the response.
func (tc *TestContext) GET(path string, headers map[string]string) error {
	return tc.do(http.MethodGet, path, nil, headers)
}

func (tc *TestContext) do(method, path string, body io.Reader, headers map[string]string) error {
	if err := tc.ensureStarted(); err != nil {
		return fmt.Errorf("start console: %w", err)
	}
	if err := tc.settle(); err != nil {
		return fmt.Errorf("console did not settle: %w", err)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, tc.Server.URL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// GetResponseField extracts a field from the JSON response. Nested fields
// are addressed with dots, e.g. "user.email".
func (tc *TestContext) GetResponseField(field string) (interface{}, error) {
	var data interface{}
	if err := json.Unmarshal(tc.LastResponseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	value := data
	for _, key := range strings.Split(field, ".") {
		obj, ok := value.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("field %s not found in response", field)
		}
		if value, ok = obj[key]; !ok {
			return nil, fmt.Errorf("field %s not found in response", field)
		}
	}
	return value, nil
}

// ResponseContains checks if the response body contains a field or text.
func (tc *TestContext) ResponseContains(text string) bool {
	if strings.Contains(string(tc.LastResponseBody), text) {
		return true
	}
	var data map[string]interface{}
	if err := json.Unmarshal(tc.LastResponseBody, &data); err == nil {
		if _, ok := data[text]; ok {
			return true
		}
	}
	return false
}

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseHeader(name string) string {
	if tc.LastResponse == nil {
		return ""
	}
	return tc.LastResponse.Header.Get(name)
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.LastResponseBody
}
