package cmd

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adminconsole/internal/auth/identity/identitytest"
	"adminconsole/internal/platform/config"
)

func TestMain(m *testing.M) {
	pterm.DisableOutput()
	os.Exit(m.Run())
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	return root.ExecuteContext(ctx)
}

// writeConfig points consolectl at srv with SQLite profiles and file
// sessions under a temp dir, and returns the config path and session dir.
func writeConfig(t *testing.T, srv *identitytest.Server, privileged ...string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	var f config.File
	f.Identity.URL = srv.URL
	f.Identity.APIKey = identitytest.APIKey
	f.Profiles.Backend = config.ProfileBackendSQLite
	f.Database.URL = filepath.Join(dir, "profiles.db")
	f.Session.Store = config.SessionStoreFile
	f.Session.Dir = filepath.Join(dir, "sessions")
	f.Auth.PrivilegedIDs = privileged
	grant := false
	f.Auth.GrantAdminOnSignIn = &grant
	f.Auth.AdminRetryDelay = "10ms"

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, f.Save(path))
	return path, f.Session.Dir
}

func sessionFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestLoginWhoamiLogout(t *testing.T) {
	srv := identitytest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddUser("ada@example.com", "hunter2")
	path, sessions := writeConfig(t, srv)

	require.ErrorIs(t, execute(t, "--config", path, "whoami"), errNotSignedIn)

	require.NoError(t, execute(t, "--config", path, "login", "--email", "ada@example.com", "--password", "hunter2"))
	assert.NotEmpty(t, sessionFiles(t, sessions))

	require.NoError(t, execute(t, "--config", path, "whoami"))
	require.NoError(t, execute(t, "--config", path, "admin-status"))

	require.NoError(t, execute(t, "--config", path, "logout"))
	assert.Empty(t, sessionFiles(t, sessions))
	assert.Equal(t, 1, srv.Logouts())
	require.ErrorIs(t, execute(t, "--config", path, "whoami"), errNotSignedIn)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv := identitytest.NewServer()
	t.Cleanup(srv.Close)
	srv.AddUser("ada@example.com", "hunter2")
	path, sessions := writeConfig(t, srv)

	err := execute(t, "--config", path, "login", "--email", "ada@example.com", "--password", "wrong")
	require.EqualError(t, err, "sign-in failed")
	assert.Empty(t, sessionFiles(t, sessions))
}

func TestLoginRequiresEmail(t *testing.T) {
	err := execute(t, "login", "--password", "x")
	require.EqualError(t, err, "--email is required")
}

func TestProfileGetHealsPrivilegedIdentity(t *testing.T) {
	srv := identitytest.NewServer()
	t.Cleanup(srv.Close)
	path, _ := writeConfig(t, srv, "00000000-0000-0000-0000-0000000000aa")

	require.NoError(t, execute(t, "--config", path, "profile", "get", "00000000-0000-0000-0000-0000000000aa"))
	require.Error(t, execute(t, "--config", path, "profile", "get"))
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, execute(t, "--config", path, "config", "init",
		"--identity-url", "https://project.example.com",
		"--api-key", "anon-key",
		"--privileged-id", "a", "--privileged-id", "b",
	))

	f, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://project.example.com", f.Identity.URL)
	assert.Equal(t, "anon-key", f.Identity.APIKey)
	assert.Equal(t, config.SessionStoreFile, f.Session.Store)
	assert.Equal(t, []string{"a", "b"}, f.Auth.PrivilegedIDs)

	err = execute(t, "--config", path, "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	require.NoError(t, execute(t, "--config", path, "config", "init", "--force", "--identity-url", "https://other.example.com"))
	f, err = config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "https://other.example.com", f.Identity.URL)
	assert.Empty(t, f.Identity.APIKey)

	require.NoError(t, execute(t, "--config", path, "config", "show"))
}
