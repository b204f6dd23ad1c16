package profile

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adminconsole/internal/platform/baas"
	"adminconsole/pkg/platform/sentinel"
)

func TestRESTStoreUsesTokenSource(t *testing.T) {
	fake := &fakePostgREST{t: t, backing: NewInMemory()}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	client, err := baas.New(srv.URL, "anon-key")
	require.NoError(t, err)
	store := NewREST(client, WithTokenSource(func(context.Context) string { return "user-jwt" }))

	_, err = store.FindByID(context.Background(), "u-1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	require.Len(t, fake.tokens, 1)
	assert.Equal(t, "user-jwt", fake.tokens[0])
}

func TestRESTStoreReadFailureIsNotNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writePGError(w, http.StatusServiceUnavailable, "PGRST000", "could not connect to database")
	}))
	defer srv.Close()

	client, err := baas.New(srv.URL, "anon-key")
	require.NoError(t, err)

	_, err = NewREST(client).FindByID(context.Background(), "u-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, sentinel.ErrNotFound)
	_, isAPI := baas.AsAPIError(err)
	assert.True(t, isAPI)
}
