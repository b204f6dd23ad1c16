package httputil

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "adminconsole/pkg/domain-errors"
)

type credentials struct {
	Email string `json:"email"`

	normalized bool
}

func (c *credentials) Normalize() {
	c.normalized = true
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
}

func (c *credentials) Validate() error {
	if c.Email == "" {
		return errors.New("email is required")
	}
	if !strings.Contains(c.Email, "@") {
		return dErrors.New(dErrors.CodeBadRequest, "email is malformed")
	}
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestDecodeAndPrepare(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantOK     bool
		wantStatus int
		wantCode   string
	}{
		{name: "normalizes then validates", body: `{"email":"  Ada@Example.COM "}`, wantOK: true},
		{name: "malformed json", body: `{email`, wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "empty body", body: ``, wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
		{name: "plain validation error", body: `{"email":"  "}`, wantStatus: http.StatusBadRequest, wantCode: "validation_error"},
		{name: "domain validation error keeps its code", body: `{"email":"nobody"}`, wantStatus: http.StatusBadRequest, wantCode: "bad_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			req, ok := DecodeAndPrepare[credentials](w, r, discardLogger())

			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				require.NotNil(t, req)
				assert.True(t, req.normalized)
				assert.Equal(t, "ada@example.com", req.Email)
				return
			}
			assert.Nil(t, req)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeError(t, w)["error"])
		})
	}
}

func TestDecodeJSONBodyTooLarge(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"`+strings.Repeat("a", 64)+`"}`))
	r.Body = http.MaxBytesReader(w, r.Body, 16)

	_, ok := DecodeJSON[credentials](w, r, discardLogger())

	assert.False(t, ok)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{dErrors.New(dErrors.CodeUnauthorized, "invalid login credentials"), http.StatusUnauthorized, "unauthorized"},
		{dErrors.New(dErrors.CodeForbidden, ""), http.StatusForbidden, "forbidden"},
		{dErrors.New(dErrors.CodeUnavailable, "identity service unavailable"), http.StatusServiceUnavailable, "unavailable"},
		{dErrors.New(dErrors.CodeTimeout, ""), http.StatusGatewayTimeout, "timeout"},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantCode, decodeError(t, w)["error"])
		})
	}
}

func TestWriteErrorOmitsInternalDetail(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, errors.New("pq: connection refused"))

	body := decodeError(t, w)
	assert.NotContains(t, body, "error_description")
}

func TestWantsJSON(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.False(t, WantsJSON(r))

	r.Header.Set("Accept", "application/json")
	assert.True(t, WantsJSON(r))
}
