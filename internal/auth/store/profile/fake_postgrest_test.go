package profile

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"adminconsole/internal/auth/models"
	"adminconsole/internal/platform/baas"
	"adminconsole/pkg/platform/sentinel"
)

// fakePostgREST serves the subset of the data API the RESTStore uses,
// backed by an in-memory store.
type fakePostgREST struct {
	t       *testing.T
	backing *InMemoryStore
	tokens  []string
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != profilesPath {
		http.NotFound(w, r)
		return
	}
	if r.Header.Get("apikey") != "anon-key" {
		writePGError(w, http.StatusUnauthorized, "PGRST301", "missing api key")
		return
	}
	f.tokens = append(f.tokens, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	id := strings.TrimPrefix(r.URL.Query().Get("id"), "eq.")

	switch r.Method {
	case http.MethodGet:
		p, err := f.backing.FindByID(r.Context(), id)
		f.respond(w, p, err)
	case http.MethodPatch:
		var body struct {
			IsAdmin bool `json:"is_admin"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writePGError(w, http.StatusBadRequest, "PGRST102", err.Error())
			return
		}
		p, err := f.backing.SetAdmin(r.Context(), id, body.IsAdmin)
		f.respond(w, p, err)
	case http.MethodPost:
		var p models.Profile
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writePGError(w, http.StatusBadRequest, "PGRST102", err.Error())
			return
		}
		var (
			out *models.Profile
			err error
		)
		if strings.Contains(r.Header.Get("Prefer"), "merge-duplicates") {
			out, err = f.backing.Upsert(r.Context(), &p)
		} else {
			out, err = f.backing.Insert(r.Context(), &p)
		}
		if err == nil {
			w.Header().Set("Content-Type", singleObject)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(out)
			return
		}
		f.respond(w, nil, err)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakePostgREST) respond(w http.ResponseWriter, p *models.Profile, err error) {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		writePGError(w, http.StatusNotAcceptable, codeNoRows, "JSON object requested, multiple (or no) rows returned")
	case errors.Is(err, sentinel.ErrConflict):
		writePGError(w, http.StatusConflict, codeUniqueViolation, "duplicate key value violates unique constraint")
	case errors.Is(err, sentinel.ErrInvalidInput):
		writePGError(w, http.StatusBadRequest, "23502", "null value in column \"id\"")
	case err != nil:
		writePGError(w, http.StatusInternalServerError, "XX000", err.Error())
	default:
		w.Header().Set("Content-Type", singleObject)
		_ = json.NewEncoder(w).Encode(p)
	}
}

func writePGError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": code, "message": msg})
}

func newRESTStore(t *testing.T, backing *InMemoryStore, opts ...RESTOption) *RESTStore {
	t.Helper()
	srv := httptest.NewServer(&fakePostgREST{t: t, backing: backing})
	t.Cleanup(srv.Close)

	client, err := baas.New(srv.URL, "anon-key")
	if err != nil {
		t.Fatalf("baas client: %v", err)
	}
	return NewREST(client, opts...)
}
