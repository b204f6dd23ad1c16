// Package identitytest provides an in-process identity service speaking the
// GoTrue token, user and logout endpoints, for tests and local runs.
package identitytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// APIKey is the project key the fake server accepts.
const APIKey = "test-anon-key"

var signingKey = []byte("identitytest-signing-key")

type user struct {
	ID       string
	Email    string
	Password string
}

// Server is a fake identity service.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	users         map[string]user   // by email
	refreshTokens map[string]string // refresh token -> user id
	revoked       map[string]bool   // access tokens
	tokenTTL      time.Duration
	down          bool
	grants        int
	logouts       int
}

// NewServer starts a fake identity service. Close it when done.
func NewServer() *Server {
	s := &Server{
		users:         make(map[string]user),
		refreshTokens: make(map[string]string),
		revoked:       make(map[string]bool),
		tokenTTL:      time.Hour,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", s.handleToken)
	mux.HandleFunc("GET /auth/v1/user", s.handleUser)
	mux.HandleFunc("POST /auth/v1/logout", s.handleLogout)
	s.Server = httptest.NewServer(s.withAPIKey(mux))
	return s
}

// AddUser registers credentials and returns the identity id.
func (s *Server) AddUser(email, password string) string {
	return s.AddUserWithID(uuid.NewString(), email, password)
}

// AddUserWithID registers credentials under a fixed identity id.
func (s *Server) AddUserWithID(id, email, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[strings.ToLower(email)] = user{ID: id, Email: strings.ToLower(email), Password: password}
	return id
}

// SetTokenTTL changes the lifetime of tokens issued from now on.
func (s *Server) SetTokenTTL(ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenTTL = ttl
}

// SetDown makes every endpoint answer 503.
func (s *Server) SetDown(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.down = down
}

// Grants reports how many token grants succeeded.
func (s *Server) Grants() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grants
}

// Logouts reports how many logout calls were accepted.
func (s *Server) Logouts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logouts
}

// RevokeRefreshTokens invalidates every outstanding refresh token.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshTokens = make(map[string]string)
}

func (s *Server) withAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		down := s.down
		s.mu.Unlock()
		if down {
			writeError(w, http.StatusServiceUnavailable, "service_unavailable", "maintenance")
			return
		}
		if r.Header.Get("apikey") != APIKey {
			writeError(w, http.StatusUnauthorized, "no_api_key", "No API key found in request")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "Could not parse request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var u user
	switch r.URL.Query().Get("grant_type") {
	case "password":
		found, ok := s.users[strings.ToLower(body.Email)]
		if !ok || found.Password != body.Password {
			writeError(w, http.StatusBadRequest, "invalid_credentials", "Invalid login credentials")
			return
		}
		u = found
	case "refresh_token":
		id, ok := s.refreshTokens[body.RefreshToken]
		if !ok {
			writeError(w, http.StatusBadRequest, "refresh_token_not_found", "Invalid Refresh Token: Refresh Token Not Found")
			return
		}
		delete(s.refreshTokens, body.RefreshToken)
		for _, candidate := range s.users {
			if candidate.ID == id {
				u = candidate
			}
		}
	default:
		writeError(w, http.StatusBadRequest, "unsupported_grant_type", "unsupported grant type")
		return
	}

	now := time.Now()
	exp := now.Add(s.tokenTTL)
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   u.ID,
		"email": u.Email,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
		"role":  "authenticated",
	}).SignedString(signingKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "unexpected_failure", err.Error())
		return
	}
	refresh := uuid.NewString()
	s.refreshTokens[refresh] = u.ID
	s.grants++

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  access,
		"token_type":    "bearer",
		"expires_in":    int64(s.tokenTTL / time.Second),
		"expires_at":    exp.Unix(),
		"refresh_token": refresh,
		"user":          map[string]string{"id": u.ID, "email": u.Email},
	})
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := s.authorize(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "bad_jwt", "invalid JWT")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": claims["sub"].(string), "email": claims["email"].(string)})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authorize(r); !ok {
		writeError(w, http.StatusUnauthorized, "bad_jwt", "invalid JWT")
		return
	}
	s.mu.Lock()
	s.revoked[bearer(r)] = true
	s.logouts++
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) authorize(r *http.Request) (jwt.MapClaims, bool) {
	token := bearer(r)
	s.mu.Lock()
	revoked := s.revoked[token]
	s.mu.Unlock()
	if revoked {
		return nil, false
	}
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) { return signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, false
	}
	return claims, true
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, description string) {
	writeJSON(w, status, map[string]any{
		"error":             code,
		"error_code":        code,
		"error_description": description,
	})
}
