package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"adminconsole/internal/audit"
	"adminconsole/internal/auth/authctx"
	"adminconsole/internal/auth/models"
	dErrors "adminconsole/pkg/domain-errors"
	"adminconsole/pkg/platform/httputil"
	"adminconsole/pkg/platform/sentinel"
	"adminconsole/pkg/requestcontext"
)

const (
	// LoginPath is where unauthenticated browser requests are redirected.
	LoginPath = "/login"
	// SessionCookie carries the browser session id issued on login.
	SessionCookie = "console_session"
)

// AuthContext is the authorization state the handlers read and drive.
type AuthContext interface {
	Snapshot() authctx.State
	WaitSessionChecked(ctx context.Context) error
	SignIn(ctx context.Context, email, password string) models.SignInResult
	SignOut(ctx context.Context) error
	CheckAdminStatus(ctx context.Context) bool
}

// Contexts hands out one AuthContext per browser session id.
type Contexts interface {
	Lookup(ctx context.Context, sid string) (AuthContext, bool)
	Create(ctx context.Context) (string, AuthContext, error)
	Remove(sid string)
}

// ProfileReader reads stored profiles without creating them. Only
// administrators reach it.
type ProfileReader interface {
	FindByID(ctx context.Context, id string) (*models.Profile, error)
}

// AuditLog lists the recorded authorization events for an identity.
type AuditLog interface {
	List(ctx context.Context, identityID string) ([]audit.Event, error)
}

// Handler serves the sign-in endpoints and the console chrome, and provides
// the route guards.
type Handler struct {
	contexts     Contexts
	profiles     ProfileReader
	auditLog     AuditLog
	logger       *slog.Logger
	secureCookie bool

	loginMiddleware []func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithAuditLog enables the admin audit endpoint.
func WithAuditLog(log AuditLog) Option {
	return func(h *Handler) {
		h.auditLog = log
	}
}

// WithLoginMiddleware wraps only POST /auth/login, e.g. with a rate limiter.
func WithLoginMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.loginMiddleware = append(h.loginMiddleware, mw...)
	}
}

// WithSecureCookie marks the session cookie Secure even when the request
// does not look like HTTPS.
func WithSecureCookie(secure bool) Option {
	return func(h *Handler) {
		h.secureCookie = secure
	}
}

func New(contexts Contexts, profiles ProfileReader, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{contexts: contexts, profiles: profiles, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the auth routes. /console routes sit behind RequireUser.
func (h *Handler) Register(r chi.Router) {
	r.With(h.loginMiddleware...).Post("/auth/login", h.HandleLogin)
	r.Post("/auth/logout", h.HandleLogout)
	r.Get("/auth/session", h.HandleSession)
	r.Get("/auth/admin", h.HandleAdminStatus)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireUser)
		r.Get("/console/chrome", h.HandleChrome)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireAdmin)
			r.Get("/console/admin/profiles/{identity_id}", h.HandleAdminProfile)
			r.Get("/console/admin/audit/{identity_id}", h.HandleAdminAudit)
		})
	})
}

// HandleLogin implements POST /auth/login.
//
// Input: { "email": "ada@example.com", "password": "..." }
// Output: 200 { "success": true } or 401 { "success": false, "error": "..." }
//
// A browser without a live session gets a new session id in an HttpOnly
// cookie once its sign-in succeeds.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[models.LoginRequest](w, r, h.logger)
	if !ok {
		return
	}

	sid, auth, found := h.lookup(r)
	if !found {
		var err error
		sid, auth, err = h.contexts.Create(ctx)
		if err != nil {
			h.logger.ErrorContext(ctx, "failed to create client authorization context",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "sign-in is unavailable"))
			return
		}
	}

	result := auth.SignIn(ctx, req.Email, req.Password)
	if !result.Success {
		if !found {
			h.contexts.Remove(sid)
		}
		httputil.WriteJSON(w, http.StatusUnauthorized, result)
		return
	}
	if !found {
		h.setSessionCookie(w, r, sid)
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// HandleLogout implements POST /auth/logout. Local state is cleared even
// when the identity service rejects the call, so it always answers 204.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if sid, auth, ok := h.lookup(r); ok {
		_ = auth.SignOut(r.Context()) //nolint:errcheck // logged by the auth context
		h.contexts.Remove(sid)
	}
	h.clearSessionCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSession implements GET /auth/session.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	_, auth, ok := h.lookup(r)
	if !ok {
		httputil.WriteJSON(w, http.StatusOK, models.SessionResponse{SessionChecked: true})
		return
	}
	snap := auth.Snapshot()
	httputil.WriteJSON(w, http.StatusOK, models.SessionResponse{
		User:           snap.Identity,
		Profile:        snap.Profile,
		Loading:        snap.Loading,
		SessionChecked: snap.SessionChecked,
	})
}

// HandleAdminStatus implements GET /auth/admin.
func (h *Handler) HandleAdminStatus(w http.ResponseWriter, r *http.Request) {
	_, auth, ok := h.lookup(r)
	httputil.WriteJSON(w, http.StatusOK, models.AdminStatusResponse{
		IsAdmin: ok && auth.CheckAdminStatus(r.Context()),
	})
}

// HandleChrome implements GET /console/chrome.
func (h *Handler) HandleChrome(w http.ResponseWriter, r *http.Request) {
	auth := authFrom(r.Context())
	snap := auth.Snapshot()
	httputil.WriteJSON(w, http.StatusOK, models.ChromeResponse{
		Name:      snap.Profile.DisplayName(),
		AvatarURL: snap.Profile.Avatar(),
		IsAdmin:   auth.CheckAdminStatus(r.Context()),
	})
}

// HandleAdminProfile implements GET /console/admin/profiles/{identity_id}.
// It only reads: an identity that has never signed in has no profile yet.
func (h *Handler) HandleAdminProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.profiles == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "profile lookup is not configured"))
		return
	}
	profile, err := h.profiles.FindByID(ctx, chi.URLParam(r, "identity_id"))
	switch {
	case errors.Is(err, sentinel.ErrNotFound) || (err == nil && profile == nil):
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "profile not found"))
	case err != nil:
		h.logger.ErrorContext(ctx, "failed to read profile",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
	default:
		httputil.WriteJSON(w, http.StatusOK, profile)
	}
}

// HandleAdminAudit implements GET /console/admin/audit/{identity_id}.
func (h *Handler) HandleAdminAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.auditLog == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "audit log is not configured"))
		return
	}
	events, err := h.auditLog.List(ctx, chi.URLParam(r, "identity_id"))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list audit events",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	httputil.WriteJSON(w, http.StatusOK, events)
}

// RequireUser resolves the request's AuthContext from its session cookie,
// holds the request until the persisted session has been checked, then lets
// it through only when an identity is signed in. Browsers are redirected to
// the login page; JSON clients get 401.
func (h *Handler) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		_, auth, ok := h.lookup(r)
		if !ok {
			h.denyAnonymous(w, r)
			return
		}
		if err := auth.WaitSessionChecked(ctx); err != nil {
			h.logger.WarnContext(ctx, "session check did not complete",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnavailable, "session not yet restored"))
			return
		}
		if !auth.Snapshot().SignedIn() {
			h.denyAnonymous(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(withAuth(ctx, auth)))
	})
}

// RequireAdmin answers 403 unless the signed-in identity is an
// administrator. It belongs after RequireUser.
func (h *Handler) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		auth := authFrom(ctx)
		if auth == nil || !auth.CheckAdminStatus(ctx) {
			var identityID string
			if auth != nil {
				identityID = auth.Snapshot().IdentityID()
			}
			h.logger.InfoContext(ctx, "admin route denied",
				"identity_id", identityID,
				"path", r.URL.Path,
				"request_id", requestcontext.RequestID(ctx),
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "administrator access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) denyAnonymous(w http.ResponseWriter, r *http.Request) {
	if httputil.WantsJSON(r) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "sign in required"))
		return
	}
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

// lookup returns the AuthContext named by the request's session cookie.
func (h *Handler) lookup(r *http.Request) (string, AuthContext, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return "", nil, false
	}
	auth, ok := h.contexts.Lookup(r.Context(), cookie.Value)
	if !ok {
		return "", nil, false
	}
	return cookie.Value, auth, true
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, r *http.Request, sid string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie || isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie || isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

type authKey struct{}

func withAuth(ctx context.Context, auth AuthContext) context.Context {
	return context.WithValue(ctx, authKey{}, auth)
}

// authFrom returns the AuthContext RequireUser resolved for the request.
func authFrom(ctx context.Context) AuthContext {
	auth, _ := ctx.Value(authKey{}).(AuthContext)
	return auth
}

// Registry adapts an authctx.Registry to Contexts.
func Registry(r *authctx.Registry) Contexts {
	return registryContexts{r}
}

type registryContexts struct {
	r *authctx.Registry
}

func (c registryContexts) Lookup(ctx context.Context, sid string) (AuthContext, bool) {
	auth, ok := c.r.Lookup(ctx, sid)
	if !ok {
		return nil, false
	}
	return auth, true
}

func (c registryContexts) Create(ctx context.Context) (string, AuthContext, error) {
	sid, auth, err := c.r.Create(ctx)
	if err != nil {
		return "", nil, err
	}
	return sid, auth, nil
}

func (c registryContexts) Remove(sid string) {
	c.r.Remove(sid)
}
