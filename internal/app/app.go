// Package app is the composition root shared by the server and the CLI. It
// turns a config.Server into a running authorization stack.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"adminconsole/internal/audit"
	"adminconsole/internal/auth/authctx"
	authHandler "adminconsole/internal/auth/handler"
	"adminconsole/internal/auth/identity"
	authmetrics "adminconsole/internal/auth/metrics"
	"adminconsole/internal/auth/service"
	profileStore "adminconsole/internal/auth/store/profile"
	sessionStore "adminconsole/internal/auth/store/session"
	"adminconsole/internal/platform/baas"
	"adminconsole/internal/platform/config"
	"adminconsole/internal/platform/database"
	"adminconsole/internal/platform/health"
	"adminconsole/internal/platform/metrics"
	redisclient "adminconsole/internal/platform/redis"
	httptransport "adminconsole/internal/transport/http"
	"adminconsole/migrations"
	"adminconsole/pkg/platform/middleware/request"
	"adminconsole/pkg/platform/tracer"
)

// App holds the wired components. DB and Redis are nil when the chosen
// backends do not need them.
type App struct {
	Config   config.Server
	Logger   *slog.Logger
	Registry *metrics.Registry

	Identity *identity.Client
	Profiles service.ProfileStore
	Service  *service.Service
	// Auth is the process's own authorization context, used by the CLI.
	Auth *authctx.Context
	// Clients holds one authorization context per browser session for the
	// HTTP surface.
	Clients *authctx.Registry
	Audit   *audit.Publisher

	api      *baas.Client
	sessions identity.SessionStore

	DB    *database.Pool
	Redis *redisclient.Client

	closeOnce sync.Once
	closeErr  error
}

// New validates cfg and builds every component without starting the
// authorization context. On error, anything already opened is closed.
func New(ctx context.Context, cfg config.Server, logger *slog.Logger) (_ *App, err error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: metrics.New(),
	}
	defer func() {
		if err != nil {
			a.closeBackends()
		}
	}()

	a.sessions, err = a.openSessionStore(ctx)
	if err != nil {
		return nil, err
	}

	a.api, err = baas.New(cfg.Identity.URL, cfg.Identity.APIKey, baas.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("identity client: %w", err)
	}
	a.Identity = identity.New(a.api, a.sessions,
		identity.WithLogger(logger),
		identity.WithStorageKey(a.storageKey()),
	)

	a.Profiles, err = a.openProfileStore(ctx)
	if err != nil {
		return nil, err
	}

	a.Audit = audit.NewPublisher(audit.NewInMemoryStore(), audit.DefaultBufferSize,
		audit.WithLogger(logger),
		audit.WithMetrics(a.Registry),
	)

	authMetrics := authmetrics.New(a.Registry)
	a.Service, err = service.New(a.Identity, a.Profiles, &service.Config{
		PrivilegedIDs:      cfg.Auth.PrivilegedIDs,
		GrantAdminOnSignIn: cfg.Auth.GrantAdminOnSignIn,
		AdminRetryDelay:    cfg.Auth.AdminRetryDelay,
	},
		service.WithLogger(logger),
		service.WithAuditPublisher(a.Audit),
		service.WithMetrics(authMetrics),
		service.WithTracer(tracer.NewOTel()),
	)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	a.Auth = authctx.New(a.Service,
		authctx.WithLogger(logger),
		authctx.WithMetrics(authMetrics),
	)

	a.Clients, err = authctx.NewRegistry(context.WithoutCancel(ctx), cfg.Session.MaxClients,
		func(ctx context.Context, sid string) (*authctx.Context, error) {
			return a.clientContext(ctx, sid, authMetrics)
		},
		authctx.WithRegistryLogger(logger),
		authctx.WithRegistryMetrics(authMetrics),
	)
	if err != nil {
		return nil, fmt.Errorf("client contexts: %w", err)
	}
	return a, nil
}

// storageKey is where the process's own session is persisted. Browser
// sessions are kept under this key suffixed with their session id.
func (a *App) storageKey() string {
	if a.Config.Identity.StorageKey != "" {
		return a.Config.Identity.StorageKey
	}
	return identity.StorageKey(a.Config.Identity.URL)
}

// clientContext builds and starts the authorization context for one browser
// session. It has its own identity client and persisted session; profile
// resolution and write ordering stay shared with a.Service.
func (a *App) clientContext(ctx context.Context, sid string, m *authmetrics.Metrics) (*authctx.Context, error) {
	client := identity.New(a.api, a.sessions,
		identity.WithLogger(a.Logger),
		identity.WithStorageKey(a.storageKey()+"-"+sid),
	)
	svc := a.Service.WithIdentity(client)
	if a.Config.Profiles.Backend == config.ProfileBackendREST {
		svc = svc.WithProfileStore(profileStore.NewREST(a.api, profileStore.WithTokenSource(client.AccessToken)))
	}

	c := authctx.New(svc,
		authctx.WithLogger(a.Logger.With("client", sid[:8])),
		authctx.WithMetrics(m),
	)
	if err := c.Start(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (a *App) openSessionStore(ctx context.Context) (identity.SessionStore, error) {
	switch a.Config.Session.Store {
	case config.SessionStoreFile:
		dir := a.Config.Session.Dir
		if dir == "" {
			var err error
			if dir, err = sessionStore.DefaultDir(); err != nil {
				return nil, err
			}
		}
		return sessionStore.NewFile(dir), nil
	case config.SessionStoreRedis:
		client, err := redisclient.New(ctx, a.Config.Redis, redisclient.NewPoolMetrics(a.Registry))
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.Redis = client
		return sessionStore.NewRedis(client.Client), nil
	default:
		return sessionStore.NewInMemory(), nil
	}
}

func (a *App) openProfileStore(ctx context.Context) (service.ProfileStore, error) {
	switch a.Config.Profiles.Backend {
	case config.ProfileBackendMemory:
		return profileStore.NewInMemory(), nil
	case config.ProfileBackendPostgres, config.ProfileBackendSQLite:
		pool, err := database.New(database.Config{
			URL:             a.Config.Database.URL,
			MaxOpenConns:    a.Config.Database.MaxOpenConns,
			MaxIdleConns:    a.Config.Database.MaxIdleConns,
			ConnMaxLifetime: a.Config.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("profile database: %w", err)
		}
		a.DB = pool
		if err := a.Registry.RegisterDB(pool.DB().DB, "profiles"); err != nil {
			a.Logger.Warn("database pool metrics unavailable", "error", err)
		}

		store := profileStore.NewBun(pool.DB())
		if pool.Driver() == database.DriverPostgres {
			err = pool.ApplyMigrations(ctx, migrations.FS)
		} else {
			err = store.CreateSchema(ctx)
		}
		if err != nil {
			return nil, fmt.Errorf("profile schema: %w", err)
		}
		return store, nil
	default:
		return profileStore.NewREST(a.api, profileStore.WithTokenSource(a.Identity.AccessToken)), nil
	}
}

// Start restores the persisted session and subscribes to identity changes.
func (a *App) Start(ctx context.Context) error {
	return a.Auth.Start(ctx)
}

// RegisterHealthChecks adds readiness checks for every backend in use.
func (a *App) RegisterHealthChecks(h *health.Handler) {
	h.RegisterCheck("session_checked", func(context.Context) error {
		if !a.Auth.Snapshot().SessionChecked {
			return errors.New("persisted session not yet checked")
		}
		return nil
	})
	if a.DB != nil {
		h.RegisterCheck("profile_database", a.DB.Health)
	}
	if a.Redis != nil {
		h.RegisterCheck("redis", a.Redis.Health)
	}
}

// HTTPHandler builds the console's HTTP surface over the wired components:
// health probes with a check per backend, /metrics, and the auth routes
// with sign-in rate limiting. Call it once per App.
func (a *App) HTTPHandler() (http.Handler, error) {
	healthHandler := health.New(a.Config.Environment)
	a.RegisterHealthChecks(healthHandler)

	limiter, err := request.NewRateLimiter(a.Config.LoginRateLimit, request.DefaultMaxClients, a.Logger)
	if err != nil {
		return nil, err
	}

	return httptransport.NewRouter(httptransport.Deps{
		Auth: authHandler.New(authHandler.Registry(a.Clients), a.Profiles, a.Logger,
			authHandler.WithAuditLog(a.Audit),
			authHandler.WithLoginMiddleware(limiter.Middleware),
			authHandler.WithSecureCookie(a.Config.Session.CookieSecure),
		),
		Health:             healthHandler,
		Metrics:            a.Registry.Handler(),
		RequestMetrics:     request.NewMetrics(a.Registry),
		Logger:             a.Logger,
		RequestTimeout:     a.Config.RequestTimeout,
		MaxBodyBytes:       a.Config.MaxBodyBytes,
		CORSAllowedOrigins: a.Config.CORSAllowedOrigins,
	}), nil
}

// Close stops the authorization contexts, drains background profile writes
// and audit events, then releases backend connections. It is safe to call
// more than once.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		if a.Clients != nil {
			a.Clients.Close()
		}
		if a.Auth != nil {
			a.Auth.Close()
		}
		if a.Service != nil {
			a.Service.Wait()
		}
		if a.Audit != nil {
			a.Audit.Close()
		}
		a.closeErr = a.closeBackends()
	})
	return a.closeErr
}

func (a *App) closeBackends() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
