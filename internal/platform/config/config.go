package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"adminconsole/internal/auth/models"
)

// Profile store backends.
const (
	ProfileBackendREST     = "rest"
	ProfileBackendPostgres = "postgres"
	ProfileBackendSQLite   = "sqlite"
	ProfileBackendMemory   = "memory"
)

// Session store backends.
const (
	SessionStoreMemory = "memory"
	SessionStoreFile   = "file"
	SessionStoreRedis  = "redis"
)

// Server captures process level configuration for the console.
type Server struct {
	Addr            string
	Environment     string
	LogLevel        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	// CORSAllowedOrigins enables CORS for a browser front end. Empty disables it.
	CORSAllowedOrigins []string
	// LoginRateLimit is sign-in attempts per minute per client address. Zero
	// disables the limit.
	LoginRateLimit int

	Identity IdentityConfig
	Profiles ProfilesConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Session  SessionConfig
	Auth     AuthConfig
}

// IdentityConfig points at the backend-as-a-service project.
type IdentityConfig struct {
	URL        string
	APIKey     string
	StorageKey string
}

type ProfilesConfig struct {
	Backend string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type SessionConfig struct {
	Store string
	Dir   string
	// MaxClients bounds the browser sessions kept live in memory. Older
	// ones are closed and restored from the store on their next request.
	MaxClients int
	// CookieSecure marks the session cookie Secure; set it behind TLS.
	CookieSecure bool
}

// AuthConfig is the authorization policy handed to the auth service.
type AuthConfig struct {
	PrivilegedIDs      models.PrivilegedIdentities
	GrantAdminOnSignIn bool
	AdminRetryDelay    time.Duration
}

// Default returns the configuration used when nothing is set.
func Default() Server {
	return Server{
		Addr:            ":8080",
		Environment:     "development",
		LogLevel:        "info",
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxBodyBytes:    1 << 20,
		LoginRateLimit:  30,
		Profiles:        ProfilesConfig{Backend: ProfileBackendREST},
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Session: SessionConfig{Store: SessionStoreMemory, MaxClients: 10_000},
		Auth: AuthConfig{
			GrantAdminOnSignIn: true,
			AdminRetryDelay:    time.Second,
		},
	}
}

// FromEnv builds a Server config from environment variables so main stays lean.
// Unparseable values keep their defaults.
func FromEnv() Server {
	cfg := Default()
	cfg.applyEnv(os.LookupEnv)
	return cfg
}

func (c *Server) applyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok {
			if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
				*dst = d
			}
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
			}
		}
	}

	str("CONSOLE_ADDR", &c.Addr)
	str("CONSOLE_ENV", &c.Environment)
	str("LOG_LEVEL", &c.LogLevel)
	dur("REQUEST_TIMEOUT", &c.RequestTimeout)
	dur("SHUTDOWN_TIMEOUT", &c.ShutdownTimeout)
	integer("LOGIN_RATE_LIMIT", &c.LoginRateLimit)
	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok {
		c.CORSAllowedOrigins = splitList(v)
	}

	str("IDENTITY_URL", &c.Identity.URL)
	str("IDENTITY_API_KEY", &c.Identity.APIKey)
	str("IDENTITY_STORAGE_KEY", &c.Identity.StorageKey)

	str("PROFILE_BACKEND", &c.Profiles.Backend)
	str("DATABASE_URL", &c.Database.URL)
	str("REDIS_URL", &c.Redis.URL)
	str("SESSION_STORE", &c.Session.Store)
	str("SESSION_DIR", &c.Session.Dir)
	integer("SESSION_MAX_CLIENTS", &c.Session.MaxClients)
	boolean("SESSION_COOKIE_SECURE", &c.Session.CookieSecure)

	if v, ok := lookup("PRIVILEGED_IDENTITY_IDS"); ok {
		c.Auth.PrivilegedIDs = models.ParsePrivilegedIdentities(v)
	}
	boolean("GRANT_ADMIN_ON_SIGN_IN", &c.Auth.GrantAdminOnSignIn)
	dur("ADMIN_RETRY_DELAY", &c.Auth.AdminRetryDelay)
}

// Validate reports the first configuration problem that would stop startup.
func (c Server) Validate() error {
	var errs []error
	if c.Identity.URL == "" {
		errs = append(errs, errors.New("IDENTITY_URL is required"))
	}
	if c.Identity.APIKey == "" {
		errs = append(errs, errors.New("IDENTITY_API_KEY is required"))
	}

	switch c.Profiles.Backend {
	case ProfileBackendREST, ProfileBackendMemory:
	case ProfileBackendPostgres, ProfileBackendSQLite:
		if c.Database.URL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required for profile backend %q", c.Profiles.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown profile backend %q", c.Profiles.Backend))
	}

	switch c.Session.Store {
	case SessionStoreMemory, SessionStoreFile:
	case SessionStoreRedis:
		if c.Redis.URL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis session store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown session store %q", c.Session.Store))
	}

	if c.Session.MaxClients <= 0 {
		errs = append(errs, errors.New("SESSION_MAX_CLIENTS must be positive"))
	}
	if c.LoginRateLimit < 0 {
		errs = append(errs, errors.New("LOGIN_RATE_LIMIT must not be negative"))
	}
	if c.Auth.AdminRetryDelay <= 0 {
		errs = append(errs, errors.New("ADMIN_RETRY_DELAY must be positive"))
	}
	return errors.Join(errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
