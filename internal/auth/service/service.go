package service

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"adminconsole/internal/auth/metrics"
	"adminconsole/internal/auth/models"
	"adminconsole/pkg/platform/clock"
	platformsync "adminconsole/pkg/platform/sync"
	"adminconsole/pkg/platform/tracer"
)

const (
	defaultAdminRetryDelay = time.Second
	backgroundWriteTimeout = 10 * time.Second
	profileResolveTimeout  = 15 * time.Second
)

// Config controls the authorization policy of the service.
type Config struct {
	// PrivilegedIDs are identities that are always treated as admins and
	// whose profiles are healed back to is_admin=true on every resolution.
	PrivilegedIDs models.PrivilegedIdentities

	// GrantAdminOnSignIn upserts is_admin=true for every identity that signs
	// in successfully. Kept on by default for compatibility with existing
	// deployments; turn it off to make admin status come from the store only.
	GrantAdminOnSignIn bool

	// AdminRetryDelay is the wait before the single retry of an admin status read.
	AdminRetryDelay time.Duration
}

// DefaultConfig returns the compatibility defaults.
func DefaultConfig() Config {
	return Config{
		GrantAdminOnSignIn: true,
		AdminRetryDelay:    defaultAdminRetryDelay,
	}
}

// Service ties the identity service and the profile store together. Every
// public method returns a value or a safe fallback; failures are logged and
// counted, never surfaced as panics or unhandled errors.
type Service struct {
	identity       IdentityProvider
	profiles       ProfileStore
	cfg            Config
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         tracer.Tracer
	clock          clock.Clock

	// The fields below are shared by every Service derived with WithIdentity
	// or WithProfileStore.
	resolving *singleflight.Group
	// writes orders profile writes for one identity: creation, promotion,
	// the sign-in grant and the privileged heal.
	writes     *platformsync.ShardedMutex
	background *sync.WaitGroup
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithClock sets the clock used for timestamps and the admin retry delay.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

// New builds a Service. A nil cfg uses DefaultConfig.
func New(identity IdentityProvider, profiles ProfileStore, cfg *Config, opts ...Option) (*Service, error) {
	if identity == nil {
		return nil, errors.New("identity provider is required")
	}
	if profiles == nil {
		return nil, errors.New("profile store is required")
	}

	resolved := DefaultConfig()
	if cfg != nil {
		resolved = *cfg
	}
	if resolved.AdminRetryDelay <= 0 {
		resolved.AdminRetryDelay = defaultAdminRetryDelay
	}

	svc := &Service{
		identity:   identity,
		profiles:   profiles,
		cfg:        resolved,
		resolving:  &singleflight.Group{},
		writes:     platformsync.NewShardedMutex(),
		background: &sync.WaitGroup{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.tracer == nil {
		svc.tracer = tracer.NewNoop()
	}
	if svc.clock == nil {
		svc.clock = clock.Real{}
	}
	return svc, nil
}

// WithIdentity returns a Service that signs in, restores and signs out
// through identity. Profile resolution, write ordering and background writes
// stay shared with s, so Wait on either covers both.
func (s *Service) WithIdentity(identity IdentityProvider) *Service {
	bound := *s
	bound.identity = identity
	return &bound
}

// WithProfileStore returns a Service that reads and writes profiles through
// profiles, for stores whose access depends on the signed-in identity.
func (s *Service) WithProfileStore(profiles ProfileStore) *Service {
	bound := *s
	bound.profiles = profiles
	return &bound
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// IsPrivileged reports whether id is on the privileged allow-list.
func (s *Service) IsPrivileged(id string) bool {
	return s.cfg.PrivilegedIDs.Contains(id)
}

// Wait blocks until fire-and-forget profile writes have finished.
func (s *Service) Wait() {
	s.background.Wait()
}
