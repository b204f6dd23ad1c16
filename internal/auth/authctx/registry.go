package authctx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"adminconsole/internal/auth/metrics"
	platformsync "adminconsole/pkg/platform/sync"
)

// DefaultMaxClients bounds how many browser sessions keep a live Context.
const DefaultMaxClients = 10_000

// BuildFunc returns a started Context whose session is persisted under a key
// derived from sid. ctx bounds the Context's background work.
type BuildFunc func(ctx context.Context, sid string) (*Context, error)

// Registry keeps one Context per browser session id, so every HTTP client
// has its own authorization state. Contexts are held in an LRU; an evicted
// or removed Context is closed, and its persisted session stays in the
// session store so a later Lookup restores it.
type Registry struct {
	base    context.Context
	build   BuildFunc
	logger  *slog.Logger
	metrics *metrics.Metrics

	locks    *platformsync.ShardedMutex
	contexts *lru.Cache[string, *Context]
	closing  sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

type RegistryOption func(*Registry)

func WithRegistryLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		r.logger = logger
	}
}

func WithRegistryMetrics(m *metrics.Metrics) RegistryOption {
	return func(r *Registry) {
		r.metrics = m
	}
}

// NewRegistry holds at most maxClients Contexts built with build. Contexts
// run under ctx until they are closed.
func NewRegistry(ctx context.Context, maxClients int, build BuildFunc, opts ...RegistryOption) (*Registry, error) {
	if build == nil {
		return nil, errors.New("context builder is required")
	}
	if maxClients <= 0 {
		maxClients = DefaultMaxClients
	}
	r := &Registry{
		base:  ctx,
		build: build,
		locks: platformsync.NewShardedMutex(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	cache, err := lru.NewWithEvict(maxClients, r.evicted)
	if err != nil {
		return nil, fmt.Errorf("client context cache: %w", err)
	}
	r.contexts = cache
	return r, nil
}

// evicted runs after the cache lock is released.
func (r *Registry) evicted(_ string, c *Context) {
	r.closing.Add(1)
	go func() {
		defer r.closing.Done()
		c.Close()
	}()
	r.recordSize()
}

// Create builds a Context under a new session id.
func (r *Registry) Create(ctx context.Context) (string, *Context, error) {
	if r.isClosed() {
		return "", nil, ErrClosed
	}
	sid := uuid.NewString()
	c, err := r.build(r.base, sid)
	if err != nil {
		return "", nil, err
	}
	r.contexts.Add(sid, c)
	if r.isClosed() {
		r.contexts.Remove(sid)
		return "", nil, ErrClosed
	}
	r.recordSize()
	r.logger.DebugContext(ctx, "client authorization context created", "clients", r.contexts.Len())
	return sid, c, nil
}

// Lookup returns the Context for sid. An unknown sid is restored from the
// session store; it is kept only when the restored session is signed in.
// Ids that are not session ids issued by Create are rejected outright.
func (r *Registry) Lookup(ctx context.Context, sid string) (*Context, bool) {
	if !validSessionID(sid) || r.isClosed() {
		return nil, false
	}
	if c, ok := r.contexts.Get(sid); ok {
		return c, true
	}

	var (
		found *Context
		ok    bool
	)
	r.locks.With(sid, func() {
		if found, ok = r.contexts.Get(sid); ok {
			return
		}
		c, err := r.build(r.base, sid)
		if err != nil {
			r.logger.WarnContext(ctx, "failed to restore client authorization context", "error", err)
			return
		}
		if err := c.WaitSessionChecked(ctx); err != nil || !c.Snapshot().SignedIn() {
			c.Close()
			return
		}
		r.contexts.Add(sid, c)
		if r.isClosed() {
			r.contexts.Remove(sid)
			return
		}
		r.recordSize()
		found, ok = c, true
	})
	return found, ok
}

// Remove closes and forgets the Context for sid.
func (r *Registry) Remove(sid string) {
	r.contexts.Remove(sid)
}

// Len returns the number of live Contexts.
func (r *Registry) Len() int {
	return r.contexts.Len()
}

// WaitResolved waits until every live Context has settled.
func (r *Registry) WaitResolved(ctx context.Context) error {
	for _, c := range r.contexts.Values() {
		if err := c.WaitResolved(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every Context and waits for them to stop.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.contexts.Purge()
	r.closing.Wait()
}

// validSessionID accepts only the canonical form Create issues, so a cookie
// value can never shape a storage key.
func validSessionID(sid string) bool {
	id, err := uuid.Parse(sid)
	return err == nil && id.String() == sid
}

func (r *Registry) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Registry) recordSize() {
	if r.metrics != nil {
		r.metrics.SetClientContexts(r.contexts.Len())
	}
}
