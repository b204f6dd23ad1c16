// Package authctx owns the console's authorization state: the current
// identity, its session and profile, and the loading gates consumers wait on.
//
// A Context is an owned value, never a package-level singleton, so tests and
// CLI invocations each get an isolated instance. State is mutated only here,
// under a mutex. Every change event bumps a generation counter; a profile
// resolution carries the generation it was dispatched for and its result is
// dropped if a newer event arrived in the meantime.
package authctx

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"adminconsole/internal/auth/metrics"
	"adminconsole/internal/auth/models"
)

// Service is the subset of the auth service the Context drives.
type Service interface {
	PersistedSession(ctx context.Context) *models.Session
	OnChange(fn func(models.ChangeEvent)) func()
	FetchProfile(ctx context.Context, identityID string) *models.Profile
	CheckAdminStatus(ctx context.Context, identity *models.Identity, cached *models.Profile) bool
	SignIn(ctx context.Context, email, password string) models.SignInResult
	SignOut(ctx context.Context) error
}

var (
	ErrAlreadyStarted = errors.New("authorization context already started")
	ErrClosed         = errors.New("authorization context closed")
)

// Context is the authorization state container.
type Context struct {
	svc     Service
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu             sync.Mutex
	state          State
	generation     uint64
	pending        bool
	loadingCleared bool
	started        bool
	closed         bool
	changed        chan struct{}

	subMu       sync.Mutex
	subscribers map[uint64]func(State)
	subOrder    []uint64
	nextSubID   uint64
	notifyMu    sync.Mutex
	unsubscribe func()

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Context)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Context) {
		c.metrics = m
	}
}

// New returns a Context in PhaseUninitialized with Loading set.
func New(svc Service, opts ...Option) *Context {
	c := &Context{
		svc:         svc,
		state:       State{Phase: PhaseUninitialized, Loading: true},
		changed:     make(chan struct{}),
		subscribers: make(map[uint64]func(State)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// Start subscribes to identity change events and restores the persisted
// session in the background. It returns immediately; use WaitSessionChecked
// or WaitResolved to block on the outcome. ctx bounds every resolution the
// Context runs.
func (c *Context) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.runCtx, c.cancel = context.WithCancel(ctx)
	c.state.Phase = PhaseRestoring
	c.pending = true
	gen := c.generation
	c.wg.Add(1)
	c.signalLocked()
	c.mu.Unlock()

	// Subscribe before restoring so no event emitted during the restore is missed.
	unsubscribe := c.svc.OnChange(c.handleEvent)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		unsubscribe()
		c.wg.Done()
		return ErrClosed
	}
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	c.notify()
	go c.restore(gen)
	return nil
}

// Close unsubscribes from change events, cancels in-flight resolutions and
// waits for them to return. The last state remains readable.
func (c *Context) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	unsubscribe, cancel := c.unsubscribe, c.cancel
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
}

func (c *Context) restore(gen uint64) {
	defer c.wg.Done()

	session := c.svc.PersistedSession(c.runCtx)

	c.mu.Lock()
	c.state.SessionChecked = true
	if gen != c.generation {
		// A change event arrived during the lookup and owns the state now.
		c.signalLocked()
		c.mu.Unlock()
		c.logger.DebugContext(c.runCtx, "startup session lookup superseded by change event")
		c.notify()
		return
	}
	if session == nil || session.IdentityID() == "" {
		c.setSignedOutLocked()
		c.mu.Unlock()
		c.notify()
		return
	}

	identity := session.User
	c.state.Session = session
	c.state.Identity = &identity
	c.state.Profile = nil
	c.state.Phase = PhaseResolving
	c.signalLocked()
	c.mu.Unlock()
	c.notify()

	c.resolve(gen, identity.ID)
}

// handleEvent runs on the identity service's dispatch goroutine. It must not
// call back into the identity service; resolutions run on their own goroutines.
func (c *Context) handleEvent(event models.ChangeEvent) {
	if c.metrics != nil {
		c.metrics.IncrementAuthorizationStateEvents(event.Type.String())
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.generation++
	gen := c.generation

	if event.ClearsState() {
		c.setSignedOutLocked()
		c.mu.Unlock()
		c.logger.Debug("authorization state cleared", "event", event.Type.String())
		c.notify()
		return
	}

	identity := event.Session.User
	if c.state.Identity == nil || c.state.Identity.ID != identity.ID {
		c.state.Profile = nil
	}
	c.state.Session = event.Session
	c.state.Identity = &identity
	if c.state.Profile == nil {
		c.state.Phase = PhaseResolving
	}
	c.dispatchLocked(gen, identity.ID)
	c.mu.Unlock()

	c.logger.Debug("identity changed, resolving profile",
		"event", event.Type.String(),
		"identity_id", identity.ID,
		"generation", gen,
	)
	c.notify()
}

// Refresh re-runs profile resolution for the current identity under a new
// generation. It is a no-op when signed out.
func (c *Context) Refresh() {
	c.mu.Lock()
	if c.closed || !c.started || c.state.Identity == nil {
		c.mu.Unlock()
		return
	}
	c.generation++
	c.dispatchLocked(c.generation, c.state.Identity.ID)
	c.mu.Unlock()
	c.notify()
}

func (c *Context) dispatchLocked(gen uint64, identityID string) {
	c.pending = true
	c.signalLocked()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.resolve(gen, identityID)
	}()
}

func (c *Context) resolve(gen uint64, identityID string) {
	profile := c.svc.FetchProfile(c.runCtx, identityID)

	c.mu.Lock()
	if gen != c.generation {
		current := c.generation
		c.clearLoadingLocked()
		c.signalLocked()
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.IncrementStaleResolutionsDropped()
		}
		c.logger.Debug("dropping stale profile resolution",
			"identity_id", identityID,
			"generation", gen,
			"current_generation", current,
		)
		c.notify()
		return
	}
	c.state.Profile = profile
	c.state.Phase = PhaseReady
	c.pending = false
	c.clearLoadingLocked()
	c.signalLocked()
	c.mu.Unlock()

	if profile == nil {
		c.logger.Warn("profile unresolved, admin features disabled", "identity_id", identityID)
	}
	c.notify()
}

func (c *Context) setSignedOutLocked() {
	c.state.Identity = nil
	c.state.Profile = nil
	c.state.Session = nil
	c.state.Phase = PhaseSignedOut
	c.pending = false
	c.clearLoadingLocked()
	c.signalLocked()
}

func (c *Context) clearLoadingLocked() {
	if c.loadingCleared {
		return
	}
	c.loadingCleared = true
	c.state.Loading = false
}

// signalLocked wakes every Wait* call.
func (c *Context) signalLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

// Snapshot returns a copy of the current state.
func (c *Context) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Phase returns the current lifecycle phase.
func (c *Context) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Phase
}

// Generation returns the number of change events handled so far.
func (c *Context) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// WaitSessionChecked blocks until the startup session lookup has returned.
func (c *Context) WaitSessionChecked(ctx context.Context) error {
	return c.waitFor(ctx, func() bool { return c.state.SessionChecked })
}

// WaitResolved blocks until the session has been checked and the profile
// resolution for the latest change, if any, has finished.
func (c *Context) WaitResolved(ctx context.Context) error {
	return c.waitFor(ctx, func() bool { return c.state.SessionChecked && !c.pending })
}

func (c *Context) waitFor(ctx context.Context, done func() bool) error {
	for {
		c.mu.Lock()
		if done() {
			c.mu.Unlock()
			return nil
		}
		changed := c.changed
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-changed:
		}
	}
}

// Subscribe registers fn to receive a snapshot after every state change.
// Notifications are delivered one at a time. The returned func unsubscribes
// and may be called more than once.
func (c *Context) Subscribe(fn func(State)) func() {
	c.subMu.Lock()
	c.nextSubID++
	id := c.nextSubID
	c.subscribers[id] = fn
	c.subOrder = append(c.subOrder, id)
	c.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subMu.Lock()
			defer c.subMu.Unlock()
			delete(c.subscribers, id)
			for i, v := range c.subOrder {
				if v == id {
					c.subOrder = append(c.subOrder[:i], c.subOrder[i+1:]...)
					break
				}
			}
		})
	}
}

// notify delivers the latest snapshot to subscribers. Callers must not hold mu.
func (c *Context) notify() {
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()

	c.subMu.Lock()
	fns := make([]func(State), 0, len(c.subOrder))
	for _, id := range c.subOrder {
		fns = append(fns, c.subscribers[id])
	}
	c.subMu.Unlock()
	if len(fns) == 0 {
		return
	}

	snap := c.Snapshot()
	for _, fn := range fns {
		fn(snap)
	}
}
