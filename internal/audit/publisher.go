package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"adminconsole/pkg/platform/clock"
)

// DefaultBufferSize is the queue length used when NewPublisher gets none.
const DefaultBufferSize = 256

var (
	// ErrQueueFull is returned by Emit when the event was dropped because the
	// writer is behind.
	ErrQueueFull = errors.New("audit queue full")
	// ErrPublisherClosed is returned by Emit after Close.
	ErrPublisherClosed = errors.New("audit publisher closed")
)

// Publisher records authorization events for the admin audit trail. Emit
// queues and returns at once; a single writer appends events to the store
// in emission order. Emit never waits on the store: when the queue is full
// or the publisher is closed the event is dropped and counted.
type Publisher struct {
	store   Store
	queue   chan pending
	done    chan struct{}
	logger  *slog.Logger
	clock   clock.Clock
	dropped *prometheus.CounterVec

	mu     sync.RWMutex
	closed bool
}

type pending struct {
	ctx   context.Context
	event Event
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithClock(clk clock.Clock) Option {
	return func(p *Publisher) {
		p.clock = clk
	}
}

// WithMetrics counts dropped events on reg as console_audit_events_dropped_total.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(p *Publisher) {
		p.dropped = promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "console_audit_events_dropped_total",
			Help: "Audit events dropped before reaching the store, by reason",
		}, []string{"reason"})
	}
}

// NewPublisher starts the writer for store. bufferSize bounds how many
// events may wait for it.
func NewPublisher(store Store, bufferSize int, opts ...Option) *Publisher {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	p := &Publisher{
		store: store,
		queue: make(chan pending, bufferSize),
		done:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.clock == nil {
		p.clock = clock.Real{}
	}
	go p.write()
	return p
}

func (p *Publisher) write() {
	defer close(p.done)
	for item := range p.queue {
		if err := p.store.Append(item.ctx, item.event); err != nil {
			p.logger.ErrorContext(item.ctx, "failed to persist audit event",
				"error", err,
				"action", item.event.Action,
				"identity_id", item.event.IdentityID,
			)
		}
	}
}

// Emit stamps event with the current time unless it has one and queues it.
// The store sees ctx's values but not its cancellation.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.clock.Now()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.drop("closed")
		return ErrPublisherClosed
	}
	select {
	case p.queue <- pending{ctx: context.WithoutCancel(ctx), event: event}:
		return nil
	default:
		p.drop("queue_full")
		return ErrQueueFull
	}
}

// Close stops accepting events and waits until the queued ones are stored.
func (p *Publisher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	<-p.done
}

// List returns the stored events for identityID, oldest first.
func (p *Publisher) List(ctx context.Context, identityID string) ([]Event, error) {
	return p.store.ListByIdentity(ctx, identityID)
}

func (p *Publisher) drop(reason string) {
	if p.dropped != nil {
		p.dropped.WithLabelValues(reason).Inc()
	}
}
