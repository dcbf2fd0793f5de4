package publisher

import (
	"context"
	"log/slog"
	"time"

	id "leaseguard/pkg/domain"
	audit "leaseguard/pkg/platform/audit"
)

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
//
// In sync mode (default) Emit blocks until the store append completes; audit
// failures then fail the surrounding operation, which is the behavior the
// review pipeline relies on. The async option exists for high-volume
// emitters that prefer losing an event over blocking a request.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger

	inbox chan audit.Event
	done  chan struct{}
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer switches Emit to buffered fire-and-forget with the given
// capacity. A full buffer drops the event with a log line.
func WithAsyncBuffer(capacity int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, capacity)
	}
}

// WithLogger sets the logger used for async-path failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		go p.drain()
	}
	return p
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		// Detached context: the emitting request may already be done.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := p.store.Append(ctx, event); err != nil {
			p.logger.Error("async audit append failed",
				"action", event.Action,
				"application_id", event.ApplicationID.String(),
				"error", err,
			)
		}
		cancel()
	}
}

// Emit records one audit event, stamping the time if the caller didn't.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if p.inbox == nil {
		return p.store.Append(ctx, event)
	}

	select {
	case p.inbox <- event:
	default:
		p.logger.Warn("audit buffer full, dropping event",
			"action", event.Action,
			"application_id", event.ApplicationID.String(),
		)
	}
	return nil
}

// List returns the audit trail for one application.
func (p *Publisher) List(ctx context.Context, appID id.ApplicationID) ([]audit.Event, error) {
	return p.store.ListByApplication(ctx, appID)
}

// Close flushes the async buffer, if any.
func (p *Publisher) Close() {
	if p.inbox == nil {
		return
	}
	close(p.inbox)
	<-p.done
}
