// Package eventbus implements the process-wide synchronous domain event bus.
//
// A Bus is constructed explicitly and passed to the services that publish and
// the components that subscribe; there is no package-level instance.
//
// Failure policy: Publish invokes every handler registered for the event type,
// in registration order, even when earlier handlers fail or panic. Failures are
// logged, counted and returned together as a *PublishError. The bus never rolls
// back anything: by the time an event is published the transition that caused
// it has been persisted, so callers report the failure and carry on.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/core/port"
)

// DefaultMaxDepth bounds nested publishes issued from inside handlers.
const DefaultMaxDepth = 8

// ErrPublishDepthExceeded is returned when handlers publish recursively past the depth bound.
var ErrPublishDepthExceeded = errors.New("eventbus: publish depth exceeded")

// Handler reacts to one published event.
type Handler func(ctx context.Context, event domain.Event) error

type subscriber struct {
	id      uint64
	handler Handler
}

// Bus is a synchronous publish/subscribe dispatcher keyed by event type.
type Bus struct {
	mu       sync.RWMutex
	subs     map[string][]subscriber
	nextID   uint64
	logger   *zap.Logger
	metrics  *Metrics
	maxDepth int
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used to report handler failures.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Bus) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithMetrics records publish and failure counts.
func WithMetrics(m *Metrics) Option {
	return func(b *Bus) { b.metrics = m }
}

// WithMaxDepth overrides DefaultMaxDepth. Values below 1 are ignored.
func WithMaxDepth(depth int) Option {
	return func(b *Bus) {
		if depth > 0 {
			b.maxDepth = depth
		}
	}
}

// New constructs an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:     make(map[string][]subscriber),
		logger:   zap.NewNop(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscription identifies one handler registration.
type Subscription struct {
	bus       *Bus
	eventType string
	id        uint64
	once      sync.Once
}

// EventType is the type the handler was registered for.
func (s *Subscription) EventType() string { return s.eventType }

// Unsubscribe removes the registration. Calling it more than once is a no-op.
// A publish already in flight still invokes the handler.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.bus == nil {
		return
	}
	s.once.Do(func() { s.bus.remove(s.eventType, s.id) })
}

// Subscribe registers handler for every future event of eventType. Past events
// are not replayed. The same handler may be registered multiple times and is
// then invoked once per registration.
func (b *Bus) Subscribe(eventType string, handler Handler) *Subscription {
	if handler == nil {
		panic("eventbus: nil handler")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[eventType] = append(b.subs[eventType], subscriber{id: id, handler: handler})

	return &Subscription{bus: b, eventType: eventType, id: id}
}

// Subscribers returns how many registrations exist for eventType.
func (b *Bus) Subscribers(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[eventType])
}

func (b *Bus) remove(eventType string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.subs[eventType]
	kept := make([]subscriber, 0, len(current))
	for _, s := range current {
		if s.id != id {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		delete(b.subs, eventType)
		return
	}
	b.subs[eventType] = kept
}

// Publish synchronously invokes the handlers registered for event.EventType()
// at the moment of the call. Registrations made while handlers run apply to
// later publishes only.
func (b *Bus) Publish(ctx context.Context, event domain.Event) error {
	if event == nil {
		return fmt.Errorf("eventbus: nil event")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	eventType := event.EventType()
	depth := depthFrom(ctx)
	if depth >= b.maxDepth {
		b.logger.Error("event publish depth exceeded",
			zap.String("event_type", eventType),
			zap.String("event_id", event.EventID()),
			zap.Int("depth", depth),
		)
		return fmt.Errorf("%w: %s at depth %d", ErrPublishDepthExceeded, eventType, depth)
	}

	b.mu.RLock()
	handlers := append([]subscriber(nil), b.subs[eventType]...)
	b.mu.RUnlock()

	b.metrics.published(eventType)

	ctx = withDepth(ctx, depth+1)

	var failures []*HandlerError
	for i, s := range handlers {
		if herr := b.invoke(ctx, i, s, event); herr != nil {
			failures = append(failures, herr)
			b.metrics.failed(eventType)
			b.logger.Error("event handler failed",
				zap.String("event_type", eventType),
				zap.String("event_id", event.EventID()),
				zap.Int("handler_index", herr.Index),
				zap.Bool("panic", herr.Panic),
				zap.Error(herr.Err),
			)
		}
	}

	if len(failures) == 0 {
		return nil
	}
	return &PublishError{
		EventType: eventType,
		EventID:   event.EventID(),
		Handlers:  len(handlers),
		Failures:  failures,
	}
}

func (b *Bus) invoke(ctx context.Context, index int, s subscriber, event domain.Event) (herr *HandlerError) {
	defer func() {
		if r := recover(); r != nil {
			herr = &HandlerError{Index: index, SubscriptionID: s.id, Err: fmt.Errorf("panic: %v", r), Panic: true}
		}
	}()

	if err := s.handler(ctx, event); err != nil {
		return &HandlerError{Index: index, SubscriptionID: s.id, Err: err}
	}
	return nil
}

type depthKey struct{}

func depthFrom(ctx context.Context) int {
	if d, ok := ctx.Value(depthKey{}).(int); ok {
		return d
	}
	return 0
}

func withDepth(ctx context.Context, depth int) context.Context {
	return context.WithValue(ctx, depthKey{}, depth)
}

var _ port.EventPublisher = (*Bus)(nil)
