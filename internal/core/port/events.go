package port

import (
	"context"

	"github.com/arklim/book-buyback/internal/core/domain"
)

// EventPublisher fans a domain event out to in-process subscribers.
// Implementations return an error describing subscriber failures; the event is
// still considered published.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// EventSink forwards events beyond the process, e.g. to a message broker.
type EventSink interface {
	Send(ctx context.Context, event domain.Event) error
}
