package kafka

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/core/port"
	"github.com/arklim/book-buyback/internal/infra/eventbus"
)

// Forward subscribes sink to every listed event type on bus. A failed send is
// returned to the bus, which reports it alongside other handler failures.
func Forward(bus *eventbus.Bus, sink port.EventSink, logger *zap.Logger, eventTypes ...string) []*eventbus.Subscription {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(eventTypes) == 0 {
		eventTypes = domain.AllEventTypes()
	}

	handler := func(ctx context.Context, event domain.Event) error {
		if err := sink.Send(ctx, event); err != nil {
			logger.Warn("forward event to sink failed",
				zap.String("event_type", event.EventType()),
				zap.String("event_id", event.EventID()),
				zap.Error(err),
			)
			return fmt.Errorf("forward %s: %w", event.EventType(), err)
		}
		return nil
	}

	subs := make([]*eventbus.Subscription, 0, len(eventTypes))
	for _, eventType := range eventTypes {
		subs = append(subs, bus.Subscribe(eventType, handler))
	}
	return subs
}
