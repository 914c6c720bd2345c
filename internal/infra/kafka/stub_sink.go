package kafka

import (
	"context"

	"go.uber.org/zap"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/core/port"
)

// StubSink logs events instead of sending them to Kafka. Useful for development environments.
type StubSink struct {
	logger *zap.Logger
}

// NewStubSink constructs a development-friendly event sink.
func NewStubSink(logger *zap.Logger) *StubSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StubSink{logger: logger}
}

func (s *StubSink) Send(_ context.Context, event domain.Event) error {
	if event == nil {
		return nil
	}
	s.logger.Info("Stub event published",
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID()),
		zap.Time("timestamp", event.OccurredAt().UTC()),
		zap.Any("payload", event),
	)
	return nil
}

var _ port.EventSink = (*StubSink)(nil)
