package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/core/port"
	"github.com/arklim/book-buyback/internal/infra/config"
)

const schemaVersion = "1.0"

// EventSink implements port.EventSink by writing a JSON envelope to Kafka.
type EventSink struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventSink constructs a Kafka-backed event sink.
func NewEventSink(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventSink{producer: producer, appCfg: appCfg, logger: logger}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	Key       string           `json:"key,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   json.RawMessage  `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

// keyProbe extracts the aggregate id used as the message key. The first
// non-empty field in declaration order wins.
type keyProbe struct {
	OrderID           string `json:"orderId"`
	PurchaseRequestID string `json:"purchaseRequestId"`
	RequestID         string `json:"requestId"`
	UserID            string `json:"userId"`
	AppraisalID       string `json:"appraisalId"`
	ShipmentID        string `json:"shipmentId"`
}

func (k keyProbe) key() string {
	for _, v := range []string{k.OrderID, k.PurchaseRequestID, k.RequestID, k.UserID, k.AppraisalID, k.ShipmentID} {
		if v != "" {
			return v
		}
	}
	return ""
}

// Send encodes the event and hands it to the async producer.
func (s *EventSink) Send(ctx context.Context, event domain.Event) error {
	if event == nil {
		return fmt.Errorf("event is nil")
	}

	message, err := s.message(ctx, event)
	if err != nil {
		return err
	}

	select {
	case s.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *EventSink) message(ctx context.Context, event domain.Event) (*sarama.ProducerMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event.EventType(), err)
	}

	var probe keyProbe
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, fmt.Errorf("probe %s key: %w", event.EventType(), err)
	}
	key := probe.key()

	metadata := envelopeMetadata{
		"service":     s.appCfg.Name,
		"environment": s.appCfg.Env,
	}
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		metadata["trace_id"] = sc.TraceID().String()
	}

	ts := event.OccurredAt()
	if ts.IsZero() {
		ts = time.Now()
	}

	envelope := eventEnvelope{
		EventID:   event.EventID(),
		EventType: event.EventType(),
		Key:       key,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: s.producer.TopicName(event.EventType()),
		Value: sarama.ByteEncoder(bytes),
	}
	if key != "" {
		message.Key = sarama.StringEncoder(key)
	}
	return message, nil
}

var _ port.EventSink = (*EventSink)(nil)
