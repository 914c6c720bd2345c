package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/arklim/book-buyback/internal/core/domain"
)

type stubTracker struct {
	status domain.ShipmentStatus
	calls  []string
	err    error
}

func (s *stubTracker) shipment() *domain.Shipment {
	now := time.Now().UTC()
	return domain.RestoreShipment(domain.ShipmentSnapshot{ID: "s-1", OrderID: "o-1", Status: s.status, CreatedAt: now, UpdatedAt: now})
}

func (s *stubTracker) GetShipment(context.Context, string) (*domain.Shipment, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.shipment(), nil
}

func (s *stubTracker) UpdateInTransit(context.Context, string) (*domain.Shipment, error) {
	s.calls = append(s.calls, "in_transit")
	if s.status != domain.ShipmentDispatched {
		return nil, &domain.InvalidTransitionError{Entity: "shipment", Operation: "update in transit", Current: string(s.status)}
	}
	s.status = domain.ShipmentInTransit
	return s.shipment(), nil
}

func (s *stubTracker) MarkDelivered(context.Context, string) (*domain.Shipment, error) {
	s.calls = append(s.calls, "delivered")
	if s.status != domain.ShipmentInTransit {
		return nil, &domain.InvalidTransitionError{Entity: "shipment", Operation: "mark delivered", Current: string(s.status)}
	}
	s.status = domain.ShipmentDelivered
	return s.shipment(), nil
}

func TestTrackingConsumerDeliveredFromDispatch(t *testing.T) {
	tracker := &stubTracker{status: domain.ShipmentDispatched}
	consumer := NewTrackingConsumer(tracker, zap.NewNop())

	msg := &sarama.ConsumerMessage{Value: []byte(`{"shipment_id":"s-1","status":"DELIVERED"}`)}
	if err := consumer.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage returned error: %v", err)
	}

	if tracker.status != domain.ShipmentDelivered {
		t.Fatalf("expected delivered, got %s", tracker.status)
	}
	if len(tracker.calls) != 2 || tracker.calls[0] != "in_transit" || tracker.calls[1] != "delivered" {
		t.Fatalf("unexpected call sequence: %v", tracker.calls)
	}
}

func TestTrackingConsumerSkipsStaleUpdate(t *testing.T) {
	tracker := &stubTracker{status: domain.ShipmentDelivered}
	consumer := NewTrackingConsumer(tracker, zap.NewNop())

	if err := consumer.HandleUpdate(context.Background(), TrackingUpdate{ShipmentID: "s-1", Status: TrackingInTransit}); err != nil {
		t.Fatalf("expected stale update to be skipped, got %v", err)
	}
	if tracker.status != domain.ShipmentDelivered {
		t.Fatalf("status must not change, got %s", tracker.status)
	}
}

func TestTrackingConsumerErrors(t *testing.T) {
	consumer := NewTrackingConsumer(&stubTracker{err: errors.New("not found")}, zap.NewNop())

	if err := consumer.HandleMessage(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil message")
	}
	if err := consumer.HandleMessage(context.Background(), &sarama.ConsumerMessage{Value: []byte("{")}); err == nil {
		t.Fatal("expected decode error")
	}
	if err := consumer.HandleUpdate(context.Background(), TrackingUpdate{Status: TrackingDelivered}); err == nil {
		t.Fatal("expected error for missing shipment id")
	}
	if err := consumer.HandleUpdate(context.Background(), TrackingUpdate{ShipmentID: "s-1", Status: TrackingDelivered}); err == nil {
		t.Fatal("expected lookup error to propagate")
	}
	if err := consumer.HandleUpdate(context.Background(), TrackingUpdate{ShipmentID: "s-1", Status: "label_created"}); err != nil {
		t.Fatalf("unknown status must be ignored, got %v", err)
	}
}
