package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/arklim/book-buyback/internal/core/domain"
)

// Carrier scan statuses understood by the tracking consumer.
const (
	TrackingInTransit = "in_transit"
	TrackingDelivered = "delivered"
)

// ShipmentTracker is the slice of the fulfillment service the consumer drives.
type ShipmentTracker interface {
	GetShipment(ctx context.Context, id string) (*domain.Shipment, error)
	UpdateInTransit(ctx context.Context, id string) (*domain.Shipment, error)
	MarkDelivered(ctx context.Context, id string) (*domain.Shipment, error)
}

// TrackingUpdate is one carrier scan relayed by the carrier integration.
type TrackingUpdate struct {
	ShipmentID     string    `json:"shipment_id"`
	TrackingNumber string    `json:"tracking_number"`
	Status         string    `json:"status"`
	ScannedAt      time.Time `json:"scanned_at"`
}

// TrackingConsumer advances shipments from carrier scan events.
type TrackingConsumer struct {
	tracker ShipmentTracker
	logger  *zap.Logger
}

// NewTrackingConsumer constructs a consumer that applies carrier scans to shipments.
func NewTrackingConsumer(tracker ShipmentTracker, logger *zap.Logger) *TrackingConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrackingConsumer{tracker: tracker, logger: logger}
}

// HandleMessage decodes a Kafka message and applies it.
func (c *TrackingConsumer) HandleMessage(ctx context.Context, msg *sarama.ConsumerMessage) error {
	if msg == nil {
		return fmt.Errorf("message is nil")
	}

	var update TrackingUpdate
	if err := json.Unmarshal(msg.Value, &update); err != nil {
		return fmt.Errorf("decode tracking update: %w", err)
	}

	return c.HandleUpdate(ctx, update)
}

// HandleUpdate moves the shipment forward. Scans that no longer apply, such as
// redelivered or out-of-order messages, are logged and skipped.
func (c *TrackingConsumer) HandleUpdate(ctx context.Context, update TrackingUpdate) error {
	if strings.TrimSpace(update.ShipmentID) == "" {
		return fmt.Errorf("tracking update missing shipment_id")
	}

	var err error
	switch strings.ToLower(strings.TrimSpace(update.Status)) {
	case TrackingInTransit:
		_, err = c.tracker.UpdateInTransit(ctx, update.ShipmentID)
	case TrackingDelivered:
		err = c.deliver(ctx, update.ShipmentID)
	default:
		c.logger.Debug("ignore tracking status", zap.String("status", update.Status), zap.String("shipment_id", update.ShipmentID))
		return nil
	}

	if domain.IsInvalidTransition(err) {
		c.logger.Info("skip stale tracking update",
			zap.String("shipment_id", update.ShipmentID),
			zap.String("status", update.Status),
			zap.Error(err),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply tracking update for %s: %w", update.ShipmentID, err)
	}
	return nil
}

// deliver fills in the in_transit step when the carrier reports delivery straight from dispatch.
func (c *TrackingConsumer) deliver(ctx context.Context, shipmentID string) error {
	shipment, err := c.tracker.GetShipment(ctx, shipmentID)
	if err != nil {
		return err
	}
	if shipment.Status() == domain.ShipmentDispatched {
		if _, err := c.tracker.UpdateInTransit(ctx, shipmentID); err != nil {
			return err
		}
	}
	_, err = c.tracker.MarkDelivered(ctx, shipmentID)
	return err
}

var _ interface {
	HandleMessage(context.Context, *sarama.ConsumerMessage) error
	HandleUpdate(context.Context, TrackingUpdate) error
} = (*TrackingConsumer)(nil)
