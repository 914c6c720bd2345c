package usecase

import (
	"context"
	"fmt"
	"strings"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/core/port"
)

// DispatchInput hands a packed shipment to a carrier.
type DispatchInput struct {
	Carrier        string
	TrackingNumber string
}

// FulfillmentService moves paid orders out of the warehouse.
type FulfillmentService struct {
	shipments port.ShipmentRepository
	orders    port.OrderRepository
	urls      domain.TrackingURLBuilder
	events    port.EventPublisher
	locker    port.EntityLocker
	logger    *zap.Logger
}

// NewFulfillmentService constructs a FulfillmentService.
func NewFulfillmentService(shipments port.ShipmentRepository, orders port.OrderRepository, urls domain.TrackingURLBuilder, events port.EventPublisher, locker port.EntityLocker, logger *zap.Logger) *FulfillmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &FulfillmentService{
		shipments: shipments,
		orders:    orders,
		urls:      urls,
		events:    events,
		locker:    locker,
		logger:    logger,
	}
}

// CreateShipment opens a pending shipment for a paid order. Each order ships once.
func (s *FulfillmentService) CreateShipment(ctx context.Context, orderID string, address domain.Address) (*domain.Shipment, error) {
	orderID = strings.TrimSpace(orderID)

	var shipment *domain.Shipment
	err := withEntityLock(ctx, s.locker, lockKey("shipment-order", orderID), func() error {
		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("find order: %w", err)
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.Status() != domain.OrderPaid {
			return ErrOrderNotPaid
		}

		existing, err := s.shipments.FindByOrderID(ctx, orderID)
		if err != nil {
			return fmt.Errorf("find shipment by order: %w", err)
		}
		if existing != nil {
			return ErrShipmentExists
		}

		shipment, err = domain.NewShipment(uuid.NewString(), orderID, address)
		if err != nil {
			return err
		}
		if err := s.shipments.Save(ctx, shipment); err != nil {
			return fmt.Errorf("save shipment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("shipment created", zap.String("shipment_id", shipment.ID()), zap.String("order_id", orderID))
	return shipment, nil
}

// GetShipment loads a shipment by id.
func (s *FulfillmentService) GetShipment(ctx context.Context, id string) (*domain.Shipment, error) {
	return s.load(ctx, id)
}

// ListByStatus returns shipments in the given status.
func (s *FulfillmentService) ListByStatus(ctx context.Context, status domain.ShipmentStatus) ([]*domain.Shipment, error) {
	shipments, err := s.shipments.FindByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list shipments: %w", err)
	}
	return shipments, nil
}

// StartPicking moves the shipment to picking.
func (s *FulfillmentService) StartPicking(ctx context.Context, id string) (*domain.Shipment, error) {
	return s.transition(ctx, id, (*domain.Shipment).StartPicking)
}

// MarkPacked moves the shipment to packed.
func (s *FulfillmentService) MarkPacked(ctx context.Context, id string) (*domain.Shipment, error) {
	return s.transition(ctx, id, (*domain.Shipment).MarkPacked)
}

// Dispatch hands the shipment to the carrier and publishes shipment.dispatched.
func (s *FulfillmentService) Dispatch(ctx context.Context, id string, input DispatchInput) (*domain.Shipment, error) {
	carrier, err := domain.ParseCarrier(input.Carrier)
	if err != nil {
		return nil, err
	}
	shipment, err := s.transition(ctx, id, func(sh *domain.Shipment) error {
		return sh.Dispatch(carrier, input.TrackingNumber, s.urls)
	})
	if err != nil {
		return nil, err
	}
	publishEvent(ctx, s.events, s.logger, domain.NewShipmentDispatchedEvent(shipment))
	return shipment, nil
}

// UpdateInTransit records the first carrier scan.
func (s *FulfillmentService) UpdateInTransit(ctx context.Context, id string) (*domain.Shipment, error) {
	return s.transition(ctx, id, (*domain.Shipment).UpdateInTransit)
}

// MarkDelivered closes the shipment and publishes shipment.delivered.
func (s *FulfillmentService) MarkDelivered(ctx context.Context, id string) (*domain.Shipment, error) {
	shipment, err := s.transition(ctx, id, (*domain.Shipment).MarkDelivered)
	if err != nil {
		return nil, err
	}
	publishEvent(ctx, s.events, s.logger, domain.NewShipmentDeliveredEvent(shipment))
	return shipment, nil
}

func (s *FulfillmentService) transition(ctx context.Context, id string, apply func(*domain.Shipment) error) (*domain.Shipment, error) {
	var shipment *domain.Shipment
	err := withEntityLock(ctx, s.locker, lockKey("shipment", id), func() error {
		var err error
		shipment, err = s.load(ctx, id)
		if err != nil {
			return err
		}
		if err := apply(shipment); err != nil {
			return err
		}
		if err := s.shipments.Save(ctx, shipment); err != nil {
			return fmt.Errorf("save shipment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("shipment updated",
		zap.String("shipment_id", shipment.ID()),
		zap.String("status", string(shipment.Status())),
	)
	return shipment, nil
}

func (s *FulfillmentService) load(ctx context.Context, id string) (*domain.Shipment, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.NewValidationError("shipment_id", "Shipment id cannot be empty")
	}
	shipment, err := s.shipments.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find shipment: %w", err)
	}
	if shipment == nil {
		return nil, ErrShipmentNotFound
	}
	return shipment, nil
}
