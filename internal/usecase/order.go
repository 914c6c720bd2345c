package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/core/port"
)

const (
	// DefaultHoldDuration is how long a pending order reserves its inventory.
	DefaultHoldDuration = 30 * time.Minute
	// DefaultExpiryBatch bounds one hold-expiry sweep.
	DefaultExpiryBatch = 100
)

// OrderService manages resale orders.
type OrderService struct {
	orders  port.OrderRepository
	catalog port.BookCatalog
	events  port.EventPublisher
	locker  port.EntityLocker
	logger  *zap.Logger
	holdFor time.Duration
	now     func() time.Time
}

// NewOrderService constructs an OrderService. A non-positive holdFor uses DefaultHoldDuration.
func NewOrderService(orders port.OrderRepository, catalog port.BookCatalog, events port.EventPublisher, locker port.EntityLocker, holdFor time.Duration, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	if holdFor <= 0 {
		holdFor = DefaultHoldDuration
	}
	return &OrderService{
		orders:  orders,
		catalog: catalog,
		events:  events,
		locker:  locker,
		logger:  logger,
		holdFor: holdFor,
		now:     systemClock,
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *OrderService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// PlaceOrder creates a pending order holding its inventory and publishes order.placed.
// Lines are priced from the catalog; caller-supplied prices and listing ids are ignored.
func (s *OrderService) PlaceOrder(ctx context.Context, customerID string, lines []domain.OrderLine) (*domain.Order, error) {
	priced, err := s.priceLines(ctx, lines)
	if err != nil {
		return nil, err
	}
	order, err := domain.NewOrder(uuid.NewString(), customerID, priced, s.holdFor)
	if err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}

	s.logger.Info("order placed",
		zap.String("order_id", order.ID()),
		zap.String("customer_id", order.CustomerID()),
		zap.String("total", order.Total().String()),
	)
	publishEvent(ctx, s.events, s.logger, domain.NewOrderEvent(domain.EventOrderPlaced, order))
	return order, nil
}

func (s *OrderService) priceLines(ctx context.Context, lines []domain.OrderLine) ([]domain.OrderLine, error) {
	priced := make([]domain.OrderLine, 0, len(lines))
	for _, l := range lines {
		isbn := domain.NormalizeISBN(l.ISBN)
		if isbn == "" {
			return nil, domain.NewValidationError("isbn", "ISBN cannot be empty")
		}
		listing, err := s.catalog.LookupISBN(ctx, isbn)
		if err != nil {
			return nil, fmt.Errorf("lookup isbn %s: %w", isbn, err)
		}
		if listing == nil {
			return nil, fmt.Errorf("isbn %s: %w", isbn, ErrBookNotFound)
		}
		priced = append(priced, domain.OrderLine{
			ListingID: listing.ISBN,
			ISBN:      isbn,
			UnitPrice: listing.BasePrice,
			Quantity:  l.Quantity,
		})
	}
	return priced, nil
}

// GetOrder loads an order by id.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.load(ctx, id)
}

// ListByStatus returns orders in the given status.
func (s *OrderService) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	orders, err := s.orders.FindByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// MarkPaid records payment and publishes order.paid.
func (s *OrderService) MarkPaid(ctx context.Context, id string) (*domain.Order, error) {
	return s.transition(ctx, id, domain.EventOrderPaid, func(o *domain.Order) error {
		return o.MarkPaid(s.now())
	})
}

// Cancel closes a pending or paid order and publishes order.cancelled.
func (s *OrderService) Cancel(ctx context.Context, id, reason string) (*domain.Order, error) {
	return s.transition(ctx, id, domain.EventOrderCancelled, func(o *domain.Order) error {
		return o.Cancel(reason)
	})
}

// MarkFulfilled closes a paid order and publishes order.fulfilled.
func (s *OrderService) MarkFulfilled(ctx context.Context, id string) (*domain.Order, error) {
	return s.transition(ctx, id, domain.EventOrderFulfilled, func(o *domain.Order) error {
		return o.MarkFulfilled()
	})
}

// ExpireHolds closes up to limit pending orders whose hold lapsed. Orders that
// were paid or cancelled in the meantime are skipped.
func (s *OrderService) ExpireHolds(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = DefaultExpiryBatch
	}
	now := s.now()

	candidates, err := s.orders.FindExpiredHolds(ctx, now, limit)
	if err != nil {
		return 0, fmt.Errorf("find expired holds: %w", err)
	}

	expired := 0
	for _, candidate := range candidates {
		_, err := s.transition(ctx, candidate.ID(), domain.EventOrderExpired, func(o *domain.Order) error {
			return o.ExpireHold(now)
		})
		switch {
		case err == nil:
			expired++
		case domain.IsInvalidTransition(err):
			s.logger.Debug("order hold no longer expirable", zap.String("order_id", candidate.ID()), zap.Error(err))
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return expired, err
		default:
			s.logger.Warn("expire order hold failed", zap.String("order_id", candidate.ID()), zap.Error(err))
		}
	}
	return expired, nil
}

// HandleShipmentDelivered fulfills the order behind a delivered shipment.
func (s *OrderService) HandleShipmentDelivered(ctx context.Context, event domain.Event) error {
	delivered, ok := event.(domain.ShipmentDeliveredEvent)
	if !ok {
		return fmt.Errorf("unexpected event %T", event)
	}
	_, err := s.MarkFulfilled(ctx, delivered.OrderID)
	return err
}

func (s *OrderService) transition(ctx context.Context, id, eventType string, apply func(*domain.Order) error) (*domain.Order, error) {
	var order *domain.Order
	err := withEntityLock(ctx, s.locker, lockKey("order", id), func() error {
		var err error
		order, err = s.load(ctx, id)
		if err != nil {
			return err
		}
		if err := apply(order); err != nil {
			return err
		}
		if err := s.orders.Save(ctx, order); err != nil {
			return fmt.Errorf("save order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order updated",
		zap.String("order_id", order.ID()),
		zap.String("status", string(order.Status())),
	)
	publishEvent(ctx, s.events, s.logger, domain.NewOrderEvent(eventType, order))
	return order, nil
}

func (s *OrderService) load(ctx context.Context, id string) (*domain.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.NewValidationError("order_id", "Order id cannot be empty")
	}
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find order: %w", err)
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}
