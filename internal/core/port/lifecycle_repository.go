package port

import (
	"context"
	"time"

	"github.com/arklim/book-buyback/internal/core/domain"
)

// AppraisalRepository persists appraisals. Finders return (nil, nil) when nothing matches.
type AppraisalRepository interface {
	Save(ctx context.Context, appraisal *domain.Appraisal) error
	FindByID(ctx context.Context, id string) (*domain.Appraisal, error)
	FindByPurchaseRequestID(ctx context.Context, purchaseRequestID string) (*domain.Appraisal, error)
	FindByStatus(ctx context.Context, status domain.AppraisalStatus) ([]*domain.Appraisal, error)
}

// ShipmentRepository persists shipments.
type ShipmentRepository interface {
	Save(ctx context.Context, shipment *domain.Shipment) error
	FindByID(ctx context.Context, id string) (*domain.Shipment, error)
	FindByOrderID(ctx context.Context, orderID string) (*domain.Shipment, error)
	FindByStatus(ctx context.Context, status domain.ShipmentStatus) ([]*domain.Shipment, error)
}

// PurchaseRequestRepository persists purchase requests.
type PurchaseRequestRepository interface {
	Save(ctx context.Context, request *domain.PurchaseRequest) error
	FindByID(ctx context.Context, id string) (*domain.PurchaseRequest, error)
	FindByStatus(ctx context.Context, status domain.PurchaseRequestStatus) ([]*domain.PurchaseRequest, error)
}

// OrderRepository persists orders.
type OrderRepository interface {
	Save(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	FindByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error)
	// FindExpiredHolds returns pending orders whose hold lapsed before the given instant.
	FindExpiredHolds(ctx context.Context, before time.Time, limit int) ([]*domain.Order, error)
}
