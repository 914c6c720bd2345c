package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/core/port"
)

var shipmentColumns = []string{
	"id", "order_id", "address", "status", "carrier", "tracking_number", "tracking_url",
	"created_at", "updated_at", "dispatched_at", "delivered_at",
}

// ShipmentRepository persists outbound shipments in books.shipments.
type ShipmentRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewShipmentRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewShipmentRepository(exec pgExecutor) *ShipmentRepository {
	return &ShipmentRepository{exec: exec, builder: newBuilder()}
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *ShipmentRepository) WithTx(tx pgx.Tx) *ShipmentRepository {
	if tx == nil {
		return r
	}
	return &ShipmentRepository{exec: tx, builder: r.builder}
}

// Save upserts the shipment row.
func (r *ShipmentRepository) Save(ctx context.Context, shipment *domain.Shipment) error {
	snap := shipment.Snapshot()
	address, err := encodeAddress(snap.Address)
	if err != nil {
		return err
	}

	stmt, args, err := r.builder.Insert(table("shipments")).
		Columns(shipmentColumns...).
		Values(
			snap.ID,
			snap.OrderID,
			address,
			string(snap.Status),
			string(snap.Carrier),
			snap.TrackingNumber,
			snap.TrackingURL,
			snap.CreatedAt,
			snap.UpdatedAt,
			nullableTime(snap.DispatchedAt),
			nullableTime(snap.DeliveredAt),
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			carrier = EXCLUDED.carrier,
			tracking_number = EXCLUDED.tracking_number,
			tracking_url = EXCLUDED.tracking_url,
			updated_at = EXCLUDED.updated_at,
			dispatched_at = EXCLUDED.dispatched_at,
			delivered_at = EXCLUDED.delivered_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert shipment sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert shipment: %w", err)
	}
	return nil
}

// FindByID loads a shipment by id.
func (r *ShipmentRepository) FindByID(ctx context.Context, id string) (*domain.Shipment, error) {
	return r.findOne(ctx, squirrel.Eq{"id": id})
}

// FindByOrderID loads the shipment created for an order.
func (r *ShipmentRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Shipment, error) {
	return r.findOne(ctx, squirrel.Eq{"order_id": orderID})
}

// FindByStatus lists shipments in the given status, oldest first.
func (r *ShipmentRepository) FindByStatus(ctx context.Context, status domain.ShipmentStatus) ([]*domain.Shipment, error) {
	stmt, args, err := r.builder.Select(shipmentColumns...).
		From(table("shipments")).
		Where(squirrel.Eq{"status": string(status)}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list shipments sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query shipments: %w", err)
	}
	defer rows.Close()

	var out []*domain.Shipment
	for rows.Next() {
		shipment, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, shipment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shipments: %w", err)
	}
	return out, nil
}

func (r *ShipmentRepository) findOne(ctx context.Context, where squirrel.Eq) (*domain.Shipment, error) {
	stmt, args, err := r.builder.Select(shipmentColumns...).
		From(table("shipments")).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select shipment sql: %w", err)
	}

	shipment, err := scanShipment(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return shipment, nil
}

func scanShipment(row rowScanner) (*domain.Shipment, error) {
	var (
		snap         domain.ShipmentSnapshot
		address      []byte
		status       string
		carrier      string
		createdAt    time.Time
		updatedAt    time.Time
		dispatchedAt sql.NullTime
		deliveredAt  sql.NullTime
	)
	if err := row.Scan(
		&snap.ID,
		&snap.OrderID,
		&address,
		&status,
		&carrier,
		&snap.TrackingNumber,
		&snap.TrackingURL,
		&createdAt,
		&updatedAt,
		&dispatchedAt,
		&deliveredAt,
	); err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan shipment: %w", err)
	}

	decoded, err := decodeAddress(address)
	if err != nil {
		return nil, fmt.Errorf("shipment %s: %w", snap.ID, err)
	}

	snap.Address = decoded
	snap.Status = domain.ShipmentStatus(status)
	snap.Carrier = domain.Carrier(carrier)
	snap.CreatedAt = createdAt.UTC()
	snap.UpdatedAt = updatedAt.UTC()
	snap.DispatchedAt = timePtr(dispatchedAt)
	snap.DeliveredAt = timePtr(deliveredAt)
	return domain.RestoreShipment(snap), nil
}

var _ port.ShipmentRepository = (*ShipmentRepository)(nil)
