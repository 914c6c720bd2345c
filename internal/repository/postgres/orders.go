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

var orderColumns = []string{
	"id", "customer_id", "lines", "status", "hold_expires_at", "cancel_reason",
	"created_at", "updated_at", "paid_at", "closed_at",
}

// OrderRepository persists resale orders in books.orders.
type OrderRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewOrderRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewOrderRepository(exec pgExecutor) *OrderRepository {
	return &OrderRepository{exec: exec, builder: newBuilder()}
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *OrderRepository) WithTx(tx pgx.Tx) *OrderRepository {
	if tx == nil {
		return r
	}
	return &OrderRepository{exec: tx, builder: r.builder}
}

// Save upserts the order row.
func (r *OrderRepository) Save(ctx context.Context, order *domain.Order) error {
	snap := order.Snapshot()
	lines, err := encodeLines(snap.Lines)
	if err != nil {
		return err
	}

	stmt, args, err := r.builder.Insert(table("orders")).
		Columns(orderColumns...).
		Values(
			snap.ID,
			snap.CustomerID,
			lines,
			string(snap.Status),
			snap.HoldExpiresAt,
			snap.CancelReason,
			snap.CreatedAt,
			snap.UpdatedAt,
			nullableTime(snap.PaidAt),
			nullableTime(snap.ClosedAt),
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			cancel_reason = EXCLUDED.cancel_reason,
			updated_at = EXCLUDED.updated_at,
			paid_at = EXCLUDED.paid_at,
			closed_at = EXCLUDED.closed_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert order sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert order: %w", err)
	}
	return nil
}

// FindByID loads an order by id.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	stmt, args, err := r.builder.Select(orderColumns...).
		From(table("orders")).
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select order sql: %w", err)
	}

	order, err := scanOrder(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return order, nil
}

// FindByStatus lists orders in the given status, oldest first.
func (r *OrderRepository) FindByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error) {
	query := r.builder.Select(orderColumns...).
		From(table("orders")).
		Where(squirrel.Eq{"status": string(status)}).
		OrderBy("created_at ASC")
	return r.list(ctx, query)
}

// FindExpiredHolds returns pending orders whose hold lapsed at or before the given instant.
func (r *OrderRepository) FindExpiredHolds(ctx context.Context, before time.Time, limit int) ([]*domain.Order, error) {
	query := r.builder.Select(orderColumns...).
		From(table("orders")).
		Where(squirrel.Eq{"status": string(domain.OrderPending)}).
		Where(squirrel.LtOrEq{"hold_expires_at": before}).
		OrderBy("hold_expires_at ASC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}
	return r.list(ctx, query)
}

func (r *OrderRepository) list(ctx context.Context, query squirrel.SelectBuilder) ([]*domain.Order, error) {
	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list orders sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []*domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	return out, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		snap          domain.OrderSnapshot
		lines         []byte
		status        string
		holdExpiresAt time.Time
		createdAt     time.Time
		updatedAt     time.Time
		paidAt        sql.NullTime
		closedAt      sql.NullTime
	)
	if err := row.Scan(
		&snap.ID,
		&snap.CustomerID,
		&lines,
		&status,
		&holdExpiresAt,
		&snap.CancelReason,
		&createdAt,
		&updatedAt,
		&paidAt,
		&closedAt,
	); err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	decoded, err := decodeLines(lines)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", snap.ID, err)
	}

	snap.Lines = decoded
	snap.Status = domain.OrderStatus(status)
	snap.HoldExpiresAt = holdExpiresAt.UTC()
	snap.CreatedAt = createdAt.UTC()
	snap.UpdatedAt = updatedAt.UTC()
	snap.PaidAt = timePtr(paidAt)
	snap.ClosedAt = timePtr(closedAt)
	return domain.RestoreOrder(snap), nil
}

var _ port.OrderRepository = (*OrderRepository)(nil)
