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

var purchaseRequestColumns = []string{
	"id", "customer_id", "isbns", "status", "estimate", "tracking_number", "label_url",
	"accepted_amount_cents", "payment_method", "rejection_reason",
	"created_at", "updated_at", "submitted_at", "received_at", "decided_at",
}

// PurchaseRequestRepository persists sell-side requests in books.purchase_requests.
type PurchaseRequestRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewPurchaseRequestRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewPurchaseRequestRepository(exec pgExecutor) *PurchaseRequestRepository {
	return &PurchaseRequestRepository{exec: exec, builder: newBuilder()}
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *PurchaseRequestRepository) WithTx(tx pgx.Tx) *PurchaseRequestRepository {
	if tx == nil {
		return r
	}
	return &PurchaseRequestRepository{exec: tx, builder: r.builder}
}

// Save upserts the request row.
func (r *PurchaseRequestRepository) Save(ctx context.Context, request *domain.PurchaseRequest) error {
	snap := request.Snapshot()

	var estimate any
	if snap.Estimate != nil {
		raw, err := encodeEstimate(snap.Estimate)
		if err != nil {
			return err
		}
		estimate = raw
	}

	stmt, args, err := r.builder.Insert(table("purchase_requests")).
		Columns(purchaseRequestColumns...).
		Values(
			snap.ID,
			snap.CustomerID,
			snap.ISBNs,
			string(snap.Status),
			estimate,
			snap.TrackingNumber,
			snap.LabelURL,
			int64(snap.AcceptedAmount),
			string(snap.PaymentMethod),
			snap.RejectionReason,
			snap.CreatedAt,
			snap.UpdatedAt,
			nullableTime(snap.SubmittedAt),
			nullableTime(snap.ReceivedAt),
			nullableTime(snap.DecidedAt),
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			estimate = EXCLUDED.estimate,
			tracking_number = EXCLUDED.tracking_number,
			label_url = EXCLUDED.label_url,
			accepted_amount_cents = EXCLUDED.accepted_amount_cents,
			payment_method = EXCLUDED.payment_method,
			rejection_reason = EXCLUDED.rejection_reason,
			updated_at = EXCLUDED.updated_at,
			submitted_at = EXCLUDED.submitted_at,
			received_at = EXCLUDED.received_at,
			decided_at = EXCLUDED.decided_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert purchase request sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert purchase request: %w", err)
	}
	return nil
}

// FindByID loads a purchase request by id.
func (r *PurchaseRequestRepository) FindByID(ctx context.Context, id string) (*domain.PurchaseRequest, error) {
	stmt, args, err := r.builder.Select(purchaseRequestColumns...).
		From(table("purchase_requests")).
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select purchase request sql: %w", err)
	}

	request, err := scanPurchaseRequest(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return request, nil
}

// FindByStatus lists requests in the given status, oldest first.
func (r *PurchaseRequestRepository) FindByStatus(ctx context.Context, status domain.PurchaseRequestStatus) ([]*domain.PurchaseRequest, error) {
	stmt, args, err := r.builder.Select(purchaseRequestColumns...).
		From(table("purchase_requests")).
		Where(squirrel.Eq{"status": string(status)}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list purchase requests sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query purchase requests: %w", err)
	}
	defer rows.Close()

	var out []*domain.PurchaseRequest
	for rows.Next() {
		request, err := scanPurchaseRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, request)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase requests: %w", err)
	}
	return out, nil
}

func scanPurchaseRequest(row rowScanner) (*domain.PurchaseRequest, error) {
	var (
		snap          domain.PurchaseRequestSnapshot
		status        string
		estimate      []byte
		acceptedCents int64
		paymentMethod string
		createdAt     time.Time
		updatedAt     time.Time
		submittedAt   sql.NullTime
		receivedAt    sql.NullTime
		decidedAt     sql.NullTime
	)
	if err := row.Scan(
		&snap.ID,
		&snap.CustomerID,
		&snap.ISBNs,
		&status,
		&estimate,
		&snap.TrackingNumber,
		&snap.LabelURL,
		&acceptedCents,
		&paymentMethod,
		&snap.RejectionReason,
		&createdAt,
		&updatedAt,
		&submittedAt,
		&receivedAt,
		&decidedAt,
	); err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan purchase request: %w", err)
	}

	decoded, err := decodeEstimate(estimate)
	if err != nil {
		return nil, fmt.Errorf("purchase request %s: %w", snap.ID, err)
	}

	snap.Status = domain.PurchaseRequestStatus(status)
	snap.Estimate = decoded
	snap.AcceptedAmount = domain.Money(acceptedCents)
	snap.PaymentMethod = domain.PaymentMethod(paymentMethod)
	snap.CreatedAt = createdAt.UTC()
	snap.UpdatedAt = updatedAt.UTC()
	snap.SubmittedAt = timePtr(submittedAt)
	snap.ReceivedAt = timePtr(receivedAt)
	snap.DecidedAt = timePtr(decidedAt)
	return domain.RestorePurchaseRequest(snap), nil
}

var _ port.PurchaseRequestRepository = (*PurchaseRequestRepository)(nil)
