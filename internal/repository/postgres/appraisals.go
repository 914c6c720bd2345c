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

var appraisalColumns = []string{"id", "purchase_request_id", "status", "books", "created_at", "updated_at", "completed_at"}

// AppraisalRepository persists appraisals in books.appraisals.
type AppraisalRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewAppraisalRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewAppraisalRepository(exec pgExecutor) *AppraisalRepository {
	return &AppraisalRepository{exec: exec, builder: newBuilder()}
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *AppraisalRepository) WithTx(tx pgx.Tx) *AppraisalRepository {
	if tx == nil {
		return r
	}
	return &AppraisalRepository{exec: tx, builder: r.builder}
}

// Save upserts the appraisal row.
func (r *AppraisalRepository) Save(ctx context.Context, appraisal *domain.Appraisal) error {
	snap := appraisal.Snapshot()
	books, err := encodeBooks(snap.Books)
	if err != nil {
		return err
	}

	stmt, args, err := r.builder.Insert(table("appraisals")).
		Columns(appraisalColumns...).
		Values(snap.ID, snap.PurchaseRequestID, string(snap.Status), books, snap.CreatedAt, snap.UpdatedAt, nullableTime(snap.CompletedAt)).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			books = EXCLUDED.books,
			updated_at = EXCLUDED.updated_at,
			completed_at = EXCLUDED.completed_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert appraisal sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert appraisal: %w", err)
	}
	return nil
}

// FindByID loads an appraisal by id.
func (r *AppraisalRepository) FindByID(ctx context.Context, id string) (*domain.Appraisal, error) {
	return r.findOne(ctx, squirrel.Eq{"id": id})
}

// FindByPurchaseRequestID loads the appraisal opened for a purchase request.
func (r *AppraisalRepository) FindByPurchaseRequestID(ctx context.Context, purchaseRequestID string) (*domain.Appraisal, error) {
	return r.findOne(ctx, squirrel.Eq{"purchase_request_id": purchaseRequestID})
}

// FindByStatus lists appraisals in the given status, oldest first.
func (r *AppraisalRepository) FindByStatus(ctx context.Context, status domain.AppraisalStatus) ([]*domain.Appraisal, error) {
	stmt, args, err := r.builder.Select(appraisalColumns...).
		From(table("appraisals")).
		Where(squirrel.Eq{"status": string(status)}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list appraisals sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query appraisals: %w", err)
	}
	defer rows.Close()

	var out []*domain.Appraisal
	for rows.Next() {
		appraisal, err := scanAppraisal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, appraisal)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appraisals: %w", err)
	}
	return out, nil
}

func (r *AppraisalRepository) findOne(ctx context.Context, where squirrel.Eq) (*domain.Appraisal, error) {
	stmt, args, err := r.builder.Select(appraisalColumns...).
		From(table("appraisals")).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select appraisal sql: %w", err)
	}

	appraisal, err := scanAppraisal(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return appraisal, nil
}

func scanAppraisal(row rowScanner) (*domain.Appraisal, error) {
	var (
		snap        domain.AppraisalSnapshot
		status      string
		books       []byte
		createdAt   time.Time
		updatedAt   time.Time
		completedAt sql.NullTime
	)
	if err := row.Scan(&snap.ID, &snap.PurchaseRequestID, &status, &books, &createdAt, &updatedAt, &completedAt); err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan appraisal: %w", err)
	}

	decoded, err := decodeBooks(books)
	if err != nil {
		return nil, fmt.Errorf("appraisal %s: %w", snap.ID, err)
	}

	snap.Status = domain.AppraisalStatus(status)
	snap.Books = decoded
	snap.CreatedAt = createdAt.UTC()
	snap.UpdatedAt = updatedAt.UTC()
	snap.CompletedAt = timePtr(completedAt)
	return domain.RestoreAppraisal(snap), nil
}

var _ port.AppraisalRepository = (*AppraisalRepository)(nil)
