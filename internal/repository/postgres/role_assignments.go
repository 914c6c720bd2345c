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

// RoleAssignmentRepository stores user to role grants in books.user_roles.
type RoleAssignmentRepository struct {
	exec    pgExecutor
	builder squirrel.StatementBuilderType
	now     func() time.Time
}

// NewRoleAssignmentRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewRoleAssignmentRepository(exec pgExecutor) *RoleAssignmentRepository {
	return &RoleAssignmentRepository{
		exec:    exec,
		builder: newBuilder(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithTx returns a repository instance that executes statements within the supplied transaction.
func (r *RoleAssignmentRepository) WithTx(tx pgx.Tx) *RoleAssignmentRepository {
	if tx == nil {
		return r
	}
	return &RoleAssignmentRepository{exec: tx, builder: r.builder, now: r.now}
}

// FindRoleIDsForUser returns role ids whose assignment has not expired.
func (r *RoleAssignmentRepository) FindRoleIDsForUser(ctx context.Context, userID string) ([]string, error) {
	stmt, args, err := r.builder.Select("role_id").
		From(table("user_roles")).
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.Or{
			squirrel.Eq{"expires_at": nil},
			squirrel.Gt{"expires_at": r.now()},
		}).
		OrderBy("assigned_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user roles sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query user roles: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user role: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user roles: %w", err)
	}
	return ids, nil
}

// Assign grants the role, replacing any earlier grant of the same role.
func (r *RoleAssignmentRepository) Assign(ctx context.Context, a domain.RoleAssignment) error {
	stmt, args, err := r.builder.Insert(table("user_roles")).
		Columns("user_id", "role_id", "assigned_by", "assigned_at", "expires_at", "scope").
		Values(a.UserID, a.RoleID, a.AssignedBy, a.AssignedAt, nullableTime(a.ExpiresAt), nullableString(a.Scope)).
		Suffix(`ON CONFLICT (user_id, role_id) DO UPDATE SET
			assigned_by = EXCLUDED.assigned_by,
			assigned_at = EXCLUDED.assigned_at,
			expires_at = EXCLUDED.expires_at,
			scope = EXCLUDED.scope`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert user role sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert user role: %w", err)
	}
	return nil
}

// Remove deletes the grant and reports whether one existed.
func (r *RoleAssignmentRepository) Remove(ctx context.Context, userID, roleID string) (bool, error) {
	stmt, args, err := r.builder.Delete(table("user_roles")).
		Where(squirrel.Eq{"user_id": userID, "role_id": roleID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build delete user role sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return false, fmt.Errorf("delete user role: %w", err)
	}
	return res.RowsAffected() > 0, nil
}

// CountByRole counts every grant of the role, expired ones included.
func (r *RoleAssignmentRepository) CountByRole(ctx context.Context, roleID string) (int, error) {
	stmt, args, err := r.builder.Select("COUNT(*)").
		From(table("user_roles")).
		Where(squirrel.Eq{"role_id": roleID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count user roles sql: %w", err)
	}

	var count sql.NullInt64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count user roles: %w", err)
	}
	return int(count.Int64), nil
}

var _ port.RoleAssignmentRepository = (*RoleAssignmentRepository)(nil)
