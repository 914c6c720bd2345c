package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/core/port"
	"github.com/arklim/book-buyback/internal/repository"
)

var roleColumns = []string{"id", "name", "description", "permissions", "applies_to", "is_system", "created_at", "updated_at"}

// RoleRepository implements role persistence operations.
type RoleRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewRoleRepository constructs a repository backed by any executor that satisfies pgExecutor.
func NewRoleRepository(exec pgExecutor) *RoleRepository {
	repo := &RoleRepository{exec: exec, builder: newBuilder()}
	if pool, ok := exec.(*pgxpool.Pool); ok {
		repo.pool = pool
	}
	return repo
}

// WithTx returns a repository configured to execute within the provided transaction.
func (r *RoleRepository) WithTx(tx pgx.Tx) *RoleRepository {
	if tx == nil {
		return r
	}
	return &RoleRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Save inserts the role or overwrites its mutable columns.
func (r *RoleRepository) Save(ctx context.Context, role *domain.Role) error {
	snap := role.Snapshot()

	kinds := make([]string, 0, len(snap.AppliesTo))
	for _, k := range snap.AppliesTo {
		kinds = append(kinds, string(k))
	}

	stmt, args, err := r.builder.Insert(table("roles")).
		Columns(roleColumns...).
		Values(
			snap.ID,
			snap.Name,
			nullableString(snap.Description),
			permissionStrings(snap.Permissions),
			kinds,
			snap.IsSystem,
			snap.CreatedAt,
			snap.UpdatedAt,
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			permissions = EXCLUDED.permissions,
			applies_to = EXCLUDED.applies_to,
			updated_at = EXCLUDED.updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert role sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("upsert role: %w", err)
	}
	return nil
}

// FindByID retrieves a role by its ID.
func (r *RoleRepository) FindByID(ctx context.Context, id string) (*domain.Role, error) {
	return r.findOne(ctx, squirrel.Eq{"id": id})
}

// FindByName retrieves a role by its unique name.
func (r *RoleRepository) FindByName(ctx context.Context, name string) (*domain.Role, error) {
	return r.findOne(ctx, squirrel.Eq{"name": name})
}

// FindByIDs retrieves every role whose id is listed. Unknown ids are skipped.
func (r *RoleRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Role, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.findMany(ctx, squirrel.Eq{"id": ids})
}

// List retrieves all roles sorted by name.
func (r *RoleRepository) List(ctx context.Context) ([]*domain.Role, error) {
	return r.findMany(ctx, nil)
}

// Delete removes a role by ID (cascades to user_roles via FK).
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	stmt, args, err := r.builder.Delete(table("roles")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete role sql: %w", err)
	}

	res, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *RoleRepository) findOne(ctx context.Context, where squirrel.Sqlizer) (*domain.Role, error) {
	stmt, args, err := r.builder.Select(roleColumns...).
		From(table("roles")).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select role sql: %w", err)
	}

	role, err := scanRole(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return role, nil
}

func (r *RoleRepository) findMany(ctx context.Context, where squirrel.Sqlizer) ([]*domain.Role, error) {
	query := r.builder.Select(roleColumns...).
		From(table("roles")).
		OrderBy("name ASC")
	if where != nil {
		query = query.Where(where)
	}

	stmt, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list roles sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer rows.Close()

	var roles []*domain.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return roles, nil
}

func scanRole(row rowScanner) (*domain.Role, error) {
	var (
		snap        domain.RoleSnapshot
		description sql.NullString
		perms       []string
		kinds       []string
		createdAt   time.Time
		updatedAt   time.Time
	)
	if err := row.Scan(&snap.ID, &snap.Name, &description, &perms, &kinds, &snap.IsSystem, &createdAt, &updatedAt); err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("scan role: %w", err)
	}

	parsed, err := domain.ParsePermissions(perms)
	if err != nil {
		return nil, fmt.Errorf("role %s: %w: %v", snap.ID, repository.ErrCorruptRecord, err)
	}

	snap.Description = stringPtr(description)
	snap.Permissions = parsed
	snap.AppliesTo = make([]domain.PrincipalKind, 0, len(kinds))
	for _, k := range kinds {
		snap.AppliesTo = append(snap.AppliesTo, domain.PrincipalKind(k))
	}
	snap.CreatedAt = createdAt.UTC()
	snap.UpdatedAt = updatedAt.UTC()
	return domain.RestoreRole(snap), nil
}

func permissionStrings(perms []domain.Permission) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, p.String())
	}
	return out
}

var _ port.RoleRepository = (*RoleRepository)(nil)
