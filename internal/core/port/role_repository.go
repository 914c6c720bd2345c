package port

import (
	"context"

	"github.com/arklim/book-buyback/internal/core/domain"
)

// RoleRepository persists roles. Finders return (nil, nil) when nothing matches.
type RoleRepository interface {
	Save(ctx context.Context, role *domain.Role) error
	FindByID(ctx context.Context, id string) (*domain.Role, error)
	FindByName(ctx context.Context, name string) (*domain.Role, error)
	FindByIDs(ctx context.Context, ids []string) ([]*domain.Role, error)
	List(ctx context.Context) ([]*domain.Role, error)
	Delete(ctx context.Context, id string) error
}

// RoleAssignmentRepository stores which roles each user holds.
type RoleAssignmentRepository interface {
	// FindRoleIDsForUser returns the ids of roles whose assignment is still active.
	FindRoleIDsForUser(ctx context.Context, userID string) ([]string, error)
	Assign(ctx context.Context, assignment domain.RoleAssignment) error
	// Remove reports whether an assignment existed.
	Remove(ctx context.Context, userID, roleID string) (bool, error)
	CountByRole(ctx context.Context, roleID string) (int, error)
}
