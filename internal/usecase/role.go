package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/core/port"
)

// CreateRoleInput captures the payload for creating a role.
type CreateRoleInput struct {
	Name        string
	Description *string
	Permissions []string
	AppliesTo   []string
}

// UpdateRoleInput carries optional changes; nil fields are left untouched.
// A description pointing at an empty string clears it.
type UpdateRoleInput struct {
	Name        *string
	Description *string
	Permissions *[]string
}

// AssignRoleInput grants a role to a user.
type AssignRoleInput struct {
	UserID     string
	UserKind   domain.PrincipalKind
	RoleID     string
	AssignedBy string
	ExpiresAt  *time.Time
	Scope      *string
}

// RemoveRoleInput revokes a role from a user.
type RemoveRoleInput struct {
	UserID    string
	RoleID    string
	RemovedBy string
	Scope     *string
}

// RoleService manages roles and their assignment to users.
type RoleService struct {
	roles       port.RoleRepository
	assignments port.RoleAssignmentRepository
	events      port.EventPublisher
	locker      port.EntityLocker
	logger      *zap.Logger
	now         func() time.Time
}

// NewRoleService constructs a RoleService.
func NewRoleService(roles port.RoleRepository, assignments port.RoleAssignmentRepository, events port.EventPublisher, locker port.EntityLocker, logger *zap.Logger) *RoleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &RoleService{
		roles:       roles,
		assignments: assignments,
		events:      events,
		locker:      locker,
		logger:      logger,
		now:         systemClock,
	}
}

// WithClock overrides the internal clock for deterministic tests.
func (s *RoleService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// ListRoles returns all roles.
func (s *RoleService) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	return roles, nil
}

// GetRole loads a role by id.
func (s *RoleService) GetRole(ctx context.Context, roleID string) (*domain.Role, error) {
	return s.loadRole(ctx, roleID)
}

// CreateRole provisions a new editable role.
func (s *RoleService) CreateRole(ctx context.Context, input CreateRoleInput) (*domain.Role, error) {
	perms, err := domain.ParsePermissions(input.Permissions)
	if err != nil {
		return nil, err
	}

	kinds := make([]domain.PrincipalKind, 0, len(input.AppliesTo))
	for _, k := range input.AppliesTo {
		kinds = append(kinds, domain.PrincipalKind(k))
	}

	role, err := domain.NewRole(domain.RoleProps{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Description: input.Description,
		Permissions: perms,
		AppliesTo:   kinds,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return nil, err
	}

	err = withEntityLock(ctx, s.locker, lockKey("role-name", role.Name()), func() error {
		existing, err := s.roles.FindByName(ctx, role.Name())
		if err != nil {
			return fmt.Errorf("lookup role by name: %w", err)
		}
		if existing != nil {
			return ErrRoleExists
		}
		if err := s.roles.Save(ctx, role); err != nil {
			return fmt.Errorf("save role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("role created", zap.String("role_id", role.ID()), zap.String("name", role.Name()))
	return role, nil
}

// UpdateRole applies the non-nil fields of input. System roles reject every change.
func (s *RoleService) UpdateRole(ctx context.Context, roleID string, input UpdateRoleInput) (*domain.Role, error) {
	var perms []domain.Permission
	if input.Permissions != nil {
		parsed, err := domain.ParsePermissions(*input.Permissions)
		if err != nil {
			return nil, err
		}
		perms = parsed
	}

	update := func() (*domain.Role, error) {
		return s.mutateRole(ctx, roleID, func(role *domain.Role) error {
			if input.Name != nil {
				if err := role.UpdateName(*input.Name); err != nil {
					return err
				}
			}
			if input.Description != nil {
				if err := role.UpdateDescription(input.Description); err != nil {
					return err
				}
			}
			if input.Permissions != nil {
				if err := role.UpdatePermissions(perms); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if input.Name == nil {
		return update()
	}

	name := strings.TrimSpace(*input.Name)
	var role *domain.Role
	err := withEntityLock(ctx, s.locker, lockKey("role-name", name), func() error {
		existing, err := s.roles.FindByName(ctx, name)
		if err != nil {
			return fmt.Errorf("lookup role by name: %w", err)
		}
		if existing != nil && existing.ID() != strings.TrimSpace(roleID) {
			return ErrRoleExists
		}
		role, err = update()
		return err
	})
	if err != nil {
		return nil, err
	}
	return role, nil
}

// AddPermission grants permission to the role.
func (s *RoleService) AddPermission(ctx context.Context, roleID, permission string) (*domain.Role, error) {
	p, err := domain.ParsePermission(permission)
	if err != nil {
		return nil, err
	}
	return s.mutateRole(ctx, roleID, func(role *domain.Role) error {
		return role.AddPermission(p)
	})
}

// RemovePermission revokes exactly permission from the role.
func (s *RoleService) RemovePermission(ctx context.Context, roleID, permission string) (*domain.Role, error) {
	p, err := domain.ParsePermission(permission)
	if err != nil {
		return nil, err
	}
	return s.mutateRole(ctx, roleID, func(role *domain.Role) error {
		return role.RemovePermission(p)
	})
}

// DeleteRole removes an unassigned, non-system role.
func (s *RoleService) DeleteRole(ctx context.Context, roleID string) error {
	return withEntityLock(ctx, s.locker, lockKey("role", strings.TrimSpace(roleID)), func() error {
		role, err := s.loadRole(ctx, roleID)
		if err != nil {
			return err
		}
		if err := role.EnsureDeletable(); err != nil {
			return err
		}

		count, err := s.assignments.CountByRole(ctx, role.ID())
		if err != nil {
			return fmt.Errorf("count role assignments: %w", err)
		}
		if count > 0 {
			return ErrRoleInUse
		}

		if err := s.roles.Delete(ctx, role.ID()); err != nil {
			return fmt.Errorf("delete role: %w", err)
		}
		s.logger.Info("role deleted", zap.String("role_id", role.ID()))
		return nil
	})
}

// AssignRole grants a role to a user and publishes UserRoleAssigned.
func (s *RoleService) AssignRole(ctx context.Context, input AssignRoleInput) (domain.RoleAssignment, error) {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return domain.RoleAssignment{}, domain.NewValidationError("user_id", "User id cannot be empty")
	}
	assignedBy := strings.TrimSpace(input.AssignedBy)
	if assignedBy == "" {
		return domain.RoleAssignment{}, domain.NewValidationError("assigned_by", "Assigning user cannot be empty")
	}

	now := s.now()
	if input.ExpiresAt != nil && !input.ExpiresAt.After(now) {
		return domain.RoleAssignment{}, domain.NewValidationError("expires_at", "Assignment expiry must be in the future")
	}

	var (
		role       *domain.Role
		assignment domain.RoleAssignment
	)
	// The role lock serializes with DeleteRole's in-use check.
	err := withEntityLock(ctx, s.locker, lockKey("user-roles", userID), func() error {
		return withEntityLock(ctx, s.locker, lockKey("role", strings.TrimSpace(input.RoleID)), func() error {
			var err error
			role, err = s.loadRole(ctx, input.RoleID)
			if err != nil {
				return err
			}
			if input.UserKind != "" && !role.AppliesToKind(input.UserKind) {
				return ErrRoleNotApplicable
			}

			assignment = domain.RoleAssignment{
				UserID:     userID,
				RoleID:     role.ID(),
				AssignedBy: assignedBy,
				AssignedAt: now,
				ExpiresAt:  input.ExpiresAt,
				Scope:      input.Scope,
			}
			if err := s.assignments.Assign(ctx, assignment); err != nil {
				return fmt.Errorf("assign role: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return domain.RoleAssignment{}, err
	}

	s.logger.Info("role assigned",
		zap.String("user_id", userID),
		zap.String("role_id", role.ID()),
		zap.String("assigned_by", assignedBy),
	)
	publishEvent(ctx, s.events, s.logger, domain.NewUserRoleAssignedEvent(assignment, role))
	return assignment, nil
}

// RemoveRole revokes a role from a user and publishes UserRoleRemoved.
func (s *RoleService) RemoveRole(ctx context.Context, input RemoveRoleInput) error {
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return domain.NewValidationError("user_id", "User id cannot be empty")
	}

	var role *domain.Role
	err := withEntityLock(ctx, s.locker, lockKey("user-roles", userID), func() error {
		var err error
		role, err = s.loadRole(ctx, input.RoleID)
		if err != nil {
			return err
		}

		removed, err := s.assignments.Remove(ctx, userID, role.ID())
		if err != nil {
			return fmt.Errorf("remove role: %w", err)
		}
		if !removed {
			return ErrAssignmentNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("role removed", zap.String("user_id", userID), zap.String("role_id", role.ID()))
	publishEvent(ctx, s.events, s.logger, domain.NewUserRoleRemovedEvent(userID, strings.TrimSpace(input.RemovedBy), role, input.Scope))
	return nil
}

// SeedSystemRoles creates every missing built-in role. Existing roles with the
// same name are left as they are.
func (s *RoleService) SeedSystemRoles(ctx context.Context, definitions []SystemRoleDefinition) (int, error) {
	created := 0
	for _, def := range definitions {
		existing, err := s.roles.FindByName(ctx, def.Name)
		if err != nil {
			return created, fmt.Errorf("lookup system role %s: %w", def.Name, err)
		}
		if existing != nil {
			continue
		}

		desc := def.Description
		role, err := domain.NewSystemRole(domain.RoleProps{
			ID:          uuid.NewString(),
			Name:        def.Name,
			Description: &desc,
			Permissions: def.Permissions,
			AppliesTo:   def.AppliesTo,
			CreatedAt:   s.now(),
		})
		if err != nil {
			return created, fmt.Errorf("build system role %s: %w", def.Name, err)
		}
		if err := s.roles.Save(ctx, role); err != nil {
			return created, fmt.Errorf("save system role %s: %w", def.Name, err)
		}
		created++
	}

	if created > 0 {
		s.logger.Info("system roles seeded", zap.Int("created", created))
	}
	return created, nil
}

func (s *RoleService) mutateRole(ctx context.Context, roleID string, mutate func(*domain.Role) error) (*domain.Role, error) {
	var role *domain.Role
	err := withEntityLock(ctx, s.locker, lockKey("role", strings.TrimSpace(roleID)), func() error {
		var err error
		role, err = s.loadRole(ctx, roleID)
		if err != nil {
			return err
		}
		if err := mutate(role); err != nil {
			return err
		}
		if err := s.roles.Save(ctx, role); err != nil {
			return fmt.Errorf("save role: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return role, nil
}

func (s *RoleService) loadRole(ctx context.Context, roleID string) (*domain.Role, error) {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return nil, domain.NewValidationError("role_id", "Role id cannot be empty")
	}
	role, err := s.roles.FindByID(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("find role: %w", err)
	}
	if role == nil {
		return nil, ErrRoleNotFound
	}
	return role, nil
}
