package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/arklim/book-buyback/internal/core/domain"
	"github.com/arklim/book-buyback/internal/core/port"
)

// AuthorizationMode selects how multiple required permissions combine.
type AuthorizationMode string

const (
	// AuthorizeAll requires every permission.
	AuthorizeAll AuthorizationMode = "all"
	// AuthorizeAny requires at least one permission.
	AuthorizeAny AuthorizationMode = "any"
)

// ParseAuthorizationMode accepts "all" or "any"; empty defaults to all.
func ParseAuthorizationMode(value string) (AuthorizationMode, error) {
	switch mode := AuthorizationMode(strings.ToLower(strings.TrimSpace(value))); mode {
	case "":
		return AuthorizeAll, nil
	case AuthorizeAll, AuthorizeAny:
		return mode, nil
	}
	return "", fmt.Errorf("unknown authorization mode %q", value)
}

// AuthorizationService answers permission questions for principals. Every call
// reads the current role assignments; nothing is cached.
type AuthorizationService struct {
	roles       port.RoleRepository
	assignments port.RoleAssignmentRepository
	logger      *zap.Logger
}

// NewAuthorizationService constructs an AuthorizationService.
func NewAuthorizationService(roles port.RoleRepository, assignments port.RoleAssignmentRepository, logger *zap.Logger) *AuthorizationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthorizationService{
		roles:       roles,
		assignments: assignments,
		logger:      logger,
	}
}

// UserHasPermission reports whether any role held by principalID grants required.
// A principal without roles simply lacks the permission.
func (s *AuthorizationService) UserHasPermission(ctx context.Context, principalID string, required domain.Permission) (bool, error) {
	return s.Authorize(ctx, principalID, AuthorizeAll, required)
}

// Authorize evaluates required against the principal's roles. In AuthorizeAll
// mode it fails closed on the first missing permission; in AuthorizeAny mode it
// fails only when none match. An empty required list is granted.
func (s *AuthorizationService) Authorize(ctx context.Context, principalID string, mode AuthorizationMode, required ...domain.Permission) (bool, error) {
	if len(required) == 0 {
		return true, nil
	}

	roles, err := s.rolesFor(ctx, principalID)
	if err != nil {
		return false, err
	}
	if len(roles) == 0 {
		return false, nil
	}

	switch mode {
	case AuthorizeAny:
		for _, p := range required {
			if anyRoleGrants(roles, p) {
				return true, nil
			}
		}
		return false, nil
	case AuthorizeAll, "":
		for _, p := range required {
			if !anyRoleGrants(roles, p) {
				return false, nil
			}
		}
		return true, nil
	default:
		return false, fmt.Errorf("unknown authorization mode %q", mode)
	}
}

// Require is Authorize that returns ErrPermissionDenied on refusal.
func (s *AuthorizationService) Require(ctx context.Context, principalID string, mode AuthorizationMode, required ...domain.Permission) error {
	ok, err := s.Authorize(ctx, principalID, mode, required...)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Debug("authorization denied",
			zap.String("principal_id", principalID),
			zap.String("mode", string(mode)),
			zap.Strings("required", permissionStrings(required)),
		)
		return ErrPermissionDenied
	}
	return nil
}

// EffectivePermissions returns the de-duplicated union of every held role's permissions.
func (s *AuthorizationService) EffectivePermissions(ctx context.Context, principalID string) ([]domain.Permission, error) {
	roles, err := s.rolesFor(ctx, principalID)
	if err != nil {
		return nil, err
	}

	seen := make(map[domain.Permission]struct{})
	perms := make([]domain.Permission, 0)
	for _, role := range roles {
		for _, p := range role.Permissions() {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			perms = append(perms, p)
		}
	}
	return perms, nil
}

// RolesFor returns the roles currently assigned to principalID.
func (s *AuthorizationService) RolesFor(ctx context.Context, principalID string) ([]*domain.Role, error) {
	return s.rolesFor(ctx, principalID)
}

func (s *AuthorizationService) rolesFor(ctx context.Context, principalID string) ([]*domain.Role, error) {
	principalID = strings.TrimSpace(principalID)
	if principalID == "" {
		return nil, nil
	}

	roleIDs, err := s.assignments.FindRoleIDsForUser(ctx, principalID)
	if err != nil {
		return nil, fmt.Errorf("find roles for user: %w", err)
	}
	if len(roleIDs) == 0 {
		return nil, nil
	}

	roles, err := s.roles.FindByIDs(ctx, roleIDs)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	return roles, nil
}

func anyRoleGrants(roles []*domain.Role, required domain.Permission) bool {
	for _, role := range roles {
		if role != nil && role.HasPermission(required) {
			return true
		}
	}
	return false
}

func permissionStrings(perms []domain.Permission) []string {
	out := make([]string, 0, len(perms))
	for _, p := range perms {
		out = append(out, p.String())
	}
	return out
}
