package domain

import (
	"strings"
	"time"
)

// PrincipalKind classifies the acting principal a role applies to.
type PrincipalKind string

const (
	PrincipalCustomer PrincipalKind = "customer"
	PrincipalStaff    PrincipalKind = "staff"
	PrincipalAdmin    PrincipalKind = "admin"
)

// Valid reports whether k is a known principal kind.
func (k PrincipalKind) Valid() bool {
	switch k {
	case PrincipalCustomer, PrincipalStaff, PrincipalAdmin:
		return true
	}
	return false
}

const (
	errRoleNameEmpty    = "Role name cannot be empty"
	errRoleNoKinds      = "Role must be applicable to at least one user type"
	errSystemRoleLocked = "Cannot modify system role"
)

// RoleProps carries the inputs for creating a role.
type RoleProps struct {
	ID          string
	Name        string
	Description *string
	Permissions []Permission
	AppliesTo   []PrincipalKind
	CreatedAt   time.Time
}

// Role is a named bundle of permissions. System roles are immutable.
type Role struct {
	id          string
	name        string
	description *string
	permissions []Permission
	appliesTo   []PrincipalKind
	isSystem    bool
	createdAt   time.Time
	updatedAt   time.Time
}

// NewRole creates an ordinary, editable role.
func NewRole(props RoleProps) (*Role, error) {
	return newRole(props, false)
}

// NewSystemRole creates a role that rejects every later mutation.
func NewSystemRole(props RoleProps) (*Role, error) {
	return newRole(props, true)
}

func newRole(props RoleProps, system bool) (*Role, error) {
	name := strings.TrimSpace(props.Name)
	if name == "" {
		return nil, NewValidationError("name", errRoleNameEmpty)
	}

	kinds, err := normalizeKinds(props.AppliesTo)
	if err != nil {
		return nil, err
	}
	if len(kinds) == 0 {
		return nil, NewValidationError("applies_to", errRoleNoKinds)
	}

	createdAt := props.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	return &Role{
		id:          strings.TrimSpace(props.ID),
		name:        name,
		description: trimmedOrNil(props.Description),
		permissions: dedupePermissions(props.Permissions),
		appliesTo:   kinds,
		isSystem:    system,
		createdAt:   createdAt,
		updatedAt:   createdAt,
	}, nil
}

// RoleSnapshot is the persisted form of a role.
type RoleSnapshot struct {
	ID          string
	Name        string
	Description *string
	Permissions []Permission
	AppliesTo   []PrincipalKind
	IsSystem    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RestoreRole rebuilds a role from storage without re-running creation checks.
func RestoreRole(s RoleSnapshot) *Role {
	return &Role{
		id:          s.ID,
		name:        s.Name,
		description: s.Description,
		permissions: dedupePermissions(s.Permissions),
		appliesTo:   append([]PrincipalKind(nil), s.AppliesTo...),
		isSystem:    s.IsSystem,
		createdAt:   s.CreatedAt,
		updatedAt:   s.UpdatedAt,
	}
}

// Snapshot returns a copy of the role state for persistence.
func (r *Role) Snapshot() RoleSnapshot {
	return RoleSnapshot{
		ID:          r.id,
		Name:        r.name,
		Description: r.description,
		Permissions: r.Permissions(),
		AppliesTo:   append([]PrincipalKind(nil), r.appliesTo...),
		IsSystem:    r.isSystem,
		CreatedAt:   r.createdAt,
		UpdatedAt:   r.updatedAt,
	}
}

func (r *Role) ID() string           { return r.id }
func (r *Role) Name() string         { return r.name }
func (r *Role) Description() *string { return r.description }
func (r *Role) IsSystem() bool       { return r.isSystem }
func (r *Role) CreatedAt() time.Time { return r.createdAt }
func (r *Role) UpdatedAt() time.Time { return r.updatedAt }

// Permissions returns a copy of the held permissions.
func (r *Role) Permissions() []Permission {
	return append([]Permission(nil), r.permissions...)
}

// AppliesTo returns a copy of the principal kinds.
func (r *Role) AppliesTo() []PrincipalKind {
	return append([]PrincipalKind(nil), r.appliesTo...)
}

// AppliesToKind reports whether the role can be assigned to principals of kind k.
func (r *Role) AppliesToKind(k PrincipalKind) bool {
	for _, kind := range r.appliesTo {
		if kind == k {
			return true
		}
	}
	return false
}

// HasPermission reports whether any held permission matches required.
func (r *Role) HasPermission(required Permission) bool {
	for _, held := range r.permissions {
		if held.Matches(required) {
			return true
		}
	}
	return false
}

// AddPermission grants p. Adding a held permission only bumps updatedAt.
func (r *Role) AddPermission(p Permission) error {
	if err := r.guardMutable(); err != nil {
		return err
	}
	if p.IsZero() {
		return NewValidationError("permission", "Permission cannot be empty")
	}
	r.permissions = dedupePermissions(append(r.permissions, p))
	r.touch()
	return nil
}

// RemovePermission revokes exactly p; wildcard grants covering p are untouched.
func (r *Role) RemovePermission(p Permission) error {
	if err := r.guardMutable(); err != nil {
		return err
	}
	kept := r.permissions[:0:0]
	for _, held := range r.permissions {
		if !held.Equals(p) {
			kept = append(kept, held)
		}
	}
	r.permissions = kept
	r.touch()
	return nil
}

// UpdatePermissions replaces the permission set.
func (r *Role) UpdatePermissions(perms []Permission) error {
	if err := r.guardMutable(); err != nil {
		return err
	}
	r.permissions = dedupePermissions(perms)
	r.touch()
	return nil
}

// UpdateName renames the role.
func (r *Role) UpdateName(name string) error {
	if err := r.guardMutable(); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return NewValidationError("name", errRoleNameEmpty)
	}
	r.name = name
	r.touch()
	return nil
}

// UpdateDescription sets or clears the description.
func (r *Role) UpdateDescription(description *string) error {
	if err := r.guardMutable(); err != nil {
		return err
	}
	r.description = trimmedOrNil(description)
	r.touch()
	return nil
}

// EnsureDeletable fails for system roles.
func (r *Role) EnsureDeletable() error {
	if r.isSystem {
		return NewValidationError("role", "Cannot delete system role")
	}
	return nil
}

func (r *Role) guardMutable() error {
	if r.isSystem {
		return NewValidationError("role", errSystemRoleLocked)
	}
	return nil
}

func (r *Role) touch() {
	now := time.Now().UTC()
	if !now.After(r.updatedAt) {
		now = r.updatedAt.Add(time.Nanosecond)
	}
	r.updatedAt = now
}

// RoleAssignment grants a role to a user, optionally scoped and time-bound.
type RoleAssignment struct {
	UserID     string
	RoleID     string
	AssignedBy string
	AssignedAt time.Time
	ExpiresAt  *time.Time
	Scope      *string
}

// Active reports whether the assignment still grants its role at the given instant.
func (a RoleAssignment) Active(at time.Time) bool {
	return a.ExpiresAt == nil || at.Before(*a.ExpiresAt)
}

func normalizeKinds(kinds []PrincipalKind) ([]PrincipalKind, error) {
	seen := make(map[PrincipalKind]struct{}, len(kinds))
	out := make([]PrincipalKind, 0, len(kinds))
	for _, k := range kinds {
		k = PrincipalKind(strings.ToLower(strings.TrimSpace(string(k))))
		if !k.Valid() {
			return nil, NewValidationError("applies_to", "Unknown user type: "+string(k))
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out, nil
}

func dedupePermissions(perms []Permission) []Permission {
	seen := make(map[Permission]struct{}, len(perms))
	out := make([]Permission, 0, len(perms))
	for _, p := range perms {
		if p.IsZero() {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
