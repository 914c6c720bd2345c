package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/arklim/book-buyback/internal/core/domain"
)

func mustRole(t *testing.T, id, name string, perms ...string) *domain.Role {
	t.Helper()
	parsed, err := domain.ParsePermissions(perms)
	if err != nil {
		t.Fatalf("parse permissions: %v", err)
	}
	role, err := domain.NewRole(domain.RoleProps{
		ID:          id,
		Name:        name,
		Permissions: parsed,
		AppliesTo:   []domain.PrincipalKind{domain.PrincipalStaff},
	})
	if err != nil {
		t.Fatalf("NewRole returned error: %v", err)
	}
	return role
}

func assign(t *testing.T, repo *assignmentRepoMock, userID, roleID string) {
	t.Helper()
	if err := repo.Assign(context.Background(), domain.RoleAssignment{UserID: userID, RoleID: roleID, AssignedBy: "admin"}); err != nil {
		t.Fatalf("assign: %v", err)
	}
}

func TestAuthorization_SupportEscalation(t *testing.T) {
	ctx := context.Background()
	support := mustRole(t, "role-support", "Support", "orders:read")
	roles := newRoleRepoMock(support)
	assignments := newAssignmentRepoMock()
	assign(t, assignments, "user-1", support.ID())

	authz := NewAuthorizationService(roles, assignments, zaptest.NewLogger(t))
	roleSvc := NewRoleService(roles, assignments, nil, nil, zaptest.NewLogger(t))

	ok, err := authz.UserHasPermission(ctx, "user-1", PermOrdersRefund)
	if err != nil {
		t.Fatalf("UserHasPermission returned error: %v", err)
	}
	if ok {
		t.Fatalf("support must not refund before escalation")
	}

	if _, err := roleSvc.RemovePermission(ctx, support.ID(), "orders:read"); err != nil {
		t.Fatalf("RemovePermission returned error: %v", err)
	}
	if _, err := roleSvc.AddPermission(ctx, support.ID(), "orders:*"); err != nil {
		t.Fatalf("AddPermission returned error: %v", err)
	}

	ok, err = authz.UserHasPermission(ctx, "user-1", PermOrdersRefund)
	if err != nil {
		t.Fatalf("UserHasPermission returned error: %v", err)
	}
	if !ok {
		t.Fatalf("expected orders:* to grant orders:refund immediately")
	}
}

func TestAuthorization_Modes(t *testing.T) {
	ctx := context.Background()
	reader := mustRole(t, "role-reader", "Reader", "orders:read")
	shipper := mustRole(t, "role-shipper", "Shipper", "shipments:*")
	roles := newRoleRepoMock(reader, shipper)
	assignments := newAssignmentRepoMock()
	assign(t, assignments, "user-1", reader.ID())
	assign(t, assignments, "user-1", shipper.ID())

	authz := NewAuthorizationService(roles, assignments, nil)

	tests := []struct {
		name     string
		mode     AuthorizationMode
		required []domain.Permission
		want     bool
	}{
		{"all granted across roles", AuthorizeAll, []domain.Permission{PermOrdersRead, PermShipmentsUpdate}, true},
		{"all with one missing", AuthorizeAll, []domain.Permission{PermOrdersRead, PermOrdersRefund}, false},
		{"any with one present", AuthorizeAny, []domain.Permission{PermOrdersRefund, PermShipmentsRead}, true},
		{"any with none present", AuthorizeAny, []domain.Permission{PermOrdersRefund, PermRolesManage}, false},
		{"nothing required", AuthorizeAll, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := authz.Authorize(ctx, "user-1", tt.mode, tt.required...)
			if err != nil {
				t.Fatalf("Authorize returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestAuthorization_NoRoles(t *testing.T) {
	authz := NewAuthorizationService(newRoleRepoMock(), newAssignmentRepoMock(), nil)

	ok, err := authz.UserHasPermission(context.Background(), "nobody", PermOrdersRead)
	if err != nil {
		t.Fatalf("expected no error for a principal without roles, got %v", err)
	}
	if ok {
		t.Fatalf("principal without roles must not be granted")
	}

	if err := authz.Require(context.Background(), "nobody", AuthorizeAny, PermOrdersRead); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestAuthorization_ExpiredAssignmentGrantsNothing(t *testing.T) {
	admin := mustRole(t, "role-admin", "Admin", "*:*")
	assignments := newAssignmentRepoMock()
	expired := time.Now().Add(-time.Minute)
	_ = assignments.Assign(context.Background(), domain.RoleAssignment{UserID: "user-1", RoleID: admin.ID(), ExpiresAt: &expired})

	authz := NewAuthorizationService(newRoleRepoMock(admin), assignments, nil)
	ok, err := authz.UserHasPermission(context.Background(), "user-1", PermRolesManage)
	if err != nil {
		t.Fatalf("UserHasPermission returned error: %v", err)
	}
	if ok {
		t.Fatalf("expired assignment must not grant")
	}
}

func TestAuthorization_RepositoryError(t *testing.T) {
	assignments := newAssignmentRepoMock()
	assignments.findErr = errRepoDown

	authz := NewAuthorizationService(newRoleRepoMock(), assignments, nil)
	if _, err := authz.Authorize(context.Background(), "user-1", AuthorizeAll, PermOrdersRead); !errors.Is(err, errRepoDown) {
		t.Fatalf("expected repository error, got %v", err)
	}
}

func TestAuthorization_EffectivePermissions(t *testing.T) {
	a := mustRole(t, "role-a", "A", "orders:read", "orders:pay")
	b := mustRole(t, "role-b", "B", "orders:read")
	assignments := newAssignmentRepoMock()
	assign(t, assignments, "user-1", a.ID())
	assign(t, assignments, "user-1", b.ID())

	authz := NewAuthorizationService(newRoleRepoMock(a, b), assignments, nil)
	perms, err := authz.EffectivePermissions(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("EffectivePermissions returned error: %v", err)
	}
	if len(perms) != 2 {
		t.Fatalf("expected 2 distinct permissions, got %v", perms)
	}
}

func TestParseAuthorizationMode(t *testing.T) {
	if m, err := ParseAuthorizationMode(""); err != nil || m != AuthorizeAll {
		t.Fatalf("expected default all, got %q (%v)", m, err)
	}
	if m, err := ParseAuthorizationMode("ANY"); err != nil || m != AuthorizeAny {
		t.Fatalf("expected any, got %q (%v)", m, err)
	}
	if _, err := ParseAuthorizationMode("some"); err == nil {
		t.Fatalf("expected unknown mode to fail")
	}
}
