package postgres

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/arklim/book-buyback/internal/core/domain"
)

func TestRoleAssignmentRepository_FindRoleIDsForUser(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	repo := NewRoleAssignmentRepository(mock)
	repo.now = func() time.Time { return now }

	mock.ExpectQuery(`SELECT role_id FROM books\.user_roles WHERE user_id = \$1 AND \(expires_at IS NULL OR expires_at > \$2\)`).
		WithArgs("user-1", now).
		WillReturnRows(pgxmock.NewRows([]string{"role_id"}).AddRow("r1").AddRow("r2"))

	ids, err := repo.FindRoleIDsForUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("FindRoleIDsForUser returned error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "r1" || ids[1] != "r2" {
		t.Fatalf("unexpected ids: %v", ids)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRoleAssignmentRepository_Assign(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRoleAssignmentRepository(mock)

	assignedAt := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	expiresAt := assignedAt.Add(48 * time.Hour)
	scope := "store-12"

	mock.ExpectExec(`INSERT INTO books\.user_roles .*ON CONFLICT \(user_id, role_id\) DO UPDATE`).
		WithArgs("user-1", "r1", "admin-1", assignedAt, expiresAt, scope).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = repo.Assign(context.Background(), domain.RoleAssignment{
		UserID:     "user-1",
		RoleID:     "r1",
		AssignedBy: "admin-1",
		AssignedAt: assignedAt,
		ExpiresAt:  &expiresAt,
		Scope:      &scope,
	})
	if err != nil {
		t.Fatalf("Assign returned error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRoleAssignmentRepository_RemoveAndCount(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock.NewPool: %v", err)
	}
	defer mock.Close()

	repo := NewRoleAssignmentRepository(mock)

	mock.ExpectExec(`DELETE FROM books\.user_roles WHERE`).
		WithArgs("r1", "user-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM books\.user_roles WHERE role_id = \$1`).
		WithArgs("r1").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(3)))

	removed, err := repo.Remove(context.Background(), "user-1", "r1")
	if err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if removed {
		t.Fatal("expected Remove to report no existing assignment")
	}

	count, err := repo.CountByRole(context.Background(), "r1")
	if err != nil {
		t.Fatalf("CountByRole returned error: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected count 3, got %d", count)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
