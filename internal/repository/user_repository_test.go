package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/rohan-singh987/zimedash/internal/entity"
	"github.com/rohan-singh987/zimedash/internal/testutil"
)

func newTestUser(id, email string) *entity.User {
	return &entity.User{
		ID:           id,
		Username:     "user_" + id,
		Name:         "User " + id,
		Email:        email,
		PasswordHash: "$2a$10$test.hash",
		IsActive:     true,
	}
}

func TestFirstRegisteredUserBecomesAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first := newTestUser("u1", "first@example.com")
	if err := repo.CreateWithRoleAssignment(ctx, first, "zime.ai"); err != nil {
		t.Fatalf("create first user: %v", err)
	}
	if first.Role != entity.RoleAdmin {
		t.Errorf("Expected first user to be admin, got %q", first.Role)
	}

	second := newTestUser("u2", "second@example.com")
	if err := repo.CreateWithRoleAssignment(ctx, second, "zime.ai"); err != nil {
		t.Fatalf("create second user: %v", err)
	}
	if second.Role != entity.RoleMember {
		t.Errorf("Expected second user to be member, got %q", second.Role)
	}
}

func TestPrivilegedDomainBecomesAdmin(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	testutil.SeedTestUser(t, db, "u0", "Existing", "existing@example.com", entity.RoleAdmin)

	insider := newTestUser("u1", "dev@zime.ai")
	if err := repo.CreateWithRoleAssignment(ctx, insider, "zime.ai"); err != nil {
		t.Fatalf("create insider: %v", err)
	}
	if insider.Role != entity.RoleAdmin {
		t.Errorf("Expected zime.ai user to be admin, got %q", insider.Role)
	}

	// Suffix match is on the full domain, not a substring
	outsider := newTestUser("u2", "dev@notzime.ai.example.com")
	if err := repo.CreateWithRoleAssignment(ctx, outsider, "zime.ai"); err != nil {
		t.Fatalf("create outsider: %v", err)
	}
	if outsider.Role != entity.RoleMember {
		t.Errorf("Expected non-domain user to be member, got %q", outsider.Role)
	}

	mixedCase := newTestUser("u3", "ops@ZIME.AI")
	if err := repo.CreateWithRoleAssignment(ctx, mixedCase, "zime.ai"); err != nil {
		t.Fatalf("create mixed case: %v", err)
	}
	if mixedCase.Role != entity.RoleAdmin {
		t.Errorf("Expected case-insensitive domain match, got %q", mixedCase.Role)
	}
}

func TestDuplicateEmailReturnsErrDuplicate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first := newTestUser("u1", "dup@example.com")
	if err := repo.CreateWithRoleAssignment(ctx, first, "zime.ai"); err != nil {
		t.Fatalf("create first: %v", err)
	}

	clone := newTestUser("u2", "dup@example.com")
	err := repo.CreateWithRoleAssignment(ctx, clone, "zime.ai")
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}
}

func TestDeleteIsSoft(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	testutil.SeedTestUser(t, db, "u1", "Victim", "victim@example.com", entity.RoleMember)

	if err := repo.Delete(ctx, "u1"); err != nil {
		t.Fatalf("delete user: %v", err)
	}

	if _, err := repo.FindByID(ctx, "u1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after soft delete, got %v", err)
	}

	// Row still exists with deleted_at set
	var count int64
	db.Model(&entity.User{}).Where("id = ?", "u1").Count(&count)
	if count != 1 {
		t.Errorf("Expected soft-deleted row to remain, got count %d", count)
	}
}

func TestUserListFilters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	testutil.SeedTestUser(t, db, "u1", "Alice Admin", "alice@example.com", entity.RoleAdmin)
	testutil.SeedTestUser(t, db, "u2", "Bob Builder", "bob@example.com", entity.RoleMember)
	testutil.SeedTestUser(t, db, "u3", "Carol Coder", "carol@example.com", entity.RoleMember)

	users, total, err := repo.List(ctx, 1, 20, map[string]interface{}{"role": entity.RoleMember})
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if total != 2 || len(users) != 2 {
		t.Errorf("Expected 2 members, got total=%d len=%d", total, len(users))
	}

	users, total, err = repo.List(ctx, 1, 20, map[string]interface{}{"q": "bob"})
	if err != nil {
		t.Fatalf("search users: %v", err)
	}
	if total != 1 || users[0].ID != "u2" {
		t.Errorf("Expected to find Bob by search, got total=%d", total)
	}
}
