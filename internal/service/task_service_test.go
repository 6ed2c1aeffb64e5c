package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rohan-singh987/zimedash/internal/authz"
	"github.com/rohan-singh987/zimedash/internal/entity"
	"github.com/rohan-singh987/zimedash/internal/repository"
	"github.com/rohan-singh987/zimedash/internal/testutil"
	"gorm.io/gorm"
)

func setupTaskService(t *testing.T) (*TaskService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	svc := NewTaskService(
		repository.NewTaskRepository(db),
		repository.NewProjectRepository(db),
		authz.DefaultMatrix(),
	)
	return svc, db
}

func str(s string) *string { return &s }

func TestMemberUpdatesOwnTaskStatus(t *testing.T) {
	svc, db := setupTaskService(t)
	ctx := context.Background()

	testutil.SeedTestUser(t, db, "mgr", "Manager", "mgr@test.com", entity.RoleManager)
	testutil.SeedTestUser(t, db, "mem", "Member", "mem@test.com", entity.RoleMember)
	testutil.SeedTestProject(t, db, "p1", "Project", "mgr")
	testutil.SeedTestTask(t, db, "t1", "p1", "mgr", entity.TaskStatusPending, str("mem"))

	task, err := svc.Update(ctx, "mem", entity.RoleMember, "t1", &UpdateTaskRequest{
		Status: str(entity.TaskStatusDone),
	})
	if err != nil {
		t.Fatalf("expected status update to succeed: %v", err)
	}
	if task.Status != entity.TaskStatusDone {
		t.Errorf("Expected status Done, got %q", task.Status)
	}
	if task.CompletedAt == nil {
		t.Error("Expected completed_at to be set on Done")
	}
}

func TestMemberCannotUpdateOtherFields(t *testing.T) {
	svc, db := setupTaskService(t)
	ctx := context.Background()

	testutil.SeedTestUser(t, db, "mgr", "Manager", "mgr@test.com", entity.RoleManager)
	testutil.SeedTestUser(t, db, "mem", "Member", "mem@test.com", entity.RoleMember)
	testutil.SeedTestProject(t, db, "p1", "Project", "mgr")
	testutil.SeedTestTask(t, db, "t1", "p1", "mgr", entity.TaskStatusPending, str("mem"))

	_, err := svc.Update(ctx, "mem", entity.RoleMember, "t1", &UpdateTaskRequest{
		Status: str(entity.TaskStatusDone),
		Title:  str("sneaky rename"),
	})

	var forbidden *ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("Expected ForbiddenError, got %v", err)
	}
	if forbidden.Reason != authz.ReasonFieldNotAllowed {
		t.Errorf("Expected field_not_allowed, got %q", forbidden.Reason)
	}
}

func TestMemberCannotUpdateUnassignedTask(t *testing.T) {
	svc, db := setupTaskService(t)
	ctx := context.Background()

	testutil.SeedTestUser(t, db, "mgr", "Manager", "mgr@test.com", entity.RoleManager)
	testutil.SeedTestUser(t, db, "mem", "Member", "mem@test.com", entity.RoleMember)
	testutil.SeedTestUser(t, db, "other", "Other", "other@test.com", entity.RoleMember)
	testutil.SeedTestProject(t, db, "p1", "Project", "mgr")
	testutil.SeedTestTask(t, db, "t1", "p1", "mgr", entity.TaskStatusPending, str("other"))

	// Even a status-only change is denied when the task belongs to someone else
	_, err := svc.Update(ctx, "mem", entity.RoleMember, "t1", &UpdateTaskRequest{
		Status: str(entity.TaskStatusDone),
	})

	var forbidden *ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("Expected ForbiddenError, got %v", err)
	}
	if forbidden.Reason != authz.ReasonOwnershipInsufficient {
		t.Errorf("Expected ownership_insufficient, got %q", forbidden.Reason)
	}
}

func TestManagerDeletesOnlyOwnProjectTasks(t *testing.T) {
	svc, db := setupTaskService(t)
	ctx := context.Background()

	testutil.SeedTestUser(t, db, "mgr1", "Manager One", "mgr1@test.com", entity.RoleManager)
	testutil.SeedTestUser(t, db, "mgr2", "Manager Two", "mgr2@test.com", entity.RoleManager)
	testutil.SeedTestProject(t, db, "p1", "Owned Project", "mgr1")
	testutil.SeedTestTask(t, db, "t1", "p1", "mgr1", entity.TaskStatusPending, nil)
	testutil.SeedTestTask(t, db, "t2", "p1", "mgr1", entity.TaskStatusPending, nil)

	if err := svc.Delete(ctx, "mgr1", entity.RoleManager, "t1"); err != nil {
		t.Fatalf("expected project creator to delete task: %v", err)
	}

	err := svc.Delete(ctx, "mgr2", entity.RoleManager, "t2")
	var forbidden *ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("Expected ForbiddenError for foreign manager, got %v", err)
	}
}

func TestMemberCannotDeleteTasks(t *testing.T) {
	svc, db := setupTaskService(t)
	ctx := context.Background()

	testutil.SeedTestUser(t, db, "mgr", "Manager", "mgr@test.com", entity.RoleManager)
	testutil.SeedTestUser(t, db, "mem", "Member", "mem@test.com", entity.RoleMember)
	testutil.SeedTestProject(t, db, "p1", "Project", "mgr")
	testutil.SeedTestTask(t, db, "t1", "p1", "mgr", entity.TaskStatusPending, str("mem"))

	err := svc.Delete(ctx, "mem", entity.RoleMember, "t1")
	var forbidden *ForbiddenError
	if !errors.As(err, &forbidden) {
		t.Fatalf("Expected ForbiddenError, got %v", err)
	}
	if forbidden.Reason != authz.ReasonRoleInsufficient {
		t.Errorf("Expected role_insufficient, got %q", forbidden.Reason)
	}
}

func TestUpdateRejectsInvalidStatus(t *testing.T) {
	svc, db := setupTaskService(t)
	ctx := context.Background()

	testutil.SeedTestUser(t, db, "mgr", "Manager", "mgr@test.com", entity.RoleManager)
	testutil.SeedTestProject(t, db, "p1", "Project", "mgr")
	testutil.SeedTestTask(t, db, "t1", "p1", "mgr", entity.TaskStatusPending, nil)

	_, err := svc.Update(ctx, "mgr", entity.RoleManager, "t1", &UpdateTaskRequest{
		Status: str("Finished"),
	})
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("Expected ValidationError, got %v", err)
	}
}

func TestReopeningClearsCompletedAt(t *testing.T) {
	svc, db := setupTaskService(t)
	ctx := context.Background()

	testutil.SeedTestUser(t, db, "mgr", "Manager", "mgr@test.com", entity.RoleManager)
	testutil.SeedTestProject(t, db, "p1", "Project", "mgr")
	testutil.SeedTestTask(t, db, "t1", "p1", "mgr", entity.TaskStatusDone, nil)

	task, err := svc.Update(ctx, "mgr", entity.RoleManager, "t1", &UpdateTaskRequest{
		Status: str(entity.TaskStatusOngoing),
	})
	if err != nil {
		t.Fatalf("reopen task: %v", err)
	}
	if task.CompletedAt != nil {
		t.Error("Expected completed_at cleared when leaving Done")
	}
}

func TestCreateRejectsLongTags(t *testing.T) {
	svc, db := setupTaskService(t)
	ctx := context.Background()

	testutil.SeedTestUser(t, db, "mgr", "Manager", "mgr@test.com", entity.RoleManager)
	testutil.SeedTestProject(t, db, "p1", "Project", "mgr")

	_, err := svc.Create(ctx, "mgr", "p1", &CreateTaskRequest{
		Title: "Tagged",
		Tags:  []string{"this-tag-is-way-too-long-to-be-accepted-here"},
	})
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("Expected ValidationError for long tag, got %v", err)
	}
}

func TestSelfDependencyRejected(t *testing.T) {
	svc, db := setupTaskService(t)
	ctx := context.Background()

	testutil.SeedTestUser(t, db, "mgr", "Manager", "mgr@test.com", entity.RoleManager)
	testutil.SeedTestProject(t, db, "p1", "Project", "mgr")
	testutil.SeedTestTask(t, db, "t1", "p1", "mgr", entity.TaskStatusPending, nil)

	_, err := svc.AddDependency(ctx, "t1", &AddDependencyRequest{DependsOnID: "t1"})
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("Expected ValidationError for self dependency, got %v", err)
	}
}
