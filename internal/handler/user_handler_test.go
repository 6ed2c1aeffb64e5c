package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rohan-singh987/zimedash/internal/authz"
	"github.com/rohan-singh987/zimedash/internal/entity"
	"github.com/rohan-singh987/zimedash/internal/middleware"
	"github.com/rohan-singh987/zimedash/internal/repository"
	"github.com/rohan-singh987/zimedash/internal/service"
	"github.com/rohan-singh987/zimedash/internal/testutil"
)

func setupUserTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	matrix := authz.DefaultMatrix()
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	userSvc := service.NewUserService(userRepo, taskRepo, nil, matrix)
	userHandler := NewUserHandler(userSvc)

	router := testutil.SetupRouter()
	api := testutil.AuthGroup(router, "/api/v1")

	users := api.Group("/users")
	users.GET("", middleware.RequirePermission(matrix, authz.ResourceUsers, authz.ActionRead), userHandler.List)
	users.GET("/:id", middleware.RequirePermission(matrix, authz.ResourceUsers, authz.ActionRead), userHandler.Get)
	users.GET("/:id/stats", middleware.RequirePermission(matrix, authz.ResourceUsers, authz.ActionRead), userHandler.Stats)
	users.PUT("/:id", middleware.RequirePermission(matrix, authz.ResourceUsers, authz.ActionUpdate), userHandler.Update)
	users.PUT("/:id/role", middleware.RequireRole(entity.RoleAdmin), userHandler.ChangeRole)
	users.DELETE("/:id", middleware.RequireRole(entity.RoleAdmin), userHandler.Delete)

	return router, db
}

func TestAdminCannotDemoteSelf(t *testing.T) {
	router, db := setupUserTest(t)
	testutil.SeedTestUser(t, db, "admin", "Admin", "admin@test.com", entity.RoleAdmin)

	token := testutil.GenerateTestToken("admin", "Admin", "admin@test.com", entity.RoleAdmin)
	w := testutil.DoRequest(router, "PUT", "/api/v1/users/admin/role",
		map[string]string{"role": entity.RoleMember}, token)
	if w.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 for self-demotion, got %d: %s", w.Code, w.Body.String())
	}

	// Role is unchanged
	var user entity.User
	db.First(&user, "id = ?", "admin")
	if user.Role != entity.RoleAdmin {
		t.Errorf("Expected role to remain admin, got %q", user.Role)
	}
}

func TestAdminSelfRoleNoOpAllowed(t *testing.T) {
	router, db := setupUserTest(t)
	testutil.SeedTestUser(t, db, "admin", "Admin", "admin@test.com", entity.RoleAdmin)

	token := testutil.GenerateTestToken("admin", "Admin", "admin@test.com", entity.RoleAdmin)
	w := testutil.DoRequest(router, "PUT", "/api/v1/users/admin/role",
		map[string]string{"role": entity.RoleAdmin}, token)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for admin->admin self change, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAdminPromotesMember(t *testing.T) {
	router, db := setupUserTest(t)
	testutil.SeedTestUser(t, db, "admin", "Admin", "admin@test.com", entity.RoleAdmin)
	testutil.SeedTestUser(t, db, "mem", "Member", "mem@test.com", entity.RoleMember)

	token := testutil.GenerateTestToken("admin", "Admin", "admin@test.com", entity.RoleAdmin)
	w := testutil.DoRequest(router, "PUT", "/api/v1/users/mem/role",
		map[string]string{"role": entity.RoleManager}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var user entity.User
	db.First(&user, "id = ?", "mem")
	if user.Role != entity.RoleManager {
		t.Errorf("Expected role manager, got %q", user.Role)
	}
}

func TestInvalidRoleRejected(t *testing.T) {
	router, db := setupUserTest(t)
	testutil.SeedTestUser(t, db, "admin", "Admin", "admin@test.com", entity.RoleAdmin)
	testutil.SeedTestUser(t, db, "mem", "Member", "mem@test.com", entity.RoleMember)

	token := testutil.GenerateTestToken("admin", "Admin", "admin@test.com", entity.RoleAdmin)
	w := testutil.DoRequest(router, "PUT", "/api/v1/users/mem/role",
		map[string]string{"role": "superuser"}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown role, got %d: %s", w.Code, w.Body.String())
	}
}

func TestCannotDeleteSelf(t *testing.T) {
	router, db := setupUserTest(t)
	testutil.SeedTestUser(t, db, "admin", "Admin", "admin@test.com", entity.RoleAdmin)

	token := testutil.GenerateTestToken("admin", "Admin", "admin@test.com", entity.RoleAdmin)
	w := testutil.DoRequest(router, "DELETE", "/api/v1/users/admin", nil, token)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for self-deletion, got %d: %s", w.Code, w.Body.String())
	}
}

func TestAdminDeletesOtherUser(t *testing.T) {
	router, db := setupUserTest(t)
	testutil.SeedTestUser(t, db, "admin", "Admin", "admin@test.com", entity.RoleAdmin)
	testutil.SeedTestUser(t, db, "mem", "Member", "mem@test.com", entity.RoleMember)

	token := testutil.GenerateTestToken("admin", "Admin", "admin@test.com", entity.RoleAdmin)
	w := testutil.DoRequest(router, "DELETE", "/api/v1/users/mem", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(router, "GET", "/api/v1/users/mem", nil, token)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for deleted user, got %d", w.Code)
	}
}

func TestManagerCannotChangeRoles(t *testing.T) {
	router, db := setupUserTest(t)
	testutil.SeedTestUser(t, db, "mgr", "Manager", "mgr@test.com", entity.RoleManager)
	testutil.SeedTestUser(t, db, "mem", "Member", "mem@test.com", entity.RoleMember)

	token := testutil.GenerateTestToken("mgr", "Manager", "mgr@test.com", entity.RoleManager)
	w := testutil.DoRequest(router, "PUT", "/api/v1/users/mem/role",
		map[string]string{"role": entity.RoleManager}, token)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for manager role change, got %d", w.Code)
	}
}

func TestMemberCannotUpdateUsers(t *testing.T) {
	router, db := setupUserTest(t)
	testutil.SeedTestUser(t, db, "mem", "Member", "mem@test.com", entity.RoleMember)
	testutil.SeedTestUser(t, db, "other", "Other", "other@test.com", entity.RoleMember)

	token := testutil.GenerateTestToken("mem", "Member", "mem@test.com", entity.RoleMember)
	w := testutil.DoRequest(router, "PUT", "/api/v1/users/other",
		map[string]string{"name": "Hacked"}, token)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected 403 for member user update, got %d", w.Code)
	}
}

func TestUserStatsCountsAssignments(t *testing.T) {
	router, db := setupUserTest(t)
	testutil.SeedTestUser(t, db, "admin", "Admin", "admin@test.com", entity.RoleAdmin)
	testutil.SeedTestUser(t, db, "mem", "Member", "mem@test.com", entity.RoleMember)
	testutil.SeedTestProject(t, db, "p1", "Project", "admin")
	assignee := "mem"
	testutil.SeedTestTask(t, db, "t1", "p1", "admin", entity.TaskStatusDone, &assignee)
	testutil.SeedTestTask(t, db, "t2", "p1", "admin", entity.TaskStatusPending, &assignee)

	token := testutil.GenerateTestToken("admin", "Admin", "admin@test.com", entity.RoleAdmin)
	w := testutil.DoRequest(router, "GET", "/api/v1/users/mem/stats", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["assigned"].(float64) != 2 {
		t.Errorf("Expected 2 assigned tasks, got %v", data["assigned"])
	}
}
