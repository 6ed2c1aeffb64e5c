package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/rohan-singh987/zimedash/internal/config"
	"github.com/rohan-singh987/zimedash/internal/entity"
	"github.com/rohan-singh987/zimedash/internal/repository"
	"github.com/rohan-singh987/zimedash/internal/service"
	"github.com/rohan-singh987/zimedash/internal/testutil"
)

func setupAuthTest(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)

	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:             testutil.JWTSecret,
			AccessTokenExpire:  15 * time.Minute,
			RefreshTokenExpire: 7 * 24 * time.Hour,
			Issuer:             "zimedash",
		},
		Auth: config.AuthConfig{AdminDomain: "zime.ai"},
	}

	userRepo := repository.NewUserRepository(db)
	authSvc := service.NewAuthService(userRepo, nil, cfg)
	authHandler := NewAuthHandler(authSvc)

	router := testutil.SetupRouter()
	api := router.Group("/api/v1")
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	authorized := testutil.AuthGroup(router, "/api/v1")
	authorized.GET("/auth/me", authHandler.Me)

	return router, db
}

func registerUser(t *testing.T, router *gin.Engine, username, email, password string) map[string]interface{} {
	t.Helper()
	w := testutil.DoRequest(router, "POST", "/api/v1/auth/register", map[string]string{
		"username": username,
		"name":     username,
		"email":    email,
		"password": password,
	}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := testutil.ParseResponse(w)
	return resp["data"].(map[string]interface{})
}

func TestRegisterFirstUserIsAdmin(t *testing.T) {
	router, _ := setupAuthTest(t)

	first := registerUser(t, router, "founder", "founder@example.com", "password123")
	if first["role"] != entity.RoleAdmin {
		t.Errorf("Expected first user role admin, got %v", first["role"])
	}

	second := registerUser(t, router, "employee", "employee@example.com", "password123")
	if second["role"] != entity.RoleMember {
		t.Errorf("Expected second user role member, got %v", second["role"])
	}

	insider := registerUser(t, router, "insider", "insider@zime.ai", "password123")
	if insider["role"] != entity.RoleAdmin {
		t.Errorf("Expected zime.ai user role admin, got %v", insider["role"])
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	router, _ := setupAuthTest(t)

	registerUser(t, router, "original", "dup@example.com", "password123")

	w := testutil.DoRequest(router, "POST", "/api/v1/auth/register", map[string]string{
		"username": "copycat",
		"name":     "copycat",
		"email":    "dup@example.com",
		"password": "password123",
	}, "")
	if w.Code != http.StatusConflict {
		t.Errorf("Expected 409 for duplicate email, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	router, _ := setupAuthTest(t)

	w := testutil.DoRequest(router, "POST", "/api/v1/auth/register", map[string]string{
		"username": "weak",
		"name":     "weak",
		"email":    "weak@example.com",
		"password": "short",
	}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for short password, got %d: %s", w.Code, w.Body.String())
	}
}

func TestLoginReturnsTokens(t *testing.T) {
	router, _ := setupAuthTest(t)

	registerUser(t, router, "login", "login@example.com", "password123")

	w := testutil.DoRequest(router, "POST", "/api/v1/auth/login", map[string]string{
		"email":    "login@example.com",
		"password": "password123",
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	tokens := data["tokens"].(map[string]interface{})
	if tokens["access_token"] == nil || tokens["access_token"] == "" {
		t.Error("Expected non-empty access token")
	}

	// The issued token works against a protected route
	access := tokens["access_token"].(string)
	w = testutil.DoRequest(router, "GET", "/api/v1/auth/me", nil, access)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 from /auth/me with issued token, got %d: %s", w.Code, w.Body.String())
	}
}

func TestLoginWrongPasswordUnauthorized(t *testing.T) {
	router, _ := setupAuthTest(t)

	registerUser(t, router, "victim", "victim@example.com", "password123")

	w := testutil.DoRequest(router, "POST", "/api/v1/auth/login", map[string]string{
		"email":    "victim@example.com",
		"password": "wrongpassword",
	}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for wrong password, got %d: %s", w.Code, w.Body.String())
	}
}

func TestLoginInactiveUserRejected(t *testing.T) {
	router, db := setupAuthTest(t)

	registerUser(t, router, "frozen", "frozen@example.com", "password123")
	db.Model(&entity.User{}).Where("email = ?", "frozen@example.com").Update("is_active", false)

	w := testutil.DoRequest(router, "POST", "/api/v1/auth/login", map[string]string{
		"email":    "frozen@example.com",
		"password": "password123",
	}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for inactive user, got %d: %s", w.Code, w.Body.String())
	}
}
