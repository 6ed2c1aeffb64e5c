package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rohan-singh987/zimedash/internal/authz"
	"github.com/rohan-singh987/zimedash/internal/config"
	"github.com/rohan-singh987/zimedash/internal/entity"
	"github.com/rohan-singh987/zimedash/internal/repository"
)

// Services 服务集合
type Services struct {
	Auth    *AuthService
	User    *UserService
	Project *ProjectService
	Task    *TaskService
	Export  *ExportService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, rdb *redis.Client, matrix *authz.Matrix, cfg *config.Config) *Services {
	return &Services{
		Auth:    NewAuthService(repos.User, rdb, cfg),
		User:    NewUserService(repos.User, repos.Task, rdb, matrix),
		Project: NewProjectService(repos.Project, matrix),
		Task:    NewTaskService(repos.Task, repos.Project, matrix),
		Export:  NewExportService(repos.Task, repos.Project),
	}
}

// ForbiddenError 授权拒绝，携带拒绝原因分类
type ForbiddenError struct {
	Reason  authz.Reason
	Message string
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

// NewForbidden 从授权判定结果构造错误
func NewForbidden(d authz.Decision) *ForbiddenError {
	return &ForbiddenError{Reason: d.Reason, Message: d.Message}
}

// ValidationError 输入校验失败
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidation 构造校验错误
func NewValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ============================================================
// User Service
// ============================================================

// UserService 用户服务
type UserService struct {
	repo     *repository.UserRepository
	taskRepo *repository.TaskRepository
	rdb      *redis.Client
	matrix   *authz.Matrix
}

// NewUserService 创建用户服务
func NewUserService(repo *repository.UserRepository, taskRepo *repository.TaskRepository, rdb *redis.Client, matrix *authz.Matrix) *UserService {
	return &UserService{repo: repo, taskRepo: taskRepo, rdb: rdb, matrix: matrix}
}

// UserListResult 用户列表结果
type UserListResult struct {
	Items      []entity.User `json:"items"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}

// UpdateUserRequest 更新用户请求
type UpdateUserRequest struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
	IsActive *bool   `json:"is_active"`
}

// UserStats 用户任务统计
type UserStats struct {
	UserID   string           `json:"user_id"`
	Assigned int64            `json:"assigned"`
	ByStatus map[string]int64 `json:"by_status"`
}

// List 获取用户列表
func (s *UserService) List(ctx context.Context, page, pageSize int, filters map[string]interface{}) (*UserListResult, error) {
	users, total, err := s.repo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &UserListResult{
		Items:      users,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Get 获取用户详情
func (s *UserService) Get(ctx context.Context, id string) (*entity.User, error) {
	return s.repo.FindByID(ctx, id)
}

// Update 更新用户资料
func (s *UserService) Update(ctx context.Context, id string, req *UpdateUserRequest) (*entity.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != "" {
		user.Name = *req.Name
	}
	if req.Username != nil && *req.Username != "" {
		user.Username = *req.Username
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	user.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

// ChangeRole 变更用户角色，admin不能把自己降级
func (s *UserService) ChangeRole(ctx context.Context, actorID, actorRole, targetID, newRole string) (*entity.User, error) {
	if !entity.ValidRole(newRole) {
		return nil, NewValidation("invalid role: %s", newRole)
	}

	if d := s.matrix.CanChangeRole(actorRole, actorID, targetID, newRole); !d.Allowed {
		return nil, NewForbidden(d)
	}

	user, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRole(ctx, targetID, newRole); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	user.Role = newRole
	return user, nil
}

// Delete 删除用户，自删一律拒绝
func (s *UserService) Delete(ctx context.Context, actorID, targetID string) error {
	if d := s.matrix.CanDeleteUser(actorID, targetID); !d.Allowed {
		return NewForbidden(d)
	}

	if _, err := s.repo.FindByID(ctx, targetID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, targetID)
}

// statsCacheTTL 用户统计缓存时长
const statsCacheTTL = time.Minute

// Stats 获取用户任务统计，短暂缓存在Redis
func (s *UserService) Stats(ctx context.Context, userID string) (*UserStats, error) {
	cacheKey := "stats:user:" + userID
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			var stats UserStats
			if json.Unmarshal([]byte(cached), &stats) == nil {
				return &stats, nil
			}
		}
	}

	if _, err := s.repo.FindByID(ctx, userID); err != nil {
		return nil, err
	}

	byStatus, err := s.taskRepo.CountByAssignee(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}

	var assigned int64
	for _, n := range byStatus {
		assigned += n
	}

	stats := &UserStats{
		UserID:   userID,
		Assigned: assigned,
		ByStatus: byStatus,
	}

	if s.rdb != nil {
		if data, err := json.Marshal(stats); err == nil {
			s.rdb.Set(ctx, cacheKey, data, statsCacheTTL)
		}
	}
	return stats, nil
}
