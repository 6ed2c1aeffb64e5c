package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rohan-singh987/zimedash/internal/authz"
	"github.com/rohan-singh987/zimedash/internal/entity"
	"github.com/rohan-singh987/zimedash/internal/repository"
)

// ProjectService 项目服务
type ProjectService struct {
	projectRepo *repository.ProjectRepository
	matrix      *authz.Matrix
}

// NewProjectService 创建项目服务
func NewProjectService(projectRepo *repository.ProjectRepository, matrix *authz.Matrix) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		matrix:      matrix,
	}
}

// CreateProjectRequest 创建项目请求
type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Status      string `json:"status"`
	Priority    string `json:"priority"`
}

// UpdateProjectRequest 更新项目请求。计数器是派生值，不开放给客户端
type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	Archived    *bool   `json:"archived"`
}

// AddMemberRequest 添加成员请求
type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Role   string `json:"role"`
}

// ProjectListResult 项目列表结果
type ProjectListResult struct {
	Items      []entity.Project `json:"items"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalPages int              `json:"total_pages"`
}

// List 获取项目列表，先套归属范围再交状态/搜索过滤
func (s *ProjectService) List(ctx context.Context, userID, role string, page, pageSize int, filters map[string]interface{}) (*ProjectListResult, error) {
	scope := s.matrix.ProjectVisibility(userID, role)
	projects, total, err := s.projectRepo.List(ctx, page, pageSize, scope, filters)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}

	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &ProjectListResult{
		Items:      projects,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Get 获取项目详情，非全局角色仅限创建者或成员
func (s *ProjectService) Get(ctx context.Context, userID, role, id string) (*entity.Project, error) {
	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.matrix.HasGlobalAccess(role) && !s.isCreatorOrMember(project, userID) {
		return nil, NewForbidden(authz.Deny(authz.ReasonOwnershipInsufficient, "you are not a member of this project"))
	}

	return project, nil
}

func (s *ProjectService) isCreatorOrMember(project *entity.Project, userID string) bool {
	if project.CreatorID == userID {
		return true
	}
	for _, m := range project.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// Create 创建项目
func (s *ProjectService) Create(ctx context.Context, userID string, req *CreateProjectRequest) (*entity.Project, error) {
	status := req.Status
	if status == "" {
		status = entity.ProjectStatusPlanned
	}
	if !entity.ValidProjectStatus(status) {
		return nil, NewValidation("invalid project status: %s", status)
	}

	priority := req.Priority
	if priority == "" {
		priority = entity.ProjectPriorityMedium
	}
	if !entity.ValidProjectPriority(priority) {
		return nil, NewValidation("invalid project priority: %s", priority)
	}

	now := time.Now()
	project := &entity.Project{
		ID:          generateID(),
		Name:        req.Name,
		Description: req.Description,
		Status:      status,
		Priority:    priority,
		CreatorID:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return project, nil
}

// Update 更新项目，creator与计数器不可变
func (s *ProjectService) Update(ctx context.Context, userID, role, id string, req *UpdateProjectRequest) (*entity.Project, error) {
	project, err := s.projectRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.matrix.HasGlobalAccess(role) && !s.isCreatorOrMember(project, userID) {
		return nil, NewForbidden(authz.Deny(authz.ReasonOwnershipInsufficient, "you are not a member of this project"))
	}

	if req.Name != nil && *req.Name != "" {
		project.Name = *req.Name
	}
	if req.Description != nil {
		project.Description = *req.Description
	}
	if req.Status != nil {
		if !entity.ValidProjectStatus(*req.Status) {
			return nil, NewValidation("invalid project status: %s", *req.Status)
		}
		project.Status = *req.Status
	}
	if req.Priority != nil {
		if !entity.ValidProjectPriority(*req.Priority) {
			return nil, NewValidation("invalid project priority: %s", *req.Priority)
		}
		project.Priority = *req.Priority
	}
	if req.Archived != nil {
		project.Archived = *req.Archived
	}
	project.UpdatedAt = time.Now()

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return project, nil
}

// Delete 删除项目并级联删除其任务
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	return s.projectRepo.DeleteCascade(ctx, id)
}

// AddMember 添加项目成员
func (s *ProjectService) AddMember(ctx context.Context, userID, role, projectID string, req *AddMemberRequest) (*entity.ProjectMember, error) {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if !s.matrix.HasGlobalAccess(role) && !s.isCreatorOrMember(project, userID) {
		return nil, NewForbidden(authz.Deny(authz.ReasonOwnershipInsufficient, "you are not a member of this project"))
	}

	memberRole := req.Role
	if memberRole == "" {
		memberRole = entity.ProjectMemberRoleMember
	}
	if memberRole != entity.ProjectMemberRoleManager && memberRole != entity.ProjectMemberRoleMember {
		return nil, NewValidation("invalid member role: %s", memberRole)
	}

	member := &entity.ProjectMember{
		ID:        generateID(),
		ProjectID: projectID,
		UserID:    req.UserID,
		Role:      memberRole,
		JoinedAt:  time.Now(),
	}

	if err := s.projectRepo.AddMember(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

// RemoveMember 移除项目成员
func (s *ProjectService) RemoveMember(ctx context.Context, userID, role, projectID, memberUserID string) error {
	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		return err
	}

	if !s.matrix.HasGlobalAccess(role) && !s.isCreatorOrMember(project, userID) {
		return NewForbidden(authz.Deny(authz.ReasonOwnershipInsufficient, "you are not a member of this project"))
	}

	return s.projectRepo.RemoveMember(ctx, projectID, memberUserID)
}

// Recount 重算项目计数器
func (s *ProjectService) Recount(ctx context.Context, projectID string) (total, completed int64, err error) {
	return s.projectRepo.RecountTasks(ctx, projectID)
}
