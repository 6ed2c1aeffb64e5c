package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rohan-singh987/zimedash/internal/authz"
	"github.com/rohan-singh987/zimedash/internal/entity"
	"github.com/rohan-singh987/zimedash/internal/repository"
)

// TaskService 任务服务
type TaskService struct {
	taskRepo    *repository.TaskRepository
	projectRepo *repository.ProjectRepository
	matrix      *authz.Matrix
}

// NewTaskService 创建任务服务
func NewTaskService(taskRepo *repository.TaskRepository, projectRepo *repository.ProjectRepository, matrix *authz.Matrix) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		matrix:      matrix,
	}
}

// CreateTaskRequest 创建任务请求
type CreateTaskRequest struct {
	Title          string     `json:"title" binding:"required"`
	Description    string     `json:"description"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	AssigneeID     *string    `json:"assignee_id"`
	DueDate        *time.Time `json:"due_date"`
	StartDate      *time.Time `json:"start_date"`
	EstimatedHours *float64   `json:"estimated_hours"`
	Tags           []string   `json:"tags"`
}

// UpdateTaskRequest 更新任务请求，nil 字段表示不修改
type UpdateTaskRequest struct {
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	Status         *string    `json:"status"`
	Priority       *string    `json:"priority"`
	AssigneeID     *string    `json:"assignee_id"`
	DueDate        *time.Time `json:"due_date"`
	StartDate      *time.Time `json:"start_date"`
	EstimatedHours *float64   `json:"estimated_hours"`
	ActualHours    *float64   `json:"actual_hours"`
	Tags           []string   `json:"tags"`
	Archived       *bool      `json:"archived"`
}

// AddCommentRequest 添加评论请求
type AddCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// AddDependencyRequest 添加依赖请求
type AddDependencyRequest struct {
	DependsOnID string `json:"depends_on_id" binding:"required"`
}

// TaskListResult 任务列表结果
type TaskListResult struct {
	Items      []entity.Task `json:"items"`
	Total      int64         `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
}

func validateTags(tags []string) error {
	for _, tag := range tags {
		if tag == "" {
			return NewValidation("tag must not be empty")
		}
		if len(tag) > entity.MaxTagLength {
			return NewValidation("tag %q exceeds %d characters", tag, entity.MaxTagLength)
		}
	}
	return nil
}

func validateHours(hours *float64, field string) error {
	if hours != nil && *hours < 0 {
		return NewValidation("%s must not be negative", field)
	}
	return nil
}

// Create 创建任务并递增项目任务总数
func (s *TaskService) Create(ctx context.Context, userID, projectID string, req *CreateTaskRequest) (*entity.Task, error) {
	if _, err := s.projectRepo.FindByID(ctx, projectID); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = entity.TaskStatusPending
	}
	if !entity.ValidTaskStatus(status) {
		return nil, NewValidation("invalid task status: %s", status)
	}

	priority := req.Priority
	if priority == "" {
		priority = entity.TaskPriorityMedium
	}
	if !entity.ValidTaskPriority(priority) {
		return nil, NewValidation("invalid task priority: %s", priority)
	}

	if err := validateTags(req.Tags); err != nil {
		return nil, err
	}
	if err := validateHours(req.EstimatedHours, "estimated_hours"); err != nil {
		return nil, err
	}

	now := time.Now()
	task := &entity.Task{
		ID:             generateID(),
		Title:          req.Title,
		Description:    req.Description,
		Status:         status,
		Priority:       priority,
		ProjectID:      projectID,
		AssigneeID:     req.AssigneeID,
		CreatorID:      userID,
		DueDate:        req.DueDate,
		StartDate:      req.StartDate,
		EstimatedHours: req.EstimatedHours,
		Tags:           req.Tags,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if status == entity.TaskStatusDone {
		task.CompletedAt = &now
	}

	if err := s.taskRepo.CreateWithCounter(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return task, nil
}

// Get 获取任务详情
func (s *TaskService) Get(ctx context.Context, id string) (*entity.Task, error) {
	return s.taskRepo.FindByID(ctx, id)
}

// ListByProject 获取项目任务列表
func (s *TaskService) ListByProject(ctx context.Context, projectID string, page, pageSize int, filters map[string]interface{}) (*TaskListResult, error) {
	tasks, total, err := s.taskRepo.ListByProject(ctx, projectID, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return newTaskListResult(tasks, total, page, pageSize), nil
}

// MyTasks 获取当前用户名下的任务
func (s *TaskService) MyTasks(ctx context.Context, userID string, page, pageSize int, filters map[string]interface{}) (*TaskListResult, error) {
	tasks, total, err := s.taskRepo.ListByAssignee(ctx, userID, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("list my tasks: %w", err)
	}
	return newTaskListResult(tasks, total, page, pageSize), nil
}

func newTaskListResult(tasks []entity.Task, total int64, page, pageSize int) *TaskListResult {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}
	return &TaskListResult{
		Items:      tasks,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// Update 更新任务。先按变更字段做授权判定，再按 Done 迁移维护计数
func (s *TaskService) Update(ctx context.Context, userID, role, id string, req *UpdateTaskRequest) (*entity.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := changedFields(req)
	if len(fields) == 0 {
		return task, nil
	}

	if decision := s.matrix.CanMutateTaskFields(role, userID, task, fields); !decision.Allowed {
		return nil, NewForbidden(decision)
	}

	wasDone := task.Status == entity.TaskStatusDone

	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.Status != nil {
		if !entity.ValidTaskStatus(*req.Status) {
			return nil, NewValidation("invalid task status: %s", *req.Status)
		}
		task.Status = *req.Status
	}
	if req.Priority != nil {
		if !entity.ValidTaskPriority(*req.Priority) {
			return nil, NewValidation("invalid task priority: %s", *req.Priority)
		}
		task.Priority = *req.Priority
	}
	if req.AssigneeID != nil {
		if *req.AssigneeID == "" {
			task.AssigneeID = nil
		} else {
			task.AssigneeID = req.AssigneeID
		}
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	if req.StartDate != nil {
		task.StartDate = req.StartDate
	}
	if err := validateHours(req.EstimatedHours, "estimated_hours"); err != nil {
		return nil, err
	}
	if req.EstimatedHours != nil {
		task.EstimatedHours = req.EstimatedHours
	}
	if err := validateHours(req.ActualHours, "actual_hours"); err != nil {
		return nil, err
	}
	if req.ActualHours != nil {
		task.ActualHours = req.ActualHours
	}
	if req.Tags != nil {
		if err := validateTags(req.Tags); err != nil {
			return nil, err
		}
		task.Tags = req.Tags
	}
	if req.Archived != nil {
		task.Archived = *req.Archived
	}

	isDone := task.Status == entity.TaskStatusDone
	switch {
	case isDone && !wasDone:
		now := time.Now()
		task.CompletedAt = &now
	case !isDone && wasDone:
		task.CompletedAt = nil
	}
	task.UpdatedAt = time.Now()

	if err := s.taskRepo.UpdateWithTransition(ctx, task, wasDone, isDone); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	return task, nil
}

// changedFields 收集请求中实际出现的字段名，用于权限判定
func changedFields(req *UpdateTaskRequest) []string {
	var fields []string
	if req.Title != nil {
		fields = append(fields, "title")
	}
	if req.Description != nil {
		fields = append(fields, "description")
	}
	if req.Status != nil {
		fields = append(fields, "status")
	}
	if req.Priority != nil {
		fields = append(fields, "priority")
	}
	if req.AssigneeID != nil {
		fields = append(fields, "assignee_id")
	}
	if req.DueDate != nil {
		fields = append(fields, "due_date")
	}
	if req.StartDate != nil {
		fields = append(fields, "start_date")
	}
	if req.EstimatedHours != nil {
		fields = append(fields, "estimated_hours")
	}
	if req.ActualHours != nil {
		fields = append(fields, "actual_hours")
	}
	if req.Tags != nil {
		fields = append(fields, "tags")
	}
	if req.Archived != nil {
		fields = append(fields, "archived")
	}
	return fields
}

// Delete 删除任务并回退项目计数
func (s *TaskService) Delete(ctx context.Context, userID, role, id string) error {
	task, err := s.taskRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	project, err := s.projectRepo.FindByID(ctx, task.ProjectID)
	if err != nil {
		return err
	}

	if decision := s.matrix.CanDeleteTask(role, userID, task, project.CreatorID); !decision.Allowed {
		return NewForbidden(decision)
	}

	if err := s.taskRepo.DeleteWithCounter(ctx, task); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// AddComment 添加任务评论
func (s *TaskService) AddComment(ctx context.Context, userID, taskID string, req *AddCommentRequest) (*entity.TaskComment, error) {
	if len(req.Content) > entity.MaxCommentLength {
		return nil, NewValidation("comment exceeds %d characters", entity.MaxCommentLength)
	}

	if _, err := s.taskRepo.FindByID(ctx, taskID); err != nil {
		return nil, err
	}

	comment := &entity.TaskComment{
		ID:        generateID(),
		TaskID:    taskID,
		AuthorID:  userID,
		Content:   req.Content,
		CreatedAt: time.Now(),
	}
	if err := s.taskRepo.AddComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}
	return comment, nil
}

// ListComments 获取任务评论
func (s *TaskService) ListComments(ctx context.Context, taskID string) ([]entity.TaskComment, error) {
	return s.taskRepo.ListComments(ctx, taskID)
}

// AddDependency 添加任务依赖
func (s *TaskService) AddDependency(ctx context.Context, taskID string, req *AddDependencyRequest) (*entity.TaskDependency, error) {
	if taskID == req.DependsOnID {
		return nil, NewValidation("task cannot depend on itself")
	}

	if _, err := s.taskRepo.FindByID(ctx, taskID); err != nil {
		return nil, err
	}
	if _, err := s.taskRepo.FindByID(ctx, req.DependsOnID); err != nil {
		return nil, err
	}

	dep := &entity.TaskDependency{
		ID:          generateID(),
		TaskID:      taskID,
		DependsOnID: req.DependsOnID,
		CreatedAt:   time.Now(),
	}
	if err := s.taskRepo.AddDependency(ctx, dep); err != nil {
		return nil, err
	}
	return dep, nil
}

// RemoveDependency 移除任务依赖
func (s *TaskService) RemoveDependency(ctx context.Context, taskID, depID string) error {
	return s.taskRepo.RemoveDependency(ctx, taskID, depID)
}
