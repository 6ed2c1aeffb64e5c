package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/rohan-singh987/zimedash/internal/entity"
)

// ProjectRepository 项目仓库
type ProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository 创建项目仓库
func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// FindByID 根据ID查找项目
func (r *ProjectRepository) FindByID(ctx context.Context, id string) (*entity.Project, error) {
	var project entity.Project
	err := r.db.WithContext(ctx).
		Preload("Creator").
		Preload("Members").
		Preload("Members.User").
		Where("id = ?", id).
		First(&project).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &project, nil
}

// Create 创建项目
func (r *ProjectRepository) Create(ctx context.Context, project *entity.Project) error {
	return r.db.WithContext(ctx).Create(project).Error
}

// Update 更新项目
func (r *ProjectRepository) Update(ctx context.Context, project *entity.Project) error {
	return r.db.WithContext(ctx).Save(project).Error
}

// DeleteCascade 删除项目并级联删除其全部任务、评论、依赖和成员。
// 任务计数器随项目行一并丢弃。
func (r *ProjectRepository) DeleteCascade(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taskIDs []string
		if err := tx.Model(&entity.Task{}).
			Where("project_id = ?", id).
			Pluck("id", &taskIDs).Error; err != nil {
			return err
		}

		if len(taskIDs) > 0 {
			if err := tx.Where("task_id IN ?", taskIDs).Delete(&entity.TaskComment{}).Error; err != nil {
				return err
			}
			if err := tx.Where("task_id IN ? OR depends_on_id IN ?", taskIDs, taskIDs).
				Delete(&entity.TaskDependency{}).Error; err != nil {
				return err
			}
			if err := tx.Where("project_id = ?", id).Delete(&entity.Task{}).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("project_id = ?", id).Delete(&entity.ProjectMember{}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&entity.Project{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// List 获取项目列表（分页），scope先于状态/搜索过滤套用
func (r *ProjectRepository) List(ctx context.Context, page, pageSize int, scope func(*gorm.DB) *gorm.DB, filters map[string]interface{}) ([]entity.Project, int64, error) {
	var projects []entity.Project
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Project{}).Scopes(scope)

	if status, ok := filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if priority, ok := filters["priority"].(string); ok && priority != "" {
		query = query.Where("priority = ?", priority)
	}
	if archived, ok := filters["archived"].(bool); ok {
		query = query.Where("archived = ?", archived)
	}
	if q, ok := filters["q"].(string); ok && q != "" {
		pattern := "%" + q + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ?", pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Creator").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&projects).Error

	return projects, total, err
}

// AddMember 添加项目成员
func (r *ProjectRepository) AddMember(ctx context.Context, member *entity.ProjectMember) error {
	err := r.db.WithContext(ctx).Create(member).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

// RemoveMember 移除项目成员
func (r *ProjectRepository) RemoveMember(ctx context.Context, projectID, userID string) error {
	result := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&entity.ProjectMember{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindMember 查找项目成员
func (r *ProjectRepository) FindMember(ctx context.Context, projectID, userID string) (*entity.ProjectMember, error) {
	var member entity.ProjectMember
	err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &member, nil
}

// RecountTasks 按任务表重算项目计数器，用于修复历史数据漂移
func (r *ProjectRepository) RecountTasks(ctx context.Context, projectID string) (total, completed int64, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.Task{}).
			Where("project_id = ?", projectID).
			Count(&total).Error; err != nil {
			return err
		}
		if err := tx.Model(&entity.Task{}).
			Where("project_id = ? AND status = ?", projectID, entity.TaskStatusDone).
			Count(&completed).Error; err != nil {
			return err
		}
		result := tx.Model(&entity.Project{}).
			Where("id = ?", projectID).
			Updates(map[string]interface{}{
				"total_tasks":     total,
				"completed_tasks": completed,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	return total, completed, err
}
