package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/rohan-singh987/zimedash/internal/entity"
)

// TaskRepository 任务仓库
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建任务仓库
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// FindByID 根据ID查找任务
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*entity.Task, error) {
	var task entity.Task
	err := r.db.WithContext(ctx).
		Preload("Project").
		Preload("Assignee").
		Where("id = ?", id).
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

// CreateWithCounter 创建任务并在同一事务内递增项目total_tasks。
// 直接以Done创建时completed_tasks同步递增。
func (r *TaskRepository) CreateWithCounter(ctx context.Context, task *entity.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{
			"total_tasks": gorm.Expr("total_tasks + 1"),
		}
		if task.Status == entity.TaskStatusDone {
			updates["completed_tasks"] = gorm.Expr("completed_tasks + 1")
		}
		return tx.Model(&entity.Project{}).
			Where("id = ?", task.ProjectID).
			Updates(updates).Error
	})
}

// UpdateWithTransition 保存任务并在同一事务内按Done状态迁移调整completed_tasks。
// wasDone/isDone相同时（含Done→Done重存）计数器不动。
func (r *TaskRepository) UpdateWithTransition(ctx context.Context, task *entity.Task, wasDone, isDone bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(task).Error; err != nil {
			return err
		}
		switch {
		case !wasDone && isDone:
			return tx.Model(&entity.Project{}).
				Where("id = ?", task.ProjectID).
				Update("completed_tasks", gorm.Expr("completed_tasks + 1")).Error
		case wasDone && !isDone:
			return tx.Model(&entity.Project{}).
				Where("id = ?", task.ProjectID).
				Update("completed_tasks", gorm.Expr("completed_tasks - 1")).Error
		}
		return nil
	})
}

// DeleteWithCounter 删除任务及其评论、依赖，并在同一事务内递减项目计数器
func (r *TaskRepository) DeleteWithCounter(ctx context.Context, task *entity.Task) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", task.ID).Delete(&entity.TaskComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ? OR depends_on_id = ?", task.ID, task.ID).
			Delete(&entity.TaskDependency{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", task.ID).Delete(&entity.Task{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}

		updates := map[string]interface{}{
			"total_tasks": gorm.Expr("total_tasks - 1"),
		}
		if task.Status == entity.TaskStatusDone {
			updates["completed_tasks"] = gorm.Expr("completed_tasks - 1")
		}
		return tx.Model(&entity.Project{}).
			Where("id = ?", task.ProjectID).
			Updates(updates).Error
	})
}

// ListByProject 获取项目任务列表（分页）
func (r *TaskRepository) ListByProject(ctx context.Context, projectID string, page, pageSize int, filters map[string]interface{}) ([]entity.Task, int64, error) {
	var tasks []entity.Task
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Task{}).
		Where("project_id = ?", projectID)

	if status, ok := filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}
	if priority, ok := filters["priority"].(string); ok && priority != "" {
		query = query.Where("priority = ?", priority)
	}
	if assigneeID, ok := filters["assignee_id"].(string); ok && assigneeID != "" {
		query = query.Where("assignee_id = ?", assigneeID)
	}
	if archived, ok := filters["archived"].(bool); ok {
		query = query.Where("archived = ?", archived)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Assignee").
		Preload("Creator").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&tasks).Error

	return tasks, total, err
}

// ListByAssignee 获取指派给用户的任务（分页）
func (r *TaskRepository) ListByAssignee(ctx context.Context, userID string, page, pageSize int, filters map[string]interface{}) ([]entity.Task, int64, error) {
	var tasks []entity.Task
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Task{}).
		Where("assignee_id = ?", userID)

	if status, ok := filters["status"].(string); ok && status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Project").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&tasks).Error

	return tasks, total, err
}

// ListAllByProject 获取项目全部任务（导出用，不分页）
func (r *TaskRepository) ListAllByProject(ctx context.Context, projectID string) ([]entity.Task, error) {
	var tasks []entity.Task
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Preload("Assignee").
		Order("created_at ASC").
		Find(&tasks).Error
	return tasks, err
}

// AddComment 添加评论
func (r *TaskRepository) AddComment(ctx context.Context, comment *entity.TaskComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

// ListComments 获取评论列表
func (r *TaskRepository) ListComments(ctx context.Context, taskID string) ([]entity.TaskComment, error) {
	var comments []entity.TaskComment
	err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Preload("Author").
		Order("created_at DESC").
		Find(&comments).Error
	return comments, err
}

// AddDependency 添加依赖
func (r *TaskRepository) AddDependency(ctx context.Context, dep *entity.TaskDependency) error {
	err := r.db.WithContext(ctx).Create(dep).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}

// RemoveDependency 移除依赖
func (r *TaskRepository) RemoveDependency(ctx context.Context, taskID, depID string) error {
	result := r.db.WithContext(ctx).
		Where("task_id = ? AND id = ?", taskID, depID).
		Delete(&entity.TaskDependency{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountByAssignee 按状态统计用户任务数
func (r *TaskRepository) CountByAssignee(ctx context.Context, userID string) (map[string]int64, error) {
	var results []struct {
		Status string `gorm:"column:status"`
		Count  int64  `gorm:"column:count"`
	}
	err := r.db.WithContext(ctx).
		Model(&entity.Task{}).
		Select("status, COUNT(*) as count").
		Where("assignee_id = ?", userID).
		Group("status").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(results))
	for _, row := range results {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
