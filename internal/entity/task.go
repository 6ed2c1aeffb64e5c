package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringArray JSONB字符串数组类型
type StringArray []string

func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("failed to scan StringArray: %v", value)
	}
	return json.Unmarshal(bytes, a)
}

// Task 任务实体
type Task struct {
	ID             string      `json:"id" gorm:"primaryKey;size:32"`
	ProjectID      string      `json:"project_id" gorm:"size:32;not null;index"`
	Title          string      `json:"title" gorm:"size:256;not null"`
	Description    string      `json:"description" gorm:"type:text"`
	Status         string      `json:"status" gorm:"size:16;not null;default:Pending"`
	Priority       string      `json:"priority" gorm:"size:16;not null;default:Medium"`
	AssigneeID     *string     `json:"assignee_id" gorm:"size:32;index"`
	CreatorID      string      `json:"creator_id" gorm:"size:32;not null"`
	DueDate        *time.Time  `json:"due_date"`
	StartDate      *time.Time  `json:"start_date"`
	CompletedAt    *time.Time  `json:"completed_at"`
	EstimatedHours *float64    `json:"estimated_hours" gorm:"type:decimal(8,2)"`
	ActualHours    *float64    `json:"actual_hours" gorm:"type:decimal(8,2)"`
	Tags           StringArray `json:"tags" gorm:"type:jsonb"`
	Archived       bool        `json:"archived" gorm:"not null;default:false"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`

	// 关联
	Project      *Project         `json:"project,omitempty" gorm:"foreignKey:ProjectID"`
	Assignee     *User            `json:"assignee,omitempty" gorm:"foreignKey:AssigneeID"`
	Creator      *User            `json:"creator,omitempty" gorm:"foreignKey:CreatorID"`
	Comments     []TaskComment    `json:"comments,omitempty" gorm:"foreignKey:TaskID"`
	Dependencies []TaskDependency `json:"dependencies,omitempty" gorm:"foreignKey:TaskID"`
}

func (Task) TableName() string {
	return "tasks"
}

// TaskComment 任务评论
type TaskComment struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	TaskID    string    `json:"task_id" gorm:"size:32;not null;index"`
	AuthorID  string    `json:"author_id" gorm:"size:32;not null"`
	Content   string    `json:"content" gorm:"size:500;not null"`
	CreatedAt time.Time `json:"created_at"`

	// 关联
	Author *User `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
}

func (TaskComment) TableName() string {
	return "task_comments"
}

// TaskDependency 任务依赖
type TaskDependency struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	TaskID      string    `json:"task_id" gorm:"size:32;not null;uniqueIndex:idx_task_deps_task_depends"`
	DependsOnID string    `json:"depends_on_id" gorm:"size:32;not null;uniqueIndex:idx_task_deps_task_depends"`
	CreatedAt   time.Time `json:"created_at"`
}

func (TaskDependency) TableName() string {
	return "task_dependencies"
}

// TaskStatus 任务状态
const (
	TaskStatusPending = "Pending"
	TaskStatusOngoing = "Ongoing"
	TaskStatusDone    = "Done"
	TaskStatusBlocked = "Blocked"
)

// TaskPriority 任务优先级
const (
	TaskPriorityLow    = "Low"
	TaskPriorityMedium = "Medium"
	TaskPriorityHigh   = "High"
)

// MaxTagLength 单个标签最大长度
const MaxTagLength = 30

// MaxCommentLength 评论内容最大长度
const MaxCommentLength = 500

// ValidTaskStatus 校验任务状态取值
func ValidTaskStatus(status string) bool {
	switch status {
	case TaskStatusPending, TaskStatusOngoing, TaskStatusDone, TaskStatusBlocked:
		return true
	}
	return false
}

// ValidTaskPriority 校验任务优先级取值
func ValidTaskPriority(priority string) bool {
	switch priority {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}
