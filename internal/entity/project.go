package entity

import (
	"time"
)

// Project 项目实体
type Project struct {
	ID             string     `json:"id" gorm:"primaryKey;size:32"`
	Name           string     `json:"name" gorm:"size:128;not null"`
	Description    string     `json:"description" gorm:"type:text"`
	Status         string     `json:"status" gorm:"size:16;not null;default:Planned"`
	Priority       string     `json:"priority" gorm:"size:16;not null;default:Medium"`
	CreatorID      string     `json:"creator_id" gorm:"size:32;not null;index"`
	TotalTasks     int        `json:"total_tasks" gorm:"not null;default:0"`
	CompletedTasks int        `json:"completed_tasks" gorm:"not null;default:0"`
	Archived       bool       `json:"archived" gorm:"not null;default:false"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty" gorm:"index"`

	// 关联
	Creator *User           `json:"creator,omitempty" gorm:"foreignKey:CreatorID"`
	Members []ProjectMember `json:"members,omitempty" gorm:"foreignKey:ProjectID"`
	Tasks   []Task          `json:"tasks,omitempty" gorm:"foreignKey:ProjectID"`
}

func (Project) TableName() string {
	return "projects"
}

// ProjectMember 项目成员
type ProjectMember struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	ProjectID string    `json:"project_id" gorm:"size:32;not null;uniqueIndex:idx_project_members_proj_user"`
	UserID    string    `json:"user_id" gorm:"size:32;not null;uniqueIndex:idx_project_members_proj_user"`
	Role      string    `json:"role" gorm:"size:16;not null;default:member"`
	JoinedAt  time.Time `json:"joined_at"`

	// 关联
	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (ProjectMember) TableName() string {
	return "project_members"
}

// ProjectStatus 项目状态
const (
	ProjectStatusPlanned    = "Planned"
	ProjectStatusInProgress = "In Progress"
	ProjectStatusCompleted  = "Completed"
	ProjectStatusOnHold     = "On Hold"
	ProjectStatusCancelled  = "Cancelled"
)

// ProjectPriority 项目优先级
const (
	ProjectPriorityLow      = "Low"
	ProjectPriorityMedium   = "Medium"
	ProjectPriorityHigh     = "High"
	ProjectPriorityCritical = "Critical"
)

// ProjectMemberRole 项目内角色
const (
	ProjectMemberRoleManager = "manager"
	ProjectMemberRoleMember  = "member"
)

// ValidProjectStatus 校验项目状态取值
func ValidProjectStatus(status string) bool {
	switch status {
	case ProjectStatusPlanned, ProjectStatusInProgress, ProjectStatusCompleted,
		ProjectStatusOnHold, ProjectStatusCancelled:
		return true
	}
	return false
}

// ValidProjectPriority 校验项目优先级取值
func ValidProjectPriority(priority string) bool {
	switch priority {
	case ProjectPriorityLow, ProjectPriorityMedium, ProjectPriorityHigh, ProjectPriorityCritical:
		return true
	}
	return false
}
