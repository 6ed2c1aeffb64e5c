package authz

import (
	"gorm.io/gorm"

	"github.com/rohan-singh987/zimedash/internal/entity"
)

// Reason 拒绝原因分类，由边界层映射为具体的响应消息
type Reason string

const (
	ReasonRoleInsufficient       Reason = "role_insufficient"
	ReasonPermissionInsufficient Reason = "permission_insufficient"
	ReasonOwnershipInsufficient  Reason = "ownership_insufficient"
	ReasonFieldNotAllowed        Reason = "field_not_allowed"
)

// Decision 授权判定结果
type Decision struct {
	Allowed bool
	Reason  Reason
	Message string
}

// Allow 允许
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny 拒绝
func Deny(reason Reason, message string) Decision {
	return Decision{Allowed: false, Reason: reason, Message: message}
}

// ProjectVisibility 项目可见范围：全局角色看全部，否则仅创建者或成员。
// 作为GORM scope使用，在状态/搜索过滤之前先套用。
func (m *Matrix) ProjectVisibility(userID, role string) func(*gorm.DB) *gorm.DB {
	if m.HasGlobalAccess(role) {
		return func(db *gorm.DB) *gorm.DB {
			return db
		}
	}
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(
			"projects.creator_id = ? OR projects.id IN (SELECT project_id FROM project_members WHERE user_id = ?)",
			userID, userID,
		)
	}
}

// CanMutateTaskFields 任务字段级更新判定。
// admin/manager 可改任意字段；member 仅可在指派给自己的任务上改 status。
func (m *Matrix) CanMutateTaskFields(role, userID string, task *entity.Task, fields []string) Decision {
	if role == entity.RoleAdmin || role == entity.RoleManager {
		return Allow()
	}
	if role != entity.RoleMember {
		return Deny(ReasonRoleInsufficient, "unknown role: "+role)
	}
	if task.AssigneeID == nil || *task.AssigneeID != userID {
		return Deny(ReasonOwnershipInsufficient, "task is not assigned to you")
	}
	for _, f := range fields {
		if f != "status" {
			return Deny(ReasonFieldNotAllowed, "members may only change task status, got field: "+f)
		}
	}
	return Allow()
}

// CanDeleteTask 任务删除判定：admin 任意；manager 仅限自己创建的项目；member 不允许
func (m *Matrix) CanDeleteTask(role, userID string, task *entity.Task, projectCreatorID string) Decision {
	switch role {
	case entity.RoleAdmin:
		return Allow()
	case entity.RoleManager:
		if projectCreatorID == userID {
			return Allow()
		}
		return Deny(ReasonOwnershipInsufficient, "only the project creator may delete its tasks")
	default:
		return Deny(ReasonRoleInsufficient, "members may not delete tasks")
	}
}

// CanChangeRole 角色变更判定：admin 不能把自己降级为非 admin
func (m *Matrix) CanChangeRole(actorRole, actorID, targetID, newRole string) Decision {
	if actorID == targetID && actorRole == entity.RoleAdmin && newRole != entity.RoleAdmin {
		return Deny(ReasonOwnershipInsufficient, "admins cannot demote themselves")
	}
	return Allow()
}

// CanDeleteUser 用户删除判定：任何角色都不能删除自己
func (m *Matrix) CanDeleteUser(actorID, targetID string) Decision {
	if actorID == targetID {
		return Deny(ReasonOwnershipInsufficient, "you cannot delete your own account")
	}
	return Allow()
}
