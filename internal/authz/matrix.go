package authz

import (
	"github.com/rohan-singh987/zimedash/internal/entity"
)

// Resource 资源名称
const (
	ResourceProjects = "projects"
	ResourceTasks    = "tasks"
	ResourceUsers    = "users"
)

// Action 资源操作
const (
	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// RolePermissions 单个角色的资源权限
type RolePermissions struct {
	Resources map[string][]string
	Global    bool
}

// Matrix 角色权限矩阵，进程启动时构造一次，之后只读
type Matrix struct {
	roles map[string]RolePermissions
}

// NewMatrix 从角色权限表构造矩阵
func NewMatrix(roles map[string]RolePermissions) *Matrix {
	return &Matrix{roles: roles}
}

// DefaultMatrix 内置角色权限矩阵
func DefaultMatrix() *Matrix {
	return NewMatrix(map[string]RolePermissions{
		entity.RoleAdmin: {
			Resources: map[string][]string{
				ResourceProjects: {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
				ResourceTasks:    {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
				ResourceUsers:    {ActionRead, ActionUpdate},
			},
			Global: true,
		},
		entity.RoleManager: {
			Resources: map[string][]string{
				ResourceProjects: {ActionRead, ActionUpdate},
				ResourceTasks:    {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
				ResourceUsers:    {ActionRead},
			},
			Global: false,
		},
		entity.RoleMember: {
			Resources: map[string][]string{
				ResourceProjects: {ActionRead},
				ResourceTasks:    {ActionRead, ActionUpdate},
				ResourceUsers:    {ActionRead},
			},
			Global: false,
		},
	})
}

// HasPermission 判断角色是否允许在资源上执行操作；未知角色或资源一律拒绝
func (m *Matrix) HasPermission(role, resource, action string) bool {
	perms, ok := m.roles[role]
	if !ok {
		return false
	}
	actions, ok := perms.Resources[resource]
	if !ok {
		return false
	}
	for _, a := range actions {
		if a == action {
			return true
		}
	}
	return false
}

// HasGlobalAccess 判断角色是否可跨越归属范围查看全部记录
func (m *Matrix) HasGlobalAccess(role string) bool {
	perms, ok := m.roles[role]
	if !ok {
		return false
	}
	return perms.Global
}
