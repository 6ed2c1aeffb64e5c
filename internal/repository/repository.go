package repository

import (
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate unique field")
)

// Repositories 仓库集合
type Repositories struct {
	User    *UserRepository
	Project *ProjectRepository
	Task    *TaskRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepository(db),
		Project: NewProjectRepository(db),
		Task:    NewTaskRepository(db),
	}
}
