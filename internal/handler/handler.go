package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rohan-singh987/zimedash/internal/authz"
	"github.com/rohan-singh987/zimedash/internal/repository"
	"github.com/rohan-singh987/zimedash/internal/service"
)

// Handlers 处理器集合
type Handlers struct {
	Auth    *AuthHandler
	User    *UserHandler
	Project *ProjectHandler
	Task    *TaskHandler
}

// NewHandlers 创建处理器集合
func NewHandlers(svc *service.Services) *Handlers {
	return &Handlers{
		Auth:    NewAuthHandler(svc.Auth),
		User:    NewUserHandler(svc.User),
		Project: NewProjectHandler(svc.Project, svc.Export),
		Task:    NewTaskHandler(svc.Task),
	}
}

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ListResponse 列表响应结构
type ListResponse struct {
	Items      interface{} `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// Pagination 分页信息
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// Success 成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(200, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Created 创建成功响应
func Created(c *gin.Context, data interface{}) {
	c.JSON(201, Response{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// Error 错误响应
func Error(c *gin.Context, code int, message string) {
	statusCode := code / 100
	if statusCode < 100 || statusCode > 599 {
		statusCode = 500
	}
	c.JSON(statusCode, Response{
		Code:    code,
		Message: message,
	})
}

// BadRequest 参数错误响应
func BadRequest(c *gin.Context, message string) {
	Error(c, 40000, message)
}

// Unauthorized 未授权响应
func Unauthorized(c *gin.Context, message string) {
	Error(c, 40100, message)
}

// Forbidden 禁止访问响应
func Forbidden(c *gin.Context, message string) {
	Error(c, 40300, message)
}

// NotFound 资源不存在响应
func NotFound(c *gin.Context, message string) {
	Error(c, 40400, message)
}

// Conflict 资源冲突响应
func Conflict(c *gin.Context, message string) {
	Error(c, 40900, message)
}

// InternalError 服务器错误响应
func InternalError(c *gin.Context, message string) {
	Error(c, 50000, message)
}

// forbiddenCode 拒绝原因到错误码的映射
func forbiddenCode(reason authz.Reason) int {
	switch reason {
	case authz.ReasonPermissionInsufficient:
		return 40302
	case authz.ReasonRoleInsufficient:
		return 40303
	case authz.ReasonOwnershipInsufficient:
		return 40304
	case authz.ReasonFieldNotAllowed:
		return 40305
	default:
		return 40300
	}
}

// HandleError 按服务层错误类型写出统一响应
func HandleError(c *gin.Context, err error) {
	var forbidden *service.ForbiddenError
	if errors.As(err, &forbidden) {
		Error(c, forbiddenCode(forbidden.Reason), forbidden.Message)
		return
	}

	var validation *service.ValidationError
	if errors.As(err, &validation) {
		BadRequest(c, validation.Error())
		return
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		NotFound(c, "Resource not found")
	case errors.Is(err, repository.ErrDuplicate):
		Conflict(c, "Resource already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		Unauthorized(c, "Invalid email or password")
	default:
		InternalError(c, err.Error())
	}
}

// GetUserID 从上下文获取用户ID
func GetUserID(c *gin.Context) string {
	userID, _ := c.Get("user_id")
	if id, ok := userID.(string); ok {
		return id
	}
	return ""
}

// GetRole 从上下文获取用户角色
func GetRole(c *gin.Context) string {
	role, _ := c.Get("role")
	if r, ok := role.(string); ok {
		return r
	}
	return ""
}

// GetPagination 从请求获取分页参数
func GetPagination(c *gin.Context) (page, pageSize int) {
	page = 1
	pageSize = 20

	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}

	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}

	return page, pageSize
}
