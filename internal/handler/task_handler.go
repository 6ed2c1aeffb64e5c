package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/rohan-singh987/zimedash/internal/service"
)

// TaskHandler 任务处理器
type TaskHandler struct {
	svc *service.TaskService
}

// NewTaskHandler 创建任务处理器
func NewTaskHandler(svc *service.TaskService) *TaskHandler {
	return &TaskHandler{svc: svc}
}

func taskFilters(c *gin.Context) map[string]interface{} {
	filters := map[string]interface{}{}
	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}
	if priority := c.Query("priority"); priority != "" {
		filters["priority"] = priority
	}
	if assignee := c.Query("assignee_id"); assignee != "" {
		filters["assignee_id"] = assignee
	}
	if archived := c.Query("archived"); archived != "" {
		filters["archived"] = archived == "true"
	}
	return filters
}

func taskListResponse(c *gin.Context, result *service.TaskListResult) {
	Success(c, ListResponse{
		Items: result.Items,
		Pagination: &Pagination{
			Page:       result.Page,
			PageSize:   result.PageSize,
			Total:      result.Total,
			TotalPages: result.TotalPages,
		},
	})
}

// ListByProject 获取项目任务列表
// GET /api/v1/projects/:id/tasks
func (h *TaskHandler) ListByProject(c *gin.Context) {
	page, pageSize := GetPagination(c)
	result, err := h.svc.ListByProject(c.Request.Context(), c.Param("id"), page, pageSize, taskFilters(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	taskListResponse(c, result)
}

// Create 在项目下创建任务
// POST /api/v1/projects/:id/tasks
func (h *TaskHandler) Create(c *gin.Context) {
	var req service.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	task, err := h.svc.Create(c.Request.Context(), GetUserID(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, task)
}

// Get 获取任务详情
// GET /api/v1/tasks/:id
func (h *TaskHandler) Get(c *gin.Context) {
	task, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, task)
}

// Update 更新任务，member 仅可更新自己名下任务的 status
// PUT /api/v1/tasks/:id
func (h *TaskHandler) Update(c *gin.Context) {
	var req service.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	task, err := h.svc.Update(c.Request.Context(), GetUserID(c), GetRole(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, task)
}

// Delete 删除任务
// DELETE /api/v1/tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), GetUserID(c), GetRole(c), c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}

// My 获取当前用户名下的任务
// GET /api/v1/tasks/my
func (h *TaskHandler) My(c *gin.Context) {
	page, pageSize := GetPagination(c)
	result, err := h.svc.MyTasks(c.Request.Context(), GetUserID(c), page, pageSize, taskFilters(c))
	if err != nil {
		HandleError(c, err)
		return
	}
	taskListResponse(c, result)
}

// AddComment 添加任务评论
// POST /api/v1/tasks/:id/comments
func (h *TaskHandler) AddComment(c *gin.Context) {
	var req service.AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	comment, err := h.svc.AddComment(c.Request.Context(), GetUserID(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, comment)
}

// ListComments 获取任务评论
// GET /api/v1/tasks/:id/comments
func (h *TaskHandler) ListComments(c *gin.Context) {
	comments, err := h.svc.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{"items": comments})
}

// AddDependency 添加任务依赖
// POST /api/v1/tasks/:id/dependencies
func (h *TaskHandler) AddDependency(c *gin.Context) {
	var req service.AddDependencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	dep, err := h.svc.AddDependency(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, dep)
}

// RemoveDependency 移除任务依赖
// DELETE /api/v1/tasks/:id/dependencies/:depId
func (h *TaskHandler) RemoveDependency(c *gin.Context) {
	if err := h.svc.RemoveDependency(c.Request.Context(), c.Param("id"), c.Param("depId")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}
