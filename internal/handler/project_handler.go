package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/rohan-singh987/zimedash/internal/service"
)

// ProjectHandler 项目处理器
type ProjectHandler struct {
	svc       *service.ProjectService
	exportSvc *service.ExportService
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(svc *service.ProjectService, exportSvc *service.ExportService) *ProjectHandler {
	return &ProjectHandler{svc: svc, exportSvc: exportSvc}
}

// List 获取项目列表，非全局角色仅返回自己创建或参与的项目
// GET /api/v1/projects
func (h *ProjectHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)

	filters := map[string]interface{}{}
	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}
	if priority := c.Query("priority"); priority != "" {
		filters["priority"] = priority
	}
	if archived := c.Query("archived"); archived != "" {
		filters["archived"] = archived == "true"
	}
	if q := c.Query("q"); q != "" {
		filters["q"] = q
	}

	result, err := h.svc.List(c.Request.Context(), GetUserID(c), GetRole(c), page, pageSize, filters)
	if err != nil {
		HandleError(c, err)
		return
	}
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

// Get 获取项目详情
// GET /api/v1/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.svc.Get(c.Request.Context(), GetUserID(c), GetRole(c), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, project)
}

// Create 创建项目
// POST /api/v1/projects
func (h *ProjectHandler) Create(c *gin.Context) {
	var req service.CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	project, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, project)
}

// Update 更新项目
// PUT /api/v1/projects/:id
func (h *ProjectHandler) Update(c *gin.Context) {
	var req service.UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	project, err := h.svc.Update(c.Request.Context(), GetUserID(c), GetRole(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, project)
}

// Delete 删除项目及其全部任务
// DELETE /api/v1/projects/:id
func (h *ProjectHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}

// AddMember 添加项目成员
// POST /api/v1/projects/:id/members
func (h *ProjectHandler) AddMember(c *gin.Context) {
	var req service.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	member, err := h.svc.AddMember(c.Request.Context(), GetUserID(c), GetRole(c), c.Param("id"), &req)
	if err != nil {
		HandleError(c, err)
		return
	}
	Created(c, member)
}

// RemoveMember 移除项目成员
// DELETE /api/v1/projects/:id/members/:userId
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	err := h.svc.RemoveMember(c.Request.Context(), GetUserID(c), GetRole(c), c.Param("id"), c.Param("userId"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, nil)
}

// Recount 重算项目任务计数器
// POST /api/v1/projects/:id/recount
func (h *ProjectHandler) Recount(c *gin.Context) {
	total, completed, err := h.svc.Recount(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	Success(c, gin.H{
		"total_tasks":     total,
		"completed_tasks": completed,
	})
}

// ExportTasks 导出项目任务为xlsx
// GET /api/v1/projects/:id/tasks/export
func (h *ProjectHandler) ExportTasks(c *gin.Context) {
	f, filename, err := h.exportSvc.ExportProjectTasks(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}
