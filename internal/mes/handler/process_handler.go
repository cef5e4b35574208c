package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// ProcessHandler 工艺处理器
type ProcessHandler struct {
	svc *service.ProcessService
}

func NewProcessHandler(svc *service.ProcessService) *ProcessHandler {
	return &ProcessHandler{svc: svc}
}

// List 查询工艺列表
// GET /api/v1/processes?status=&search=
func (h *ProcessHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status": c.Query("status"),
		"search": c.Query("search"),
	}

	processes, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "查询工艺列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{
		"items":      processes,
		"pagination": NewPagination(page, pageSize, total),
	})
}

// Get 查询工艺详情（含有序子工序和消耗行）
// GET /api/v1/processes/:id
func (h *ProcessHandler) Get(c *gin.Context) {
	process, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, process)
}

// Create 创建工艺
// POST /api/v1/processes
func (h *ProcessHandler) Create(c *gin.Context) {
	var req service.CreateProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	process, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, process)
}

// Update 更新工艺基础信息
// PUT /api/v1/processes/:id
func (h *ProcessHandler) Update(c *gin.Context) {
	var req service.UpdateProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	process, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, process)
}
