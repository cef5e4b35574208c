package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// RuleHandler 告警规则处理器
type RuleHandler struct {
	svc *service.RuleService
}

func NewRuleHandler(svc *service.RuleService) *RuleHandler {
	return &RuleHandler{svc: svc}
}

// List 查询规则列表
// GET /api/v1/alert-rules?variant_id=&active=
func (h *RuleHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"variant_id": c.Query("variant_id"),
		"active":     c.Query("active"),
	}

	rules, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "查询告警规则列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{
		"items":      rules,
		"pagination": NewPagination(page, pageSize, total),
	})
}

// Get 查询规则详情
// GET /api/v1/alert-rules/:id
func (h *RuleHandler) Get(c *gin.Context) {
	rule, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, rule)
}

// Create 创建规则（同变体旧active规则自动失效）
// POST /api/v1/alert-rules
func (h *RuleHandler) Create(c *gin.Context) {
	var req service.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	rule, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, rule)
}

// Update 更新规则
// PUT /api/v1/alert-rules/:id
func (h *RuleHandler) Update(c *gin.Context) {
	var req service.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	rule, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, rule)
}

// Delete 删除规则
// DELETE /api/v1/alert-rules/:id
func (h *RuleHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, gin.H{"deleted": true})
}
