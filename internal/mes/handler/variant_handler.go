package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// VariantHandler 物料变体处理器
type VariantHandler struct {
	svc *service.VariantService
}

func NewVariantHandler(svc *service.VariantService) *VariantHandler {
	return &VariantHandler{svc: svc}
}

// List 查询变体列表
// GET /api/v1/variants?status=&supplier_id=&search=
func (h *VariantHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":      c.Query("status"),
		"supplier_id": c.Query("supplier_id"),
		"search":      c.Query("search"),
	}

	variants, total, err := h.svc.List(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "查询变体列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{
		"items":      variants,
		"pagination": NewPagination(page, pageSize, total),
	})
}

// Get 查询变体详情
// GET /api/v1/variants/:id
func (h *VariantHandler) Get(c *gin.Context) {
	variant, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, variant)
}

// Create 创建变体
// POST /api/v1/variants
func (h *VariantHandler) Create(c *gin.Context) {
	var req service.CreateVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	variant, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, variant)
}

// Update 更新变体
// PUT /api/v1/variants/:id
func (h *VariantHandler) Update(c *gin.Context) {
	var req service.UpdateVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	variant, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, variant)
}

// AdjustStock 设置变体现有库存
// PUT /api/v1/variants/:id/stock
func (h *VariantHandler) AdjustStock(c *gin.Context) {
	var req service.AdjustStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	variant, err := h.svc.AdjustStock(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, variant)
}
