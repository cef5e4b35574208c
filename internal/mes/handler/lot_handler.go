package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// LotHandler 生产批次处理器
type LotHandler struct {
	svc *service.LotService
}

func NewLotHandler(svc *service.LotService) *LotHandler {
	return &LotHandler{svc: svc}
}

// List 查询批次列表
// GET /api/v1/lots?status=&process_id=&lot_status_inventory=
func (h *LotHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)
	filters := map[string]string{
		"status":               c.Query("status"),
		"process_id":           c.Query("process_id"),
		"lot_status_inventory": c.Query("lot_status_inventory"),
	}

	lots, total, err := h.svc.ListLots(c.Request.Context(), page, pageSize, filters)
	if err != nil {
		InternalError(c, "查询批次列表失败: "+err.Error())
		return
	}
	Success(c, gin.H{
		"items":      lots,
		"pagination": NewPagination(page, pageSize, total),
	})
}

// Get 查询批次详情
// GET /api/v1/lots/:id
func (h *LotHandler) Get(c *gin.Context) {
	lot, err := h.svc.GetLot(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, lot)
}

// Create 创建批次（创建后立即做一次库存评估）
// POST /api/v1/lots
func (h *LotHandler) Create(c *gin.Context) {
	var req service.CreateLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	lot, validation, err := h.svc.CreateLot(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Created(c, gin.H{
		"lot":        lot,
		"validation": validation,
	})
}
