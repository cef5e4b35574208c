package handler

import (
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// ProcurementHandler 采购建议处理器
type ProcurementHandler struct {
	svc *service.ProcurementService
}

func NewProcurementHandler(svc *service.ProcurementService) *ProcurementHandler {
	return &ProcurementHandler{svc: svc}
}

// ListByLot 查询批次采购建议列表
// GET /api/v1/lots/:id/recommendations
func (h *ProcurementHandler) ListByLot(c *gin.Context) {
	recs, err := h.svc.ListByLot(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, gin.H{"items": recs})
}

// Synthesize 为批次的CRITICAL/HIGH告警合成采购建议（幂等）
// POST /api/v1/lots/:id/recommendations/synthesize
func (h *ProcurementHandler) Synthesize(c *gin.Context) {
	result, err := h.svc.Synthesize(c.Request.Context(), c.Param("id"), GetUserID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, result)
}

// UpdateStatus 更新采购建议状态（采购订单子系统回写）
// PATCH /api/v1/recommendations/:id/status
func (h *ProcurementHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	rec, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, rec)
}
