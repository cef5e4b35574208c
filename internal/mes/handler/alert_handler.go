package handler

import (
	"fmt"

	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/gin-gonic/gin"
)

// AlertHandler 库存告警处理器
type AlertHandler struct {
	svc       *service.AlertService
	reportSvc *service.ReportService
}

func NewAlertHandler(svc *service.AlertService, reportSvc *service.ReportService) *AlertHandler {
	return &AlertHandler{svc: svc, reportSvc: reportSvc}
}

// ValidateInventory 重新评估批次库存
// POST /api/v1/lots/:id/validate-inventory
func (h *AlertHandler) ValidateInventory(c *gin.Context) {
	lotID := c.Param("id")

	result, err := h.svc.ValidateInventory(c.Request.Context(), lotID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, result)
}

// GetLotAlerts 查询批次当前告警集与汇总
// GET /api/v1/lots/:id/alerts
func (h *AlertHandler) GetLotAlerts(c *gin.Context) {
	lotID := c.Param("id")

	view, err := h.svc.GetLotAlerts(c.Request.Context(), lotID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, view)
}

// AcknowledgeRequest 批量确认请求
type AcknowledgeRequest struct {
	Acknowledgments []service.Acknowledgment `json:"acknowledgments" binding:"required"`
}

// Acknowledge 批量确认批次告警（整批生效或整批拒绝）
// POST /api/v1/lots/:id/alerts/acknowledge
func (h *AlertHandler) Acknowledge(c *gin.Context) {
	lotID := c.Param("id")

	var req AcknowledgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "请求参数错误: "+err.Error())
		return
	}

	result, err := h.svc.AcknowledgeBulk(c.Request.Context(), lotID, req.Acknowledgments)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, result)
}

// Finalize 批次定版（存在未确认CRITICAL告警时拒绝）
// POST /api/v1/lots/:id/finalize
func (h *AlertHandler) Finalize(c *gin.Context) {
	lotID := c.Param("id")

	result, err := h.svc.Finalize(c.Request.Context(), lotID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, result)
}

// GetStats 跨批次活跃告警统计
// GET /api/v1/alerts/stats
func (h *AlertHandler) GetStats(c *gin.Context) {
	stats, err := h.svc.GetStats(c.Request.Context())
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	Success(c, stats)
}

// ExportReport 导出批次告警与采购建议xlsx报表
// GET /api/v1/lots/:id/alerts/export
func (h *AlertHandler) ExportReport(c *gin.Context) {
	lotID := c.Param("id")

	f, filename, err := h.reportSvc.ExportLotReport(c.Request.Context(), lotID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "导出报表失败: "+err.Error())
	}
}
