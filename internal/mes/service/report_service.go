package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/xuri/excelize/v2"
)

// ReportService 批次告警报表导出
type ReportService struct {
	lotRepo   *repository.LotRepository
	alertRepo *repository.AlertRepository
	recRepo   *repository.RecommendationRepository
}

func NewReportService(repos *repository.Repositories) *ReportService {
	return &ReportService{
		lotRepo:   repos.Lot,
		alertRepo: repos.Alert,
		recRepo:   repos.Recommendation,
	}
}

var alertReportHeaders = []string{"变体ID", "SKU", "严重度", "现有库存", "需求量", "缺口", "建议采购量", "已确认", "确认动作", "备注"}
var recReportHeaders = []string{"变体ID", "建议数量", "要求交期", "预估成本", "状态", "供应商", "采购订单"}

// ExportLotReport 导出批次的告警与采购建议xlsx报表
func (s *ReportService) ExportLotReport(ctx context.Context, lotID string) (*excelize.File, string, error) {
	lot, err := s.lotRepo.FindByID(ctx, lotID)
	if err != nil {
		return nil, "", err
	}

	alerts, err := s.alertRepo.FindByLotID(ctx, lotID)
	if err != nil {
		return nil, "", err
	}
	recs, err := s.recRepo.FindByLotID(ctx, lotID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	sheet := "库存告警"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})

	for i, h := range alertReportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for i, a := range alerts {
		row := i + 2
		sku := ""
		if a.Variant != nil {
			sku = a.Variant.SKU
		}
		action := ""
		if a.UserAction != nil {
			action = *a.UserAction
		}
		acked := "否"
		if a.UserAcknowledged {
			acked = "是"
		}
		values := []interface{}{
			a.VariantID, sku, a.Severity,
			a.CurrentStockQty.String(), a.RequiredQty.String(),
			a.ShortfallQty.String(), a.SuggestedProcurementQty.String(),
			acked, action, a.ActionNotes,
		}
		for j, v := range values {
			col, _ := excelize.ColumnNumberToName(j + 1)
			f.SetCellValue(sheet, fmt.Sprintf("%s%d", col, row), v)
		}
	}

	recSheet := "采购建议"
	f.NewSheet(recSheet)
	for i, h := range recReportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(recSheet, cell, h)
		f.SetCellStyle(recSheet, cell, cell, boldStyle)
	}
	for i, r := range recs {
		row := i + 2
		cost := ""
		if r.EstimatedCost != nil {
			cost = r.EstimatedCost.String()
		}
		supplier := ""
		if r.Supplier != nil {
			supplier = r.Supplier.Name
		}
		poID := ""
		if r.PurchaseOrderID != nil {
			poID = *r.PurchaseOrderID
		}
		values := []interface{}{
			r.VariantID, r.RecommendedQty.String(),
			r.RequiredDeliveryDate.Format("2006-01-02"),
			cost, r.ProcurementStatus, supplier, poID,
		}
		for j, v := range values {
			col, _ := excelize.ColumnNumberToName(j + 1)
			f.SetCellValue(recSheet, fmt.Sprintf("%s%d", col, row), v)
		}
	}

	filename := fmt.Sprintf("inventory_alerts_%s.xlsx", lot.LotNumber)
	return f, filename, nil
}
