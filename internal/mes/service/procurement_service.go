package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 无报价可参考时的默认备货提前期
const defaultLeadTimeDays = 14

// ProcurementService 采购建议合成与状态维护
type ProcurementService struct {
	recRepo      *repository.RecommendationRepository
	lotRepo      *repository.LotRepository
	alertRepo    *repository.AlertRepository
	supplierRepo *repository.SupplierRepository
	db           *gorm.DB
}

func NewProcurementService(repos *repository.Repositories, db *gorm.DB) *ProcurementService {
	return &ProcurementService{
		recRepo:      repos.Recommendation,
		lotRepo:      repos.Lot,
		alertRepo:    repos.Alert,
		supplierRepo: repos.Supplier,
		db:           db,
	}
}

// SynthesizeResult 一次合成的结果
type SynthesizeResult struct {
	LotID   string                             `json:"lot_id"`
	Created int                                `json:"created"`
	Skipped int                                `json:"skipped"`
	Items   []entity.ProcurementRecommendation `json:"items"`
}

// Synthesize 为批次的CRITICAL/HIGH告警合成采购建议。
// 同(批次,变体)已有open建议（未收货且未取消）则跳过，重复调用不产生重复建议。
// 交期默认取批次要求日期，否则 now + 最优报价提前期（无报价按14天）；
// 能解析到报价时估算成本，解析不到就留空
func (s *ProcurementService) Synthesize(ctx context.Context, lotID, userID string) (*SynthesizeResult, error) {
	lot, err := s.lotRepo.FindByID(ctx, lotID)
	if err != nil {
		return nil, err
	}

	result := &SynthesizeResult{LotID: lotID, Items: []entity.ProcurementRecommendation{}}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lotRepo.LockByID(tx, lotID); err != nil {
			return err
		}

		alerts, err := s.alertRepo.FindByLotForUpdate(tx, lotID)
		if err != nil {
			return err
		}

		for _, alert := range alerts {
			if alert.Severity != entity.SeverityCritical && alert.Severity != entity.SeverityHigh {
				continue
			}
			if !alert.SuggestedProcurementQty.IsPositive() {
				continue
			}

			existing, err := s.recRepo.FindOpenByLotVariant(tx, lotID, alert.VariantID)
			if err != nil {
				return err
			}
			if existing != nil {
				result.Skipped++
				continue
			}

			rec := &entity.ProcurementRecommendation{
				ID:                uuid.New().String()[:32],
				LotID:             lotID,
				VariantID:         alert.VariantID,
				RecommendedQty:    alert.SuggestedProcurementQty,
				ProcurementStatus: entity.ProcurementStatusRecommended,
				CreatedBy:         userID,
			}

			rate, err := s.supplierRepo.GetBestRate(ctx, alert.VariantID)
			if err != nil {
				return err
			}

			leadDays := defaultLeadTimeDays
			if rate != nil {
				rec.SupplierID = &rate.SupplierID
				cost := alert.SuggestedProcurementQty.Mul(rate.UnitPrice)
				rec.EstimatedCost = &cost
				if rate.LeadTimeDays > 0 {
					leadDays = rate.LeadTimeDays
				}
			}

			if lot.RequiredDate != nil {
				rec.RequiredDeliveryDate = *lot.RequiredDate
			} else {
				rec.RequiredDeliveryDate = time.Now().AddDate(0, 0, leadDays)
			}

			if err := s.recRepo.Create(tx, rec); err != nil {
				return err
			}
			result.Created++
			result.Items = append(result.Items, *rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListByLot 查询批次采购建议列表
func (s *ProcurementService) ListByLot(ctx context.Context, lotID string) ([]entity.ProcurementRecommendation, error) {
	if _, err := s.lotRepo.FindByID(ctx, lotID); err != nil {
		return nil, err
	}
	return s.recRepo.FindByLotID(ctx, lotID)
}

// UpdateStatusRequest 更新采购建议状态请求
type UpdateStatusRequest struct {
	ProcurementStatus string  `json:"procurement_status" binding:"required"`
	PurchaseOrderID   *string `json:"purchase_order_id"`
}

// UpdateStatus 更新采购建议状态（采购订单子系统回写）
func (s *ProcurementService) UpdateStatus(ctx context.Context, id string, req *UpdateStatusRequest) (*entity.ProcurementRecommendation, error) {
	if !entity.ValidProcurementStatus(req.ProcurementStatus) {
		return nil, &ValidationError{Message: fmt.Sprintf("非法采购建议状态: %s", req.ProcurementStatus)}
	}

	rec, err := s.recRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	rec.ProcurementStatus = req.ProcurementStatus
	if req.PurchaseOrderID != nil {
		rec.PurchaseOrderID = req.PurchaseOrderID
	}

	if err := s.recRepo.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}
