package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LotService 生产批次服务
type LotService struct {
	lotRepo     *repository.LotRepository
	processRepo *repository.ProcessRepository
	alertSvc    *AlertService
}

func NewLotService(repos *repository.Repositories, alertSvc *AlertService) *LotService {
	return &LotService{
		lotRepo:     repos.Lot,
		processRepo: repos.Process,
		alertSvc:    alertSvc,
	}
}

// CreateLotRequest 创建批次请求
type CreateLotRequest struct {
	ProcessID    string          `json:"process_id" binding:"required"`
	Quantity     decimal.Decimal `json:"quantity" binding:"required"`
	RequiredDate *time.Time      `json:"required_date"`
	Notes        string          `json:"notes"`
}

// CreateLot 创建批次并立即做一次库存评估
func (s *LotService) CreateLot(ctx context.Context, userID string, req *CreateLotRequest) (*entity.ProductionLot, *ValidationResult, error) {
	if !req.Quantity.IsPositive() {
		return nil, nil, &ValidationError{Message: "批次数量必须大于0"}
	}

	process, err := s.processRepo.FindByID(ctx, req.ProcessID)
	if err != nil {
		return nil, nil, err
	}
	if process.Status != entity.ProcessStatusActive {
		return nil, nil, &ValidationError{Message: fmt.Sprintf("工艺 %s 不是active状态", process.Code)}
	}

	lotNumber, err := s.lotRepo.GenerateLotNumber(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("生成批次号失败: %w", err)
	}

	lot := &entity.ProductionLot{
		ID:                 uuid.New().String()[:32],
		LotNumber:          lotNumber,
		ProcessID:          req.ProcessID,
		Quantity:           req.Quantity,
		Status:             entity.LotStatusPlanning,
		LotStatusInventory: entity.LotInventoryReady,
		AlertSummary:       entity.SeverityCounts{},
		RequiredDate:       req.RequiredDate,
		CreatedBy:          userID,
		Notes:              req.Notes,
	}
	if err := s.lotRepo.Create(ctx, lot); err != nil {
		return nil, nil, err
	}

	validation, err := s.alertSvc.ValidateInventory(ctx, lot.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("批次库存评估失败: %w", err)
	}

	lot.LotStatusInventory = validation.LotStatus
	lot.AlertSummary = validation.AlertsBySeverity
	return lot, validation, nil
}

// ListLots 查询批次列表
func (s *LotService) ListLots(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ProductionLot, int64, error) {
	return s.lotRepo.FindAll(ctx, page, pageSize, filters)
}

// GetLot 查询批次详情
func (s *LotService) GetLot(ctx context.Context, id string) (*entity.ProductionLot, error) {
	return s.lotRepo.FindByID(ctx, id)
}
