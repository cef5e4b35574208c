package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Services 服务集合
type Services struct {
	Variant     *VariantService
	Supplier    *SupplierService
	Process     *ProcessService
	Rule        *RuleService
	Lot         *LotService
	Alert       *AlertService
	Procurement *ProcurementService
	Report      *ReportService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, db *gorm.DB, rdb *redis.Client) *Services {
	alertSvc := NewAlertService(repos, db, rdb)

	return &Services{
		Variant:     NewVariantService(repos),
		Supplier:    NewSupplierService(repos),
		Process:     NewProcessService(repos),
		Rule:        NewRuleService(repos),
		Lot:         NewLotService(repos, alertSvc),
		Alert:       alertSvc,
		Procurement: NewProcurementService(repos, db),
		Report:      NewReportService(repos),
	}
}

// VariantService 物料变体服务
type VariantService struct {
	repo *repository.VariantRepository
}

// NewVariantService 创建变体服务
func NewVariantService(repos *repository.Repositories) *VariantService {
	return &VariantService{repo: repos.Variant}
}

// CreateVariantRequest 创建变体请求
type CreateVariantRequest struct {
	SKU        string  `json:"sku" binding:"required"`
	ItemName   string  `json:"item_name" binding:"required"`
	Color      string  `json:"color"`
	Size       string  `json:"size"`
	Unit       string  `json:"unit"`
	SupplierID *string `json:"supplier_id"`
	Notes      string  `json:"notes"`
}

// UpdateVariantRequest 更新变体请求
type UpdateVariantRequest struct {
	ItemName   *string `json:"item_name"`
	Color      *string `json:"color"`
	Size       *string `json:"size"`
	Unit       *string `json:"unit"`
	Status     *string `json:"status"`
	SupplierID *string `json:"supplier_id"`
	Notes      *string `json:"notes"`
}

// List 查询变体列表
func (s *VariantService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Variant, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// Get 查询变体详情
func (s *VariantService) Get(ctx context.Context, id string) (*entity.Variant, error) {
	return s.repo.FindByID(ctx, id)
}

// Create 创建变体
func (s *VariantService) Create(ctx context.Context, userID string, req *CreateVariantRequest) (*entity.Variant, error) {
	unit := req.Unit
	if unit == "" {
		unit = "pcs"
	}

	variant := &entity.Variant{
		ID:         uuid.New().String()[:32],
		SKU:        req.SKU,
		ItemName:   req.ItemName,
		Color:      req.Color,
		Size:       req.Size,
		Unit:       unit,
		Status:     entity.VariantStatusActive,
		OnHandQty:  decimal.Zero,
		SupplierID: req.SupplierID,
		CreatedBy:  userID,
		Notes:      req.Notes,
	}
	if err := s.repo.Create(ctx, variant); err != nil {
		return nil, fmt.Errorf("创建变体失败: %w", err)
	}
	return variant, nil
}

// Update 更新变体
func (s *VariantService) Update(ctx context.Context, id string, req *UpdateVariantRequest) (*entity.Variant, error) {
	variant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.ItemName != nil {
		variant.ItemName = *req.ItemName
	}
	if req.Color != nil {
		variant.Color = *req.Color
	}
	if req.Size != nil {
		variant.Size = *req.Size
	}
	if req.Unit != nil {
		variant.Unit = *req.Unit
	}
	if req.Status != nil {
		variant.Status = *req.Status
	}
	if req.SupplierID != nil {
		variant.SupplierID = req.SupplierID
	}
	if req.Notes != nil {
		variant.Notes = *req.Notes
	}

	if err := s.repo.Update(ctx, variant); err != nil {
		return nil, fmt.Errorf("更新变体失败: %w", err)
	}
	return variant, nil
}

// AdjustStockRequest 调整库存请求
type AdjustStockRequest struct {
	OnHandQty decimal.Decimal `json:"on_hand_qty" binding:"required"`
}

// AdjustStock 设置变体现有库存（盘点/入库回写）
func (s *VariantService) AdjustStock(ctx context.Context, id string, req *AdjustStockRequest) (*entity.Variant, error) {
	if req.OnHandQty.IsNegative() {
		return nil, &ValidationError{Message: "现有库存不能为负数"}
	}
	if err := s.repo.UpdateStock(ctx, id, req.OnHandQty); err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, id)
}

// SupplierService 供应商服务
type SupplierService struct {
	repo *repository.SupplierRepository
}

// NewSupplierService 创建供应商服务
func NewSupplierService(repos *repository.Repositories) *SupplierService {
	return &SupplierService{repo: repos.Supplier}
}

// CreateSupplierRequest 创建供应商请求
type CreateSupplierRequest struct {
	Code         string `json:"code" binding:"required"`
	Name         string `json:"name" binding:"required"`
	ContactName  string `json:"contact_name"`
	ContactPhone string `json:"contact_phone"`
	ContactEmail string `json:"contact_email"`
	Address      string `json:"address"`
	Notes        string `json:"notes"`
}

// UpdateSupplierRequest 更新供应商请求
type UpdateSupplierRequest struct {
	Name         *string `json:"name"`
	Status       *string `json:"status"`
	ContactName  *string `json:"contact_name"`
	ContactPhone *string `json:"contact_phone"`
	ContactEmail *string `json:"contact_email"`
	Address      *string `json:"address"`
	Notes        *string `json:"notes"`
}

// List 查询供应商列表
func (s *SupplierService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Supplier, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// Get 查询供应商详情
func (s *SupplierService) Get(ctx context.Context, id string) (*entity.Supplier, error) {
	return s.repo.FindByID(ctx, id)
}

// Create 创建供应商
func (s *SupplierService) Create(ctx context.Context, userID string, req *CreateSupplierRequest) (*entity.Supplier, error) {
	supplier := &entity.Supplier{
		ID:           uuid.New().String()[:32],
		Code:         req.Code,
		Name:         req.Name,
		Status:       entity.SupplierStatusActive,
		ContactName:  req.ContactName,
		ContactPhone: req.ContactPhone,
		ContactEmail: req.ContactEmail,
		Address:      req.Address,
		CreatedBy:    userID,
		Notes:        req.Notes,
	}
	if err := s.repo.Create(ctx, supplier); err != nil {
		return nil, fmt.Errorf("创建供应商失败: %w", err)
	}
	return supplier, nil
}

// Update 更新供应商
func (s *SupplierService) Update(ctx context.Context, id string, req *UpdateSupplierRequest) (*entity.Supplier, error) {
	supplier, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		supplier.Name = *req.Name
	}
	if req.Status != nil {
		supplier.Status = *req.Status
	}
	if req.ContactName != nil {
		supplier.ContactName = *req.ContactName
	}
	if req.ContactPhone != nil {
		supplier.ContactPhone = *req.ContactPhone
	}
	if req.ContactEmail != nil {
		supplier.ContactEmail = *req.ContactEmail
	}
	if req.Address != nil {
		supplier.Address = *req.Address
	}
	if req.Notes != nil {
		supplier.Notes = *req.Notes
	}

	if err := s.repo.Update(ctx, supplier); err != nil {
		return nil, fmt.Errorf("更新供应商失败: %w", err)
	}
	return supplier, nil
}

// CreateRateRequest 创建供应商报价请求
type CreateRateRequest struct {
	VariantID    string          `json:"variant_id" binding:"required"`
	UnitPrice    decimal.Decimal `json:"unit_price" binding:"required"`
	Currency     string          `json:"currency"`
	LeadTimeDays int             `json:"lead_time_days"`
	MOQ          *int            `json:"moq"`
	ValidUntil   *time.Time      `json:"valid_until"`
}

// CreateRate 创建供应商报价
func (s *SupplierService) CreateRate(ctx context.Context, supplierID string, req *CreateRateRequest) (*entity.SupplierRate, error) {
	if _, err := s.repo.FindByID(ctx, supplierID); err != nil {
		return nil, err
	}
	if !req.UnitPrice.IsPositive() {
		return nil, &ValidationError{Message: "报价单价必须大于0"}
	}

	currency := req.Currency
	if currency == "" {
		currency = "CNY"
	}

	rate := &entity.SupplierRate{
		ID:           uuid.New().String()[:32],
		SupplierID:   supplierID,
		VariantID:    req.VariantID,
		UnitPrice:    req.UnitPrice,
		Currency:     currency,
		LeadTimeDays: req.LeadTimeDays,
		MOQ:          req.MOQ,
		ValidUntil:   req.ValidUntil,
		Active:       true,
	}
	if err := s.repo.CreateRate(ctx, rate); err != nil {
		return nil, fmt.Errorf("创建供应商报价失败: %w", err)
	}
	return rate, nil
}

// ListRates 查询供应商报价列表
func (s *SupplierService) ListRates(ctx context.Context, supplierID string) ([]entity.SupplierRate, error) {
	if _, err := s.repo.FindByID(ctx, supplierID); err != nil {
		return nil, err
	}
	return s.repo.ListRates(ctx, supplierID)
}

// ProcessService 工艺服务
type ProcessService struct {
	repo        *repository.ProcessRepository
	variantRepo *repository.VariantRepository
}

// NewProcessService 创建工艺服务
func NewProcessService(repos *repository.Repositories) *ProcessService {
	return &ProcessService{repo: repos.Process, variantRepo: repos.Variant}
}

// UsageInput 消耗行输入
type UsageInput struct {
	VariantID       string           `json:"variant_id" binding:"required"`
	QuantityPerUnit decimal.Decimal  `json:"quantity_per_unit" binding:"required"`
	UnitCost        *decimal.Decimal `json:"unit_cost"`
}

// SubprocessInput 子工序输入
type SubprocessInput struct {
	Name   string       `json:"name" binding:"required"`
	Usages []UsageInput `json:"usages"`
}

// CreateProcessRequest 创建工艺请求
type CreateProcessRequest struct {
	Code         string            `json:"code" binding:"required"`
	Name         string            `json:"name" binding:"required"`
	Description  string            `json:"description"`
	Subprocesses []SubprocessInput `json:"subprocesses"`
}

// List 查询工艺列表
func (s *ProcessService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Process, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// Get 查询工艺详情（含有序子工序和消耗行）
func (s *ProcessService) Get(ctx context.Context, id string) (*entity.Process, error) {
	process, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	subprocesses, err := s.repo.GetStructure(ctx, id)
	if err != nil {
		return nil, err
	}
	process.Subprocesses = subprocesses
	return process, nil
}

// Create 创建工艺，子工序按请求顺序赋seq
func (s *ProcessService) Create(ctx context.Context, userID string, req *CreateProcessRequest) (*entity.Process, error) {
	for _, sp := range req.Subprocesses {
		for _, u := range sp.Usages {
			if !u.QuantityPerUnit.IsPositive() {
				return nil, &ValidationError{Message: fmt.Sprintf("变体 %s 的单位消耗量必须大于0", u.VariantID)}
			}
			if _, err := s.variantRepo.FindByID(ctx, u.VariantID); err != nil {
				if err == repository.ErrNotFound {
					return nil, &ValidationError{Message: fmt.Sprintf("变体 %s 不存在", u.VariantID)}
				}
				return nil, err
			}
		}
	}

	process := &entity.Process{
		ID:          uuid.New().String()[:32],
		Code:        req.Code,
		Name:        req.Name,
		Status:      entity.ProcessStatusActive,
		Description: req.Description,
		CreatedBy:   userID,
	}
	for i, sp := range req.Subprocesses {
		subprocess := entity.Subprocess{
			ID:        uuid.New().String()[:32],
			ProcessID: process.ID,
			Seq:       i + 1,
			Name:      sp.Name,
		}
		for _, u := range sp.Usages {
			subprocess.Usages = append(subprocess.Usages, entity.VariantUsage{
				ID:              uuid.New().String()[:32],
				SubprocessID:    subprocess.ID,
				VariantID:       u.VariantID,
				QuantityPerUnit: u.QuantityPerUnit,
				UnitCost:        u.UnitCost,
			})
		}
		process.Subprocesses = append(process.Subprocesses, subprocess)
	}

	if err := s.repo.Create(ctx, process); err != nil {
		return nil, fmt.Errorf("创建工艺失败: %w", err)
	}
	return process, nil
}

// UpdateProcessRequest 更新工艺请求
type UpdateProcessRequest struct {
	Name        *string `json:"name"`
	Status      *string `json:"status"`
	Description *string `json:"description"`
}

// Update 更新工艺基础信息
func (s *ProcessService) Update(ctx context.Context, id string, req *UpdateProcessRequest) (*entity.Process, error) {
	process, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		process.Name = *req.Name
	}
	if req.Status != nil {
		process.Status = *req.Status
	}
	if req.Description != nil {
		process.Description = *req.Description
	}

	if err := s.repo.Update(ctx, process); err != nil {
		return nil, fmt.Errorf("更新工艺失败: %w", err)
	}
	return process, nil
}

// RuleService 告警规则服务
type RuleService struct {
	repo        *repository.AlertRuleRepository
	variantRepo *repository.VariantRepository
}

// NewRuleService 创建告警规则服务
func NewRuleService(repos *repository.Repositories) *RuleService {
	return &RuleService{repo: repos.AlertRule, variantRepo: repos.Variant}
}

// CreateRuleRequest 创建规则请求
type CreateRuleRequest struct {
	VariantID         string          `json:"variant_id" binding:"required"`
	SafetyStockQty    decimal.Decimal `json:"safety_stock_qty"`
	ReorderPointQty   decimal.Decimal `json:"reorder_point_qty"`
	AlertThresholdPct int             `json:"alert_threshold_pct"`
}

// UpdateRuleRequest 更新规则请求
type UpdateRuleRequest struct {
	SafetyStockQty    *decimal.Decimal `json:"safety_stock_qty"`
	ReorderPointQty   *decimal.Decimal `json:"reorder_point_qty"`
	AlertThresholdPct *int             `json:"alert_threshold_pct"`
	Active            *bool            `json:"active"`
}

// List 查询规则列表
func (s *RuleService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.AlertRule, int64, error) {
	return s.repo.FindAll(ctx, page, pageSize, filters)
}

// Get 查询规则详情
func (s *RuleService) Get(ctx context.Context, id string) (*entity.AlertRule, error) {
	return s.repo.FindByID(ctx, id)
}

// Create 创建规则（同变体旧active规则自动失效）
func (s *RuleService) Create(ctx context.Context, userID string, req *CreateRuleRequest) (*entity.AlertRule, error) {
	if req.SafetyStockQty.IsNegative() || req.ReorderPointQty.IsNegative() {
		return nil, &ValidationError{Message: "安全库存与再订货点不能为负数"}
	}
	if req.AlertThresholdPct < 0 || req.AlertThresholdPct > 100 {
		return nil, &ValidationError{Message: "提前告警百分比必须在0-100之间"}
	}
	if _, err := s.variantRepo.FindByID(ctx, req.VariantID); err != nil {
		if err == repository.ErrNotFound {
			return nil, &ValidationError{Message: fmt.Sprintf("变体 %s 不存在", req.VariantID)}
		}
		return nil, err
	}

	rule := &entity.AlertRule{
		ID:                uuid.New().String()[:32],
		VariantID:         req.VariantID,
		SafetyStockQty:    req.SafetyStockQty,
		ReorderPointQty:   req.ReorderPointQty,
		AlertThresholdPct: req.AlertThresholdPct,
		Active:            true,
		CreatedBy:         userID,
	}
	if err := s.repo.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("创建告警规则失败: %w", err)
	}
	return rule, nil
}

// Update 更新规则
func (s *RuleService) Update(ctx context.Context, id string, req *UpdateRuleRequest) (*entity.AlertRule, error) {
	rule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.SafetyStockQty != nil {
		if req.SafetyStockQty.IsNegative() {
			return nil, &ValidationError{Message: "安全库存不能为负数"}
		}
		rule.SafetyStockQty = *req.SafetyStockQty
	}
	if req.ReorderPointQty != nil {
		if req.ReorderPointQty.IsNegative() {
			return nil, &ValidationError{Message: "再订货点不能为负数"}
		}
		rule.ReorderPointQty = *req.ReorderPointQty
	}
	if req.AlertThresholdPct != nil {
		if *req.AlertThresholdPct < 0 || *req.AlertThresholdPct > 100 {
			return nil, &ValidationError{Message: "提前告警百分比必须在0-100之间"}
		}
		rule.AlertThresholdPct = *req.AlertThresholdPct
	}
	if req.Active != nil {
		rule.Active = *req.Active
	}

	if err := s.repo.Update(ctx, rule); err != nil {
		return nil, fmt.Errorf("更新告警规则失败: %w", err)
	}
	return rule, nil
}

// Delete 删除规则
func (s *RuleService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
