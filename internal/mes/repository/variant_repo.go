package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// VariantRepository 物料变体仓库
type VariantRepository struct {
	db *gorm.DB
}

func NewVariantRepository(db *gorm.DB) *VariantRepository {
	return &VariantRepository{db: db}
}

// FindAll 查询变体列表
func (r *VariantRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Variant, int64, error) {
	var items []entity.Variant
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Variant{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if supplierID := filters["supplier_id"]; supplierID != "" {
		query = query.Where("supplier_id = ?", supplierID)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("sku ILIKE ? OR item_name ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("sku ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找变体
func (r *VariantRepository) FindByID(ctx context.Context, id string) (*entity.Variant, error) {
	var v entity.Variant
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &v, nil
}

// Create 创建变体
func (r *VariantRepository) Create(ctx context.Context, v *entity.Variant) error {
	return r.db.WithContext(ctx).Create(v).Error
}

// Update 更新变体
func (r *VariantRepository) Update(ctx context.Context, v *entity.Variant) error {
	return r.db.WithContext(ctx).Save(v).Error
}

// GetStock 查询变体现有库存（Stock Lookup）
func (r *VariantRepository) GetStock(ctx context.Context, variantID string) (decimal.Decimal, error) {
	var v entity.Variant
	err := r.db.WithContext(ctx).Select("on_hand_qty").Where("id = ?", variantID).First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, ErrNotFound
		}
		return decimal.Zero, err
	}
	return v.OnHandQty, nil
}

// GetStocks 批量查询库存，返回 variant_id -> on_hand
// 评估一个批次时一次取齐，避免逐变体往返
func (r *VariantRepository) GetStocks(ctx context.Context, variantIDs []string) (map[string]decimal.Decimal, error) {
	stocks := make(map[string]decimal.Decimal, len(variantIDs))
	if len(variantIDs) == 0 {
		return stocks, nil
	}

	var rows []entity.Variant
	err := r.db.WithContext(ctx).
		Select("id, on_hand_qty").
		Where("id IN ?", variantIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, v := range rows {
		stocks[v.ID] = v.OnHandQty
	}
	return stocks, nil
}

// UpdateStock 设置变体现有库存
func (r *VariantRepository) UpdateStock(ctx context.Context, variantID string, qty decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&entity.Variant{}).
		Where("id = ?", variantID).
		Update("on_hand_qty", qty)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
