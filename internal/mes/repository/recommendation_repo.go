package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// RecommendationRepository 采购建议仓库
type RecommendationRepository struct {
	db *gorm.DB
}

func NewRecommendationRepository(db *gorm.DB) *RecommendationRepository {
	return &RecommendationRepository{db: db}
}

// FindByLotID 查询批次的采购建议列表
func (r *RecommendationRepository) FindByLotID(ctx context.Context, lotID string) ([]entity.ProcurementRecommendation, error) {
	var recs []entity.ProcurementRecommendation
	err := r.db.WithContext(ctx).
		Preload("Variant").
		Preload("Supplier").
		Where("lot_id = ?", lotID).
		Order("created_at DESC").
		Find(&recs).Error
	return recs, err
}

// FindByID 根据ID查找采购建议
func (r *RecommendationRepository) FindByID(ctx context.Context, id string) (*entity.ProcurementRecommendation, error) {
	var rec entity.ProcurementRecommendation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// FindOpenByLotVariant 查找(批次,变体)的open建议（防重复合成）
// open = 状态不在 {RECEIVED, CANCELLED}
func (r *RecommendationRepository) FindOpenByLotVariant(tx *gorm.DB, lotID, variantID string) (*entity.ProcurementRecommendation, error) {
	var rec entity.ProcurementRecommendation
	err := tx.
		Where("lot_id = ? AND variant_id = ?", lotID, variantID).
		Where("procurement_status NOT IN ?", []string{entity.ProcurementStatusReceived, entity.ProcurementStatusCancelled}).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// Create 在事务内创建采购建议
func (r *RecommendationRepository) Create(tx *gorm.DB, rec *entity.ProcurementRecommendation) error {
	return tx.Create(rec).Error
}

// Update 更新采购建议
func (r *RecommendationRepository) Update(ctx context.Context, rec *entity.ProcurementRecommendation) error {
	return r.db.WithContext(ctx).Save(rec).Error
}
