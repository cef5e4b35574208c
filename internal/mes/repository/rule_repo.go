package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// AlertRuleRepository 告警规则仓库
type AlertRuleRepository struct {
	db *gorm.DB
}

func NewAlertRuleRepository(db *gorm.DB) *AlertRuleRepository {
	return &AlertRuleRepository{db: db}
}

// FindAll 查询规则列表
func (r *AlertRuleRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.AlertRule, int64, error) {
	var items []entity.AlertRule
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.AlertRule{})

	if variantID := filters["variant_id"]; variantID != "" {
		query = query.Where("variant_id = ?", variantID)
	}
	if active := filters["active"]; active != "" {
		query = query.Where("active = ?", active == "true")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找规则
func (r *AlertRuleRepository) FindByID(ctx context.Context, id string) (*entity.AlertRule, error) {
	var rule entity.AlertRule
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rule, nil
}

// FindActiveByVariant 查找变体的active规则（没有返回nil）
func (r *AlertRuleRepository) FindActiveByVariant(ctx context.Context, variantID string) (*entity.AlertRule, error) {
	var rule entity.AlertRule
	err := r.db.WithContext(ctx).
		Where("variant_id = ? AND active = true", variantID).
		First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

// FindActiveByVariants 批量查找active规则，返回 variant_id -> rule
func (r *AlertRuleRepository) FindActiveByVariants(ctx context.Context, variantIDs []string) (map[string]entity.AlertRule, error) {
	rules := make(map[string]entity.AlertRule, len(variantIDs))
	if len(variantIDs) == 0 {
		return rules, nil
	}

	var rows []entity.AlertRule
	err := r.db.WithContext(ctx).
		Where("variant_id IN ? AND active = true", variantIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, rule := range rows {
		rules[rule.VariantID] = rule
	}
	return rules, nil
}

// Create 创建规则。同变体已有active规则时先将旧规则置为inactive，
// 保证每个变体最多一条active规则
func (r *AlertRuleRepository) Create(ctx context.Context, rule *entity.AlertRule) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if rule.Active {
			if err := tx.Model(&entity.AlertRule{}).
				Where("variant_id = ? AND active = true", rule.VariantID).
				Update("active", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(rule).Error
	})
}

// Update 更新规则
func (r *AlertRuleRepository) Update(ctx context.Context, rule *entity.AlertRule) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if rule.Active {
			if err := tx.Model(&entity.AlertRule{}).
				Where("variant_id = ? AND active = true AND id != ?", rule.VariantID, rule.ID).
				Update("active", false).Error; err != nil {
				return err
			}
		}
		return tx.Save(rule).Error
	})
}

// Delete 删除规则
func (r *AlertRuleRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.AlertRule{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
