package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// ProcessRepository 工艺仓库（Process Structure Resolver 的数据源）
type ProcessRepository struct {
	db *gorm.DB
}

func NewProcessRepository(db *gorm.DB) *ProcessRepository {
	return &ProcessRepository{db: db}
}

// FindAll 查询工艺列表
func (r *ProcessRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Process, int64, error) {
	var items []entity.Process
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Process{})

	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("name ILIKE ? OR code ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("code ASC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找工艺
func (r *ProcessRepository) FindByID(ctx context.Context, id string) (*entity.Process, error) {
	var p entity.Process
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetStructure 解析工艺结构：有序子工序及各自的变体消耗行
func (r *ProcessRepository) GetStructure(ctx context.Context, processID string) ([]entity.Subprocess, error) {
	var process entity.Process
	err := r.db.WithContext(ctx).Where("id = ?", processID).First(&process).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var subprocesses []entity.Subprocess
	err = r.db.WithContext(ctx).
		Preload("Usages").
		Where("process_id = ?", processID).
		Order("seq ASC").
		Find(&subprocesses).Error
	return subprocesses, err
}

// Create 创建工艺（含子工序与消耗行）
func (r *ProcessRepository) Create(ctx context.Context, p *entity.Process) error {
	return r.db.WithContext(ctx).Create(p).Error
}

// Update 更新工艺
func (r *ProcessRepository) Update(ctx context.Context, p *entity.Process) error {
	return r.db.WithContext(ctx).Save(p).Error
}

// CreateSubprocess 创建子工序
func (r *ProcessRepository) CreateSubprocess(ctx context.Context, sp *entity.Subprocess) error {
	return r.db.WithContext(ctx).Create(sp).Error
}

// CreateUsage 创建变体消耗行
func (r *ProcessRepository) CreateUsage(ctx context.Context, u *entity.VariantUsage) error {
	return r.db.WithContext(ctx).Create(u).Error
}

// DeleteUsage 删除变体消耗行
func (r *ProcessRepository) DeleteUsage(ctx context.Context, usageID string) error {
	result := r.db.WithContext(ctx).Where("id = ?", usageID).Delete(&entity.VariantUsage{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
