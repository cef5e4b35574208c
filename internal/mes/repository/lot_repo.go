package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LotRepository 生产批次仓库
type LotRepository struct {
	db *gorm.DB
}

func NewLotRepository(db *gorm.DB) *LotRepository {
	return &LotRepository{db: db}
}

// FindAll 查询批次列表
func (r *LotRepository) FindAll(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.ProductionLot, int64, error) {
	var items []entity.ProductionLot
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.ProductionLot{})

	if processID := filters["process_id"]; processID != "" {
		query = query.Where("process_id = ?", processID)
	}
	if status := filters["status"]; status != "" {
		query = query.Where("status = ?", status)
	}
	if invStatus := filters["lot_status_inventory"]; invStatus != "" {
		query = query.Where("lot_status_inventory = ?", invStatus)
	}
	if search := filters["search"]; search != "" {
		query = query.Where("lot_number ILIKE ?", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Preload("Process").
		Order("created_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error

	return items, total, err
}

// FindByID 根据ID查找批次
func (r *LotRepository) FindByID(ctx context.Context, id string) (*entity.ProductionLot, error) {
	var lot entity.ProductionLot
	err := r.db.WithContext(ctx).
		Preload("Process").
		Where("id = ?", id).
		First(&lot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &lot, nil
}

// LockByID 在事务内对批次行加排他锁（SELECT ... FOR UPDATE）。
// 同批次的重新评估/确认/定版由该锁串行化，跨批次互不影响
func (r *LotRepository) LockByID(tx *gorm.DB, id string) (*entity.ProductionLot, error) {
	var lot entity.ProductionLot
	err := tx.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&lot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &lot, nil
}

// Create 创建批次
func (r *LotRepository) Create(ctx context.Context, lot *entity.ProductionLot) error {
	return r.db.WithContext(ctx).Create(lot).Error
}

// Update 更新批次
func (r *LotRepository) Update(ctx context.Context, lot *entity.ProductionLot) error {
	return r.db.WithContext(ctx).Save(lot).Error
}

// GenerateLotNumber 生成批次号 LOT-{year}-{4位}
func (r *LotRepository) GenerateLotNumber(ctx context.Context) (string, error) {
	year := time.Now().Format("2006")
	prefix := fmt.Sprintf("LOT-%s-", year)

	var maxNumber string
	err := r.db.WithContext(ctx).
		Model(&entity.ProductionLot{}).
		Select("COALESCE(MAX(lot_number), '')").
		Where("lot_number LIKE ?", prefix+"%").
		Scan(&maxNumber).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxNumber != "" {
		fmt.Sscanf(maxNumber, "LOT-"+year+"-%04d", &seq)
	}
	seq++
	return fmt.Sprintf("LOT-%s-%04d", year, seq), nil
}
