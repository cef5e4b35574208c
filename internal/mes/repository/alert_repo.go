package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"gorm.io/gorm"
)

// AlertRepository 库存告警仓库
type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// FindByLotID 查询批次的当前告警集
func (r *AlertRepository) FindByLotID(ctx context.Context, lotID string) ([]entity.InventoryAlert, error) {
	var alerts []entity.InventoryAlert
	err := r.db.WithContext(ctx).
		Preload("Variant").
		Where("lot_id = ?", lotID).
		Order("severity ASC, variant_id ASC").
		Find(&alerts).Error
	return alerts, err
}

// ReplaceForLot 在事务内整体替换批次的告警集（先删后插，幂等重算）
// 调用方必须已持有批次行锁
func (r *AlertRepository) ReplaceForLot(tx *gorm.DB, lotID string, alerts []entity.InventoryAlert) error {
	if err := tx.Where("lot_id = ?", lotID).Delete(&entity.InventoryAlert{}).Error; err != nil {
		return err
	}
	if len(alerts) == 0 {
		return nil
	}
	return tx.Create(&alerts).Error
}

// FindByLotForUpdate 在事务内读取批次告警集（确认批次校验用）
func (r *AlertRepository) FindByLotForUpdate(tx *gorm.DB, lotID string) ([]entity.InventoryAlert, error) {
	var alerts []entity.InventoryAlert
	err := tx.Where("lot_id = ?", lotID).Find(&alerts).Error
	return alerts, err
}

// Acknowledge 在事务内确认单条告警（只改user_*字段）
func (r *AlertRepository) Acknowledge(tx *gorm.DB, alertID, action, notes string) error {
	return tx.Model(&entity.InventoryAlert{}).
		Where("id = ?", alertID).
		Updates(map[string]interface{}{
			"user_acknowledged": true,
			"user_action":       action,
			"action_notes":      notes,
		}).Error
}

// CountUnackedCritical 统计批次未确认的CRITICAL告警数（Finalization Gate）
func (r *AlertRepository) CountUnackedCritical(tx *gorm.DB, lotID string) (int64, error) {
	var count int64
	err := tx.Model(&entity.InventoryAlert{}).
		Where("lot_id = ? AND severity = ? AND user_acknowledged = false", lotID, entity.SeverityCritical).
		Count(&count).Error
	return count, err
}

// GlobalStats 全局告警统计行
type GlobalStats struct {
	BySeverity            entity.SeverityCounts
	OldestUnackedCritical *time.Time
}

// GetGlobalStats 跨批次统计活跃告警：按严重度计数 + 最老未确认CRITICAL的创建时间。
// 活跃 = 批次尚未进入终态（finalized/completed/cancelled）
func (r *AlertRepository) GetGlobalStats(ctx context.Context) (*GlobalStats, error) {
	stats := &GlobalStats{BySeverity: entity.SeverityCounts{}}

	rows, err := r.db.WithContext(ctx).Raw(`
		SELECT a.severity, COUNT(*) AS cnt
		FROM mes_inventory_alerts a
		JOIN mes_production_lots l ON l.id = a.lot_id
		WHERE l.status NOT IN ('finalized', 'completed', 'cancelled')
		GROUP BY a.severity
	`).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var severity string
		var cnt int
		if err := rows.Scan(&severity, &cnt); err != nil {
			return nil, err
		}
		stats.BySeverity[severity] = cnt
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var oldest *time.Time
	err = r.db.WithContext(ctx).Raw(`
		SELECT MIN(a.created_at)
		FROM mes_inventory_alerts a
		JOIN mes_production_lots l ON l.id = a.lot_id
		WHERE a.severity = ? AND a.user_acknowledged = false
		  AND l.status NOT IN ('finalized', 'completed', 'cancelled')
	`, entity.SeverityCritical).Scan(&oldest).Error
	if err != nil {
		return nil, err
	}
	stats.OldestUnackedCritical = oldest

	return stats, nil
}
