package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const statsCacheKey = "mes:alerts:stats"
const statsCacheTTL = 30 * time.Second

// AlertService 库存告警引擎：评估、聚合、确认、定版门禁、全局统计
type AlertService struct {
	lotRepo     *repository.LotRepository
	alertRepo   *repository.AlertRepository
	processRepo *repository.ProcessRepository
	variantRepo *repository.VariantRepository
	ruleRepo    *repository.AlertRuleRepository
	db          *gorm.DB
	rdb         *redis.Client
}

func NewAlertService(repos *repository.Repositories, db *gorm.DB, rdb *redis.Client) *AlertService {
	return &AlertService{
		lotRepo:     repos.Lot,
		alertRepo:   repos.Alert,
		processRepo: repos.Process,
		variantRepo: repos.Variant,
		ruleRepo:    repos.AlertRule,
		db:          db,
		rdb:         rdb,
	}
}

// ValidationResult 一次库存评估的结果
type ValidationResult struct {
	LotID            string                  `json:"lot_id"`
	AlertsGenerated  int                     `json:"alerts_generated"`
	AlertsBySeverity entity.SeverityCounts   `json:"alerts_by_severity"`
	LotStatus        string                  `json:"lot_status_inventory"`
	Alerts           []entity.InventoryAlert `json:"alerts"`
}

// ValidateInventory 评估批次库存：解析工艺结构、取库存与规则、逐变体分级，
// 然后在一个持有批次行锁的事务里整体替换告警集并回写汇总。
// 评估中途出错不落任何数据；对同一批次重复调用结果幂等
func (s *AlertService) ValidateInventory(ctx context.Context, lotID string) (*ValidationResult, error) {
	lot, err := s.lotRepo.FindByID(ctx, lotID)
	if err != nil {
		return nil, err
	}
	if lot.Status == entity.LotStatusFinalized || lot.Status == entity.LotStatusCancelled {
		return nil, &ConflictError{Message: fmt.Sprintf("批次已%s，不允许重新评估", lot.Status)}
	}

	subprocesses, err := s.processRepo.GetStructure(ctx, lot.ProcessID)
	if err != nil {
		return nil, fmt.Errorf("解析工艺结构失败: %w", err)
	}

	demands := AggregateDemand(subprocesses, lot.Quantity)
	variantIDs := make([]string, 0, len(demands))
	for _, d := range demands {
		variantIDs = append(variantIDs, d.VariantID)
	}

	stocks, err := s.variantRepo.GetStocks(ctx, variantIDs)
	if err != nil {
		return nil, fmt.Errorf("查询库存失败: %w", err)
	}
	rules, err := s.ruleRepo.FindActiveByVariants(ctx, variantIDs)
	if err != nil {
		return nil, fmt.Errorf("查询告警规则失败: %w", err)
	}

	alerts := BuildAlerts(lotID, demands, stocks, rules)
	summary, invStatus := Aggregate(alerts)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.lotRepo.LockByID(tx, lotID)
		if err != nil {
			return err
		}
		// 持锁后复查：避免与定版/取消竞争
		if locked.Status == entity.LotStatusFinalized || locked.Status == entity.LotStatusCancelled {
			return &ConflictError{Message: fmt.Sprintf("批次已%s，不允许重新评估", locked.Status)}
		}

		if err := s.alertRepo.ReplaceForLot(tx, lotID, alerts); err != nil {
			return err
		}
		return tx.Model(&entity.ProductionLot{}).
			Where("id = ?", lotID).
			Updates(map[string]interface{}{
				"lot_status_inventory": invStatus,
				"alert_summary_json":   summary,
			}).Error
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStatsCache(ctx)

	return &ValidationResult{
		LotID:            lotID,
		AlertsGenerated:  len(alerts),
		AlertsBySeverity: summary,
		LotStatus:        invStatus,
		Alerts:           alerts,
	}, nil
}

// LotAlertsView 批次当前告警汇总视图
type LotAlertsView struct {
	LotID              string                  `json:"lot_id"`
	LotStatusInventory string                  `json:"lot_status_inventory"`
	TotalAlerts        int                     `json:"total_alerts"`
	AlertsSummary      entity.SeverityCounts   `json:"alerts_summary"`
	AlertDetails       []entity.InventoryAlert `json:"alert_details"`
}

// GetLotAlerts 查询批次当前告警集与汇总
func (s *AlertService) GetLotAlerts(ctx context.Context, lotID string) (*LotAlertsView, error) {
	lot, err := s.lotRepo.FindByID(ctx, lotID)
	if err != nil {
		return nil, err
	}

	alerts, err := s.alertRepo.FindByLotID(ctx, lotID)
	if err != nil {
		return nil, err
	}

	summary := lot.AlertSummary
	if summary == nil {
		summary = entity.SeverityCounts{}
	}

	return &LotAlertsView{
		LotID:              lotID,
		LotStatusInventory: lot.LotStatusInventory,
		TotalAlerts:        len(alerts),
		AlertsSummary:      summary,
		AlertDetails:       alerts,
	}, nil
}

// Acknowledgment 单条确认项
type Acknowledgment struct {
	AlertID     string `json:"alert_id" binding:"required"`
	UserAction  string `json:"user_action" binding:"required"`
	ActionNotes string `json:"action_notes"`
}

// AckResult 批量确认结果
type AckResult struct {
	Status            string                `json:"status"`
	AcknowledgedCount int                   `json:"acknowledged_count"`
	UpdatedLotStatus  string                `json:"updated_lot_status"`
	AlertsSummary     entity.SeverityCounts `json:"alerts_summary"`
}

// AcknowledgeBulk 批量确认告警。任何一条的alert_id不属于该批次、动作不在
// 允许集合或批内重复，整批拒绝不落库；成功则全部生效并重算批次汇总。
// 确认只改user_acknowledged/user_action/action_notes，严重度和数量保持原样
func (s *AlertService) AcknowledgeBulk(ctx context.Context, lotID string, acks []Acknowledgment) (*AckResult, error) {
	if len(acks) == 0 {
		return nil, &ValidationError{Message: "确认列表为空"}
	}

	var result *AckResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lotRepo.LockByID(tx, lotID); err != nil {
			return err
		}

		alerts, err := s.alertRepo.FindByLotForUpdate(tx, lotID)
		if err != nil {
			return err
		}
		byID := make(map[string]*entity.InventoryAlert, len(alerts))
		for i := range alerts {
			byID[alerts[i].ID] = &alerts[i]
		}

		// 先整批校验，再写
		seen := make(map[string]bool, len(acks))
		for _, ack := range acks {
			alert, ok := byID[ack.AlertID]
			if !ok || alert.LotID != lotID {
				return &ValidationError{Message: fmt.Sprintf("告警 %s 不属于批次 %s", ack.AlertID, lotID)}
			}
			if !entity.ValidUserAction(ack.UserAction) {
				return &ValidationError{Message: fmt.Sprintf("非法确认动作: %s", ack.UserAction)}
			}
			if seen[ack.AlertID] {
				return &ValidationError{Message: fmt.Sprintf("告警 %s 在本批次中重复出现", ack.AlertID)}
			}
			seen[ack.AlertID] = true
		}

		for _, ack := range acks {
			if err := s.alertRepo.Acknowledge(tx, ack.AlertID, ack.UserAction, ack.ActionNotes); err != nil {
				return err
			}
			alert := byID[ack.AlertID]
			alert.UserAcknowledged = true
			action := ack.UserAction
			alert.UserAction = &action
			alert.ActionNotes = ack.ActionNotes
		}

		summary, invStatus := Aggregate(alerts)
		if err := tx.Model(&entity.ProductionLot{}).
			Where("id = ?", lotID).
			Updates(map[string]interface{}{
				"lot_status_inventory": invStatus,
				"alert_summary_json":   summary,
			}).Error; err != nil {
			return err
		}

		result = &AckResult{
			Status:            "success",
			AcknowledgedCount: len(acks),
			UpdatedLotStatus:  invStatus,
			AlertsSummary:     summary,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStatsCache(ctx)
	return result, nil
}

// FinalizeResult 定版结果
type FinalizeResult struct {
	Status        string                `json:"status"`
	AlertsSummary entity.SeverityCounts `json:"alerts_summary"`
	FinalizedAt   time.Time             `json:"finalized_at"`
}

// Finalize 批次定版。门禁在同一事务、同一把批次锁下即时检查，
// 存在未确认CRITICAL告警时整单拒绝，不读缓存
func (s *AlertService) Finalize(ctx context.Context, lotID string) (*FinalizeResult, error) {
	var result *FinalizeResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lot, err := s.lotRepo.LockByID(tx, lotID)
		if err != nil {
			return err
		}
		if lot.Status == entity.LotStatusFinalized {
			return &ConflictError{Message: "批次已定版"}
		}
		if lot.Status == entity.LotStatusCancelled {
			return &ConflictError{Message: "批次已取消，不允许定版"}
		}

		blocking, err := s.alertRepo.CountUnackedCritical(tx, lotID)
		if err != nil {
			return err
		}
		if blocking > 0 {
			return &ConflictError{Message: fmt.Sprintf("存在 %d 条未确认的CRITICAL库存告警，批次不允许定版", blocking)}
		}

		now := time.Now()
		if err := tx.Model(&entity.ProductionLot{}).
			Where("id = ?", lotID).
			Updates(map[string]interface{}{
				"status":       entity.LotStatusFinalized,
				"finalized_at": now,
			}).Error; err != nil {
			return err
		}

		summary := lot.AlertSummary
		if summary == nil {
			summary = entity.SeverityCounts{}
		}
		result = &FinalizeResult{
			Status:        "finalized",
			AlertsSummary: summary,
			FinalizedAt:   now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidateStatsCache(ctx)
	return result, nil
}

// AlertStats 全局告警统计（运维看板）
type AlertStats struct {
	ActiveBySeverity           entity.SeverityCounts `json:"active_by_severity"`
	TotalActive                int                   `json:"total_active"`
	OldestUnackedCriticalHours *float64              `json:"oldest_unacked_critical_hours"`
	GeneratedAt                time.Time             `json:"generated_at"`
}

// GetStats 跨批次活跃告警统计，带30秒Redis缓存；告警写入时缓存失效
func (s *AlertService) GetStats(ctx context.Context) (*AlertStats, error) {
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, statsCacheKey).Result(); err == nil {
			var stats AlertStats
			if json.Unmarshal([]byte(cached), &stats) == nil {
				return &stats, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			// Redis不可用时直接回源
		}
	}

	global, err := s.alertRepo.GetGlobalStats(ctx)
	if err != nil {
		return nil, err
	}

	stats := &AlertStats{
		ActiveBySeverity: global.BySeverity,
		TotalActive:      global.BySeverity.Total(),
		GeneratedAt:      time.Now(),
	}
	if global.OldestUnackedCritical != nil {
		hours := time.Since(*global.OldestUnackedCritical).Hours()
		stats.OldestUnackedCriticalHours = &hours
	}

	if s.rdb != nil {
		if data, err := json.Marshal(stats); err == nil {
			s.rdb.Set(ctx, statsCacheKey, data, statsCacheTTL)
		}
	}
	return stats, nil
}

func (s *AlertService) invalidateStatsCache(ctx context.Context) {
	if s.rdb != nil {
		s.rdb.Del(ctx, statsCacheKey)
	}
}
