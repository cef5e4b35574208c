package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductionLot 生产批次（按指定工艺生产N个单位的请求）
type ProductionLot struct {
	ID        string          `json:"id" gorm:"primaryKey;size:32"`
	LotNumber string          `json:"lot_number" gorm:"size:32;uniqueIndex;not null"`
	ProcessID string          `json:"process_id" gorm:"size:32;not null;index"`
	Quantity  decimal.Decimal `json:"quantity" gorm:"type:decimal(15,4);not null"`

	// 批次生命周期状态
	Status string `json:"status" gorm:"size:20;not null;default:draft"`

	// 库存状态与告警汇总 — 仅由Aggregator写入，与当前告警集始终一致
	LotStatusInventory string         `json:"lot_status_inventory" gorm:"size:40;not null;default:READY"`
	AlertSummary       SeverityCounts `json:"alert_summary" gorm:"type:jsonb;column:alert_summary_json"`

	RequiredDate *time.Time `json:"required_date"`
	FinalizedAt  *time.Time `json:"finalized_at"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`

	Process *Process `json:"process,omitempty" gorm:"foreignKey:ProcessID"`
}

func (ProductionLot) TableName() string {
	return "mes_production_lots"
}

// 批次生命周期状态
const (
	LotStatusDraft      = "draft"
	LotStatusPlanning   = "planning"
	LotStatusReady      = "ready"
	LotStatusInProgress = "in_progress"
	LotStatusCompleted  = "completed"
	LotStatusCancelled  = "cancelled"
	LotStatusFinalized  = "finalized"
)

// 批次库存状态（由未确认告警的最差严重度推导）
const (
	LotInventoryReady              = "READY"
	LotInventoryPartialFulfillment = "PARTIAL_FULFILLMENT_REQUIRED"
	LotInventoryPendingProcurement = "PENDING_PROCUREMENT"
)
