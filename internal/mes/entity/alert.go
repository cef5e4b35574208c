package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertRule 变体库存告警规则（管理员维护，引擎只读）
// 每个变体最多一条active规则
type AlertRule struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	VariantID string `json:"variant_id" gorm:"size:32;not null;index"`

	SafetyStockQty  decimal.Decimal `json:"safety_stock_qty" gorm:"type:decimal(15,4);not null;default:0"`
	ReorderPointQty decimal.Decimal `json:"reorder_point_qty" gorm:"type:decimal(15,4);not null;default:0"`
	// 提前告警百分比（0-100，advisory）
	AlertThresholdPct int  `json:"alert_threshold_pct" gorm:"default:0"`
	Active            bool `json:"active" gorm:"default:true;index"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AlertRule) TableName() string {
	return "mes_alert_rules"
}

// 告警严重度
const (
	SeverityCritical = "CRITICAL"
	SeverityHigh     = "HIGH"
	SeverityMedium   = "MEDIUM"
	SeverityLow      = "LOW"
	SeverityOK       = "OK"
)

// Severities 严重度全集，从最差到最好排序
var Severities = []string{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityOK}

// 用户确认动作
const (
	ActionProceed        = "PROCEED"
	ActionUseSubstitute  = "USE_SUBSTITUTE"
	ActionDelay          = "DELAY"
	ActionProcure        = "PROCURE"
	ActionPartialFulfill = "PARTIAL_FULFILL"
)

// ValidUserAction 校验确认动作是否在允许集合内
func ValidUserAction(action string) bool {
	switch action {
	case ActionProceed, ActionUseSubstitute, ActionDelay, ActionProcure, ActionPartialFulfill:
		return true
	}
	return false
}

// InventoryAlert 库存告警，每次评估每个(批次,变体)一行
// 重新评估会整体替换该批次的告警集；确认只改user_*字段，不动数量和严重度
type InventoryAlert struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	LotID     string `json:"lot_id" gorm:"size:32;not null;index"`
	VariantID string `json:"variant_id" gorm:"size:32;not null;index"`

	Severity string `json:"severity" gorm:"size:20;not null;index"`

	CurrentStockQty         decimal.Decimal `json:"current_stock_qty" gorm:"type:decimal(15,4);not null;default:0"`
	RequiredQty             decimal.Decimal `json:"required_qty" gorm:"type:decimal(15,4);not null;default:0"`
	ShortfallQty            decimal.Decimal `json:"shortfall_qty" gorm:"type:decimal(15,4);not null;default:0"`
	SuggestedProcurementQty decimal.Decimal `json:"suggested_procurement_qty" gorm:"type:decimal(15,4);not null;default:0"`

	UserAcknowledged bool    `json:"user_acknowledged" gorm:"default:false;index"`
	UserAction       *string `json:"user_action" gorm:"size:20"`
	ActionNotes      string  `json:"action_notes" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`

	Variant *Variant `json:"variant,omitempty" gorm:"foreignKey:VariantID"`
}

func (InventoryAlert) TableName() string {
	return "mes_inventory_alerts"
}
