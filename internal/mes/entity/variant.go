package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Variant 物料变体（原材料的颜色+尺寸组合，采购和消耗的最小单位）
type Variant struct {
	ID       string `json:"id" gorm:"primaryKey;size:32"`
	SKU      string `json:"sku" gorm:"size:64;uniqueIndex;not null"`
	ItemName string `json:"item_name" gorm:"size:200;not null"`
	Color    string `json:"color" gorm:"size:64"`
	Size     string `json:"size" gorm:"size:64"`
	Unit     string `json:"unit" gorm:"size:20;default:pcs"`
	Status   string `json:"status" gorm:"size:20;default:active"` // active/inactive

	// 现有库存（Stock Lookup 的数据源）
	OnHandQty decimal.Decimal `json:"on_hand_qty" gorm:"type:decimal(15,4);not null;default:0"`

	// 默认供应商
	SupplierID *string `json:"supplier_id" gorm:"size:32;index"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`
}

func (Variant) TableName() string {
	return "mes_variants"
}

// 变体状态
const (
	VariantStatusActive   = "active"
	VariantStatusInactive = "inactive"
)
