package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProcurementRecommendation 采购建议（由未确认的CRITICAL/HIGH告警合成）
// 同一(批次,变体)同时只允许一条open建议；后续状态流转归采购订单子系统
type ProcurementRecommendation struct {
	ID         string  `json:"id" gorm:"primaryKey;size:32"`
	LotID      string  `json:"lot_id" gorm:"size:32;not null;index"`
	VariantID  string  `json:"variant_id" gorm:"size:32;not null;index"`
	SupplierID *string `json:"supplier_id" gorm:"size:32"`

	RecommendedQty       decimal.Decimal  `json:"recommended_qty" gorm:"type:decimal(15,4);not null"`
	RequiredDeliveryDate time.Time        `json:"required_delivery_date" gorm:"not null"`
	EstimatedCost        *decimal.Decimal `json:"estimated_cost" gorm:"type:decimal(15,2)"`

	ProcurementStatus string  `json:"procurement_status" gorm:"size:20;not null;default:RECOMMENDED;index"`
	PurchaseOrderID   *string `json:"purchase_order_id" gorm:"size:32"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Variant  *Variant  `json:"variant,omitempty" gorm:"foreignKey:VariantID"`
	Supplier *Supplier `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
}

func (ProcurementRecommendation) TableName() string {
	return "mes_procurement_recommendations"
}

// 采购建议状态
const (
	ProcurementStatusRecommended = "RECOMMENDED"
	ProcurementStatusOrdered     = "ORDERED"
	ProcurementStatusReceived    = "RECEIVED"
	ProcurementStatusPartial     = "PARTIAL"
	ProcurementStatusCancelled   = "CANCELLED"
)

// ValidProcurementStatus 校验采购建议状态
func ValidProcurementStatus(status string) bool {
	switch status {
	case ProcurementStatusRecommended, ProcurementStatusOrdered, ProcurementStatusReceived,
		ProcurementStatusPartial, ProcurementStatusCancelled:
		return true
	}
	return false
}

// IsOpenProcurementStatus open = 尚未收货且未取消
func IsOpenProcurementStatus(status string) bool {
	return status != ProcurementStatusReceived && status != ProcurementStatusCancelled
}
