package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Supplier 供应商
type Supplier struct {
	ID     string `json:"id" gorm:"primaryKey;size:32"`
	Code   string `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name   string `json:"name" gorm:"size:200;not null"`
	Status string `json:"status" gorm:"size:20;default:active"` // active/suspended

	// 联系方式
	ContactName  string `json:"contact_name" gorm:"size:100"`
	ContactPhone string `json:"contact_phone" gorm:"size:50"`
	ContactEmail string `json:"contact_email" gorm:"size:200"`
	Address      string `json:"address" gorm:"size:500"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`

	// 关联
	Rates []SupplierRate `json:"rates,omitempty" gorm:"foreignKey:SupplierID"`
}

func (Supplier) TableName() string {
	return "mes_suppliers"
}

// 供应商状态
const (
	SupplierStatusActive    = "active"
	SupplierStatusSuspended = "suspended"
)

// SupplierRate 供应商报价（变体维度，Synthesizer 估价用）
type SupplierRate struct {
	ID         string `json:"id" gorm:"primaryKey;size:32"`
	SupplierID string `json:"supplier_id" gorm:"size:32;not null;index"`
	VariantID  string `json:"variant_id" gorm:"size:32;not null;index"`

	UnitPrice    decimal.Decimal `json:"unit_price" gorm:"type:decimal(12,4);not null"`
	Currency     string          `json:"currency" gorm:"size:10;default:CNY"`
	LeadTimeDays int             `json:"lead_time_days" gorm:"default:0"`
	MOQ          *int            `json:"moq"`
	ValidUntil   *time.Time      `json:"valid_until"`
	Active       bool            `json:"active" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Supplier *Supplier `json:"supplier,omitempty" gorm:"foreignKey:SupplierID"`
}

func (SupplierRate) TableName() string {
	return "mes_supplier_rates"
}
