package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Process 生产工艺（由有序子工序组成，每道子工序按单位产出消耗若干变体）
type Process struct {
	ID          string `json:"id" gorm:"primaryKey;size:32"`
	Code        string `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name        string `json:"name" gorm:"size:200;not null"`
	Status      string `json:"status" gorm:"size:20;default:active"` // active/archived
	Description string `json:"description" gorm:"type:text"`

	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Subprocesses []Subprocess `json:"subprocesses,omitempty" gorm:"foreignKey:ProcessID"`
}

func (Process) TableName() string {
	return "mes_processes"
}

// 工艺状态
const (
	ProcessStatusActive   = "active"
	ProcessStatusArchived = "archived"
)

// Subprocess 子工序
type Subprocess struct {
	ID        string `json:"id" gorm:"primaryKey;size:32"`
	ProcessID string `json:"process_id" gorm:"size:32;not null;index"`
	Seq       int    `json:"seq" gorm:"not null;default:0"`
	Name      string `json:"name" gorm:"size:200;not null"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 关联
	Usages []VariantUsage `json:"usages,omitempty" gorm:"foreignKey:SubprocessID"`
}

func (Subprocess) TableName() string {
	return "mes_subprocesses"
}

// VariantUsage 子工序的变体消耗行（每单位工艺产出的消耗量）
type VariantUsage struct {
	ID           string `json:"id" gorm:"primaryKey;size:32"`
	SubprocessID string `json:"subprocess_id" gorm:"size:32;not null;index"`
	VariantID    string `json:"variant_id" gorm:"size:32;not null;index"`

	QuantityPerUnit decimal.Decimal  `json:"quantity_per_unit" gorm:"type:decimal(15,4);not null"`
	UnitCost        *decimal.Decimal `json:"unit_cost" gorm:"type:decimal(12,4)"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Variant *Variant `json:"variant,omitempty" gorm:"foreignKey:VariantID"`
}

func (VariantUsage) TableName() string {
	return "mes_variant_usages"
}
