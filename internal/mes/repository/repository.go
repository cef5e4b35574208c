package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories MES仓库集合
type Repositories struct {
	Variant        *VariantRepository
	Supplier       *SupplierRepository
	Process        *ProcessRepository
	AlertRule      *AlertRuleRepository
	Lot            *LotRepository
	Alert          *AlertRepository
	Recommendation *RecommendationRepository
}

// NewRepositories 创建MES仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Variant:        NewVariantRepository(db),
		Supplier:       NewSupplierRepository(db),
		Process:        NewProcessRepository(db),
		AlertRule:      NewAlertRuleRepository(db),
		Lot:            NewLotRepository(db),
		Alert:          NewAlertRepository(db),
		Recommendation: NewRecommendationRepository(db),
	}
}
