package service

import (
	"sort"
	"time"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VariantDemand 变体在整个工艺结构中的汇总需求
type VariantDemand struct {
	VariantID   string
	RequiredQty decimal.Decimal
}

// AggregateDemand 汇总工艺结构的变体需求：
// required = Σ(各子工序该变体的quantity_per_unit) × 批次数量。
// 同一变体在多道子工序出现时需求累加。结果按变体ID排序，保证重复评估输出稳定
func AggregateDemand(subprocesses []entity.Subprocess, lotQty decimal.Decimal) []VariantDemand {
	perUnit := make(map[string]decimal.Decimal)
	for _, sp := range subprocesses {
		for _, usage := range sp.Usages {
			perUnit[usage.VariantID] = perUnit[usage.VariantID].Add(usage.QuantityPerUnit)
		}
	}

	demands := make([]VariantDemand, 0, len(perUnit))
	for variantID, qty := range perUnit {
		demands = append(demands, VariantDemand{
			VariantID:   variantID,
			RequiredQty: qty.Mul(lotQty),
		})
	}
	sort.Slice(demands, func(i, j int) bool {
		return demands[i].VariantID < demands[j].VariantID
	})
	return demands
}

// Classification 单个变体的分级结果
type Classification struct {
	Severity     string
	ShortfallQty decimal.Decimal
	SuggestedQty decimal.Decimal
}

// Classify 按需求量、现有库存和告警规则分级，严格按顺序首个命中生效：
//
//	CRITICAL: shortfall > 0 且 shortfall >= reorder_point
//	HIGH:     shortfall > 0 且 shortfall < reorder_point 且 current < safety_stock
//	MEDIUM:   shortfall == 0 但履约后剩余 < safety_stock
//	LOW:      shortfall == 0 且剩余在 [safety_stock, reorder_point)
//	OK:       剩余 >= reorder_point
//
// shortfall > 0 但既不满足CRITICAL也不满足HIGH的边界组合按CRITICAL处理
// （缺料时宁可误报不可漏报）。无active规则视为 safety = reorder = 0。
// 全程decimal运算，相同输入必然产生相同输出
func Classify(required, current decimal.Decimal, rule *entity.AlertRule) Classification {
	safety := decimal.Zero
	reorder := decimal.Zero
	if rule != nil {
		safety = rule.SafetyStockQty
		reorder = rule.ReorderPointQty
	}

	shortfall := required.Sub(current)
	if shortfall.IsNegative() {
		shortfall = decimal.Zero
	}

	var severity string
	if shortfall.IsPositive() {
		switch {
		case shortfall.GreaterThanOrEqual(reorder):
			severity = entity.SeverityCritical
		case current.LessThan(safety):
			severity = entity.SeverityHigh
		default:
			// 边界：有缺口但量级未到reorder_point且库存不低于安全线
			severity = entity.SeverityCritical
		}
	} else {
		remaining := current.Sub(required)
		switch {
		case remaining.LessThan(safety):
			severity = entity.SeverityMedium
		case remaining.LessThan(reorder):
			severity = entity.SeverityLow
		default:
			severity = entity.SeverityOK
		}
	}

	suggested := decimal.Zero
	if severity == entity.SeverityCritical || severity == entity.SeverityHigh {
		suggested = shortfall
	}

	return Classification{
		Severity:     severity,
		ShortfallQty: shortfall,
		SuggestedQty: suggested,
	}
}

// BuildAlerts 对批次的全部变体需求逐个分级，生成新的告警集。
// 纯计算，不触库；stocks/rules缺失的变体按零库存、零阈值处理
func BuildAlerts(lotID string, demands []VariantDemand, stocks map[string]decimal.Decimal, rules map[string]entity.AlertRule) []entity.InventoryAlert {
	now := time.Now()
	alerts := make([]entity.InventoryAlert, 0, len(demands))

	for _, demand := range demands {
		current := stocks[demand.VariantID]

		var rule *entity.AlertRule
		if r, ok := rules[demand.VariantID]; ok {
			rule = &r
		}

		c := Classify(demand.RequiredQty, current, rule)
		alerts = append(alerts, entity.InventoryAlert{
			ID:                      uuid.New().String()[:32],
			LotID:                   lotID,
			VariantID:               demand.VariantID,
			Severity:                c.Severity,
			CurrentStockQty:         current,
			RequiredQty:             demand.RequiredQty,
			ShortfallQty:            c.ShortfallQty,
			SuggestedProcurementQty: c.SuggestedQty,
			CreatedAt:               now,
		})
	}
	return alerts
}

// Aggregate 由告警集推导批次汇总：按严重度计数 + 库存状态。
// 库存状态只看未确认告警的最差严重度：
// CRITICAL→PENDING_PROCUREMENT，HIGH→PARTIAL_FULFILLMENT_REQUIRED，其余→READY
func Aggregate(alerts []entity.InventoryAlert) (entity.SeverityCounts, string) {
	summary := entity.SeverityCounts{}
	status := entity.LotInventoryReady

	for _, a := range alerts {
		summary[a.Severity]++
		if a.UserAcknowledged {
			continue
		}
		switch a.Severity {
		case entity.SeverityCritical:
			status = entity.LotInventoryPendingProcurement
		case entity.SeverityHigh:
			if status != entity.LotInventoryPendingProcurement {
				status = entity.LotInventoryPartialFulfillment
			}
		}
	}
	return summary, status
}
