package service

import (
	"testing"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func rule(safety, reorder string) *entity.AlertRule {
	return &entity.AlertRule{
		ID:              "rule-1",
		VariantID:       "var-1",
		SafetyStockQty:  d(safety),
		ReorderPointQty: d(reorder),
		Active:          true,
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		required      string
		current       string
		rule          *entity.AlertRule
		wantSeverity  string
		wantShortfall string
		wantSuggested string
	}{
		{
			name:     "缺口大于等于reorder_point为CRITICAL",
			required: "50", current: "5", rule: rule("10", "20"),
			wantSeverity: entity.SeverityCritical, wantShortfall: "45", wantSuggested: "45",
		},
		{
			name:     "缺口小于reorder_point且库存低于安全线为HIGH",
			required: "15", current: "5", rule: rule("10", "20"),
			wantSeverity: entity.SeverityHigh, wantShortfall: "10", wantSuggested: "10",
		},
		{
			name:     "缺口存在但库存不低于安全线时兜底CRITICAL",
			required: "15", current: "12", rule: rule("10", "20"),
			wantSeverity: entity.SeverityCritical, wantShortfall: "3", wantSuggested: "3",
		},
		{
			name:     "无缺口但剩余低于安全线为MEDIUM",
			required: "10", current: "15", rule: rule("10", "20"),
			wantSeverity: entity.SeverityMedium, wantShortfall: "0", wantSuggested: "0",
		},
		{
			name:     "无缺口剩余在安全线与reorder_point之间为LOW",
			required: "10", current: "25", rule: rule("10", "20"),
			wantSeverity: entity.SeverityLow, wantShortfall: "0", wantSuggested: "0",
		},
		{
			name:     "剩余达到reorder_point为OK",
			required: "10", current: "30", rule: rule("10", "20"),
			wantSeverity: entity.SeverityOK, wantShortfall: "0", wantSuggested: "0",
		},
		{
			name:     "剩余恰好等于安全线为LOW",
			required: "10", current: "20", rule: rule("10", "20"),
			wantSeverity: entity.SeverityLow, wantShortfall: "0", wantSuggested: "0",
		},
		{
			name:     "缺口恰好等于reorder_point为CRITICAL",
			required: "25", current: "5", rule: rule("10", "20"),
			wantSeverity: entity.SeverityCritical, wantShortfall: "20", wantSuggested: "20",
		},
		{
			name:     "无规则视为零阈值_有缺口为CRITICAL",
			required: "10", current: "4", rule: nil,
			wantSeverity: entity.SeverityCritical, wantShortfall: "6", wantSuggested: "6",
		},
		{
			name:     "无规则视为零阈值_库存充足为OK",
			required: "10", current: "10", rule: nil,
			wantSeverity: entity.SeverityOK, wantShortfall: "0", wantSuggested: "0",
		},
		{
			name:     "小数量精确计算无漂移",
			required: "0.3", current: "0.1", rule: rule("0", "0.1"),
			wantSeverity: entity.SeverityCritical, wantShortfall: "0.2", wantSuggested: "0.2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(d(tt.required), d(tt.current), tt.rule)
			if got.Severity != tt.wantSeverity {
				t.Errorf("Severity = %s, want %s", got.Severity, tt.wantSeverity)
			}
			if !got.ShortfallQty.Equal(d(tt.wantShortfall)) {
				t.Errorf("ShortfallQty = %s, want %s", got.ShortfallQty, tt.wantShortfall)
			}
			if !got.SuggestedQty.Equal(d(tt.wantSuggested)) {
				t.Errorf("SuggestedQty = %s, want %s", got.SuggestedQty, tt.wantSuggested)
			}
		})
	}
}

func TestClassifyDeterministic(t *testing.T) {
	r := rule("10", "20")
	first := Classify(d("50"), d("5"), r)
	for i := 0; i < 100; i++ {
		again := Classify(d("50"), d("5"), r)
		if again.Severity != first.Severity || !again.ShortfallQty.Equal(first.ShortfallQty) {
			t.Fatalf("分级结果不稳定: %+v vs %+v", again, first)
		}
	}
}

func TestAggregateDemand(t *testing.T) {
	subprocesses := []entity.Subprocess{
		{
			ID: "sp1", Seq: 1,
			Usages: []entity.VariantUsage{
				{VariantID: "var-b", QuantityPerUnit: d("2")},
				{VariantID: "var-a", QuantityPerUnit: d("0.5")},
			},
		},
		{
			ID: "sp2", Seq: 2,
			Usages: []entity.VariantUsage{
				{VariantID: "var-a", QuantityPerUnit: d("1.5")},
			},
		},
	}

	demands := AggregateDemand(subprocesses, d("10"))
	if len(demands) != 2 {
		t.Fatalf("demands数量 = %d, want 2", len(demands))
	}
	// 按变体ID排序
	if demands[0].VariantID != "var-a" || demands[1].VariantID != "var-b" {
		t.Errorf("排序错误: %s, %s", demands[0].VariantID, demands[1].VariantID)
	}
	// var-a: (0.5+1.5)×10 = 20，跨子工序累加
	if !demands[0].RequiredQty.Equal(d("20")) {
		t.Errorf("var-a需求 = %s, want 20", demands[0].RequiredQty)
	}
	if !demands[1].RequiredQty.Equal(d("20")) {
		t.Errorf("var-b需求 = %s, want 20", demands[1].RequiredQty)
	}
}

func TestAggregateDemandEmpty(t *testing.T) {
	demands := AggregateDemand(nil, d("10"))
	if len(demands) != 0 {
		t.Errorf("空工艺结构应产生0条需求, got %d", len(demands))
	}
}

func TestBuildAlerts(t *testing.T) {
	demands := []VariantDemand{
		{VariantID: "var-a", RequiredQty: d("50")},
		{VariantID: "var-b", RequiredQty: d("10")},
	}
	stocks := map[string]decimal.Decimal{
		"var-a": d("5"),
		"var-b": d("100"),
	}
	rules := map[string]entity.AlertRule{
		"var-a": *rule("10", "20"),
	}

	alerts := BuildAlerts("lot-1", demands, stocks, rules)
	if len(alerts) != 2 {
		t.Fatalf("alerts数量 = %d, want 2", len(alerts))
	}
	if alerts[0].Severity != entity.SeverityCritical {
		t.Errorf("var-a severity = %s, want CRITICAL", alerts[0].Severity)
	}
	if !alerts[0].SuggestedProcurementQty.Equal(d("45")) {
		t.Errorf("var-a建议采购量 = %s, want 45", alerts[0].SuggestedProcurementQty)
	}
	// var-b无规则，库存充足
	if alerts[1].Severity != entity.SeverityOK {
		t.Errorf("var-b severity = %s, want OK", alerts[1].Severity)
	}
	for _, a := range alerts {
		if a.LotID != "lot-1" {
			t.Errorf("LotID = %s, want lot-1", a.LotID)
		}
		if a.UserAcknowledged {
			t.Error("新告警不应已确认")
		}
	}
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name       string
		alerts     []entity.InventoryAlert
		wantStatus string
		wantCounts map[string]int
	}{
		{
			name:       "空告警集为READY",
			alerts:     nil,
			wantStatus: entity.LotInventoryReady,
			wantCounts: map[string]int{},
		},
		{
			name: "未确认CRITICAL推导PENDING_PROCUREMENT",
			alerts: []entity.InventoryAlert{
				{Severity: entity.SeverityCritical},
				{Severity: entity.SeverityHigh},
				{Severity: entity.SeverityOK},
			},
			wantStatus: entity.LotInventoryPendingProcurement,
			wantCounts: map[string]int{"CRITICAL": 1, "HIGH": 1, "OK": 1},
		},
		{
			name: "未确认最高为HIGH推导PARTIAL_FULFILLMENT_REQUIRED",
			alerts: []entity.InventoryAlert{
				{Severity: entity.SeverityHigh},
				{Severity: entity.SeverityMedium},
			},
			wantStatus: entity.LotInventoryPartialFulfillment,
			wantCounts: map[string]int{"HIGH": 1, "MEDIUM": 1},
		},
		{
			name: "已确认CRITICAL不拉低库存状态但计入汇总",
			alerts: []entity.InventoryAlert{
				{Severity: entity.SeverityCritical, UserAcknowledged: true},
				{Severity: entity.SeverityMedium},
			},
			wantStatus: entity.LotInventoryReady,
			wantCounts: map[string]int{"CRITICAL": 1, "MEDIUM": 1},
		},
		{
			name: "MEDIUM及以下均为READY",
			alerts: []entity.InventoryAlert{
				{Severity: entity.SeverityMedium},
				{Severity: entity.SeverityLow},
				{Severity: entity.SeverityOK},
			},
			wantStatus: entity.LotInventoryReady,
			wantCounts: map[string]int{"MEDIUM": 1, "LOW": 1, "OK": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			summary, status := Aggregate(tt.alerts)
			if status != tt.wantStatus {
				t.Errorf("status = %s, want %s", status, tt.wantStatus)
			}
			for sev, cnt := range tt.wantCounts {
				if summary[sev] != cnt {
					t.Errorf("summary[%s] = %d, want %d", sev, summary[sev], cnt)
				}
			}
			if summary.Total() != len(tt.alerts) {
				t.Errorf("Total() = %d, want %d", summary.Total(), len(tt.alerts))
			}
		})
	}
}
