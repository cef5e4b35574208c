package handler

import (
	"net/http"
	"testing"

	"github.com/bitfantasy/nimo-mes/internal/mes/entity"
	"github.com/bitfantasy/nimo-mes/internal/mes/repository"
	"github.com/bitfantasy/nimo-mes/internal/mes/service"
	"github.com/bitfantasy/nimo-mes/internal/mes/testutil"
	"github.com/shopspring/decimal"
)

func setupAlertTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, nil)
	handlers := NewHandlers(services)

	api := testutil.AuthGroup(router, "/api/v1")
	api.POST("/lots", handlers.Lot.Create)
	api.GET("/lots/:id", handlers.Lot.Get)
	api.POST("/lots/:id/validate-inventory", handlers.Alert.ValidateInventory)
	api.GET("/lots/:id/alerts", handlers.Alert.GetLotAlerts)
	api.POST("/lots/:id/alerts/acknowledge", handlers.Alert.Acknowledge)
	api.POST("/lots/:id/finalize", handlers.Alert.Finalize)
	api.GET("/lots/:id/recommendations", handlers.Procurement.ListByLot)
	api.POST("/lots/:id/recommendations/synthesize", handlers.Procurement.Synthesize)
	api.GET("/alerts/stats", handlers.Alert.GetStats)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func d(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

// 种子：一个工艺消耗两个变体，var-short缺料（CRITICAL）、var-ok充足
func seedShortageLot(t *testing.T, env *testutil.TestEnv) *entity.ProductionLot {
	t.Helper()
	testutil.SeedVariant(t, env.DB, "var-short", "SKU-SHORT", d("5"))
	testutil.SeedVariant(t, env.DB, "var-ok", "SKU-OK", d("1000"))
	testutil.SeedRule(t, env.DB, "rule-short", "var-short", d("10"), d("20"))
	testutil.SeedProcess(t, env.DB, "proc-1", "PROC-001", map[string]decimal.Decimal{
		"var-short": d("5"),
		"var-ok":    d("1"),
	})
	return testutil.SeedLot(t, env.DB, "lot00000000000000000000000000001", "proc-1", d("10"))
}

func TestValidateInventoryGeneratesAlerts(t *testing.T) {
	env := setupAlertTest(t)
	token := testutil.DefaultTestToken()
	lot := seedShortageLot(t, env)

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/lots/"+lot.ID+"/validate-inventory", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var alerts []entity.InventoryAlert
	env.DB.Where("lot_id = ?", lot.ID).Order("variant_id").Find(&alerts)
	if len(alerts) != 2 {
		t.Fatalf("告警数量 = %d, want 2", len(alerts))
	}
	// var-short: required=50, current=5, shortfall=45 >= reorder 20
	var short entity.InventoryAlert
	for _, a := range alerts {
		if a.VariantID == "var-short" {
			short = a
		}
	}
	if short.Severity != entity.SeverityCritical {
		t.Errorf("severity = %s, want CRITICAL", short.Severity)
	}
	if !short.ShortfallQty.Equal(d("45")) {
		t.Errorf("shortfall = %s, want 45", short.ShortfallQty)
	}

	var updated entity.ProductionLot
	env.DB.First(&updated, "id = ?", lot.ID)
	if updated.LotStatusInventory != entity.LotInventoryPendingProcurement {
		t.Errorf("lot_status_inventory = %s, want PENDING_PROCUREMENT", updated.LotStatusInventory)
	}
	if updated.AlertSummary[entity.SeverityCritical] != 1 {
		t.Errorf("summary CRITICAL = %d, want 1", updated.AlertSummary[entity.SeverityCritical])
	}
}

func TestValidateInventoryIdempotent(t *testing.T) {
	env := setupAlertTest(t)
	token := testutil.DefaultTestToken()
	lot := seedShortageLot(t, env)

	for i := 0; i < 3; i++ {
		w := testutil.DoRequest(env.Router, "POST", "/api/v1/lots/"+lot.ID+"/validate-inventory", nil, token)
		if w.Code != http.StatusOK {
			t.Fatalf("第%d次评估 status = %d", i+1, w.Code)
		}
	}

	// 重复评估整体替换告警集，不累积
	var count int64
	env.DB.Model(&entity.InventoryAlert{}).Where("lot_id = ?", lot.ID).Count(&count)
	if count != 2 {
		t.Errorf("重复评估后告警数量 = %d, want 2", count)
	}
}

func TestValidateInventoryRejectedAfterFinalize(t *testing.T) {
	env := setupAlertTest(t)
	token := testutil.DefaultTestToken()

	testutil.SeedVariant(t, env.DB, "var-ok", "SKU-OK", d("1000"))
	testutil.SeedProcess(t, env.DB, "proc-1", "PROC-001", map[string]decimal.Decimal{"var-ok": d("1")})
	lot := testutil.SeedLot(t, env.DB, "lot00000000000000000000000000002", "proc-1", d("10"))

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/lots/"+lot.ID+"/finalize", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("finalize status = %d, body = %s", w.Code, w.Body.String())
	}

	w = testutil.DoRequest(env.Router, "POST", "/api/v1/lots/"+lot.ID+"/validate-inventory", nil, token)
	if w.Code != http.StatusConflict {
		t.Errorf("定版后重新评估 status = %d, want 409", w.Code)
	}
}

func TestAcknowledgeFlow(t *testing.T) {
	env := setupAlertTest(t)
	token := testutil.DefaultTestToken()
	lot := seedShortageLot(t, env)

	testutil.DoRequest(env.Router, "POST", "/api/v1/lots/"+lot.ID+"/validate-inventory", nil, token)

	var critical entity.InventoryAlert
	env.DB.Where("lot_id = ? AND severity = ?", lot.ID, entity.SeverityCritical).First(&critical)

	// 非法动作整批拒绝
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/lots/"+lot.ID+"/alerts/acknowledge", map[string]interface{}{
		"acknowledgments": []map[string]string{
			{"alert_id": critical.ID, "user_action": "INVALID_ACTION"},
		},
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("非法动作 status = %d, want 400", w.Code)
	}
	var check entity.InventoryAlert
	env.DB.First(&check, "id = ?", critical.ID)
	if check.UserAcknowledged {
		t.Fatal("整批拒绝后不应有任何告警被确认")
	}

	// 未知alert_id整批拒绝
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/lots/"+lot.ID+"/alerts/acknowledge", map[string]interface{}{
		"acknowledgments": []map[string]string{
			{"alert_id": critical.ID, "user_action": "PROCURE"},
			{"alert_id": "nonexistent", "user_action": "PROCEED"},
		},
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("未知alert_id status = %d, want 400", w.Code)
	}
	env.DB.First(&check, "id = ?", critical.ID)
	if check.UserAcknowledged {
		t.Fatal("部分非法时合法项也不应落库")
	}

	// 批内重复整批拒绝
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/lots/"+lot.ID+"/alerts/acknowledge", map[string]interface{}{
		"acknowledgments": []map[string]string{
			{"alert_id": critical.ID, "user_action": "PROCURE"},
			{"alert_id": critical.ID, "user_action": "DELAY"},
		},
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("批内重复 status = %d, want 400", w.Code)
	}

	// 合法确认生效并重算批次状态
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/lots/"+lot.ID+"/alerts/acknowledge", map[string]interface{}{
		"acknowledgments": []map[string]string{
			{"alert_id": critical.ID, "user_action": "PROCURE", "action_notes": "已联系供应商"},
		},
	}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("合法确认 status = %d, body = %s", w.Code, w.Body.String())
	}

	env.DB.First(&check, "id = ?", critical.ID)
	if !check.UserAcknowledged || check.UserAction == nil || *check.UserAction != "PROCURE" {
		t.Errorf("确认未生效: %+v", check)
	}
	// 确认不改数量和严重度
	if check.Severity != entity.SeverityCritical || !check.ShortfallQty.Equal(d("45")) {
		t.Errorf("确认改动了严重度或数量: %+v", check)
	}

	var updated entity.ProductionLot
	env.DB.First(&updated, "id = ?", lot.ID)
	if updated.LotStatusInventory != entity.LotInventoryReady {
		t.Errorf("确认后 lot_status_inventory = %s, want READY", updated.LotStatusInventory)
	}
}

func TestFinalizeGate(t *testing.T) {
	env := setupAlertTest(t)
	token := testutil.DefaultTestToken()
	lot := seedShortageLot(t, env)

	testutil.DoRequest(env.Router, "POST", "/api/v1/lots/"+lot.ID+"/validate-inventory", nil, token)

	// 未确认CRITICAL存在时定版被拒
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/lots/"+lot.ID+"/finalize", nil, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("门禁未拦截: status = %d, body = %s", w.Code, w.Body.String())
	}

	var critical entity.InventoryAlert
	env.DB.Where("lot_id = ? AND severity = ?", lot.ID, entity.SeverityCritical).First(&critical)
	testutil.DoRequest(env.Router, "POST", "/api/v1/lots/"+lot.ID+"/alerts/acknowledge", map[string]interface{}{
		"acknowledgments": []map[string]string{
			{"alert_id": critical.ID, "user_action": "PROCEED"},
		},
	}, token)

	// 确认后立即可定版（门禁即时反映当前状态）
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/lots/"+lot.ID+"/finalize", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("确认后定版 status = %d, body = %s", w.Code, w.Body.String())
	}

	var updated entity.ProductionLot
	env.DB.First(&updated, "id = ?", lot.ID)
	if updated.Status != entity.LotStatusFinalized {
		t.Errorf("status = %s, want finalized", updated.Status)
	}
	if updated.FinalizedAt == nil {
		t.Error("finalized_at未写入")
	}

	// 再次定版冲突
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/lots/"+lot.ID+"/finalize", nil, token)
	if w.Code != http.StatusConflict {
		t.Errorf("重复定版 status = %d, want 409", w.Code)
	}
}

func TestSynthesizeIdempotent(t *testing.T) {
	env := setupAlertTest(t)
	token := testutil.DefaultTestToken()
	lot := seedShortageLot(t, env)

	// 最优报价：供应商报价7.5元、提前期10天
	testutil.DoRequest(env.Router, "POST", "/api/v1/lots/"+lot.ID+"/validate-inventory", nil, token)
	env.DB.Create(&entity.Supplier{ID: "sup-1", Code: "SUP-001", Name: "测试供应商", Status: "active"})
	env.DB.Create(&entity.SupplierRate{
		ID: "rate-1", SupplierID: "sup-1", VariantID: "var-short",
		UnitPrice: d("7.5"), LeadTimeDays: 10, Active: true,
	})

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/lots/"+lot.ID+"/recommendations/synthesize", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("synthesize status = %d, body = %s", w.Code, w.Body.String())
	}

	var recs []entity.ProcurementRecommendation
	env.DB.Where("lot_id = ?", lot.ID).Find(&recs)
	if len(recs) != 1 {
		t.Fatalf("建议数量 = %d, want 1", len(recs))
	}
	rec := recs[0]
	if rec.VariantID != "var-short" || !rec.RecommendedQty.Equal(d("45")) {
		t.Errorf("建议内容错误: %+v", rec)
	}
	if rec.SupplierID == nil || *rec.SupplierID != "sup-1" {
		t.Error("未解析最优报价供应商")
	}
	if rec.EstimatedCost == nil || !rec.EstimatedCost.Equal(d("337.5")) {
		t.Errorf("预估成本错误: %v, want 337.5", rec.EstimatedCost)
	}
	if rec.ProcurementStatus != entity.ProcurementStatusRecommended {
		t.Errorf("初始状态 = %s, want RECOMMENDED", rec.ProcurementStatus)
	}

	// 重复合成跳过已有open建议
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/lots/"+lot.ID+"/recommendations/synthesize", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("重复synthesize status = %d", w.Code)
	}
	var count int64
	env.DB.Model(&entity.ProcurementRecommendation{}).Where("lot_id = ?", lot.ID).Count(&count)
	if count != 1 {
		t.Errorf("重复合成后建议数量 = %d, want 1", count)
	}
}

func TestGetLotAlertsAndStats(t *testing.T) {
	env := setupAlertTest(t)
	token := testutil.DefaultTestToken()
	lot := seedShortageLot(t, env)

	testutil.DoRequest(env.Router, "POST", "/api/v1/lots/"+lot.ID+"/validate-inventory", nil, token)

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/lots/"+lot.ID+"/alerts", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("get alerts status = %d", w.Code)
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	if data["total_alerts"].(float64) != 2 {
		t.Errorf("total_alerts = %v, want 2", data["total_alerts"])
	}
	if data["lot_status_inventory"].(string) != entity.LotInventoryPendingProcurement {
		t.Errorf("lot_status_inventory = %v", data["lot_status_inventory"])
	}

	w = testutil.DoRequest(env.Router, "GET", "/api/v1/alerts/stats", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("stats status = %d", w.Code)
	}
	resp = testutil.ParseResponse(w)
	stats := resp["data"].(map[string]interface{})
	bySeverity := stats["active_by_severity"].(map[string]interface{})
	if bySeverity[entity.SeverityCritical].(float64) != 1 {
		t.Errorf("stats CRITICAL = %v, want 1", bySeverity[entity.SeverityCritical])
	}
}

func TestGetLotAlertsNotFound(t *testing.T) {
	env := setupAlertTest(t)
	token := testutil.DefaultTestToken()

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/lots/nonexistent/alerts", nil, token)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
