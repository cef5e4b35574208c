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

func setupLotTest(t *testing.T) *testutil.TestEnv {
	t.Helper()
	db := testutil.SetupTestDB(t)
	router := testutil.SetupRouter()

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, db, nil)
	handlers := NewHandlers(services)

	api := testutil.AuthGroup(router, "/api/v1")
	api.GET("/lots", handlers.Lot.List)
	api.POST("/lots", handlers.Lot.Create)
	api.GET("/lots/:id", handlers.Lot.Get)
	api.PATCH("/recommendations/:id/status", handlers.Procurement.UpdateStatus)

	return &testutil.TestEnv{DB: db, Router: router, T: t}
}

func TestCreateLotRunsValidation(t *testing.T) {
	env := setupLotTest(t)
	token := testutil.DefaultTestToken()

	testutil.SeedVariant(t, env.DB, "var-short", "SKU-SHORT", d("5"))
	testutil.SeedRule(t, env.DB, "rule-short", "var-short", d("10"), d("20"))
	testutil.SeedProcess(t, env.DB, "proc-1", "PROC-001", map[string]decimal.Decimal{"var-short": d("5")})

	w := testutil.DoRequest(env.Router, "POST", "/api/v1/lots", map[string]interface{}{
		"process_id": "proc-1",
		"quantity":   "10",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	lot := data["lot"].(map[string]interface{})
	validation := data["validation"].(map[string]interface{})

	if lot["lot_number"].(string) == "" {
		t.Error("批次号未生成")
	}
	if validation["alerts_generated"].(float64) != 1 {
		t.Errorf("alerts_generated = %v, want 1", validation["alerts_generated"])
	}
	if validation["lot_status_inventory"].(string) != entity.LotInventoryPendingProcurement {
		t.Errorf("lot_status_inventory = %v", validation["lot_status_inventory"])
	}
}

func TestCreateLotValidation(t *testing.T) {
	env := setupLotTest(t)
	token := testutil.DefaultTestToken()

	// 数量必须为正
	w := testutil.DoRequest(env.Router, "POST", "/api/v1/lots", map[string]interface{}{
		"process_id": "proc-1",
		"quantity":   "-5",
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("负数量 status = %d, want 400", w.Code)
	}

	// 工艺不存在
	w = testutil.DoRequest(env.Router, "POST", "/api/v1/lots", map[string]interface{}{
		"process_id": "nonexistent",
		"quantity":   "5",
	}, token)
	if w.Code != http.StatusNotFound {
		t.Errorf("工艺不存在 status = %d, want 404", w.Code)
	}
}

func TestListLotsFilter(t *testing.T) {
	env := setupLotTest(t)
	token := testutil.DefaultTestToken()

	testutil.SeedVariant(t, env.DB, "var-ok", "SKU-OK", d("1000"))
	testutil.SeedProcess(t, env.DB, "proc-1", "PROC-001", map[string]decimal.Decimal{"var-ok": d("1")})
	testutil.SeedLot(t, env.DB, "lot00000000000000000000000000001", "proc-1", d("10"))
	lot2 := testutil.SeedLot(t, env.DB, "lot00000000000000000000000000002", "proc-1", d("20"))
	env.DB.Model(lot2).Update("status", entity.LotStatusFinalized)

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/lots?status=planning", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := testutil.ParseResponse(w)
	data := resp["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	if len(items) != 1 {
		t.Errorf("过滤后批次数量 = %d, want 1", len(items))
	}
}

func TestUpdateRecommendationStatus(t *testing.T) {
	env := setupLotTest(t)
	token := testutil.DefaultTestToken()

	testutil.SeedVariant(t, env.DB, "var-short", "SKU-SHORT", d("5"))
	testutil.SeedProcess(t, env.DB, "proc-1", "PROC-001", map[string]decimal.Decimal{"var-short": d("5")})
	lot := testutil.SeedLot(t, env.DB, "lot00000000000000000000000000003", "proc-1", d("10"))

	rec := &entity.ProcurementRecommendation{
		ID: "rec00000000000000000000000000001", LotID: lot.ID, VariantID: "var-short",
		RecommendedQty: d("45"), ProcurementStatus: entity.ProcurementStatusRecommended,
	}
	env.DB.Create(rec)

	// 非法状态
	w := testutil.DoRequest(env.Router, "PATCH", "/api/v1/recommendations/"+rec.ID+"/status", map[string]interface{}{
		"procurement_status": "BOGUS",
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Errorf("非法状态 status = %d, want 400", w.Code)
	}

	// 下单回写
	w = testutil.DoRequest(env.Router, "PATCH", "/api/v1/recommendations/"+rec.ID+"/status", map[string]interface{}{
		"procurement_status": entity.ProcurementStatusOrdered,
		"purchase_order_id":  "po-001",
	}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var updated entity.ProcurementRecommendation
	env.DB.First(&updated, "id = ?", rec.ID)
	if updated.ProcurementStatus != entity.ProcurementStatusOrdered {
		t.Errorf("status = %s, want ORDERED", updated.ProcurementStatus)
	}
	if updated.PurchaseOrderID == nil || *updated.PurchaseOrderID != "po-001" {
		t.Error("purchase_order_id未写入")
	}
}

func TestAuthRequired(t *testing.T) {
	env := setupLotTest(t)

	w := testutil.DoRequest(env.Router, "GET", "/api/v1/lots", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("无token status = %d, want 401", w.Code)
	}
}
