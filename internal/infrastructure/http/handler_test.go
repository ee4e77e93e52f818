package httptransport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	apporder "github.com/lumashop/orderflow/internal/application/order"
	appreturns "github.com/lumashop/orderflow/internal/application/returns"
	"github.com/lumashop/orderflow/internal/infrastructure/memory"
	"github.com/lumashop/orderflow/internal/infrastructure/payment"
	"github.com/lumashop/orderflow/internal/infrastructure/pricing"
	"github.com/lumashop/orderflow/internal/infrastructure/risk"
	"github.com/lumashop/orderflow/internal/infrastructure/shipping"
)

type testIDs struct{ n int }

func (s *testIDs) NewID() string {
	s.n++
	return fmt.Sprintf("ord-%d", s.n)
}

func newTestRouter(t *testing.T) (http.Handler, *memory.InventoryLedger) {
	t.Helper()

	store := memory.NewOrderStore()
	stock := memory.NewInventoryLedger()
	points := memory.NewLoyaltyLedger()
	auditLog := memory.NewAuditLog()
	gateway := payment.NewGateway(10_000)
	catalog := pricing.NewCatalog(nil)
	pricer := pricing.NewEngine(catalog, pricing.NewPromotions())
	dispatcher := shipping.NewDispatcher("lumapost")
	ids := &testIDs{}

	require.NoError(t, stock.AddItem(context.Background(), "widget-basic", 50))

	placeOrder := apporder.NewPlaceOrderUseCase(apporder.Deps{
		Orders:    store,
		Inventory: stock,
		Loyalty:   points,
		Pricer:    pricer,
		Catalog:   catalog,
		Assessor:  risk.NewAssessor(),
		Charger:   gateway,
		Refunder:  gateway,
		Shipper:   dispatcher,
		Auditor:   auditLog,
		IDs:       ids,
	}, apporder.Config{}, nil)

	processReturn := appreturns.NewProcessReturnUseCase(appreturns.Deps{
		Orders:    store,
		Inventory: stock,
		Loyalty:   points,
		Pricer:    pricer,
		Catalog:   catalog,
		Refunder:  gateway,
		Shipper:   dispatcher,
		Auditor:   auditLog,
		IDs:       ids,
	}, appreturns.Config{}, nil)

	return NewHandler(placeOrder, processReturn).Router(), stock
}

const placeOrderBody = `{
	"account_id": "acct-1",
	"lines": {"widget-basic": 2},
	"region": "US",
	"shipping_method": "standard",
	"address": {
		"name": "Jamie Rivers",
		"line1": "12 Canal St",
		"city": "Springfield",
		"region": "US",
		"postal_code": "12345",
		"country": "US"
	}
}`

func TestHandler_PlaceOrder(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(placeOrderBody))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Outcome string `json:"outcome"`
		Pricing struct {
			Total float64 `json:"total"`
		} `json:"pricing"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "fulfilled", body.Outcome)
	require.InDelta(t, 58.85, body.Pricing.Total, 1e-9)
}

func TestHandler_PlaceOrderBusinessRejection(t *testing.T) {
	router, _ := newTestRouter(t)

	body := `{"account_id":"acct-1","lines":{"widget-basic":100},"region":"US","shipping_method":"standard"}`
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var result struct {
		Outcome string `json:"outcome"`
		Reason  string `json:"reason"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, "insufficient_stock", result.Outcome)
	require.Equal(t, "not_enough_inventory", result.Reason)
}

func TestHandler_PlaceOrderBadRequests(t *testing.T) {
	router, _ := newTestRouter(t)

	// malformed JSON
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// validation failure
	req = httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"lines":{"widget-basic":1}}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// wrong method
	req = httptest.NewRequest(http.MethodGet, "/orders", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_GetOrder(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(placeOrderBody))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/orders/ord-1", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body orderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ord-1", body.OrderID)
	require.True(t, body.Result.Fulfilled())

	req = httptest.NewRequest(http.MethodGet, "/orders/missing", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_ProcessReturn(t *testing.T) {
	router, stock := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(placeOrderBody))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	returnBody := `{
		"order_id": "ord-1",
		"lines": {"widget-basic": 1},
		"reason": "damaged",
		"address": {
			"name": "Jamie Rivers",
			"line1": "12 Canal St",
			"city": "Springfield",
			"region": "US",
			"postal_code": "12345",
			"country": "US"
		}
	}`
	req = httptest.NewRequest(http.MethodPost, "/returns", strings.NewReader(returnBody))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		Outcome string `json:"outcome"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Equal(t, "completed", result.Outcome)

	record, err := stock.Get(context.Background(), "widget-basic")
	require.NoError(t, err)
	require.Equal(t, 49, record.Physical) // 50 - 2 sold + 1 returned

	// returning against an unknown order is a 404
	req = httptest.NewRequest(http.MethodPost, "/returns", strings.NewReader(`{"order_id":"missing","lines":{"widget-basic":1}}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Health(t *testing.T) {
	router, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}
