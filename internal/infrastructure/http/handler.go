package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	appOrder "github.com/lumashop/orderflow/internal/application/order"
	appReturns "github.com/lumashop/orderflow/internal/application/returns"
	domainOrder "github.com/lumashop/orderflow/internal/domain/order"
	domainReturns "github.com/lumashop/orderflow/internal/domain/returns"
	domainShipping "github.com/lumashop/orderflow/internal/domain/shipping"
)

type Handler struct {
	orders  *appOrder.PlaceOrderUseCase
	returns *appReturns.ProcessReturnUseCase
}

func NewHandler(orders *appOrder.PlaceOrderUseCase, returns *appReturns.ProcessReturnUseCase) *Handler {
	return &Handler{
		orders:  orders,
		returns: returns,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/orders", h.method(http.MethodPost, h.handlePlaceOrder))
	mux.HandleFunc("/orders/", h.method(http.MethodGet, h.handleGetOrder))
	mux.HandleFunc("/returns", h.method(http.MethodPost, h.handleProcessReturn))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

type addressPayload struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

func (a *addressPayload) toDomain() *domainShipping.Address {
	if a == nil {
		return nil
	}
	return &domainShipping.Address{
		Name:       a.Name,
		Line1:      a.Line1,
		City:       a.City,
		Region:     a.Region,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

type placeOrderRequest struct {
	IdempotencyKey string          `json:"idempotency_key"`
	AccountID      string          `json:"account_id"`
	Lines          map[string]int  `json:"lines"`
	Region         string          `json:"region"`
	ShippingMethod string          `json:"shipping_method"`
	Address        *addressPayload `json:"address"`
	CouponCode     string          `json:"coupon_code"`
	RedeemPoints   int             `json:"redeem_points"`
	SafetyStock    int             `json:"safety_stock"`
}

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r.Context(), r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.orders.Execute(r.Context(), appOrder.PlaceOrderInput{
		IdempotencyKey: req.IdempotencyKey,
		AccountID:      req.AccountID,
		Lines:          req.Lines,
		Region:         req.Region,
		ShippingMethod: req.ShippingMethod,
		Address:        req.Address.toDomain(),
		CouponCode:     req.CouponCode,
		RedeemPoints:   req.RedeemPoints,
		SafetyStock:    req.SafetyStock,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusCreated
	if !result.Fulfilled() {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result)
}

type orderResponse struct {
	OrderID string              `json:"order_id"`
	Status  domainOrder.Status  `json:"status"`
	Result  *domainOrder.Result `json:"result,omitempty"`
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/orders/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, domainOrder.ErrNotFound)
		return
	}

	ord, err := h.orders.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, orderResponse{
		OrderID: ord.ID,
		Status:  ord.Status,
		Result:  ord.Result,
	})
}

type processReturnRequest struct {
	OrderID string          `json:"order_id"`
	Lines   map[string]int  `json:"lines"`
	Reason  string          `json:"reason"`
	Address *addressPayload `json:"address"`
	Method  string          `json:"method"`
}

func (h *Handler) handleProcessReturn(w http.ResponseWriter, r *http.Request) {
	var req processReturnRequest
	if err := decodeJSON(r.Context(), r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := h.returns.Execute(r.Context(), appReturns.ProcessReturnInput{
		OrderID: req.OrderID,
		Lines:   req.Lines,
		Reason:  req.Reason,
		Address: req.Address.toDomain(),
		Method:  req.Method,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	status := http.StatusOK
	if !result.Completed() {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, result)
}

func (h *Handler) method(method string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
			return
		}
		handler(w, r)
	}
}

func decodeJSON(ctx context.Context, r *http.Request, dst any) error {
	_ = ctx
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainOrder.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, appOrder.ErrConflict):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, appOrder.ErrValidation),
		errors.Is(err, appReturns.ErrValidation),
		errors.Is(err, appReturns.ErrNotFulfilled),
		errors.Is(err, domainOrder.ErrNoLines),
		errors.Is(err, domainOrder.ErrInvalidQuantity),
		errors.Is(err, domainOrder.ErrAccountRequired),
		errors.Is(err, domainReturns.ErrInvalidQuantity):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
