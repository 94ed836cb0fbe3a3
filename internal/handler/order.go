package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/replaytrader/internal/domain"
	"github.com/efreitasn/replaytrader/internal/service"
)

// OrderHandler handles HTTP requests for order, trade and transaction
// endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// submitOrderRequest is the JSON request body for POST /orders.
// target_price accepts a JSON number or a decimal string.
type submitOrderRequest struct {
	Symbol      string          `json:"symbol"`
	Side        string          `json:"side"`
	Kind        string          `json:"kind"`
	TargetPrice decimal.Decimal `json:"target_price"`
	Quantity    int64           `json:"quantity"`
}

// marketOrderRequest is the JSON request body for POST /trades.
type marketOrderRequest struct {
	Symbol   string `json:"symbol"`
	Side     string `json:"side"`
	Quantity int64  `json:"quantity"`
}

// SubmitOrder handles POST /orders.
func (h *OrderHandler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req submitOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	order, err := h.orderSvc.SubmitOrder(service.SubmitOrderRequest{
		Symbol:      req.Symbol,
		Side:        domain.OrderSide(req.Side),
		Kind:        domain.OrderKind(req.Kind),
		TargetPrice: req.TargetPrice,
		Quantity:    req.Quantity,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, buildOrderResponse(order))
}

// ListOrders handles GET /orders.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"orders": buildOrderResponses(h.orderSvc.ListOpenOrders()),
	})
}

// CancelOrder handles DELETE /orders/{order_id}. Cancelling an order that
// already filled or never existed is not an error.
func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	h.orderSvc.CancelOrder(chi.URLParam(r, "order_id"))
	w.WriteHeader(http.StatusNoContent)
}

// MarketOrder handles POST /trades.
func (h *OrderHandler) MarketOrder(w http.ResponseWriter, r *http.Request) {
	var req marketOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	tx, err := h.orderSvc.MarketOrder(service.MarketOrderRequest{
		Symbol:   req.Symbol,
		Side:     domain.OrderSide(req.Side),
		Quantity: req.Quantity,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, NewTransactionResponse(tx))
}

// ListTransactions handles GET /transactions.
func (h *OrderHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"transactions": buildTransactionResponses(h.orderSvc.ListTransactions()),
	})
}
