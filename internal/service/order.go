package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/replaytrader/internal/domain"
	"github.com/efreitasn/replaytrader/internal/engine"
)

// SubmitOrderRequest represents the input for conditional order submission.
type SubmitOrderRequest struct {
	Symbol      string // optional, defaults to the loaded series
	Side        domain.OrderSide
	Kind        domain.OrderKind
	TargetPrice decimal.Decimal
	Quantity    int64
}

// MarketOrderRequest represents the input for an immediate trade at the
// current replayed price.
type MarketOrderRequest struct {
	Symbol   string
	Side     domain.OrderSide
	Quantity int64
}

// OrderService handles conditional orders, market orders and the
// transaction log.
type OrderService struct {
	session *engine.Session
}

// NewOrderService creates a new OrderService.
func NewOrderService(session *engine.Session) *OrderService {
	return &OrderService{session: session}
}

// SubmitOrder validates the request and stores a pending order. The order
// is evaluated on the next replayed price.
func (s *OrderService) SubmitOrder(req SubmitOrderRequest) (domain.PendingOrder, error) {
	symbol, err := normalizeOptionalSymbol(req.Symbol)
	if err != nil {
		return domain.PendingOrder{}, err
	}
	if !req.Side.Valid() {
		return domain.PendingOrder{}, &domain.ValidationError{Message: "side must be 'buy' or 'sell'"}
	}
	if !req.Kind.Valid() {
		return domain.PendingOrder{}, &domain.ValidationError{Message: "kind must be 'limit' or 'stop'"}
	}
	if req.Quantity <= 0 {
		return domain.PendingOrder{}, &domain.ValidationError{Message: "quantity must be a positive integer"}
	}
	if !req.TargetPrice.IsPositive() {
		return domain.PendingOrder{}, &domain.ValidationError{Message: "target_price must be greater than 0"}
	}

	return s.session.SubmitOrder(domain.PendingOrder{
		Symbol:      symbol,
		Side:        req.Side,
		Kind:        req.Kind,
		TargetPrice: req.TargetPrice,
		Quantity:    req.Quantity,
	})
}

// CancelOrder removes a pending order. Unknown ids are not an error.
func (s *OrderService) CancelOrder(orderID string) bool {
	return s.session.CancelOrder(orderID)
}

// ListOpenOrders returns pending orders in submission order.
func (s *OrderService) ListOpenOrders() []domain.PendingOrder {
	return s.session.ListOpenOrders()
}

// ListTransactions returns completed fills in execution order.
func (s *OrderService) ListTransactions() []domain.Transaction {
	return s.session.ListTransactions()
}

// MarketOrder buys or sells immediately at the current replayed price.
func (s *OrderService) MarketOrder(req MarketOrderRequest) (domain.Transaction, error) {
	symbol, err := normalizeOptionalSymbol(req.Symbol)
	if err != nil {
		return domain.Transaction{}, err
	}
	if req.Quantity <= 0 {
		return domain.Transaction{}, &domain.ValidationError{Message: "quantity must be a positive integer"}
	}

	switch req.Side {
	case domain.OrderSideBuy:
		return s.session.MarketBuy(symbol, req.Quantity)
	case domain.OrderSideSell:
		return s.session.MarketSell(symbol, req.Quantity)
	default:
		return domain.Transaction{}, &domain.ValidationError{Message: "side must be 'buy' or 'sell'"}
	}
}

// normalizeOptionalSymbol upper-cases a client symbol. Empty stays empty so
// the session can default it.
func normalizeOptionalSymbol(raw string) (string, error) {
	if raw == "" {
		return "", nil
	}
	symbol := domain.NormalizeSymbol(raw)
	if !domain.ValidSymbol(symbol) {
		return "", &domain.ValidationError{Message: fmt.Sprintf("invalid symbol %q", raw)}
	}
	return symbol, nil
}
