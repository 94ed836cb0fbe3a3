package engine

import (
	"fmt"
	"log/slog"

	"github.com/efreitasn/replaytrader/internal/domain"
)

// SubmitOrder stores a conditional order. An empty symbol defaults to the
// loaded series. The order is first evaluated on the next tick, seek or
// step.
func (s *Session) SubmitOrder(o domain.PendingOrder) (domain.PendingOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasSeries() {
		return domain.PendingOrder{}, domain.ErrNoActiveSeries
	}
	if o.Symbol == "" {
		o.Symbol = s.symbol
	}
	if !o.Side.Valid() {
		return domain.PendingOrder{}, &domain.ValidationError{Message: "side must be 'buy' or 'sell'"}
	}
	if !o.Kind.Valid() {
		return domain.PendingOrder{}, &domain.ValidationError{Message: "kind must be 'limit' or 'stop'"}
	}

	stored, err := s.orders.Submit(o)
	if err != nil {
		return domain.PendingOrder{}, err
	}
	s.logger.Info("order submitted",
		slog.String("order_id", stored.OrderID),
		slog.String("symbol", stored.Symbol),
		slog.String("side", string(stored.Side)),
		slog.String("kind", string(stored.Kind)),
		slog.String("target_price", stored.TargetPrice.String()),
		slog.Int64("quantity", stored.Quantity),
	)
	return stored, nil
}

// CancelOrder removes a pending order. It reports whether the order
// existed; cancelling an unknown order is not an error.
func (s *Session) CancelOrder(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := s.orders.Cancel(id)
	if removed {
		s.logger.Info("order cancelled", slog.String("order_id", id))
	}
	return removed
}

// ListOpenOrders returns pending orders in submission order.
func (s *Session) ListOpenOrders() []domain.PendingOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders.List()
}

// ListTransactions returns the transaction log in fill order.
func (s *Session) ListTransactions() []domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txlog.List()
}

// Portfolio returns a deep copy of the current portfolio.
func (s *Session) Portfolio() domain.Portfolio {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Snapshot()
}

// MarketBuy buys at the current replayed price. Unlike conditional
// orders, an unaffordable buy fails immediately with ErrInsufficientFunds.
func (s *Session) MarketBuy(symbol string, quantity int64) (domain.Transaction, error) {
	return s.marketOrder(domain.OrderSideBuy, symbol, quantity)
}

// MarketSell sells at the current replayed price, failing with
// ErrInsufficientShares when the holding does not cover quantity.
func (s *Session) MarketSell(symbol string, quantity int64) (domain.Transaction, error) {
	return s.marketOrder(domain.OrderSideSell, symbol, quantity)
}

func (s *Session) marketOrder(side domain.OrderSide, symbol string, quantity int64) (domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasSeries() {
		return domain.Transaction{}, domain.ErrNoActiveSeries
	}
	if symbol == "" {
		symbol = s.symbol
	}
	if symbol != s.symbol {
		return domain.Transaction{}, &domain.ValidationError{
			Message: fmt.Sprintf("market orders execute against the loaded series %s", s.symbol),
		}
	}

	point := s.series[s.index]
	var err error
	if side == domain.OrderSideBuy {
		_, err = s.ledger.ApplyBuy(symbol, quantity, point.Price, point.Timestamp)
	} else {
		_, err = s.ledger.ApplySell(symbol, quantity, point.Price, point.Timestamp)
	}
	if err != nil {
		return domain.Transaction{}, err
	}

	tx := domain.Transaction{
		TransactionID: newID(),
		Source:        domain.SourceMarket,
		Side:          side,
		Symbol:        symbol,
		Quantity:      quantity,
		Price:         point.Price,
		TotalValue:    domain.Notional(point.Price, quantity),
		Timestamp:     point.Timestamp,
	}
	s.txlog.Append(tx)
	s.logger.Info("market order filled",
		slog.String("symbol", symbol),
		slog.String("side", string(side)),
		slog.Int64("quantity", quantity),
		slog.String("price", point.Price.String()),
	)
	s.notifier.OrderFilled(tx)
	return tx, nil
}
