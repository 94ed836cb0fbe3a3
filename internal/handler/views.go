package handler

import (
	"github.com/shopspring/decimal"

	"github.com/efreitasn/replaytrader/internal/domain"
	"github.com/efreitasn/replaytrader/internal/service"
)

const timeLayout = "2006-01-02T15:04:05Z"

// ReplayStateResponse is the JSON form of the replay clock state. It is
// also the payload of replay_state stream events.
type ReplayStateResponse struct {
	Status           string           `json:"status"`
	IsActive         bool             `json:"is_active"`
	IsPaused         bool             `json:"is_paused"`
	Symbol           string           `json:"symbol"`
	Length           int              `json:"length"`
	CurrentIndex     int              `json:"current_index"`
	Speed            int              `json:"speed"`
	CurrentTimestamp *int64           `json:"current_timestamp"`
	CurrentPrice     *decimal.Decimal `json:"current_price"`
}

// NewReplayStateResponse converts a replay state. Current point fields are
// null while no series is loaded.
func NewReplayStateResponse(st domain.ReplayState) ReplayStateResponse {
	resp := ReplayStateResponse{
		Status:       string(st.Status),
		IsActive:     st.IsActive,
		IsPaused:     st.IsPaused,
		Symbol:       st.Symbol,
		Length:       st.Length,
		CurrentIndex: st.CurrentIndex,
		Speed:        int(st.Speed),
	}
	if st.Length > 0 {
		ts, price := st.CurrentTimestamp, st.CurrentPrice
		resp.CurrentTimestamp = &ts
		resp.CurrentPrice = &price
	}
	return resp
}

// TransactionResponse is the JSON form of a fill. It is also the payload of
// fill stream events.
type TransactionResponse struct {
	TransactionID string          `json:"transaction_id"`
	OrderID       *string         `json:"order_id"`
	Source        string          `json:"source"`
	Side          string          `json:"side"`
	Symbol        string          `json:"symbol"`
	Quantity      int64           `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	TotalValue    decimal.Decimal `json:"total_value"`
	Timestamp     int64           `json:"timestamp"`
}

// NewTransactionResponse converts a transaction. Market fills have a null
// order_id.
func NewTransactionResponse(tx domain.Transaction) TransactionResponse {
	resp := TransactionResponse{
		TransactionID: tx.TransactionID,
		Source:        string(tx.Source),
		Side:          string(tx.Side),
		Symbol:        tx.Symbol,
		Quantity:      tx.Quantity,
		Price:         tx.Price,
		TotalValue:    tx.TotalValue,
		Timestamp:     tx.Timestamp,
	}
	if tx.OrderID != "" {
		id := tx.OrderID
		resp.OrderID = &id
	}
	return resp
}

// PriceResponse is the payload of price stream events.
type PriceResponse struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp int64           `json:"timestamp"`
}

// orderResponse is the JSON form of a pending order.
type orderResponse struct {
	OrderID     string          `json:"order_id"`
	Symbol      string          `json:"symbol"`
	Side        string          `json:"side"`
	Kind        string          `json:"kind"`
	TargetPrice decimal.Decimal `json:"target_price"`
	Quantity    int64           `json:"quantity"`
	CreatedAt   string          `json:"created_at"`
}

func buildOrderResponse(o domain.PendingOrder) orderResponse {
	return orderResponse{
		OrderID:     o.OrderID,
		Symbol:      o.Symbol,
		Side:        string(o.Side),
		Kind:        string(o.Kind),
		TargetPrice: o.TargetPrice,
		Quantity:    o.Quantity,
		CreatedAt:   o.CreatedAt.UTC().Format(timeLayout),
	}
}

func buildOrderResponses(orders []domain.PendingOrder) []orderResponse {
	result := make([]orderResponse, len(orders))
	for i, o := range orders {
		result[i] = buildOrderResponse(o)
	}
	return result
}

func buildTransactionResponses(txs []domain.Transaction) []TransactionResponse {
	result := make([]TransactionResponse, len(txs))
	for i, tx := range txs {
		result[i] = NewTransactionResponse(tx)
	}
	return result
}

// holdingResponse is a single position in the portfolio response.
type holdingResponse struct {
	Symbol     string           `json:"symbol"`
	Quantity   int64            `json:"quantity"`
	AvgCost    decimal.Decimal  `json:"avg_cost"`
	LastPrice  *decimal.Decimal `json:"last_price"`
	LastUpdate *int64           `json:"last_update"`
}

// portfolioResponse is the JSON response for GET /portfolio.
type portfolioResponse struct {
	Cash        decimal.Decimal   `json:"cash"`
	Holdings    []holdingResponse `json:"holdings"`
	MarketValue decimal.Decimal   `json:"market_value"`
	Equity      decimal.Decimal   `json:"equity"`
}

func buildPortfolioResponse(sum service.PortfolioSummary) portfolioResponse {
	holdings := make([]holdingResponse, len(sum.Holdings))
	for i, h := range sum.Holdings {
		holdings[i] = holdingResponse{
			Symbol:     h.Symbol,
			Quantity:   h.Quantity,
			AvgCost:    h.AvgCost,
			LastPrice:  h.LastPrice,
			LastUpdate: h.LastUpdate,
		}
	}
	return portfolioResponse{
		Cash:        sum.Cash,
		Holdings:    holdings,
		MarketValue: sum.MarketValue,
		Equity:      sum.Equity,
	}
}
