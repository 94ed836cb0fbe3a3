package domain

import "github.com/shopspring/decimal"

// TransactionSource records what produced a fill.
type TransactionSource string

const (
	SourceMarket TransactionSource = "market"
	SourceLimit  TransactionSource = "limit"
	SourceStop   TransactionSource = "stop"
)

// Transaction is an immutable record of one completed fill.
type Transaction struct {
	TransactionID string
	OrderID       string // empty for manual market orders
	Source        TransactionSource
	Side          OrderSide
	Symbol        string
	Quantity      int64
	Price         decimal.Decimal
	TotalValue    decimal.Decimal // Price × Quantity
	Timestamp     int64           // replay time, epoch ms
}
