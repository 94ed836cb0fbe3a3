package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide indicates whether an order buys or sells.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Valid reports whether s is a known side.
func (s OrderSide) Valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// OrderKind distinguishes limit orders from stop orders.
type OrderKind string

const (
	OrderKindLimit OrderKind = "limit"
	OrderKindStop  OrderKind = "stop"
)

// Valid reports whether k is a known kind.
func (k OrderKind) Valid() bool {
	return k == OrderKindLimit || k == OrderKindStop
}

// PendingOrder is a conditional order waiting for its trigger price.
// It lives in the pending order store until it is filled or cancelled.
type PendingOrder struct {
	OrderID     string
	Symbol      string
	Side        OrderSide
	Kind        OrderKind
	TargetPrice decimal.Decimal
	Quantity    int64
	CreatedAt   time.Time
}

// Triggers reports whether the order is eligible to fill at price.
//
//	buy  limit: price <= target    buy  stop: price >= target
//	sell limit: price >= target    sell stop: price <= target
func (o *PendingOrder) Triggers(price decimal.Decimal) bool {
	switch {
	case o.Side == OrderSideBuy && o.Kind == OrderKindLimit:
		return price.LessThanOrEqual(o.TargetPrice)
	case o.Side == OrderSideBuy && o.Kind == OrderKindStop:
		return price.GreaterThanOrEqual(o.TargetPrice)
	case o.Side == OrderSideSell && o.Kind == OrderKindLimit:
		return price.GreaterThanOrEqual(o.TargetPrice)
	case o.Side == OrderSideSell && o.Kind == OrderKindStop:
		return price.LessThanOrEqual(o.TargetPrice)
	}
	return false
}
