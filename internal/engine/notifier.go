package engine

import (
	"github.com/shopspring/decimal"

	"github.com/efreitasn/replaytrader/internal/domain"
)

// Notifier receives session events for presentation. Methods are called
// with the session lock held, in the order the events happen; they must
// not block and must not call back into the Session.
type Notifier interface {
	PriceUpdated(symbol string, price decimal.Decimal, timestamp int64)
	ReplayStateChanged(state domain.ReplayState)
	OrderFilled(tx domain.Transaction)
	OrderDeferred(order domain.PendingOrder, reason error)
}

// Notifiers fans every event out to each notifier in turn.
type Notifiers []Notifier

func (ns Notifiers) PriceUpdated(symbol string, price decimal.Decimal, timestamp int64) {
	for _, n := range ns {
		n.PriceUpdated(symbol, price, timestamp)
	}
}

func (ns Notifiers) ReplayStateChanged(state domain.ReplayState) {
	for _, n := range ns {
		n.ReplayStateChanged(state)
	}
}

func (ns Notifiers) OrderFilled(tx domain.Transaction) {
	for _, n := range ns {
		n.OrderFilled(tx)
	}
}

func (ns Notifiers) OrderDeferred(order domain.PendingOrder, reason error) {
	for _, n := range ns {
		n.OrderDeferred(order, reason)
	}
}
