package engine

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/replaytrader/internal/domain"
	"github.com/efreitasn/replaytrader/internal/store"
)

// Deferral is a triggered order that could not be filled this tick.
type Deferral struct {
	Order  domain.PendingOrder
	Reason error // ErrInsufficientFunds or ErrInsufficientShares
}

// Evaluation is the outcome of matching one price against a set of
// pending orders.
type Evaluation struct {
	Filled    []domain.Transaction
	Remaining []domain.PendingOrder
	Deferred  []Deferral
	Portfolio domain.Portfolio
}

// Evaluate matches orders for symbol against price as a sequential fold.
// Orders are visited in the given order and each one sees the portfolio
// left by the orders before it, so an earlier sell can fund a later buy.
// Fills execute at price, not at the order's target.
//
// A triggered order that is not affordable (buy) or not covered by the
// holding (sell) stays in Remaining and is reported in Deferred; it is
// retried on a later price. Orders for other symbols are passed through.
func Evaluate(symbol string, price decimal.Decimal, ts int64, orders []domain.PendingOrder, p domain.Portfolio) Evaluation {
	ev := Evaluation{
		Filled:    make([]domain.Transaction, 0),
		Remaining: make([]domain.PendingOrder, 0, len(orders)),
		Portfolio: p,
	}

	for _, o := range orders {
		if o.Symbol != symbol || !o.Triggers(price) {
			ev.Remaining = append(ev.Remaining, o)
			continue
		}

		var (
			next domain.Portfolio
			err  error
		)
		if o.Side == domain.OrderSideBuy {
			next, err = Buy(ev.Portfolio, symbol, o.Quantity, price, ts)
		} else {
			next, err = Sell(ev.Portfolio, symbol, o.Quantity, price, ts)
		}
		if err != nil {
			ev.Remaining = append(ev.Remaining, o)
			ev.Deferred = append(ev.Deferred, Deferral{Order: o, Reason: err})
			continue
		}

		ev.Portfolio = next
		ev.Filled = append(ev.Filled, domain.Transaction{
			TransactionID: newID(),
			OrderID:       o.OrderID,
			Source:        sourceOf(o.Kind),
			Side:          o.Side,
			Symbol:        symbol,
			Quantity:      o.Quantity,
			Price:         price,
			TotalValue:    domain.Notional(price, o.Quantity),
			Timestamp:     ts,
		})
	}
	return ev
}

func newID() string {
	return uuid.New().String()
}

func sourceOf(kind domain.OrderKind) domain.TransactionSource {
	if kind == domain.OrderKindStop {
		return domain.SourceStop
	}
	return domain.SourceLimit
}

// Matcher runs Evaluate against the live order store and ledger and
// commits the result.
type Matcher struct {
	orders *store.OrderStore
	ledger *Ledger
	txlog  *store.TransactionLog
}

// NewMatcher creates a new Matcher with the given dependencies.
func NewMatcher(orders *store.OrderStore, ledger *Ledger, txlog *store.TransactionLog) *Matcher {
	return &Matcher{
		orders: orders,
		ledger: ledger,
		txlog:  txlog,
	}
}

// Match evaluates the symbol's pending orders at price, applies the
// resulting portfolio, removes filled orders and appends their
// transactions. The caller must serialize Match with every other ledger
// and store mutation.
func (m *Matcher) Match(symbol string, price decimal.Decimal, ts int64) Evaluation {
	orders := m.orders.OrdersFor(symbol)
	if len(orders) == 0 {
		return Evaluation{Portfolio: m.ledger.Snapshot()}
	}

	ev := Evaluate(symbol, price, ts, orders, m.ledger.Snapshot())
	if len(ev.Filled) == 0 {
		return ev
	}

	m.ledger.commit(ev.Portfolio)
	for _, tx := range ev.Filled {
		m.orders.Cancel(tx.OrderID)
		m.txlog.Append(tx)
	}
	return ev
}
