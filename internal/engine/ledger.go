package engine

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/replaytrader/internal/domain"
)

// Buy returns a copy of p after buying quantity of symbol at price. The
// holding's average cost is re-weighted by quantity:
//
//	avgCost' = (avgCost×qty + price×quantity) / (qty + quantity)
//
// p itself is never modified, so a failed buy leaves the caller's state
// untouched.
func Buy(p domain.Portfolio, symbol string, quantity int64, price decimal.Decimal, ts int64) (domain.Portfolio, error) {
	if err := validateFill(quantity, price); err != nil {
		return p, err
	}
	cost := domain.Notional(price, quantity)
	if p.Cash.LessThan(cost) {
		return p, domain.ErrInsufficientFunds
	}

	next := p.Clone()
	next.Cash = next.Cash.Sub(cost)

	h, ok := next.Holdings[symbol]
	if !ok {
		h = domain.Holding{Symbol: symbol, AvgCost: price}
	} else {
		held := domain.Notional(h.AvgCost, h.Quantity)
		h.AvgCost = held.Add(cost).Div(decimal.NewFromInt(h.Quantity + quantity))
	}
	h.Quantity += quantity
	lp, lu := price, ts
	h.LastPrice, h.LastUpdate = &lp, &lu
	next.Holdings[symbol] = h
	return next, nil
}

// Sell returns a copy of p after selling quantity of symbol at price.
// Average cost of the remainder is unchanged; a holding that reaches zero
// is removed.
func Sell(p domain.Portfolio, symbol string, quantity int64, price decimal.Decimal, ts int64) (domain.Portfolio, error) {
	if err := validateFill(quantity, price); err != nil {
		return p, err
	}
	h, ok := p.Holdings[symbol]
	if !ok || h.Quantity < quantity {
		return p, domain.ErrInsufficientShares
	}

	next := p.Clone()
	next.Cash = next.Cash.Add(domain.Notional(price, quantity))

	h = next.Holdings[symbol]
	h.Quantity -= quantity
	if h.Quantity == 0 {
		delete(next.Holdings, symbol)
		return next, nil
	}
	lp, lu := price, ts
	h.LastPrice, h.LastUpdate = &lp, &lu
	next.Holdings[symbol] = h
	return next, nil
}

func validateFill(quantity int64, price decimal.Decimal) error {
	if quantity <= 0 {
		return &domain.ValidationError{Message: "quantity must be a positive integer"}
	}
	if !price.IsPositive() {
		return &domain.ValidationError{Message: "price must be greater than 0"}
	}
	return nil
}

// Ledger holds the replay account's portfolio. Every mutation swaps in a
// fully computed copy, so observers never see a half-applied fill.
type Ledger struct {
	mu        sync.RWMutex
	portfolio domain.Portfolio
}

// NewLedger creates a ledger with the given starting cash.
func NewLedger(cash decimal.Decimal) *Ledger {
	return &Ledger{portfolio: domain.NewPortfolio(cash)}
}

// ApplyBuy buys at price and returns the resulting portfolio. On failure
// the unchanged portfolio is returned with ErrInsufficientFunds or a
// ValidationError.
func (l *Ledger) ApplyBuy(symbol string, quantity int64, price decimal.Decimal, ts int64) (domain.Portfolio, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, err := Buy(l.portfolio, symbol, quantity, price, ts)
	if err != nil {
		return l.portfolio.Clone(), err
	}
	l.portfolio = next
	return next.Clone(), nil
}

// ApplySell sells at price and returns the resulting portfolio. On failure
// the unchanged portfolio is returned with ErrInsufficientShares or a
// ValidationError.
func (l *Ledger) ApplySell(symbol string, quantity int64, price decimal.Decimal, ts int64) (domain.Portfolio, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, err := Sell(l.portfolio, symbol, quantity, price, ts)
	if err != nil {
		return l.portfolio.Clone(), err
	}
	l.portfolio = next
	return next.Clone(), nil
}

// Mark records the latest replayed price on an existing holding.
func (l *Ledger) Mark(symbol string, price decimal.Decimal, ts int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.portfolio.Holdings[symbol]
	if !ok {
		return
	}
	lp, lu := price, ts
	h.LastPrice, h.LastUpdate = &lp, &lu
	l.portfolio.Holdings[symbol] = h
}

// Snapshot returns a deep copy of the current portfolio.
func (l *Ledger) Snapshot() domain.Portfolio {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.portfolio.Clone()
}

// commit replaces the portfolio with one derived from a Snapshot. The
// caller must hold exclusive access to the ledger for the whole
// snapshot-evaluate-commit sequence.
func (l *Ledger) commit(p domain.Portfolio) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.portfolio = p.Clone()
}
