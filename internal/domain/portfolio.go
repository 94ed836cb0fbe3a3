package domain

import "github.com/shopspring/decimal"

// Holding is a position in a single symbol. A holding with zero quantity
// is removed from the portfolio rather than kept.
type Holding struct {
	Symbol     string
	Quantity   int64
	AvgCost    decimal.Decimal
	LastPrice  *decimal.Decimal
	LastUpdate *int64 // epoch ms of LastPrice
}

// Portfolio is the cash and holdings of the replay account.
type Portfolio struct {
	Cash     decimal.Decimal
	Holdings map[string]Holding // symbol → holding
}

// NewPortfolio returns a portfolio with the given cash and no holdings.
func NewPortfolio(cash decimal.Decimal) Portfolio {
	return Portfolio{Cash: cash, Holdings: make(map[string]Holding)}
}

// Clone returns a deep copy so callers can mutate the result freely.
func (p Portfolio) Clone() Portfolio {
	out := Portfolio{Cash: p.Cash, Holdings: make(map[string]Holding, len(p.Holdings))}
	for sym, h := range p.Holdings {
		if h.LastPrice != nil {
			lp := *h.LastPrice
			h.LastPrice = &lp
		}
		if h.LastUpdate != nil {
			lu := *h.LastUpdate
			h.LastUpdate = &lu
		}
		out.Holdings[sym] = h
	}
	return out
}

// Quantity returns the held quantity of symbol, or 0.
func (p Portfolio) Quantity(symbol string) int64 {
	return p.Holdings[symbol].Quantity
}

// MarketValue values every holding at its last price, falling back to
// average cost for holdings that have not been marked yet.
func (p Portfolio) MarketValue() decimal.Decimal {
	total := decimal.Zero
	for _, h := range p.Holdings {
		price := h.AvgCost
		if h.LastPrice != nil {
			price = *h.LastPrice
		}
		total = total.Add(Notional(price, h.Quantity))
	}
	return total
}

// Equity is cash plus market value.
func (p Portfolio) Equity() decimal.Decimal {
	return p.Cash.Add(p.MarketValue())
}
