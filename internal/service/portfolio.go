package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/replaytrader/internal/domain"
	"github.com/efreitasn/replaytrader/internal/engine"
)

// PortfolioSummary is a portfolio snapshot with derived valuations.
type PortfolioSummary struct {
	Cash        decimal.Decimal
	Holdings    []domain.Holding // sorted by symbol
	MarketValue decimal.Decimal
	Equity      decimal.Decimal
}

// PortfolioService reports the replay account.
type PortfolioService struct {
	session *engine.Session
}

// NewPortfolioService creates a new PortfolioService.
func NewPortfolioService(session *engine.Session) *PortfolioService {
	return &PortfolioService{session: session}
}

// Summary returns a consistent snapshot of cash, holdings and valuation.
func (s *PortfolioService) Summary() PortfolioSummary {
	p := s.session.Portfolio()

	holdings := make([]domain.Holding, 0, len(p.Holdings))
	for _, h := range p.Holdings {
		holdings = append(holdings, h)
	}
	sort.Slice(holdings, func(i, j int) bool { return holdings[i].Symbol < holdings[j].Symbol })

	return PortfolioSummary{
		Cash:        p.Cash,
		Holdings:    holdings,
		MarketValue: p.MarketValue(),
		Equity:      p.Equity(),
	}
}
