package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/replaytrader/internal/clock"
	"github.com/efreitasn/replaytrader/internal/domain"
	"github.com/efreitasn/replaytrader/internal/engine"
	"github.com/efreitasn/replaytrader/internal/series"
	"github.com/efreitasn/replaytrader/internal/store"
)

// testEnv bundles the services over one session on a fake clock.
type testEnv struct {
	clock     *clock.Fake
	provider  *series.MemoryProvider
	session   *engine.Session
	replay    *ReplayService
	orders    *OrderService
	portfolio *PortfolioService
}

var testKey = series.Key{Symbol: "XYZ", Date: "2024-03-15", Session: "regular"}

func newTestEnv(t *testing.T, cash string) *testEnv {
	t.Helper()
	clk := clock.NewFake()
	provider := series.NewMemoryProvider()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	session := engine.NewSession(clk, time.Second, store.NewOrderStore(), store.NewTransactionLog(),
		engine.NewLedger(decimal.RequireFromString(cash)), nil, logger)
	return &testEnv{
		clock:     clk,
		provider:  provider,
		session:   session,
		replay:    NewReplayService(session, provider),
		orders:    NewOrderService(session),
		portfolio: NewPortfolioService(session),
	}
}

// load puts a series with the given prices under testKey and loads it.
func (env *testEnv) load(t *testing.T, prices ...string) {
	t.Helper()
	pts := make([]domain.PricePoint, len(prices))
	for i, p := range prices {
		pts[i] = domain.PricePoint{Timestamp: int64(i+1) * 1000, Price: decimal.RequireFromString(p)}
	}
	env.provider.Put(testKey, pts)
	if _, err := env.replay.LoadSeries(context.Background(), LoadSeriesRequest{
		Symbol: testKey.Symbol, Date: testKey.Date, Session: testKey.Session,
	}); err != nil {
		t.Fatalf("failed to load series: %v", err)
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
