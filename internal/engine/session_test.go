package engine

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/replaytrader/internal/clock"
	"github.com/efreitasn/replaytrader/internal/domain"
	"github.com/efreitasn/replaytrader/internal/store"
)

type priceEvent struct {
	Symbol    string
	Price     decimal.Decimal
	Timestamp int64
}

// recorder is a Notifier that keeps every event for assertions.
type recorder struct {
	prices   []priceEvent
	states   []domain.ReplayState
	fills    []domain.Transaction
	deferred []domain.PendingOrder
}

func (r *recorder) PriceUpdated(symbol string, price decimal.Decimal, ts int64) {
	r.prices = append(r.prices, priceEvent{symbol, price, ts})
}
func (r *recorder) ReplayStateChanged(st domain.ReplayState) { r.states = append(r.states, st) }
func (r *recorder) OrderFilled(tx domain.Transaction)        { r.fills = append(r.fills, tx) }
func (r *recorder) OrderDeferred(o domain.PendingOrder, _ error) {
	r.deferred = append(r.deferred, o)
}

func (r *recorder) lastState() domain.ReplayState {
	return r.states[len(r.states)-1]
}

// newTestSession creates a session on a fake clock with a 1s base interval.
func newTestSession(t *testing.T, cash string) (*Session, *clock.Fake, *recorder) {
	t.Helper()
	clk := clock.NewFake()
	rec := &recorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewSession(clk, time.Second, store.NewOrderStore(), store.NewTransactionLog(), NewLedger(dec(cash)), rec, logger)
	return s, clk, rec
}

// series builds points with timestamps 1000, 2000, ... from price strings.
func series(prices ...string) []domain.PricePoint {
	out := make([]domain.PricePoint, len(prices))
	for i, p := range prices {
		out[i] = domain.PricePoint{Timestamp: int64(i+1) * 1000, Price: dec(p)}
	}
	return out
}

// linearSeries builds n points whose price equals 100 + index.
func linearSeries(n int) []domain.PricePoint {
	out := make([]domain.PricePoint, n)
	for i := range out {
		out[i] = domain.PricePoint{Timestamp: int64(i) * 1000, Price: decimal.NewFromInt(int64(100 + i))}
	}
	return out
}

func TestSession_LoadSeriesResetsReplay(t *testing.T) {
	s, clk, rec := newTestSession(t, "1000")
	s.LoadSeries("XYZ", linearSeries(10))
	_, _ = s.SetSpeed(domain.Speed5x)
	s.Start()
	clk.Advance(time.Second)

	st := s.LoadSeries("ABC", series("7", "8"))
	if st.Status != domain.PlaybackStopped || st.IsActive || st.IsPaused {
		t.Errorf("state after load = %+v, want stopped and inactive", st)
	}
	if st.CurrentIndex != 0 || st.Speed != domain.Speed1x || st.Symbol != "ABC" || st.Length != 2 {
		t.Errorf("state after load = %+v", st)
	}
	if !st.CurrentPrice.Equal(dec("7")) || st.CurrentTimestamp != 1000 {
		t.Errorf("current point = %s @ %d, want 7 @ 1000", st.CurrentPrice, st.CurrentTimestamp)
	}
	if clk.Pending() != 0 {
		t.Errorf("pending timers after load = %d, want 0", clk.Pending())
	}
	if rec.lastState().Symbol != "ABC" {
		t.Error("load should publish a state change")
	}

	// The old series' timer must not produce ticks.
	ticks := len(rec.prices)
	clk.Advance(10 * time.Second)
	if len(rec.prices) != ticks {
		t.Errorf("ticks after load = %d, want none", len(rec.prices)-ticks)
	}
}

func TestSession_LoadSeriesCopiesInput(t *testing.T) {
	s, _, _ := newTestSession(t, "1000")
	pts := series("1", "2")
	s.LoadSeries("XYZ", pts)
	pts[0].Price = dec("999")

	if got := s.State().CurrentPrice; !got.Equal(dec("1")) {
		t.Errorf("current price = %s, want 1", got)
	}
}

func TestSession_StateWithoutSeries(t *testing.T) {
	s, _, _ := newTestSession(t, "1000")
	st := s.State()
	if st.Status != domain.PlaybackStopped || st.Length != 0 || st.Speed != domain.Speed1x {
		t.Errorf("initial state = %+v", st)
	}
	if s.Symbol() != "" {
		t.Errorf("Symbol() = %q, want empty", s.Symbol())
	}
}
