package engine

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/replaytrader/internal/clock"
	"github.com/efreitasn/replaytrader/internal/domain"
	"github.com/efreitasn/replaytrader/internal/store"
)

func TestReplay_StartTicksAtBaseInterval(t *testing.T) {
	s, clk, rec := newTestSession(t, "1000")
	s.LoadSeries("XYZ", linearSeries(5))

	st := s.Start()
	if st.Status != domain.PlaybackPlaying || !st.IsActive || st.IsPaused {
		t.Fatalf("state after start = %+v", st)
	}

	clk.Advance(999 * time.Millisecond)
	if len(rec.prices) != 0 {
		t.Fatalf("tick fired early")
	}
	clk.Advance(time.Millisecond)
	if len(rec.prices) != 1 || !rec.prices[0].Price.Equal(decimal.NewFromInt(101)) {
		t.Fatalf("prices = %+v, want one update at 101", rec.prices)
	}
	if s.State().CurrentIndex != 1 {
		t.Errorf("index = %d, want 1", s.State().CurrentIndex)
	}
}

func TestReplay_StartIsNoopWithoutSeriesOrWhilePlaying(t *testing.T) {
	s, clk, _ := newTestSession(t, "1000")
	if st := s.Start(); st.Status != domain.PlaybackStopped {
		t.Errorf("start without series = %s, want stopped", st.Status)
	}
	if clk.Pending() != 0 {
		t.Errorf("timer scheduled without series")
	}

	s.LoadSeries("XYZ", linearSeries(5))
	s.Start()
	s.Start()
	if clk.Pending() != 1 {
		t.Errorf("pending timers = %d, want exactly 1", clk.Pending())
	}
}

func TestReplay_EndOfSeriesPauses(t *testing.T) {
	s, clk, _ := newTestSession(t, "1000")
	s.LoadSeries("XYZ", linearSeries(3))
	s.Start()

	clk.Advance(2 * time.Second)
	st := s.State()
	if st.CurrentIndex != 2 || st.Status != domain.PlaybackPlaying {
		t.Fatalf("state = %+v, want playing at index 2", st)
	}

	clk.Advance(time.Second)
	st = s.State()
	if st.Status != domain.PlaybackPaused || st.CurrentIndex != 2 {
		t.Fatalf("state = %+v, want paused at index 2", st)
	}
	if clk.Pending() != 0 {
		t.Errorf("pending timers = %d, want 0", clk.Pending())
	}
}

func TestReplay_PauseResume(t *testing.T) {
	s, clk, rec := newTestSession(t, "1000")
	s.LoadSeries("XYZ", linearSeries(10))
	s.Start()
	clk.Advance(1500 * time.Millisecond)

	if st := s.Pause(); st.Status != domain.PlaybackPaused || st.CurrentIndex != 1 {
		t.Fatalf("state after pause = %+v", st)
	}
	clk.Advance(10 * time.Second)
	if len(rec.prices) != 1 {
		t.Fatalf("ticks while paused: %d updates", len(rec.prices))
	}

	if st := s.Resume(); st.Status != domain.PlaybackPlaying || st.CurrentIndex != 1 {
		t.Fatalf("state after resume = %+v", st)
	}
	// Resume schedules a full interval.
	clk.Advance(999 * time.Millisecond)
	if len(rec.prices) != 1 {
		t.Fatal("tick fired before a full interval after resume")
	}
	clk.Advance(time.Millisecond)
	if s.State().CurrentIndex != 2 {
		t.Errorf("index = %d, want 2", s.State().CurrentIndex)
	}
}

func TestReplay_PauseAndResumeAreNoopsInWrongState(t *testing.T) {
	s, clk, _ := newTestSession(t, "1000")
	s.LoadSeries("XYZ", linearSeries(10))

	if st := s.Resume(); st.Status != domain.PlaybackStopped {
		t.Errorf("resume from stopped = %s, want stopped", st.Status)
	}
	if st := s.Pause(); st.Status != domain.PlaybackStopped {
		t.Errorf("pause from stopped = %s, want stopped", st.Status)
	}
	s.Start()
	if st := s.Resume(); st.Status != domain.PlaybackPlaying {
		t.Errorf("resume while playing = %s, want playing", st.Status)
	}
	if clk.Pending() != 1 {
		t.Errorf("pending timers = %d, want 1", clk.Pending())
	}
}

func TestReplay_StartFromPausedResumes(t *testing.T) {
	s, clk, _ := newTestSession(t, "1000")
	s.LoadSeries("XYZ", linearSeries(10))
	s.Start()
	clk.Advance(3 * time.Second)
	s.Pause()

	st := s.Start()
	if st.Status != domain.PlaybackPlaying || st.CurrentIndex != 3 {
		t.Errorf("start from paused = %+v, want playing at 3", st)
	}
}

// Scenario: switching from 1x to 10x mid-playback takes effect on the next
// tick with no duplicated or skipped index.
func TestReplay_SetSpeedReschedulesInFlightDelay(t *testing.T) {
	s, clk, rec := newTestSession(t, "1000")
	s.LoadSeries("XYZ", linearSeries(100))
	if _, err := s.SetSpeed(domain.Speed1x); err != nil {
		t.Fatal(err)
	}
	s.Start()

	clk.Advance(time.Second)
	clk.Advance(400 * time.Millisecond) // mid-delay
	if len(rec.prices) != 1 {
		t.Fatalf("ticks before speed change = %d, want 1", len(rec.prices))
	}

	st, err := s.SetSpeed(domain.Speed10x)
	if err != nil {
		t.Fatal(err)
	}
	if st.Speed != domain.Speed10x {
		t.Errorf("speed = %d, want 10", st.Speed)
	}
	if clk.Pending() != 1 {
		t.Fatalf("pending timers = %d, want 1", clk.Pending())
	}

	clk.Advance(100 * time.Millisecond)
	if len(rec.prices) != 2 {
		t.Fatalf("next tick not at the new 100ms interval: %d updates", len(rec.prices))
	}

	clk.Advance(time.Second)
	if len(rec.prices) != 12 {
		t.Fatalf("updates = %d, want 12 (1 at 1x + 1 + 10 at 10x)", len(rec.prices))
	}
	for i, p := range rec.prices {
		want := decimal.NewFromInt(int64(101 + i))
		if !p.Price.Equal(want) {
			t.Fatalf("update %d price = %s, want %s (duplicate or skipped index)", i, p.Price, want)
		}
	}
}

func TestReplay_SetSpeedRejectsUnsupported(t *testing.T) {
	s, _, _ := newTestSession(t, "1000")
	_, err := s.SetSpeed(domain.Speed(3))
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if s.State().Speed != domain.Speed1x {
		t.Error("rejected speed changed state")
	}
}

func TestReplay_SetSpeedWhileStoppedSchedulesNothing(t *testing.T) {
	s, clk, _ := newTestSession(t, "1000")
	s.LoadSeries("XYZ", linearSeries(100))
	_, _ = s.SetSpeed(domain.Speed5x)
	if clk.Pending() != 0 {
		t.Errorf("pending timers = %d, want 0", clk.Pending())
	}
	s.Start()
	clk.Advance(time.Second)
	if s.State().CurrentIndex != 5 {
		t.Errorf("index after 1s at 5x = %d, want 5", s.State().CurrentIndex)
	}
}

// Scenario: stop rewinds to the first point without touching orders or
// the transaction log.
func TestReplay_StopRewindsAndKeepsOrdersAndTransactions(t *testing.T) {
	s, clk, _ := newTestSession(t, "100000")
	s.LoadSeries("XYZ", series("52", "51", "49", "48", "47"))
	if _, err := s.SubmitOrder(domain.PendingOrder{Side: domain.OrderSideBuy, Kind: domain.OrderKindLimit, TargetPrice: dec("50"), Quantity: 10}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SubmitOrder(domain.PendingOrder{Side: domain.OrderSideSell, Kind: domain.OrderKindLimit, TargetPrice: dec("90"), Quantity: 1}); err != nil {
		t.Fatal(err)
	}
	s.Start()
	clk.Advance(3 * time.Second)

	ordersBefore := s.ListOpenOrders()
	txBefore := s.ListTransactions()
	if len(txBefore) != 1 || len(ordersBefore) != 1 {
		t.Fatalf("setup: %d transactions, %d orders", len(txBefore), len(ordersBefore))
	}

	st := s.Stop()
	if st.Status != domain.PlaybackStopped || st.CurrentIndex != 0 {
		t.Errorf("state after stop = %+v", st)
	}
	if !st.CurrentPrice.Equal(dec("52")) || st.CurrentTimestamp != 1000 {
		t.Errorf("point after stop = %s @ %d, want 52 @ 1000", st.CurrentPrice, st.CurrentTimestamp)
	}

	ordersAfter := s.ListOpenOrders()
	txAfter := s.ListTransactions()
	if len(ordersAfter) != 1 || ordersAfter[0].OrderID != ordersBefore[0].OrderID {
		t.Errorf("open orders changed by stop")
	}
	if len(txAfter) != 1 || txAfter[0].TransactionID != txBefore[0].TransactionID {
		t.Errorf("transactions changed by stop")
	}

	clk.Advance(10 * time.Second)
	if s.State().CurrentIndex != 0 {
		t.Error("tick fired after stop")
	}
}

func TestReplay_SeekMapsFractionAndMatches(t *testing.T) {
	s, _, rec := newTestSession(t, "100000")
	s.LoadSeries("XYZ", linearSeries(11)) // prices 100..110
	_, _ = s.SubmitOrder(domain.PendingOrder{Side: domain.OrderSideBuy, Kind: domain.OrderKindStop, TargetPrice: dec("105"), Quantity: 1})

	st, err := s.Seek(0.55)
	if err != nil {
		t.Fatal(err)
	}
	// floor(0.55 × 10) = 5
	if st.CurrentIndex != 5 || !st.CurrentPrice.Equal(dec("105")) {
		t.Errorf("seek(0.55) = index %d price %s, want 5 and 105", st.CurrentIndex, st.CurrentPrice)
	}
	if st.Status != domain.PlaybackStopped {
		t.Errorf("seek changed status to %s", st.Status)
	}
	if len(rec.prices) != 1 {
		t.Errorf("seek should fire one price update, got %d", len(rec.prices))
	}
	if len(rec.fills) != 1 {
		t.Errorf("seek should run matching, got %d fills", len(rec.fills))
	}

	if st, _ := s.Seek(1); st.CurrentIndex != 10 {
		t.Errorf("seek(1) index = %d, want 10", st.CurrentIndex)
	}
	if st, _ := s.Seek(0); st.CurrentIndex != 0 {
		t.Errorf("seek(0) index = %d, want 0", st.CurrentIndex)
	}
}

func TestReplay_SeekFractionFloor(t *testing.T) {
	tests := []struct {
		fraction float64
		want     int
	}{
		{0.29, 29},
		{0.57, 57},
		{0.58, 58},
		{0.1, 10},
		{0.999, 99},
		{1, 100},
	}
	for _, tt := range tests {
		s, _, _ := newTestSession(t, "1000")
		s.LoadSeries("XYZ", linearSeries(101))
		st, err := s.Seek(tt.fraction)
		if err != nil {
			t.Fatalf("Seek(%v): %v", tt.fraction, err)
		}
		if st.CurrentIndex != tt.want {
			t.Errorf("Seek(%v) index = %d, want %d", tt.fraction, st.CurrentIndex, tt.want)
		}
	}
}

func TestReplay_SeekIsIdempotent(t *testing.T) {
	s, _, rec := newTestSession(t, "100000")
	s.LoadSeries("XYZ", linearSeries(21))
	_, _ = s.SubmitOrder(domain.PendingOrder{Side: domain.OrderSideBuy, Kind: domain.OrderKindLimit, TargetPrice: dec("200"), Quantity: 1})

	first, _ := s.Seek(0.5)
	txs := len(s.ListTransactions())
	second, _ := s.Seek(0.5)

	if !first.CurrentPrice.Equal(second.CurrentPrice) || first.CurrentTimestamp != second.CurrentTimestamp {
		t.Errorf("seek output differs: %s@%d vs %s@%d", first.CurrentPrice, first.CurrentTimestamp, second.CurrentPrice, second.CurrentTimestamp)
	}
	if len(s.ListTransactions()) != txs || txs != 1 {
		t.Errorf("transactions = %d after second seek, want %d", len(s.ListTransactions()), txs)
	}
	if len(rec.prices) != 2 || !rec.prices[0].Price.Equal(rec.prices[1].Price) {
		t.Errorf("price updates = %+v", rec.prices)
	}
}

func TestReplay_SeekValidation(t *testing.T) {
	s, _, _ := newTestSession(t, "1000")
	if _, err := s.Seek(0.5); !errors.Is(err, domain.ErrNoActiveSeries) {
		t.Errorf("seek without series: expected ErrNoActiveSeries, got %v", err)
	}
	s.LoadSeries("XYZ", linearSeries(3))
	var ve *domain.ValidationError
	for _, f := range []float64{-0.1, 1.01} {
		if _, err := s.Seek(f); !errors.As(err, &ve) {
			t.Errorf("seek(%v): expected ValidationError, got %v", f, err)
		}
	}
}

func TestReplay_SeekWhilePlayingRestartsDelay(t *testing.T) {
	s, clk, _ := newTestSession(t, "1000")
	s.LoadSeries("XYZ", linearSeries(101))
	s.Start()
	clk.Advance(700 * time.Millisecond)

	_, _ = s.Seek(0.5)
	if clk.Pending() != 1 {
		t.Fatalf("pending timers = %d, want 1", clk.Pending())
	}
	clk.Advance(700 * time.Millisecond)
	if got := s.State().CurrentIndex; got != 50 {
		t.Fatalf("index = %d, want 50 (no partial delay after seek)", got)
	}
	clk.Advance(300 * time.Millisecond)
	if got := s.State().CurrentIndex; got != 51 {
		t.Errorf("index = %d, want 51", got)
	}
}

func TestReplay_StepClampsAndMatches(t *testing.T) {
	s, _, rec := newTestSession(t, "1000")
	s.LoadSeries("XYZ", linearSeries(5))

	st, err := s.StepForward(2)
	if err != nil {
		t.Fatal(err)
	}
	if st.CurrentIndex != 2 {
		t.Errorf("index = %d, want 2", st.CurrentIndex)
	}
	if st, _ = s.StepForward(100); st.CurrentIndex != 4 {
		t.Errorf("index = %d, want clamped 4", st.CurrentIndex)
	}
	if st, _ = s.StepBackward(1); st.CurrentIndex != 3 {
		t.Errorf("index = %d, want 3", st.CurrentIndex)
	}
	if st, _ = s.StepBackward(100); st.CurrentIndex != 0 {
		t.Errorf("index = %d, want clamped 0", st.CurrentIndex)
	}
	if len(rec.prices) != 4 {
		t.Errorf("price updates = %d, want 4", len(rec.prices))
	}
	if st.Status != domain.PlaybackStopped {
		t.Errorf("step changed status to %s", st.Status)
	}
}

func TestReplay_StepValidation(t *testing.T) {
	s, _, _ := newTestSession(t, "1000")
	if _, err := s.StepForward(1); !errors.Is(err, domain.ErrNoActiveSeries) {
		t.Errorf("step without series: expected ErrNoActiveSeries, got %v", err)
	}
	s.LoadSeries("XYZ", linearSeries(3))
	var ve *domain.ValidationError
	if _, err := s.StepForward(0); !errors.As(err, &ve) {
		t.Errorf("StepForward(0): expected ValidationError, got %v", err)
	}
	if _, err := s.StepBackward(-2); !errors.As(err, &ve) {
		t.Errorf("StepBackward(-2): expected ValidationError, got %v", err)
	}
}

// leakyClock hands out timers whose Stop never succeeds, modelling a
// callback that already fired and is blocked on the session lock.
type leakyClock struct {
	callbacks []func()
}

type leakyTimer struct{}

func (leakyTimer) Stop() bool { return false }

func (c *leakyClock) AfterFunc(_ time.Duration, f func()) clock.Timer {
	c.callbacks = append(c.callbacks, f)
	return leakyTimer{}
}

func TestReplay_StaleCallbacksAreIgnored(t *testing.T) {
	clk := &leakyClock{}
	rec := &recorder{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewSession(clk, time.Second, store.NewOrderStore(), store.NewTransactionLog(), NewLedger(dec("1")), rec, logger)
	s.LoadSeries("XYZ", linearSeries(10))

	s.Start()                          // callback 0
	_, _ = s.SetSpeed(domain.Speed10x) // callback 1 supersedes 0
	s.Pause()
	s.Resume() // callback 2 supersedes 1

	clk.callbacks[0]()
	clk.callbacks[1]()
	if len(rec.prices) != 0 {
		t.Fatalf("stale callbacks produced %d ticks", len(rec.prices))
	}

	live := clk.callbacks[2]
	live()
	live()
	if got := s.State().CurrentIndex; got != 1 {
		t.Errorf("index = %d, want 1 (callback replayed)", got)
	}
	if len(rec.prices) != 1 {
		t.Errorf("price updates = %d, want 1", len(rec.prices))
	}
}

// panicNotifier panics on its first price update.
type panicNotifier struct {
	recorder
	armed bool
}

func (p *panicNotifier) PriceUpdated(symbol string, price decimal.Decimal, ts int64) {
	if p.armed {
		p.armed = false
		panic("presentation failure")
	}
	p.recorder.PriceUpdated(symbol, price, ts)
}

func TestReplay_TickFaultPausesPlayback(t *testing.T) {
	clk := clock.NewFake()
	n := &panicNotifier{armed: true}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewSession(clk, time.Second, store.NewOrderStore(), store.NewTransactionLog(), NewLedger(dec("1")), n, logger)
	s.LoadSeries("XYZ", linearSeries(10))
	s.Start()

	clk.Advance(time.Second) // must not panic out of the tick
	st := s.State()
	if st.Status != domain.PlaybackPaused {
		t.Fatalf("status after fault = %s, want paused", st.Status)
	}
	if clk.Pending() != 0 {
		t.Errorf("pending timers after fault = %d, want 0", clk.Pending())
	}

	if st.CurrentIndex != 0 {
		t.Errorf("index after fault = %d, want 0", st.CurrentIndex)
	}

	// The faulted point is replayed on resume.
	s.Resume()
	clk.Advance(time.Second)
	if len(n.prices) != 1 {
		t.Fatalf("updates after resume = %d, want 1", len(n.prices))
	}
	if !n.prices[0].Price.Equal(dec("101")) {
		t.Errorf("price after resume = %s, want 101", n.prices[0].Price)
	}
	if got := s.State().CurrentIndex; got != 1 {
		t.Errorf("index after resume = %d, want 1", got)
	}
}

// stateSinkPanic panics on every replay state notification once armed.
type stateSinkPanic struct {
	recorder
	armed bool
}

func (p *stateSinkPanic) ReplayStateChanged(st domain.ReplayState) {
	if p.armed {
		panic("state sink down")
	}
	p.recorder.ReplayStateChanged(st)
}

func TestReplay_FailingStateSinkDoesNotEscapeTick(t *testing.T) {
	clk := clock.NewFake()
	n := &stateSinkPanic{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := NewSession(clk, time.Second, store.NewOrderStore(), store.NewTransactionLog(), NewLedger(dec("1")), n, logger)
	s.LoadSeries("XYZ", linearSeries(10))
	s.Start()
	n.armed = true

	clk.Advance(time.Second) // must not panic out of the tick
	st := s.State()
	if st.Status != domain.PlaybackPaused {
		t.Fatalf("status after fault = %s, want paused", st.Status)
	}
	if clk.Pending() != 0 {
		t.Errorf("pending timers after fault = %d, want 0", clk.Pending())
	}
}
