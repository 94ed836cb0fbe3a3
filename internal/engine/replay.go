package engine

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/replaytrader/internal/domain"
)

// Start begins playback. From stopped it plays from the current index,
// from paused it resumes. It is a no-op while playing or when the series
// is empty.
func (s *Session) Start() domain.ReplayState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasSeries() || s.status == domain.PlaybackPlaying {
		return s.stateLocked()
	}
	s.status = domain.PlaybackPlaying
	s.schedule()
	s.logger.Debug("replay started", slog.Int("index", s.index))
	return s.emitState()
}

// Pause halts playback without moving the index. No-op unless playing.
func (s *Session) Pause() domain.ReplayState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.PlaybackPlaying {
		return s.stateLocked()
	}
	s.cancelTimer()
	s.status = domain.PlaybackPaused
	s.logger.Debug("replay paused", slog.Int("index", s.index))
	return s.emitState()
}

// Resume continues a paused playback from the current index. No-op unless
// paused.
func (s *Session) Resume() domain.ReplayState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != domain.PlaybackPaused {
		return s.stateLocked()
	}
	s.status = domain.PlaybackPlaying
	s.schedule()
	s.logger.Debug("replay resumed", slog.Int("index", s.index))
	return s.emitState()
}

// Stop ends playback and rewinds to the first point. Pending orders and
// transactions are untouched.
func (s *Session) Stop() domain.ReplayState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelTimer()
	s.status = domain.PlaybackStopped
	s.index = 0
	s.logger.Debug("replay stopped")
	return s.emitState()
}

// SetSpeed changes the playback multiplier. While playing, the in-flight
// delay is dropped and the next tick is scheduled at the new interval.
func (s *Session) SetSpeed(speed domain.Speed) (domain.ReplayState, error) {
	if !speed.Valid() {
		return domain.ReplayState{}, &domain.ValidationError{
			Message: fmt.Sprintf("speed must be one of 1, 5, 10; got %d", speed),
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.speed = speed
	if s.status == domain.PlaybackPlaying {
		s.schedule()
	}
	return s.emitState(), nil
}

// Seek jumps to floor(fraction × (N-1)) and matches pending orders at the
// new price. Playback status is unchanged.
func (s *Session) Seek(fraction float64) (domain.ReplayState, error) {
	if math.IsNaN(fraction) || fraction < 0 || fraction > 1 {
		return domain.ReplayState{}, &domain.ValidationError{Message: "fraction must be within [0, 1]"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasSeries() {
		return s.stateLocked(), domain.ErrNoActiveSeries
	}
	return s.jumpTo(seekIndex(fraction, len(s.series))), nil
}

// seekIndex computes floor(fraction × (n-1)) in decimal so fractions such
// as 0.29 are not rounded down by binary float error.
func seekIndex(fraction float64, n int) int {
	idx := decimal.NewFromFloat(fraction).Mul(decimal.NewFromInt(int64(n - 1))).Floor().IntPart()
	return clamp(int(idx), 0, n-1)
}

// StepForward moves n points ahead, clamped to the last point.
func (s *Session) StepForward(n int) (domain.ReplayState, error) {
	if n < 1 {
		return domain.ReplayState{}, errStepCount
	}
	return s.step(n)
}

// StepBackward moves n points back, clamped to the first point.
func (s *Session) StepBackward(n int) (domain.ReplayState, error) {
	if n < 1 {
		return domain.ReplayState{}, errStepCount
	}
	return s.step(-n)
}

var errStepCount = &domain.ValidationError{Message: "step count must be a positive integer"}

func (s *Session) step(delta int) (domain.ReplayState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasSeries() {
		return s.stateLocked(), domain.ErrNoActiveSeries
	}
	idx := s.index + delta
	// Guard against overflow for very large counts.
	if delta > 0 && idx < s.index {
		idx = len(s.series) - 1
	}
	return s.jumpTo(clamp(idx, 0, len(s.series)-1)), nil
}

// jumpTo moves the index outside the tick loop. A running playback gets a
// fresh full delay so the jump is never followed by a partial one.
func (s *Session) jumpTo(idx int) domain.ReplayState {
	s.index = idx
	s.applyPrice(s.series[idx])
	if s.status == domain.PlaybackPlaying {
		s.schedule()
	}
	return s.emitState()
}

// tick is the timer callback. gen identifies the schedule that created
// it; anything scheduled or cancelled since then makes it stale.
func (s *Session) tick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.timerGen || s.status != domain.PlaybackPlaying {
		return
	}
	s.timer = nil

	defer func() {
		if r := recover(); r != nil {
			s.halt(fmt.Errorf("tick panic: %v", r))
		}
	}()

	if s.index >= len(s.series)-1 {
		s.status = domain.PlaybackPaused
		s.logger.Debug("replay reached end of series", slog.Int("index", s.index))
		s.emitState()
		return
	}

	next := s.index + 1
	if next < 0 || next >= len(s.series) {
		s.halt(fmt.Errorf("tick index %d out of range [0, %d)", next, len(s.series)))
		return
	}
	// The index moves only once the price is fully applied, so a fault
	// leaves the point to be replayed on resume.
	s.applyPrice(s.series[next])
	s.index = next
	s.emitState()
	s.schedule()
}

// halt pauses playback after a tick fault. The state notification is
// guarded since the failing notifier may be the state sink itself.
func (s *Session) halt(err error) {
	s.cancelTimer()
	s.status = domain.PlaybackPaused
	s.logger.Error("replay halted", slog.String("error", err.Error()), slog.Int("index", s.index))

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("replay state notification failed", slog.String("error", fmt.Sprint(r)))
		}
	}()
	s.emitState()
}

// applyPrice marks holdings, runs the matcher and publishes the results.
func (s *Session) applyPrice(p domain.PricePoint) {
	s.ledger.Mark(s.symbol, p.Price, p.Timestamp)
	s.notifier.PriceUpdated(s.symbol, p.Price, p.Timestamp)

	ev := s.matcher.Match(s.symbol, p.Price, p.Timestamp)
	for _, tx := range ev.Filled {
		s.logger.Info("order filled",
			slog.String("order_id", tx.OrderID),
			slog.String("symbol", tx.Symbol),
			slog.String("side", string(tx.Side)),
			slog.Int64("quantity", tx.Quantity),
			slog.String("price", tx.Price.String()),
		)
		s.notifier.OrderFilled(tx)
	}
	for _, d := range ev.Deferred {
		s.logger.Debug("order deferred",
			slog.String("order_id", d.Order.OrderID),
			slog.String("reason", d.Reason.Error()),
		)
		s.notifier.OrderDeferred(d.Order, d.Reason)
	}
}

// schedule replaces any outstanding delay with one tick at the current
// interval.
func (s *Session) schedule() {
	s.cancelTimer()
	gen := s.timerGen
	s.timer = s.clock.AfterFunc(s.interval(), func() { s.tick(gen) })
}

// cancelTimer stops the outstanding delay, if any, and invalidates a
// callback that already fired but is still waiting for the lock.
func (s *Session) cancelTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.timerGen++
}

func (s *Session) interval() time.Duration {
	return s.baseInterval / time.Duration(s.speed)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
