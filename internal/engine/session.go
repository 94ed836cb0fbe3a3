package engine

import (
	"log/slog"
	"sync"
	"time"

	"github.com/efreitasn/replaytrader/internal/clock"
	"github.com/efreitasn/replaytrader/internal/domain"
	"github.com/efreitasn/replaytrader/internal/store"
)

// DefaultBaseInterval is the tick delay at 1x: one price point per second.
const DefaultBaseInterval = time.Second

// Session owns one replay desk: the loaded price series, the replay clock,
// the pending order store, the ledger and the transaction log.
//
// A single mutex serializes every public method with tick processing, so a
// manual action can never land between a tick's price read and its
// matching step.
type Session struct {
	mu sync.Mutex

	clock        clock.Clock
	baseInterval time.Duration
	orders       *store.OrderStore
	txlog        *store.TransactionLog
	ledger       *Ledger
	matcher      *Matcher
	notifier     Notifier
	logger       *slog.Logger

	symbol string
	series []domain.PricePoint
	status domain.PlaybackStatus
	index  int
	speed  domain.Speed

	timer    clock.Timer
	timerGen uint64 // bumped on every schedule and cancel; stale callbacks compare against it
}

// NewSession creates a Session with no series loaded. A nil notifier
// discards events.
func NewSession(
	clk clock.Clock,
	baseInterval time.Duration,
	orders *store.OrderStore,
	txlog *store.TransactionLog,
	ledger *Ledger,
	notifier Notifier,
	logger *slog.Logger,
) *Session {
	if baseInterval <= 0 {
		baseInterval = DefaultBaseInterval
	}
	if notifier == nil {
		notifier = Notifiers(nil)
	}
	return &Session{
		clock:        clk,
		baseInterval: baseInterval,
		orders:       orders,
		txlog:        txlog,
		ledger:       ledger,
		matcher:      NewMatcher(orders, ledger, txlog),
		notifier:     notifier,
		logger:       logger,
		status:       domain.PlaybackStopped,
		speed:        domain.Speed1x,
	}
}

// LoadSeries replaces the replayed series and resets the replay clock to a
// stopped state at index 0 and 1x speed. Pending orders, transactions and
// the portfolio are kept.
func (s *Session) LoadSeries(symbol string, points []domain.PricePoint) domain.ReplayState {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelTimer()
	s.symbol = symbol
	s.series = append([]domain.PricePoint(nil), points...)
	s.status = domain.PlaybackStopped
	s.index = 0
	s.speed = domain.Speed1x

	s.logger.Info("series loaded",
		slog.String("symbol", symbol),
		slog.Int("points", len(points)),
	)
	return s.emitState()
}

// State returns a snapshot of the replay clock.
func (s *Session) State() domain.ReplayState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Symbol returns the symbol of the loaded series, or "" if none.
func (s *Session) Symbol() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.symbol
}

func (s *Session) stateLocked() domain.ReplayState {
	st := domain.ReplayState{
		Status:       s.status,
		IsActive:     s.status != domain.PlaybackStopped,
		IsPaused:     s.status == domain.PlaybackPaused,
		Symbol:       s.symbol,
		Length:       len(s.series),
		CurrentIndex: s.index,
		Speed:        s.speed,
	}
	if s.index >= 0 && s.index < len(s.series) {
		p := s.series[s.index]
		st.CurrentTimestamp = p.Timestamp
		st.CurrentPrice = p.Price
	}
	return st
}

func (s *Session) emitState() domain.ReplayState {
	st := s.stateLocked()
	s.notifier.ReplayStateChanged(st)
	return st
}

func (s *Session) hasSeries() bool {
	return len(s.series) > 0
}
