package service

import (
	"context"
	"fmt"

	"github.com/efreitasn/replaytrader/internal/domain"
	"github.com/efreitasn/replaytrader/internal/engine"
	"github.com/efreitasn/replaytrader/internal/series"
)

// Step directions accepted by ReplayService.Step.
const (
	StepForward  = "forward"
	StepBackward = "backward"
)

// LoadSeriesRequest identifies the series to replay.
type LoadSeriesRequest struct {
	Symbol  string
	Date    string
	Session string
}

// ReplayService loads series into the session and drives the replay clock.
type ReplayService struct {
	session  *engine.Session
	provider series.Provider
}

// NewReplayService creates a new ReplayService.
func NewReplayService(session *engine.Session, provider series.Provider) *ReplayService {
	return &ReplayService{session: session, provider: provider}
}

// LoadSeries fetches the requested series and makes it the active one. The
// replay clock is reset; orders, transactions and the portfolio are kept.
func (s *ReplayService) LoadSeries(ctx context.Context, req LoadSeriesRequest) (domain.ReplayState, error) {
	key := series.Key{
		Symbol:  domain.NormalizeSymbol(req.Symbol),
		Date:    req.Date,
		Session: req.Session,
	}
	if err := key.Validate(); err != nil {
		return domain.ReplayState{}, err
	}

	points, err := s.provider.Load(ctx, key)
	if err != nil {
		return domain.ReplayState{}, fmt.Errorf("load series %s: %w", key, err)
	}
	return s.session.LoadSeries(key.Symbol, points), nil
}

// State returns the current replay state.
func (s *ReplayService) State() domain.ReplayState {
	return s.session.State()
}

// Start begins or resumes playback.
func (s *ReplayService) Start() domain.ReplayState {
	return s.session.Start()
}

// Pause halts playback.
func (s *ReplayService) Pause() domain.ReplayState {
	return s.session.Pause()
}

// Resume continues a paused playback.
func (s *ReplayService) Resume() domain.ReplayState {
	return s.session.Resume()
}

// Stop ends playback and rewinds to the first point.
func (s *ReplayService) Stop() domain.ReplayState {
	return s.session.Stop()
}

// SetSpeed sets the playback multiplier (1, 5 or 10).
func (s *ReplayService) SetSpeed(multiplier int) (domain.ReplayState, error) {
	return s.session.SetSpeed(domain.Speed(multiplier))
}

// Seek jumps to a fraction of the series in [0, 1].
func (s *ReplayService) Seek(fraction float64) (domain.ReplayState, error) {
	return s.session.Seek(fraction)
}

// Step moves count points in direction. A zero count steps once.
func (s *ReplayService) Step(direction string, count int) (domain.ReplayState, error) {
	if count == 0 {
		count = 1
	}
	switch direction {
	case StepForward:
		return s.session.StepForward(count)
	case StepBackward:
		return s.session.StepBackward(count)
	default:
		return domain.ReplayState{}, &domain.ValidationError{
			Message: fmt.Sprintf("direction must be '%s' or '%s'", StepForward, StepBackward),
		}
	}
}
