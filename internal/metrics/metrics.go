// Package metrics exposes replay activity as Prometheus metrics.
package metrics

import (
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/replaytrader/internal/domain"
)

var statuses = []domain.PlaybackStatus{
	domain.PlaybackStopped,
	domain.PlaybackPlaying,
	domain.PlaybackPaused,
}

// Recorder holds the replay metrics on its own registry. It implements
// engine.Notifier.
type Recorder struct {
	registry *prometheus.Registry

	PriceUpdates *prometheus.CounterVec
	LastPrice    *prometheus.GaugeVec
	Fills        *prometheus.CounterVec
	FillNotional *prometheus.CounterVec
	Deferrals    *prometheus.CounterVec
	Status       *prometheus.GaugeVec
	Index        prometheus.Gauge
	Speed        prometheus.Gauge
}

// NewRecorder creates a Recorder with every metric registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		PriceUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "replaytrader_price_updates_total",
				Help: "Replayed prices applied, by symbol",
			},
			[]string{"symbol"},
		),

		LastPrice: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "replaytrader_last_price",
				Help: "Most recent replayed price, by symbol",
			},
			[]string{"symbol"},
		),

		Fills: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "replaytrader_fills_total",
				Help: "Executed fills by side and source (market, limit, stop)",
			},
			[]string{"side", "source"},
		),

		FillNotional: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "replaytrader_fill_notional_total",
				Help: "Sum of price times quantity over executed fills, by side",
			},
			[]string{"side"},
		),

		Deferrals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "replaytrader_deferrals_total",
				Help: "Triggered orders left pending because they were infeasible, by reason",
			},
			[]string{"reason"},
		),

		Status: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "replaytrader_replay_status",
				Help: "1 for the current playback status, 0 otherwise",
			},
			[]string{"status"},
		),

		Index: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "replaytrader_replay_index",
				Help: "Current index into the loaded series",
			},
		),

		Speed: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "replaytrader_replay_speed",
				Help: "Current playback multiplier",
			},
		),
	}

	r.registry.MustRegister(
		r.PriceUpdates,
		r.LastPrice,
		r.Fills,
		r.FillNotional,
		r.Deferrals,
		r.Status,
		r.Index,
		r.Speed,
	)
	r.setStatus(domain.PlaybackStopped)
	r.Speed.Set(float64(domain.Speed1x))
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// PriceUpdated implements engine.Notifier.
func (r *Recorder) PriceUpdated(symbol string, price decimal.Decimal, _ int64) {
	r.PriceUpdates.WithLabelValues(symbol).Inc()
	r.LastPrice.WithLabelValues(symbol).Set(price.InexactFloat64())
}

// ReplayStateChanged implements engine.Notifier.
func (r *Recorder) ReplayStateChanged(state domain.ReplayState) {
	r.setStatus(state.Status)
	r.Index.Set(float64(state.CurrentIndex))
	r.Speed.Set(float64(state.Speed))
}

// OrderFilled implements engine.Notifier.
func (r *Recorder) OrderFilled(tx domain.Transaction) {
	r.Fills.WithLabelValues(string(tx.Side), string(tx.Source)).Inc()
	r.FillNotional.WithLabelValues(string(tx.Side)).Add(tx.TotalValue.InexactFloat64())
}

// OrderDeferred implements engine.Notifier.
func (r *Recorder) OrderDeferred(_ domain.PendingOrder, reason error) {
	r.Deferrals.WithLabelValues(reasonLabel(reason)).Inc()
}

func (r *Recorder) setStatus(current domain.PlaybackStatus) {
	for _, s := range statuses {
		v := 0.0
		if s == current {
			v = 1
		}
		r.Status.WithLabelValues(string(s)).Set(v)
	}
}

// reasonLabel keeps label cardinality bounded.
func reasonLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrInsufficientShares):
		return "insufficient_shares"
	default:
		return "other"
	}
}
