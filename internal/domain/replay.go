package domain

import "github.com/shopspring/decimal"

// PlaybackStatus is the replay clock state.
type PlaybackStatus string

const (
	PlaybackStopped PlaybackStatus = "stopped"
	PlaybackPlaying PlaybackStatus = "playing"
	PlaybackPaused  PlaybackStatus = "paused"
)

// Speed is a playback multiplier applied to the base tick interval.
type Speed int

// Supported playback speeds.
const (
	Speed1x  Speed = 1
	Speed5x  Speed = 5
	Speed10x Speed = 10
)

// Valid reports whether s is a supported multiplier.
func (s Speed) Valid() bool {
	switch s {
	case Speed1x, Speed5x, Speed10x:
		return true
	}
	return false
}

// ReplayState is a read-only snapshot of the replay clock.
type ReplayState struct {
	Status           PlaybackStatus
	IsActive         bool
	IsPaused         bool
	Symbol           string
	Length           int
	CurrentIndex     int
	Speed            Speed
	CurrentTimestamp int64
	CurrentPrice     decimal.Decimal
}
