// Package series loads historical intraday price series for replay.
package series

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/efreitasn/replaytrader/internal/domain"
)

// DateLayout is the format of Key.Date.
const DateLayout = "2006-01-02"

var sessionPattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,31}$`)

// Key identifies one series: a symbol's trading session on a date.
type Key struct {
	Symbol  string
	Date    string
	Session string
}

// Validate checks that every part of the key is well formed. Keys are used
// to build file paths, so nothing outside these alphabets is accepted.
func (k Key) Validate() error {
	if !domain.ValidSymbol(k.Symbol) {
		return &domain.ValidationError{Message: fmt.Sprintf("invalid symbol %q", k.Symbol)}
	}
	if _, err := time.Parse(DateLayout, k.Date); err != nil {
		return &domain.ValidationError{Message: fmt.Sprintf("date must be YYYY-MM-DD, got %q", k.Date)}
	}
	if !sessionPattern.MatchString(k.Session) {
		return &domain.ValidationError{Message: fmt.Sprintf("invalid session %q", k.Session)}
	}
	return nil
}

func (k Key) String() string {
	return k.Symbol + "/" + k.Date + "-" + k.Session
}

// Provider loads the ordered price points of a series. A missing series
// returns domain.ErrSeriesNotFound.
type Provider interface {
	Load(ctx context.Context, key Key) ([]domain.PricePoint, error)
}

// parsePrice parses a stored price, which must be positive.
func parsePrice(s string) (decimal.Decimal, error) {
	d, err := domain.ParseMoney(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("price %s is not positive", s)
	}
	return d, nil
}
