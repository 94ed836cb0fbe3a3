package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ParseMoney parses a decimal string such as "49.50". Empty input and
// malformed numbers are rejected.
func ParseMoney(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("monetary value is empty")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid monetary value %q: %w", s, err)
	}
	return d, nil
}

// Notional returns price × quantity.
func Notional(price decimal.Decimal, quantity int64) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(quantity))
}
