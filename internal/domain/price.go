package domain

import "github.com/shopspring/decimal"

// PricePoint is one sample of a replayed series. Open is nil when the
// provider has no opening price for the sample.
type PricePoint struct {
	Timestamp int64 // epoch ms
	Price     decimal.Decimal
	Open      *decimal.Decimal
}
