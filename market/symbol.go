package market

import "math"

// Symbol holds per-instrument trading metadata: price and quantity
// granularity plus the smallest order size the venue accepts.
type Symbol struct {
	Symbol       string
	BaseAsset    string
	QuoteAsset   string
	PriceStep    float64
	QuantityStep float64
	MinQuantity  float64
}

// RoundPrice rounds to the nearest multiple of PriceStep.
// A step <= 0 makes rounding the identity.
func (s Symbol) RoundPrice(price float64) float64 {
	if s.PriceStep <= 0 {
		return price
	}
	return math.Round(price/s.PriceStep) * s.PriceStep
}

// RoundQuantity floors the quantity to a multiple of QuantityStep and
// returns 0 when the result falls below MinQuantity. Orders rounded to 0
// are rejected by the broker as too small.
func (s Symbol) RoundQuantity(qty float64) float64 {
	if s.QuantityStep <= 0 {
		return qty
	}
	rounded := math.Floor(qty/s.QuantityStep) * s.QuantityStep
	if rounded < s.MinQuantity {
		return 0
	}
	return rounded
}

// DefaultSymbols covers the instruments the simulated data provider knows
// about. Real deployments load these from config instead.
var DefaultSymbols = map[string]Symbol{
	"AAPL": {
		Symbol:       "AAPL",
		BaseAsset:    "AAPL",
		QuoteAsset:   "USD",
		PriceStep:    0.01,
		QuantityStep: 1,
		MinQuantity:  1,
	},
	"GOOGL": {
		Symbol:       "GOOGL",
		BaseAsset:    "GOOGL",
		QuoteAsset:   "USD",
		PriceStep:    0.01,
		QuantityStep: 1,
		MinQuantity:  1,
	},
	"BTC_USD": {
		Symbol:       "BTC_USD",
		BaseAsset:    "BTC",
		QuoteAsset:   "USD",
		PriceStep:    0.01,
		QuantityStep: 0.0001,
		MinQuantity:  0.0001,
	},
}
