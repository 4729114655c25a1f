package market

import "time"

// Candle is one OHLCV bar for a symbol at a timestamp. Candles are produced
// by data providers and consumed read-only by the broker and engine.
type Candle struct {
	Symbol string
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Valid reports whether the bar is internally consistent:
// high covers both open and close, low is under both.
func (c Candle) Valid() bool {
	if c.Open < 0 || c.High < 0 || c.Low < 0 || c.Close < 0 {
		return false
	}
	if c.High < c.Open || c.High < c.Close {
		return false
	}
	if c.Low > c.Open || c.Low > c.Close {
		return false
	}
	return true
}

// ClosePrices maps each symbol to its bar's close. This is the price map the
// broker and portfolio use for valuation within a step.
func ClosePrices(candles map[string]Candle) map[string]float64 {
	prices := make(map[string]float64, len(candles))
	for sym, c := range candles {
		prices[sym] = c.Close
	}
	return prices
}
