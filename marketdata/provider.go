package marketdata

import (
	"time"

	"github.com/ArthurHtr/backtest-engine/market"
)

// Provider supplies ordered candle series for a symbol over a time range.
// The engine makes no assumption about how the bars were produced
// (simulated, replayed from disk, or fetched remotely); tests inject
// hand-crafted series through this interface.
type Provider interface {
	Candles(symbol string, start, end time.Time, timeframe string) ([]market.Candle, error)
}

// CandlesBySymbol fetches one series per symbol from the provider.
func CandlesBySymbol(p Provider, symbols []string, start, end time.Time, timeframe string) (map[string][]market.Candle, error) {
	out := make(map[string][]market.Candle, len(symbols))
	for _, sym := range symbols {
		candles, err := p.Candles(sym, start, end, timeframe)
		if err != nil {
			return nil, err
		}
		out[sym] = candles
	}
	return out, nil
}
