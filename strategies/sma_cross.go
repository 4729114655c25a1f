package strategies

import (
	"fmt"

	"github.com/ArthurHtr/backtest-engine/backtest"
	"github.com/ArthurHtr/backtest-engine/broker"
	"github.com/ArthurHtr/backtest-engine/indicators"
)

// SMACross trades simple-moving-average crossovers on every symbol present
// at a step: buy when the short SMA crosses above the long one, sell when
// it crosses below. A fixed quantity per signal.
type SMACross struct {
	ShortWindow int
	LongWindow  int
	Quantity    float64
}

func NewSMACross(short, long int, quantity float64) (*SMACross, error) {
	if short <= 0 || long <= 0 {
		return nil, fmt.Errorf("sma-cross: windows must be positive, got %d/%d", short, long)
	}
	if short >= long {
		return nil, fmt.Errorf("sma-cross: short window %d must be < long window %d", short, long)
	}
	return &SMACross{ShortWindow: short, LongWindow: long, Quantity: quantity}, nil
}

func (s *SMACross) Name() string { return "sma-cross" }

func (s *SMACross) OnBar(ctx *backtest.Context) []broker.OrderIntent {
	var intents []broker.OrderIntent

	for _, symbol := range stepSymbols(ctx) {
		// One extra value so the SMA just before the current bar exists.
		prevShort, currShort, okShort := smaPair(ctx.Closes(symbol, s.ShortWindow+1), s.ShortWindow)
		prevLong, currLong, okLong := smaPair(ctx.Closes(symbol, s.LongWindow+1), s.LongWindow)
		if !okShort || !okLong {
			continue
		}

		switch {
		case prevShort <= prevLong && currShort > currLong:
			intents = append(intents, broker.MarketIntent(symbol, broker.Buy, s.Quantity))
		case prevShort >= prevLong && currShort < currLong:
			intents = append(intents, broker.MarketIntent(symbol, broker.Sell, s.Quantity))
		}
	}

	return intents
}

// smaPair returns the SMA over the window ending just before the current
// bar and the SMA ending on it. ok is false while the series is too short
// to see a cross.
func smaPair(series []float64, window int) (prev, curr float64, ok bool) {
	if len(series) < window+1 {
		return 0, 0, false
	}
	curr, err := indicators.SMA(series, window)
	if err != nil {
		return 0, 0, false
	}
	prev, err = indicators.SMA(series[:len(series)-1], window)
	if err != nil {
		return 0, 0, false
	}
	return prev, curr, true
}
