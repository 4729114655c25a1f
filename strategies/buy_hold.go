package strategies

import (
	"time"

	"github.com/ArthurHtr/backtest-engine/backtest"
	"github.com/ArthurHtr/backtest-engine/broker"
)

// BuyAndHold buys a fixed quantity of each symbol the first time it shows
// up and holds. If SellAt is set, every open position is closed on the bar
// carrying that timestamp; closing on the final bar is a strategy-level
// convention, the engine does no finalization of its own.
type BuyAndHold struct {
	Quantity float64
	SellAt   time.Time

	bought map[string]bool
}

func (s *BuyAndHold) Name() string { return "buy-hold" }

func (s *BuyAndHold) OnBar(ctx *backtest.Context) []broker.OrderIntent {
	if s.bought == nil {
		s.bought = make(map[string]bool)
	}

	var intents []broker.OrderIntent

	if !s.SellAt.IsZero() && ctx.Timestamp.Equal(s.SellAt) {
		for _, pos := range ctx.Portfolio.Positions {
			intents = append(intents, broker.MarketIntent(pos.Symbol, broker.Sell, pos.Quantity))
		}
		return intents
	}

	for _, symbol := range stepSymbols(ctx) {
		if s.bought[symbol] {
			continue
		}
		s.bought[symbol] = true
		intents = append(intents, broker.MarketIntent(symbol, broker.Buy, s.Quantity))
	}
	return intents
}
