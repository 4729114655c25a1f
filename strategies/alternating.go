package strategies

import (
	"github.com/ArthurHtr/backtest-engine/backtest"
	"github.com/ArthurHtr/backtest-engine/broker"
)

// Alternating cycles buys and sells on a fixed cadence: 3 buys, 6 sells,
// 6 buys, repeat. It exists to exercise partial closes, reverses and
// rejections in end-to-end runs rather than to make money.
type Alternating struct {
	Quantity float64

	counter int
}

func (s *Alternating) Name() string { return "alternating" }

func (s *Alternating) OnBar(ctx *backtest.Context) []broker.OrderIntent {
	s.counter++
	seq := s.counter % 15

	var intents []broker.OrderIntent
	for _, symbol := range stepSymbols(ctx) {
		switch {
		case seq >= 1 && seq <= 3:
			intents = append(intents, broker.MarketIntent(symbol, broker.Buy, s.Quantity))
		case seq >= 4 && seq <= 9:
			intents = append(intents, broker.MarketIntent(symbol, broker.Sell, s.Quantity))
		case seq >= 10:
			intents = append(intents, broker.MarketIntent(symbol, broker.Buy, s.Quantity))
		}
	}
	return intents
}
