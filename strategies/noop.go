package strategies

import (
	"github.com/ArthurHtr/backtest-engine/backtest"
	"github.com/ArthurHtr/backtest-engine/broker"
)

// Noop never trades. Useful as a baseline and in tests.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) OnBar(*backtest.Context) []broker.OrderIntent { return nil }
