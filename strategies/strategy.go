package strategies

import (
	"fmt"
	"sort"
	"strings"

	"github.com/ArthurHtr/backtest-engine/backtest"
)

var registry = make(map[string]backtest.Strategy)

// Register makes a strategy available to Get by name.
func Register(name string, strat backtest.Strategy) {
	registry[name] = strat
}

// Get returns a previously registered strategy, or nil.
func Get(name string) backtest.Strategy {
	return registry[name]
}

// Params carries the knobs shared by the built-in strategies. Each strategy
// reads the fields it cares about and ignores the rest.
type Params struct {
	Quantity    float64
	ShortWindow int
	LongWindow  int
}

// ByName builds one of the built-in strategies.
func ByName(name string, p Params) (backtest.Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "noop", "none":
		return Noop{}, nil

	case "buy-hold", "buyhold", "buy-and-hold":
		return &BuyAndHold{Quantity: p.Quantity}, nil

	case "sma-cross", "smacross", "ma-cross":
		return NewSMACross(p.ShortWindow, p.LongWindow, p.Quantity)

	case "alternating":
		return &Alternating{Quantity: p.Quantity}, nil

	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: noop, buy-hold, sma-cross, alternating)", name)
	}
}

// stepSymbols returns the symbols present at this step in sorted order.
// Intent order is a correctness property downstream, so strategies must not
// emit intents in map-iteration order.
func stepSymbols(ctx *backtest.Context) []string {
	symbols := make([]string, 0, len(ctx.Candles))
	for sym := range ctx.Candles {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols
}
