package broker

import "fmt"

// Side of an order intent as submitted by a strategy.
type Side int8

const (
	Buy  Side = +1
	Sell Side = -1
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	}
	return fmt.Sprintf("SIDE(%d)", int8(s))
}

// OrderIntent is what a strategy wants to do. Quantity is always positive;
// the broker derives the signed trade quantity from Side. Only market orders
// are supported; LimitPrice is carried for forward compatibility and ignored.
type OrderIntent struct {
	Symbol     string
	Side       Side
	Quantity   float64
	OrderType  string
	LimitPrice float64
	OrderID    string
}

// MarketIntent builds a plain market-order intent.
func MarketIntent(symbol string, side Side, quantity float64) OrderIntent {
	return OrderIntent{
		Symbol:    symbol,
		Side:      side,
		Quantity:  quantity,
		OrderType: "MARKET",
	}
}
