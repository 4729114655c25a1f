package portfolio

import "time"

// Trade is an executed fill ready to be applied to the portfolio.
// Quantity is signed: BUY > 0, SELL < 0. Building a Trade does not mean it
// has settled; ApplyTrade has the final say.
type Trade struct {
	ID       string
	Symbol   string
	Quantity float64
	Price    float64
	Fee      float64
	Time     time.Time
}

// Notional is |quantity| * price.
func (t Trade) Notional() float64 {
	n := t.Quantity * t.Price
	if n < 0 {
		n = -n
	}
	return n
}
