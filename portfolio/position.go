package portfolio

// Side of an open position: +1 long, -1 short.
type Side int8

const (
	Long  Side = +1
	Short Side = -1
)

func (s Side) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	}
	return "FLAT"
}

// Position is the per-symbol exposure held by the portfolio.
// Quantity is a strictly positive magnitude; Side carries the direction.
// A position whose quantity reaches exactly zero is removed, never stored.
type Position struct {
	Symbol      string
	Side        Side
	Quantity    float64
	EntryPrice  float64
	RealizedPnL float64
}

// MarketValue is the signed value of the position at the given price:
// price*qty for longs, -price*qty for shorts.
func (p Position) MarketValue(price float64) float64 {
	if p.Side == Short {
		return -price * p.Quantity
	}
	return price * p.Quantity
}

// Notional is the unsigned exposure at the given price.
func (p Position) Notional(price float64) float64 {
	return price * p.Quantity
}

// Update applies a signed trade quantity (BUY > 0, SELL < 0) to the
// position and returns the surviving position plus the realized P&L
// generated by this trade.
//
// Four cases, driven by the sign and magnitude of qty:
//   - same direction: quantity grows, entry price becomes the weighted average
//   - partial reduction: realized P&L on the closed part, entry unchanged
//   - exact close: the position is gone, Update returns nil
//   - reverse: the position is closed in full and the excess reopens the
//     opposite side at the trade price, in one atomic step
//
// A zero quantity is a no-op.
func (p *Position) Update(qty, price float64) (*Position, float64) {
	if qty == 0 {
		return p, 0
	}

	// Normalize to "closing direction": for a long, a negative qty closes;
	// for a short, a positive qty closes.
	closing := qty < 0
	if p.Side == Short {
		closing = qty > 0
	}

	tradeQty := qty
	if tradeQty < 0 {
		tradeQty = -tradeQty
	}

	if !closing {
		// Same-direction add: weighted-average entry.
		newQty := p.Quantity + tradeQty
		p.EntryPrice = (p.EntryPrice*p.Quantity + price*tradeQty) / newQty
		p.Quantity = newQty
		return p, 0
	}

	switch {
	case tradeQty < p.Quantity:
		// Partial reduction.
		delta := p.closePnL(tradeQty, price)
		p.RealizedPnL += delta
		p.Quantity -= tradeQty
		return p, delta

	case tradeQty == p.Quantity:
		// Exact close: position disappears.
		delta := p.closePnL(p.Quantity, price)
		p.RealizedPnL += delta
		return nil, delta

	default:
		// Reverse: close everything, reopen the opposite side for the excess
		// at the trade price.
		delta := p.closePnL(p.Quantity, price)
		p.RealizedPnL += delta

		p.Quantity = tradeQty - p.Quantity
		p.Side = -p.Side
		p.EntryPrice = price
		return p, delta
	}
}

// closePnL is the realized gain from closing closeQty at price:
// (price-entry)*qty for longs, (entry-price)*qty for shorts.
func (p *Position) closePnL(closeQty, price float64) float64 {
	if p.Side == Long {
		return (price - p.EntryPrice) * closeQty
	}
	return (p.EntryPrice - price) * closeQty
}
