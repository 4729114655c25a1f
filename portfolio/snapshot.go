package portfolio

import "time"

// Snapshot is an immutable view of the portfolio at one point in time.
// Positions are independent copies: a strategy holding a snapshot cannot
// reach back into live state.
type Snapshot struct {
	Time      time.Time
	Cash      float64
	Equity    float64
	Positions []Position
}

// Position returns the snapshot's copy for symbol, if any.
func (s Snapshot) Position(symbol string) (Position, bool) {
	for _, p := range s.Positions {
		if p.Symbol == symbol {
			return p, true
		}
	}
	return Position{}, false
}
