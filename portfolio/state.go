package portfolio

import (
	"fmt"
	"sort"
	"time"
)

// State owns the portfolio: cash and the map of open positions. It is the
// only component allowed to mutate positions; the broker and engine submit
// trades through ApplyTrade and otherwise read copies.
//
// Conventions:
//   - Trade.Quantity > 0 : BUY
//   - Trade.Quantity < 0 : SELL
//   - Position.Quantity  : strictly positive magnitude, Side carries direction
//
// A single trade may cross zero (reverse): a long plus an oversized sell
// closes the long and opens a short in one application.
type State struct {
	cash      float64
	positions map[string]*Position
}

func NewState(initialCash float64) *State {
	return &State{
		cash:      initialCash,
		positions: make(map[string]*Position),
	}
}

func (s *State) Cash() float64 { return s.cash }

// Position returns a copy of the open position for symbol.
func (s *State) Position(symbol string) (Position, bool) {
	p, ok := s.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *p, true
}

// MarketValue sums the signed market value of every open position, using
// the entry price when a symbol has no current price.
func (s *State) MarketValue(prices map[string]float64) float64 {
	var total float64
	for sym, p := range s.positions {
		total += p.MarketValue(priceOrEntry(prices, sym, p))
	}
	return total
}

// MarketValueExcept is MarketValue with one symbol left out. The broker's
// pre-trade checks use it to value "everything else" around a simulated fill.
func (s *State) MarketValueExcept(symbol string, prices map[string]float64) float64 {
	var total float64
	for sym, p := range s.positions {
		if sym == symbol {
			continue
		}
		total += p.MarketValue(priceOrEntry(prices, sym, p))
	}
	return total
}

// Equity is cash plus the signed market value of all open positions. This is
// the market-value convention; the same formula backs snapshots and the
// commit-time maintenance check so the two can never diverge.
func (s *State) Equity(prices map[string]float64) float64 {
	return s.cash + s.MarketValue(prices)
}

// ApplyTrade settles a trade with a simulate-then-commit scheme:
// the trade is applied to a scratch copy of cash and positions, equity is
// recomputed, and every short in the scratch state must keep
// equity >= notional * maintenanceMargin. On any breach the real state is
// left untouched and the failing symbol's reason is returned. Otherwise the
// scratch state replaces the real one. The operation is all-or-nothing.
func (s *State) ApplyTrade(t Trade, prices map[string]float64, maintenanceMargin float64) (bool, string) {
	return s.applyTrade(t, prices, maintenanceMargin, true)
}

// ForceApplyTrade commits a trade without the maintenance check. Reserved
// for broker-initiated liquidations, which by construction reduce exposure.
func (s *State) ForceApplyTrade(t Trade, prices map[string]float64) {
	s.applyTrade(t, prices, 0, false)
}

func (s *State) applyTrade(t Trade, prices map[string]float64, maintenanceMargin float64, checkMargin bool) (bool, string) {
	cashAfter := s.cash - t.Quantity*t.Price - t.Fee

	// Scratch copy: fresh Position values so a rejection cannot have touched
	// the live map.
	scratch := make(map[string]*Position, len(s.positions)+1)
	for sym, p := range s.positions {
		cp := *p
		scratch[sym] = &cp
	}

	if pos, ok := scratch[t.Symbol]; ok {
		updated, _ := pos.Update(t.Quantity, t.Price)
		if updated == nil {
			delete(scratch, t.Symbol)
		}
	} else if t.Quantity != 0 {
		side := Long
		qty := t.Quantity
		if qty < 0 {
			side = Short
			qty = -qty
		}
		scratch[t.Symbol] = &Position{
			Symbol:     t.Symbol,
			Side:       side,
			Quantity:   qty,
			EntryPrice: t.Price,
		}
	}

	if checkMargin {
		equityAfter := cashAfter
		for sym, p := range scratch {
			equityAfter += p.MarketValue(priceOrEntry(prices, sym, p))
		}

		for sym, p := range scratch {
			if p.Side != Short {
				continue
			}
			required := p.Notional(priceOrEntry(prices, sym, p)) * maintenanceMargin
			if equityAfter < required {
				return false, fmt.Sprintf(
					"would breach maintenance margin for %s: equity %.2f < required %.2f",
					sym, equityAfter, required)
			}
		}
	}

	s.cash = cashAfter
	s.positions = scratch
	return true, ""
}

// Snapshot captures cash, equity and position copies at the given time.
// Positions are sorted by symbol so the snapshot is deterministic.
func (s *State) Snapshot(prices map[string]float64, ts time.Time) Snapshot {
	positions := make([]Position, 0, len(s.positions))
	equity := s.cash
	for sym, p := range s.positions {
		equity += p.MarketValue(priceOrEntry(prices, sym, p))
		positions = append(positions, *p)
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Symbol < positions[j].Symbol
	})

	return Snapshot{
		Time:      ts,
		Cash:      s.cash,
		Equity:    equity,
		Positions: positions,
	}
}

func priceOrEntry(prices map[string]float64, symbol string, p *Position) float64 {
	if price, ok := prices[symbol]; ok {
		return price
	}
	return p.EntryPrice
}
