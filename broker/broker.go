package broker

import (
	"fmt"
	"time"

	"github.com/ArthurHtr/backtest-engine/market"
	"github.com/ArthurHtr/backtest-engine/pkg/id"
	"github.com/ArthurHtr/backtest-engine/portfolio"
)

// Broker validates order intents against current prices and portfolio state,
// builds trades, and routes them through the portfolio's commit entry point.
// It never mutates positions directly.
//
// Margin-sensitive validation runs in two stages:
//  1. conservative pre-trade checks in validateAndBuildTrade (cash for buys,
//     initial margin for new short exposure, anticipated maintenance);
//  2. the authoritative simulate-then-commit check inside
//     portfolio.State.ApplyTrade, which can still reject without mutating
//     state once aggregate batch effects are visible.
//
// Splitting the checks this way avoids execute-then-unwind (double fees,
// inconsistent state).
type Broker struct {
	state *portfolio.State

	feeRate           float64
	marginRequirement float64
	maintenanceMargin float64
	symbols           map[string]market.Symbol
}

// Config carries the broker's economic parameters.
type Config struct {
	InitialCash       float64
	FeeRate           float64 // fraction of notional, e.g. 0.002
	MarginRequirement float64 // initial margin fraction for short exposure
	MaintenanceMargin float64 // equity floor fraction per short, e.g. 0.25
	Symbols           map[string]market.Symbol
}

func New(cfg Config) *Broker {
	return &Broker{
		state:             portfolio.NewState(cfg.InitialCash),
		feeRate:           cfg.FeeRate,
		marginRequirement: cfg.MarginRequirement,
		maintenanceMargin: cfg.MaintenanceMargin,
		symbols:           cfg.Symbols,
	}
}

// Portfolio exposes the underlying state for read access.
func (b *Broker) Portfolio() *portfolio.State { return b.state }

// Snapshot builds the portfolio snapshot at the given bars' close prices.
func (b *Broker) Snapshot(candles map[string]market.Candle) portfolio.Snapshot {
	return b.state.Snapshot(market.ClosePrices(candles), stepTime(candles))
}

// ProcessBars handles one time step: first the maintenance-margin sweep over
// existing shorts, then each strategy intent in arrival order. Later intents
// see the cash and positions left behind by earlier ones. The returned
// details hold one entry per liquidation and per intent; the snapshot is the
// post-execution state at the bars' close prices.
func (b *Broker) ProcessBars(candles map[string]market.Candle, intents []OrderIntent) (portfolio.Snapshot, []ExecutionDetail) {
	prices := market.ClosePrices(candles)
	ts := stepTime(candles)

	details := b.checkMarginCalls(candles, prices, ts)

	for _, intent := range intents {
		detail, trade := b.validateAndBuildTrade(intent, prices, ts)
		if trade == nil {
			details = append(details, detail)
			continue
		}

		accepted, reason := b.state.ApplyTrade(*trade, prices, b.maintenanceMargin)
		if !accepted {
			details = append(details, rejected(intent, reason))
			continue
		}
		details = append(details, executed(intent, trade))
	}

	return b.state.Snapshot(prices, ts), details
}

// checkMarginCalls force-liquidates shorts whose maintenance margin is
// breached at the bar's high, the worst price a short can see within the
// bar. If the high touched the liquidation level the position is bought
// back at that price even if the close recovered. Breached shorts are
// liquidated largest-notional-first, re-evaluating equity after each
// buy-back since closing one short can cure the rest.
func (b *Broker) checkMarginCalls(candles map[string]market.Candle, prices map[string]float64, ts time.Time) []ExecutionDetail {
	var details []ExecutionDetail

	for {
		symbol, pos, checkPrice, ok := b.worstBreachedShort(candles, prices)
		if !ok {
			return details
		}

		qty := pos.Quantity // buy back everything
		fee := qty * checkPrice * b.feeRate
		trade := portfolio.Trade{
			ID:       id.At(ts),
			Symbol:   symbol,
			Quantity: qty,
			Price:    checkPrice,
			Fee:      fee,
			Time:     ts,
		}

		// The commit bypasses the maintenance check: a liquidation only
		// reduces exposure. Price map override so the fill settles at the
		// liquidation price, not the close.
		b.state.ForceApplyTrade(trade, overridePrice(prices, symbol, checkPrice))

		details = append(details, ExecutionDetail{
			Status: StatusLiquidated,
			Trade:  &trade,
			Reason: fmt.Sprintf("maintenance margin breach at high price %.4f", checkPrice),
		})
	}
}

// worstBreachedShort finds the short in maintenance breach with the largest
// notional, valued at its own worst-case (high) price.
func (b *Broker) worstBreachedShort(candles map[string]market.Candle, prices map[string]float64) (string, portfolio.Position, float64, bool) {
	var (
		worstSym      string
		worstPos      portfolio.Position
		worstPrice    float64
		worstNotional float64
		found         bool
	)

	snapshot := b.state.Snapshot(prices, time.Time{})
	for _, pos := range snapshot.Positions {
		if pos.Side != portfolio.Short {
			continue
		}

		checkPrice := pos.EntryPrice
		if c, ok := candles[pos.Symbol]; ok {
			checkPrice = c.High
		} else if p, ok := prices[pos.Symbol]; ok {
			checkPrice = p
		}

		equity := b.state.Equity(overridePrice(prices, pos.Symbol, checkPrice))
		notional := pos.Notional(checkPrice)
		if equity >= notional*b.maintenanceMargin {
			continue
		}
		if !found || notional > worstNotional {
			worstSym = pos.Symbol
			worstPos = pos
			worstPrice = checkPrice
			worstNotional = notional
			found = true
		}
	}

	return worstSym, worstPos, worstPrice, found
}

// validateAndBuildTrade runs the conservative pre-trade checks and, when the
// intent passes, returns the trade ready for the portfolio commit.
func (b *Broker) validateAndBuildTrade(intent OrderIntent, prices map[string]float64, ts time.Time) (ExecutionDetail, *portfolio.Trade) {
	price, ok := prices[intent.Symbol]
	if !ok {
		return rejected(intent, "No price available for symbol."), nil
	}

	qty := intent.Quantity
	if sym, ok := b.symbols[intent.Symbol]; ok {
		qty = sym.RoundQuantity(qty)
		if qty == 0 {
			return rejected(intent, "Quantity too small (below min quantity or step)."), nil
		}
	}

	notional := qty * price
	fee := notional * b.feeRate

	position, hasPosition := b.state.Position(intent.Symbol)

	var tradeQty float64

	switch intent.Side {
	case Buy:
		// Covering an existing short needs no fresh margin; any long opened
		// by the excess is financed in cash. Cash must cover the whole fill.
		if b.state.Cash() < notional+fee {
			return rejected(intent, "Insufficient cash."), nil
		}
		tradeQty = qty

	case Sell:
		if hasPosition && position.Side == portfolio.Long {
			if qty <= position.Quantity {
				// Pure reduction of the long, no margin involved.
				tradeQty = -qty
				break
			}

			// Implicit reverse: the long closes and the excess opens a
			// short, which must clear initial and maintenance margin on
			// post-close equity.
			extraNotional := (qty - position.Quantity) * price
			cashAfterClose := b.state.Cash() + position.Quantity*price - fee
			equityAfter := cashAfterClose + b.state.MarketValueExcept(intent.Symbol, prices)

			if equityAfter < extraNotional*b.maintenanceMargin {
				return rejected(intent, "Would breach maintenance margin on reverse."), nil
			}
			if equityAfter < extraNotional*b.marginRequirement {
				return rejected(intent, "Insufficient margin for reverse."), nil
			}
			tradeQty = -qty
			break
		}

		// Opening or extending a short. Equity is simulated post-trade: the
		// proceeds land in cash and the short's full exposure counts against
		// it, so at the fill price equity only moves by the fee. Maintenance
		// is pre-checked on total exposure (matching the commit check), but
		// initial margin applies to the new notional only: a held short has
		// already posted its margin.
		exposureQty := qty
		if hasPosition && position.Side == portfolio.Short {
			exposureQty += position.Quantity
		}
		exposure := exposureQty * price

		cashAfter := b.state.Cash() + notional - fee
		equityAfter := cashAfter + b.state.MarketValueExcept(intent.Symbol, prices) - exposure

		if equityAfter < exposure*b.maintenanceMargin {
			return rejected(intent, "Would breach maintenance margin."), nil
		}
		if equityAfter < notional*b.marginRequirement {
			return rejected(intent, "Insufficient margin."), nil
		}
		tradeQty = -qty

	default:
		return rejected(intent, fmt.Sprintf("Unsupported side: %s.", intent.Side)), nil
	}

	trade := &portfolio.Trade{
		ID:       id.At(ts),
		Symbol:   intent.Symbol,
		Quantity: tradeQty,
		Price:    price,
		Fee:      fee,
		Time:     ts,
	}
	return executed(intent, trade), trade
}

func overridePrice(prices map[string]float64, symbol string, price float64) map[string]float64 {
	out := make(map[string]float64, len(prices)+1)
	for s, p := range prices {
		out[s] = p
	}
	out[symbol] = price
	return out
}

// stepTime picks the step timestamp from the bar map. Every candle within a
// step shares the same timestamp.
func stepTime(candles map[string]market.Candle) time.Time {
	for _, c := range candles {
		return c.Time
	}
	return time.Time{}
}
