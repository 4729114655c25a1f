package backtest

import (
	"sort"
	"time"

	"github.com/ArthurHtr/backtest-engine/broker"
	"github.com/ArthurHtr/backtest-engine/market"
	"github.com/ArthurHtr/backtest-engine/portfolio"
)

// Strategy is called once per timestamp with the bars present at that step.
// It returns the intents to submit, in the order they should execute: an
// earlier sell in the batch can free the cash a later buy depends on.
type Strategy interface {
	Name() string
	OnBar(ctx *Context) []broker.OrderIntent
}

// Context is what a strategy sees at one step: the current bar per symbol,
// the pre-trade portfolio snapshot, and each symbol's bars observed so far
// (current bar included). Symbols without a bar at this timestamp are simply
// absent from Candles; strategies must tolerate partial coverage.
type Context struct {
	Timestamp time.Time
	Candles   map[string]market.Candle
	Portfolio portfolio.Snapshot
	History   map[string][]market.Candle
}

// Closes returns the last `limit` close prices for symbol, oldest first,
// current bar included. limit <= 0 returns the full series.
func (c *Context) Closes(symbol string, limit int) []float64 {
	series := c.History[symbol]
	if limit > 0 && len(series) > limit {
		series = series[len(series)-limit:]
	}
	closes := make([]float64, len(series))
	for i, bar := range series {
		closes[i] = bar.Close
	}
	return closes
}

// StepLog is the engine's record of one timestamp. Its shape is the stable
// artifact handed to journaling and reporting.
type StepLog struct {
	Timestamp        time.Time
	Candles          map[string]market.Candle
	SnapshotBefore   portfolio.Snapshot
	SnapshotAfter    portfolio.Snapshot
	OrderIntents     []broker.OrderIntent
	ExecutionDetails []broker.ExecutionDetail
}

// Engine drives the time-aligned multi-symbol loop. The run is one
// synchronous pass over the sorted union of all symbols' timestamps; the
// portfolio is touched only through the broker, sequentially. Anything that
// parallelizes symbols must keep portfolio operations serialized.
type Engine struct {
	broker   *broker.Broker
	strategy Strategy
}

func NewEngine(b *broker.Broker, s Strategy) *Engine {
	return &Engine{broker: b, strategy: s}
}

// Run replays the candles in timestamp order and returns one StepLog per
// visited timestamp. Rejected intents are terminal for their bar and only
// recorded; the run always completes.
func (e *Engine) Run(candlesBySymbol map[string][]market.Candle) []StepLog {
	byTimestamp := indexByTimestamp(candlesBySymbol)

	timestamps := make([]time.Time, 0, len(byTimestamp))
	for ts := range byTimestamp {
		timestamps = append(timestamps, ts)
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i].Before(timestamps[j]) })

	history := make(map[string][]market.Candle, len(candlesBySymbol))
	logs := make([]StepLog, 0, len(timestamps))

	for _, ts := range timestamps {
		current := byTimestamp[ts]
		for sym, c := range current {
			history[sym] = append(history[sym], c)
		}

		// Contexts may outlive their step, so each gets its own map. The
		// slice headers capture today's prefix; later appends never show
		// through them.
		view := make(map[string][]market.Candle, len(history))
		for sym, series := range history {
			view[sym] = series
		}

		before := e.broker.Snapshot(current)

		ctx := &Context{
			Timestamp: ts,
			Candles:   current,
			Portfolio: before,
			History:   view,
		}
		intents := e.strategy.OnBar(ctx)

		after, details := e.broker.ProcessBars(current, intents)

		logs = append(logs, StepLog{
			Timestamp:        ts,
			Candles:          current,
			SnapshotBefore:   before,
			SnapshotAfter:    after,
			OrderIntents:     intents,
			ExecutionDetails: details,
		})
	}

	return logs
}

// indexByTimestamp pivots per-symbol series into per-timestamp bar maps.
// Map keys are normalized to UTC so equal instants collide as intended.
func indexByTimestamp(candlesBySymbol map[string][]market.Candle) map[time.Time]map[string]market.Candle {
	out := make(map[time.Time]map[string]market.Candle)
	for sym, candles := range candlesBySymbol {
		for _, c := range candles {
			ts := c.Time.UTC().Round(0)
			step, ok := out[ts]
			if !ok {
				step = make(map[string]market.Candle)
				out[ts] = step
			}
			step[sym] = c
		}
	}
	return out
}
