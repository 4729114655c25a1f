package backtest

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ArthurHtr/backtest-engine/broker"
	"github.com/ArthurHtr/backtest-engine/journal"
	"github.com/ArthurHtr/backtest-engine/marketdata"
)

// RunSpec selects the data a backtest replays.
type RunSpec struct {
	Symbols   []string
	Start     time.Time
	End       time.Time
	Timeframe string
}

// Runner wires a data provider, broker, strategy and journal into one
// backtest run. Journal and Logger are optional.
type Runner struct {
	Provider marketdata.Provider
	Broker   *broker.Broker
	Strategy Strategy
	Journal  journal.Journal
	Logger   *zap.Logger
}

// Run fetches candles, replays them through the engine, and journals the
// resulting trades and equity curve.
func (r *Runner) Run(spec RunSpec) ([]StepLog, error) {
	if r.Provider == nil {
		return nil, fmt.Errorf("backtest: Provider is required")
	}
	if r.Broker == nil {
		return nil, fmt.Errorf("backtest: Broker is required")
	}
	if r.Strategy == nil {
		return nil, fmt.Errorf("backtest: Strategy is required")
	}

	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	logger.Info("fetching candles",
		zap.Strings("symbols", spec.Symbols),
		zap.Time("start", spec.Start),
		zap.Time("end", spec.End),
		zap.String("timeframe", spec.Timeframe),
	)

	candlesBySymbol, err := marketdata.CandlesBySymbol(r.Provider, spec.Symbols, spec.Start, spec.End, spec.Timeframe)
	if err != nil {
		return nil, fmt.Errorf("backtest: fetch candles: %w", err)
	}

	var bars int
	for _, cs := range candlesBySymbol {
		bars += len(cs)
	}
	logger.Info("running engine", zap.String("strategy", r.Strategy.Name()), zap.Int("bars", bars))

	logs := NewEngine(r.Broker, r.Strategy).Run(candlesBySymbol)

	if r.Journal != nil {
		if err := r.record(logs); err != nil {
			return nil, fmt.Errorf("backtest: journal: %w", err)
		}
	}

	executed, rejectedCount, liquidated := countOutcomes(logs)
	logger.Info("run complete",
		zap.Int("steps", len(logs)),
		zap.Int("executed", executed),
		zap.Int("rejected", rejectedCount),
		zap.Int("liquidated", liquidated),
	)

	return logs, nil
}

// record maps engine step logs onto journal records: one trade row per
// execution detail, one equity row per step.
func (r *Runner) record(logs []StepLog) error {
	for _, step := range logs {
		for _, detail := range step.ExecutionDetails {
			rec := journal.TradeRecord{
				Time:   step.Timestamp,
				Status: string(detail.Status),
				Reason: detail.Reason,
			}
			if detail.Intent != nil {
				rec.OrderID = detail.Intent.OrderID
				rec.Symbol = detail.Intent.Symbol
				rec.Quantity = float64(detail.Intent.Side) * detail.Intent.Quantity
			}
			if detail.Trade != nil {
				rec.TradeID = detail.Trade.ID
				rec.Symbol = detail.Trade.Symbol
				rec.Quantity = detail.Trade.Quantity
				rec.Price = detail.Trade.Price
				rec.Fee = detail.Trade.Fee
			}
			if err := r.Journal.RecordTrade(rec); err != nil {
				return err
			}
		}

		if err := r.Journal.RecordEquity(journal.EquityRecord{
			Time:          step.Timestamp,
			Cash:          step.SnapshotAfter.Cash,
			Equity:        step.SnapshotAfter.Equity,
			OpenPositions: len(step.SnapshotAfter.Positions),
		}); err != nil {
			return err
		}
	}
	return nil
}

func countOutcomes(logs []StepLog) (executed, rejectedCount, liquidated int) {
	for _, step := range logs {
		for _, d := range step.ExecutionDetails {
			switch d.Status {
			case broker.StatusExecuted:
				executed++
			case broker.StatusRejected:
				rejectedCount++
			case broker.StatusLiquidated:
				liquidated++
			}
		}
	}
	return
}
