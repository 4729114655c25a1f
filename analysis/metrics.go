package analysis

import (
	"time"

	"github.com/ArthurHtr/backtest-engine/backtest"
)

// Summary aggregates a backtest's step logs into headline statistics.
type Summary struct {
	NumSteps int

	InitialCash   float64
	InitialEquity float64
	FinalCash     float64
	FinalEquity   float64
	PnLAbs        float64
	PnLPct        float64

	TotalFees    float64
	FeesBySymbol map[string]float64

	// OrdersBySymbolAndSide counts submitted intents per symbol, keyed by
	// side name plus a "TOTAL" entry.
	OrdersBySymbolAndSide map[string]map[string]int

	MaxEquity      float64
	MinEquity      float64
	MaxDrawdownAbs float64 // most negative equity excursion from a running peak
	MaxDrawdownPct float64

	FirstTimestamp time.Time
	LastTimestamp  time.Time
}

// Compute walks the logs once, extracting fees, order counts, the equity
// series, and drawdowns. An empty run yields a zero summary.
func Compute(logs []backtest.StepLog) Summary {
	s := Summary{
		FeesBySymbol:          make(map[string]float64),
		OrdersBySymbolAndSide: make(map[string]map[string]int),
	}
	if len(logs) == 0 {
		return s
	}

	s.NumSteps = len(logs)
	s.FirstTimestamp = logs[0].Timestamp
	s.LastTimestamp = logs[len(logs)-1].Timestamp

	first := logs[0].SnapshotBefore
	last := logs[len(logs)-1].SnapshotAfter
	s.InitialCash = first.Cash
	s.InitialEquity = first.Equity
	s.FinalCash = last.Cash
	s.FinalEquity = last.Equity
	s.PnLAbs = s.FinalEquity - s.InitialEquity
	if s.InitialEquity != 0 {
		s.PnLPct = s.PnLAbs / s.InitialEquity * 100
	}

	peak := first.Equity
	s.MaxEquity = first.Equity
	s.MinEquity = first.Equity

	for _, step := range logs {
		for _, intent := range step.OrderIntents {
			bySide, ok := s.OrdersBySymbolAndSide[intent.Symbol]
			if !ok {
				bySide = make(map[string]int)
				s.OrdersBySymbolAndSide[intent.Symbol] = bySide
			}
			bySide[intent.Side.String()]++
			bySide["TOTAL"]++
		}

		for _, detail := range step.ExecutionDetails {
			if detail.Trade == nil {
				continue
			}
			s.TotalFees += detail.Trade.Fee
			s.FeesBySymbol[detail.Trade.Symbol] += detail.Trade.Fee
		}

		eq := step.SnapshotAfter.Equity
		if eq > s.MaxEquity {
			s.MaxEquity = eq
		}
		if eq < s.MinEquity {
			s.MinEquity = eq
		}
		if eq > peak {
			peak = eq
		}
		if dd := eq - peak; dd < s.MaxDrawdownAbs {
			s.MaxDrawdownAbs = dd
			if peak != 0 {
				s.MaxDrawdownPct = dd / peak * 100
			}
		}
	}

	return s
}
