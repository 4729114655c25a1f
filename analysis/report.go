package analysis

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/ArthurHtr/backtest-engine/backtest"
	"github.com/ArthurHtr/backtest-engine/portfolio"
)

// WriteReport renders the step-by-step backtest analysis as readable text:
// per step the bars, portfolio before/after, submitted intents and what
// happened to each of them.
func WriteReport(w io.Writer, logs []backtest.StepLog) error {
	bw := &errWriter{w: w}

	bw.printf("Backtest Analysis\n")
	bw.printf("=================\n\n")

	for i, step := range logs {
		bw.printf("Step %d - Timestamp: %s\n", i+1, step.Timestamp.Format(time.RFC3339))
		bw.printf("%s\n", strings.Repeat("-", 80))

		bw.printf("Candles:\n")
		for _, sym := range sortedKeys(step.Candles) {
			c := step.Candles[sym]
			bw.printf("  %s: O=%.2f, H=%.2f, L=%.2f, C=%.2f, V=%.0f\n",
				sym, c.Open, c.High, c.Low, c.Close, c.Volume)
		}
		bw.printf("\n")

		bw.printf("Portfolio Before:\n")
		writeSnapshot(bw, step.SnapshotBefore)
		bw.printf("\n")

		bw.printf("Order Intents:\n")
		if len(step.OrderIntents) == 0 {
			bw.printf("  (none)\n")
		}
		for _, intent := range step.OrderIntents {
			bw.printf("  - OrderID=%s, Symbol=%s, Side=%s, Qty=%v, Type=%s\n",
				orEmpty(intent.OrderID), intent.Symbol, intent.Side, intent.Quantity, intent.OrderType)
		}
		bw.printf("\n")

		bw.printf("Execution Details:\n")
		if len(step.ExecutionDetails) == 0 {
			bw.printf("  (none)\n")
		}
		for _, detail := range step.ExecutionDetails {
			if detail.Intent != nil {
				bw.printf("  - OrderID=%s, Status=%s", orEmpty(detail.Intent.OrderID), detail.Status)
			} else {
				bw.printf("  - Event: %s", detail.Status)
			}
			if detail.Reason != "" {
				bw.printf(", Reason=%s", detail.Reason)
			}
			bw.printf("\n")
			if detail.Trade != nil {
				t := detail.Trade
				bw.printf("    TradeID=%s, Qty=%v, Price=%.4f, Fee=%.4f, Time=%s\n",
					t.ID, t.Quantity, t.Price, t.Fee, t.Time.Format(time.RFC3339))
			}
		}
		bw.printf("\n")

		bw.printf("Portfolio After:\n")
		writeSnapshot(bw, step.SnapshotAfter)
		bw.printf("\n\n")
	}

	return bw.err
}

// WriteSummary renders the aggregate statistics block.
func WriteSummary(w io.Writer, s Summary) error {
	bw := &errWriter{w: w}

	bw.printf("Summary\n")
	bw.printf("=======\n")
	bw.printf("Steps:           %d\n", s.NumSteps)
	if !s.FirstTimestamp.IsZero() {
		bw.printf("Period:          %s .. %s\n",
			s.FirstTimestamp.Format(time.RFC3339), s.LastTimestamp.Format(time.RFC3339))
	}
	bw.printf("Initial equity:  %.2f\n", s.InitialEquity)
	bw.printf("Final equity:    %.2f\n", s.FinalEquity)
	bw.printf("PnL:             %.2f (%.2f%%)\n", s.PnLAbs, s.PnLPct)
	bw.printf("Total fees:      %.2f\n", s.TotalFees)
	bw.printf("Max equity:      %.2f\n", s.MaxEquity)
	bw.printf("Min equity:      %.2f\n", s.MinEquity)
	bw.printf("Max drawdown:    %.2f (%.2f%%)\n", s.MaxDrawdownAbs, s.MaxDrawdownPct)

	if len(s.OrdersBySymbolAndSide) > 0 {
		bw.printf("Orders by symbol:\n")
		symbols := make([]string, 0, len(s.OrdersBySymbolAndSide))
		for sym := range s.OrdersBySymbolAndSide {
			symbols = append(symbols, sym)
		}
		sort.Strings(symbols)
		for _, sym := range symbols {
			counts := s.OrdersBySymbolAndSide[sym]
			bw.printf("  %s: total=%d buy=%d sell=%d fees=%.2f\n",
				sym, counts["TOTAL"], counts["BUY"], counts["SELL"], s.FeesBySymbol[sym])
		}
	}

	return bw.err
}

func writeSnapshot(bw *errWriter, snap portfolio.Snapshot) {
	bw.printf("  Cash:   %.2f\n", snap.Cash)
	bw.printf("  Equity: %.2f\n", snap.Equity)
	if len(snap.Positions) == 0 {
		bw.printf("  Positions: (none)\n")
		return
	}
	bw.printf("  Positions:\n")
	for _, pos := range snap.Positions {
		bw.printf("    %s: Side=%s, Qty=%v, Entry=%.2f, Realized PnL=%.2f\n",
			pos.Symbol, pos.Side, pos.Quantity, pos.EntryPrice, pos.RealizedPnL)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func orEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// errWriter sticks on the first write error so the formatting code stays
// free of error plumbing.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
