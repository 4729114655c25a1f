package journal

import "time"

// TradeRecord is one settled or attempted trade as persisted by a journal.
// Liquidations carry status "liquidated" and no order id; rejections carry
// the rejection reason and no trade economics beyond the intent.
type TradeRecord struct {
	TradeID  string
	OrderID  string
	Symbol   string
	Quantity float64 // signed: BUY > 0, SELL < 0
	Price    float64
	Fee      float64
	Time     time.Time
	Status   string
	Reason   string
}

// EquityRecord is the portfolio state after one engine step.
type EquityRecord struct {
	Time          time.Time
	Cash          float64
	Equity        float64
	OpenPositions int
}

// Journal persists the backtest's trade and equity history.
type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquityRecord) error
	Close() error
}

// Nop discards everything. Used when journaling is disabled.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error   { return nil }
func (Nop) RecordEquity(EquityRecord) error { return nil }
func (Nop) Close() error                    { return nil }
