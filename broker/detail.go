package broker

import "github.com/ArthurHtr/backtest-engine/portfolio"

// Status of one processed intent or broker-initiated event.
type Status string

const (
	StatusExecuted   Status = "executed"
	StatusRejected   Status = "rejected"
	StatusLiquidated Status = "liquidated"
)

// ExecutionDetail records what happened to one intent during a bar. Forced
// liquidations have no originating intent (Intent == nil). Rejections carry
// a human-readable reason; executed and liquidated entries carry the trade.
type ExecutionDetail struct {
	Intent *OrderIntent
	Status Status
	Reason string
	Trade  *portfolio.Trade
}

func executed(intent OrderIntent, trade *portfolio.Trade) ExecutionDetail {
	return ExecutionDetail{Intent: &intent, Status: StatusExecuted, Trade: trade}
}

func rejected(intent OrderIntent, reason string) ExecutionDetail {
	return ExecutionDetail{Intent: &intent, Status: StatusRejected, Reason: reason}
}
