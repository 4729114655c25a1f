package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArthurHtr/backtest-engine/market"
	"github.com/ArthurHtr/backtest-engine/portfolio"
)

var t0 = time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

func newTestBroker(initialCash float64) *Broker {
	return New(Config{
		InitialCash:       initialCash,
		FeeRate:           0.002,
		MarginRequirement: 0.5,
		MaintenanceMargin: 0.25,
	})
}

func bar(symbol string, open, high, low, closePx float64) market.Candle {
	return market.Candle{
		Symbol: symbol,
		Time:   t0,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePx,
		Volume: 1000,
	}
}

func flatBar(symbol string, price float64) market.Candle {
	return bar(symbol, price, price, price, price)
}

func TestProcessBarsExecutesBuy(t *testing.T) {
	b := newTestBroker(10_000)
	candles := map[string]market.Candle{"AAPL": flatBar("AAPL", 100)}

	snap, details := b.ProcessBars(candles, []OrderIntent{
		MarketIntent("AAPL", Buy, 10),
	})

	require.Len(t, details, 1)
	assert.Equal(t, StatusExecuted, details[0].Status)
	require.NotNil(t, details[0].Trade)
	assert.Equal(t, 10.0, details[0].Trade.Quantity)
	assert.NotEmpty(t, details[0].Trade.ID)
	assert.InDelta(t, 2.0, details[0].Trade.Fee, 1e-9) // 1000 * 0.002

	pos, ok := snap.Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, portfolio.Long, pos.Side)
	assert.InDelta(t, 10_000-1002, snap.Cash, 1e-9)
}

func TestProcessBarsNoPrice(t *testing.T) {
	b := newTestBroker(10_000)
	candles := map[string]market.Candle{"AAPL": flatBar("AAPL", 100)}

	_, details := b.ProcessBars(candles, []OrderIntent{
		MarketIntent("TSLA", Buy, 10),
	})

	require.Len(t, details, 1)
	assert.Equal(t, StatusRejected, details[0].Status)
	assert.Equal(t, "No price available for symbol.", details[0].Reason)
}

func TestProcessBarsRoundsQuantity(t *testing.T) {
	b := New(Config{
		InitialCash:       10_000,
		FeeRate:           0,
		MarginRequirement: 0.5,
		MaintenanceMargin: 0.25,
		Symbols: map[string]market.Symbol{
			"AAPL": {Symbol: "AAPL", QuantityStep: 1, MinQuantity: 1},
		},
	})
	candles := map[string]market.Candle{"AAPL": flatBar("AAPL", 100)}

	_, details := b.ProcessBars(candles, []OrderIntent{
		MarketIntent("AAPL", Buy, 10.7), // floors to 10
		MarketIntent("AAPL", Buy, 0.4),  // floors to 0: too small
	})

	require.Len(t, details, 2)
	assert.Equal(t, StatusExecuted, details[0].Status)
	assert.Equal(t, 10.0, details[0].Trade.Quantity)
	assert.Equal(t, StatusRejected, details[1].Status)
	assert.Contains(t, details[1].Reason, "too small")
}

func TestProcessBarsInsufficientCash(t *testing.T) {
	b := newTestBroker(500)
	candles := map[string]market.Candle{"AAPL": flatBar("AAPL", 100)}

	_, details := b.ProcessBars(candles, []OrderIntent{
		MarketIntent("AAPL", Buy, 10),
	})

	require.Len(t, details, 1)
	assert.Equal(t, StatusRejected, details[0].Status)
	assert.Equal(t, "Insufficient cash.", details[0].Reason)
}

func TestShortOpenRejectedOnInitialMargin(t *testing.T) {
	// initial_cash=1000, margin_requirement=0.5, maintenance=0.25:
	// a fresh short of notional 3000 needs 1500 of equity, only ~1000 there.
	b := New(Config{
		InitialCash:       1000,
		FeeRate:           0,
		MarginRequirement: 0.5,
		MaintenanceMargin: 0.25,
	})
	candles := map[string]market.Candle{"AAPL": flatBar("AAPL", 100)}

	_, details := b.ProcessBars(candles, []OrderIntent{
		MarketIntent("AAPL", Sell, 30),
	})

	require.Len(t, details, 1)
	assert.Equal(t, StatusRejected, details[0].Status)
	assert.Equal(t, "Insufficient margin.", details[0].Reason)

	// Same intent against unchanged state: same reason.
	_, details = b.ProcessBars(candles, []OrderIntent{
		MarketIntent("AAPL", Sell, 30),
	})
	require.Len(t, details, 1)
	assert.Equal(t, "Insufficient margin.", details[0].Reason)
}

func TestExtendShortMarginsOnlyNewExposure(t *testing.T) {
	b := New(Config{
		InitialCash:       900,
		FeeRate:           0,
		MarginRequirement: 0.5,
		MaintenanceMargin: 0.25,
	})
	candles := map[string]market.Candle{"AAPL": flatBar("AAPL", 100)}

	_, details := b.ProcessBars(candles, []OrderIntent{
		MarketIntent("AAPL", Sell, 15),
	})
	require.Equal(t, StatusExecuted, details[0].Status)

	// Extending by 5: the held short already posted its margin, so only the
	// new 500 of notional needs initial margin (250 <= equity 900). Margining
	// the whole 2000 would wrongly reject here.
	snap, details := b.ProcessBars(candles, []OrderIntent{
		MarketIntent("AAPL", Sell, 5),
	})

	require.Len(t, details, 1)
	assert.Equal(t, StatusExecuted, details[0].Status)
	pos, ok := snap.Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, portfolio.Short, pos.Side)
	assert.Equal(t, 20.0, pos.Quantity)
	assert.InDelta(t, 900.0, snap.Equity, 1e-9)
}

func TestSellReducesLongWithoutMargin(t *testing.T) {
	b := newTestBroker(10_000)
	candles := map[string]market.Candle{"AAPL": flatBar("AAPL", 100)}

	_, details := b.ProcessBars(candles, []OrderIntent{
		MarketIntent("AAPL", Buy, 10),
	})
	require.Equal(t, StatusExecuted, details[0].Status)

	snap, details := b.ProcessBars(candles, []OrderIntent{
		MarketIntent("AAPL", Sell, 4),
	})

	require.Len(t, details, 1)
	assert.Equal(t, StatusExecuted, details[0].Status)
	pos, ok := snap.Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, 6.0, pos.Quantity)
	assert.Equal(t, portfolio.Long, pos.Side)
}

func TestSellBeyondLongReverses(t *testing.T) {
	b := newTestBroker(10_000)
	candles := map[string]market.Candle{"AAPL": flatBar("AAPL", 100)}

	b.ProcessBars(candles, []OrderIntent{MarketIntent("AAPL", Buy, 10)})

	up := map[string]market.Candle{"AAPL": flatBar("AAPL", 110)}
	snap, details := b.ProcessBars(up, []OrderIntent{
		MarketIntent("AAPL", Sell, 15),
	})

	require.Len(t, details, 1)
	require.Equal(t, StatusExecuted, details[0].Status)

	pos, ok := snap.Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, portfolio.Short, pos.Side)
	assert.Equal(t, 5.0, pos.Quantity)
	assert.Equal(t, 110.0, pos.EntryPrice)
	assert.InDelta(t, 100.0, pos.RealizedPnL, 1e-9) // (110-100)*10
}

func TestMarginCallLiquidatesAtHigh(t *testing.T) {
	b := New(Config{
		InitialCash:       1000,
		FeeRate:           0,
		MarginRequirement: 0.5,
		MaintenanceMargin: 0.25,
	})

	// Open a short 10 @ 100: equity 1000, required maintenance 250.
	open := map[string]market.Candle{"AAPL": flatBar("AAPL", 100)}
	_, details := b.ProcessBars(open, []OrderIntent{MarketIntent("AAPL", Sell, 10)})
	require.Equal(t, StatusExecuted, details[0].Status)

	// Price spikes: at high=180 equity is 2000-1800=200 < 450 required.
	// The sweep runs before any strategy intents and buys back at the high.
	spike := map[string]market.Candle{"AAPL": bar("AAPL", 120, 180, 115, 120)}
	snap, details := b.ProcessBars(spike, []OrderIntent{
		MarketIntent("AAPL", Buy, 1), // arrives after the liquidation
	})

	require.Len(t, details, 2)
	assert.Equal(t, StatusLiquidated, details[0].Status)
	assert.Nil(t, details[0].Intent)
	require.NotNil(t, details[0].Trade)
	assert.Equal(t, 10.0, details[0].Trade.Quantity) // forced BUY
	assert.Equal(t, 180.0, details[0].Trade.Price)
	assert.Contains(t, details[0].Reason, "maintenance margin breach")

	// The strategy's own buy executes afterwards, against post-liquidation
	// state: cash = 1000 + 1000 - 1800 = 200, enough for 1 @ 120.
	assert.Equal(t, StatusExecuted, details[1].Status)
	pos, ok := snap.Position("AAPL")
	require.True(t, ok)
	assert.Equal(t, portfolio.Long, pos.Side)
}

func TestMarginCallLiquidatesLargestNotionalFirst(t *testing.T) {
	b := New(Config{
		InitialCash:       2000,
		FeeRate:           0,
		MarginRequirement: 0.5,
		MaintenanceMargin: 0.25,
	})

	open := map[string]market.Candle{
		"AAPL": flatBar("AAPL", 100),
		"TSLA": flatBar("TSLA", 100),
	}
	_, details := b.ProcessBars(open, []OrderIntent{
		MarketIntent("AAPL", Sell, 10),
		MarketIntent("TSLA", Sell, 5),
	})
	require.Equal(t, StatusExecuted, details[0].Status)
	require.Equal(t, StatusExecuted, details[1].Status)

	// Both shorts breach at high=240. AAPL has the larger notional and
	// must be bought back first; with equity re-evaluated afterwards,
	// TSLA is still in breach and follows.
	spike := map[string]market.Candle{
		"AAPL": bar("AAPL", 230, 240, 220, 230),
		"TSLA": bar("TSLA", 230, 240, 220, 230),
	}
	_, details = b.ProcessBars(spike, nil)

	require.Len(t, details, 2)
	assert.Equal(t, StatusLiquidated, details[0].Status)
	assert.Equal(t, "AAPL", details[0].Trade.Symbol)
	assert.Equal(t, StatusLiquidated, details[1].Status)
	assert.Equal(t, "TSLA", details[1].Trade.Symbol)
}

func TestBatchOrderingMatters(t *testing.T) {
	b := New(Config{
		InitialCash:       1100,
		FeeRate:           0,
		MarginRequirement: 0.5,
		MaintenanceMargin: 0.25,
	})
	candles := map[string]market.Candle{
		"AAPL":  flatBar("AAPL", 100),
		"GOOGL": flatBar("GOOGL", 100),
	}

	b.ProcessBars(candles, []OrderIntent{MarketIntent("AAPL", Buy, 10)})

	// Cash is now 100. The sell of AAPL frees 1000 which the GOOGL buy in
	// the same batch depends on; swap the order and the buy is rejected.
	_, details := b.ProcessBars(candles, []OrderIntent{
		MarketIntent("AAPL", Sell, 10),
		MarketIntent("GOOGL", Buy, 8),
	})
	require.Len(t, details, 2)
	assert.Equal(t, StatusExecuted, details[0].Status)
	assert.Equal(t, StatusExecuted, details[1].Status)

	b2 := New(Config{InitialCash: 1100, MarginRequirement: 0.5, MaintenanceMargin: 0.25})
	b2.ProcessBars(candles, []OrderIntent{MarketIntent("AAPL", Buy, 10)})

	_, details = b2.ProcessBars(candles, []OrderIntent{
		MarketIntent("GOOGL", Buy, 8),
		MarketIntent("AAPL", Sell, 10),
	})
	require.Len(t, details, 2)
	assert.Equal(t, StatusRejected, details[0].Status)
	assert.Equal(t, "Insufficient cash.", details[0].Reason)
	assert.Equal(t, StatusExecuted, details[1].Status)
}

func TestUnsupportedSideRejected(t *testing.T) {
	b := newTestBroker(10_000)
	candles := map[string]market.Candle{"AAPL": flatBar("AAPL", 100)}

	_, details := b.ProcessBars(candles, []OrderIntent{
		{Symbol: "AAPL", Side: Side(7), Quantity: 1, OrderType: "MARKET"},
	})

	require.Len(t, details, 1)
	assert.Equal(t, StatusRejected, details[0].Status)
	assert.Contains(t, details[0].Reason, "Unsupported side")
}
