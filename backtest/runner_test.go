package backtest

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArthurHtr/backtest-engine/broker"
	"github.com/ArthurHtr/backtest-engine/journal"
	"github.com/ArthurHtr/backtest-engine/market"
)

// staticProvider serves pre-built series regardless of the requested range.
type staticProvider struct {
	series map[string][]market.Candle
	err    error
}

func (p *staticProvider) Candles(symbol string, start, end time.Time, timeframe string) ([]market.Candle, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.series[symbol], nil
}

// memJournal collects records in memory.
type memJournal struct {
	trades []journal.TradeRecord
	equity []journal.EquityRecord
}

func (j *memJournal) RecordTrade(r journal.TradeRecord) error   { j.trades = append(j.trades, r); return nil }
func (j *memJournal) RecordEquity(r journal.EquityRecord) error { j.equity = append(j.equity, r); return nil }
func (j *memJournal) Close() error                              { return nil }

func TestRunnerRequiresWiring(t *testing.T) {
	spec := RunSpec{Symbols: []string{"A"}, Timeframe: "1h"}

	_, err := (&Runner{}).Run(spec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Provider is required")

	_, err = (&Runner{Provider: &staticProvider{}}).Run(spec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Broker is required")

	_, err = (&Runner{Provider: &staticProvider{}, Broker: newTestBroker(1000)}).Run(spec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Strategy is required")
}

func TestRunnerPropagatesProviderError(t *testing.T) {
	r := &Runner{
		Provider: &staticProvider{err: errors.New("feed down")},
		Broker:   newTestBroker(1000),
		Strategy: &recordingStrategy{},
	}

	_, err := r.Run(RunSpec{Symbols: []string{"A"}, Timeframe: "1h"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "feed down")
}

func TestRunnerJournalsTradesAndEquity(t *testing.T) {
	t1 := time.Date(2025, 11, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	provider := &staticProvider{series: map[string][]market.Candle{
		"A": {candleAt("A", t1, 100), candleAt("A", t2, 110)},
	}}
	strat := &recordingStrategy{
		intents: map[time.Time][]broker.OrderIntent{
			t1: {broker.MarketIntent("A", broker.Buy, 10)},
			t2: {broker.MarketIntent("A", broker.Sell, 10)},
		},
	}
	jrnl := &memJournal{}

	r := &Runner{
		Provider: provider,
		Broker:   newTestBroker(10_000),
		Strategy: strat,
		Journal:  jrnl,
	}

	logs, err := r.Run(RunSpec{Symbols: []string{"A"}, Start: t1, End: t2.Add(time.Hour), Timeframe: "1h"})
	require.NoError(t, err)
	require.Len(t, logs, 2)

	require.Len(t, jrnl.trades, 2)
	assert.Equal(t, "executed", jrnl.trades[0].Status)
	assert.Equal(t, 10.0, jrnl.trades[0].Quantity)
	assert.NotEmpty(t, jrnl.trades[0].TradeID)
	assert.Equal(t, -10.0, jrnl.trades[1].Quantity)

	require.Len(t, jrnl.equity, 2)
	assert.Equal(t, t1, jrnl.equity[0].Time)
	assert.Equal(t, 1, jrnl.equity[0].OpenPositions)
	assert.Equal(t, 0, jrnl.equity[1].OpenPositions)
	// Round trip at +10/share on 10 shares, zero fees.
	assert.InDelta(t, 10_100, jrnl.equity[1].Equity, 1e-9)
}
