package marketdata

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedIsReproducibleWithSeed(t *testing.T) {
	cfg := DefaultSimulatedConfig()
	cfg.Seed = 42

	start := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	a, err := NewSimulated(cfg).Candles("AAPL", start, end, "1h")
	require.NoError(t, err)
	b, err := NewSimulated(cfg).Candles("AAPL", start, end, "1h")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestSimulatedCandlesAreWellFormed(t *testing.T) {
	cfg := DefaultSimulatedConfig()
	cfg.Seed = 7

	start := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)

	candles, err := NewSimulated(cfg).Candles("AAPL", start, end, "1h")
	require.NoError(t, err)
	require.Len(t, candles, 49) // range is inclusive of the end instant

	prev := start.Add(-time.Hour)
	for i, c := range candles {
		assert.Truef(t, c.Valid(), "candle %d not valid: %+v", i, c)
		assert.Equal(t, "AAPL", c.Symbol)
		assert.Equal(t, prev.Add(time.Hour), c.Time)
		assert.Greater(t, c.Volume, 0.0)
		prev = c.Time
	}

	// Each bar opens where the previous one closed.
	for i := 1; i < len(candles); i++ {
		assert.Equal(t, candles[i-1].Close, candles[i].Open)
	}
}

func TestSimulatedRejectsBadRange(t *testing.T) {
	p := NewSimulated(SimulatedConfig{Seed: 1, BasePrice: 100})
	ts := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)

	_, err := p.Candles("AAPL", ts, ts, "1h")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be before")

	_, err = p.Candles("AAPL", ts.Add(time.Hour), ts, "1h")
	require.Error(t, err)
}

func TestTimeframeStep(t *testing.T) {
	cases := map[string]time.Duration{
		"1m": time.Minute,
		"1h": time.Hour,
		"1d": 24 * time.Hour,
	}
	for tf, want := range cases {
		got, err := TimeframeStep(tf)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := TimeframeStep("5m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported timeframe")
}
