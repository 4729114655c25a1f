package marketdata

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/ArthurHtr/backtest-engine/market"
)

// SimulatedConfig parameterizes the synthetic price process.
type SimulatedConfig struct {
	Seed            int64 // 0 seeds from the wall clock (non-reproducible)
	BasePrice       float64
	Drift           float64 // annualized-ish drift per day fraction
	Volatility      float64
	BaseDailyVolume int
}

// DefaultSimulatedConfig mirrors the parameters used for demo runs.
func DefaultSimulatedConfig() SimulatedConfig {
	return SimulatedConfig{
		BasePrice:       100.0,
		Drift:           0.1,
		Volatility:      0.02,
		BaseDailyVolume: 1_000_000,
	}
}

// Simulated generates candles from a drift-plus-noise random walk. Prices
// start at BasePrice for every symbol; volumes follow a simple log-normal
// scaled to the timeframe. With a fixed Seed the output is reproducible.
type Simulated struct {
	cfg SimulatedConfig
	rng *rand.Rand
}

func NewSimulated(cfg SimulatedConfig) *Simulated {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulated{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// Candles generates the series for one symbol. start must precede end and
// timeframe must be one of 1m, 1h, 1d; anything else is a construction-time
// error, not a per-bar one.
func (s *Simulated) Candles(symbol string, start, end time.Time, timeframe string) ([]market.Candle, error) {
	if !start.Before(end) {
		return nil, fmt.Errorf("marketdata: start %s must be before end %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	step, err := TimeframeStep(timeframe)
	if err != nil {
		return nil, err
	}

	volPerStep := s.volumeForStep(timeframe)
	dayFrac := step.Seconds() / 86_400

	price := s.cfg.BasePrice
	var candles []market.Candle

	for current := start; !current.After(end); current = current.Add(step) {
		epsilon := s.rng.NormFloat64()
		change := price * (s.cfg.Drift*dayFrac + s.cfg.Volatility*math.Sqrt(dayFrac)*epsilon)
		next := math.Max(0.01, price+change)

		high := math.Max(price, next) * (1 + s.uniform(0.0005, 0.002))
		low := math.Min(price, next) * (1 - s.uniform(0.0005, 0.002))
		volume := math.Max(1, math.Exp(s.rng.NormFloat64()*0.4)*float64(volPerStep))

		candles = append(candles, market.Candle{
			Symbol: symbol,
			Time:   current.UTC(),
			Open:   price,
			High:   high,
			Low:    low,
			Close:  next,
			Volume: math.Floor(volume),
		})

		price = next
	}

	return candles, nil
}

func (s *Simulated) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func (s *Simulated) volumeForStep(timeframe string) int {
	switch timeframe {
	case "1m":
		return max(1, s.cfg.BaseDailyVolume/(24*60))
	case "1h":
		return max(1, s.cfg.BaseDailyVolume/24)
	default:
		return s.cfg.BaseDailyVolume
	}
}

// TimeframeStep maps a timeframe label to its bar duration.
func TimeframeStep(timeframe string) (time.Duration, error) {
	switch timeframe {
	case "1m":
		return time.Minute, nil
	case "1h":
		return time.Hour, nil
	case "1d":
		return 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("marketdata: unsupported timeframe %q, use one of: 1m, 1h, 1d", timeframe)
}
