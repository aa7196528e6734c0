package backtest

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotConsensusBot/internal/domain"
	"spotConsensusBot/internal/ports"
	"spotConsensusBot/internal/risk"
	"spotConsensusBot/internal/strategy"
	"spotConsensusBot/internal/strategy/consensus"
)

type noopLogger struct{}

func (noopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{})            {}
func (noopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})             {}
func (noopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})             {}
func (noopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {}

func testRunner(t *testing.T, cfg Config, riskCfg risk.Config) *Runner {
	t.Helper()
	lg := noopLogger{}

	engine, err := strategy.New(strategy.Config{
		RSIPeriod: 3, RSIOverbought: 70, RSIOversold: 30,
		MACDFastPeriod: 3, MACDSlowPeriod: 6, MACDSignalPeriod: 3,
		SupertrendPeriod: 3, SupertrendMultiplier: 0.5,
		VolumeTrendPeriod: 3, VolumePower: 1,
		TrendStrengthPeriod: 3,
	}, lg)
	require.NoError(t, err)

	combiner, err := consensus.New(consensus.Config{VotesRequired: 2}, lg)
	require.NoError(t, err)

	riskMgr, err := risk.NewManager(riskCfg)
	require.NoError(t, err)

	r, err := NewRunner(cfg, engine, combiner, riskMgr, lg)
	require.NoError(t, err)
	return r
}

func series(closes []float64) domain.PriceSeries {
	now := time.Now()
	out := make(domain.PriceSeries, len(closes))
	for i, c := range closes {
		t := now.Add(time.Duration(i-len(closes)) * 15 * time.Minute)
		out[i] = &domain.Candle{
			OpenTime: t, CloseTime: t.Add(15 * time.Minute),
			Open: c, High: c + 1, Low: c - 1, Close: c, Volume: 10,
		}
	}
	return out
}

func rise(n int, start, step float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestNewRunner(t *testing.T) {
	lg := noopLogger{}
	engine, err := strategy.New(strategy.Config{
		RSIPeriod: 3, RSIOverbought: 70, RSIOversold: 30,
		MACDFastPeriod: 3, MACDSlowPeriod: 6, MACDSignalPeriod: 3,
		SupertrendPeriod: 3, SupertrendMultiplier: 1,
		VolumeTrendPeriod: 3, VolumePower: 1,
	}, lg)
	require.NoError(t, err)
	combiner, err := consensus.New(consensus.Config{VotesRequired: 2}, lg)
	require.NoError(t, err)
	riskMgr, err := risk.NewManager(risk.Config{})
	require.NoError(t, err)

	_, err = NewRunner(Config{InitialQuote: 0, TradePercent: 50}, engine, combiner, riskMgr, lg)
	assert.Error(t, err)

	_, err = NewRunner(Config{InitialQuote: 1000, TradePercent: 120}, engine, combiner, riskMgr, lg)
	assert.Error(t, err)

	_, err = NewRunner(Config{InitialQuote: 1000, TradePercent: 50}, nil, combiner, riskMgr, lg)
	assert.Error(t, err)
}

func TestRunner_Run(t *testing.T) {
	cfg := Config{InitialQuote: 1000, TradePercent: 50, MinNotional: 15}

	t.Run("uptrend buys and holds", func(t *testing.T) {
		r := testRunner(t, cfg, risk.Config{})
		result, err := r.Run(context.Background(), series(rise(40, 100, 5)))
		require.NoError(t, err)

		assert.Equal(t, 40, result.Candles)
		require.NotEmpty(t, result.Trades)
		assert.Equal(t, domain.ActionBuy, result.Trades[0].Action)
		assert.Greater(t, result.FinalBase, 0.0, "still holding at the end of the rise")
		assert.Greater(t, result.FinalEquity, cfg.InitialQuote, "equity grows with the held asset")
	})

	t.Run("profit target produces round trips", func(t *testing.T) {
		r := testRunner(t, cfg, risk.Config{ProfitTargetPct: 0.01})
		result, err := r.Run(context.Background(), series(rise(40, 100, 5)))
		require.NoError(t, err)

		assert.Greater(t, result.Stats.RoundTrips, 0)
		assert.Equal(t, 1.0, result.Stats.WinRate, "every 1%-target exit on a rise is a win")
		assert.Greater(t, result.Stats.RealizedPnL, 0.0)
	})

	t.Run("flat market never trades", func(t *testing.T) {
		r := testRunner(t, cfg, risk.Config{})
		closes := make([]float64, 40)
		for i := range closes {
			closes[i] = 100
		}
		result, err := r.Run(context.Background(), series(closes))
		require.NoError(t, err)

		assert.Empty(t, result.Trades)
		assert.Equal(t, cfg.InitialQuote, result.FinalQuote)
		assert.Equal(t, 0.0, result.FinalBase)
	})

	t.Run("balances stay consistent", func(t *testing.T) {
		r := testRunner(t, cfg, risk.Config{ProfitTargetPct: 0.02, StopLossPct: 0.05})
		// rally, crash, rally
		closes := append(rise(20, 100, 5), rise(20, 195, -8)...)
		closes = append(closes, rise(20, 43, 6)...)
		result, err := r.Run(context.Background(), series(closes))
		require.NoError(t, err)

		assert.GreaterOrEqual(t, result.FinalQuote, 0.0)
		assert.GreaterOrEqual(t, result.FinalBase, 0.0)

		// equity must equal quote plus base at the last close
		last := closes[len(closes)-1]
		assert.InDelta(t, result.FinalQuote+result.FinalBase*last, result.FinalEquity, 1e-9)
	})

	t.Run("series shorter than the warmup is rejected", func(t *testing.T) {
		r := testRunner(t, cfg, risk.Config{})
		_, err := r.Run(context.Background(), series(rise(5, 100, 1)))
		assert.ErrorIs(t, err, ports.ErrInsufficientData)
	})

	t.Run("cancellation aborts the replay", func(t *testing.T) {
		r := testRunner(t, cfg, risk.Config{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := r.Run(ctx, series(rise(40, 100, 5)))
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRunner_Deterministic(t *testing.T) {
	cfg := Config{InitialQuote: 1000, TradePercent: 50, MinNotional: 15}
	data := series(rise(40, 100, 5))

	r1 := testRunner(t, cfg, risk.Config{ProfitTargetPct: 0.01})
	r2 := testRunner(t, cfg, risk.Config{ProfitTargetPct: 0.01})

	first, err := r1.Run(context.Background(), data)
	require.NoError(t, err)
	second, err := r2.Run(context.Background(), data)
	require.NoError(t, err)

	assert.Equal(t, first.Stats, second.Stats)
	assert.True(t, math.Abs(first.FinalEquity-second.FinalEquity) < 1e-9)
}
