package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spotConsensusBot/config"
	"spotConsensusBot/internal/domain"
	"spotConsensusBot/internal/execution"
	"spotConsensusBot/internal/journal"
	"spotConsensusBot/internal/ports"
	"spotConsensusBot/internal/risk"
	"spotConsensusBot/internal/strategy"
	"spotConsensusBot/internal/strategy/consensus"
)

// Mock implementations

type mockLogger struct{}

func (mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{})            {}
func (mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})             {}
func (mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})             {}
func (mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {}

// mockExchange scripts prices, candles and balances, records orders, and
// fills every order instantly at the scripted price.
type mockExchange struct {
	mu       sync.Mutex
	balances ports.Balances
	price    float64
	priceErr error
	series   domain.PriceSeries
	orders   []ports.OrderRequest
}

func (m *mockExchange) GetBalances(ctx context.Context) (ports.Balances, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances, nil
}

func (m *mockExchange) GetCandles(ctx context.Context, symbol, interval string, limit int) (domain.PriceSeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.priceErr != nil {
		return nil, m.priceErr
	}
	return m.series, nil
}

func (m *mockExchange) GetCurrentPrice(ctx context.Context, symbol string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.priceErr != nil {
		return 0, m.priceErr
	}
	return m.price, nil
}

func (m *mockExchange) PlaceOrder(ctx context.Context, req ports.OrderRequest) (*ports.OrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, req)
	return &ports.OrderResult{Filled: true, FilledQty: req.Quantity, FilledPrice: m.price}, nil
}

func (m *mockExchange) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *mockExchange) setPriceErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.priceErr = err
}

// candles with closes stepping by delta per candle
func steppedSeries(n int, start, delta float64) domain.PriceSeries {
	now := time.Now()
	series := make(domain.PriceSeries, n)
	for i := 0; i < n; i++ {
		c := start + float64(i)*delta
		t := now.Add(time.Duration(i-n) * 15 * time.Minute)
		series[i] = &domain.Candle{
			OpenTime: t, CloseTime: t.Add(15 * time.Minute),
			Symbol: "SOLUSDT", Interval: "15m",
			Open: c - delta/2, High: c + 1, Low: c - 1, Close: c, Volume: 10,
		}
	}
	return series
}

func testAppConfig() *config.Config {
	return &config.Config{
		APIKey: "test-key", SecretKey: "test-secret", IsTestnet: true,
		Symbol: "SOLUSDT", BaseAsset: "SOL", QuoteAsset: "USDT",
		PollInterval: 50 * time.Millisecond, RetryDelay: 10 * time.Millisecond,
		IndicatorInterval: "15m", CandleLimit: 100, MaxNoDataTicks: 3,
		BuySizing:  execution.SizingPolicy{Mode: execution.PercentOfQuote, Percent: 50},
		SellSizing: execution.SizingPolicy{Mode: execution.EntireBalance},
		MinNotional: 15, MinLot: 0.1, LotDecimals: 4, PriceDecimals: 2, SlippagePct: 0.005,
		VotesRequired: 2, MinTrendStrength: 0, HistoryLimit: 50,
	}
}

func newTestService(t *testing.T, cfg *config.Config, mock *mockExchange, riskCfg risk.Config) *TradingService {
	t.Helper()
	lg := mockLogger{}

	engine, err := strategy.New(strategy.Config{
		RSIPeriod: 3, RSIOverbought: 70, RSIOversold: 30,
		MACDFastPeriod: 3, MACDSlowPeriod: 6, MACDSignalPeriod: 3,
		SupertrendPeriod: 3, SupertrendMultiplier: 0.5,
		VolumeTrendPeriod: 3, VolumePower: 1,
		TrendStrengthPeriod: 3,
	}, lg)
	require.NoError(t, err)

	combiner, err := consensus.New(consensus.Config{VotesRequired: cfg.VotesRequired}, lg)
	require.NoError(t, err)

	riskMgr, err := risk.NewManager(riskCfg)
	require.NoError(t, err)

	executor, err := execution.New(execution.Config{
		Symbol: cfg.Symbol, MinNotional: cfg.MinNotional, MinLot: cfg.MinLot,
		LotDecimals: cfg.LotDecimals, PriceDecimals: cfg.PriceDecimals, SlippagePct: cfg.SlippagePct,
	}, mock, lg)
	require.NoError(t, err)

	svc, err := New(cfg, mock, engine, combiner, riskMgr, executor, journal.New(cfg.HistoryLimit), lg)
	require.NoError(t, err)
	return svc
}

func TestTradingService_BuyConsensusOpensPosition(t *testing.T) {
	// a strong monotonic rise makes the trend band and the volume trend
	// vote buy together
	series := steppedSeries(30, 100, 5)
	last := series.Last().Close
	mock := &mockExchange{balances: ports.Balances{QuoteQty: 1000}, price: last, series: series}
	svc := newTestService(t, testAppConfig(), mock, risk.Config{})

	err := svc.tick(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, mock.orderCount())
	assert.Equal(t, domain.Buy, mock.orders[0].Side)

	status := svc.GetStatus()
	assert.Equal(t, domain.SideLong, status.Position.Side)
	assert.Equal(t, last, status.Position.EntryPrice)
	require.NotNil(t, status.LastSignal)
	assert.Equal(t, domain.ActionBuy, status.LastSignal.Action)
	assert.GreaterOrEqual(t, status.LastSignal.BuyVotes, 2)
	assert.Equal(t, 1, status.Stats.TotalTrades)

	// a second BUY tick while long must not pyramid
	err = svc.tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, mock.orderCount())
}

func TestTradingService_SellConsensusIgnoredWhenFlat(t *testing.T) {
	series := steppedSeries(30, 400, -10)
	mock := &mockExchange{balances: ports.Balances{QuoteQty: 1000}, price: series.Last().Close, series: series}
	svc := newTestService(t, testAppConfig(), mock, risk.Config{})

	err := svc.tick(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, mock.orderCount(), "nothing to sell when flat")
	status := svc.GetStatus()
	assert.Equal(t, domain.SideNone, status.Position.Side)
	require.NotNil(t, status.LastSignal)
	assert.Equal(t, domain.ActionSell, status.LastSignal.Action)
}

func TestTradingService_SellConsensusClosesPosition(t *testing.T) {
	series := steppedSeries(30, 400, -10)
	last := series.Last().Close
	mock := &mockExchange{balances: ports.Balances{BaseQty: 2}, price: last, series: series}
	svc := newTestService(t, testAppConfig(), mock, risk.Config{})
	svc.position.MarkLong(last+50, 2, time.Now().Add(-time.Minute))

	err := svc.tick(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, mock.orderCount())
	assert.Equal(t, domain.Sell, mock.orders[0].Side)

	status := svc.GetStatus()
	assert.Equal(t, domain.SideShort, status.Position.Side, "consensus sell leaves the flat-after-sell label")
	require.Len(t, status.Trades, 1)
	assert.Equal(t, domain.CloseReasonSignal, status.Trades[0].Reason)
}

func TestTradingService_ExitRulePreemptsEntrySignal(t *testing.T) {
	// rising data would vote BUY, but the open position hits its profit
	// target first; an exit and an entry never share a tick
	series := steppedSeries(30, 100, 5)
	last := series.Last().Close
	mock := &mockExchange{balances: ports.Balances{BaseQty: 1}, price: last, series: series}
	svc := newTestService(t, testAppConfig(), mock, risk.Config{ProfitTargetPct: 0.01})
	svc.position.MarkLong(last/2, 1, time.Now().Add(-time.Minute))

	err := svc.tick(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, mock.orderCount())
	assert.Equal(t, domain.Sell, mock.orders[0].Side)

	status := svc.GetStatus()
	assert.Equal(t, domain.SideNone, status.Position.Side, "rule exits reset to flat")
	require.Len(t, status.Trades, 1)
	assert.Equal(t, domain.CloseReasonProfitTarget, status.Trades[0].Reason)
}

func TestTradingService_TimeLimitExit(t *testing.T) {
	series := steppedSeries(30, 100, 0.01)
	last := series.Last().Close
	mock := &mockExchange{balances: ports.Balances{BaseQty: 1}, price: last, series: series}
	svc := newTestService(t, testAppConfig(), mock, risk.Config{MaxHoldDuration: 2 * time.Hour})
	svc.position.MarkLong(last, 1, time.Now().Add(-3*time.Hour))

	err := svc.tick(context.Background())
	require.NoError(t, err)

	status := svc.GetStatus()
	assert.Equal(t, domain.SideNone, status.Position.Side)
	require.Len(t, status.Trades, 1)
	assert.Equal(t, domain.CloseReasonTimeLimit, status.Trades[0].Reason)
}

func TestTradingService_EmergencyExitAfterDataOutage(t *testing.T) {
	mock := &mockExchange{balances: ports.Balances{BaseQty: 1.5}}
	mock.setPriceErr(errors.New("exchange down"))
	svc := newTestService(t, testAppConfig(), mock, risk.Config{})
	svc.position.MarkLong(100, 1.5, time.Now().Add(-time.Minute))

	// two outage ticks stay within budget
	for i := 0; i < 2; i++ {
		err := svc.tick(context.Background())
		require.Error(t, err)
		assert.Equal(t, 0, mock.orderCount())
	}

	// the third exhausts the budget and force-closes at market
	err := svc.tick(context.Background())
	require.Error(t, err)
	require.Equal(t, 1, mock.orderCount())
	order := mock.orders[0]
	assert.Equal(t, domain.Sell, order.Side)
	assert.Equal(t, domain.Market, order.Type)
	assert.Equal(t, 1.5, order.Quantity)

	status := svc.GetStatus()
	assert.Equal(t, domain.SideNone, status.Position.Side)
	require.Len(t, status.Trades, 1)
	assert.Equal(t, domain.CloseReasonEmergency, status.Trades[0].Reason)
}

func TestTradingService_NoEmergencyWhenFlat(t *testing.T) {
	mock := &mockExchange{balances: ports.Balances{QuoteQty: 1000}}
	mock.setPriceErr(errors.New("exchange down"))
	svc := newTestService(t, testAppConfig(), mock, risk.Config{})

	for i := 0; i < 5; i++ {
		err := svc.tick(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, 0, mock.orderCount(), "no exposure, nothing to protect")
}

func TestTradingService_OutageCounterResetsOnData(t *testing.T) {
	series := steppedSeries(30, 100, 0.01)
	mock := &mockExchange{balances: ports.Balances{BaseQty: 1}, price: 100, series: series}
	svc := newTestService(t, testAppConfig(), mock, risk.Config{})
	svc.position.MarkLong(100, 1, time.Now().Add(-time.Minute))

	mock.setPriceErr(errors.New("blip"))
	require.Error(t, svc.tick(context.Background()))
	require.Error(t, svc.tick(context.Background()))

	mock.setPriceErr(nil)
	require.NoError(t, svc.tick(context.Background()))
	assert.Equal(t, 0, svc.noDataTicks)

	// the next outage starts a fresh budget
	mock.setPriceErr(errors.New("blip"))
	require.Error(t, svc.tick(context.Background()))
	require.Error(t, svc.tick(context.Background()))
	assert.Equal(t, 0, mock.orderCount())
}

func TestTradingService_SizingRejectionLeavesStateUntouched(t *testing.T) {
	// 50% of a 20 USDT balance is below the 15 USDT minimum notional
	series := steppedSeries(30, 100, 5)
	mock := &mockExchange{balances: ports.Balances{QuoteQty: 20}, price: series.Last().Close, series: series}
	svc := newTestService(t, testAppConfig(), mock, risk.Config{})

	err := svc.tick(context.Background())
	require.NoError(t, err, "a sizing rejection is not a tick failure")

	assert.Equal(t, 0, mock.orderCount())
	assert.Equal(t, domain.SideNone, svc.GetStatus().Position.Side)
}

func TestTradingService_StartStop(t *testing.T) {
	series := steppedSeries(30, 100, 0.01)
	mock := &mockExchange{balances: ports.Balances{QuoteQty: 1000}, price: 100, series: series}
	svc := newTestService(t, testAppConfig(), mock, risk.Config{})

	require.NoError(t, svc.Start(context.Background()))
	assert.True(t, svc.GetStatus().Running)

	err := svc.Start(context.Background())
	assert.ErrorIs(t, err, ports.ErrInvalidRequest, "double start is rejected")

	svc.Stop()
	select {
	case <-svc.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop in time")
	}
	assert.False(t, svc.GetStatus().Running)
}

func TestTradingService_StartRequiresCredentials(t *testing.T) {
	cfg := testAppConfig()
	cfg.APIKey = ""
	svc := newTestService(t, cfg, &mockExchange{}, risk.Config{})

	err := svc.Start(context.Background())
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestTradingService_UpdateSettings(t *testing.T) {
	cfg := testAppConfig()
	svc := newTestService(t, cfg, &mockExchange{}, risk.Config{})

	require.NoError(t, svc.UpdateSettings(25, 5*time.Minute, "1h"))
	assert.Equal(t, 25.0, cfg.BuySizing.Percent)
	assert.Equal(t, 5*time.Minute, cfg.PollInterval)
	assert.Equal(t, "1h", cfg.IndicatorInterval)

	assert.Error(t, svc.UpdateSettings(0, 5*time.Minute, "1h"))
	assert.Error(t, svc.UpdateSettings(25, time.Second, "1h"))
	assert.Error(t, svc.UpdateSettings(25, 5*time.Minute, "7m"))
	assert.Equal(t, 25.0, cfg.BuySizing.Percent, "rejected updates change nothing")
}

func TestTradingService_UpdateSettingsAppliesToNextOrder(t *testing.T) {
	series := steppedSeries(30, 100, 5)
	last := series.Last().Close
	mock := &mockExchange{balances: ports.Balances{QuoteQty: 10 * last}, price: last, series: series}
	svc := newTestService(t, testAppConfig(), mock, risk.Config{})

	require.NoError(t, svc.UpdateSettings(10, 5*time.Minute, "15m"))

	err := svc.tick(context.Background())
	require.NoError(t, err)

	// 10% of the quote balance, not the 50% the service started with
	require.Equal(t, 1, mock.orderCount())
	assert.Equal(t, domain.Buy, mock.orders[0].Side)
	assert.Equal(t, 1.0, mock.orders[0].Quantity)
}

func TestTradingService_New(t *testing.T) {
	mock := &mockExchange{}
	svc := newTestService(t, testAppConfig(), mock, risk.Config{})
	assert.NotNil(t, svc)

	_, err := New(nil, nil, nil, nil, nil, nil, nil, nil)
	assert.Error(t, err)
}
