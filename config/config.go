package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"spotConsensusBot/internal/adapters/logger" // Import the logger package for LogLevel
	"spotConsensusBot/internal/execution"
)

var validIntervals = []string{"1m", "5m", "15m", "30m", "1h", "4h", "1d"}

// Config holds all application configuration.
type Config struct {
	// Exchange API
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Pair
	Symbol     string // e.g., "SOLUSDT"
	BaseAsset  string // e.g., "SOL"
	QuoteAsset string // e.g., "USDT"

	// Polling
	PollInterval      time.Duration // time between signal checks
	RetryDelay        time.Duration // delay after a failed tick
	IndicatorInterval string        // candle timeframe, e.g. "15m"
	CandleLimit       int           // candles fetched per tick
	MaxNoDataTicks    int           // consecutive data failures before the emergency exit

	// Sizing
	BuySizing  execution.SizingPolicy
	SellSizing execution.SizingPolicy

	// Exchange constraints
	MinNotional   float64
	MinLot        float64
	LotDecimals   int
	PriceDecimals int
	SlippagePct   float64

	// Indicator Parameters
	RSIPeriod            int
	RSIOverbought        float64
	RSIOversold          float64
	MACDFastPeriod       int
	MACDSlowPeriod       int
	MACDSignalPeriod     int
	SupertrendPeriod     int
	SupertrendMultiplier float64
	VolumeTrendPeriod    int
	VolumePower          float64

	// Consensus
	VotesRequired       int
	TrendStrengthPeriod int     // 0 disables the gate
	MinTrendStrength    float64 // gate threshold, e.g. 20

	// Exit rules
	ProfitTargetPct float64
	StopLossPct     float64
	TrailingStopPct float64
	MaxHoldDuration time.Duration

	// History
	HistoryLimit int

	// Logging
	LogLevel logger.LogLevel // Use the LogLevel type from the logger adapter

	// Connection
	RequestTimeout time.Duration
}

// IsConfigured reports whether exchange credentials are present. Missing
// credentials are not a load error; they fail Start() instead so a status
// layer can still come up.
func (c *Config) IsConfigured() bool {
	return c.APIKey != "" && c.SecretKey != ""
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Exchange API
	cfg.APIKey = getEnv("EXCHANGE_API_KEY", "")
	cfg.SecretKey = getEnv("EXCHANGE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	// Pair
	cfg.Symbol = getEnv("SYMBOL", "SOLUSDT")
	cfg.BaseAsset = getEnv("BASE_ASSET", "SOL")
	cfg.QuoteAsset = getEnv("QUOTE_ASSET", "USDT")
	if cfg.Symbol == "" || cfg.BaseAsset == "" || cfg.QuoteAsset == "" {
		errs = append(errs, "SYMBOL, BASE_ASSET and QUOTE_ASSET must be set")
	}

	// Polling
	pollSeconds := getEnvAsInt("POLL_INTERVAL_SECONDS", 900)
	if pollSeconds < 60 {
		errs = append(errs, "POLL_INTERVAL_SECONDS must be at least 60")
	}
	cfg.PollInterval = time.Duration(pollSeconds) * time.Second

	retrySeconds := getEnvAsInt("RETRY_DELAY_SECONDS", 15)
	if retrySeconds <= 0 {
		errs = append(errs, "RETRY_DELAY_SECONDS must be positive")
	}
	cfg.RetryDelay = time.Duration(retrySeconds) * time.Second

	cfg.IndicatorInterval = getEnv("INDICATOR_INTERVAL", "15m")
	if !ValidInterval(cfg.IndicatorInterval) {
		errs = append(errs, fmt.Sprintf("INDICATOR_INTERVAL must be one of: %s", strings.Join(validIntervals, ", ")))
	}

	cfg.CandleLimit = getEnvAsInt("CANDLE_LIMIT", 100)
	if cfg.CandleLimit < 50 || cfg.CandleLimit > 1000 {
		errs = append(errs, "CANDLE_LIMIT must be between 50 and 1000")
	}

	cfg.MaxNoDataTicks = getEnvAsInt("MAX_NO_DATA_TICKS", 3)
	if cfg.MaxNoDataTicks <= 0 {
		errs = append(errs, "MAX_NO_DATA_TICKS must be positive")
	}

	// Sizing. Buys default to spending a percentage of the quote balance,
	// sells default to disposing the entire base balance.
	buyMode := execution.SizingMode(getEnv("BUY_SIZING_MODE", string(execution.PercentOfQuote)))
	sellMode := execution.SizingMode(getEnv("SELL_SIZING_MODE", string(execution.EntireBalance)))
	fixedQty, err := getEnvAsFloatRequired("FIXED_QUANTITY", 0.5)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid FIXED_QUANTITY: %v", err))
	}
	tradePct, err := getEnvAsFloatRequired("TRADE_PERCENTAGE", 50)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TRADE_PERCENTAGE: %v", err))
	} else if tradePct < 1 || tradePct > 100 {
		errs = append(errs, "TRADE_PERCENTAGE must be between 1 and 100")
	}
	cfg.BuySizing = execution.SizingPolicy{Mode: buyMode, Quantity: fixedQty, Percent: tradePct}
	cfg.SellSizing = execution.SizingPolicy{Mode: sellMode, Quantity: fixedQty, Percent: tradePct}
	if err := cfg.BuySizing.Validate(true); err != nil {
		errs = append(errs, fmt.Sprintf("invalid buy sizing: %v", err))
	}
	if err := cfg.SellSizing.Validate(false); err != nil {
		errs = append(errs, fmt.Sprintf("invalid sell sizing: %v", err))
	}

	// Exchange constraints
	cfg.MinNotional, err = getEnvAsFloatRequired("MIN_NOTIONAL", 15.0)
	if err != nil || cfg.MinNotional < 0 {
		errs = append(errs, "MIN_NOTIONAL must be a non-negative number")
	}
	cfg.MinLot, err = getEnvAsFloatRequired("MIN_LOT", 0.1)
	if err != nil || cfg.MinLot < 0 {
		errs = append(errs, "MIN_LOT must be a non-negative number")
	}
	cfg.LotDecimals = getEnvAsInt("LOT_DECIMALS", 4)
	cfg.PriceDecimals = getEnvAsInt("PRICE_DECIMALS", 2)
	if cfg.LotDecimals < 0 || cfg.PriceDecimals < 0 {
		errs = append(errs, "LOT_DECIMALS and PRICE_DECIMALS cannot be negative")
	}
	cfg.SlippagePct, err = getEnvAsFloatRequired("SLIPPAGE_PCT", 0.005)
	if err != nil || cfg.SlippagePct < 0 || cfg.SlippagePct >= 1 {
		errs = append(errs, "SLIPPAGE_PCT must be in [0, 1)")
	}

	// Indicator parameters (using defaults if not set)
	cfg.RSIPeriod = getEnvAsInt("RSI_PERIOD", 14)
	cfg.RSIOverbought = getEnvAsFloat("RSI_OVERBOUGHT", 70.0)
	cfg.RSIOversold = getEnvAsFloat("RSI_OVERSOLD", 30.0)
	cfg.MACDFastPeriod = getEnvAsInt("MACD_FAST_PERIOD", 12)
	cfg.MACDSlowPeriod = getEnvAsInt("MACD_SLOW_PERIOD", 26)
	cfg.MACDSignalPeriod = getEnvAsInt("MACD_SIGNAL_PERIOD", 9)
	cfg.SupertrendPeriod = getEnvAsInt("SUPERTREND_PERIOD", 10)
	cfg.SupertrendMultiplier = getEnvAsFloat("SUPERTREND_MULTIPLIER", 3.0)
	cfg.VolumeTrendPeriod = getEnvAsInt("VOLUME_TREND_PERIOD", 20)
	cfg.VolumePower = getEnvAsFloat("VOLUME_POWER", 1.0)

	if cfg.RSIPeriod <= 0 || cfg.SupertrendPeriod <= 0 || cfg.VolumeTrendPeriod <= 0 {
		errs = append(errs, "indicator periods must be positive")
	}
	if cfg.MACDFastPeriod <= 0 || cfg.MACDSlowPeriod <= 0 || cfg.MACDSignalPeriod <= 0 {
		errs = append(errs, "MACD periods must be positive")
	}
	if cfg.MACDFastPeriod >= cfg.MACDSlowPeriod {
		errs = append(errs, "MACD_FAST_PERIOD must be less than MACD_SLOW_PERIOD")
	}
	if cfg.RSIOverbought <= cfg.RSIOversold || cfg.RSIOverbought > 100 || cfg.RSIOversold < 0 {
		errs = append(errs, "invalid RSI thresholds (Overbought must be > Oversold, between 0-100)")
	}

	// Consensus
	cfg.VotesRequired = getEnvAsInt("VOTES_REQUIRED", 2)
	if cfg.VotesRequired <= 0 {
		errs = append(errs, "VOTES_REQUIRED must be positive")
	}
	cfg.TrendStrengthPeriod = getEnvAsInt("TREND_STRENGTH_PERIOD", 14)
	cfg.MinTrendStrength = getEnvAsFloat("MIN_TREND_STRENGTH", 0)
	if cfg.TrendStrengthPeriod < 0 || cfg.MinTrendStrength < 0 {
		errs = append(errs, "trend strength parameters cannot be negative")
	}

	// Exit rules
	cfg.ProfitTargetPct, err = getEnvAsFloatRequired("PROFIT_TARGET_PCT", 0.01)
	if err != nil || cfg.ProfitTargetPct < 0 {
		errs = append(errs, "PROFIT_TARGET_PCT must be a non-negative number")
	}
	cfg.StopLossPct, err = getEnvAsFloatRequired("STOP_LOSS_PCT", 0.05)
	if err != nil || cfg.StopLossPct < 0 {
		errs = append(errs, "STOP_LOSS_PCT must be a non-negative number")
	}
	cfg.TrailingStopPct, err = getEnvAsFloatRequired("TRAILING_STOP_PCT", 0)
	if err != nil || cfg.TrailingStopPct < 0 {
		errs = append(errs, "TRAILING_STOP_PCT must be a non-negative number")
	}
	maxHoldHours := getEnvAsFloat("MAX_HOLD_HOURS", 2)
	if maxHoldHours < 0 {
		errs = append(errs, "MAX_HOLD_HOURS cannot be negative")
	}
	cfg.MaxHoldDuration = time.Duration(maxHoldHours * float64(time.Hour))

	// History
	cfg.HistoryLimit = getEnvAsInt("HISTORY_LIMIT", 100)
	if cfg.HistoryLimit < 0 {
		errs = append(errs, "HISTORY_LIMIT cannot be negative")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	// Connection
	timeoutSeconds := getEnvAsInt("REQUEST_TIMEOUT_SECONDS", 8)
	if timeoutSeconds <= 0 || timeoutSeconds > 30 {
		errs = append(errs, "REQUEST_TIMEOUT_SECONDS must be between 1 and 30")
	}
	cfg.RequestTimeout = time.Duration(timeoutSeconds) * time.Second

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// ValidInterval reports whether the candle timeframe is supported.
func ValidInterval(interval string) bool {
	for _, v := range validIntervals {
		if v == interval {
			return true
		}
	}
	return false
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// For non-required fields the default is acceptable.
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
