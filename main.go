package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"syscall"

	"spotConsensusBot/config"
	"spotConsensusBot/internal/adapters/binanceclient"
	"spotConsensusBot/internal/adapters/logger"
	"spotConsensusBot/internal/app"
	"spotConsensusBot/internal/execution"
	"spotConsensusBot/internal/journal"
	"spotConsensusBot/internal/risk"
	"spotConsensusBot/internal/strategy"
	"spotConsensusBot/internal/strategy/consensus"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Exchange Client
	exchangeClient, err := binanceclient.New(binanceclient.Config{
		APIKey:         cfg.APIKey,
		SecretKey:      cfg.SecretKey,
		UseTestnet:     cfg.IsTestnet,
		BaseAsset:      cfg.BaseAsset,
		QuoteAsset:     cfg.QuoteAsset,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize exchange client")
		log.Fatalf("FATAL: Failed to initialize exchange client: %v", err)
	}
	appLogger.Info(context.Background(), "Exchange client initialized")

	// 4. Initialize Strategy Engine
	engine, err := strategy.New(strategy.Config{
		RSIPeriod:            cfg.RSIPeriod,
		RSIOverbought:        cfg.RSIOverbought,
		RSIOversold:          cfg.RSIOversold,
		MACDFastPeriod:       cfg.MACDFastPeriod,
		MACDSlowPeriod:       cfg.MACDSlowPeriod,
		MACDSignalPeriod:     cfg.MACDSignalPeriod,
		SupertrendPeriod:     cfg.SupertrendPeriod,
		SupertrendMultiplier: cfg.SupertrendMultiplier,
		VolumeTrendPeriod:    cfg.VolumeTrendPeriod,
		VolumePower:          cfg.VolumePower,
		TrendStrengthPeriod:  cfg.TrendStrengthPeriod,
	}, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize strategy engine")
		log.Fatalf("FATAL: Failed to initialize strategy engine: %v", err)
	}
	appLogger.Info(context.Background(), "Strategy engine initialized")

	// 5. Initialize Consensus Combiner
	combiner, err := consensus.New(consensus.Config{VotesRequired: cfg.VotesRequired}, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize consensus combiner")
		log.Fatalf("FATAL: Failed to initialize consensus combiner: %v", err)
	}

	// 6. Initialize Exit Rule Manager
	riskMgr, err := risk.NewManager(risk.Config{
		ProfitTargetPct: cfg.ProfitTargetPct,
		StopLossPct:     cfg.StopLossPct,
		TrailingStopPct: cfg.TrailingStopPct,
		MaxHoldDuration: cfg.MaxHoldDuration,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize exit rules")
		log.Fatalf("FATAL: Failed to initialize exit rules: %v", err)
	}

	// 7. Initialize Order Executor
	executor, err := execution.New(execution.Config{
		Symbol:        cfg.Symbol,
		MinNotional:   cfg.MinNotional,
		MinLot:        cfg.MinLot,
		LotDecimals:   cfg.LotDecimals,
		PriceDecimals: cfg.PriceDecimals,
		SlippagePct:   cfg.SlippagePct,
	}, exchangeClient, appLogger)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize order executor")
		log.Fatalf("FATAL: Failed to initialize order executor: %v", err)
	}
	appLogger.Info(context.Background(), "Order executor initialized")

	// 8. Initialize Application Service
	tradingService, err := app.New(
		cfg,
		exchangeClient,
		engine,
		combiner,
		riskMgr,
		executor,
		journal.New(cfg.HistoryLimit),
		appLogger,
	)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize trading service")
		log.Fatalf("FATAL: Failed to initialize trading service: %v", err)
	}
	appLogger.Info(context.Background(), "Trading service initialized")

	// 9. Start the Service and wait for a termination signal
	if err := tradingService.Start(context.Background()); err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Trading service failed to start")
		log.Fatalf("FATAL: Trading service failed to start: %v", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		appLogger.Info(context.Background(), "Termination signal received, shutting down", map[string]interface{}{"signal": sig.String()})
		tradingService.Stop()
		<-tradingService.Done()
	case <-tradingService.Done():
		appLogger.Warn(context.Background(), "Trading loop exited on its own")
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}
