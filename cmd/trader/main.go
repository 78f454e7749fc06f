package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/marlinquant/marlin/internal/config"
	"github.com/marlinquant/marlin/internal/dispatcher"
	"github.com/marlinquant/marlin/internal/exchange"
	"github.com/marlinquant/marlin/internal/executor"
	"github.com/marlinquant/marlin/internal/feed"
	"github.com/marlinquant/marlin/internal/logger"
	"github.com/marlinquant/marlin/internal/pipeline"
	"github.com/marlinquant/marlin/internal/risk"
	"github.com/marlinquant/marlin/internal/version"
	"go.uber.org/zap"
)

func main() {
	configFlag := flag.String("config", "", "Path to settings YAML file (required)")
	apiKeyFlag := flag.String("api-key", "", "Binance API key (or BINANCE_API_KEY env)")
	secretKeyFlag := flag.String("secret-key", "", "Binance secret key (or BINANCE_SECRET_KEY env)")

	flag.Parse()

	if *configFlag == "" {
		fmt.Println("Error: --config flag is required")
		flag.Usage()
		os.Exit(1)
	}

	apiKey := *apiKeyFlag
	if apiKey == "" {
		apiKey = os.Getenv("BINANCE_API_KEY")
	}

	secretKey := *secretKeyFlag
	if secretKey == "" {
		secretKey = os.Getenv("BINANCE_SECRET_KEY")
	}

	if apiKey == "" || secretKey == "" {
		fmt.Println("Error: API credentials are required (--api-key/--secret-key or env)")
		os.Exit(1)
	}

	settings, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load settings: %v", err)
	}

	appLogger, err := logger.NewLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	gateway := exchange.NewBinanceGateway(apiKey, secretKey, settings.UseTestnet)

	// The contract set is shared: the supervisor fills it at startup and the
	// executor registry and risk sizer read from it afterwards.
	contracts := exchange.ContractSet{}
	registry := executor.NewRegistry(gateway, contracts)
	sizer := risk.NewBalanceSizer(gateway, contracts)

	pollTimeout := settings.PollTimeout.Std()
	if pollTimeout == 0 {
		pollTimeout = dispatcher.DefaultPollTimeout
	}

	disp := dispatcher.New(registry, sizer, appLogger, pollTimeout)

	symbols := make([]string, 0, len(settings.Symbols))
	riskPcts := make(map[string]float64, len(settings.Symbols))
	pipelineConfigs := make(map[string]pipeline.SymbolConfig, len(settings.Symbols))

	for symbol, symbolSettings := range settings.Symbols {
		granularity, err := symbolSettings.GranularityDuration()
		if err != nil {
			log.Fatalf("Failed to parse granularity for %s: %v", symbol, err)
		}

		symbols = append(symbols, symbol)
		riskPcts[symbol] = symbolSettings.RiskPct
		pipelineConfigs[symbol] = pipeline.SymbolConfig{
			Granularity: granularity,
			Trailing:    symbolSettings.Trailing,
		}
	}

	strategy := newMomentumStrategy(riskPcts)
	supervisor := pipeline.NewSupervisor(gateway, contracts, disp, strategy, pipelineConfigs, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := supervisor.Start(ctx); err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}

	marketFeed := feed.NewBinanceFeed(gateway, supervisor.PriceState(), supervisor.PositionState(), symbols, settings.PositionPollInterval.Std(), appLogger)
	if err := marketFeed.Start(ctx); err != nil {
		supervisor.Shutdown()
		log.Fatalf("Failed to start market feed: %v", err)
	}

	appLogger.Info("trader running",
		zap.String("version", version.GetVersion()),
		zap.Strings("symbols", symbols),
		zap.Bool("testnet", settings.UseTestnet),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("shutdown signal received")
	cancel()

	// Stop the feed first so no new data lands in the pipeline, then drain the
	// consumers and the dispatcher.
	marketFeed.Shutdown()
	supervisor.Shutdown()

	appLogger.Info("trader stopped")
}
